package enrolment

import (
	"context"
	"time"

	"github.com/rinacore/ipcpd/internal/logger"
	"github.com/rinacore/ipcpd/internal/rina/cdap"
)

// RunSyncLoop blocks until ctx is cancelled, periodically issuing a
// rib_sync request to the bootstrap and applying the result, the
// member-side counterpart of handleSyncRequest.
func (m *Manager) RunSyncLoop(ctx context.Context, interval time.Duration) {
	for {
		if err := m.sleep(ctx, interval); err != nil {
			return
		}
		if m.State() != Enrolled {
			continue
		}
		if err := m.syncOnce(ctx); err != nil {
			logger.Debug("enrolment: sync failed", logger.Err(err))
		}
	}
}

func (m *Manager) syncOnce(ctx context.Context) error {
	m.mu.Lock()
	bootstrapAddr := m.bootstrapAddr
	since := m.lastKnownVersion
	m.mu.Unlock()

	req := SyncRequest{LastKnownVersion: since, Requester: m.ipcpName}
	invokeID := m.allocateInvokeID()
	replyCh := m.registerPending(invokeID)
	defer m.unregisterPending(invokeID)

	msg := cdap.NewRequest(cdap.OpRead, ObjSync, "rib_sync", req.Encode(), invokeID)
	if err := m.sendManagement(ctx, bootstrapAddr, msg); err != nil {
		return err
	}

	timeout := time.Duration(m.cfg.TimeoutSecs) * time.Second
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTimeout
	case reply := <-replyCh:
		resp, err := DecodeSyncResponse(reply.ObjValue)
		if err != nil {
			return err
		}
		return m.applySyncResponse(resp)
	}
}

func (m *Manager) applySyncResponse(resp SyncResponse) error {
	if resp.HasSnapshot {
		if _, err := m.r.DeserializeSnapshot(resp.FullSnapshot); err != nil {
			return err
		}
	} else if resp.HasChanges {
		m.r.ApplyChanges(resp.Changes)
	}
	m.mu.Lock()
	m.lastKnownVersion = resp.CurrentVersion
	m.mu.Unlock()
	return nil
}
