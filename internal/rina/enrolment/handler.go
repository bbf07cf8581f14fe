package enrolment

import (
	"context"

	"github.com/rinacore/ipcpd/internal/logger"
	"github.com/rinacore/ipcpd/internal/rina/cdap"
	"github.com/rinacore/ipcpd/internal/rina/pdu"
)

// Dispatcher returns a *cdap.Dispatcher with this Manager's bootstrap-side
// sync handler registered. ObjRequest is handled specially by
// HandleManagementPDU, since its full semantics (peer/route registration)
// need the underlay source endpoint a generic cdap.Handler is not given.
func (m *Manager) Dispatcher() *cdap.Dispatcher {
	d := cdap.NewDispatcher()
	d.Register(ObjSync, m.handleSyncRequest)
	return d
}

// HandleManagementPDU is the RMT's ManagementHandler entry point: it
// decodes the CDAP message carried in p's payload. A reply is delivered
// to the matching pending invoke_id (member side). A request for
// ObjRequest runs the bootstrap-side enrolment handler; any other
// request is routed through d.
func (m *Manager) HandleManagementPDU(ctx context.Context, p *pdu.PDU, sourceEndpoint string, d *cdap.Dispatcher) {
	msg, err := cdap.Decode(p.Payload)
	if err != nil {
		logger.Debug("enrolment: discarding undecodable management pdu", logger.Err(err))
		return
	}

	if msg.IsReply {
		m.invokeMu.Lock()
		ch, ok := m.pending[msg.InvokeID]
		m.invokeMu.Unlock()
		if ok {
			select {
			case ch <- msg:
			default:
			}
		}
		m.noteHeartbeat(p.SrcAddr)
		return
	}

	var reply cdap.Message
	if msg.ObjName == ObjRequest {
		reply = m.handleEnrolmentRequest(ctx, msg, p.SrcAddr, sourceEndpoint)
	} else {
		reply = d.DispatchMessage(msg)
	}

	replyPDU := &pdu.PDU{SrcAddr: p.DstAddr, DstAddr: p.SrcAddr, Type: pdu.TypeManagement, Payload: reply.Encode()}
	if err := m.sender.SendPDU(ctx, p.SrcAddr, replyPDU); err != nil {
		logger.Debug("enrolment: failed to send management reply", logger.Err(err), logger.RemoteAddr(p.SrcAddr))
	}
	m.noteHeartbeat(p.SrcAddr)
}

func (m *Manager) noteHeartbeat(fromAddr uint64) {
	m.mu.Lock()
	if fromAddr == m.bootstrapAddr {
		m.lastHeartbeat = m.now()
	}
	m.mu.Unlock()
}

// handleEnrolmentRequest is the bootstrap-side handler from spec.md
// §4.8's numbered steps 1-4. srcAddr/sourceEndpoint identify the
// underlay peer the request physically arrived from, needed to register
// a freshly allocated address.
func (m *Manager) handleEnrolmentRequest(ctx context.Context, req cdap.Message, srcAddr uint64, sourceEndpoint string) cdap.Message {
	decoded, err := DecodeRequest(req.ObjValue)
	if err != nil {
		return cdap.NewReply(req.OpCode, req.ObjName, nil, req.InvokeID, cdap.ResultBadFormat, "malformed request")
	}

	registerAddr := srcAddr
	if decoded.IPCPAddress != 0 {
		registerAddr = decoded.IPCPAddress
	}
	if registerAddr != 0 {
		m.registerPeer(registerAddr, sourceEndpoint)
	}

	var assigned uint64
	var hasAssigned bool
	if decoded.RequestAddress {
		if m.pool == nil {
			resp := Response{Accepted: false, Error: "no address pool configured"}
			return cdap.NewReply(req.OpCode, req.ObjName, resp.Encode(), req.InvokeID, cdap.ResultOK, "")
		}
		addr, err := m.pool.Allocate()
		if err != nil {
			resp := Response{Accepted: false, Error: "address pool exhausted"}
			return cdap.NewReply(req.OpCode, req.ObjName, resp.Encode(), req.InvokeID, cdap.ResultOK, "")
		}
		assigned = addr
		hasAssigned = true

		m.registerPeer(assigned, sourceEndpoint)
		if err := m.resolver.AddDynamicRoute(assigned, assigned, sourceEndpoint, m.dynamicRouteTTL); err != nil {
			logger.Debug("enrolment: failed to install dynamic route for new member", logger.Err(err), logger.RemoteAddr(assigned))
		}
		m.persistAssignment(ctx, assigned, sourceEndpoint)
	}

	resp := Response{
		Accepted:        true,
		HasAssigned:     hasAssigned,
		AssignedAddress: assigned,
		DIFName:         m.difName,
		HasSnapshot:     true,
		RIBSnapshot:     m.r.SerializeSnapshot(),
		RIBVersion:      m.r.CurrentVersion(),
	}
	return cdap.NewReply(req.OpCode, req.ObjName, resp.Encode(), req.InvokeID, cdap.ResultOK, "")
}

// persistAssignment durably records a newly assigned member address and
// its installed route so a bootstrap restart does not orphan existing
// members. Persistence is best-effort: a failure here does not fail the
// enrolment, it only risks the member needing to re-enrol after a crash.
func (m *Manager) persistAssignment(ctx context.Context, assigned uint64, sourceEndpoint string) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveAllocated(ctx, assigned); err != nil {
		logger.Debug("enrolment: failed to persist allocated address", logger.Err(err), logger.RemoteAddr(assigned))
	}
	if err := m.store.SaveRoute(ctx, assigned, assigned, sourceEndpoint, m.dynamicRouteTTL); err != nil {
		logger.Debug("enrolment: failed to persist dynamic route", logger.Err(err), logger.RemoteAddr(assigned))
	}
}

// handleSyncRequest implements the bootstrap side of incremental sync
// from spec.md §4.8's last paragraph.
func (m *Manager) handleSyncRequest(req cdap.Message) cdap.Message {
	syncReq, err := DecodeSyncRequest(req.ObjValue)
	if err != nil {
		return cdap.NewReply(req.OpCode, req.ObjName, nil, req.InvokeID, cdap.ResultBadFormat, "malformed sync request")
	}

	changes, err := m.r.GetChangesSince(syncReq.LastKnownVersion)
	if err != nil {
		resp := SyncResponse{
			CurrentVersion: m.r.CurrentVersion(),
			HasSnapshot:    true,
			FullSnapshot:   m.r.SerializeSnapshot(),
		}
		return cdap.NewReply(req.OpCode, req.ObjName, resp.Encode(), req.InvokeID, cdap.ResultOK, "")
	}

	resp := SyncResponse{CurrentVersion: m.r.CurrentVersion(), HasChanges: true, Changes: changes}
	return cdap.NewReply(req.OpCode, req.ObjName, resp.Encode(), req.InvokeID, cdap.ResultOK, "")
}
