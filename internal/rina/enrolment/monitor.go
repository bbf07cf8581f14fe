package enrolment

import (
	"context"
	"time"

	"github.com/rinacore/ipcpd/internal/logger"
)

// RunConnectionMonitor blocks until ctx is cancelled, periodically checking
// the age of the last heartbeat received from the bootstrap against
// cfg.ConnectionTimeoutSecs. On expiry it re-runs the member-side phase
// machine against the same bootstrap address, implementing spec.md
// §4.8's connection-loss re-enrolment behaviour.
func (m *Manager) RunConnectionMonitor(ctx context.Context) {
	if m.cfg.HeartbeatIntervalSecs <= 0 {
		return
	}
	interval := time.Duration(m.cfg.HeartbeatIntervalSecs) * time.Second / 2
	if interval <= 0 {
		interval = time.Second
	}

	for {
		if err := m.sleep(ctx, interval); err != nil {
			return
		}
		m.checkConnection(ctx)
	}
}

func (m *Manager) checkConnection(ctx context.Context) {
	m.mu.Lock()
	state := m.state
	bootstrapAddr := m.bootstrapAddr
	age := m.now().Sub(m.lastHeartbeat)
	already := m.reEnrolling
	m.mu.Unlock()

	if state != Enrolled || already {
		return
	}
	timeout := time.Duration(m.cfg.ConnectionTimeoutSecs) * time.Second
	if age < timeout {
		return
	}

	m.mu.Lock()
	m.reEnrolling = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.reEnrolling = false
		m.mu.Unlock()
	}()

	logger.Info("enrolment: heartbeat lost, re-enrolling", logger.RemoteAddr(bootstrapAddr))
	if _, err := m.EnrolWithBootstrap(ctx, bootstrapAddr); err != nil {
		logger.Warn("enrolment: re-enrolment failed", logger.Err(err), logger.RemoteAddr(bootstrapAddr))
	}
}
