// Package enrolment implements the member-side enrolment phase machine,
// the bootstrap-side handler it talks to, a connection monitor that
// drives re-enrolment on heartbeat loss, and incremental RIB
// synchronisation between the two.
package enrolment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rinacore/ipcpd/internal/logger"
	"github.com/rinacore/ipcpd/internal/rina/addresspool"
	"github.com/rinacore/ipcpd/internal/rina/cdap"
	"github.com/rinacore/ipcpd/internal/rina/fal"
	"github.com/rinacore/ipcpd/internal/rina/pdu"
	"github.com/rinacore/ipcpd/internal/rina/rib"
	"github.com/rinacore/ipcpd/internal/rina/routing"
	"github.com/rinacore/ipcpd/internal/rina/wire"
	"github.com/rinacore/ipcpd/internal/telemetry"
)

// State is the member-side enrolment phase.
type State int

const (
	NotEnrolled State = iota
	Initiated
	Authenticating
	Synchronizing
	Enrolled
	Failed
)

func (s State) String() string {
	switch s {
	case NotEnrolled:
		return "NotEnrolled"
	case Initiated:
		return "Initiated"
	case Authenticating:
		return "Authenticating"
	case Synchronizing:
		return "Synchronizing"
	case Enrolled:
		return "Enrolled"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// ErrRejected is returned when the bootstrap rejects an enrolment
// request; rejection is not retried.
var ErrRejected = errors.New("enrolment: rejected")

// ErrTimeout is returned when every retry attempt is exhausted without a
// reply.
var ErrTimeout = errors.New("enrolment: timeout")

// Config bounds the phase machine's retry and liveness behaviour.
type Config struct {
	TimeoutSecs           int
	MaxRetries            int
	InitialBackoffMs      int
	HeartbeatIntervalSecs int
	ConnectionTimeoutSecs int
}

// Sender abstracts transmission of one Management PDU to a RINA address,
// satisfied by *fal.Allocator in production.
type Sender interface {
	SendPDU(ctx context.Context, remoteAddr uint64, p *pdu.PDU) error
	GetOrCreateFlow(remoteAddr uint64) (*fal.Flow, error)
}

// Persister durably records the state an enrolled IPCP needs to resume
// without re-enrolling from scratch: the locally assigned address (member
// side) and the addresses/routes handed out to joining members (bootstrap
// side). Satisfied by an adapter over *persistence.Store in production.
type Persister interface {
	SaveLocalAddress(ctx context.Context, addr uint64) error
	SaveAllocated(ctx context.Context, addr uint64) error
	SaveRoute(ctx context.Context, dst, nextHopAddr uint64, nextHopEndpoint string, ttl time.Duration) error
}

// defaultDynamicRouteTTL bounds how long a route installed for a newly
// enrolled member lives before it must be refreshed, absent any other
// liveness signal for that member's N-1 flow.
const defaultDynamicRouteTTL = 10 * time.Minute

// Manager drives both the member-side phase machine and the
// bootstrap-side handler; which role is active depends on which methods
// the caller invokes and on whether pool is non-nil.
type Manager struct {
	ipcpName string
	difName  string
	cfg      Config

	r        *rib.RIB
	resolver *routing.Resolver
	sender   Sender
	pool     *addresspool.Pool // non-nil on the bootstrap side only

	// registerPeer binds a freshly allocated or declared address to the
	// underlay endpoint it was observed on (the Shim's RegisterPeer, on
	// the bootstrap side). Defaults to a no-op so a member-only Manager
	// needs no Shim reference.
	registerPeer    func(addr uint64, endpoint string)
	dynamicRouteTTL time.Duration
	store           Persister // nil disables persistence

	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	mu               sync.Mutex
	localAddr        uint64
	state            State
	bootstrapAddr    uint64
	lastHeartbeat    time.Time
	lastKnownVersion uint64
	reEnrolling      bool

	invokeMu sync.Mutex
	nextID   uint64
	pending  map[uint64]chan cdap.Message
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithPool enables the bootstrap-side role by supplying the AddressPool
// used to assign addresses to joining members.
func WithPool(pool *addresspool.Pool) Option {
	return func(m *Manager) { m.pool = pool }
}

// WithClock overrides the time source (tests only).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSleeper overrides the back-off sleep function (tests only).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(m *Manager) { m.sleep = sleep }
}

// WithPeerRegistrar supplies the Shim-backed callback used on the
// bootstrap side to bind a newly assigned address to the underlay
// endpoint the enrolment request arrived on.
func WithPeerRegistrar(register func(addr uint64, endpoint string)) Option {
	return func(m *Manager) { m.registerPeer = register }
}

// WithDynamicRouteTTL overrides the lifetime of routes installed for
// newly enrolled members (default defaultDynamicRouteTTL).
func WithDynamicRouteTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.dynamicRouteTTL = ttl }
}

// WithPersister enables durable persistence of the locally assigned
// address and, on the bootstrap side, each member's assigned address and
// route. Without this option enrolment state does not survive a restart.
func WithPersister(store Persister) Option {
	return func(m *Manager) { m.store = store }
}

// New returns a Manager for ipcpName in difName, initially at localAddr
// (0 if the address is to be assigned dynamically by a bootstrap).
func New(ipcpName, difName string, localAddr uint64, r *rib.RIB, resolver *routing.Resolver, sender Sender, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		ipcpName:  ipcpName,
		difName:   difName,
		cfg:       cfg,
		r:         r,
		resolver:  resolver,
		sender:    sender,
		localAddr:       localAddr,
		state:           NotEnrolled,
		now:             time.Now,
		pending:         make(map[uint64]chan cdap.Message),
		registerPeer:    func(uint64, string) {},
		dynamicRouteTTL: defaultDynamicRouteTTL,
	}
	m.sleep = func(ctx context.Context, d time.Duration) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the member-side phase machine's current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LocalAddr returns the locally assigned RINA address.
func (m *Manager) LocalAddr() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.localAddr
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) allocateInvokeID() uint64 {
	m.invokeMu.Lock()
	defer m.invokeMu.Unlock()
	m.nextID++
	return m.nextID
}

func (m *Manager) registerPending(id uint64) chan cdap.Message {
	ch := make(chan cdap.Message, 1)
	m.invokeMu.Lock()
	m.pending[id] = ch
	m.invokeMu.Unlock()
	return ch
}

func (m *Manager) unregisterPending(id uint64) {
	m.invokeMu.Lock()
	delete(m.pending, id)
	m.invokeMu.Unlock()
}

// EnrolWithBootstrap runs the member-side phase machine against
// bootstrapAddr, implementing spec.md §4.8's numbered steps.
func (m *Manager) EnrolWithBootstrap(ctx context.Context, bootstrapAddr uint64) (string, error) {
	m.mu.Lock()
	m.bootstrapAddr = bootstrapAddr
	m.mu.Unlock()
	m.setState(Initiated)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Duration(m.cfg.InitialBackoffMs) * time.Millisecond
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = time.Hour
	bo.MaxElapsedTime = 0

	attempt := 0
	for {
		attempt++
		ctx2, span := telemetry.StartEnrolmentSpan(ctx, telemetry.SpanEnrolAttempt, bootstrapAddr, attempt)

		resp, err := m.attemptEnrol(ctx2, bootstrapAddr)
		span.End()

		if err == nil {
			m.mu.Lock()
			m.lastHeartbeat = m.now()
			m.mu.Unlock()
			m.setState(Enrolled)
			return resp.DIFName, nil
		}

		if errors.Is(err, ErrRejected) {
			m.setState(Failed)
			return "", err
		}

		if attempt >= m.cfg.MaxRetries {
			m.setState(Failed)
			return "", fmt.Errorf("%w: %d attempts", ErrTimeout, attempt)
		}

		wait := bo.NextBackOff()
		logger.Debug("enrolment: attempt failed, backing off",
			logger.Attempt(attempt), logger.MaxRetry(m.cfg.MaxRetries), logger.BackoffMs(wait.Milliseconds()), logger.Err(err))
		if sleepErr := m.sleep(ctx, wait); sleepErr != nil {
			m.setState(Failed)
			return "", sleepErr
		}
	}
}

func (m *Manager) attemptEnrol(ctx context.Context, bootstrapAddr uint64) (Response, error) {
	m.setState(Authenticating)

	m.mu.Lock()
	local := m.localAddr
	m.mu.Unlock()

	req := Request{
		IPCPName:       m.ipcpName,
		IPCPAddress:    local,
		DIFName:        m.difName,
		Timestamp:      m.now().UnixNano(),
		RequestAddress: local == 0,
	}

	invokeID := m.allocateInvokeID()
	replyCh := m.registerPending(invokeID)
	defer m.unregisterPending(invokeID)

	msg := cdap.NewRequest(cdap.OpCreate, ObjRequest, "enrolment", req.Encode(), invokeID)
	if err := m.sendManagement(ctx, bootstrapAddr, msg); err != nil {
		return Response{}, err
	}

	timeout := time.Duration(m.cfg.TimeoutSecs) * time.Second
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-timer.C:
		return Response{}, ErrTimeout
	case reply := <-replyCh:
		if reply.Result != cdap.ResultOK {
			return Response{}, fmt.Errorf("%w: %s", ErrRejected, reply.ResultReason)
		}
		resp, err := DecodeResponse(reply.ObjValue)
		if err != nil {
			return Response{}, err
		}
		if !resp.Accepted {
			return Response{}, fmt.Errorf("%w: %s", ErrRejected, resp.Error)
		}

		m.setState(Synchronizing)
		if resp.HasAssigned {
			m.mu.Lock()
			m.localAddr = resp.AssignedAddress
			m.mu.Unlock()
			addrVal := wire.NewIntValue(int64(resp.AssignedAddress))
			if _, err := m.r.Create("/local/address", "address", addrVal); err != nil {
				_, _ = m.r.Update("/local/address", addrVal)
			}
			if m.store != nil {
				if err := m.store.SaveLocalAddress(ctx, resp.AssignedAddress); err != nil {
					logger.Debug("enrolment: failed to persist assigned address", logger.Err(err))
				}
			}
		}
		if resp.HasSnapshot {
			if _, err := m.r.DeserializeSnapshot(resp.RIBSnapshot); err != nil {
				return Response{}, fmt.Errorf("enrolment: apply rib snapshot: %w", err)
			}
		}
		m.mu.Lock()
		m.lastKnownVersion = resp.RIBVersion
		m.mu.Unlock()
		return resp, nil
	}
}

func (m *Manager) sendManagement(ctx context.Context, remoteAddr uint64, msg cdap.Message) error {
	if _, err := m.sender.GetOrCreateFlow(remoteAddr); err != nil {
		return err
	}
	m.mu.Lock()
	local := m.localAddr
	m.mu.Unlock()
	p := &pdu.PDU{SrcAddr: local, DstAddr: remoteAddr, Type: pdu.TypeManagement, Payload: msg.Encode()}
	return m.sender.SendPDU(ctx, remoteAddr, p)
}
