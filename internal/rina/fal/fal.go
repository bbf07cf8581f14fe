// Package fal implements the InterIpcpFlowAllocator: per-neighbour N-1
// flow state between the RMT and the Shim.
package fal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rinacore/ipcpd/internal/rina/pdu"
	"github.com/rinacore/ipcpd/internal/rina/routing"
	"github.com/rinacore/ipcpd/internal/rina/shim"
)

// ErrNoRoute is returned by GetOrCreateFlow when RouteResolver has no
// route to remoteAddr.
var ErrNoRoute = errors.New("fal: no route")

// State is the lifecycle of an InterIpcpFlow.
type State int

const (
	StateActive State = iota
	StateStale
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "Active"
	case StateStale:
		return "Stale"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Flow is an InterIpcpFlow (N-1 flow), exclusively owned by the FAL.
type Flow struct {
	RemoteAddr  uint64
	Endpoint    string
	State       State
	LastActivity time.Time
	SentPDUs    uint64
	ReceivedPDUs uint64
	SendErrors  uint64
}

// Allocator tracks InterIpcpFlow state per remote address.
type Allocator struct {
	shim     shim.Shim
	resolver *routing.Resolver
	now      func() time.Time

	mu    sync.Mutex
	flows map[uint64]*Flow
}

// Option configures an Allocator at construction.
type Option func(*Allocator)

// WithClock overrides the time source (tests only).
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) { a.now = now }
}

// New returns an Allocator that resolves next hops via resolver and
// transmits via sh.
func New(sh shim.Shim, resolver *routing.Resolver, opts ...Option) *Allocator {
	a := &Allocator{
		shim:     sh,
		resolver: resolver,
		now:      time.Now,
		flows:    make(map[uint64]*Flow),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetOrCreateFlow returns the flow to remoteAddr, resolving a route and
// registering the peer with the Shim if none exists yet.
func (a *Allocator) GetOrCreateFlow(remoteAddr uint64) (*Flow, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.getOrCreateFlowLocked(remoteAddr)
}

func (a *Allocator) getOrCreateFlowLocked(remoteAddr uint64) (*Flow, error) {
	if f, ok := a.flows[remoteAddr]; ok {
		return f, nil
	}

	route, err := a.resolver.Resolve(remoteAddr)
	if err != nil {
		return nil, ErrNoRoute
	}

	a.shim.RegisterPeer(remoteAddr, route.NextHopEndpoint)
	f := &Flow{
		RemoteAddr:   remoteAddr,
		Endpoint:     route.NextHopEndpoint,
		State:        StateActive,
		LastActivity: a.now(),
	}
	a.flows[remoteAddr] = f
	return f, nil
}

// SendPDU sends p through the flow to remoteAddr, creating the flow if
// necessary. The Shim addresses the datagram by looking up p.DstAddr in
// its peer table; remoteAddr selects the flow whose counters and state are
// updated. On Shim error the flow transitions to Failed and the error is
// returned.
func (a *Allocator) SendPDU(ctx context.Context, remoteAddr uint64, p *pdu.PDU) error {
	a.mu.Lock()
	f, err := a.getOrCreateFlowLocked(remoteAddr)
	a.mu.Unlock()
	if err != nil {
		return err
	}

	err = a.shim.SendPDU(ctx, p)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		f.SendErrors++
		f.State = StateFailed
		return err
	}
	f.SentPDUs++
	f.LastActivity = a.now()
	if f.State != StateActive {
		f.State = StateActive
	}
	return nil
}

// RecordReceivedFrom creates the flow for remoteAddr if absent
// (auto-discovery) and updates its endpoint if endpoint changed (NAT
// rebinding, DHCP renewal).
func (a *Allocator) RecordReceivedFrom(remoteAddr uint64, endpoint string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, ok := a.flows[remoteAddr]
	if !ok {
		a.shim.RegisterPeer(remoteAddr, endpoint)
		f = &Flow{RemoteAddr: remoteAddr, Endpoint: endpoint, State: StateActive, LastActivity: a.now()}
		a.flows[remoteAddr] = f
	}

	if f.Endpoint != endpoint {
		f.Endpoint = endpoint
		a.shim.UpdatePeer(remoteAddr, endpoint)
	}
	f.ReceivedPDUs++
	f.LastActivity = a.now()
	if f.State == StateFailed {
		f.State = StateActive
	}
}

// UpdatePeerEndpoint rebinds an existing flow's endpoint without treating
// the call as reception traffic.
func (a *Allocator) UpdatePeerEndpoint(remoteAddr uint64, newEndpoint string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, ok := a.flows[remoteAddr]
	if !ok {
		return
	}
	f.Endpoint = newEndpoint
	a.shim.UpdatePeer(remoteAddr, newEndpoint)
}

// CloseFlow removes a flow's tracked state.
func (a *Allocator) CloseFlow(remoteAddr uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.flows, remoteAddr)
}

// CleanupStale marks every flow whose last activity exceeds timeout as
// Stale, returning the addresses affected.
func (a *Allocator) CleanupStale(timeout time.Duration) []uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	var staled []uint64
	for addr, f := range a.flows {
		if f.State == StateActive && now.Sub(f.LastActivity) > timeout {
			f.State = StateStale
			staled = append(staled, addr)
		}
	}
	return staled
}

// Stats returns a snapshot of every tracked flow.
func (a *Allocator) Stats() []Flow {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := make([]Flow, 0, len(a.flows))
	for _, f := range a.flows {
		stats = append(stats, *f)
	}
	return stats
}
