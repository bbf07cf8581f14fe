// Package shim implements the underlay abstraction: the polymorphic
// contract by which an IPCP sends and receives PDUs over some concrete
// transport, plus a UDP/IP implementation.
package shim

import (
	"context"
	"errors"
	"sync"

	"github.com/rinacore/ipcpd/internal/rina/pdu"
)

// ErrUnknownPeer is returned by SendPDU when the destination address has
// no registered endpoint.
var ErrUnknownPeer = errors.New("shim: unknown peer")

// ErrClosed is returned by SendPDU/ReceivePDU after Close, and is fatal
// for the receive loop.
var ErrClosed = errors.New("shim: closed")

// Received pairs a decoded PDU with the underlay endpoint it arrived
// from, needed by the RMT for enrolment auto-registration.
type Received struct {
	PDU    *pdu.PDU
	Source string
}

// Shim is the polymorphic underlay contract. Implementations must be
// safe for concurrent Send calls alongside a single Receive loop.
type Shim interface {
	// Bind starts listening on endpoint.
	Bind(ctx context.Context, endpoint string) error
	// SendPDU serialises and transmits p to its destination, resolved via
	// the peer table. Fails with ErrUnknownPeer if dst_addr is unregistered.
	SendPDU(ctx context.Context, p *pdu.PDU) error
	// ReceivePDU blocks until a PDU arrives, the context is cancelled, or
	// the shim is closed.
	ReceivePDU(ctx context.Context) (Received, error)
	// RegisterPeer associates a RINA address with an underlay endpoint.
	RegisterPeer(addr uint64, endpoint string)
	// LookupPeer returns the endpoint registered for addr, if any.
	LookupPeer(addr uint64) (endpoint string, ok bool)
	// UpdatePeer rebinds addr to a new endpoint (NAT rebinding, DHCP
	// renewal), leaving the registration otherwise unchanged.
	UpdatePeer(addr uint64, newEndpoint string)
	// Close releases the underlying socket. Subsequent operations fail
	// with ErrClosed.
	Close() error
}

// peerTable is the address→endpoint registry shared by every Shim
// implementation, exclusively owned by the Shim.
type peerTable struct {
	mu     sync.RWMutex
	byAddr map[uint64]string
}

func newPeerTable() *peerTable {
	return &peerTable{byAddr: make(map[uint64]string)}
}

func (t *peerTable) register(addr uint64, endpoint string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byAddr[addr] = endpoint
}

func (t *peerTable) lookup(addr uint64) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	endpoint, ok := t.byAddr[addr]
	return endpoint, ok
}

func (t *peerTable) update(addr uint64, newEndpoint string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byAddr[addr] = newEndpoint
}
