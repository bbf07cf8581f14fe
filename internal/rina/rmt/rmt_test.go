package rmt

import (
	"context"
	"errors"
	"testing"

	"github.com/rinacore/ipcpd/internal/rina/fal"
	"github.com/rinacore/ipcpd/internal/rina/pdu"
	"github.com/rinacore/ipcpd/internal/rina/rib"
	"github.com/rinacore/ipcpd/internal/rina/routing"
	"github.com/rinacore/ipcpd/internal/rina/shim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeShim struct {
	peers map[uint64]string
	sent  []*pdu.PDU
}

func newFakeShim() *fakeShim { return &fakeShim{peers: make(map[uint64]string)} }

func (f *fakeShim) Bind(ctx context.Context, endpoint string) error { return nil }
func (f *fakeShim) SendPDU(ctx context.Context, p *pdu.PDU) error {
	f.sent = append(f.sent, p)
	return nil
}
func (f *fakeShim) ReceivePDU(ctx context.Context) (shim.Received, error) {
	return shim.Received{}, errors.New("not implemented")
}
func (f *fakeShim) RegisterPeer(addr uint64, endpoint string)  { f.peers[addr] = endpoint }
func (f *fakeShim) LookupPeer(addr uint64) (string, bool)      { e, ok := f.peers[addr]; return e, ok }
func (f *fakeShim) UpdatePeer(addr uint64, newEndpoint string) { f.peers[addr] = newEndpoint }
func (f *fakeShim) Close() error                               { return nil }

var _ shim.Shim = (*fakeShim)(nil)

func setup(t *testing.T, localAddr uint64) (*RMT, *fakeShim, *routing.Resolver) {
	t.Helper()
	r := rib.New()
	resolver := routing.New(r)
	sh := newFakeShim()
	allocator := fal.New(sh, resolver)
	m := New(localAddr, sh, allocator, DefaultRoutingStrategy(resolver), nil, nil)
	return m, sh, resolver
}

func TestHandleInboundLocalManagementPDU(t *testing.T) {
	var received *pdu.PDU
	r := rib.New()
	resolver := routing.New(r)
	sh := newFakeShim()
	allocator := fal.New(sh, resolver)
	m := New(1, sh, allocator, DefaultRoutingStrategy(resolver),
		func(ctx context.Context, p *pdu.PDU, source string) { received = p },
		nil,
	)

	p := &pdu.PDU{SrcAddr: 2, DstAddr: 1, Type: pdu.TypeManagement}
	m.HandleInbound(context.Background(), shim.Received{PDU: p, Source: "10.0.0.2:5000"})

	require.NotNil(t, received)
	assert.Equal(t, uint64(2), received.SrcAddr)

	// Auto-registration via the FAL.
	stats := allocator.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, uint64(2), stats[0].RemoteAddr)
}

func TestHandleInboundLocalDataPDU(t *testing.T) {
	var received *pdu.PDU
	r := rib.New()
	resolver := routing.New(r)
	sh := newFakeShim()
	allocator := fal.New(sh, resolver)
	m := New(1, sh, allocator, DefaultRoutingStrategy(resolver), nil,
		func(ctx context.Context, p *pdu.PDU) { received = p },
	)

	p := &pdu.PDU{SrcAddr: 2, DstAddr: 1, Type: pdu.TypeData, FlowID: 9}
	m.HandleInbound(context.Background(), shim.Received{PDU: p, Source: "10.0.0.2:5000"})

	require.NotNil(t, received)
	assert.Equal(t, uint64(9), received.FlowID)
}

func TestHandleInboundForwardsNonLocalPDU(t *testing.T) {
	m, sh, resolver := setup(t, 1)
	require.NoError(t, resolver.AddStaticRoute(3, 3, "10.0.0.3:5000"))

	p := &pdu.PDU{SrcAddr: 2, DstAddr: 3, Type: pdu.TypeData}
	m.HandleInbound(context.Background(), shim.Received{PDU: p, Source: "10.0.0.2:5000"})

	require.Len(t, sh.sent, 1)
	assert.Equal(t, uint64(3), sh.sent[0].DstAddr)
}

func TestForwardDropsOnNoRoute(t *testing.T) {
	m, sh, _ := setup(t, 1)

	p := &pdu.PDU{SrcAddr: 2, DstAddr: 99, Type: pdu.TypeData}
	m.HandleInbound(context.Background(), shim.Received{PDU: p, Source: "10.0.0.2:5000"})

	assert.Empty(t, sh.sent)
	assert.Equal(t, uint64(1), m.Stats().DroppedNoRoute)
}

func TestHandleOutboundForwardsViaSameResolution(t *testing.T) {
	m, sh, resolver := setup(t, 1)
	require.NoError(t, resolver.AddStaticRoute(5, 5, "10.0.0.5:5000"))

	p := &pdu.PDU{SrcAddr: 1, DstAddr: 5, Type: pdu.TypeData}
	m.HandleOutbound(context.Background(), p)

	require.Len(t, sh.sent, 1)
	assert.Equal(t, uint64(5), sh.sent[0].DstAddr)
}
