package shim

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rinacore/ipcpd/internal/rina/pdu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindLoopback(t *testing.T) *UDPShim {
	t.Helper()
	s := NewUDP()
	require.NoError(t, s.Bind(context.Background(), "127.0.0.1:0"))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func localAddr(s *UDPShim) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.LocalAddr().String()
}

func TestUDPSendReceiveRoundTrip(t *testing.T) {
	a := bindLoopback(t)
	b := bindLoopback(t)

	a.RegisterPeer(2, localAddr(b))

	p := &pdu.PDU{SrcAddr: 1, DstAddr: 2, Type: pdu.TypeData, FlowID: 5, SeqNo: 1, Payload: []byte("hello")}
	require.NoError(t, a.SendPDU(context.Background(), p))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	received, err := b.ReceivePDU(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), received.PDU.SrcAddr)
	assert.Equal(t, []byte("hello"), received.PDU.Payload)
	assert.Equal(t, localAddr(a), received.Source)
}

func TestUDPSendUnknownPeer(t *testing.T) {
	a := bindLoopback(t)
	p := &pdu.PDU{SrcAddr: 1, DstAddr: 99, Type: pdu.TypeData}
	err := a.SendPDU(context.Background(), p)
	assert.ErrorIs(t, err, ErrUnknownPeer)
}

func TestUDPReceiveAfterCloseReturnsClosed(t *testing.T) {
	a := bindLoopback(t)
	require.NoError(t, a.Close())

	_, err := a.ReceivePDU(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestUDPReceiveRespectsContextCancellation(t *testing.T) {
	a := bindLoopback(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := a.ReceivePDU(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUDPPeerTableRegisterLookupUpdate(t *testing.T) {
	a := bindLoopback(t)

	_, ok := a.LookupPeer(7)
	assert.False(t, ok)

	a.RegisterPeer(7, "10.0.0.1:4000")
	endpoint, ok := a.LookupPeer(7)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1:4000", endpoint)

	a.UpdatePeer(7, "10.0.0.2:4000")
	endpoint, ok = a.LookupPeer(7)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.2:4000", endpoint)
}

func TestUDPDecodeErrorsAreSkippedNotFatal(t *testing.T) {
	a := bindLoopback(t)
	b := bindLoopback(t)

	// Send a malformed datagram directly, bypassing PDU encoding.
	raw := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	udpAddr, err := net.ResolveUDPAddr("udp", localAddr(b))
	require.NoError(t, err)
	srcConn, err := net.DialUDP("udp", nil, udpAddr)
	require.NoError(t, err)
	_, err = srcConn.Write(raw)
	require.NoError(t, err)
	_ = srcConn.Close()

	// Follow up with a well-formed PDU so ReceivePDU eventually returns.
	p := &pdu.PDU{SrcAddr: 1, DstAddr: 2, Type: pdu.TypeData, Payload: []byte("ok")}
	a.RegisterPeer(2, localAddr(b))
	require.NoError(t, a.SendPDU(context.Background(), p))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	received, err := b.ReceivePDU(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), received.PDU.Payload)
	assert.Equal(t, uint64(1), b.DecodeErrors())
}
