package efcp

import (
	"context"
	"testing"

	"github.com/rinacore/ipcpd/internal/rina/pdu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeForwarder struct {
	forwarded []*pdu.PDU
}

func (f *fakeForwarder) HandleOutbound(ctx context.Context, p *pdu.PDU) {
	f.forwarded = append(f.forwarded, p)
}

func TestAllocateFlowAssignsSequentialIDs(t *testing.T) {
	e := New(1, &fakeForwarder{})
	id1 := e.AllocateFlow(1, 2, pdu.QoS{})
	id2 := e.AllocateFlow(1, 3, pdu.QoS{})
	assert.NotEqual(t, id1, id2)
}

func TestSendDataConstructsDataPDUWithIncrementingSeq(t *testing.T) {
	fwd := &fakeForwarder{}
	e := New(1, fwd)
	flowID := e.AllocateFlow(1, 2, pdu.QoS{Class: 1, Priority: 2})

	require.NoError(t, e.SendData(context.Background(), flowID, []byte("a")))
	require.NoError(t, e.SendData(context.Background(), flowID, []byte("b")))

	require.Len(t, fwd.forwarded, 2)
	assert.Equal(t, uint64(1), fwd.forwarded[0].SeqNo)
	assert.Equal(t, uint64(2), fwd.forwarded[1].SeqNo)
	assert.Equal(t, pdu.TypeData, fwd.forwarded[0].Type)
	assert.Equal(t, uint64(2), fwd.forwarded[0].DstAddr)
}

func TestSendDataUnknownFlow(t *testing.T) {
	e := New(1, &fakeForwarder{})
	err := e.SendData(context.Background(), 999, []byte("x"))
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestReceivePduAppendsToQueue(t *testing.T) {
	e := New(1, &fakeForwarder{})
	flowID := e.AllocateFlow(1, 2, pdu.QoS{})

	e.ReceivePDU(&pdu.PDU{FlowID: flowID, Payload: []byte("x")})
	e.ReceivePDU(&pdu.PDU{FlowID: flowID, Payload: []byte("y")})

	payloads, err := e.Drain(flowID)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("x"), []byte("y")}, payloads)

	payloads, err = e.Drain(flowID)
	require.NoError(t, err)
	assert.Empty(t, payloads)
}

func TestReceivePduUnknownFlowIsDroppedSilently(t *testing.T) {
	e := New(1, &fakeForwarder{})
	e.ReceivePDU(&pdu.PDU{FlowID: 999, Payload: []byte("x")})
}

func TestCloseFlowRemovesState(t *testing.T) {
	e := New(1, &fakeForwarder{})
	flowID := e.AllocateFlow(1, 2, pdu.QoS{})
	e.CloseFlow(flowID)

	_, err := e.Drain(flowID)
	assert.ErrorIs(t, err, ErrFlowNotFound)
}
