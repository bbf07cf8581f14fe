package cdap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageEncodeDecodeRoundTrip(t *testing.T) {
	req := NewRequest(OpCreate, "enrolment/request", "EnrolmentRequest", []byte("payload"), 42)
	encoded := req.Encode()

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, OpCreate, decoded.OpCode)
	assert.Equal(t, "enrolment/request", decoded.ObjName)
	assert.Equal(t, "EnrolmentRequest", decoded.ObjClass)
	assert.Equal(t, []byte("payload"), decoded.ObjValue)
	assert.Equal(t, uint64(42), decoded.InvokeID)
	assert.False(t, decoded.IsReply)
}

func TestReplyCorrelatesInvokeID(t *testing.T) {
	reply := NewReply(OpCreate, "enrolment/request", []byte("resp"), 42, ResultOK, "")
	encoded := reply.Encode()

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.True(t, decoded.IsReply)
	assert.Equal(t, uint64(42), decoded.InvokeID)
	assert.Equal(t, ResultOK, decoded.Result)
}

func TestDecodeBadFormat(t *testing.T) {
	_, err := Decode([]byte{0x01})
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestOpCodeString(t *testing.T) {
	assert.Equal(t, "Create", OpCreate.String())
	assert.Equal(t, "Stop", OpStop.String())
	assert.Contains(t, OpCode(99).String(), "Unknown")
}

func TestDispatcherUnknownObject(t *testing.T) {
	d := NewDispatcher()
	req := NewRequest(OpRead, "no/such/object", "", nil, 1)

	replyBytes := d.Dispatch(req.Encode())
	reply, err := Decode(replyBytes)
	require.NoError(t, err)
	assert.Equal(t, ResultUnknownOp, reply.Result)
	assert.Equal(t, uint64(1), reply.InvokeID)
}

func TestDispatcherStartStopNotImplemented(t *testing.T) {
	d := NewDispatcher()
	req := NewRequest(OpStart, "anything", "", nil, 5)

	replyBytes := d.Dispatch(req.Encode())
	reply, err := Decode(replyBytes)
	require.NoError(t, err)
	assert.Equal(t, ResultNotExpected, reply.Result)
}

func TestDispatcherRoutesRegisteredHandler(t *testing.T) {
	d := NewDispatcher()
	d.Register("enrolment/request", func(req Message) Message {
		return NewReply(req.OpCode, req.ObjName, []byte("ok"), req.InvokeID, ResultOK, "")
	})

	req := NewRequest(OpCreate, "enrolment/request", "", []byte("in"), 9)
	replyBytes := d.Dispatch(req.Encode())

	reply, err := Decode(replyBytes)
	require.NoError(t, err)
	assert.Equal(t, ResultOK, reply.Result)
	assert.Equal(t, []byte("ok"), reply.ObjValue)
}

func TestDispatcherMalformedPayloadReturnsNil(t *testing.T) {
	d := NewDispatcher()
	assert.Nil(t, d.Dispatch([]byte{0xff}))
}
