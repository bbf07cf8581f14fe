package pdu

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []*PDU{
		{SrcAddr: 1001, DstAddr: 2000, Type: TypeData, FlowID: 1, SeqNo: 5, QoS: QoS{Class: 1, Priority: 2}, Payload: []byte("hello")},
		{SrcAddr: 0, DstAddr: 1001, Type: TypeManagement, Payload: nil},
		{SrcAddr: 1001, DstAddr: 1001, Type: TypeControl, Payload: []byte{}},
	}

	for _, p := range cases {
		encoded, err := p.Encode()
		require.NoError(t, err)

		decoded, err := Decode(encoded)
		require.NoError(t, err)

		assert.Equal(t, p.SrcAddr, decoded.SrcAddr)
		assert.Equal(t, p.DstAddr, decoded.DstAddr)
		assert.Equal(t, p.Type, decoded.Type)
		assert.Equal(t, p.FlowID, decoded.FlowID)
		assert.Equal(t, p.SeqNo, decoded.SeqNo)
		assert.Equal(t, p.QoS, decoded.QoS)
		if len(p.Payload) == 0 {
			assert.Empty(t, decoded.Payload)
		} else {
			assert.True(t, bytes.Equal(p.Payload, decoded.Payload))
		}
	}
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	p := &PDU{Payload: make([]byte, MaxPayloadSize+1)}
	_, err := p.Encode()
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	p := &PDU{SrcAddr: 1, DstAddr: 2}
	encoded, err := p.Encode()
	require.NoError(t, err)
	encoded[0] = 0xff

	_, err = Decode(encoded)
	assert.Error(t, err)
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "Data", TypeData.String())
	assert.Equal(t, "Management", TypeManagement.String())
	assert.Contains(t, Type(99).String(), "Unknown")
}
