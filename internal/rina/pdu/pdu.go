// Package pdu defines the Protocol Data Unit exchanged between IPCPs and
// its stable binary encoding, built on internal/rina/wire.
package pdu

import (
	"fmt"

	"github.com/rinacore/ipcpd/internal/rina/wire"
)

// Type identifies the purpose of a PDU.
type Type uint8

const (
	// TypeData carries application payload for an EFCP flow.
	TypeData Type = iota
	// TypeAck acknowledges receipt (reserved; EFCP does not require it).
	TypeAck
	// TypeControl carries RMT-internal control information.
	TypeControl
	// TypeManagement carries a CDAP message (enrolment, sync, RIB ops).
	TypeManagement
)

// String renders the Type for logging.
func (t Type) String() string {
	switch t {
	case TypeData:
		return "Data"
	case TypeAck:
		return "Ack"
	case TypeControl:
		return "Control"
	case TypeManagement:
		return "Management"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// QoS carries the drop-vs-priority class of a PDU. The core does not
// enforce QoS; it is propagated for future scheduling strategies.
type QoS struct {
	Class    uint8
	Priority uint8
}

// PDU is the unit that crosses the Shim. It is immutable after
// construction: the RMT never mutates a PDU in transit.
type PDU struct {
	SrcAddr uint64
	DstAddr uint64
	Type    Type
	FlowID  uint64
	SeqNo   uint64
	QoS     QoS
	Payload []byte
}

// MaxPayloadSize bounds a single PDU's payload so a datagram never exceeds
// a conservative UDP/IP MTU. Datagrams over this bound are rejected as
// malformed by the Shim's receive loop.
const MaxPayloadSize = 60000

// ErrPayloadTooLarge is returned by Encode when Payload exceeds MaxPayloadSize.
var ErrPayloadTooLarge = fmt.Errorf("pdu: payload exceeds maximum size")

// Encode serialises a PDU with the stable wire encoding used consistently
// for PDUs, CDAP payloads, enrolment objects and RIB snapshots.
func (p *PDU) Encode() ([]byte, error) {
	if len(p.Payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	w := wire.NewWriter()
	w.WriteVersion()
	w.WriteUint64(p.SrcAddr)
	w.WriteUint64(p.DstAddr)
	w.WriteUint8(uint8(p.Type))
	w.WriteUint64(p.FlowID)
	w.WriteUint64(p.SeqNo)
	w.WriteUint8(p.QoS.Class)
	w.WriteUint8(p.QoS.Priority)
	w.WriteBytes(p.Payload)
	return w.Bytes(), nil
}

// Decode parses a PDU from bytes produced by Encode. A decoding failure
// means the datagram is malformed and must be dropped with a counter
// increment by the caller.
func Decode(data []byte) (*PDU, error) {
	if len(data) > MaxPayloadSize+64 {
		return nil, ErrPayloadTooLarge
	}
	r := wire.NewReader(data)
	if err := r.ReadVersion(); err != nil {
		return nil, fmt.Errorf("pdu: decode version: %w", err)
	}
	src, err := r.ReadUint64()
	if err != nil {
		return nil, fmt.Errorf("pdu: decode src_addr: %w", err)
	}
	dst, err := r.ReadUint64()
	if err != nil {
		return nil, fmt.Errorf("pdu: decode dst_addr: %w", err)
	}
	typ, err := r.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("pdu: decode pdu_type: %w", err)
	}
	flowID, err := r.ReadUint64()
	if err != nil {
		return nil, fmt.Errorf("pdu: decode flow_id: %w", err)
	}
	seqNo, err := r.ReadUint64()
	if err != nil {
		return nil, fmt.Errorf("pdu: decode seq_no: %w", err)
	}
	class, err := r.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("pdu: decode qos.class: %w", err)
	}
	priority, err := r.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("pdu: decode qos.priority: %w", err)
	}
	payload, err := r.ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("pdu: decode payload: %w", err)
	}
	if len(payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	return &PDU{
		SrcAddr: src,
		DstAddr: dst,
		Type:    Type(typ),
		FlowID:  flowID,
		SeqNo:   seqNo,
		QoS:     QoS{Class: class, Priority: priority},
		Payload: payload,
	}, nil
}
