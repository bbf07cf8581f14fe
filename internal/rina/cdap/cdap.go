// Package cdap implements the Common Distributed Application Protocol: the
// operation-coded control messages that wrap RIB objects and are carried
// as the payload of Management PDUs.
package cdap

import (
	"errors"
	"fmt"

	"github.com/rinacore/ipcpd/internal/rina/wire"
)

// OpCode is the CDAP operation code.
type OpCode uint8

const (
	// OpCreate creates a RIB object (e.g. an enrolment request).
	OpCreate OpCode = iota
	// OpRead queries a RIB object (e.g. a sync request).
	OpRead
	// OpWrite updates a RIB object.
	OpWrite
	// OpDelete removes a RIB object.
	OpDelete
	// OpStart is recognised on the wire but not implemented by any handler.
	OpStart
	// OpStop is recognised on the wire but not implemented by any handler.
	OpStop
)

// String renders the OpCode for logging.
func (o OpCode) String() string {
	switch o {
	case OpCreate:
		return "Create"
	case OpRead:
		return "Read"
	case OpWrite:
		return "Write"
	case OpDelete:
		return "Delete"
	case OpStart:
		return "Start"
	case OpStop:
		return "Stop"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(o))
	}
}

// Result codes carried in a CDAP reply.
const (
	ResultOK          int32 = 0
	ResultUnknownOp   int32 = 1
	ResultBadFormat   int32 = 2
	ResultAppError    int32 = 3
	ResultNotExpected int32 = 4
)

// ErrInvalidOp names an op_code this build does not recognise at all. Decode
// does not return it: a message with an unrecognised op_code decodes
// normally, and the Dispatcher answers it with a ResultUnknownOp reply.
var ErrInvalidOp = errors.New("cdap: invalid op_code")

// ErrBadFormat is returned when a CDAP message fails to decode.
var ErrBadFormat = errors.New("cdap: bad format")

// Message is the CDAP message shape from spec.md §4.7: an operation code,
// a target object name/class, an opaque object value, an invoke ID
// correlating requests and replies, and a result (replies only).
type Message struct {
	OpCode       OpCode
	ObjName      string
	ObjClass     string
	ObjValue     []byte
	InvokeID     uint64
	IsReply      bool
	Result       int32
	ResultReason string
}

// NewRequest builds a request-side CDAP message.
func NewRequest(op OpCode, objName, objClass string, objValue []byte, invokeID uint64) Message {
	return Message{
		OpCode:   op,
		ObjName:  objName,
		ObjClass: objClass,
		ObjValue: objValue,
		InvokeID: invokeID,
	}
}

// NewReply builds a reply-side CDAP message correlated to a request by
// InvokeID.
func NewReply(op OpCode, objName string, objValue []byte, invokeID uint64, result int32, reason string) Message {
	return Message{
		OpCode:       op,
		ObjName:      objName,
		ObjValue:     objValue,
		InvokeID:     invokeID,
		IsReply:      true,
		Result:       result,
		ResultReason: reason,
	}
}

// Encode serialises a Message with the shared wire encoding.
func (m Message) Encode() []byte {
	w := wire.NewWriter()
	w.WriteVersion()
	w.WriteUint8(uint8(m.OpCode))
	w.WriteString(m.ObjName)
	w.WriteString(m.ObjClass)
	w.WriteBytes(m.ObjValue)
	w.WriteUint64(m.InvokeID)
	w.WriteBool(m.IsReply)
	w.WriteInt64(int64(m.Result))
	w.WriteString(m.ResultReason)
	return w.Bytes()
}

// Decode parses a Message from bytes produced by Encode.
func Decode(data []byte) (Message, error) {
	r := wire.NewReader(data)
	if err := r.ReadVersion(); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	op, err := r.ReadUint8()
	if err != nil {
		return Message{}, fmt.Errorf("%w: op_code: %v", ErrBadFormat, err)
	}
	objName, err := r.ReadString()
	if err != nil {
		return Message{}, fmt.Errorf("%w: obj_name: %v", ErrBadFormat, err)
	}
	objClass, err := r.ReadString()
	if err != nil {
		return Message{}, fmt.Errorf("%w: obj_class: %v", ErrBadFormat, err)
	}
	objValue, err := r.ReadBytes()
	if err != nil {
		return Message{}, fmt.Errorf("%w: obj_value: %v", ErrBadFormat, err)
	}
	invokeID, err := r.ReadUint64()
	if err != nil {
		return Message{}, fmt.Errorf("%w: invoke_id: %v", ErrBadFormat, err)
	}
	isReply, err := r.ReadBool()
	if err != nil {
		return Message{}, fmt.Errorf("%w: is_reply: %v", ErrBadFormat, err)
	}
	result, err := r.ReadInt64()
	if err != nil {
		return Message{}, fmt.Errorf("%w: result: %v", ErrBadFormat, err)
	}
	reason, err := r.ReadString()
	if err != nil {
		return Message{}, fmt.Errorf("%w: result_reason: %v", ErrBadFormat, err)
	}
	return Message{
		OpCode:       OpCode(op),
		ObjName:      objName,
		ObjClass:     objClass,
		ObjValue:     objValue,
		InvokeID:     invokeID,
		IsReply:      isReply,
		Result:       int32(result),
		ResultReason: reason,
	}, nil
}
