package cdap

import "github.com/rinacore/ipcpd/internal/logger"

// Handler processes one decoded CDAP request message and returns the
// reply message to send back. A Handler never returns a nil reply for a
// request that deserves a correlated response.
type Handler func(req Message) Message

// Dispatcher routes decoded CDAP requests by object name to a registered
// Handler, the same shape as the teacher's procedure dispatch table.
type Dispatcher struct {
	handlers map[string]Handler
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register binds a Handler to an object name (e.g. "enrolment/request",
// "rib_sync").
func (d *Dispatcher) Register(objName string, h Handler) {
	d.handlers[objName] = h
}

// Dispatch decodes the Management PDU payload, looks up the handler for
// req.ObjName, and returns the encoded reply payload. Unknown object
// names and unimplemented op codes reply with a non-zero result instead
// of being dropped.
func (d *Dispatcher) Dispatch(payload []byte) []byte {
	req, err := Decode(payload)
	if err != nil {
		logger.Debug("cdap: decode failed", logger.Err(err))
		return nil
	}
	reply := d.DispatchMessage(req)
	return reply.Encode()
}

// DispatchMessage routes an already-decoded request to the handler
// registered for req.ObjName. Unknown object names and unimplemented op
// codes reply with a non-zero result instead of being dropped.
func (d *Dispatcher) DispatchMessage(req Message) Message {
	if req.OpCode == OpStart || req.OpCode == OpStop {
		return NewReply(req.OpCode, req.ObjName, nil, req.InvokeID, ResultNotExpected, "not implemented")
	}
	if req.OpCode > OpStop {
		return NewReply(req.OpCode, req.ObjName, nil, req.InvokeID, ResultUnknownOp, "unknown op")
	}

	h, ok := d.handlers[req.ObjName]
	if !ok {
		logger.Debug("cdap: unknown object", "obj_name", req.ObjName)
		return NewReply(req.OpCode, req.ObjName, nil, req.InvokeID, ResultUnknownOp, "unknown op")
	}

	return h(req)
}
