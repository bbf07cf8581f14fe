// Package efcp implements the flow endpoint: per-flow sequencing and
// delivery between the RMT and application-facing consumers. No
// acknowledgement or retransmission is attempted; reliability is a
// design point left to higher layers.
package efcp

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rinacore/ipcpd/internal/rina/pdu"
)

// ErrFlowNotFound is returned by SendData for an unallocated flow_id.
var ErrFlowNotFound = errors.New("efcp: flow not found")

// Forwarder hands an outbound PDU to the RMT for resolution and
// transmission (Forward{pdu}/SendOut{pdu} in spec vocabulary).
type Forwarder interface {
	HandleOutbound(ctx context.Context, p *pdu.PDU)
}

// flow holds per-flow endpoint state: the next sequence number to
// assign on send, and the queue of received payloads.
type flow struct {
	local, remote uint64
	qos           pdu.QoS
	nextSeq       uint64
	mu            sync.Mutex
	received      [][]byte
}

// EFCP is the flow endpoint. Flow IDs are assigned sequentially at
// allocation time.
type EFCP struct {
	forwarder Forwarder
	localAddr uint64

	nextFlowID uint64

	mu    sync.RWMutex
	flows map[uint64]*flow
}

// New returns an EFCP for localAddr, forwarding outbound PDUs via fwd.
func New(localAddr uint64, fwd Forwarder) *EFCP {
	return &EFCP{forwarder: fwd, localAddr: localAddr, flows: make(map[uint64]*flow)}
}

// AllocateFlow creates flow state for a new flow between local and
// remote with the given QoS, returning the assigned flow_id.
func (e *EFCP) AllocateFlow(local, remote uint64, qos pdu.QoS) uint64 {
	flowID := atomic.AddUint64(&e.nextFlowID, 1)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.flows[flowID] = &flow{local: local, remote: remote, qos: qos}
	return flowID
}

// SendData constructs a Data PDU carrying payload with the flow's next
// sequence number, and hands it to the Forwarder. Fails with
// ErrFlowNotFound if flowID is unallocated.
func (e *EFCP) SendData(ctx context.Context, flowID uint64, payload []byte) error {
	e.mu.RLock()
	f, ok := e.flows[flowID]
	e.mu.RUnlock()
	if !ok {
		return ErrFlowNotFound
	}

	f.mu.Lock()
	f.nextSeq++
	seq := f.nextSeq
	f.mu.Unlock()

	p := &pdu.PDU{
		SrcAddr: e.localAddr,
		DstAddr: f.remote,
		Type:    pdu.TypeData,
		FlowID:  flowID,
		SeqNo:   seq,
		QoS:     f.qos,
		Payload: payload,
	}
	e.forwarder.HandleOutbound(ctx, p)
	return nil
}

// ReceivePDU appends a Data PDU's payload to its flow's receive queue,
// indexed by flow_id from the PDU header. A PDU for an unknown flow_id
// is dropped silently (no flow context to deliver into).
func (e *EFCP) ReceivePDU(p *pdu.PDU) {
	e.mu.RLock()
	f, ok := e.flows[p.FlowID]
	e.mu.RUnlock()
	if !ok {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, p.Payload)
}

// Drain returns and clears the accumulated received payloads for flowID.
func (e *EFCP) Drain(flowID uint64) ([][]byte, error) {
	e.mu.RLock()
	f, ok := e.flows[flowID]
	e.mu.RUnlock()
	if !ok {
		return nil, ErrFlowNotFound
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	payloads := f.received
	f.received = nil
	return payloads, nil
}

// CloseFlow removes a flow's tracked state.
func (e *EFCP) CloseFlow(flowID uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.flows, flowID)
}
