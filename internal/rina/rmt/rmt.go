// Package rmt implements the Relaying and Multiplexing Task: inbound
// demultiplexing of received PDUs and outbound forwarding toward their
// next hop.
package rmt

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rinacore/ipcpd/internal/logger"
	"github.com/rinacore/ipcpd/internal/rina/fal"
	"github.com/rinacore/ipcpd/internal/rina/pdu"
	"github.com/rinacore/ipcpd/internal/rina/routing"
	"github.com/rinacore/ipcpd/internal/rina/shim"
	"github.com/rinacore/ipcpd/internal/telemetry"
)

// ManagementHandler processes a Management PDU addressed to the local
// IPCP (enrolment and CDAP traffic).
type ManagementHandler func(ctx context.Context, p *pdu.PDU, sourceEndpoint string)

// DataHandler delivers a Data PDU's payload to the EFCP flow endpoint
// identified by p.FlowID.
type DataHandler func(ctx context.Context, p *pdu.PDU)

// RoutingStrategy is the policy point for next-hop computation. The
// default strategy consults a RouteResolver; alternative strategies (for
// example shortest-path over a learned topology) MAY be supplied at
// construction.
type RoutingStrategy interface {
	ComputeNextHop(dst uint64) (uint64, error)
}

// resolverStrategy adapts a *routing.Resolver to RoutingStrategy.
type resolverStrategy struct{ resolver *routing.Resolver }

func (s resolverStrategy) ComputeNextHop(dst uint64) (uint64, error) {
	route, err := s.resolver.Resolve(dst)
	if err != nil {
		return 0, err
	}
	return route.NextHopAddr, nil
}

// DefaultRoutingStrategy returns a RoutingStrategy backed by resolver.
func DefaultRoutingStrategy(resolver *routing.Resolver) RoutingStrategy {
	return resolverStrategy{resolver: resolver}
}

// RMT demultiplexes inbound PDUs and forwards outbound ones.
type RMT struct {
	localAddr uint64
	shim      shim.Shim
	fal       *fal.Allocator
	strategy  RoutingStrategy

	management ManagementHandler
	data       DataHandler

	// droppedNoRoute/droppedSendErr are mutated from forward(), reachable
	// both from Run()'s single receive-loop goroutine and from any
	// caller goroutine invoking HandleOutbound; accessed via sync/atomic.
	droppedNoRoute uint64
	droppedSendErr uint64
}

// New returns an RMT for localAddr, forwarding via fal and routed by
// strategy. management and data are invoked for locally destined PDUs.
func New(localAddr uint64, sh shim.Shim, allocator *fal.Allocator, strategy RoutingStrategy, management ManagementHandler, data DataHandler) *RMT {
	return &RMT{
		localAddr:  localAddr,
		shim:       sh,
		fal:        allocator,
		strategy:   strategy,
		management: management,
		data:       data,
	}
}

// HandleInbound processes one PDU read from the Shim: auto-registers the
// sender with the FAL, then dispatches locally or forwards.
func (m *RMT) HandleInbound(ctx context.Context, r shim.Received) {
	p := r.PDU
	ctx, span := telemetry.StartRmtSpan(ctx, telemetry.SpanRmtInbound, p.SrcAddr, p.DstAddr)
	defer span.End()
	m.fal.RecordReceivedFrom(p.SrcAddr, r.Source)

	if p.DstAddr == m.localAddr {
		switch p.Type {
		case pdu.TypeManagement:
			if m.management != nil {
				m.management(ctx, p, r.Source)
			}
		case pdu.TypeData:
			if m.data != nil {
				m.data(ctx, p)
			}
		default:
			logger.Debug("rmt: dropping local pdu of unhandled type", logger.PduType(p.Type.String()))
		}
		return
	}

	m.forward(ctx, p)
}

// HandleOutbound forwards a PDU produced locally by EFCP (Forward{pdu}
// or SendOut{pdu} in spec vocabulary) using the same resolution as
// inbound forwarding.
func (m *RMT) HandleOutbound(ctx context.Context, p *pdu.PDU) {
	ctx, span := telemetry.StartRmtSpan(ctx, telemetry.SpanRmtOutbound, p.SrcAddr, p.DstAddr)
	defer span.End()
	m.forward(ctx, p)
}

func (m *RMT) forward(ctx context.Context, p *pdu.PDU) {
	_, span := telemetry.StartRmtSpan(ctx, telemetry.SpanRmtForward, p.SrcAddr, p.DstAddr)
	defer span.End()

	nextHop, err := m.strategy.ComputeNextHop(p.DstAddr)
	if err != nil {
		if errors.Is(err, routing.ErrRouteNotFound) {
			atomic.AddUint64(&m.droppedNoRoute, 1)
			logger.Debug("rmt: no route, dropping pdu", logger.RemoteAddr(p.DstAddr))
			return
		}
		logger.Debug("rmt: route resolution error, dropping pdu", logger.Err(err))
		return
	}

	if err := m.fal.SendPDU(ctx, nextHop, p); err != nil {
		atomic.AddUint64(&m.droppedSendErr, 1)
		logger.Debug("rmt: forward send failed, dropping pdu", logger.Err(err), logger.RemoteAddr(nextHop))
	}
}

// Stats reports forwarding drop counters.
type Stats struct {
	DroppedNoRoute uint64
	DroppedSendErr uint64
}

// Stats returns the RMT's forwarding drop counters.
func (m *RMT) Stats() Stats {
	return Stats{
		DroppedNoRoute: atomic.LoadUint64(&m.droppedNoRoute),
		DroppedSendErr: atomic.LoadUint64(&m.droppedSendErr),
	}
}

// Run reads from the Shim in a loop, dispatching each PDU to
// HandleInbound, until ctx is cancelled or the Shim closes.
func (m *RMT) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r, err := m.shim.ReceivePDU(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if errors.Is(err, shim.ErrClosed) {
				return err
			}
			logger.Debug("rmt: receive error", logger.Err(err))
			continue
		}
		m.HandleInbound(ctx, r)
	}
}
