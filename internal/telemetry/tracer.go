package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for IPCP component operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Component / DIF attributes
	// ========================================================================
	AttrComponent = "rina.component" // shim, rib, rmt, fal, efcp, cdap, enrolment
	AttrDIFName   = "rina.dif_name"
	AttrOperation = "rina.operation"

	// ========================================================================
	// RINA addressing attributes
	// ========================================================================
	AttrLocalAddr  = "rina.local_addr"
	AttrRemoteAddr = "rina.remote_addr"
	AttrEndpoint   = "rina.endpoint"
	AttrFlowID     = "rina.flow_id"
	AttrSeqNo      = "rina.seq_no"
	AttrPduType    = "rina.pdu_type"

	// ========================================================================
	// RIB attributes
	// ========================================================================
	AttrRibName    = "rib.name"
	AttrRibClass   = "rib.class"
	AttrRibVersion = "rib.version"

	// ========================================================================
	// CDAP / enrolment attributes
	// ========================================================================
	AttrInvokeID = "cdap.invoke_id"
	AttrOpCode   = "cdap.op_code"
	AttrPhase    = "enrolment.phase"
	AttrAttempt  = "enrolment.attempt"

	// ========================================================================
	// Status attributes
	// ========================================================================
	AttrStatus    = "rina.status"
	AttrStatusMsg = "rina.status_msg"
)

// Span names for operations.
// Format: <component>.<operation>
const (
	SpanShimSend    = "shim.send"
	SpanShimReceive = "shim.receive"

	SpanRibCreate  = "rib.create"
	SpanRibUpdate  = "rib.update"
	SpanRibDelete  = "rib.delete"
	SpanRibSync    = "rib.sync"
	SpanRibApply   = "rib.apply_changes"
	SpanRibSnapRT  = "rib.snapshot_roundtrip"
	SpanRibPersist = "rib.persist_snapshot"
	SpanRibLoad    = "rib.load_snapshot"

	SpanRouteResolve = "routing.resolve_next_hop"
	SpanRouteAddDyn  = "routing.add_dynamic_route"
	SpanRouteRemove  = "routing.remove_dynamic_route"

	SpanFalGetOrCreate = "fal.get_or_create_flow"
	SpanFalSend        = "fal.send_pdu"
	SpanFalCleanup     = "fal.cleanup_stale"

	SpanRmtInbound  = "rmt.inbound"
	SpanRmtForward  = "rmt.forward"
	SpanRmtOutbound = "rmt.outbound"

	SpanEfcpAllocate = "efcp.allocate_flow"
	SpanEfcpSend     = "efcp.send_data"
	SpanEfcpReceive  = "efcp.receive_pdu"

	SpanCdapDispatch = "cdap.dispatch"

	SpanEnrolAttempt  = "enrolment.attempt"
	SpanEnrolBootSide = "enrolment.bootstrap_handler"
	SpanEnrolMonitor  = "enrolment.connection_monitor"
)

// Component returns an attribute for the emitting component name.
func Component(name string) attribute.KeyValue {
	return attribute.String(AttrComponent, name)
}

// DIFName returns an attribute for the DIF name.
func DIFName(name string) attribute.KeyValue {
	return attribute.String(AttrDIFName, name)
}

// Operation returns an attribute for a sub-operation name.
func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// LocalAddr returns an attribute for a local RINA address.
func LocalAddr(addr uint64) attribute.KeyValue {
	return attribute.Int64(AttrLocalAddr, int64(addr))
}

// RemoteAddr returns an attribute for a remote RINA address.
func RemoteAddr(addr uint64) attribute.KeyValue {
	return attribute.Int64(AttrRemoteAddr, int64(addr))
}

// Endpoint returns an attribute for an underlay endpoint.
func Endpoint(ep string) attribute.KeyValue {
	return attribute.String(AttrEndpoint, ep)
}

// FlowID returns an attribute for an EFCP flow identifier.
func FlowID(id uint64) attribute.KeyValue {
	return attribute.Int64(AttrFlowID, int64(id))
}

// SeqNo returns an attribute for a PDU sequence number.
func SeqNo(n uint64) attribute.KeyValue {
	return attribute.Int64(AttrSeqNo, int64(n))
}

// PduType returns an attribute for a PDU type name.
func PduType(t string) attribute.KeyValue {
	return attribute.String(AttrPduType, t)
}

// RibName returns an attribute for a RIB object name.
func RibName(name string) attribute.KeyValue {
	return attribute.String(AttrRibName, name)
}

// RibClass returns an attribute for a RIB object class.
func RibClass(class string) attribute.KeyValue {
	return attribute.String(AttrRibClass, class)
}

// RibVersion returns an attribute for a RIB version.
func RibVersion(v uint64) attribute.KeyValue {
	return attribute.Int64(AttrRibVersion, int64(v))
}

// InvokeID returns an attribute for a CDAP invoke ID.
func InvokeID(id uint64) attribute.KeyValue {
	return attribute.Int64(AttrInvokeID, int64(id))
}

// OpCode returns an attribute for a CDAP operation code.
func OpCode(code string) attribute.KeyValue {
	return attribute.String(AttrOpCode, code)
}

// Phase returns an attribute for an enrolment phase name.
func Phase(phase string) attribute.KeyValue {
	return attribute.String(AttrPhase, phase)
}

// Attempt returns an attribute for a retry attempt number.
func Attempt(n int) attribute.KeyValue {
	return attribute.Int(AttrAttempt, n)
}

// Status returns an attribute for an operation status code.
func Status(status string) attribute.KeyValue {
	return attribute.String(AttrStatus, status)
}

// StatusMsg returns an attribute for a human-readable status message.
func StatusMsg(msg string) attribute.KeyValue {
	return attribute.String(AttrStatusMsg, msg)
}

// StartRmtSpan starts a span for an RMT inbound/outbound/forward operation.
func StartRmtSpan(ctx context.Context, spanName string, srcAddr, dstAddr uint64, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{
		LocalAddr(srcAddr),
		RemoteAddr(dstAddr),
	}, attrs...)
	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartRibSpan starts a span for a RIB operation on the given object name.
func StartRibSpan(ctx context.Context, spanName, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{RibName(name)}, attrs...)
	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartEnrolmentSpan starts a span for an enrolment phase-machine operation.
func StartEnrolmentSpan(ctx context.Context, spanName string, bootstrapAddr uint64, attempt int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{
		RemoteAddr(bootstrapAddr),
		Attempt(attempt),
	}, attrs...)
	return StartSpan(ctx, spanName, trace.WithAttributes(allAttrs...))
}

// StartComponentSpan starts a generic span for a named component/operation.
func StartComponentSpan(ctx context.Context, component, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{
		Component(component),
		Operation(operation),
	}, attrs...)
	return StartSpan(ctx, component+"."+operation, trace.WithAttributes(allAttrs...))
}
