package logger

import (
	"log/slog"
)

// Standard field keys for structured logging across the IPCP component graph.
// Use these keys consistently across all log statements for log aggregation
// and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Component & DIF
	// ========================================================================
	KeyComponent = "component" // shim, rib, rmt, fal, efcp, cdap, enrolment, ...
	KeyDIFName   = "dif_name"  // DIF this IPCP belongs to
	KeyOperation = "operation" // sub-operation within a component

	// ========================================================================
	// RINA Addressing
	// ========================================================================
	KeyLocalAddr  = "local_addr"  // local RINA address
	KeyRemoteAddr = "remote_addr" // remote RINA address
	KeyEndpoint   = "endpoint"    // underlay endpoint (host:port)
	KeyFlowID     = "flow_id"     // EFCP flow identifier
	KeySeqNo      = "seq_no"      // PDU sequence number
	KeyPduType    = "pdu_type"    // Data, Ack, Control, Management

	// ========================================================================
	// RIB
	// ========================================================================
	KeyRibName    = "rib_name"    // RIB object name
	KeyRibClass   = "rib_class"   // RIB object class
	KeyRibVersion = "rib_version" // RIB object/log version

	// ========================================================================
	// CDAP / Enrolment
	// ========================================================================
	KeyInvokeID  = "invoke_id"  // CDAP invoke ID
	KeyOpCode    = "op_code"    // CDAP operation code
	KeyPhase     = "phase"      // enrolment phase
	KeyAttempt   = "attempt"    // retry attempt number
	KeyMaxRetry  = "max_retry"  // maximum retry attempts
	KeyBackoffMs = "backoff_ms" // computed backoff duration

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeyErrorCode  = "error_code"  // numeric/symbolic error code
	KeyCount      = "count"       // generic count (entries, bytes, changes)
)

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Component returns a slog.Attr for the emitting component name
func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

// DIFName returns a slog.Attr for the DIF name
func DIFName(name string) slog.Attr {
	return slog.String(KeyDIFName, name)
}

// Operation returns a slog.Attr for a sub-operation name
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// LocalAddr returns a slog.Attr for a local RINA address
func LocalAddr(addr uint64) slog.Attr {
	return slog.Uint64(KeyLocalAddr, addr)
}

// RemoteAddr returns a slog.Attr for a remote RINA address
func RemoteAddr(addr uint64) slog.Attr {
	return slog.Uint64(KeyRemoteAddr, addr)
}

// Endpoint returns a slog.Attr for an underlay endpoint
func Endpoint(ep string) slog.Attr {
	return slog.String(KeyEndpoint, ep)
}

// FlowID returns a slog.Attr for an EFCP flow identifier
func FlowID(id uint64) slog.Attr {
	return slog.Uint64(KeyFlowID, id)
}

// SeqNo returns a slog.Attr for a PDU sequence number
func SeqNo(n uint64) slog.Attr {
	return slog.Uint64(KeySeqNo, n)
}

// PduType returns a slog.Attr for a PDU type name
func PduType(t string) slog.Attr {
	return slog.String(KeyPduType, t)
}

// RibName returns a slog.Attr for a RIB object name
func RibName(name string) slog.Attr {
	return slog.String(KeyRibName, name)
}

// RibClass returns a slog.Attr for a RIB object class
func RibClass(class string) slog.Attr {
	return slog.String(KeyRibClass, class)
}

// RibVersion returns a slog.Attr for a RIB version
func RibVersion(v uint64) slog.Attr {
	return slog.Uint64(KeyRibVersion, v)
}

// InvokeID returns a slog.Attr for a CDAP invoke ID
func InvokeID(id uint64) slog.Attr {
	return slog.Uint64(KeyInvokeID, id)
}

// OpCode returns a slog.Attr for a CDAP operation code
func OpCode(code string) slog.Attr {
	return slog.String(KeyOpCode, code)
}

// Phase returns a slog.Attr for an enrolment phase name
func Phase(phase string) slog.Attr {
	return slog.String(KeyPhase, phase)
}

// Attempt returns a slog.Attr for a retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetry returns a slog.Attr for the maximum retry attempts
func MaxRetry(n int) slog.Attr {
	return slog.Int(KeyMaxRetry, n)
}

// BackoffMs returns a slog.Attr for a computed backoff duration
func BackoffMs(ms int64) slog.Attr {
	return slog.Int64(KeyBackoffMs, ms)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric/symbolic error code
func ErrorCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}

// Count returns a slog.Attr for a generic count
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}
