// Package metrics exposes Prometheus counters and gauges for the RMT,
// FAL and enrolment components. A *Metrics value is safe to use when
// nil: every recorder method is a no-op on a nil receiver, so a caller
// that never calls InitRegistry pays zero overhead.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry *prometheus.Registry

// InitRegistry creates the process-wide Prometheus registry. Call once
// at startup before constructing any Metrics; components that never
// receive a *Metrics instance (nil) remain unaffected.
func InitRegistry() *prometheus.Registry {
	registry = prometheus.NewRegistry()
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return registry != nil
}

// Registry returns the process-wide registry, or nil if metrics are
// disabled.
func Registry() *prometheus.Registry {
	return registry
}

// Metrics holds every counter/gauge this IPCP records. Construct with
// New; pass the nil *Metrics (the zero value of the pointer, not a
// zero-value struct) to components when metrics are disabled.
type Metrics struct {
	rmtForwarded   *prometheus.CounterVec
	rmtDelivered   *prometheus.CounterVec
	rmtDropped     *prometheus.CounterVec
	falFlowsActive prometheus.Gauge
	falSendErrors  *prometheus.CounterVec
	enrolAttempts  *prometheus.CounterVec
	enrolState     prometheus.Gauge
	ribObjects     prometheus.Gauge
	ribVersion     prometheus.Gauge
}

// New returns a *Metrics registered against the process-wide registry,
// or nil if metrics are not enabled.
func New() *Metrics {
	if !IsEnabled() {
		return nil
	}
	reg := registry
	return &Metrics{
		rmtForwarded: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ipcpd_rmt_forwarded_pdus_total",
			Help: "Total PDUs forwarded by the RMT toward a next hop.",
		}, []string{"dst_addr"}),
		rmtDelivered: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ipcpd_rmt_delivered_pdus_total",
			Help: "Total PDUs delivered locally by the RMT.",
		}, []string{"pdu_type"}),
		rmtDropped: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ipcpd_rmt_dropped_pdus_total",
			Help: "Total PDUs dropped by the RMT (no route, malformed, ttl).",
		}, []string{"reason"}),
		falFlowsActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ipcpd_fal_active_flows",
			Help: "Current count of active N-1 flows held by the FAL.",
		}),
		falSendErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ipcpd_fal_send_errors_total",
			Help: "Total Shim send errors observed by the FAL, by remote address.",
		}, []string{"remote_addr"}),
		enrolAttempts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "ipcpd_enrolment_attempts_total",
			Help: "Total member-side enrolment attempts, by outcome.",
		}, []string{"outcome"}),
		enrolState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ipcpd_enrolment_state",
			Help: "Current member-side enrolment phase, as its State ordinal.",
		}),
		ribObjects: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ipcpd_rib_objects",
			Help: "Current count of objects held in the RIB.",
		}),
		ribVersion: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ipcpd_rib_version",
			Help: "Current RIB version counter.",
		}),
	}
}

func (m *Metrics) RecordForwarded(dstAddr string) {
	if m == nil {
		return
	}
	m.rmtForwarded.WithLabelValues(dstAddr).Inc()
}

func (m *Metrics) RecordDelivered(pduType string) {
	if m == nil {
		return
	}
	m.rmtDelivered.WithLabelValues(pduType).Inc()
}

func (m *Metrics) RecordDropped(reason string) {
	if m == nil {
		return
	}
	m.rmtDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) SetActiveFlows(n int) {
	if m == nil {
		return
	}
	m.falFlowsActive.Set(float64(n))
}

func (m *Metrics) RecordSendError(remoteAddr string) {
	if m == nil {
		return
	}
	m.falSendErrors.WithLabelValues(remoteAddr).Inc()
}

func (m *Metrics) RecordEnrolAttempt(outcome string) {
	if m == nil {
		return
	}
	m.enrolAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetEnrolState(state int) {
	if m == nil {
		return
	}
	m.enrolState.Set(float64(state))
}

func (m *Metrics) SetRIBStats(objects int, version uint64) {
	if m == nil {
		return
	}
	m.ribObjects.Set(float64(objects))
	m.ribVersion.Set(float64(version))
}
