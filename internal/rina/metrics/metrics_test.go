package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics

	m.RecordForwarded("1001")
	m.RecordDelivered("data")
	m.RecordDropped("no_route")
	m.SetActiveFlows(3)
	m.RecordSendError("1001")
	m.RecordEnrolAttempt("success")
	m.SetEnrolState(4)
	m.SetRIBStats(10, 7)
}

func TestNewReturnsNilWhenDisabled(t *testing.T) {
	registry = nil
	if m := New(); m != nil {
		t.Fatalf("expected nil Metrics when registry not initialized, got %v", m)
	}
}

func TestRecordForwardedIncrementsCounter(t *testing.T) {
	InitRegistry()
	m := New()

	m.RecordForwarded("1001")
	m.RecordForwarded("1001")
	m.RecordForwarded("1002")

	if got := counterValue(t, m.rmtForwarded, "1001"); got != 2 {
		t.Errorf("rmtForwarded{1001} = %f, want 2", got)
	}
	if got := counterValue(t, m.rmtForwarded, "1002"); got != 1 {
		t.Errorf("rmtForwarded{1002} = %f, want 1", got)
	}
}

func TestSetActiveFlowsGauge(t *testing.T) {
	InitRegistry()
	m := New()

	m.SetActiveFlows(5)

	var metric io_prometheus_client.Metric
	if err := m.falFlowsActive.Write(&metric); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	if metric.GetGauge().GetValue() != 5 {
		t.Errorf("falFlowsActive = %f, want 5", metric.GetGauge().GetValue())
	}
}

func counterValue(t *testing.T, cv *prometheus.CounterVec, label string) float64 {
	t.Helper()
	counter, err := cv.GetMetricWithLabelValues(label)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%q): %v", label, err)
	}
	var metric io_prometheus_client.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}
