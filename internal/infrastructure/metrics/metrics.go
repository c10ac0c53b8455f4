package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	SyncRuns     *prometheus.CounterVec
	StepFailures *prometheus.CounterVec
	ExternalCall *prometheus.HistogramVec
	CopyRuns     *prometheus.CounterVec
}

// New registers collectors against the given registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SyncRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Synchronization runs by workflow and overall result.",
		}, []string{"workflow", "result"}),
		StepFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sync_step_failures_total",
			Help: "Failed workflow steps by step name.",
		}, []string{"step"}),
		ExternalCall: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "external_call_duration_seconds",
			Help:    "Duration of outbound calls to external platforms.",
			Buckets: prometheus.DefBuckets,
		}, []string{"platform", "operation"}),
		CopyRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "copy_generation_runs_total",
			Help: "Description generation runs by result.",
		}, []string{"result"}),
	}
}

// CommerceObserver returns a callback that records commerce platform call
// durations, in the shape the commerce client accepts.
func (m *Metrics) CommerceObserver() func(op string, d time.Duration) {
	return func(op string, d time.Duration) {
		m.ObserveCall("shopify", op, d)
	}
}

// ObserveCall records one outbound platform call.
func (m *Metrics) ObserveCall(platform, operation string, d time.Duration) {
	m.ExternalCall.WithLabelValues(platform, operation).Observe(d.Seconds())
}

// RecordSyncRun records a finished sync run.
func (m *Metrics) RecordSyncRun(workflow, result string) {
	m.SyncRuns.WithLabelValues(workflow, result).Inc()
}

// RecordStepFailure records a single failed step.
func (m *Metrics) RecordStepFailure(step string) {
	m.StepFailures.WithLabelValues(step).Inc()
}

// RecordCopyRun records a finished description generation run.
func (m *Metrics) RecordCopyRun(result string) {
	m.CopyRuns.WithLabelValues(result).Inc()
}
