// Package metrics exposes prometheus collectors for segment executions and
// cohort exports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Export outcomes used as the "outcome" label.
const (
	OutcomeDelivered = "delivered"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Recorder owns the cohortkeeper collectors. A nil *Recorder is valid and
// records nothing, so callers that run without metrics need no branches.
type Recorder struct {
	registry prometheus.Gatherer

	executions    *prometheus.CounterVec
	rowFailures   prometheus.Counter
	executionTime prometheus.Histogram
	matchedUsers  *prometheus.GaugeVec
	cohortExports *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them on reg.
// A nil reg uses a fresh private registry.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := &Recorder{
		registry: reg,
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cohortkeeper_segment_executions_total",
			Help: "Total segment executions by segment id (ad hoc rules use \"adhoc\")",
		}, []string{"segment"}),
		rowFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cohortkeeper_row_evaluation_failures_total",
			Help: "Rows whose rule evaluation failed and were treated as non-matching",
		}),
		executionTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cohortkeeper_segment_execution_seconds",
			Help:    "Wall time of one segment execution",
			Buckets: prometheus.DefBuckets,
		}),
		matchedUsers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cohortkeeper_matched_users",
			Help: "Users matched by the latest execution of each segment",
		}, []string{"segment"}),
		cohortExports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cohortkeeper_cohort_exports_total",
			Help: "Cohort export attempts by outcome",
		}, []string{"outcome"}),
	}

	reg.MustRegister(r.executions, r.rowFailures, r.executionTime, r.matchedUsers, r.cohortExports)
	return r
}

// ObserveExecution records one finished execution of segment.
func (r *Recorder) ObserveExecution(segment string, users int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.executions.WithLabelValues(segment).Inc()
	r.executionTime.Observe(elapsed.Seconds())
	r.matchedUsers.WithLabelValues(segment).Set(float64(users))
}

// RowFailed counts one swallowed row evaluation failure.
func (r *Recorder) RowFailed() {
	if r == nil {
		return
	}
	r.rowFailures.Inc()
}

// CohortExported counts one export attempt with the given outcome.
func (r *Recorder) CohortExported(outcome string) {
	if r == nil {
		return
	}
	r.cohortExports.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
