// Package metrics provides Prometheus metrics for the addon and its debrid calls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "torren"

// Label constants for consistent labeling across metrics.
const (
	LabelService   = "service"   // realdebrid, torbox
	LabelResult    = "result"    // success, failure, short_circuit
	LabelOperation = "operation" // create, select_all, status, delete, unrestrict, probe
	LabelVariant   = "variant"   // check, resolve
	LabelVerdict   = "verdict"   // cached, not_cached, unknown, resolved
	LabelPhase     = "phase"     // primary, compensating
	LabelMode      = "mode"      // check, resolve, probe, p2p
)

// Result label values.
const (
	ResultSuccess      = "success"
	ResultFailure      = "failure"
	ResultShortCircuit = "short_circuit"
)

var (
	// ProbeRequestsTotal counts batch availability probes.
	ProbeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_requests_total",
			Help:      "Total batch availability probes",
		},
		[]string{LabelService, LabelResult},
	)

	// ProbeCachedHashesTotal counts hashes reported cached by probes.
	ProbeCachedHashesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_cached_hashes_total",
			Help:      "Total hashes reported cached by batch probes",
		},
		[]string{LabelService},
	)

	// WorkflowRunsTotal counts active resolution workflow invocations by outcome.
	WorkflowRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_runs_total",
			Help:      "Total active resolution workflow invocations",
		},
		[]string{LabelVariant, LabelVerdict},
	)

	// RemoteCallsTotal counts debrid API calls.
	RemoteCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "Total debrid API calls",
		},
		[]string{LabelOperation, LabelResult},
	)

	// ResourceDeletesTotal counts remote resource delete attempts.
	ResourceDeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_deletes_total",
			Help:      "Total remote resource delete attempts",
		},
		[]string{LabelPhase, LabelResult},
	)

	// OrphanRiskTotal counts resources that may have been left on the remote account.
	OrphanRiskTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_risk_total",
			Help:      "Total remote resources whose deletion failed",
		},
	)

	// LocatorMismatchTotal counts resolutions where the output link could not be paired with the chosen file.
	LocatorMismatchTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locator_mismatch_total",
			Help:      "Total resolutions that fell back to the first output link",
		},
	)

	// UpstreamRequestsTotal counts upstream addon fetches.
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total upstream addon stream fetches",
		},
		[]string{LabelResult},
	)

	// StreamRequestsTotal counts stream requests served, by effective mode.
	StreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_requests_total",
			Help:      "Total stream requests served",
		},
		[]string{LabelMode},
	)
)

var (
	// RemoteCallDuration tracks debrid API latency.
	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "Debrid API call latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelOperation},
	)

	// BatchDuration tracks end-to-end batch annotation time.
	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time spent annotating one candidate batch",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{LabelMode},
	)
)

// ResultLabel maps an error to a result label value.
func ResultLabel(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
