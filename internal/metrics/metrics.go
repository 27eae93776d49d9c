// Package metrics exports resolution metrics in the Prometheus format.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/flynn-ai/hybridcall/internal/hybrid"
)

// Outcome label values.
const (
	OutcomeOnDevice = "on_device"
	OutcomeCloud    = "cloud"
	OutcomeError    = "error"
)

var (
	Resolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hybridcall_resolutions_total",
			Help: "Total number of resolved requests by outcome",
		},
		[]string{"outcome"},
	)

	ResolutionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hybridcall_resolution_latency_seconds",
			Help:    "Reported resolution latency in seconds",
			Buckets: []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	LocalAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hybridcall_local_attempts",
			Help:    "Local inferences issued per request",
			Buckets: []float64{1, 2, 3, 6, 9, 12, 18, 27},
		},
	)

	FastPath = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hybridcall_fast_path_total",
			Help: "Requests accepted from a single high-confidence sample",
		},
	)

	Decomposed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hybridcall_decomposed_total",
			Help: "Requests split into clauses",
		},
	)

	FallbackReasons = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hybridcall_fallback_reasons_total",
			Help: "Cloud fallbacks by the error code that caused them",
		},
		[]string{"reason"},
	)

	Tokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hybridcall_tokens_total",
			Help: "Tokens reported by the models",
		},
		[]string{"model"},
	)
)

// Recorder feeds the package collectors. It implements hybrid.Recorder.
type Recorder struct{}

// Record implements hybrid.Recorder.
func (Recorder) Record(_ context.Context, rec hybrid.Record) error {
	LocalAttempts.Observe(float64(rec.LocalAttempts))
	Tokens.WithLabelValues("local").Add(float64(rec.LocalTokens))
	Tokens.WithLabelValues("remote").Add(float64(rec.RemoteTokens))
	if rec.Parts > 0 {
		Decomposed.Inc()
	}

	outcome := OutcomeError
	switch {
	case rec.Err != nil:
	case rec.OnDevice():
		outcome = OutcomeOnDevice
		if rec.FastPath {
			FastPath.Inc()
		}
	case rec.Fallback():
		outcome = OutcomeCloud
	}

	if rec.Reason != "" && rec.Err == nil {
		FallbackReasons.WithLabelValues(rec.Reason).Inc()
	}

	Resolutions.WithLabelValues(outcome).Inc()
	if outcome != OutcomeError {
		ResolutionLatency.WithLabelValues(outcome).Observe(rec.TotalTimeMs / 1000)
	}
	return nil
}
