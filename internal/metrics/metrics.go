package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datacom_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datacom_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"method", "path"},
	)

	// Turn metrics
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datacom_turns_total",
			Help: "Total chat turns by outcome",
		},
		[]string{"outcome"}, // "ok", "timeout", "failed", "empty", "panic"
	)

	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "datacom_turn_duration_seconds",
			Help:    "End-to-end chat turn duration",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 180},
		},
	)

	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "datacom_persist_failures_total",
			Help: "Turns whose transcript could not be persisted",
		},
	)

	// Inference metrics
	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datacom_inference_duration_seconds",
			Help:    "Model inference latency",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	InferenceInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "datacom_inference_in_flight",
			Help: "Inference workers currently running, abandoned ones included",
		},
	)

	ModelLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datacom_model_loads_total",
			Help: "Model load attempts",
		},
		[]string{"result"}, // "ok" or "error"
	)

	PromptTokens = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "datacom_prompt_tokens",
			Help:    "Prompt size in tokens",
			Buckets: []float64{64, 128, 256, 512, 1024, 2048, 4096},
		},
	)
)
