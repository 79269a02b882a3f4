// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prediction outcomes used as the "outcome" label.
const (
	OutcomeSuccess     = "success"
	OutcomeNoCSV       = "no_csv"
	OutcomeLLMError    = "llm_error"
	OutcomeImplausible = "implausible"
	OutcomeStoreError  = "store_error"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpredict_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockpredict_http_request_duration_seconds",
			Help:    "Duration of HTTP request handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPRequestsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stockpredict_http_requests_active",
			Help: "Number of in-flight HTTP requests",
		},
	)

	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpredict_predictions_total",
			Help: "Total number of prediction requests by outcome",
		},
		[]string{"outcome"},
	)

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockpredict_llm_call_duration_seconds",
			Help:    "Duration of chat completion calls in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"model", "status"},
	)

	PredictionCSVRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockpredict_prediction_csv_rows",
			Help:    "Number of rows in the CSV block of each model response",
			Buckets: []float64{0, 1, 2, 13, 25, 61, 121, 250},
		},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpredict_uploads_total",
			Help: "Total number of document uploads by kind and status",
		},
		[]string{"kind", "status"},
	)

	AuthEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockpredict_auth_events_total",
			Help: "Signups, logins and logouts by result",
		},
		[]string{"event", "result"},
	)
)
