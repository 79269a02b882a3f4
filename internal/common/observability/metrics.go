package observability

import (
	"context"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records prediction pipeline measurements through an
// OpenTelemetry meter exported on the Prometheus registry.
type Observability struct {
	meterProvider      *metric.MeterProvider
	meter              otelmetric.Meter
	predictionCounter  otelmetric.Int64Counter
	predictionDuration otelmetric.Float64Histogram
	responseSize       otelmetric.Int64Histogram
}

// New registers the exporter on the default Prometheus registry and installs
// the provider globally.
func New(serviceName string) (*Observability, error) {
	o, err := NewWithRegisterer(serviceName, promclient.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(o.meterProvider)
	return o, nil
}

// NewWithRegisterer is New against a caller-owned registry.
func NewWithRegisterer(serviceName string, reg promclient.Registerer) (*Observability, error) {
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	meter := provider.Meter(serviceName)

	predictionCounter, err := meter.Int64Counter(
		"predictions.processed",
		otelmetric.WithDescription("Number of prediction runs"),
	)
	if err != nil {
		return nil, err
	}

	predictionDuration, err := meter.Float64Histogram(
		"predictions.duration",
		otelmetric.WithDescription("End-to-end prediction duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	responseSize, err := meter.Int64Histogram(
		"llm.response.size",
		otelmetric.WithDescription("Size of raw model responses"),
		otelmetric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &Observability{
		meterProvider:      provider,
		meter:              meter,
		predictionCounter:  predictionCounter,
		predictionDuration: predictionDuration,
		responseSize:       responseSize,
	}, nil
}

// Noop returns an Observability whose recorders do nothing.
func Noop() *Observability {
	return &Observability{}
}

func (o *Observability) RecordPrediction(ctx context.Context, outcome string) {
	if o != nil && o.predictionCounter != nil {
		o.predictionCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) RecordPredictionDuration(ctx context.Context, duration time.Duration, outcome string) {
	if o != nil && o.predictionDuration != nil {
		o.predictionDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) RecordResponseSize(ctx context.Context, bytes int) {
	if o != nil && o.responseSize != nil {
		o.responseSize.Record(ctx, int64(bytes))
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return o.meterProvider.Shutdown(ctx)
}
