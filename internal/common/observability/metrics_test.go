package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherNames(t *testing.T, reg *promclient.Registry) []string {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	return names
}

func TestObservability_RecordsToRegistry(t *testing.T) {
	reg := promclient.NewRegistry()
	o, err := NewWithRegisterer("llm-stock-prediction-test", reg)
	require.NoError(t, err)
	defer o.Shutdown(context.Background())

	ctx := context.Background()
	o.RecordPrediction(ctx, "success")
	o.RecordPredictionDuration(ctx, 1500*time.Millisecond, "success")
	o.RecordResponseSize(ctx, 2048)

	joined := strings.Join(gatherNames(t, reg), ",")
	assert.Contains(t, joined, "predictions_processed")
	assert.Contains(t, joined, "predictions_duration")
	assert.Contains(t, joined, "llm_response_size")
}

func TestObservability_NoopIsSafe(t *testing.T) {
	ctx := context.Background()
	o := Noop()
	o.RecordPrediction(ctx, "llm_error")
	o.RecordPredictionDuration(ctx, time.Second, "llm_error")
	o.RecordResponseSize(ctx, 10)
	assert.NoError(t, o.Shutdown(ctx))

	var nilObs *Observability
	nilObs.RecordPrediction(ctx, "success")
	assert.NoError(t, nilObs.Shutdown(ctx))
}
