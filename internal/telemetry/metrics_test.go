package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryIsolated(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()

	a.PredictionGaps.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.PredictionGaps))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PredictionGaps))
}

func TestObserveStageLabelsResult(t *testing.T) {
	r := NewRegistry()

	r.ObserveStage("refresh", time.Now(), nil)
	r.ObserveStage("refresh", time.Now(), errors.New("boom"))

	count, err := testutil.GatherAndCount(r.Gatherer(), "ronclanker_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count) // one series per result label
}

func TestCountersAccumulate(t *testing.T) {
	r := NewRegistry()

	r.WorkflowRuns.WithLabelValues("ok").Inc()
	r.WorkflowRuns.WithLabelValues("ok").Inc()
	r.SourceFailures.WithLabelValues("rss-news").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.WorkflowRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SourceFailures.WithLabelValues("rss-news")))
}
