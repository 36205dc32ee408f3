package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/oceanobs/erddap-harvester/internal/progress"
)

func TestPrometheusSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runID := progress.UUIDToBytes(uuid.New())
	now := time.Now().UTC()
	batch := []progress.Event{
		{RunID: runID, TS: now, Stage: progress.StageRunStart},
		{RunID: runID, TS: now, Stage: progress.StageCatalogFetch, StatusClass: progress.Status2xx, Dur: 50 * time.Millisecond},
		{RunID: runID, TS: now, Stage: progress.StageCatalogFetch, StatusClass: progress.Status4xx, Dur: 10 * time.Millisecond},
		{RunID: runID, TS: now, Stage: progress.StageDASFetch, StatusClass: progress.Status2xx, Dur: 30 * time.Millisecond},
		{RunID: runID, TS: now, Stage: progress.StageDatasetFound, Count: 7},
		{RunID: runID, TS: now, Stage: progress.StageRunDone, Count: 7, Dur: time.Second},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsStarted))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsCompleted.WithLabelValues("succeeded")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.catalogFetches.WithLabelValues("2xx")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.catalogFetches.WithLabelValues("4xx")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.dasFetches.WithLabelValues("2xx")))
	require.Equal(t, 7.0, testutil.ToFloat64(sink.datasetsFound))

	require.NoError(t, sink.Close(context.Background()))
}

func TestPrometheusSinkDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}

func TestLogSinkConsume(t *testing.T) {
	sink := NewLogSink(nil)
	batch := []progress.Event{
		{RunID: progress.UUIDToBytes(uuid.New()), TS: time.Now().UTC(), Stage: progress.StageRunStart},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))
	require.NoError(t, sink.Close(context.Background()))
}
