package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ElemPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelemetryHandlerRecordsAndPersists(t *testing.T) {
	store := &fakeSnapshotStore{}
	m := newRecordingMetrics()
	insights, err := NewInsightService(EngineConfig{}, m)
	require.NoError(t, err)
	h := NewKafkaTelemetryHandler("elempulse.telemetry", insights, store, m)
	assert.Equal(t, "elempulse.telemetry", h.Topic())

	stress := 0.7
	rec := models.TelemetryRecord{
		Entity:      "desk-a",
		Timestamp:   time.Now().UnixMilli(), // producers may send milliseconds
		StressIndex: &stress,
	}
	b, err := json.Marshal(rec)
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), b))

	require.Len(t, store.rows, 1)
	assert.Equal(t, "desk-a", store.rows[0].Entity)

	snap, err := insights.EntityInsight("desk-a")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Samples)
	// millisecond timestamp was normalized to seconds
	assert.WithinDuration(t, time.Now(), snap.LastSample, time.Minute)
}

func TestTelemetryHandlerRejectsMalformedPayload(t *testing.T) {
	m := newRecordingMetrics()
	insights, err := NewInsightService(EngineConfig{}, m)
	require.NoError(t, err)
	h := NewKafkaTelemetryHandler("elempulse.telemetry", insights, &fakeSnapshotStore{}, m)

	assert.Error(t, h.Handle(context.Background(), []byte("{not json")))
	assert.Equal(t, 1, m.errors["consumer_unmarshal"])
}

func TestContributionsHandlerFeedsLedger(t *testing.T) {
	m := newRecordingMetrics()
	insights, err := NewInsightService(EngineConfig{}, m)
	require.NoError(t, err)
	h := NewKafkaContributionsHandler("elempulse.contributions", insights, m)
	assert.Equal(t, "elempulse.contributions", h.Topic())

	rec := models.ContributionRecord{
		Archetype: "earth",
		Score:     6.5,
		Weight:    2.0,
		Source:    "journal",
		Timestamp: time.Now().Unix(),
	}
	b, err := json.Marshal(rec)
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), b))

	sum, err := insights.LedgerSummary("earth")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Samples)
	assert.InDelta(t, 6.5, sum.AverageScore, 1e-9)
	assert.Equal(t, []string{"journal"}, sum.TopSources)
}

func TestContributionsHandlerRejectsUnknownArchetype(t *testing.T) {
	m := newRecordingMetrics()
	insights, err := NewInsightService(EngineConfig{}, m)
	require.NoError(t, err)
	h := NewKafkaContributionsHandler("elempulse.contributions", insights, m)

	b, err := json.Marshal(models.ContributionRecord{Archetype: "void", Score: 3})
	require.NoError(t, err)
	assert.Error(t, h.Handle(context.Background(), b))
}
