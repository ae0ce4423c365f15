package usecase

import (
	"context"
	"testing"
	"time"

	"ElemPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOverviewCollectsAllSections(t *testing.T) {
	m := newRecordingMetrics()
	insights, err := NewInsightService(EngineConfig{}, m)
	require.NoError(t, err)

	_, err = insights.RecordTelemetry(testRecord("desk-a", 0.6))
	require.NoError(t, err)
	_, err = insights.RecordTelemetry(testRecord("desk-b", 0.3))
	require.NoError(t, err)
	_, err = insights.RecordContribution(&models.ContributionRecord{Archetype: "fire", Score: 7})
	require.NoError(t, err)

	uc := NewOverviewUseCase(insights)
	ov, err := uc.GetOverview(context.Background(), GetOverviewParams{Entity: "desk-a", Subject: "cohort"})
	require.NoError(t, err)

	assert.Equal(t, "desk-a", ov.Entity)
	require.NotNil(t, ov.Snapshot)
	assert.Equal(t, 1, ov.Snapshot.Samples)
	require.Len(t, ov.Consensus, 1)
	assert.Equal(t, 2, ov.Consensus[0].Cohort)
	require.NotNil(t, ov.Ledger)
	assert.Nil(t, ov.Errors)
}

func TestGetOverviewReportsSectionErrors(t *testing.T) {
	m := newRecordingMetrics()
	insights, err := NewInsightService(EngineConfig{}, m)
	require.NoError(t, err)

	// Only desk-b has telemetry, so the desk-a snapshot section fails while
	// consensus and ledger still resolve.
	_, err = insights.RecordTelemetry(testRecord("desk-b", 0.4))
	require.NoError(t, err)

	uc := NewOverviewUseCase(insights)
	ov, err := uc.GetOverview(context.Background(), GetOverviewParams{Entity: "desk-a", Subject: "cohort"})
	require.NoError(t, err)

	assert.Nil(t, ov.Snapshot)
	assert.Contains(t, ov.Errors, "snapshot")
	assert.Len(t, ov.Consensus, 1)
}

func TestGetOverviewRequiresEntity(t *testing.T) {
	m := newRecordingMetrics()
	insights, err := NewInsightService(EngineConfig{}, m)
	require.NoError(t, err)

	_, err = NewOverviewUseCase(insights).GetOverview(context.Background(), GetOverviewParams{})
	assert.Error(t, err)
}

func TestGetOverviewHonorsTimeout(t *testing.T) {
	m := newRecordingMetrics()
	insights, err := NewInsightService(EngineConfig{}, m)
	require.NoError(t, err)
	_, err = insights.RecordTelemetry(testRecord("desk-a", 0.5))
	require.NoError(t, err)

	uc := NewOverviewUseCase(insights)
	uc.timeout = -time.Second // derived context is expired before collection

	ov, err := uc.GetOverview(context.Background(), GetOverviewParams{Entity: "desk-a"})
	require.NoError(t, err)
	require.Contains(t, ov.Errors, "overview")
	assert.Contains(t, ov.Errors["overview"], context.DeadlineExceeded.Error())
	assert.Nil(t, ov.Snapshot)
}
