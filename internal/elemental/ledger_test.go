package elemental

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRecordValidation(t *testing.T) {
	ledger, err := NewLedger()
	require.NoError(t, err)

	_, err = ledger.Record("void", 5)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = ledger.Record(Fire, 10.5)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = ledger.Record(Fire, -0.1)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = ledger.Record(Fire, math.NaN())
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = ledger.Record(Fire, 5, WithWeight(-1))
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = ledger.Record(Fire, 5, WithWeight(0))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestLedgerRecordDefaults(t *testing.T) {
	ledger, err := NewLedger()
	require.NoError(t, err)

	c, err := ledger.Record(Fire, 5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.Weight)
	assert.False(t, c.Timestamp.IsZero())
	assert.Equal(t, time.UTC, c.Timestamp.Location())

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c, err = ledger.Record(Water, 3,
		WithWeight(2.5),
		WithSource("journal"),
		WithTimestamp(at),
		WithMetadata(map[string]string{"session": "morning"}))
	require.NoError(t, err)
	assert.Equal(t, 2.5, c.Weight)
	assert.Equal(t, "journal", c.Source)
	assert.Equal(t, at, c.Timestamp)
	assert.Equal(t, "morning", c.Metadata["session"])
}

func TestLedgerSummaryEmptyArchetype(t *testing.T) {
	ledger, err := NewLedger()
	require.NoError(t, err)

	s, err := ledger.Summary(Fire)
	require.NoError(t, err, "an empty archetype is a zero summary, not an error")
	assert.Zero(t, s.Samples)
	assert.Zero(t, s.AverageScore)
	assert.Equal(t, LevelStable, s.Level)

	s, err = ledger.Summary(Darkness)
	require.NoError(t, err)
	assert.Equal(t, LevelRecovering, s.Level, "darkness speaks the recovery vocabulary here")

	_, err = ledger.Summary("void")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestLedgerWeightedSummary(t *testing.T) {
	ledger, err := NewLedger()
	require.NoError(t, err)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	_, err = ledger.Record(Earth, 4, WithWeight(1), WithTimestamp(at), WithSource("coach"))
	require.NoError(t, err)
	_, err = ledger.Record(Earth, 8, WithWeight(3), WithTimestamp(at.Add(time.Minute)), WithSource("journal"))
	require.NoError(t, err)

	s, err := ledger.Summary(Earth)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Samples)
	assert.Equal(t, 4.0, s.TotalWeight)
	assert.Equal(t, 7.0, s.AverageScore, "(4*1 + 8*3) / 4")
	assert.Equal(t, LevelPeak, s.Level)
	assert.Equal(t, at.Add(time.Minute), s.LastSeen)
	assert.Equal(t, []string{"journal", "coach"}, s.TopSources)
}

func TestLedgerMomentum(t *testing.T) {
	ledger, err := NewLedger()
	require.NoError(t, err)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	_, err = ledger.Record(Fire, 4, WithTimestamp(at))
	require.NoError(t, err)

	s, err := ledger.Summary(Fire)
	require.NoError(t, err)
	assert.Zero(t, s.Momentum, "a single entry has no prior baseline")

	// priors 2 (w1) and 4 (w3) average 3.5; the latest raw score is 8
	_, err = ledger.Record(Water, 2, WithWeight(1), WithTimestamp(at))
	require.NoError(t, err)
	_, err = ledger.Record(Water, 4, WithWeight(3), WithTimestamp(at.Add(time.Minute)))
	require.NoError(t, err)
	_, err = ledger.Record(Water, 8, WithTimestamp(at.Add(2*time.Minute)))
	require.NoError(t, err)

	s, err = ledger.Summary(Water)
	require.NoError(t, err)
	assert.Equal(t, 4.5, s.Momentum)
}

func TestLedgerMaxAgeEviction(t *testing.T) {
	_, err := NewLedger(LedgerMaxAge(-time.Second))
	require.ErrorIs(t, err, ErrConfiguration)

	ledger, err := NewLedger(LedgerMaxAge(5 * time.Minute))
	require.NoError(t, err)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	_, err = ledger.Record(Earth, 3, WithTimestamp(at))
	require.NoError(t, err)
	_, err = ledger.Record(Earth, 7, WithTimestamp(at.Add(10*time.Minute)))
	require.NoError(t, err)

	s, err := ledger.Summary(Earth)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Samples, "the stale contribution aged out")
	assert.Equal(t, 7.0, s.AverageScore)
	assert.Equal(t, LevelPeak, s.Level)
}

func TestLedgerSnapshotComposites(t *testing.T) {
	ledger, err := NewLedger()
	require.NoError(t, err)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	_, err = ledger.Record(Earth, 6, WithTimestamp(at))
	require.NoError(t, err)

	snap := ledger.Snapshot()
	assert.Equal(t, Earth, snap.Dominant.Archetype)
	assert.Equal(t, 1, snap.Samples)
	// only sampled archetypes join a composite mean: light is absent, so
	// readiness is earth alone, and caution has no members at all
	assert.Equal(t, 6.0, snap.Readiness)
	assert.Zero(t, snap.Caution)
	assert.Zero(t, snap.Recovery)
	assert.InDelta(t, 2.1, snap.Dispersion, 1e-9)
}

func TestLedgerSnapshotCached(t *testing.T) {
	ledger, err := NewLedger()
	require.NoError(t, err)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	_, err = ledger.Record(Light, 5, WithTimestamp(at))
	require.NoError(t, err)

	first := ledger.Snapshot()
	second := ledger.Snapshot()
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt)

	_, err = ledger.Record(Light, 9, WithTimestamp(at.Add(time.Second)))
	require.NoError(t, err)
	third := ledger.Snapshot()
	assert.Equal(t, 2, third.Samples)
	assert.Equal(t, 7.0, third.Dominant.AverageScore)
}

func TestLedgerClearReset(t *testing.T) {
	ledger, err := NewLedger()
	require.NoError(t, err)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	_, err = ledger.Record(Fire, 5, WithTimestamp(at))
	require.NoError(t, err)
	_, err = ledger.Record(Water, 5, WithTimestamp(at))
	require.NoError(t, err)

	require.NoError(t, ledger.Clear(Fire))
	s, err := ledger.Summary(Fire)
	require.NoError(t, err)
	assert.Zero(t, s.Samples)
	s, err = ledger.Summary(Water)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Samples)

	ledger.Reset()
	snap := ledger.Snapshot()
	assert.Zero(t, snap.Samples)
	assert.Zero(t, snap.Dispersion)
}

func TestLedgerEmptySnapshot(t *testing.T) {
	ledger, err := NewLedger()
	require.NoError(t, err)

	snap := ledger.Snapshot()
	assert.Zero(t, snap.Samples)
	assert.Zero(t, snap.Dispersion)
	assert.Len(t, snap.Summaries, 7)
	// everything ties at zero, so canonical order decides
	assert.Equal(t, Fire, snap.Dominant.Archetype)
}
