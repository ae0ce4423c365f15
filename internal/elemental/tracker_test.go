package elemental

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// profileWith builds a full seven-signal profile from a sparse score map;
// unnamed archetypes score zero.
func profileWith(t *testing.T, scores map[Archetype]float64) Profile {
	t.Helper()
	signals := make([]Signal, 0, len(Archetypes))
	for _, a := range Archetypes {
		score := scores[a]
		signals = append(signals, Signal{
			Archetype: a,
			Score:     score,
			Level:     LevelFor(a, score),
		})
	}
	p, err := NewProfile(signals)
	require.NoError(t, err)
	return p
}

func TestTrackerRecordValidation(t *testing.T) {
	tracker, err := NewTracker()
	require.NoError(t, err)

	_, err = tracker.Record("", TelemetryInput(Telemetry{}), 1.0, time.Time{}, "")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = tracker.Record("acct-1", TelemetryInput(Telemetry{}), math.NaN(), time.Time{}, "")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = tracker.Record("acct-1", Input{}, 1.0, time.Time{}, "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestTrackerRecordNormalizesTime(t *testing.T) {
	tracker, err := NewTracker()
	require.NoError(t, err)

	entry, err := tracker.Record("acct-1", TelemetryInput(Telemetry{}), 1.0, time.Time{}, "")
	require.NoError(t, err)
	assert.False(t, entry.Timestamp.IsZero())
	assert.Equal(t, time.UTC, entry.Timestamp.Location())

	local := time.Date(2026, 8, 1, 9, 0, 0, 0, time.FixedZone("X", 3600))
	entry, err = tracker.Record("acct-1", TelemetryInput(Telemetry{}), 1.0, local, "")
	require.NoError(t, err)
	assert.Equal(t, local.UTC(), entry.Timestamp)
}

func TestTrackerSnapshotMissingEntity(t *testing.T) {
	tracker, err := NewTracker()
	require.NoError(t, err)

	_, err = tracker.Snapshot("ghost")
	require.ErrorIs(t, err, ErrEmptyState)
}

func TestTrackerWeightedAverage(t *testing.T) {
	tracker, err := NewTracker()
	require.NoError(t, err)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	_, err = tracker.Record("acct-1",
		ProfileInput(profileWith(t, map[Archetype]float64{Fire: 4})), 1.0, at, "")
	require.NoError(t, err)
	_, err = tracker.Record("acct-1",
		ProfileInput(profileWith(t, map[Archetype]float64{Fire: 8})), 3.0, at.Add(time.Minute), "")
	require.NoError(t, err)

	snap, err := tracker.Snapshot("acct-1")
	require.NoError(t, err)

	assert.Equal(t, Fire, snap.Dominant.Archetype)
	assert.Equal(t, 7.0, snap.Dominant.Score, "(4*1 + 8*3) / 4")
	assert.Equal(t, LevelCritical, snap.Dominant.Level, "the heavier sample carries the vote")
	assert.Equal(t, 2, snap.Samples)
	assert.Equal(t, at.Add(time.Minute), snap.LastSample)
}

func TestTrackerNonPositiveWeightsCountAsOne(t *testing.T) {
	tracker, err := NewTracker()
	require.NoError(t, err)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	_, err = tracker.Record("acct-1",
		ProfileInput(profileWith(t, map[Archetype]float64{Water: 2})), 0, at, "")
	require.NoError(t, err)
	_, err = tracker.Record("acct-1",
		ProfileInput(profileWith(t, map[Archetype]float64{Water: 6})), -4.0, at.Add(time.Second), "")
	require.NoError(t, err)

	snap, err := tracker.Snapshot("acct-1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, scoreOf(snap.Aggregates, Water))
}

func TestTrackerComposites(t *testing.T) {
	tracker, err := NewTracker()
	require.NoError(t, err)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	_, err = tracker.Record("acct-1",
		ProfileInput(profileWith(t, map[Archetype]float64{Fire: 8, Earth: 6, Light: 4, Darkness: 2})),
		1.0, at, "")
	require.NoError(t, err)

	snap, err := tracker.Snapshot("acct-1")
	require.NoError(t, err)

	assert.Equal(t, 5.0, snap.Readiness, "(earth + light) / 2")
	assert.Equal(t, 2.0, snap.Caution, "(fire + water + wind + lightning) / 4")
	assert.Equal(t, 2.0, snap.Recovery)
	assert.Equal(t, 3.0, snap.Stability, "readiness - caution")
}

func TestTrackerSnapshotCached(t *testing.T) {
	tracker, err := NewTracker()
	require.NoError(t, err)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	_, err = tracker.Record("acct-1",
		ProfileInput(profileWith(t, map[Archetype]float64{Wind: 5})), 1.0, at, "")
	require.NoError(t, err)

	first, err := tracker.Snapshot("acct-1")
	require.NoError(t, err)
	second, err := tracker.Snapshot("acct-1")
	require.NoError(t, err)
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt, "unchanged history reuses the cached snapshot")

	_, err = tracker.Record("acct-1",
		ProfileInput(profileWith(t, map[Archetype]float64{Wind: 9})), 1.0, at.Add(time.Second), "")
	require.NoError(t, err)

	third, err := tracker.Snapshot("acct-1")
	require.NoError(t, err)
	assert.Equal(t, 2, third.Samples)
	assert.Equal(t, 7.0, scoreOf(third.Aggregates, Wind))
	assert.NotEqual(t, second.GeneratedAt, third.GeneratedAt)
}

func TestTrackerWindowCaps(t *testing.T) {
	_, err := NewTracker(TrackerMaxSamples(0))
	require.ErrorIs(t, err, ErrConfiguration)

	tracker, err := NewTracker(TrackerMaxSamples(2))
	require.NoError(t, err)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, score := range []float64{2, 4, 6} {
		_, err = tracker.Record("acct-1",
			ProfileInput(profileWith(t, map[Archetype]float64{Fire: score})),
			1.0, at.Add(time.Duration(i)*time.Minute), "")
		require.NoError(t, err)
	}

	snap, err := tracker.Snapshot("acct-1")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Samples)
	assert.Equal(t, 5.0, scoreOf(snap.Aggregates, Fire), "oldest sample evicted")
}

func TestTrackerEntitiesClearReset(t *testing.T) {
	tracker, err := NewTracker()
	require.NoError(t, err)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for _, entity := range []string{"a", "b"} {
		_, err = tracker.Record(entity,
			ProfileInput(profileWith(t, map[Archetype]float64{Light: 5})), 1.0, at, "")
		require.NoError(t, err)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, tracker.Entities())

	tracker.Clear("a")
	assert.ElementsMatch(t, []string{"b"}, tracker.Entities())
	_, err = tracker.Snapshot("a")
	require.ErrorIs(t, err, ErrEmptyState)

	tracker.Reset()
	assert.Empty(t, tracker.Entities())
}
