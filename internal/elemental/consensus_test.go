package elemental

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunConsensusValidation(t *testing.T) {
	_, err := RunConsensus([]WeightedSample{{Subject: "", Weight: 1}})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = RunConsensus([]WeightedSample{{Subject: "ES", Weight: math.NaN()}})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = RunConsensus([]WeightedSample{{Subject: "ES", Weight: 1, Input: Input{}}})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRunConsensusEmpty(t *testing.T) {
	out, err := RunConsensus(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunConsensusWeightedMerge(t *testing.T) {
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	samples := []WeightedSample{
		{
			Subject:   "ES",
			Input:     ProfileInput(profileWith(t, map[Archetype]float64{Fire: 3, Earth: 6})),
			Weight:    1.0,
			Timestamp: at,
			Source:    "desk-a",
		},
		{
			Subject:   "ES",
			Input:     ProfileInput(profileWith(t, map[Archetype]float64{Fire: 6, Earth: 3})),
			Weight:    2.0,
			Timestamp: at,
			Source:    "desk-b",
		},
	}

	out, err := RunConsensus(samples)
	require.NoError(t, err)
	require.Len(t, out, 1)

	snap := out[0]
	assert.Equal(t, "ES", snap.Subject)
	assert.Equal(t, 2, snap.Cohort)
	// fire (3 + 6*2)/3 = 5.0 beats earth (6 + 3*2)/3 = 4.0
	assert.Equal(t, Fire, snap.Dominant.Archetype)
	assert.Equal(t, 5.0, snap.Dominant.Score)
	assert.Equal(t, 4.0, scoreOf(snap.Entries, Earth))

	// total positive mass is 9.0; gap is against the runner-up
	assert.InDelta(t, 0.56, snap.ConsensusRatio, 1e-9)
	assert.Equal(t, 1.0, snap.ConfidenceGap)
}

func TestRunConsensusAllNonPositiveWeights(t *testing.T) {
	samples := []WeightedSample{
		{Subject: "NQ", Input: ProfileInput(profileWith(t, map[Archetype]float64{Wind: 4})), Weight: 0},
		{Subject: "NQ", Input: ProfileInput(profileWith(t, map[Archetype]float64{Wind: 8})), Weight: -3},
	}

	out, err := RunConsensus(samples)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 6.0, out[0].Dominant.Score, "every weight defaults to 1.0")
}

func TestRunConsensusNegativeWeightFloored(t *testing.T) {
	samples := []WeightedSample{
		{Subject: "CL", Input: ProfileInput(profileWith(t, map[Archetype]float64{Water: 2})), Weight: -1},
		{Subject: "CL", Input: ProfileInput(profileWith(t, map[Archetype]float64{Water: 8})), Weight: 2},
	}

	out, err := RunConsensus(samples)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 8.0, out[0].Dominant.Score, "floored sample contributes nothing")
}

func TestRunConsensusSingleArchetypeRatio(t *testing.T) {
	samples := []WeightedSample{
		{Subject: "GC", Input: ProfileInput(profileWith(t, map[Archetype]float64{Lightning: 7})), Weight: 1},
	}

	out, err := RunConsensus(samples)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1.0, out[0].ConsensusRatio, "one archetype holds all positive mass")
	assert.Equal(t, 7.0, out[0].ConfidenceGap)
}

func TestRunConsensusZeroMassRatio(t *testing.T) {
	samples := []WeightedSample{
		{Subject: "ZB", Input: ProfileInput(profileWith(t, nil)), Weight: 1},
	}

	out, err := RunConsensus(samples)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Zero(t, out[0].ConsensusRatio)
	assert.Zero(t, out[0].ConfidenceGap)
}

func TestRunConsensusOrdering(t *testing.T) {
	samples := []WeightedSample{
		{Subject: "low", Input: ProfileInput(profileWith(t, map[Archetype]float64{Fire: 2})), Weight: 1},
		{Subject: "high", Input: ProfileInput(profileWith(t, map[Archetype]float64{Fire: 9})), Weight: 1},
		// same dominant score as "tie-b" but a wider gap
		{Subject: "tie-a", Input: ProfileInput(profileWith(t, map[Archetype]float64{Fire: 5})), Weight: 1},
		{Subject: "tie-b", Input: ProfileInput(profileWith(t, map[Archetype]float64{Fire: 5, Water: 3})), Weight: 1},
	}

	out, err := RunConsensus(samples)
	require.NoError(t, err)
	require.Len(t, out, 4)

	subjects := make([]string, 0, len(out))
	for _, snap := range out {
		subjects = append(subjects, snap.Subject)
	}
	assert.Equal(t, []string{"high", "tie-a", "tie-b", "low"}, subjects)
}

func TestRunConsensusTelemetryInput(t *testing.T) {
	samples := []WeightedSample{
		{Subject: "ES", Input: TelemetryInput(Telemetry{StressIndex: Float(0.9)}), Weight: 1},
	}

	out, err := RunConsensus(samples)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, Water, out[0].Dominant.Archetype, "telemetry is scored on resolve")
}
