package elemental

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreOverheatedSession(t *testing.T) {
	telemetry := Telemetry{
		MomentumIndicator:   Float(82),
		PlannedActions:      IntVal(3),
		ExecutedActions:     IntVal(9),
		DrawdownPct:         Float(12),
		BalanceDeltaPct:     Float(-5),
		ConsecutiveLosses:   IntVal(4),
		StressIndex:         Float(0.7),
		EmotionalVolatility: Float(0.6),
	}

	profile := Score(telemetry)
	require.Equal(t, 7, profile.Len())

	fire, ok := profile.Signal(Fire)
	require.True(t, ok)
	assert.Equal(t, maxScore, fire.Score, "five fire rules stack past the cap")
	assert.Equal(t, LevelCritical, fire.Level)
	assert.Contains(t, fire.Reasons, "drawdown at 12.0% of equity")
	assert.NotEmpty(t, fire.Recommendations)

	water, ok := profile.Signal(Water)
	require.True(t, ok)
	assert.InDelta(t, 4.2, water.Score, 1e-9)
	assert.Equal(t, LevelElevated, water.Level)

	darkness, ok := profile.Signal(Darkness)
	require.True(t, ok)
	assert.InDelta(t, 1.5, darkness.Score, 1e-9)
	assert.Equal(t, LevelStable, darkness.Level)

	assert.Equal(t, Fire, profile.Dominant().Archetype)
}

func TestScoreEmptyTelemetry(t *testing.T) {
	profile := Score(Telemetry{})
	require.Equal(t, 7, profile.Len())

	for i, s := range profile.Signals() {
		assert.Zero(t, s.Score)
		assert.Empty(t, s.Reasons)
		// every score ties at zero, so ranking falls back to canonical order
		assert.Equal(t, Archetypes[i], s.Archetype)
	}

	earth, _ := profile.Signal(Earth)
	assert.Equal(t, LevelNascent, earth.Level)
	darkness, _ := profile.Signal(Darkness)
	assert.Equal(t, LevelStable, darkness.Level)
}

func TestScoreDeterministic(t *testing.T) {
	telemetry := Telemetry{
		StressIndex:     Float(0.8),
		DisciplineIndex: Float(0.9),
		ConvictionIndex: Float(0.7),
	}
	first := Score(telemetry)
	second := Score(telemetry)
	assert.Equal(t, first.Signals(), second.Signals())
}

func TestScoreRestorativeSession(t *testing.T) {
	telemetry := Telemetry{
		DisciplineIndex: Float(0.9),
		JournalingRate:  Float(0.8),
		FocusIndex:      Float(0.8),
		FatigueIndex:    Float(0.2),
		BalanceDeltaPct: Float(2.0),
		DrawdownPct:     Float(1.0),
		ConvictionIndex: Float(0.7),
		ConsecutiveWins: IntVal(4),
	}

	profile := Score(telemetry)
	assert.Equal(t, Earth, profile.Dominant().Archetype)

	earth, _ := profile.Signal(Earth)
	// 0.9*4.0 + 0.8*3.0 + 1.0 + 0.8*2.0 = 8.6
	assert.InDelta(t, 8.6, earth.Score, 1e-9)
	assert.Equal(t, LevelPeak, earth.Level)

	// win streak rule needs emotional volatility telemetry; absent field
	// means the composed-streak rule cannot fire
	light, _ := profile.Signal(Light)
	assert.NotContains(t, light.Reasons, "composed win streak")
}

func TestLevelForThresholds(t *testing.T) {
	assert.Equal(t, LevelCritical, LevelFor(Fire, 7.0))
	assert.Equal(t, LevelElevated, LevelFor(Fire, 6.99))
	assert.Equal(t, LevelElevated, LevelFor(Fire, 4.0))
	assert.Equal(t, LevelStable, LevelFor(Fire, 3.99))

	assert.Equal(t, LevelPeak, LevelFor(Light, 7.0))
	assert.Equal(t, LevelBuilding, LevelFor(Light, 4.0))
	assert.Equal(t, LevelNascent, LevelFor(Light, 0))

	// darkness scores on the volatile vocabulary outside the ledger
	assert.Equal(t, LevelCritical, LevelFor(Darkness, 9.0))
}

func TestNewProfileValidation(t *testing.T) {
	_, err := NewProfile(nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	signals := make([]Signal, 0, 7)
	for _, a := range Archetypes {
		signals = append(signals, Signal{Archetype: a})
	}
	signals[6].Archetype = Fire
	_, err = NewProfile(signals)
	require.ErrorIs(t, err, ErrInvalidInput)

	signals[6].Archetype = "void"
	_, err = NewProfile(signals)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewProfileClampsAndRanks(t *testing.T) {
	signals := make([]Signal, 0, 7)
	for _, a := range Archetypes {
		signals = append(signals, Signal{Archetype: a, Score: -1})
	}
	signals[3].Score = 42 // earth, clamps to the cap
	signals[5].Score = 6  // light

	profile, err := NewProfile(signals)
	require.NoError(t, err)

	ranked := profile.Signals()
	assert.Equal(t, Earth, ranked[0].Archetype)
	assert.Equal(t, maxScore, ranked[0].Score)
	assert.Equal(t, Light, ranked[1].Archetype)
	assert.Zero(t, ranked[2].Score)
}

func TestProfileMarshalJSONEmitsRankedSignals(t *testing.T) {
	profile := Score(Telemetry{StressIndex: Float(0.9)})

	b, err := json.Marshal(profile)
	require.NoError(t, err)
	require.NotEqual(t, "{}", string(b))

	var view struct {
		Signals  []Signal `json:"signals"`
		Dominant *Signal  `json:"dominant"`
	}
	require.NoError(t, json.Unmarshal(b, &view))
	require.Len(t, view.Signals, 7)
	for _, a := range Archetypes {
		assert.Contains(t, string(b), string(a))
	}
	require.NotNil(t, view.Dominant)
	assert.Equal(t, profile.Dominant().Archetype, view.Dominant.Archetype)
	assert.NotEmpty(t, view.Dominant.Level)
}

func TestProfileMarshalJSONZeroValue(t *testing.T) {
	b, err := json.Marshal(Profile{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"signals":[]}`, string(b))
}
