package elemental

// Telemetry is a flat record of optional behavioral/market readings for one
// entity at one point in time. All *Index and rate fields are expected to be
// normalized to [0, 1] by the caller; the scorer does not re-normalize.
//
// Every field is optional. An absent field simply fails the guard of any rule
// that reads it; it never produces an error.
type Telemetry struct {
	MomentumIndicator   *float64 // 0..100 oscillator, e.g. RSI-style
	PlannedActions      *int
	ExecutedActions     *int
	DrawdownPct         *float64 // percent of equity, positive when under water
	BalanceDeltaPct     *float64 // signed percent change of account balance
	ConsecutiveWins     *int
	ConsecutiveLosses   *int
	StressIndex         *float64
	EmotionalVolatility *float64
	DisciplineIndex     *float64
	ConvictionIndex     *float64
	FocusIndex          *float64
	FatigueIndex        *float64
	JournalingRate      *float64
	ExternalVolatility  *float64
	NewsShock           *bool
}

// Float returns a pointer to v, for building Telemetry literals.
func Float(v float64) *float64 { return &v }

// IntVal returns a pointer to v, for building Telemetry literals.
func IntVal(v int) *int { return &v }

// BoolVal returns a pointer to v, for building Telemetry literals.
func BoolVal(v bool) *bool { return &v }
