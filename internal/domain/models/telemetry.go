package models

import (
	"time"

	"ElemPulse/internal/elemental"
)

// TelemetryRecord is the wire form of one entity observation as it arrives
// from the WebSocket stream or the Kafka telemetry topic. Timestamp is unix
// seconds (producers sending milliseconds are normalized at the ingest
// boundary). All reading fields are optional.
type TelemetryRecord struct {
	Entity    string  `json:"entity"`
	Timestamp int64   `json:"t"`
	Weight    float64 `json:"weight,omitempty"`
	Source    string  `json:"source,omitempty"`
	Notes     string  `json:"notes,omitempty"`

	MomentumIndicator   *float64 `json:"momentum,omitempty"`
	PlannedActions      *int     `json:"planned,omitempty"`
	ExecutedActions     *int     `json:"executed,omitempty"`
	DrawdownPct         *float64 `json:"drawdown_pct,omitempty"`
	BalanceDeltaPct     *float64 `json:"balance_delta_pct,omitempty"`
	ConsecutiveWins     *int     `json:"consecutive_wins,omitempty"`
	ConsecutiveLosses   *int     `json:"consecutive_losses,omitempty"`
	StressIndex         *float64 `json:"stress,omitempty"`
	EmotionalVolatility *float64 `json:"emotional_volatility,omitempty"`
	DisciplineIndex     *float64 `json:"discipline,omitempty"`
	ConvictionIndex     *float64 `json:"conviction,omitempty"`
	FocusIndex          *float64 `json:"focus,omitempty"`
	FatigueIndex        *float64 `json:"fatigue,omitempty"`
	JournalingRate      *float64 `json:"journaling_rate,omitempty"`
	ExternalVolatility  *float64 `json:"external_volatility,omitempty"`
	NewsShock           *bool    `json:"news_shock,omitempty"`
}

// Readings converts the wire record to the engine's telemetry form.
func (r *TelemetryRecord) Readings() elemental.Telemetry {
	return elemental.Telemetry{
		MomentumIndicator:   r.MomentumIndicator,
		PlannedActions:      r.PlannedActions,
		ExecutedActions:     r.ExecutedActions,
		DrawdownPct:         r.DrawdownPct,
		BalanceDeltaPct:     r.BalanceDeltaPct,
		ConsecutiveWins:     r.ConsecutiveWins,
		ConsecutiveLosses:   r.ConsecutiveLosses,
		StressIndex:         r.StressIndex,
		EmotionalVolatility: r.EmotionalVolatility,
		DisciplineIndex:     r.DisciplineIndex,
		ConvictionIndex:     r.ConvictionIndex,
		FocusIndex:          r.FocusIndex,
		FatigueIndex:        r.FatigueIndex,
		JournalingRate:      r.JournalingRate,
		ExternalVolatility:  r.ExternalVolatility,
		NewsShock:           r.NewsShock,
	}
}

// Time returns the record's timestamp as UTC time; a missing timestamp is
// the zero time so the engine can default it.
func (r *TelemetryRecord) Time() time.Time {
	if r.Timestamp <= 0 {
		return time.Time{}
	}
	return time.Unix(r.Timestamp, 0).UTC()
}

// ContributionRecord is the wire form of one raw ledger contribution as it
// arrives on the contributions topic.
type ContributionRecord struct {
	Archetype string            `json:"archetype"`
	Score     float64           `json:"score"`
	Weight    float64           `json:"weight,omitempty"`
	Source    string            `json:"source,omitempty"`
	Timestamp int64             `json:"t"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Time returns the contribution timestamp as UTC time; zero when missing.
func (r *ContributionRecord) Time() time.Time {
	if r.Timestamp <= 0 {
		return time.Time{}
	}
	return time.Unix(r.Timestamp, 0).UTC()
}
