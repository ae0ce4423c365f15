package models

import "ElemPulse/internal/elemental"

// Requests for insight HTTP endpoints. Defined in domain for consistency and reuse.

type EntityInsightRequest struct {
	Entity string `query:"entity" json:"entity" validate:"required"`
}

type ConsensusRequest struct {
	Subject string `query:"subject" json:"subject"`
}

type LedgerSummaryRequest struct {
	Archetype string `query:"archetype" json:"archetype" validate:"omitempty,oneof=fire water wind earth lightning light darkness"`
}

type HistoryRequest struct {
	Entity      string `query:"entity" json:"entity" validate:"required"`
	From        string `query:"from" json:"from"`
	To          string `query:"to" json:"to"`
	Limit       int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=5000"`
	Granularity string `query:"granularity" json:"granularity" default:"raw" validate:"oneof=raw 1h 1d"`
}

// ScoreRequest carries raw readings for stateless scoring. Index fields are
// validated to their normalized ranges; absent fields stay absent.
type ScoreRequest struct {
	MomentumIndicator   *float64 `json:"momentum" validate:"omitempty,gte=0,lte=100"`
	PlannedActions      *int     `json:"planned" validate:"omitempty,gte=0"`
	ExecutedActions     *int     `json:"executed" validate:"omitempty,gte=0"`
	DrawdownPct         *float64 `json:"drawdown_pct" validate:"omitempty,gte=0"`
	BalanceDeltaPct     *float64 `json:"balance_delta_pct"`
	ConsecutiveWins     *int     `json:"consecutive_wins" validate:"omitempty,gte=0"`
	ConsecutiveLosses   *int     `json:"consecutive_losses" validate:"omitempty,gte=0"`
	StressIndex         *float64 `json:"stress" validate:"omitempty,gte=0,lte=1"`
	EmotionalVolatility *float64 `json:"emotional_volatility" validate:"omitempty,gte=0,lte=1"`
	DisciplineIndex     *float64 `json:"discipline" validate:"omitempty,gte=0,lte=1"`
	ConvictionIndex     *float64 `json:"conviction" validate:"omitempty,gte=0,lte=1"`
	FocusIndex          *float64 `json:"focus" validate:"omitempty,gte=0,lte=1"`
	FatigueIndex        *float64 `json:"fatigue" validate:"omitempty,gte=0,lte=1"`
	JournalingRate      *float64 `json:"journaling_rate" validate:"omitempty,gte=0,lte=1"`
	ExternalVolatility  *float64 `json:"external_volatility" validate:"omitempty,gte=0,lte=1"`
	NewsShock           *bool    `json:"news_shock"`
}

// Readings converts the request to the engine's telemetry form.
func (r *ScoreRequest) Readings() elemental.Telemetry {
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

// RecordTelemetryRequest ingests one observation over HTTP instead of the
// stream or Kafka path.
type RecordTelemetryRequest struct {
	Entity string  `json:"entity" validate:"required"`
	Weight float64 `json:"weight" default:"1" validate:"gte=0"`
	Notes  string  `json:"notes"`
	ScoreRequest
}

// Record converts the request to the stream wire form with the given
// timestamp (unix seconds).
func (r *RecordTelemetryRequest) Record(ts int64) *TelemetryRecord {
	return &TelemetryRecord{
		Entity:    r.Entity,
		Timestamp: ts,
		Weight:    r.Weight,
		Source:    "api",
		Notes:     r.Notes,

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

// ContributionRequest appends one raw ledger contribution over HTTP.
type ContributionRequest struct {
	Archetype string            `json:"archetype" validate:"required,oneof=fire water wind earth lightning light darkness"`
	Score     float64           `json:"score" validate:"gte=0,lte=10"`
	Weight    float64           `json:"weight" default:"1" validate:"gt=0"`
	Source    string            `json:"source"`
	Metadata  map[string]string `json:"metadata"`
}

// Record converts the request to the topic wire form with the given
// timestamp (unix seconds).
func (r *ContributionRequest) Record(ts int64) *ContributionRecord {
	return &ContributionRecord{
		Archetype: r.Archetype,
		Score:     r.Score,
		Weight:    r.Weight,
		Source:    r.Source,
		Timestamp: ts,
		Metadata:  r.Metadata,
	}
}
