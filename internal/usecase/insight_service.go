package usecase

import (
	"encoding/json"
	"fmt"
	"time"

	"ElemPulse/internal/domain/models"
	domrepo "ElemPulse/internal/domain/repository"
	"ElemPulse/internal/elemental"
)

// InsightService owns the in-memory elemental engine: the per-entity tracker
// and the raw contribution ledger. All ingest paths (stream, Kafka, HTTP)
// and all read paths go through it.
type InsightService struct {
	tracker *elemental.Tracker
	ledger  *elemental.Ledger
	metrics domrepo.Metrics
}

// EngineConfig bounds the rolling histories.
type EngineConfig struct {
	MaxSamples int
	MaxAge     time.Duration
}

// NewInsightService builds the engine with the configured window caps.
func NewInsightService(cfg EngineConfig, metrics domrepo.Metrics) (*InsightService, error) {
	var topts []elemental.TrackerOption
	var lopts []elemental.LedgerOption
	if cfg.MaxSamples > 0 {
		topts = append(topts, elemental.TrackerMaxSamples(cfg.MaxSamples))
		lopts = append(lopts, elemental.LedgerMaxSamples(cfg.MaxSamples))
	}
	if cfg.MaxAge > 0 {
		topts = append(topts, elemental.TrackerMaxAge(cfg.MaxAge))
		lopts = append(lopts, elemental.LedgerMaxAge(cfg.MaxAge))
	}
	tracker, err := elemental.NewTracker(topts...)
	if err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}
	ledger, err := elemental.NewLedger(lopts...)
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	return &InsightService{tracker: tracker, ledger: ledger, metrics: metrics}, nil
}

// Score evaluates readings statelessly, without touching any history.
func (s *InsightService) Score(t elemental.Telemetry) elemental.Profile {
	return elemental.Score(t)
}

// RecordTelemetry scores one wire record and appends it to the entity's
// rolling history.
func (s *InsightService) RecordTelemetry(rec *models.TelemetryRecord) (elemental.Entry, error) {
	if rec == nil {
		return elemental.Entry{}, fmt.Errorf("telemetry record is nil")
	}
	return s.tracker.Record(rec.Entity, elemental.TelemetryInput(rec.Readings()), rec.Weight, rec.Time(), rec.Notes)
}

// EntityInsight merges one entity's retained history into a ranked snapshot.
func (s *InsightService) EntityInsight(entity string) (elemental.EntitySnapshot, error) {
	snap, err := s.tracker.Snapshot(entity)
	if err != nil {
		return elemental.EntitySnapshot{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordDominantScore(entity, string(snap.Dominant.Archetype), snap.Dominant.Score)
	}
	return snap, nil
}

// Entities lists the entity keys currently holding history.
func (s *InsightService) Entities() []string {
	return s.tracker.Entities()
}

// ClearEntity drops one entity's history.
func (s *InsightService) ClearEntity(entity string) {
	s.tracker.Clear(entity)
}

// Consensus merges every tracked entity's current snapshot into one cohort
// view keyed by subject. Each entity contributes its merged profile with a
// weight of its retained sample count, so steadier entities carry more say.
func (s *InsightService) Consensus(subject string) ([]elemental.ConsensusSnapshot, error) {
	if subject == "" {
		subject = "cohort"
	}
	entities := s.tracker.Entities()
	if len(entities) == 0 {
		return nil, fmt.Errorf("%w: no tracked entities", elemental.ErrEmptyState)
	}

	samples := make([]elemental.WeightedSample, 0, len(entities))
	for _, entity := range entities {
		snap, err := s.tracker.Snapshot(entity)
		if err != nil {
			continue // evicted to empty between listing and snapshot
		}
		profile, err := profileFromAggregates(snap.Aggregates)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", entity, err)
		}
		samples = append(samples, elemental.WeightedSample{
			Subject:   subject,
			Input:     elemental.ProfileInput(profile),
			Weight:    float64(snap.Samples),
			Timestamp: snap.LastSample,
			Source:    entity,
		})
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no tracked entities", elemental.ErrEmptyState)
	}
	return elemental.RunConsensus(samples)
}

// RecordContribution appends one wire contribution to the ledger.
func (s *InsightService) RecordContribution(rec *models.ContributionRecord) (elemental.Contribution, error) {
	if rec == nil {
		return elemental.Contribution{}, fmt.Errorf("contribution record is nil")
	}
	a, err := elemental.ParseArchetype(rec.Archetype)
	if err != nil {
		return elemental.Contribution{}, err
	}
	opts := []elemental.ContributionOption{elemental.WithTimestamp(rec.Time())}
	if rec.Weight != 0 {
		opts = append(opts, elemental.WithWeight(rec.Weight))
	}
	if rec.Source != "" {
		opts = append(opts, elemental.WithSource(rec.Source))
	}
	if len(rec.Metadata) > 0 {
		opts = append(opts, elemental.WithMetadata(rec.Metadata))
	}
	return s.ledger.Record(a, rec.Score, opts...)
}

// LedgerSummary aggregates one archetype's ledger history.
func (s *InsightService) LedgerSummary(a elemental.Archetype) (elemental.Summary, error) {
	return s.ledger.Summary(a)
}

// LedgerSnapshot returns the holistic cross-archetype ledger view.
func (s *InsightService) LedgerSnapshot() elemental.LedgerSnapshot {
	return s.ledger.Snapshot()
}

// EntityRow builds the persistence row for one entity's current snapshot.
func (s *InsightService) EntityRow(entity string) (*models.EntitySnapshotRow, error) {
	snap, err := s.EntityInsight(entity)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(snap.Aggregates)
	if err != nil {
		return nil, fmt.Errorf("marshal aggregates: %w", err)
	}
	return &models.EntitySnapshotRow{
		Entity:        snap.Entity,
		GeneratedAt:   snap.GeneratedAt,
		Dominant:      string(snap.Dominant.Archetype),
		DominantScore: snap.Dominant.Score,
		DominantLevel: string(snap.Dominant.Level),
		Readiness:     snap.Readiness,
		Caution:       snap.Caution,
		Recovery:      snap.Recovery,
		Stability:     snap.Stability,
		Samples:       snap.Samples,
		Payload:       payload,
	}, nil
}

// ConsensusRows builds persistence rows for the current cohort consensus.
func (s *InsightService) ConsensusRows(subject string) ([]*models.ConsensusSnapshotRow, error) {
	snaps, err := s.Consensus(subject)
	if err != nil {
		return nil, err
	}
	rows := make([]*models.ConsensusSnapshotRow, 0, len(snaps))
	for _, snap := range snaps {
		payload, err := json.Marshal(snap.Entries)
		if err != nil {
			return nil, fmt.Errorf("marshal entries: %w", err)
		}
		rows = append(rows, &models.ConsensusSnapshotRow{
			Subject:        snap.Subject,
			CreatedAt:      snap.CreatedAt,
			Dominant:       string(snap.Dominant.Archetype),
			DominantScore:  snap.Dominant.Score,
			DominantLevel:  string(snap.Dominant.Level),
			ConsensusRatio: snap.ConsensusRatio,
			ConfidenceGap:  snap.ConfidenceGap,
			Cohort:         snap.Cohort,
			Payload:        payload,
		})
	}
	return rows, nil
}

// profileFromAggregates rebuilds a profile from a ranked aggregate set so a
// merged snapshot can feed the consensus engine as one contributor.
func profileFromAggregates(aggs []elemental.ArchetypeAggregate) (elemental.Profile, error) {
	signals := make([]elemental.Signal, 0, len(aggs))
	for _, agg := range aggs {
		signals = append(signals, elemental.Signal{
			Archetype:       agg.Archetype,
			Score:           agg.Score,
			Level:           agg.Level,
			Reasons:         agg.Reasons,
			Recommendations: agg.Recommendations,
		})
	}
	return elemental.NewProfile(signals)
}
