package usecase

import (
	"context"
	"time"

	"ElemPulse/internal/domain/models"
	domrepo "ElemPulse/internal/domain/repository"
	applogger "ElemPulse/pkg/logger"
	"ElemPulse/pkg/queue"

	"github.com/robfig/cron/v3"
)

// SnapshotSync periodically persists every tracked entity's snapshot and the
// cohort consensus to ClickHouse. Failed writes are handed to the Redis
// queue so they retry out of band instead of blocking the schedule.
type SnapshotSync struct {
	insights *InsightService
	store    domrepo.SnapshotStore
	deferred queue.QueueService
	metrics  domrepo.Metrics
	l        *applogger.Logger

	spec    string
	subject string
	cron    *cron.Cron
}

// NewSnapshotSync creates the scheduler; spec is a standard cron expression.
func NewSnapshotSync(
	insights *InsightService,
	store domrepo.SnapshotStore,
	deferred queue.QueueService,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	spec, subject string,
) *SnapshotSync {
	return &SnapshotSync{
		insights: insights,
		store:    store,
		deferred: deferred,
		metrics:  metrics,
		l:        l,
		spec:     spec,
		subject:  subject,
		cron:     cron.New(),
	}
}

// Start registers the schedule and launches the cron runner.
func (s *SnapshotSync) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.l.Info("snapshot sync scheduled", applogger.String("spec", s.spec))
	return nil
}

// Stop halts the schedule; a running sync finishes first.
func (s *SnapshotSync) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

// RunOnce persists the current state of every tracked entity plus the
// cohort consensus.
func (s *SnapshotSync) RunOnce(ctx context.Context) {
	start := time.Now()
	entities := s.insights.Entities()
	if len(entities) == 0 {
		return
	}

	rows := make([]*models.EntitySnapshotRow, 0, len(entities))
	for _, entity := range entities {
		row, err := s.insights.EntityRow(entity)
		if err != nil {
			// entity evicted to empty between listing and snapshot
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) > 0 {
		if err := s.store.StoreEntityBatch(ctx, rows); err != nil {
			s.metrics.RecordError("sync_entity_store")
			s.l.Warn("entity snapshot persist failed, deferring",
				applogger.Int("rows", len(rows)), applogger.Error(err))
			s.enqueueRetry(ctx, TypePersistEntitySnapshots, rows)
		}
	}

	consensus, err := s.insights.ConsensusRows(s.subject)
	if err != nil {
		s.metrics.RecordError("sync_consensus_build")
		s.l.Warn("consensus build failed", applogger.Error(err))
	} else {
		for _, row := range consensus {
			if err := s.store.StoreConsensus(ctx, row); err != nil {
				s.metrics.RecordError("sync_consensus_store")
				s.l.Warn("consensus persist failed, deferring",
					applogger.String("subject", row.Subject), applogger.Error(err))
				s.enqueueRetry(ctx, TypePersistConsensusSnapshot, row)
			}
		}
	}

	s.metrics.RecordLatency("snapshot_sync", time.Since(start).Seconds())
	s.l.Info("snapshot sync complete",
		applogger.Int("entities", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
}

func (s *SnapshotSync) enqueueRetry(ctx context.Context, msgType string, payload interface{}) {
	if s.deferred == nil {
		return
	}
	if err := s.deferred.PublishMessage(ctx, msgType, payload); err != nil {
		s.metrics.RecordError("sync_defer")
		s.l.Error("deferred persist enqueue failed", applogger.Error(err))
	}
}
