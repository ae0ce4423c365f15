package usecase

import (
	"context"

	"ElemPulse/internal/domain/models"
	domrepo "ElemPulse/internal/domain/repository"
	applogger "ElemPulse/pkg/logger"
	"ElemPulse/pkg/queue"
)

// Message types for deferred snapshot persistence on the Redis queue.
const (
	TypePersistEntitySnapshots   = "persist_entity_snapshots"
	TypePersistConsensusSnapshot = "persist_consensus_snapshot"
)

// PersistEntitySnapshotsJob retries entity snapshot rows that failed their
// direct ClickHouse write.
type PersistEntitySnapshotsJob struct {
	store domrepo.SnapshotStore
	l     *applogger.Logger
}

func NewPersistEntitySnapshotsJob(store domrepo.SnapshotStore, l *applogger.Logger) *PersistEntitySnapshotsJob {
	return &PersistEntitySnapshotsJob{store: store, l: l}
}

func (j *PersistEntitySnapshotsJob) Name() string { return "persist-entity-snapshots" }
func (j *PersistEntitySnapshotsJob) Type() string { return TypePersistEntitySnapshots }

func (j *PersistEntitySnapshotsJob) Handle(ctx context.Context, payload interface{}) error {
	rows, err := queue.ParsePayload[[]*models.EntitySnapshotRow](payload)
	if err != nil {
		return err
	}
	if err := j.store.StoreEntityBatch(ctx, *rows); err != nil {
		j.l.Warn("deferred entity snapshot persist failed",
			applogger.Int("rows", len(*rows)), applogger.Error(err))
		return err
	}
	j.l.Info("deferred entity snapshots persisted", applogger.Int("rows", len(*rows)))
	return nil
}

var _ queue.Job = (*PersistEntitySnapshotsJob)(nil)

// PersistConsensusSnapshotJob retries one consensus snapshot row.
type PersistConsensusSnapshotJob struct {
	store domrepo.SnapshotStore
	l     *applogger.Logger
}

func NewPersistConsensusSnapshotJob(store domrepo.SnapshotStore, l *applogger.Logger) *PersistConsensusSnapshotJob {
	return &PersistConsensusSnapshotJob{store: store, l: l}
}

func (j *PersistConsensusSnapshotJob) Name() string { return "persist-consensus-snapshot" }
func (j *PersistConsensusSnapshotJob) Type() string { return TypePersistConsensusSnapshot }

func (j *PersistConsensusSnapshotJob) Handle(ctx context.Context, payload interface{}) error {
	row, err := queue.ParsePayload[models.ConsensusSnapshotRow](payload)
	if err != nil {
		return err
	}
	if err := j.store.StoreConsensus(ctx, row); err != nil {
		j.l.Warn("deferred consensus persist failed",
			applogger.String("subject", row.Subject), applogger.Error(err))
		return err
	}
	return nil
}

var _ queue.Job = (*PersistConsensusSnapshotJob)(nil)
