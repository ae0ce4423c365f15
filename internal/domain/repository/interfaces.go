package repository

import (
	"context"
	"time"

	"ElemPulse/internal/domain/models"
)

type TelemetryStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.TelemetryRecord, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Publisher interface {
	Publish(ctx context.Context, r *models.TelemetryRecord) error
	PublishBatch(ctx context.Context, records []*models.TelemetryRecord) error
	Close() error
}

type SnapshotStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreEntity(ctx context.Context, row *models.EntitySnapshotRow) error
	StoreEntityBatch(ctx context.Context, rows []*models.EntitySnapshotRow) error
	StoreConsensus(ctx context.Context, row *models.ConsensusSnapshotRow) error
	QueryEntity(ctx context.Context, entity string, from, to time.Time, limit int) ([]*models.EntitySnapshotRow, error)
	Health(ctx context.Context) error // ping
	Close() error
}

type Metrics interface {
	RecordMessageSent(backend, entity string)
	RecordError(kind string)
	RecordDominantScore(entity, archetype string, score float64)
	RecordLatency(op string, seconds float64)
}
