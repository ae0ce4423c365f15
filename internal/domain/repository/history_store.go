package repository

import (
	"context"
	"time"

	"ElemPulse/internal/domain/models"
)

// HistoryStore provides read-only access to persisted entity snapshots.
type HistoryStore interface {
	GetSnapshots(ctx context.Context, entity string, from, to time.Time, g Granularity) ([]models.EntitySnapshotRow, error)
	GetLatestNSnapshots(ctx context.Context, entity string, n int, g Granularity) ([]models.EntitySnapshotRow, error)
}
