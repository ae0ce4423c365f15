package usecase

import (
	"context"
	"fmt"
	"time"

	"ElemPulse/internal/domain/models"
	domrepo "ElemPulse/internal/domain/repository"
	pkgcache "ElemPulse/pkg/cache"
)

// HistoryUseCase provides business logic for retrieving persisted snapshots.
type HistoryUseCase struct {
	store    domrepo.HistoryStore
	cache    pkgcache.Service
	cacheTTL time.Duration
}

func NewHistoryUseCase(store domrepo.HistoryStore) *HistoryUseCase {
	return &HistoryUseCase{store: store, cacheTTL: 30 * time.Second}
}

// SetCache enables query-result caching.
func (uc *HistoryUseCase) SetCache(c pkgcache.Service, ttl time.Duration) {
	uc.cache = c
	if ttl > 0 {
		uc.cacheTTL = ttl
	}
}

type GetHistoryParams struct {
	Entity      string
	From        time.Time
	To          time.Time
	Granularity domrepo.Granularity
	Limit       int
}

type GetHistoryResult struct {
	Entity      string
	Granularity string
	From        time.Time
	To          time.Time
	Count       int
	Snapshots   []models.EntitySnapshotRow
}

func (uc *HistoryUseCase) GetHistory(ctx context.Context, p GetHistoryParams) (*GetHistoryResult, error) {
	if p.Entity == "" {
		return nil, fmt.Errorf("entity required")
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if p.Limit <= 0 {
		p.Limit = 500
	}
	if p.Limit > 5000 {
		p.Limit = 5000
	}

	key := pkgcache.GenerateKeyWithParams("history",
		p.Entity, string(p.Granularity), p.From.Unix(), p.To.Unix(), p.Limit)
	if uc.cache != nil {
		var cached GetHistoryResult
		if err := uc.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	snapshots, err := uc.store.GetSnapshots(ctx, p.Entity, p.From, p.To, p.Granularity)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	if len(snapshots) > p.Limit {
		snapshots = snapshots[:p.Limit]
	}

	res := &GetHistoryResult{
		Entity:      p.Entity,
		Granularity: string(p.Granularity),
		From:        p.From,
		To:          p.To,
		Count:       len(snapshots),
		Snapshots:   snapshots,
	}
	if uc.cache != nil {
		_ = uc.cache.Set(ctx, key, res, uc.cacheTTL)
	}
	return res, nil
}

// Latest returns the newest n snapshots oldest-first.
func (uc *HistoryUseCase) Latest(ctx context.Context, entity string, n int, g domrepo.Granularity) ([]models.EntitySnapshotRow, error) {
	if entity == "" {
		return nil, fmt.Errorf("entity required")
	}
	if n <= 0 {
		n = 100
	}
	return uc.store.GetLatestNSnapshots(ctx, entity, n, g)
}
