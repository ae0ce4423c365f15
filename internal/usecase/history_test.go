package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ElemPulse/internal/domain/models"
	domrepo "ElemPulse/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistoryStore struct {
	rows  []models.EntitySnapshotRow
	err   error
	calls int
}

func (f *fakeHistoryStore) GetSnapshots(ctx context.Context, entity string, from, to time.Time, g domrepo.Granularity) ([]models.EntitySnapshotRow, error) {
	f.calls++
	return f.rows, f.err
}

func (f *fakeHistoryStore) GetLatestNSnapshots(ctx context.Context, entity string, n int, g domrepo.Granularity) ([]models.EntitySnapshotRow, error) {
	f.calls++
	if n < len(f.rows) {
		return f.rows[len(f.rows)-n:], f.err
	}
	return f.rows, f.err
}

func historyRows(n int) []models.EntitySnapshotRow {
	rows := make([]models.EntitySnapshotRow, n)
	for i := range rows {
		rows[i] = models.EntitySnapshotRow{Entity: "desk-a", GeneratedAt: time.Now().Add(time.Duration(i) * time.Minute)}
	}
	return rows
}

func TestGetHistoryValidatesParams(t *testing.T) {
	uc := NewHistoryUseCase(&fakeHistoryStore{})
	now := time.Now()

	_, err := uc.GetHistory(context.Background(), GetHistoryParams{From: now.Add(-time.Hour), To: now})
	assert.Error(t, err)

	_, err = uc.GetHistory(context.Background(), GetHistoryParams{Entity: "desk-a", From: now, To: now.Add(-time.Hour)})
	assert.Error(t, err)
}

func TestGetHistoryReturnsRowsWithDefaults(t *testing.T) {
	store := &fakeHistoryStore{rows: historyRows(3)}
	uc := NewHistoryUseCase(store)
	now := time.Now()

	res, err := uc.GetHistory(context.Background(), GetHistoryParams{
		Entity:      "desk-a",
		From:        now.Add(-time.Hour),
		To:          now,
		Granularity: domrepo.GRaw,
	})
	require.NoError(t, err)
	assert.Equal(t, "desk-a", res.Entity)
	assert.Equal(t, "raw", res.Granularity)
	assert.Equal(t, 3, res.Count)
	assert.Len(t, res.Snapshots, 3)
}

func TestGetHistoryCapsLimit(t *testing.T) {
	store := &fakeHistoryStore{rows: historyRows(10)}
	uc := NewHistoryUseCase(store)
	now := time.Now()

	res, err := uc.GetHistory(context.Background(), GetHistoryParams{
		Entity: "desk-a",
		From:   now.Add(-time.Hour),
		To:     now,
		Limit:  4,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Count)
}

func TestGetHistoryWrapsStoreError(t *testing.T) {
	boom := errors.New("connection refused")
	uc := NewHistoryUseCase(&fakeHistoryStore{err: boom})
	now := time.Now()

	_, err := uc.GetHistory(context.Background(), GetHistoryParams{
		Entity: "desk-a",
		From:   now.Add(-time.Hour),
		To:     now,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestLatestDefaultsCount(t *testing.T) {
	store := &fakeHistoryStore{rows: historyRows(2)}
	uc := NewHistoryUseCase(store)

	rows, err := uc.Latest(context.Background(), "desk-a", 0, domrepo.G1h)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	_, err = uc.Latest(context.Background(), "", 5, domrepo.G1h)
	assert.Error(t, err)
}
