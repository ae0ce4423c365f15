package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ElemPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu      sync.Mutex
	single  []*models.TelemetryRecord
	batches [][]*models.TelemetryRecord
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, r *models.TelemetryRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.single = append(p.single, r)
	return nil
}

func (p *fakePublisher) PublishBatch(_ context.Context, records []*models.TelemetryRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, records)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeSnapshotStore struct {
	mu        sync.Mutex
	rows      []*models.EntitySnapshotRow
	batches   [][]*models.EntitySnapshotRow
	consensus []*models.ConsensusSnapshotRow
	err       error
}

func (s *fakeSnapshotStore) Init(context.Context) error { return nil }

func (s *fakeSnapshotStore) StoreEntity(_ context.Context, row *models.EntitySnapshotRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, row)
	return nil
}

func (s *fakeSnapshotStore) StoreEntityBatch(_ context.Context, rows []*models.EntitySnapshotRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, rows)
	return nil
}

func (s *fakeSnapshotStore) StoreConsensus(_ context.Context, row *models.ConsensusSnapshotRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.consensus = append(s.consensus, row)
	return nil
}

func (s *fakeSnapshotStore) QueryEntity(context.Context, string, time.Time, time.Time, int) ([]*models.EntitySnapshotRow, error) {
	return nil, nil
}

func (s *fakeSnapshotStore) Health(context.Context) error { return nil }
func (s *fakeSnapshotStore) Close() error                 { return nil }

type recordingMetrics struct {
	mu     sync.Mutex
	errors map[string]int
	sent   map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{errors: map[string]int{}, sent: map[string]int{}}
}

func (m *recordingMetrics) RecordMessageSent(backend, entity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[backend+"/"+entity]++
}

func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *recordingMetrics) RecordDominantScore(entity, archetype string, score float64) {}
func (m *recordingMetrics) RecordLatency(op string, seconds float64)                    {}

func testRecord(entity string, stress float64) *models.TelemetryRecord {
	return &models.TelemetryRecord{
		Entity:      entity,
		Timestamp:   time.Now().Unix(),
		StressIndex: &stress,
	}
}

func newTestProcessor(t *testing.T, backend string, pub *fakePublisher, store *fakeSnapshotStore, m *recordingMetrics) *TelemetryProcessor {
	t.Helper()
	insights, err := NewInsightService(EngineConfig{}, m)
	require.NoError(t, err)
	return NewTelemetryProcessor(insights, pub, store, m, backend, 100, time.Second)
}

func TestProcessKafkaBackendRepublishes(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeSnapshotStore{}
	m := newRecordingMetrics()
	p := newTestProcessor(t, "kafka", pub, store, m)

	rec := testRecord("desk-a", 0.8)
	require.NoError(t, p.Process(context.Background(), rec))

	require.Len(t, pub.single, 1)
	assert.Equal(t, "desk-a", pub.single[0].Entity)
	assert.Empty(t, store.rows)
	assert.Equal(t, 1, m.sent["kafka/desk-a"])

	// the engine recorded the observation regardless of backend
	snap, err := p.Insights().EntityInsight("desk-a")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Samples)
}

func TestProcessClickHouseBackendPersistsSnapshot(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeSnapshotStore{}
	m := newRecordingMetrics()
	p := newTestProcessor(t, "clickhouse", pub, store, m)

	require.NoError(t, p.Process(context.Background(), testRecord("desk-a", 0.8)))

	require.Len(t, store.rows, 1)
	row := store.rows[0]
	assert.Equal(t, "desk-a", row.Entity)
	assert.NotEmpty(t, row.Dominant)
	assert.Equal(t, 1, row.Samples)
	assert.NotEmpty(t, row.Payload)
	assert.Empty(t, pub.single)
}

func TestProcessUnknownBackendFails(t *testing.T) {
	m := newRecordingMetrics()
	p := newTestProcessor(t, "carrier-pigeon", &fakePublisher{}, &fakeSnapshotStore{}, m)

	err := p.Process(context.Background(), testRecord("desk-a", 0.5))
	require.Error(t, err)
	assert.Equal(t, 1, m.errors["process"])
}

func TestProcessRejectsInvalidTelemetry(t *testing.T) {
	m := newRecordingMetrics()
	p := newTestProcessor(t, "kafka", &fakePublisher{}, &fakeSnapshotStore{}, m)

	require.Error(t, p.Process(context.Background(), nil))

	bad := testRecord("", 0.5)
	err := p.Process(context.Background(), bad)
	require.Error(t, err)
	assert.Equal(t, 1, m.errors["engine_record"])
}

func TestProcessBatchDeduplicatesEntities(t *testing.T) {
	pub := &fakePublisher{}
	store := &fakeSnapshotStore{}
	m := newRecordingMetrics()
	p := newTestProcessor(t, "clickhouse", pub, store, m)

	records := []*models.TelemetryRecord{
		testRecord("desk-a", 0.2),
		testRecord("desk-a", 0.4),
		testRecord("desk-b", 0.6),
		nil,
	}
	require.NoError(t, p.ProcessBatch(context.Background(), records))

	// one row per distinct entity, not per record
	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0], 2)

	snap, err := p.Insights().EntityInsight("desk-a")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Samples)
}

func TestProcessBatchKafkaPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	m := newRecordingMetrics()
	p := newTestProcessor(t, "kafka", pub, &fakeSnapshotStore{}, m)

	err := p.ProcessBatch(context.Background(), []*models.TelemetryRecord{testRecord("desk-a", 0.3)})
	require.Error(t, err)
	assert.Equal(t, 1, m.errors["process_batch"])
}
