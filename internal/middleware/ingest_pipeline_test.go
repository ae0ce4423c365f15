package middleware

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

type fakeProc struct {
	mu   sync.Mutex
	recs []*models.TelemetryRecord
	err  error
}

func (p *fakeProc) Process(_ context.Context, rec *models.TelemetryRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.recs = append(p.recs, rec)
	return nil
}

func (p *fakeProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.recs)
}

type fakeMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{errors: map[string]int{}} }

func (m *fakeMetrics) RecordMessageSent(backend, entity string) {}
func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}
func (m *fakeMetrics) RecordDominantScore(entity, archetype string, score float64) {}
func (m *fakeMetrics) RecordLatency(op string, seconds float64)                    {}

func (m *fakeMetrics) errCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func record(entity string) *models.TelemetryRecord {
	stress := 0.4
	return &models.TelemetryRecord{Entity: entity, Timestamp: time.Now().Unix(), StressIndex: &stress}
}

func TestPipelineProcessForwardsValidRecord(t *testing.T) {
	proc := &fakeProc{}
	m := newFakeMetrics()
	p := NewIngestPipeline(proc, m)

	require.NoError(t, p.Process(context.Background(), record("desk-a")))
	assert.Equal(t, 1, proc.count())
}

func TestPipelineProcessRejectsInvalidRecords(t *testing.T) {
	proc := &fakeProc{}
	m := newFakeMetrics()
	p := NewIngestPipeline(proc, m)

	assert.Error(t, p.Process(context.Background(), nil))
	assert.Error(t, p.Process(context.Background(), &models.TelemetryRecord{Entity: ""}))
	assert.Error(t, p.Process(context.Background(), &models.TelemetryRecord{Entity: "desk-a", Timestamp: -1}))
	assert.Error(t, p.Process(context.Background(), &models.TelemetryRecord{Entity: "desk-a", Weight: -1}))
	assert.Equal(t, 4, m.errCount("pipeline_validate"))
	assert.Equal(t, 0, proc.count())
}

func TestPipelineThrottlesPerEntity(t *testing.T) {
	proc := &fakeProc{}
	m := newFakeMetrics()
	p := NewIngestPipeline(proc, m, WithMaxRPS(1))

	require.NoError(t, p.Process(context.Background(), record("desk-a")))
	// second record for the same entity inside the window is dropped silently
	require.NoError(t, p.Process(context.Background(), record("desk-a")))
	assert.Equal(t, 1, proc.count())
	assert.Equal(t, 1, m.errCount("pipeline_throttle"))

	// a different entity is unaffected
	require.NoError(t, p.Process(context.Background(), record("desk-b")))
	assert.Equal(t, 2, proc.count())
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &fakeProc{err: errors.New("downstream down")}
	m := newFakeMetrics()
	p := NewIngestPipeline(proc, m, WithBufferSize(4))

	err := p.Process(context.Background(), record("desk-a"))
	require.Error(t, err)
	assert.Equal(t, 1, m.errCount("pipeline_process"))
	assert.Equal(t, 1, len(p.bufCh))
}

func TestPipelineTransformAppliesBeforeValidation(t *testing.T) {
	proc := &fakeProc{}
	m := newFakeMetrics()
	p := NewIngestPipeline(proc, m, WithTransform(func(r *models.TelemetryRecord) *models.TelemetryRecord {
		r.Entity = "rewritten"
		return r
	}))

	require.NoError(t, p.Process(context.Background(), record("desk-a")))
	require.Equal(t, 1, proc.count())
	assert.Equal(t, "rewritten", proc.recs[0].Entity)
}

func TestPipelineStartFlushesBuffer(t *testing.T) {
	proc := &fakeProc{err: errors.New("down")}
	m := newFakeMetrics()
	p := NewIngestPipeline(proc, m, WithBufferSize(4))

	_ = p.Process(context.Background(), record("desk-a"))
	require.Equal(t, 1, len(p.bufCh))

	// downstream recovers; the flusher drains the buffer
	proc.mu.Lock()
	proc.err = nil
	proc.mu.Unlock()

	p.Start(context.Background())
	defer p.Stop()

	assert.Eventually(t, func() bool { return proc.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}
