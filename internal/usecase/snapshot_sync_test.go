package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	applogger "ElemPulse/pkg/logger"
	"ElemPulse/pkg/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu       sync.Mutex
	messages map[string]int
}

func newFakeQueue() *fakeQueue { return &fakeQueue{messages: map[string]int{}} }

func (q *fakeQueue) PublishMessage(_ context.Context, msgType string, _ interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages[msgType]++
	return nil
}

func (q *fakeQueue) count(msgType string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.messages[msgType]
}

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	require.NoError(t, err)
	return l
}

func syncFixture(t *testing.T, store *fakeSnapshotStore, q *fakeQueue) (*SnapshotSync, *InsightService) {
	t.Helper()
	m := newRecordingMetrics()
	insights, err := NewInsightService(EngineConfig{}, m)
	require.NoError(t, err)
	var svc queue.QueueService
	if q != nil {
		svc = q
	}
	s := NewSnapshotSync(insights, store, svc, m, testLogger(t), "*/5 * * * *", "cohort")
	return s, insights
}

func TestRunOncePersistsEntityAndConsensusRows(t *testing.T) {
	store := &fakeSnapshotStore{}
	s, insights := syncFixture(t, store, nil)

	stress := 0.8
	_, err := insights.RecordTelemetry(testRecord("desk-a", stress))
	require.NoError(t, err)
	_, err = insights.RecordTelemetry(testRecord("desk-b", 0.2))
	require.NoError(t, err)

	s.RunOnce(context.Background())

	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0], 2)
	require.Len(t, store.consensus, 1)
	assert.Equal(t, "cohort", store.consensus[0].Subject)
	assert.Equal(t, 2, store.consensus[0].Cohort)
}

func TestRunOnceNoEntitiesIsNoop(t *testing.T) {
	store := &fakeSnapshotStore{}
	s, _ := syncFixture(t, store, nil)

	s.RunOnce(context.Background())

	assert.Empty(t, store.batches)
	assert.Empty(t, store.consensus)
}

func TestRunOnceDefersFailedWrites(t *testing.T) {
	store := &fakeSnapshotStore{err: errors.New("clickhouse down")}
	q := newFakeQueue()
	s, insights := syncFixture(t, store, q)

	_, err := insights.RecordTelemetry(testRecord("desk-a", 0.5))
	require.NoError(t, err)

	s.RunOnce(context.Background())

	assert.Equal(t, 1, q.count(TypePersistEntitySnapshots))
	assert.Equal(t, 1, q.count(TypePersistConsensusSnapshot))
}
