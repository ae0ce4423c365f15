package usecase

import (
	"context"
	"encoding/json"
	"time"

	"ElemPulse/internal/domain/models"
	domrepo "ElemPulse/internal/domain/repository"
	pkgkafka "ElemPulse/pkg/kafka"
)

// KafkaTelemetryHandler consumes telemetry messages, folds them into the
// engine, and persists the refreshed entity snapshot.
type KafkaTelemetryHandler struct {
	topic    string
	insights *InsightService
	store    domrepo.SnapshotStore
	metrics  domrepo.Metrics
}

func NewKafkaTelemetryHandler(topic string, insights *InsightService, store domrepo.SnapshotStore, metrics domrepo.Metrics) *KafkaTelemetryHandler {
	return &KafkaTelemetryHandler{topic: topic, insights: insights, store: store, metrics: metrics}
}

func (h *KafkaTelemetryHandler) Topic() string { return h.topic }

func (h *KafkaTelemetryHandler) Handle(ctx context.Context, b []byte) error {
	var rec models.TelemetryRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if rec.Timestamp > 1e11 { // ms
		rec.Timestamp = rec.Timestamp / 1000
	}
	// E2E latency from event time to now (approx)
	if rec.Timestamp > 0 {
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(rec.Timestamp, 0)).Seconds())
	}

	if _, err := h.insights.RecordTelemetry(&rec); err != nil {
		h.metrics.RecordError("consumer_engine_record")
		return err
	}

	start := time.Now()
	row, err := h.insights.EntityRow(rec.Entity)
	if err != nil {
		h.metrics.RecordError("consumer_snapshot")
		return err
	}
	err = h.store.StoreEntity(ctx, row)
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordMessageSent("clickhouse", rec.Entity)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTelemetryHandler)(nil)
