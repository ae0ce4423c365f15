package usecase

import (
	"context"
	"encoding/json"
	"time"

	"ElemPulse/internal/domain/models"
	domrepo "ElemPulse/internal/domain/repository"
	pkgkafka "ElemPulse/pkg/kafka"
)

// KafkaContributionsHandler consumes raw ledger contributions from the
// contributions topic.
type KafkaContributionsHandler struct {
	topic    string
	insights *InsightService
	metrics  domrepo.Metrics
}

func NewKafkaContributionsHandler(topic string, insights *InsightService, metrics domrepo.Metrics) *KafkaContributionsHandler {
	return &KafkaContributionsHandler{topic: topic, insights: insights, metrics: metrics}
}

func (h *KafkaContributionsHandler) Topic() string { return h.topic }

func (h *KafkaContributionsHandler) Handle(ctx context.Context, b []byte) error {
	var rec models.ContributionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		h.metrics.RecordError("contrib_unmarshal")
		return err
	}
	if rec.Timestamp > 1e11 { // ms
		rec.Timestamp = rec.Timestamp / 1000
	}

	start := time.Now()
	if _, err := h.insights.RecordContribution(&rec); err != nil {
		h.metrics.RecordError("contrib_record")
		return err
	}
	h.metrics.RecordLatency("contrib_record_seconds", time.Since(start).Seconds())
	h.metrics.RecordMessageSent("ledger", rec.Archetype)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaContributionsHandler)(nil)
