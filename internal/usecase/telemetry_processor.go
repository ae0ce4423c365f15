package usecase

import (
	"context"
	"fmt"
	"time"

	"ElemPulse/internal/domain/models"
	drepo "ElemPulse/internal/domain/repository"
)

// TelemetryProcessor scores incoming telemetry into the engine and routes
// the result to the configured backend.
type TelemetryProcessor struct {
	insights *InsightService
	pub      drepo.Publisher
	store    drepo.SnapshotStore
	metrics  drepo.Metrics
	backend  string
	batchSz  int
	batchTO  time.Duration
}

// NewTelemetryProcessor creates a new TelemetryProcessor instance.
func NewTelemetryProcessor(
	insights *InsightService,
	pub drepo.Publisher,
	store drepo.SnapshotStore,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *TelemetryProcessor {
	return &TelemetryProcessor{
		insights: insights,
		pub:      pub,
		store:    store,
		metrics:  metrics,
		backend:  backend,
		batchSz:  batchSz,
		batchTO:  batchTO,
	}
}

// Process records one telemetry observation into the engine and routes it:
// the kafka backend republishes the raw record for downstream consumers, the
// clickhouse backend persists the entity's refreshed snapshot directly.
func (p *TelemetryProcessor) Process(ctx context.Context, rec *models.TelemetryRecord) error {
	if rec == nil {
		return fmt.Errorf("telemetry record is nil")
	}

	start := time.Now()
	if _, err := p.insights.RecordTelemetry(rec); err != nil {
		p.metrics.RecordError("engine_record")
		return fmt.Errorf("record telemetry: %w", err)
	}

	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, rec)
	case "clickhouse":
		err = p.persistSnapshot(ctx, rec.Entity)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process telemetry: %w", err)
	}

	p.metrics.RecordMessageSent(p.backend, rec.Entity)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())

	return nil
}

// ProcessBatch records and routes multiple telemetry observations.
func (p *TelemetryProcessor) ProcessBatch(ctx context.Context, records []*models.TelemetryRecord) error {
	if len(records) == 0 {
		return nil
	}

	start := time.Now()
	entities := make(map[string]bool, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if _, err := p.insights.RecordTelemetry(rec); err != nil {
			p.metrics.RecordError("engine_record")
			return fmt.Errorf("record telemetry: %w", err)
		}
		entities[rec.Entity] = true
	}

	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, records)
	case "clickhouse":
		err = p.persistSnapshots(ctx, entities)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}

	for _, rec := range records {
		if rec != nil {
			p.metrics.RecordMessageSent(p.backend, rec.Entity)
		}
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())

	return nil
}

func (p *TelemetryProcessor) persistSnapshot(ctx context.Context, entity string) error {
	row, err := p.insights.EntityRow(entity)
	if err != nil {
		return err
	}
	return p.store.StoreEntity(ctx, row)
}

func (p *TelemetryProcessor) persistSnapshots(ctx context.Context, entities map[string]bool) error {
	rows := make([]*models.EntitySnapshotRow, 0, len(entities))
	for entity := range entities {
		row, err := p.insights.EntityRow(entity)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	return p.store.StoreEntityBatch(ctx, rows)
}

// Insights exposes the engine for read paths sharing this processor.
func (p *TelemetryProcessor) Insights() *InsightService { return p.insights }

// Close closes underlying resources if available.
func (p *TelemetryProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
