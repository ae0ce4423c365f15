package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ElemPulse/internal/domain/models"
	"ElemPulse/internal/domain/repository"
	pkgkafka "ElemPulse/pkg/kafka"
)

// ClickHouseSnapshotStore implements SnapshotStore for ClickHouse.
type ClickHouseSnapshotStore struct {
	db             *sql.DB
	entityTable    string
	consensusTable string
}

// NewClickHouseSnapshotStore creates ClickHouse snapshot storage.
func NewClickHouseSnapshotStore(db *sql.DB, entityTable, consensusTable string) repository.SnapshotStore {
	return &ClickHouseSnapshotStore{db: db, entityTable: entityTable, consensusTable: consensusTable}
}

func (s *ClickHouseSnapshotStore) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseSnapshotStore) StoreEntity(ctx context.Context, row *models.EntitySnapshotRow) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, entity, dominant, dominant_score, dominant_level, readiness, caution, recovery, stability, samples, payload, event_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.entityTable)
	// Idempotency key derived from entity+generation time
	eventID := fmt.Sprintf("%s-%d", row.Entity, row.GeneratedAt.UnixNano())
	_, err := s.db.ExecContext(ctx, q,
		row.GeneratedAt,
		row.Entity,
		row.Dominant,
		row.DominantScore,
		row.DominantLevel,
		row.Readiness,
		row.Caution,
		row.Recovery,
		row.Stability,
		uint32(row.Samples),
		string(row.Payload),
		eventID,
	)
	return err
}

func (s *ClickHouseSnapshotStore) StoreEntityBatch(ctx context.Context, rows []*models.EntitySnapshotRow) error {
	if len(rows) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	const chunkSize = 500
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*12)
		for _, row := range rows[start:end] {
			if row == nil || row.Entity == "" || row.GeneratedAt.IsZero() {
				continue
			}
			eventID := fmt.Sprintf("%s-%d", row.Entity, row.GeneratedAt.UnixNano())
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				row.GeneratedAt,
				row.Entity,
				row.Dominant,
				row.DominantScore,
				row.DominantLevel,
				row.Readiness,
				row.Caution,
				row.Recovery,
				row.Stability,
				uint32(row.Samples),
				string(row.Payload),
				eventID,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, entity, dominant, dominant_score, dominant_level, readiness, caution, recovery, stability, samples, payload, event_id) VALUES %s",
			s.entityTable, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseSnapshotStore) StoreConsensus(ctx context.Context, row *models.ConsensusSnapshotRow) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, subject, dominant, dominant_score, dominant_level, consensus_ratio, confidence_gap, cohort, payload, event_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.consensusTable)
	eventID := fmt.Sprintf("%s-%d", row.Subject, row.CreatedAt.UnixNano())
	_, err := s.db.ExecContext(ctx, q,
		row.CreatedAt,
		row.Subject,
		row.Dominant,
		row.DominantScore,
		row.DominantLevel,
		row.ConsensusRatio,
		row.ConfidenceGap,
		uint32(row.Cohort),
		string(row.Payload),
		eventID,
	)
	return err
}

func (s *ClickHouseSnapshotStore) QueryEntity(ctx context.Context, entity string, from, to time.Time, limit int) ([]*models.EntitySnapshotRow, error) {
	q := fmt.Sprintf("SELECT ts, entity, dominant, dominant_score, dominant_level, readiness, caution, recovery, stability, samples, payload FROM %s WHERE entity = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", s.entityTable)
	rows, err := s.db.QueryContext(ctx, q, entity, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.EntitySnapshotRow
	for rows.Next() {
		var r models.EntitySnapshotRow
		var samples uint32
		var payload string
		if err := rows.Scan(&r.GeneratedAt, &r.Entity, &r.Dominant, &r.DominantScore, &r.DominantLevel,
			&r.Readiness, &r.Caution, &r.Recovery, &r.Stability, &samples, &payload); err != nil {
			return nil, err
		}
		r.Samples = int(samples)
		r.Payload = []byte(payload)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *ClickHouseSnapshotStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseSnapshotStore) Close() error {
	return nil // Managed by pkg
}

// KafkaTelemetryPublisher implements Publisher for Kafka.
type KafkaTelemetryPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaTelemetryPublisher creates Kafka publisher.
func NewKafkaTelemetryPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaTelemetryPublisher{producer: producer, topic: topic}
}

func (p *KafkaTelemetryPublisher) Publish(ctx context.Context, r *models.TelemetryRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.Entity), r)
}

func (p *KafkaTelemetryPublisher) PublishBatch(ctx context.Context, records []*models.TelemetryRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(records))
	for i, r := range records {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(r.Entity),
			Value: r,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaTelemetryPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
