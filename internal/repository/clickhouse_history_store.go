package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ElemPulse/internal/domain/models"
	domrepo "ElemPulse/internal/domain/repository"
	pkgch "ElemPulse/pkg/clickhouse"
	applogger "ElemPulse/pkg/logger"
)

// CHHistoryStore implements HistoryStore backed by ClickHouse.
type CHHistoryStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHHistoryStore(ch *pkgch.Client) *CHHistoryStore {
	return &CHHistoryStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHHistoryStore) SetLogger(l *applogger.Logger) { s.l = l }

const historyColumns = "ts, entity, dominant, dominant_score, dominant_level, readiness, caution, recovery, stability, samples, payload"

func (s *CHHistoryStore) GetSnapshots(ctx context.Context, entity string, from, to time.Time, g domrepo.Granularity) ([]models.EntitySnapshotRow, error) {
	start := time.Now()
	table, err := tableForGranularity(g)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
        SELECT %s
        FROM %s
        WHERE entity = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC
    `, historyColumns, table)
	rows, err := s.db.QueryContext(ctx, q, entity, from, to)
	if err != nil {
		s.logError("history get_snapshots query error", table, entity, g, err)
		return nil, fmt.Errorf("get snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]models.EntitySnapshotRow, 0, 256)
	for rows.Next() {
		r, err := scanSnapshotRow(rows)
		if err != nil {
			s.logError("history get_snapshots scan error", table, entity, g, err)
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		s.logError("history get_snapshots rows error", table, entity, g, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("history get_snapshots ok",
			applogger.String("table", table),
			applogger.String("entity", entity),
			applogger.String("granularity", string(g)),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHHistoryStore) GetLatestNSnapshots(ctx context.Context, entity string, n int, g domrepo.Granularity) ([]models.EntitySnapshotRow, error) {
	start := time.Now()
	table, err := tableForGranularity(g)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
        SELECT %s
        FROM %s
        WHERE entity = ?
        ORDER BY ts DESC
        LIMIT ?
    `, historyColumns, table)
	rows, err := s.db.QueryContext(ctx, q, entity, n)
	if err != nil {
		s.logError("history latest_snapshots query error", table, entity, g, err)
		return nil, fmt.Errorf("get latest snapshots: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.EntitySnapshotRow, 0, n)
	for rows.Next() {
		r, err := scanSnapshotRow(rows)
		if err != nil {
			s.logError("history latest_snapshots scan error", table, entity, g, err)
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		tmp = append(tmp, r)
	}
	if err := rows.Err(); err != nil {
		s.logError("history latest_snapshots rows error", table, entity, g, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Info("history latest_snapshots ok",
			applogger.String("table", table),
			applogger.String("entity", entity),
			applogger.String("granularity", string(g)),
			applogger.Int("limit", n),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

func (s *CHHistoryStore) logError(msg, table, entity string, g domrepo.Granularity, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", table),
		applogger.String("entity", entity),
		applogger.String("granularity", string(g)),
		applogger.Error(err),
	)
}

func scanSnapshotRow(rows *sql.Rows) (models.EntitySnapshotRow, error) {
	var r models.EntitySnapshotRow
	var samples uint32
	var payload string
	if err := rows.Scan(&r.GeneratedAt, &r.Entity, &r.Dominant, &r.DominantScore, &r.DominantLevel,
		&r.Readiness, &r.Caution, &r.Recovery, &r.Stability, &samples, &payload); err != nil {
		return models.EntitySnapshotRow{}, err
	}
	r.Samples = int(samples)
	r.Payload = []byte(payload)
	return r, nil
}

func tableForGranularity(g domrepo.Granularity) (string, error) {
	switch g {
	case domrepo.GRaw:
		return "elempulse.entity_snapshots", nil
	case domrepo.G1h:
		return "elempulse.entity_snapshots_1h", nil
	case domrepo.G1d:
		// fold to 1h for now; daily rollups can be aggregated in-memory if needed
		return "elempulse.entity_snapshots_1h", nil
	default:
		return "", fmt.Errorf("unsupported granularity: %s", g)
	}
}
