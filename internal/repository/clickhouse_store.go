package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"TickerPulse/internal/domain/models"
	drepo "TickerPulse/internal/domain/repository"
	pkgch "TickerPulse/pkg/clickhouse"
)

const (
	mentionsTable = "ticker_mentions"
	ticksTable    = "window_ticks"

	insertChunk       = 2000
	defaultQueryLimit = 1000
)

// Schema is the idempotent DDL for the tables this store writes.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS ` + mentionsTable + ` (
		run_id       String,
		generated_at DateTime64(3, 'UTC'),
		source       LowCardinality(String),
		rank         UInt32,
		ticker       LowCardinality(String),
		name         String,
		mentions     UInt32
	) ENGINE = MergeTree
	ORDER BY (generated_at, rank)`,
	`CREATE TABLE IF NOT EXISTS ` + ticksTable + ` (
		ts          DateTime64(3, 'UTC'),
		symbol      LowCardinality(String),
		price       Float64,
		volume      Float64,
		call_volume Float64,
		put_volume  Float64,
		call_diff   Float64,
		put_diff    Float64,
		volume_diff Float64
	) ENGINE = ReplacingMergeTree
	ORDER BY (symbol, ts)
	TTL toDateTime(ts) + INTERVAL 30 DAY`,
}

// ClickHouseStore persists reports and window ticks.
type ClickHouseStore struct {
	client *pkgch.Client
	db     *sql.DB
}

func NewClickHouseStore(client *pkgch.Client) *ClickHouseStore {
	return &ClickHouseStore{client: client, db: client.DB()}
}

func (s *ClickHouseStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, Schema)
}

// StoreReport writes one row per ranked entry.
func (s *ClickHouseStore) StoreReport(ctx context.Context, r *models.Report) error {
	if r == nil || len(r.Entries) == 0 {
		return nil
	}
	for start := 0; start < len(r.Entries); start += insertChunk {
		end := min(start+insertChunk, len(r.Entries))

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for i, e := range r.Entries[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, r.RunID, r.GeneratedAt, r.Source, uint32(start+i+1), e.Ticker, e.Name, uint32(e.Count))
		}
		q := fmt.Sprintf("INSERT INTO %s (run_id, generated_at, source, rank, ticker, name, mentions) VALUES %s",
			mentionsTable, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store report %s: %w", r.RunID, err)
		}
	}
	return nil
}

func (s *ClickHouseStore) StoreTick(ctx context.Context, symbol string, p models.WindowPoint) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, volume, call_volume, put_volume, call_diff, put_diff, volume_diff) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", ticksTable)
	_, err := s.db.ExecContext(ctx, q,
		p.Timestamp.UTC(), symbol,
		p.Price, p.Volume, p.CallVolume, p.PutVolume,
		p.CallDiff, p.PutDiff, p.VolumeDiff,
	)
	if err != nil {
		return fmt.Errorf("store tick %s: %w", symbol, err)
	}
	return nil
}

// QueryTicks returns points in [from, to] oldest first.
func (s *ClickHouseStore) QueryTicks(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.WindowPoint, error) {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	q := fmt.Sprintf("SELECT ts, price, volume, call_volume, put_volume, call_diff, put_diff, volume_diff FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts ASC LIMIT ?", ticksTable)
	rows, err := s.db.QueryContext(ctx, q, symbol, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query ticks %s: %w", symbol, err)
	}
	defer rows.Close()

	points := []models.WindowPoint{}
	for rows.Next() {
		var p models.WindowPoint
		if err := rows.Scan(&p.Timestamp, &p.Price, &p.Volume, &p.CallVolume, &p.PutVolume, &p.CallDiff, &p.PutDiff, &p.VolumeDiff); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *ClickHouseStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

// Close is a no-op; the client is owned by the caller.
func (s *ClickHouseStore) Close() error { return nil }

var _ drepo.Storage = (*ClickHouseStore)(nil)
