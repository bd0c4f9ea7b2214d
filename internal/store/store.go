// Package store keeps decoded records in PostgreSQL so repeated exports of
// the same backup accumulate without duplicates.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Oracipher/Unsealer/internal/config"
	"github.com/Oracipher/Unsealer/internal/core"
	"github.com/Oracipher/Unsealer/internal/logging"
)

// DBTX is the subset of pgx used by the store.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS recovered_records (
	id         BIGSERIAL PRIMARY KEY,
	run_id     UUID        NOT NULL,
	table_name TEXT        NOT NULL,
	position   INTEGER     NOT NULL,
	digest     BIGINT      NOT NULL,
	record     JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS recovered_records_table_digest_idx
	ON recovered_records (table_name, digest);
CREATE INDEX IF NOT EXISTS recovered_records_run_idx
	ON recovered_records (run_id);`

const insertSQL = `
INSERT INTO recovered_records (run_id, table_name, position, digest, record)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (table_name, digest) DO NOTHING`

const countRunSQL = `
SELECT table_name, count(*) FROM recovered_records
WHERE run_id = $1 GROUP BY table_name ORDER BY table_name`

// Store writes decoded records to PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database described by cfg and verifies the
// connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the records table and its indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// SaveResult reports what Save did.
type SaveResult struct {
	RunID    uuid.UUID
	Inserted int
	Skipped  int // Records already stored by an earlier run
	Duration time.Duration
}

// Save inserts every record of res in one transaction. Records whose table
// and content match an existing row are skipped.
func (s *Store) Save(ctx context.Context, res *core.Result) (SaveResult, error) {
	start := time.Now()
	out := SaveResult{RunID: res.RunID}

	rows, err := buildRows(res)
	if err != nil {
		return out, err
	}
	if len(rows) == 0 {
		return out, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return out, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	inserted, err := insertRows(ctx, tx, rows)
	if err != nil {
		return out, err
	}

	if err := tx.Commit(ctx); err != nil {
		return out, fmt.Errorf("commit transaction: %w", err)
	}

	out.Inserted = inserted
	out.Skipped = len(rows) - inserted
	out.Duration = time.Since(start)

	logging.FromContext(logging.ContextWithRunID(ctx, res.RunID)).Info("records stored",
		"inserted", out.Inserted,
		"skipped", out.Skipped,
		"duration_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}

// CountByTable returns the number of stored records per table for a run.
func (s *Store) CountByTable(ctx context.Context, runID uuid.UUID) (map[string]int, error) {
	return countByTable(ctx, s.pool, runID)
}

func countByTable(ctx context.Context, db DBTX, runID uuid.UUID) (map[string]int, error) {
	rows, err := db.Query(ctx, countRunSQL, pgtype.UUID{Bytes: runID, Valid: true})
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			name string
			n    int64
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[name] = int(n)
	}
	return counts, rows.Err()
}

// row is one record ready for insertion.
type row struct {
	runID    pgtype.UUID
	table    string
	position int
	digest   int64
	record   []byte
}

func buildRows(res *core.Result) ([]row, error) {
	runID := pgtype.UUID{Bytes: res.RunID, Valid: true}

	var rows []row
	for _, t := range res.Tables {
		for i, rec := range t.Records {
			doc, err := json.Marshal(rec)
			if err != nil {
				return nil, fmt.Errorf("encode %s record %d: %w", t.Name, i, err)
			}
			rows = append(rows, row{
				runID:    runID,
				table:    t.Name,
				position: i,
				digest:   digest(t.Name, doc),
				record:   doc,
			})
		}
	}
	return rows, nil
}

// insertRows sends all inserts in one batch and returns how many were
// actually inserted.
func insertRows(ctx context.Context, tx pgx.Tx, rows []row) (int, error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertSQL, r.runID, r.table, r.position, r.digest, r.record)
	}

	br := tx.SendBatch(ctx, batch)
	inserted := 0
	for i := range rows {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return 0, fmt.Errorf("insert %s record %d: %w", rows[i].table, rows[i].position, err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}
	return inserted, nil
}

// Digest identifies a record's content within its table. encoding/json
// writes map keys in sorted order, so equal records hash equally.
func Digest(table string, rec core.Record) (int64, error) {
	doc, err := json.Marshal(rec)
	if err != nil {
		return 0, err
	}
	return digest(table, doc), nil
}

func digest(table string, doc []byte) int64 {
	h := xxhash.New()
	h.WriteString(table)
	h.Write([]byte{0})
	h.Write(doc)
	return int64(h.Sum64())
}
