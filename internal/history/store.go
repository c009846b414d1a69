// Package history stores merge run summaries in PostgreSQL.
//
// Only counts, column names and file names are kept. Cell values from the
// uploaded workbooks never reach the database.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/sheetjoin/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MaxLimit caps how many runs RecentRuns returns in one call.
const MaxLimit = 500

const schema = `
CREATE TABLE IF NOT EXISTS merge_runs (
	id             UUID PRIMARY KEY,
	status         TEXT NOT NULL,
	primary_file   TEXT NOT NULL,
	reference_file TEXT NOT NULL,
	primary_key    TEXT NOT NULL,
	reference_key  TEXT NOT NULL,
	result_columns TEXT[] NOT NULL DEFAULT '{}',
	primary_rows   INTEGER NOT NULL DEFAULT 0,
	output_rows    INTEGER NOT NULL DEFAULT 0,
	matched_rows   INTEGER NOT NULL DEFAULT 0,
	unmatched_rows INTEGER NOT NULL DEFAULT 0,
	error_code     TEXT,
	ip_address     TEXT,
	user_agent     TEXT,
	duration_ms    BIGINT NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS merge_runs_created_at_idx ON merge_runs (created_at DESC);
`

// Store is a core.RunRecorder backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ core.RunRecorder = (*Store)(nil)

// NewStore creates a store on an open pool. Call Migrate before first use.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the merge_runs table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate merge_runs: %w", err)
	}
	return nil
}

// RecordRun inserts one run summary.
func (s *Store) RecordRun(ctx context.Context, rec core.RunRecord) error {
	if rec.ID == "" {
		return errors.New("record run: missing id")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	resultColumns := rec.ResultColumns
	if resultColumns == nil {
		resultColumns = []string{}
	}

	const query = `INSERT INTO merge_runs (
		id, status, primary_file, reference_file, primary_key, reference_key,
		result_columns, primary_rows, output_rows, matched_rows, unmatched_rows,
		error_code, ip_address, user_agent, duration_ms, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := s.pool.Exec(ctx, query,
		rec.ID,
		string(rec.Status),
		rec.PrimaryFile,
		rec.ReferenceFile,
		rec.PrimaryKey,
		rec.ReferenceKey,
		resultColumns,
		rec.PrimaryRows,
		rec.OutputRows,
		rec.MatchedRows,
		rec.UnmatchedRows,
		toPgText(rec.ErrorCode),
		toPgText(rec.IPAddress),
		toPgText(rec.UserAgent),
		rec.Duration.Milliseconds(),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", rec.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]core.RunRecord, error) {
	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}

	const query = `SELECT id::text, status, primary_file, reference_file, primary_key,
		reference_key, result_columns, primary_rows, output_rows, matched_rows,
		unmatched_rows, error_code, ip_address, user_agent, duration_ms, created_at
		FROM merge_runs ORDER BY created_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]core.RunRecord, 0)
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	return runs, nil
}

// PruneOlderThan deletes runs created before cutoff and returns how many went.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM merge_runs WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRun(row pgx.Row) (core.RunRecord, error) {
	var (
		rec        core.RunRecord
		status     string
		errorCode  pgtype.Text
		ipAddress  pgtype.Text
		userAgent  pgtype.Text
		durationMS int64
	)
	err := row.Scan(
		&rec.ID,
		&status,
		&rec.PrimaryFile,
		&rec.ReferenceFile,
		&rec.PrimaryKey,
		&rec.ReferenceKey,
		&rec.ResultColumns,
		&rec.PrimaryRows,
		&rec.OutputRows,
		&rec.MatchedRows,
		&rec.UnmatchedRows,
		&errorCode,
		&ipAddress,
		&userAgent,
		&durationMS,
		&rec.CreatedAt,
	)
	if err != nil {
		return core.RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	rec.Status = core.RunStatus(status)
	rec.ErrorCode = errorCode.String
	rec.IPAddress = ipAddress.String
	rec.UserAgent = userAgent.String
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return rec, nil
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}
