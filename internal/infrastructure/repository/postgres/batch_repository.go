package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/document-sorter/internal/core/domain"
)

// BatchRepository keeps an audit trail of categorization batches. File
// contents and extracted text are never stored.
type BatchRepository struct {
	db *sql.DB
}

func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *BatchRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS categorization_batches (
	id TEXT PRIMARY KEY,
	file_count INTEGER NOT NULL,
	report_count INTEGER NOT NULL,
	bucket_counts JSONB NOT NULL DEFAULT '{}'::jsonb,
	archive_bytes BIGINT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS categorized_files (
	batch_id TEXT NOT NULL REFERENCES categorization_batches(id) ON DELETE CASCADE,
	file_index INTEGER NOT NULL,
	filename TEXT NOT NULL,
	extension TEXT NOT NULL,
	size_bytes BIGINT NOT NULL,
	bucket TEXT NOT NULL,
	extraction_status TEXT NOT NULL,
	extraction_method TEXT,
	extraction_error TEXT,
	report_failed BOOLEAN,
	PRIMARY KEY (batch_id, file_index)
);

CREATE INDEX IF NOT EXISTS idx_categorization_batches_started_at ON categorization_batches(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_categorized_files_bucket ON categorized_files(bucket);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *BatchRepository) RecordBatch(ctx context.Context, batch *domain.Batch) error {
	if batch == nil || batch.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record batch", errors.New("batch id is required"))
	}

	countsJSON, err := json.Marshal(batch.BucketCounts())
	if err != nil {
		return fmt.Errorf("marshal bucket counts: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO categorization_batches (
	id, file_count, report_count, bucket_counts, archive_bytes, started_at, duration_ms
) VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		batch.ID, len(batch.Results), batch.ReportCount(), countsJSON,
		int64(len(batch.Archive)), batch.StartedAt, batch.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	for _, result := range batch.Results {
		_, err := tx.ExecContext(ctx, `
INSERT INTO categorized_files (
	batch_id, file_index, filename, extension, size_bytes, bucket, extraction_status, extraction_method, extraction_error, report_failed
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
			batch.ID, result.Index, result.Filename, result.Extension, int64(result.Size), string(result.Bucket),
			string(result.Extraction.Status), nullString(result.Extraction.Method), nullString(result.Extraction.Error),
			reportFailed(result.Report),
		)
		if err != nil {
			return fmt.Errorf("insert file result %d: %w", result.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch tx: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func reportFailed(report *domain.Report) sql.NullBool {
	if report == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: report.Failed, Valid: true}
}
