package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"aegis-hq/aegis/pkg/governance"
)

// SQLiteConfig contains configuration for the SQLite store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections. Default: 10.
	MaxOpenConns int

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig(path string) *SQLiteConfig {
	return &SQLiteConfig{
		Path:         path,
		MaxOpenConns: 10,
		BusyTimeout:  5 * time.Second,
	}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS evaluations (
	id              TEXT PRIMARY KEY,
	organization_id TEXT NOT NULL,
	input_hash      TEXT NOT NULL,
	input_excerpt   TEXT NOT NULL,
	action          TEXT NOT NULL,
	severity        TEXT NOT NULL,
	policy_results  TEXT,
	processing_ms   INTEGER NOT NULL,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_evaluations_org_created
	ON evaluations(organization_id, created_at DESC);

CREATE TABLE IF NOT EXISTS violations (
	id              TEXT PRIMARY KEY,
	evaluation_id   TEXT NOT NULL REFERENCES evaluations(id),
	organization_id TEXT NOT NULL,
	type            TEXT NOT NULL,
	severity        TEXT NOT NULL,
	rule            TEXT NOT NULL,
	confidence      REAL NOT NULL,
	metadata        TEXT,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_violations_evaluation
	ON violations(evaluation_id);
`

// SQLiteStore implements Store using SQLite with WAL mode.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if necessary) the SQLite database at the
// configured path and initializes the schema.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		return nil, fmt.Errorf("sqlite config cannot be nil")
	}

	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL", config.Path, config.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %q: %w", config.Path, err)
	}

	maxConns := config.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: slog.Default().With("component", "storage.sqlite"),
	}, nil
}

// InsertEvaluation persists one evaluation record.
func (s *SQLiteStore) InsertEvaluation(ctx context.Context, record *EvaluationRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations
			(id, organization_id, input_hash, input_excerpt, action, severity, policy_results, processing_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.OrganizationID,
		record.InputHash,
		record.InputExcerpt,
		string(record.Action),
		string(record.Severity),
		nullableString(record.PolicyResults),
		record.ProcessingTime.Milliseconds(),
		record.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert evaluation %s: %w", record.ID, err)
	}
	return nil
}

// InsertViolations persists the violations of one evaluation in a single
// transaction.
func (s *SQLiteStore) InsertViolations(ctx context.Context, records []*ViolationRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO violations
			(id, evaluation_id, organization_id, type, severity, rule, confidence, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare violation insert: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		metadata, err := encodeMetadata(record.Violation.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			record.ID,
			record.EvaluationID,
			record.OrganizationID,
			record.Violation.Type,
			string(record.Violation.Severity),
			record.Violation.Rule,
			record.Violation.Confidence,
			metadata,
			record.CreatedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("failed to insert violation %s: %w", record.ID, err)
		}
	}

	return tx.Commit()
}

// GetEvaluation returns an evaluation by ID.
func (s *SQLiteStore) GetEvaluation(ctx context.Context, id string) (*EvaluationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, organization_id, input_hash, input_excerpt, action, severity, policy_results, processing_ms, created_at
		 FROM evaluations WHERE id = ?`, id)

	record, err := scanEvaluation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return record, err
}

// ListEvaluations returns the most recent evaluations for an organization.
func (s *SQLiteStore) ListEvaluations(ctx context.Context, orgID string, limit int) ([]*EvaluationRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, organization_id, input_hash, input_excerpt, action, severity, policy_results, processing_ms, created_at
		 FROM evaluations WHERE organization_id = ?
		 ORDER BY created_at DESC LIMIT ?`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer rows.Close()

	var results []*EvaluationRecord
	for rows.Next() {
		record, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, record)
	}
	return results, rows.Err()
}

// ListViolations returns the violations of one evaluation.
func (s *SQLiteStore) ListViolations(ctx context.Context, evaluationID string) ([]*ViolationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, evaluation_id, organization_id, type, severity, rule, confidence, metadata, created_at
		 FROM violations WHERE evaluation_id = ? ORDER BY created_at ASC`, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query violations: %w", err)
	}
	defer rows.Close()

	var results []*ViolationRecord
	for rows.Next() {
		var record ViolationRecord
		var severity string
		var metadata sql.NullString
		var createdAt int64

		if err := rows.Scan(
			&record.ID,
			&record.EvaluationID,
			&record.OrganizationID,
			&record.Violation.Type,
			&severity,
			&record.Violation.Rule,
			&record.Violation.Confidence,
			&metadata,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}

		record.Violation.Severity = governance.Severity(severity)
		record.CreatedAt = time.UnixMilli(createdAt)
		if metadata.Valid {
			md, err := decodeMetadata(metadata.String)
			if err != nil {
				return nil, err
			}
			record.Violation.Metadata = md
		}
		results = append(results, &record)
	}
	return results, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(row rowScanner) (*EvaluationRecord, error) {
	var record EvaluationRecord
	var action, severity string
	var policyResults sql.NullString
	var processingMS, createdAt int64

	if err := row.Scan(
		&record.ID,
		&record.OrganizationID,
		&record.InputHash,
		&record.InputExcerpt,
		&action,
		&severity,
		&policyResults,
		&processingMS,
		&createdAt,
	); err != nil {
		return nil, err
	}

	record.Action = governance.Action(action)
	record.Severity = governance.Severity(severity)
	record.ProcessingTime = time.Duration(processingMS) * time.Millisecond
	record.CreatedAt = time.UnixMilli(createdAt)
	if policyResults.Valid {
		record.PolicyResults = []byte(policyResults.String)
	}
	return &record, nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func encodeMetadata(md map[string]string) (any, error) {
	if len(md) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("failed to encode violation metadata: %w", err)
	}
	return string(b), nil
}

func decodeMetadata(s string) (map[string]string, error) {
	var md map[string]string
	if err := json.Unmarshal([]byte(s), &md); err != nil {
		return nil, fmt.Errorf("failed to decode violation metadata: %w", err)
	}
	return md, nil
}
