package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the practice_attempts table. Apply it with
// [PostgresStore.Migrate] or during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS practice_attempts (
    id               TEXT PRIMARY KEY,
    reference_text   TEXT NOT NULL,
    reference_ipa    TEXT NOT NULL DEFAULT '',
    recognized_text  TEXT NOT NULL DEFAULT '',
    language         TEXT NOT NULL DEFAULT '',
    model            TEXT NOT NULL DEFAULT '',
    duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
    overall          DOUBLE PRECISION NOT NULL DEFAULT 0,
    words            JSONB NOT NULL DEFAULT '[]',
    report           JSONB NOT NULL DEFAULT '{}',
    feedback         JSONB NOT NULL DEFAULT '{}',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_practice_attempts_created ON practice_attempts(created_at DESC);
`

const selectColumns = `
	id, reference_text, reference_ipa, recognized_text, language, model,
	duration_seconds, words, report, feedback, created_at`

// DB is the subset of *pgxpool.Pool and *pgx.Conn used by [PostgresStore].
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by PostgreSQL. Words, report and feedback
// are stored as JSONB; the overall score is duplicated into its own column
// for querying.
type PostgresStore struct {
	db  DB
	now func() time.Time
}

var (
	_ Store  = (*PostgresStore)(nil)
	_ Pinger = (*PostgresStore)(nil)
)

// NewPostgresStore returns a store using db. Call [PostgresStore.Migrate]
// before the first query.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Migrate creates the practice_attempts table and its index if missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("attempt: migrate: %w", err)
	}
	return nil
}

// Ping implements [Pinger] with a trivial round trip.
func (s *PostgresStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("attempt: ping: %w", err)
	}
	return nil
}

// Create implements [Store].
func (s *PostgresStore) Create(ctx context.Context, a *Attempt) error {
	if err := prepare(a, s.now); err != nil {
		return err
	}
	words, report, feedback, err := marshalFields(a)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO practice_attempts (
			id, reference_text, reference_ipa, recognized_text, language, model,
			duration_seconds, overall, words, report, feedback, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`

	_, err = s.db.Exec(ctx, query,
		a.ID, a.ReferenceText, a.ReferenceIPA, a.RecognizedText, a.Language, a.Model,
		a.Duration, a.Report.Overall, words, report, feedback, a.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("attempt: attempt with id %q already exists", a.ID)
		}
		return fmt.Errorf("attempt: create: %w", err)
	}
	return nil
}

// Get implements [Store].
func (s *PostgresStore) Get(ctx context.Context, id string) (*Attempt, error) {
	query := `SELECT` + selectColumns + ` FROM practice_attempts WHERE id = $1`

	a, err := scanAttempt(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("attempt: get %q: %w", id, err)
	}
	return a, nil
}

// List implements [Store].
func (s *PostgresStore) List(ctx context.Context, limit int) ([]Attempt, error) {
	query := `SELECT` + selectColumns + ` FROM practice_attempts ORDER BY created_at DESC LIMIT $1`

	rows, err := s.db.Query(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("attempt: list: %w", err)
	}
	defer rows.Close()

	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("attempt: list scan: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("attempt: list: %w", err)
	}
	return out, nil
}

// scanAttempt reads one row in selectColumns order.
func scanAttempt(row pgx.Row) (*Attempt, error) {
	var (
		a                       Attempt
		words, report, feedback []byte
	)
	err := row.Scan(
		&a.ID, &a.ReferenceText, &a.ReferenceIPA, &a.RecognizedText, &a.Language, &a.Model,
		&a.Duration, &words, &report, &feedback, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(words, &a.Words); err != nil {
		return nil, fmt.Errorf("unmarshal words: %w", err)
	}
	if err := json.Unmarshal(report, &a.Report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	if err := json.Unmarshal(feedback, &a.Feedback); err != nil {
		return nil, fmt.Errorf("unmarshal feedback: %w", err)
	}
	return &a, nil
}

func marshalFields(a *Attempt) (words, report, feedback []byte, err error) {
	if words, err = json.Marshal(a.Words); err != nil {
		return nil, nil, nil, fmt.Errorf("attempt: marshal words: %w", err)
	}
	if report, err = json.Marshal(a.Report); err != nil {
		return nil, nil, nil, fmt.Errorf("attempt: marshal report: %w", err)
	}
	if feedback, err = json.Marshal(a.Feedback); err != nil {
		return nil, nil, nil, fmt.Errorf("attempt: marshal feedback: %w", err)
	}
	return words, report, feedback, nil
}

// isDuplicateKeyError reports a unique-violation (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
