package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/jailbreak-firewall/internal/domain/analysis"
)

// created_at is kept as RFC 3339 text with nanoseconds so it round-trips exactly.
const schema = `
CREATE TABLE IF NOT EXISTS security_log (
  id                   INTEGER PRIMARY KEY AUTOINCREMENT,
  user_prompt          TEXT NOT NULL CHECK (length(user_prompt) <= 5000),
  jailbreak_score      REAL NOT NULL DEFAULT 0,
  jailbreak_category   TEXT,
  harmfulness_score    REAL NOT NULL DEFAULT 0,
  harmfulness_category TEXT,
  verdict              TEXT,
  recommendation       TEXT,
  created_at           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_security_log_jailbreak_category ON security_log (jailbreak_category);
CREATE INDEX IF NOT EXISTS idx_security_log_harmfulness_category ON security_log (harmfulness_category);`

const selectColumns = `id, user_prompt, jailbreak_score, jailbreak_category, harmfulness_score, harmfulness_category, verdict, recommendation, created_at`

type SecurityLogRepository struct {
	db *sql.DB
}

func NewSecurityLogRepository(db *sql.DB) *SecurityLogRepository {
	return &SecurityLogRepository{db: db}
}

func (r *SecurityLogRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *SecurityLogRepository) Insert(ctx context.Context, rec *domain.Record) error {
	const q = `
INSERT INTO security_log
(user_prompt, jailbreak_score, jailbreak_category, harmfulness_score,
 harmfulness_category, verdict, recommendation, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	created := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, q,
		rec.PromptText,
		rec.JailbreakScore, nullIfEmpty(rec.JailbreakCategory),
		rec.HarmfulnessScore, nullIfEmpty(rec.HarmfulnessCategory),
		nullIfEmpty(rec.Verdict), nullIfEmpty(rec.Recommendation),
		created.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting security_log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading insert id: %w", err)
	}
	rec.ID = id
	rec.CreatedAt = created
	return nil
}

func (r *SecurityLogRepository) FindAll(ctx context.Context) ([]*domain.Record, error) {
	return r.query(ctx, `SELECT `+selectColumns+` FROM security_log ORDER BY id ASC`)
}

func (r *SecurityLogRepository) FindByJailbreakCategory(ctx context.Context, category string) ([]*domain.Record, error) {
	return r.query(ctx, `SELECT `+selectColumns+` FROM security_log WHERE jailbreak_category = ? ORDER BY id ASC`, category)
}

func (r *SecurityLogRepository) FindByHarmfulnessCategory(ctx context.Context, category string) ([]*domain.Record, error) {
	return r.query(ctx, `SELECT `+selectColumns+` FROM security_log WHERE harmfulness_category = ? ORDER BY id ASC`, category)
}

func (r *SecurityLogRepository) query(ctx context.Context, q string, args ...any) ([]*domain.Record, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		var rec domain.Record
		var jbCat, harmCat, verdict, advice sql.NullString
		var created string
		if err := rows.Scan(&rec.ID, &rec.PromptText, &rec.JailbreakScore, &jbCat, &rec.HarmfulnessScore,
			&harmCat, &verdict, &advice, &created); err != nil {
			return nil, err
		}
		rec.JailbreakCategory = jbCat.String
		rec.HarmfulnessCategory = harmCat.String
		rec.Verdict = verdict.String
		rec.Recommendation = advice.String
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parsing created_at of row %d: %w", rec.ID, err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
