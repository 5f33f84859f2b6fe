package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/jailbreak-firewall/internal/domain/analysis"
)

const schema = `
CREATE TABLE IF NOT EXISTS security_log (
  id                   BIGSERIAL PRIMARY KEY,
  user_prompt          VARCHAR(5000) NOT NULL,
  jailbreak_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
  jailbreak_category   VARCHAR(255),
  harmfulness_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
  harmfulness_category VARCHAR(255),
  verdict              VARCHAR(255),
  recommendation       TEXT,
  created_at           TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_security_log_jailbreak_category ON security_log (jailbreak_category);
CREATE INDEX IF NOT EXISTS idx_security_log_harmfulness_category ON security_log (harmfulness_category);`

type SecurityLogRepository struct {
	db *sql.DB
}

func NewSecurityLogRepository(db *sql.DB) *SecurityLogRepository { return &SecurityLogRepository{db: db} }

// EnsureSchema creates security_log and its category indexes when missing
func (r *SecurityLogRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Insert adds one row and reads back the generated id.
func (r *SecurityLogRepository) Insert(ctx context.Context, rec *domain.Record) error {
	const q = `
INSERT INTO security_log
  (user_prompt, jailbreak_score, jailbreak_category, harmfulness_score,
   harmfulness_category, verdict, recommendation, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id;`

	// the column keeps microseconds
	created := time.Now().UTC().Truncate(time.Microsecond)
	var id int64
	err := r.db.QueryRowContext(ctx, q,
		rec.PromptText,
		rec.JailbreakScore, nullIfEmpty(rec.JailbreakCategory),
		rec.HarmfulnessScore, nullIfEmpty(rec.HarmfulnessCategory),
		nullIfEmpty(rec.Verdict), nullIfEmpty(rec.Recommendation),
		created,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("inserting security_log: %w", err)
	}
	rec.ID = id
	rec.CreatedAt = created
	return nil
}

func (r *SecurityLogRepository) FindAll(ctx context.Context) ([]*domain.Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM security_log ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (r *SecurityLogRepository) FindByJailbreakCategory(ctx context.Context, category string) ([]*domain.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM security_log WHERE jailbreak_category = $1 ORDER BY id ASC`, category)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (r *SecurityLogRepository) FindByHarmfulnessCategory(ctx context.Context, category string) ([]*domain.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM security_log WHERE harmfulness_category = $1 ORDER BY id ASC`, category)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}
