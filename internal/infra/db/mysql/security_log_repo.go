package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/jailbreak-firewall/internal/domain/analysis"
)

const schema = `
CREATE TABLE IF NOT EXISTS security_log (
  id                   BIGINT        NOT NULL AUTO_INCREMENT,
  user_prompt          VARCHAR(5000) NOT NULL,
  jailbreak_score      DOUBLE        NOT NULL DEFAULT 0,
  jailbreak_category   VARCHAR(255)  COLLATE utf8mb4_bin NULL,
  harmfulness_score    DOUBLE        NOT NULL DEFAULT 0,
  harmfulness_category VARCHAR(255)  COLLATE utf8mb4_bin NULL,
  verdict              VARCHAR(255)  NULL,
  recommendation       TEXT          NULL,
  created_at           DATETIME(6)   NOT NULL,
  PRIMARY KEY (id),
  INDEX idx_security_log_jailbreak_category (jailbreak_category),
  INDEX idx_security_log_harmfulness_category (harmfulness_category)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

type SecurityLogRepository struct {
	db *sql.DB
}

func NewSecurityLogRepository(db *sql.DB) *SecurityLogRepository {
	return &SecurityLogRepository{db: db}
}

// EnsureSchema creates security_log when it does not exist yet
func (r *SecurityLogRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Insert adds one row; id and created_at are assigned here and never updated.
func (r *SecurityLogRepository) Insert(ctx context.Context, rec *domain.Record) error {
	const q = `
INSERT INTO security_log
  (user_prompt, jailbreak_score, jailbreak_category, harmfulness_score,
   harmfulness_category, verdict, recommendation, created_at)
VALUES (?,?,?,?,?,?,?,?);
`
	// the column keeps microseconds
	created := time.Now().UTC().Truncate(time.Microsecond)
	res, err := r.db.ExecContext(ctx, q,
		rec.PromptText,
		rec.JailbreakScore, nullIfEmpty(rec.JailbreakCategory),
		rec.HarmfulnessScore, nullIfEmpty(rec.HarmfulnessCategory),
		nullIfEmpty(rec.Verdict), nullIfEmpty(rec.Recommendation),
		created,
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
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM security_log ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// FindByJailbreakCategory exact match on jailbreak_category
func (r *SecurityLogRepository) FindByJailbreakCategory(ctx context.Context, category string) ([]*domain.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM security_log WHERE jailbreak_category = ? ORDER BY id ASC`, category)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// FindByHarmfulnessCategory exact match on harmfulness_category
func (r *SecurityLogRepository) FindByHarmfulnessCategory(ctx context.Context, category string) ([]*domain.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM security_log WHERE harmfulness_category = ? ORDER BY id ASC`, category)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}
