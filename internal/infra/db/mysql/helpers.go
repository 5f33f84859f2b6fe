package mysql

import (
	"database/sql"

	domain "github.com/bryanwahyu/jailbreak-firewall/internal/domain/analysis"
)

const selectColumns = `id, user_prompt, jailbreak_score, jailbreak_category, harmfulness_score, harmfulness_category, verdict, recommendation, created_at`

// nullIfEmpty stores empty labels as NULL; any other value is kept verbatim
func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func scanRecords(rows *sql.Rows) ([]*domain.Record, error) {
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		var r domain.Record
		var jbCat, harmCat, verdict, rec sql.NullString
		if err := rows.Scan(
			&r.ID, &r.PromptText, &r.JailbreakScore, &jbCat, &r.HarmfulnessScore,
			&harmCat, &verdict, &rec, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		r.JailbreakCategory = jbCat.String
		r.HarmfulnessCategory = harmCat.String
		r.Verdict = verdict.String
		r.Recommendation = rec.String
		out = append(out, &r)
	}
	return out, rows.Err()
}
