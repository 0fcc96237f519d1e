package textrules

import (
	"context"
	"database/sql"
)

const rulesSchema = `
CREATE TABLE IF NOT EXISTS text_letter_rules (
	from_char TEXT PRIMARY KEY,
	to_char   TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS text_word_rules (
	from_word TEXT PRIMARY KEY,
	to_word   TEXT NOT NULL DEFAULT ''
);`

type repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) Repo {
	return &repo{db: db}
}

// Migrate creates the rule tables if they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, rulesSchema)
	return err
}

// ===== LETTERS =====

func (r *repo) ListLetterRules(ctx context.Context) ([]LetterRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT from_char, to_char FROM text_letter_rules`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LetterRule
	for rows.Next() {
		var rr LetterRule
		if err := rows.Scan(&rr.From, &rr.To); err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// ===== WORDS =====

func (r *repo) ListWordRules(ctx context.Context) ([]WordRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT from_word, to_word FROM text_word_rules`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WordRule
	for rows.Next() {
		var rr WordRule
		if err := rows.Scan(&rr.From, &rr.To); err != nil {
			return nil, err
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}
