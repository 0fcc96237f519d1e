package infra

import (
	"context"
	"database/sql"

	"github.com/Vovarama1992/scene_narrator/internal/ports"
)

const descriptionSchema = `
	CREATE TABLE IF NOT EXISTS description_records (
		id          UUID PRIMARY KEY,
		description TEXT NOT NULL,
		audio_url   TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS description_records_created_at_idx
		ON description_records (created_at);
`

type descriptionRepo struct {
	db *sql.DB
}

func NewDescriptionRepo(db *sql.DB) ports.DescriptionRepo {
	return &descriptionRepo{db: db}
}

// MigrateDescriptions creates the table on first start.
func MigrateDescriptions(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, descriptionSchema)
	return err
}

func (r *descriptionRepo) Create(ctx context.Context, rec ports.DescriptionRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO description_records (id, description, audio_url, created_at)
		VALUES ($1, $2, $3, $4)
	`, rec.ID, rec.Description, rec.AudioURL, rec.CreatedAt)
	return err
}
