package ports

import (
	"context"
	"time"
)

// DescriptionRecord is an append-only history entry of one narration.
type DescriptionRecord struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	AudioURL    string    `json:"audio_url"`
	CreatedAt   time.Time `json:"timestamp"`
}

type DescriptionRepo interface {
	Create(ctx context.Context, rec DescriptionRecord) error
}
