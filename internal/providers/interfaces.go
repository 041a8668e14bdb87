package providers

import (
	"context"

	"github.com/ncecere/open_embedding_server/internal/models"
)

// EmbeddingsProvider turns an ordered batch of texts into vectors.
type EmbeddingsProvider interface {
	Embed(ctx context.Context, req models.EmbeddingsRequest) (models.EmbeddingsResponse, error)
}

// HealthFunc reports whether the backend is reachable.
type HealthFunc func(ctx context.Context) error
