package search

import (
	"context"

	"github.com/madlife/eventindex/internal/domain"
	domsearch "github.com/madlife/eventindex/internal/domain/search"
)

// Querier runs nearest-neighbor queries against the vector index store.
type Querier interface {
	Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]domsearch.Hit, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
