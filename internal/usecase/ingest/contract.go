package ingest

import (
	"context"

	"github.com/madlife/eventindex/internal/domain"
	"github.com/madlife/eventindex/internal/repository/index"
)

// Upserter writes documents into the vector index store.
type Upserter interface {
	Upsert(ctx context.Context, items []index.Item) error
}

// Embedder vectorizes batches of texts, preserving input order.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
