// Package eventindex is the embedded SDK entry point: it wires the
// vector index store, embedder, and services into a single client for
// applications that index and search Madrid event listings in-process,
// without the HTTP server.
package eventindex

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/madlife/eventindex/internal/domain"
	"github.com/madlife/eventindex/internal/domain/event"
	"github.com/madlife/eventindex/internal/loader"
	"github.com/madlife/eventindex/internal/repository/index"
	collectionuc "github.com/madlife/eventindex/internal/usecase/collection"
	ingestuc "github.com/madlife/eventindex/internal/usecase/ingest"
	searchuc "github.com/madlife/eventindex/internal/usecase/search"
)

// Client is the eventindex SDK entry point.
type Client struct {
	store     *index.Store
	ingestSvc *ingestuc.Service
	searchSvc *searchuc.Service
	collSvc   *collectionuc.Service
}

// Open creates a Client over the index file at path, creating the file
// and collection on first use.
func Open(path string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		collection: "event_descriptions",
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(cfg)
	}

	store, err := index.Open(path, cfg.collection)
	if err != nil {
		return nil, fmt.Errorf("eventindex: open index: %w", err)
	}

	var domEmb domain.Embedder = &noopEmbedder{}
	if cfg.embedder != nil {
		domEmb = &embedderAdapter{inner: cfg.embedder}
	}

	ingestSvc := ingestuc.New(store, batchAdapter{domEmb}, cfg.logger)
	if cfg.batchSize > 0 {
		ingestSvc = ingestSvc.WithBatchSize(cfg.batchSize)
	}
	searchSvc := searchuc.New(store, domEmb, cfg.logger)
	if cfg.defaultTopK > 0 || cfg.maxTopK > 0 {
		searchSvc = searchSvc.WithTopKBounds(cfg.defaultTopK, cfg.maxTopK)
	}
	collSvc := collectionuc.New(store, cfg.model, cfg.logger)

	return &Client{
		store:     store,
		ingestSvc: ingestSvc,
		searchSvc: searchSvc,
		collSvc:   collSvc,
	}, nil
}

// Close releases the index file.
func (c *Client) Close() error {
	return c.store.Close()
}

// AddEvents indexes records and returns the number actually stored.
// Records composing to empty text are skipped. Re-adding the same IDs
// overwrites them.
func (c *Client) AddEvents(ctx context.Context, records []Record) (int, error) {
	added, err := c.ingestSvc.AddEvents(ctx, toInternalRecords(records))
	if err != nil {
		return added, fmt.Errorf("eventindex: add events: %w", err)
	}
	return added, nil
}

// AddEventsFromCSV indexes every record of a semicolon-delimited Madrid
// catalog CSV file.
func (c *Client) AddEventsFromCSV(ctx context.Context, path string) (int, error) {
	records, err := loader.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("eventindex: %w", err)
	}
	added, err := c.ingestSvc.AddEvents(ctx, records)
	if err != nil {
		return added, fmt.Errorf("eventindex: add events: %w", err)
	}
	return added, nil
}

// Search returns up to opts.TopK events ranked by semantic similarity.
// A blank query yields no results and no error.
func (c *Client) Search(ctx context.Context, query string, opts *SearchOptions) ([]SearchResult, error) {
	if opts == nil {
		opts = &SearchOptions{}
	}
	results, err := c.searchSvc.Search(ctx, query, opts.TopK, opts.Filters)
	if err != nil {
		return nil, fmt.Errorf("eventindex: search: %w", err)
	}
	return fromSearchResults(results), nil
}

// Stats returns the collection statistics snapshot.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	stats, err := c.collSvc.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("eventindex: stats: %w", err)
	}
	return Stats{
		TotalEvents:    stats.TotalEvents,
		CollectionName: stats.CollectionName,
		ModelName:      stats.ModelName,
		DBPath:         stats.DBPath,
	}, nil
}

// Reset destroys all indexed events and reports whether it succeeded.
// The collection stays usable either way.
func (c *Client) Reset(ctx context.Context) bool {
	return c.collSvc.Reset(ctx)
}

// embedderAdapter wraps a public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	vec, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

// batchAdapter gives the ingest service batch embedding over any
// domain.Embedder, using native batching when available.
type batchAdapter struct {
	inner domain.Embedder
}

func (a batchAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := a.inner.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, a.inner, texts)
}

// noopEmbedder returns an error on Embed call (used when no embedder configured).
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf(
		"eventindex: embedder not configured (use WithEmbedder): %w",
		domain.ErrEmbeddingProviderError,
	)
}

func toInternalRecords(records []Record) []event.Record {
	out := make([]event.Record, len(records))
	for i, r := range records {
		out[i] = event.Record{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			Type:        r.Type,
			Price:       r.Price,
			Free:        r.Free,
			Date:        r.Date,
			Time:        r.Time,
			District:    r.District,
			Venue:       r.Venue,
			Audience:    r.Audience,
			URL:         r.URL,
		}
	}
	return out
}
