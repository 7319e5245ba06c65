// Package search executes semantic similarity queries over the event index.
package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/madlife/eventindex/internal/domain/event"
	domsearch "github.com/madlife/eventindex/internal/domain/search"
	"github.com/madlife/eventindex/internal/metrics"
)

// Result count bounds, applied when the caller omits or exceeds them.
const (
	DefaultTopK = 10
	MaxTopK     = 50
)

// Service handles similarity search with metadata-aware filtering.
type Service struct {
	store       Querier
	embed       Embedder
	defaultTopK int
	maxTopK     int
	logger      *zap.Logger
}

// New creates a search service.
func New(store Querier, embed Embedder, logger *zap.Logger) *Service {
	return &Service{
		store:       store,
		embed:       embed,
		defaultTopK: DefaultTopK,
		maxTopK:     MaxTopK,
		logger:      logger,
	}
}

// WithTopKBounds configures the default and maximum result counts.
func (s *Service) WithTopKBounds(defaultTopK, maxTopK int) *Service {
	if defaultTopK > 0 {
		s.defaultTopK = defaultTopK
	}
	if maxTopK > 0 {
		s.maxTopK = maxTopK
	}
	return s
}

// Search embeds the query and returns up to k results ranked by
// ascending distance. A blank or whitespace-only query yields an empty
// result, not an error. Filter entries with empty values are dropped;
// the rest become exact-match constraints; substring filtering is a
// caller-side post-filter over the projected results.
func (s *Service) Search(
	ctx context.Context, query string, k int, filter map[string]string,
) ([]domsearch.Result, error) {
	if strings.TrimSpace(query) == "" {
		metrics.SearchesTotal.WithLabelValues("blank_query").Inc()
		return nil, nil
	}

	if k <= 0 {
		k = s.defaultTopK
	}
	if k > s.maxTopK {
		k = s.maxTopK
	}

	cleaned := event.Normalize(query)

	embResult, err := s.embed.Embed(ctx, cleaned)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	predicate := buildPredicate(filter)

	hits, err := s.store.Query(ctx, embResult.Embedding, k, predicate)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("query index: %w", err)
	}

	if len(hits) == 0 {
		metrics.SearchesTotal.WithLabelValues("empty").Inc()
		return nil, nil
	}
	metrics.SearchesTotal.WithLabelValues("results").Inc()

	s.logger.Debug("Search completed",
		zap.String("query", query),
		zap.Int("top_k", k),
		zap.Int("filters", len(predicate)),
		zap.Int("results", len(hits)),
	)

	return domsearch.Project(hits), nil
}

// buildPredicate keeps only filter entries with non-empty values.
func buildPredicate(filter map[string]string) map[string]string {
	if len(filter) == 0 {
		return nil
	}
	predicate := make(map[string]string, len(filter))
	for k, v := range filter {
		if v != "" {
			predicate[k] = v
		}
	}
	if len(predicate) == 0 {
		return nil
	}
	return predicate
}
