// Package ingest populates the vector index from event catalog datasets.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/madlife/eventindex/internal/domain/event"
	"github.com/madlife/eventindex/internal/metrics"
	"github.com/madlife/eventindex/internal/repository/index"
)

// DefaultBatchSize is the number of records composed, embedded, and
// upserted per batch.
const DefaultBatchSize = 100

// Service ingests event records into the index in ordered batches.
type Service struct {
	store     Upserter
	embed     Embedder
	batchSize int
	logger    *zap.Logger
}

// New creates an ingest service.
func New(store Upserter, embed Embedder, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		embed:     embed,
		batchSize: DefaultBatchSize,
		logger:    logger,
	}
}

// WithBatchSize configures the ingestion batch size.
func (s *Service) WithBatchSize(size int) *Service {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// AddEvents ingests records in original order and returns the number of
// events actually embedded and stored. Rows that compose to empty text
// contribute no signal and are skipped; their IDs never become
// searchable. An empty dataset is a no-op, not an error.
//
// A failure embedding or upserting one batch aborts ingestion for that
// batch and every later one; earlier batches stay committed. Re-running
// the whole ingestion is safe since upsert overwrites per ID.
func (s *Service) AddEvents(ctx context.Context, records []event.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	added := 0
	for offset := 0; offset < len(records); offset += s.batchSize {
		end := offset + s.batchSize
		if end > len(records) {
			end = len(records)
		}

		n, err := s.ingestBatch(ctx, records[offset:end])
		added += n
		if err != nil {
			return added, fmt.Errorf("ingest batch %d: %w", offset/s.batchSize, err)
		}
	}

	s.logger.Info("Ingestion completed",
		zap.Int("dataset_size", len(records)),
		zap.Int("stored", added),
		zap.Int("skipped", len(records)-added),
	)

	return added, nil
}

// ingestBatch composes, embeds, and upserts one batch of records.
func (s *Service) ingestBatch(ctx context.Context, batch []event.Record) (int, error) {
	ids := make([]string, 0, len(batch))
	texts := make([]string, 0, len(batch))
	metadatas := make([]map[string]string, 0, len(batch))

	for _, rec := range batch {
		text, metadata := event.Compose(rec)
		if text == "" {
			metrics.EventsIngestedTotal.WithLabelValues("skipped_empty").Inc()
			s.logger.Debug("Skipping event with empty composed text", zap.String("event_id", rec.ID))
			continue
		}
		ids = append(ids, rec.ID)
		texts = append(texts, text)
		metadatas = append(metadatas, metadata)
	}

	if len(texts) == 0 {
		return 0, nil
	}

	result, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(result.Embeddings) != len(texts) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d texts", len(result.Embeddings), len(texts))
	}

	items := make([]index.Item, len(ids))
	for i, id := range ids {
		items[i] = index.Item{
			ID:       id,
			Vector:   result.Embeddings[i],
			Text:     texts[i],
			Metadata: metadatas[i],
		}
	}

	if err := s.store.Upsert(ctx, items); err != nil {
		return 0, fmt.Errorf("upsert %d documents: %w", len(items), err)
	}

	metrics.EventsIngestedTotal.WithLabelValues("stored").Add(float64(len(items)))
	s.logger.Debug("Batch ingested",
		zap.Int("batch_size", len(batch)),
		zap.Int("stored", len(items)),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return len(items), nil
}
