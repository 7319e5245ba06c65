// Package collection owns the index collection lifecycle operations:
// stats reporting and destructive reset.
package collection

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Store is the index store contract needed for lifecycle operations.
type Store interface {
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
	Collection() string
	Path() string
}

// Stats is the informational snapshot of the collection: the current
// document count plus static configuration. No side effects.
type Stats struct {
	TotalEvents    int    `json:"total_events"`
	CollectionName string `json:"collection_name"`
	ModelName      string `json:"model_name"`
	DBPath         string `json:"db_path"`
}

// Service handles collection stats and reset.
type Service struct {
	store  Store
	model  string
	logger *zap.Logger
}

// New creates a collection service.
func New(store Store, model string, logger *zap.Logger) *Service {
	return &Service{store: store, model: model, logger: logger}
}

// Stats returns the current collection statistics.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}
	return Stats{
		TotalEvents:    count,
		CollectionName: s.store.Collection(),
		ModelName:      s.model,
		DBPath:         s.store.Path(),
	}, nil
}

// Reset drops and recreates the collection. Irreversible. Reports the
// outcome as a boolean so callers can decide whether to keep serving the
// stale collection instead of failing hard.
func (s *Service) Reset(ctx context.Context) bool {
	if err := s.store.Reset(ctx); err != nil {
		s.logger.Error("Collection reset failed",
			zap.String("collection", s.store.Collection()),
			zap.Error(err),
		)
		return false
	}
	s.logger.Info("Collection reset", zap.String("collection", s.store.Collection()))
	return true
}
