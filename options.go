package eventindex

import "go.uber.org/zap"

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	collection  string
	model       string
	embedder    Embedder
	batchSize   int
	defaultTopK int
	maxTopK     int
	logger      *zap.Logger
}

// WithEmbedder sets the embedding provider. Required for indexing and
// searching; a client without one can still read stats and reset.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) {
		c.embedder = e
	}
}

// WithCollection overrides the collection name (default "event_descriptions").
func WithCollection(name string) Option {
	return func(c *clientConfig) {
		if name != "" {
			c.collection = name
		}
	}
}

// WithModel records the model identifier reported by Stats.
func WithModel(model string) Option {
	return func(c *clientConfig) {
		c.model = model
	}
}

// WithBatchSize sets the ingestion batch size (default 100).
func WithBatchSize(size int) Option {
	return func(c *clientConfig) {
		c.batchSize = size
	}
}

// WithTopKBounds sets the default and maximum search result counts
// (defaults 10 and 50).
func WithTopKBounds(defaultTopK, maxTopK int) Option {
	return func(c *clientConfig) {
		c.defaultTopK = defaultTopK
		c.maxTopK = maxTopK
	}
}

// WithLogger sets the logger (default: no-op).
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}
