package domain

import "errors"

var (
	// ErrCollectionNotReady signals that the index collection could not be opened.
	ErrCollectionNotReady = errors.New("collection not ready")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRateLimited signals a rate limit hit at the embedding provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidQuery signals a malformed search request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrVectorDimMismatch signals a vector dimension mismatch in the store.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)
