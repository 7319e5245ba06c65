// Package index implements the persistent vector index store: a single
// bbolt file holding one named collection of (vector, document, metadata)
// triples keyed by event ID, searched brute-force by cosine distance.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/madlife/eventindex/internal/domain"
	"github.com/madlife/eventindex/internal/domain/search"
)

var (
	bucketEvents   = []byte("events")
	bucketMeta     = []byte("collection")
	bucketEmbCache = []byte("emb_cache")
	keyHeader      = []byte("header")
)

// ErrCacheMiss signals an absent embedding cache entry.
var ErrCacheMiss = errors.New("cache miss")

const collectionDescription = "Event descriptions embeddings for MadLife"

// Item is one document to upsert: vector, composed text, and metadata.
type Item struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string
}

// cacheEntry mirrors the persisted vector and metadata for brute-force
// search without touching disk. Document text stays in bbolt and is read
// only for the returned top-k hits.
type cacheEntry struct {
	vector   []float32
	metadata map[string]string
}

// Store is a bbolt-backed vector collection. Existing IDs are overwritten
// on upsert, so re-ingestion is idempotent. Safe for concurrent readers
// and a single writer.
type Store struct {
	db         *bbolt.DB
	path       string
	collection string

	mu      sync.RWMutex
	vectors map[string]cacheEntry
	dim     int
}

// Open opens or creates the collection file at path. A missing file or
// missing buckets are expected on first run and never an error.
func Open(path, collection string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w: %w", path, domain.ErrCollectionNotReady, err)
	}

	s := &Store{
		db:         db,
		path:       path,
		collection: collection,
		vectors:    make(map[string]cacheEntry),
	}

	if err := s.initCollection(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init collection %q: %w", collection, err)
	}
	if err := s.loadVectors(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load vectors: %w", err)
	}

	return s, nil
}

// initCollection creates the buckets and writes the header if absent.
func (s *Store) initCollection() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketEvents, bucketMeta, bucketEmbCache} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}

		meta := tx.Bucket(bucketMeta)
		if meta.Get(keyHeader) != nil {
			return nil
		}
		header, err := json.Marshal(collectionHeader{
			Name:        s.collection,
			Description: collectionDescription,
			CreatedAt:   time.Now().Unix(),
		})
		if err != nil {
			return fmt.Errorf("marshal header: %w", err)
		}
		return meta.Put(keyHeader, header)
	})
}

// loadVectors hydrates the in-memory search cache from bbolt.
func (s *Store) loadVectors() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEvents).ForEach(func(k, v []byte) error {
			var stored storedDocument
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // skip corrupted entries
			}
			s.vectors[string(k)] = cacheEntry{vector: stored.Vector, metadata: stored.Metadata}
			if s.dim == 0 {
				s.dim = len(stored.Vector)
			}
			return nil
		})
	})
}

// Collection returns the collection name.
func (s *Store) Collection() string { return s.collection }

// Path returns the index file path.
func (s *Store) Path() string { return s.path }

// Upsert writes items into the collection. Existing IDs are overwritten,
// new IDs inserted. All items must share the collection's vector dimension.
func (s *Store) Upsert(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("upsert canceled: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The first batch into an empty collection fixes the dimension.
	dim := s.dim
	if dim == 0 {
		dim = len(items[0].Vector)
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		for _, item := range items {
			if len(item.Vector) != dim {
				return fmt.Errorf(
					"document %s: got %d dimensions, want %d: %w",
					item.ID, len(item.Vector), dim, domain.ErrVectorDimMismatch,
				)
			}

			data, err := json.Marshal(storedDocument{
				Vector:   item.Vector,
				Text:     item.Text,
				Metadata: item.Metadata,
			})
			if err != nil {
				return fmt.Errorf("marshal document %s: %w", item.ID, err)
			}
			if err := b.Put([]byte(item.ID), data); err != nil {
				return fmt.Errorf("put document %s: %w", item.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, item := range items {
		// Snapshot the metadata so later caller mutations cannot drift the
		// filter cache away from the persisted document.
		var meta map[string]string
		if item.Metadata != nil {
			meta = make(map[string]string, len(item.Metadata))
			for k, v := range item.Metadata {
				meta[k] = v
			}
		}
		s.vectors[item.ID] = cacheEntry{vector: item.Vector, metadata: meta}
	}
	s.dim = dim
	return nil
}

// Query returns the k nearest documents by ascending cosine distance,
// restricted to documents whose metadata matches every filter entry
// exactly. Tie order between equal distances is unspecified. An empty
// store or empty match set yields an empty result, never an error.
func (s *Store) Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]search.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("query canceled: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if s.dim > 0 && len(vector) != s.dim {
		return nil, fmt.Errorf(
			"query vector: got %d dimensions, want %d: %w",
			len(vector), s.dim, domain.ErrVectorDimMismatch,
		)
	}

	type scored struct {
		id       string
		distance float64
		metadata map[string]string
	}

	scores := make([]scored, 0, len(s.vectors))
	for id, entry := range s.vectors {
		if !matchesFilter(entry.metadata, filter) {
			continue
		}
		scores = append(scores, scored{
			id:       id,
			distance: 1 - cosineSimilarity(vector, entry.vector),
			metadata: entry.metadata,
		})
	}
	if len(scores) == 0 {
		return nil, nil
	}

	sort.Slice(scores, func(i, j int) bool {
		return scores[i].distance < scores[j].distance
	})
	if k > len(scores) {
		k = len(scores)
	}
	scores = scores[:k]

	hits := make([]search.Hit, len(scores))
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		for i, sc := range scores {
			var stored storedDocument
			if data := b.Get([]byte(sc.id)); data != nil {
				if err := json.Unmarshal(data, &stored); err != nil {
					return fmt.Errorf("unmarshal document %s: %w", sc.id, err)
				}
			}
			hits[i] = search.Hit{
				ID:       sc.id,
				Document: stored.Text,
				Metadata: sc.metadata,
				Distance: sc.distance,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return hits, nil
}

// Count returns the number of indexed documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("count canceled: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

// Reset destroys all documents in the collection and reinitializes an
// empty one. Irreversible. The embedding cache bucket is left intact:
// cached vectors stay valid for the same model.
func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("reset canceled: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketEvents); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("delete events bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(bucketEvents); err != nil {
			return fmt.Errorf("recreate events bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.vectors = make(map[string]cacheEntry)
	s.dim = 0
	return nil
}

// Close closes the underlying bbolt file.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	return nil
}

// CacheGet reads a cached embedding value. Returns ErrCacheMiss when absent.
func (s *Store) CacheGet(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cache get canceled: %w", err)
	}
	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEmbCache).Get([]byte(key))
		if data == nil {
			return ErrCacheMiss
		}
		value = make([]byte, len(data))
		copy(value, data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// CacheSet writes a cached embedding value.
func (s *Store) CacheSet(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cache set canceled: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEmbCache).Put([]byte(key), value)
	})
}

// matchesFilter reports whether metadata satisfies every filter entry
// with a case-sensitive exact match.
func matchesFilter(metadata, filter map[string]string) bool {
	for k, want := range filter {
		if metadata[k] != want {
			return false
		}
	}
	return true
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths or zero-norm vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
