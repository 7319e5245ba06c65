package index

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/madlife/eventindex/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path, "event_descriptions")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenCreatesFile(t *testing.T) {
	s := openTestStore(t)
	if s.Collection() != "event_descriptions" {
		t.Errorf("collection = %q", s.Collection())
	}
	n, err := s.Count(context.Background())
	if err != nil || n != 0 {
		t.Errorf("fresh store count = %d, err = %v", n, err)
	}
}

func TestUpsertAndCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	items := []Item{
		{ID: "ev-1", Vector: []float32{1, 0, 0}, Text: "uno", Metadata: map[string]string{"district": "Centro"}},
		{ID: "ev-2", Vector: []float32{0, 1, 0}, Text: "dos", Metadata: map[string]string{"district": "Retiro"}},
	}
	if err := s.Upsert(ctx, items); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	n, _ := s.Count(ctx)
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}

	// Same ID again: overwrite, not duplicate.
	if err := s.Upsert(ctx, []Item{{ID: "ev-1", Vector: []float32{0, 0, 1}, Text: "uno v2"}}); err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}
	n, _ = s.Count(ctx)
	if n != 2 {
		t.Errorf("count after overwrite = %d, want 2", n)
	}

	hits, err := s.Query(ctx, []float32{0, 0, 1}, 1, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "ev-1" || hits[0].Document != "uno v2" {
		t.Errorf("overwritten document not returned: %+v", hits)
	}
}

func TestUpsertDimensionMismatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, []Item{{ID: "ev-1", Vector: []float32{1, 0, 0}, Text: "uno"}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	err := s.Upsert(ctx, []Item{{ID: "ev-2", Vector: []float32{1, 0}, Text: "dos"}})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("got %v, want ErrVectorDimMismatch", err)
	}
}

func TestUpsertMixedDimensionFirstBatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// A mixed batch into an empty store is rejected against the first
	// item's dimension, not silently accepted.
	err := s.Upsert(ctx, []Item{
		{ID: "ev-1", Vector: []float32{1, 0, 0}, Text: "uno"},
		{ID: "ev-2", Vector: []float32{1, 0}, Text: "dos"},
	})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("got %v, want ErrVectorDimMismatch", err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("failed batch left %d documents", n)
	}
}

func TestUpsertCopiesMetadata(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	meta := map[string]string{"district": "Centro"}
	if err := s.Upsert(ctx, []Item{{ID: "ev-1", Vector: []float32{1, 0}, Text: "uno", Metadata: meta}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	meta["district"] = "Retiro"

	hits, err := s.Query(ctx, []float32{1, 0}, 10, map[string]string{"district": "Centro"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("caller mutation leaked into the filter cache, hits = %+v", hits)
	}
}

func TestQueryOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Distinct directions so distances are strictly ordered.
	items := []Item{
		{ID: "far", Vector: []float32{0, 1, 0}, Text: "far"},
		{ID: "near", Vector: []float32{1, 0.1, 0}, Text: "near"},
		{ID: "exact", Vector: []float32{1, 0, 0}, Text: "exact"},
	}
	if err := s.Upsert(ctx, items); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	hits, err := s.Query(ctx, []float32{1, 0, 0}, 10, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}
	wantOrder := []string{"exact", "near", "far"}
	for i, want := range wantOrder {
		if hits[i].ID != want {
			t.Errorf("hit %d = %s, want %s", i, hits[i].ID, want)
		}
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Distance < hits[i-1].Distance {
			t.Errorf("distances not ascending: %f after %f", hits[i].Distance, hits[i-1].Distance)
		}
	}
	// Identical vectors give cosine distance 0.
	if math.Abs(hits[0].Distance) > 1e-9 {
		t.Errorf("exact match distance = %f, want 0", hits[0].Distance)
	}
}

func TestQueryTopKLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	items := []Item{
		{ID: "a", Vector: []float32{1, 0}, Text: "a"},
		{ID: "b", Vector: []float32{0.9, 0.1}, Text: "b"},
		{ID: "c", Vector: []float32{0, 1}, Text: "c"},
	}
	if err := s.Upsert(ctx, items); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	hits, err := s.Query(ctx, []float32{1, 0}, 2, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("got %d hits, want 2", len(hits))
	}

	// k larger than the store yields everything.
	hits, _ = s.Query(ctx, []float32{1, 0}, 100, nil)
	if len(hits) != 3 {
		t.Errorf("got %d hits, want 3", len(hits))
	}
}

func TestQueryFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	items := []Item{
		{ID: "ev-1", Vector: []float32{1, 0}, Text: "uno", Metadata: map[string]string{"district": "Centro", "free": "1"}},
		{ID: "ev-2", Vector: []float32{1, 0}, Text: "dos", Metadata: map[string]string{"district": "Retiro", "free": "1"}},
		{ID: "ev-3", Vector: []float32{1, 0}, Text: "tres", Metadata: map[string]string{"district": "Centro", "free": "0"}},
	}
	if err := s.Upsert(ctx, items); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	hits, err := s.Query(ctx, []float32{1, 0}, 10, map[string]string{"district": "Centro"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}

	// Conjunction across keys.
	hits, _ = s.Query(ctx, []float32{1, 0}, 10, map[string]string{"district": "Centro", "free": "1"})
	if len(hits) != 1 || hits[0].ID != "ev-1" {
		t.Errorf("conjunctive filter hits = %+v", hits)
	}

	// Case-sensitive exact match, no hits.
	hits, _ = s.Query(ctx, []float32{1, 0}, 10, map[string]string{"district": "centro"})
	if len(hits) != 0 {
		t.Errorf("filter should be case-sensitive, got %+v", hits)
	}
}

func TestQueryEmptyStore(t *testing.T) {
	s := openTestStore(t)
	hits, err := s.Query(context.Background(), []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("empty store hits = %+v", hits)
	}
}

func TestQueryDimensionMismatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.Upsert(ctx, []Item{{ID: "ev-1", Vector: []float32{1, 0, 0}, Text: "uno"}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	_, err := s.Query(ctx, []float32{1, 0}, 10, nil)
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("got %v, want ErrVectorDimMismatch", err)
	}
}

func TestReset(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, []Item{{ID: "ev-1", Vector: []float32{1, 0}, Text: "uno"}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	n, _ := s.Count(ctx)
	if n != 0 {
		t.Errorf("count after reset = %d, want 0", n)
	}

	// The store is usable again, including with a new dimensionality.
	if err := s.Upsert(ctx, []Item{{ID: "ev-2", Vector: []float32{1, 0, 0, 0}, Text: "dos"}}); err != nil {
		t.Fatalf("Upsert after reset: %v", err)
	}
	hits, err := s.Query(ctx, []float32{1, 0, 0, 0}, 10, nil)
	if err != nil || len(hits) != 1 {
		t.Errorf("query after reset: hits = %+v, err = %v", hits, err)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	s, err := Open(path, "event_descriptions")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	items := []Item{
		{ID: "ev-1", Vector: []float32{1, 0}, Text: "uno", Metadata: map[string]string{"district": "Centro"}},
	}
	if err := s.Upsert(ctx, items); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path, "event_descriptions")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	n, _ := s2.Count(ctx)
	if n != 1 {
		t.Fatalf("count after reopen = %d, want 1", n)
	}
	hits, err := s2.Query(ctx, []float32{1, 0}, 10, map[string]string{"district": "Centro"})
	if err != nil || len(hits) != 1 {
		t.Fatalf("query after reopen: hits = %+v, err = %v", hits, err)
	}
	if hits[0].Document != "uno" {
		t.Errorf("document after reopen = %q", hits[0].Document)
	}
}

func TestCacheGetSet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CacheGet(ctx, "missing")
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("got %v, want ErrCacheMiss", err)
	}

	if err := s.CacheSet(ctx, "k1", []byte{1, 2, 3}); err != nil {
		t.Fatalf("CacheSet: %v", err)
	}
	got, err := s.CacheGet(ctx, "k1")
	if err != nil {
		t.Fatalf("CacheGet: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("cached value = %v", got)
	}
}

func TestCacheSurvivesReset(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CacheSet(ctx, "k1", []byte{9}); err != nil {
		t.Fatalf("CacheSet: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := s.CacheGet(ctx, "k1"); err != nil {
		t.Errorf("cache entry lost on reset: %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Upsert(ctx, []Item{{ID: "ev-1", Vector: []float32{1}}}); err == nil {
		t.Error("Upsert with canceled context should fail")
	}
	if _, err := s.Query(ctx, []float32{1}, 10, nil); err == nil {
		t.Error("Query with canceled context should fail")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosineSimilarity = %f, want %f", got, tt.want)
			}
		})
	}
}
