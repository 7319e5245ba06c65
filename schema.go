package eventindex

import (
	"context"

	domsearch "github.com/madlife/eventindex/internal/domain/search"
)

// Embedder vectorizes text. Implementations wrap whichever embedding
// provider the application uses; the model must stay the same for the
// lifetime of a collection.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Record is one event from the Madrid municipal catalog. ID is required;
// every other field is optional.
type Record struct {
	ID          string
	Title       string
	Description string
	Type        string // slash-delimited taxonomy path
	Price       string
	Free        string
	Date        string
	Time        string
	District    string
	Venue       string
	Audience    string
	URL         string
}

// SearchOptions configures a search query.
type SearchOptions struct {
	// TopK caps the number of results. Zero means the default (10);
	// values above the maximum (50) are capped.
	TopK int
	// Filters are exact-match metadata constraints, e.g.
	// {"district": "Centro", "free": "1"}. Empty values are ignored.
	Filters map[string]string
}

// SearchResult is one ranked search hit.
type SearchResult struct {
	Rank               int
	EventID            string
	Title              string
	SimilarityScore    float64
	Distance           float64
	DescriptionPreview string
	Date               string
	Time               string
	District           string
	Venue              string
	Type               string
	Free               string
}

// Stats is the collection statistics snapshot.
type Stats struct {
	TotalEvents    int
	CollectionName string
	ModelName      string
	DBPath         string
}

func fromSearchResults(results []domsearch.Result) []SearchResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			Rank:               r.Rank,
			EventID:            r.EventID,
			Title:              r.Title,
			SimilarityScore:    r.SimilarityScore,
			Distance:           r.Distance,
			DescriptionPreview: r.DescriptionPreview,
			Date:               r.Date,
			Time:               r.Time,
			District:           r.District,
			Venue:              r.Venue,
			Type:               r.Type,
			Free:               r.Free,
		}
	}
	return out
}
