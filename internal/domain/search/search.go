// Package search defines the query-side value types: raw store hits and
// the ranked result rows handed to callers.
package search

import "github.com/madlife/eventindex/internal/domain/event"

// PreviewLimit is the maximum description preview length in characters.
const PreviewLimit = 200

// Hit is one raw nearest-neighbor match as returned by the index store,
// ordered by ascending distance.
type Hit struct {
	ID       string
	Document string
	Metadata map[string]string
	Distance float64
}

// Result is one projected search result row. Transient, rebuilt per query.
type Result struct {
	Rank               int     `json:"rank"`
	EventID            string  `json:"event_id"`
	Title              string  `json:"title"`
	SimilarityScore    float64 `json:"similarity_score"`
	Distance           float64 `json:"distance"`
	DescriptionPreview string  `json:"description_preview"`
	Date               string  `json:"date"`
	Time               string  `json:"time"`
	District           string  `json:"district"`
	Venue              string  `json:"venue"`
	Type               string  `json:"type"`
	Free               string  `json:"free"`
}

// Project converts raw hits into ranked result rows. Rank is 1-based and
// follows hit order. Similarity is 1 - distance; distances outside [0,1]
// produce similarity outside [0,1] and are passed through unclamped.
func Project(hits []Hit) []Result {
	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			Rank:               i + 1,
			EventID:            h.ID,
			Title:              h.Metadata[event.MetaTitle],
			SimilarityScore:    1 - h.Distance,
			Distance:           h.Distance,
			DescriptionPreview: Preview(h.Document),
			Date:               h.Metadata[event.MetaDate],
			Time:               h.Metadata[event.MetaTime],
			District:           h.Metadata[event.MetaDistrict],
			Venue:              h.Metadata[event.MetaVenue],
			Type:               h.Metadata[event.MetaType],
			Free:               h.Metadata[event.MetaFree],
		}
	}
	return results
}

// Preview truncates document text to PreviewLimit characters plus an
// ellipsis marker; shorter text is returned unmodified.
func Preview(document string) string {
	runes := []rune(document)
	if len(runes) <= PreviewLimit {
		return document
	}
	return string(runes[:PreviewLimit]) + "..."
}
