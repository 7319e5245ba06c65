// Package event holds the event record value type and the text
// preparation rules used to build embedding input from raw catalog rows.
package event

import (
	"regexp"
	"strings"
)

// Metadata keys stored alongside each indexed document.
const (
	MetaTitle    = "title"
	MetaPrice    = "price"
	MetaFree     = "free"
	MetaDate     = "date"
	MetaTime     = "time"
	MetaDistrict = "district"
	MetaVenue    = "venue"
	MetaType     = "type"
	MetaAudience = "audience"
)

// Record is one row of the Madrid municipal event catalog. Every field
// except ID is optional; absent values are empty strings.
type Record struct {
	ID          string
	Title       string
	Description string
	Type        string // slash-delimited taxonomy path, e.g. "Cultura/Música/Conciertos"
	Price       string
	Free        string
	Date        string
	Time        string
	District    string
	Venue       string
	Audience    string
	URL         string
}

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	tagRegex        = regexp.MustCompile(`<[^>]+>`)
	urlRegex        = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\\(\\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)
)

// Normalize cleans raw field text into embedding-ready form: collapses
// whitespace runs to a single space, trims ends, strips HTML-like tags
// and http(s) URL tokens. Empty input stays empty; never fails.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
	text = tagRegex.ReplaceAllString(text, "")
	text = urlRegex.ReplaceAllString(text, "")
	return text
}

// Compose builds the single text blob embedded for a record, plus the
// metadata projection kept verbatim for filtering and display.
//
// Title and description dominate the semantic signal; category and
// district are appended as disambiguating context. The metadata keeps
// the full taxonomy path; last-segment trimming is a presentation
// concern applied again at query time.
func Compose(r Record) (string, map[string]string) {
	title := Normalize(r.Title)
	description := Normalize(r.Description)
	eventType := Normalize(r.Type)
	district := Normalize(r.District)

	var b strings.Builder
	b.WriteString(title)
	if description != "" {
		b.WriteString(". ")
		b.WriteString(description)
	}
	if eventType != "" {
		b.WriteString(". Categoría: ")
		b.WriteString(LastTaxonomySegment(eventType))
	}
	if district != "" {
		b.WriteString(". Distrito: ")
		b.WriteString(district)
	}
	text := strings.TrimSpace(b.String())

	metadata := map[string]string{
		MetaTitle:    r.Title,
		MetaPrice:    r.Price,
		MetaFree:     r.Free,
		MetaDate:     r.Date,
		MetaTime:     r.Time,
		MetaDistrict: r.District,
		MetaVenue:    r.Venue,
		MetaType:     r.Type,
		MetaAudience: r.Audience,
	}

	return text, metadata
}

// LastTaxonomySegment returns the final token of a slash-delimited
// taxonomy path: "Cultura/Música/Conciertos" -> "Conciertos".
// Paths without a slash are returned unchanged.
func LastTaxonomySegment(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
