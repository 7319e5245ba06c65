package event

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain text unchanged", "Concierto de jazz", "Concierto de jazz"},
		{"collapses whitespace runs", "Concierto  de \t jazz\n en directo", "Concierto de jazz en directo"},
		{"trims ends", "  Teatro clásico  ", "Teatro clásico"},
		{"strips html tags", "<p>Visita guiada</p> al <b>museo</b>", "Visita guiada al museo"},
		{"strips urls", "Más información en https://www.madrid.es/evento y entradas", "Más información en  y entradas"},
		{"http url", "ver http://example.com/a?b=1 aquí", "ver  aquí"},
		{"only whitespace", "   \n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompose(t *testing.T) {
	r := Record{
		ID:          "ev-1",
		Title:       "Concierto de  jazz",
		Description: "<p>Jazz en directo</p> más en https://madrid.es",
		Type:        "Cultura/Música/Conciertos",
		Price:       "10 EUR",
		Free:        "0",
		Date:        "2026-09-12",
		Time:        "20:00",
		District:    "Centro",
		Venue:       "Teatro Real",
		Audience:    "Adultos",
	}

	text, metadata := Compose(r)

	// The URL is stripped after whitespace collapsing, leaving its
	// preceding space behind.
	want := "Concierto de jazz. Jazz en directo más en . Categoría: Conciertos. Distrito: Centro"
	if text != want {
		t.Errorf("composed text = %q, want %q", text, want)
	}

	// Metadata keeps raw values, including the full taxonomy path.
	if metadata[MetaType] != "Cultura/Música/Conciertos" {
		t.Errorf("metadata type = %q, want full path", metadata[MetaType])
	}
	if metadata[MetaTitle] != r.Title {
		t.Errorf("metadata title = %q, want %q", metadata[MetaTitle], r.Title)
	}
	if metadata[MetaDistrict] != "Centro" || metadata[MetaVenue] != "Teatro Real" {
		t.Errorf("unexpected metadata: %v", metadata)
	}
}

func TestComposeOmitsEmptyParts(t *testing.T) {
	text, _ := Compose(Record{ID: "ev-2", Title: "Cine de verano"})
	if text != "Cine de verano" {
		t.Errorf("title-only text = %q", text)
	}

	text, _ = Compose(Record{ID: "ev-3", Title: "Feria", District: "Retiro"})
	if text != "Feria. Distrito: Retiro" {
		t.Errorf("no-category text = %q", text)
	}
}

func TestComposeBlankRecord(t *testing.T) {
	text, metadata := Compose(Record{ID: "ev-4"})
	if text != "" {
		t.Errorf("blank record text = %q, want empty", text)
	}
	if metadata == nil {
		t.Error("metadata should always be present")
	}
}

func TestComposeNormalizesEmbeddedText(t *testing.T) {
	text, _ := Compose(Record{
		ID:          "ev-5",
		Title:       " Exposición ",
		Description: "Arte   moderno",
	})
	if strings.Contains(text, "  ") {
		t.Errorf("composed text has whitespace runs: %q", text)
	}
}

func TestLastTaxonomySegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Cultura/Música/Conciertos", "Conciertos"},
		{"Deportes", "Deportes"},
		{"", ""},
		{"Cultura/", ""},
	}
	for _, tt := range tests {
		if got := LastTaxonomySegment(tt.in); got != tt.want {
			t.Errorf("LastTaxonomySegment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
