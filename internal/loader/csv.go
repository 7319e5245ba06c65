// Package loader parses the semicolon-delimited Madrid event catalog CSV
// into event records. Fetching the remote catalog is a separate concern;
// this package only reads an already-downloaded file or stream.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/madlife/eventindex/internal/domain/event"
)

// Column names as published in the Madrid open data catalog.
const (
	colID          = "ID-EVENTO"
	colTitle       = "TITULO"
	colDescription = "DESCRIPCION"
	colType        = "TIPO"
	colPrice       = "PRECIO"
	colFree        = "GRATUITO"
	colDate        = "FECHA"
	colTime        = "HORA"
	colDistrict    = "DISTRITO-INSTALACION"
	colVenue       = "NOMBRE-INSTALACION"
	colAudience    = "AUDIENCIA"
	colURL         = "CONTENT-URL"
)

// ReadFile parses the catalog CSV at path.
func ReadFile(path string) ([]event.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	return records, nil
}

// Read parses semicolon-delimited catalog rows from r. Rows without an
// event ID are dropped; every other field is optional and defaults to
// the empty string. Ragged rows are tolerated.
func Read(r io.Reader) ([]event.Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		columns[strings.TrimSpace(name)] = i
	}
	if _, ok := columns[colID]; !ok {
		return nil, fmt.Errorf("dataset has no %s column", colID)
	}

	var records []event.Record
	line := 1
	for {
		row, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		line++

		field := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}

		id := strings.TrimSpace(field(colID))
		if id == "" {
			continue
		}

		records = append(records, event.Record{
			ID:          id,
			Title:       field(colTitle),
			Description: field(colDescription),
			Type:        field(colType),
			Price:       field(colPrice),
			Free:        field(colFree),
			Date:        field(colDate),
			Time:        field(colTime),
			District:    field(colDistrict),
			Venue:       field(colVenue),
			Audience:    field(colAudience),
			URL:         field(colURL),
		})
	}

	return records, nil
}
