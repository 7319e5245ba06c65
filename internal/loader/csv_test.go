package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = `ID-EVENTO;TITULO;DESCRIPCION;TIPO;PRECIO;GRATUITO;FECHA;HORA;DISTRITO-INSTALACION;NOMBRE-INSTALACION;AUDIENCIA;CONTENT-URL
12345;Concierto de jazz;Jazz en directo;Cultura/Música/Conciertos;10 EUR;0;2026-09-12;20:00;Centro;Teatro Real;Adultos;https://madrid.es/ev/12345
12346;Cine de verano;;Cultura/Cine;;1;2026-09-13;22:00;Retiro;Parque del Retiro;;https://madrid.es/ev/12346
`

func TestRead(t *testing.T) {
	records, err := Read(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first.ID != "12345" || first.Title != "Concierto de jazz" {
		t.Errorf("first record = %+v", first)
	}
	if first.Type != "Cultura/Música/Conciertos" || first.District != "Centro" {
		t.Errorf("first record fields = %+v", first)
	}
	if first.Free != "0" || first.Price != "10 EUR" {
		t.Errorf("first record price fields = %+v", first)
	}

	second := records[1]
	if second.Description != "" || second.Free != "1" {
		t.Errorf("second record = %+v", second)
	}
}

func TestReadBOMHeader(t *testing.T) {
	records, err := Read(strings.NewReader("\uFEFF" + sampleCSV))
	if err != nil {
		t.Fatalf("Read with BOM: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestReadSkipsRowsWithoutID(t *testing.T) {
	data := "ID-EVENTO;TITULO\n" +
		"1;Uno\n" +
		";Sin identificador\n" +
		"   ;Espacios\n" +
		"2;Dos\n"

	records, err := Read(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ID != "1" || records[1].ID != "2" {
		t.Errorf("records = %+v", records)
	}
}

func TestReadRaggedRows(t *testing.T) {
	data := "ID-EVENTO;TITULO;DESCRIPCION\n" +
		"1;Corto\n" + // truncated row
		"2;Completo;Con descripción\n"

	records, err := Read(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Description != "" {
		t.Errorf("truncated row description = %q, want empty", records[0].Description)
	}
	if records[1].Description != "Con descripción" {
		t.Errorf("full row description = %q", records[1].Description)
	}
}

func TestReadMissingIDColumn(t *testing.T) {
	if _, err := Read(strings.NewReader("TITULO;DESCRIPCION\nUno;Dos\n")); err == nil {
		t.Error("expected error for dataset without ID column")
	}
}

func TestReadEmptyInput(t *testing.T) {
	records, err := Read(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %+v, want none", records)
	}
}

func TestReadQuotedSemicolons(t *testing.T) {
	data := "ID-EVENTO;TITULO\n" +
		"1;\"Teatro; danza y circo\"\n"

	records, err := Read(strings.NewReader(data))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if records[0].Title != "Teatro; danza y circo" {
		t.Errorf("title = %q", records[0].Title)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	records, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}
