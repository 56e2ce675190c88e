package loaderapp

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Document describes one parent record to apply: direct column values plus
// nested attribute payloads keyed by association name.
type Document struct {
	// Type is the record type name, e.g. "article".
	Type string `json:"type"`
	// ID selects an existing parent row. Absent means create a new record.
	ID any `json:"id,omitempty"`
	// Locale the assignment runs under; falls back to the configured default.
	Locale string `json:"locale,omitempty"`
	// Fields are column values set directly on the parent.
	Fields map[string]any `json:"fields,omitempty"`
	// Nested maps association names to raw nested attribute input: a mapping
	// for singular associations, a sequence or index-keyed mapping for
	// collections.
	Nested map[string]any `json:"nested,omitempty"`
}

type documentFile struct {
	Documents []Document `json:"documents"`
}

// ReadDocuments loads the input file. "@-" reads from stdin. Numbers decode
// as json.Number so large identifiers survive without float rounding.
func ReadDocuments(path string) ([]Document, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("no input document configured")
	}

	var reader io.Reader
	if path == "@-" {
		reader = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() {
			_ = f.Close()
		}()
		reader = f
	}

	return decodeDocuments(reader)
}

func decodeDocuments(r io.Reader) ([]Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var file documentFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode document file: %w", err)
	}

	for i, doc := range file.Documents {
		if strings.TrimSpace(doc.Type) == "" {
			return nil, fmt.Errorf("document %d: record type is required", i)
		}
	}
	return file.Documents, nil
}
