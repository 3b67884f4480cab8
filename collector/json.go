package collector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pevans/eptexts/document"
)

// WriteJSON writes records to path as an indented UTF-8 JSON array.
// Non-ASCII characters and HTML-significant characters are written
// literally.
func WriteJSON(path string, records []document.Record) error {
	if records == nil {
		records = []document.Record{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}

	return nil
}

// ReadJSON reads records previously written by WriteJSON.
func ReadJSON(path string) ([]document.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	var records []document.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal records: %w", err)
	}
	return records, nil
}
