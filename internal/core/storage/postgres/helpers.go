package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/smart-student/stats-engine/internal/core/records"
	"github.com/smart-student/stats-engine/internal/core/storage"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanDocument scans an (id, data) row and decodes the JSONB document.
// Compatible with both sql.Row (single) and sql.Rows (multiple).
func scanDocument(row scanner) (string, records.Document, error) {
	var (
		id      string
		rawData []byte
	)
	if err := row.Scan(&id, &rawData); err != nil {
		return "", nil, fmt.Errorf("failed to scan document row: %w", err)
	}

	doc := records.Document{}
	if len(rawData) > 0 {
		if err := json.Unmarshal(rawData, &doc); err != nil {
			return "", nil, fmt.Errorf("failed to unmarshal document %s: %w", id, err)
		}
	}
	return id, doc, nil
}

// marshalNullable marshals v, mapping a nil pointer to SQL NULL rather than
// JSON "null". NULL is returned as an untyped nil so the driver never sees an
// empty byte slice.
func marshalNullable[T any](v *T) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	return b, nil
}

// unmarshalNullable decodes a nullable JSONB column.
func unmarshalNullable[T any](raw []byte) (*T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %T: %w", v, err)
	}
	return &v, nil
}

// classify marks authorization failures (SQLSTATE class 28) as configuration
// errors so that surfaces can report them softly.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "28" {
		return fmt.Errorf("%w: %v", storage.ErrNotConfigured, err)
	}
	return err
}
