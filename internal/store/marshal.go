package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/assetaudit/internal/audit"
)

// marshalJSON encodes a collection column. HTML escaping is disabled so
// asset names like "iPad Pro 12.9\"" or "A&B" are stored as written.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func marshalScanResult(r *audit.ScanResult) (sql.NullString, error) {
	if r == nil {
		return sql.NullString{}, nil
	}
	data, err := marshalJSON(r)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal scan results: %w", err)
	}
	return sql.NullString{String: data, Valid: true}, nil
}

// unmarshalList parses a JSON array column; empty means an empty slice.
func unmarshalList[T any](data, column string) ([]T, error) {
	out := []T{}
	if data == "" || data == "[]" || data == "null" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", column, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func unmarshalScanResult(data sql.NullString) (*audit.ScanResult, error) {
	if !data.Valid || data.String == "" {
		return nil, nil
	}
	var r audit.ScanResult
	if err := json.Unmarshal([]byte(data.String), &r); err != nil {
		return nil, fmt.Errorf("unmarshal scan results: %w", err)
	}
	return &r, nil
}
