package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IDField is the key under which GetDocuments exposes a record's id.
const IDField = "_id"

// Document is the decoded JSON body of a stored record.
type Document map[string]any

// ID returns the record id, or "" for documents that were never stored.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// String returns the string stored under key, or fallback when the key is
// absent. A present value that is not a string is an error.
func (d Document) String(key string, fallback string) (string, error) {
	raw, ok := d[key]
	if !ok {
		return fallback, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", key, raw)
	}
	return value, nil
}

// OptionalString returns nil when key is absent or null.
func (d Document) OptionalString(key string) (*string, error) {
	raw, ok := d[key]
	if !ok || raw == nil {
		return nil, nil
	}
	value, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("field %q: expected string, got %T", key, raw)
	}
	return &value, nil
}

// Int coerces the value under key to an integer, returning fallback when the
// key is absent. Numbers are truncated toward zero, booleans map to 0 and 1,
// and strings must hold a base-10 integer.
func (d Document) Int(key string, fallback int64) (int64, error) {
	raw, ok := d[key]
	if !ok {
		return fallback, nil
	}
	value, err := coerceInt(raw)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return value, nil
}

func coerceInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", v.String())
		}
		return truncate(f)
	case float64:
		return truncate(v)
	case float32:
		return truncate(float64(v))
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer literal %q", v)
		}
		return n, nil
	case nil:
		return 0, fmt.Errorf("expected integer, got null")
	default:
		return 0, fmt.Errorf("expected integer, got %T", raw)
	}
}

func truncate(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("cannot convert %v to integer", f)
	}
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, fmt.Errorf("integer out of range: %v", f)
	}
	return int64(f), nil
}

func decodeDocument(id string, body []byte) (Document, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = Document{}
	}
	doc[IDField] = id
	return doc, nil
}
