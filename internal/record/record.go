// Package record defines the serialized form of persistent entities.
//
// A record is a plain mapping with three fixed keys ("type", "uuid",
// "modified") followed by one key per declared field. Scalar fields
// serialize as literal values, component fields as nested records,
// reference fields as specifier strings only.
package record

import (
	"errors"
	"fmt"
	"time"
)

// Fixed record keys present on every serialized entity.
const (
	KeyType     = "type"
	KeyUUID     = "uuid"
	KeyModified = "modified"
)

// TimeFormat is the timestamp encoding used for the "modified" key.
const TimeFormat = time.RFC3339Nano

// Record is a serialized entity: a mapping of storage keys to values.
// Values are JSON-shaped: bool, int64, float64, string, []any,
// map[string]any, or nested Record.
type Record map[string]any

// ReadError indicates a record that cannot be reconstructed: a required
// key is missing or has the wrong shape. Round-trip failures are always
// explicit, never silently absorbed.
type ReadError struct {
	Key     string
	Message string
}

func (e *ReadError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("record: %s: %s", e.Key, e.Message)
	}
	return fmt.Sprintf("record: %s", e.Message)
}

// IsReadError reports whether err is (or wraps) a record read failure.
func IsReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re)
}

// Type returns the entity type name, or a ReadError if absent.
func (r Record) Type() (string, error) {
	return r.stringKey(KeyType)
}

// UUID returns the canonical identifier string, or a ReadError if absent.
func (r Record) UUID() (string, error) {
	return r.stringKey(KeyUUID)
}

// Modified returns the parsed modification timestamp.
func (r Record) Modified() (time.Time, error) {
	s, err := r.stringKey(KeyModified)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(TimeFormat, s)
	if err != nil {
		return time.Time{}, &ReadError{Key: KeyModified, Message: fmt.Sprintf("bad timestamp %q", s)}
	}
	return t, nil
}

func (r Record) stringKey(key string) (string, error) {
	v, ok := r[key]
	if !ok {
		return "", &ReadError{Key: key, Message: "required key missing"}
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", &ReadError{Key: key, Message: fmt.Sprintf("expected non-empty string, got %T", v)}
	}
	return s, nil
}

// Child returns a nested record stored under key. Accepts both Record and
// map[string]any (the shape produced by generic JSON decoding).
func (r Record) Child(key string) (Record, bool) {
	switch v := r[key].(type) {
	case Record:
		return v, true
	case map[string]any:
		return Record(v), true
	default:
		return nil, false
	}
}

// AsRecord normalizes a decoded value into a Record if it is map-shaped.
func AsRecord(v any) (Record, bool) {
	switch m := v.(type) {
	case Record:
		return m, true
	case map[string]any:
		return Record(m), true
	default:
		return nil, false
	}
}
