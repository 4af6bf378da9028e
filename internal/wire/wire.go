// Package wire implements the JSON framing shared by the telemetry,
// command, and time-sync channels. Payloads are single-line UTF-8 JSON
// objects; unknown fields are carried through untouched so the coprocessor
// can add fields without breaking older robot code.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformed reports a payload that could not be decoded as a JSON object.
	ErrMalformed = errors.New("wire: malformed payload")

	// ErrFieldMissing reports an accessor lookup for a field the payload lacks.
	ErrFieldMissing = errors.New("wire: field missing")

	// ErrWrongType reports a field present with an incompatible type.
	ErrWrongType = errors.New("wire: wrong type")
)

// Object is one decoded payload: a field-name to value mapping. Values are
// the JSON types (json.Number, string, bool, []any, map[string]any, nil).
// An Object is never mutated after Decode returns it, so holding a reference
// across later frames is safe.
type Object map[string]any

// Encode serializes v as a single-line JSON document.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: encode: %w", err)
	}
	return data, nil
}

// Decode parses data as a JSON object. Numbers are kept as json.Number so
// nanosecond timestamps survive without float truncation. Extra or unknown
// fields are retained; callers check presence and type per field.
func Decode(data []byte) (Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj Object
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return obj, nil
}

// Has reports whether the field is present, regardless of its type.
func (o Object) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// Int returns the named field as an int64. Fractional values truncate
// toward zero, matching how the coprocessor's counters are read.
func (o Object) Int(key string) (int64, error) {
	v, ok := o[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrFieldMissing, key)
	}
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), nil
		}
		return 0, fmt.Errorf("%w: %q is not numeric", ErrWrongType, key)
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	}
	return 0, fmt.Errorf("%w: %q is %T, want number", ErrWrongType, key, v)
}

// Float returns the named field as a float64.
func (o Object) Float(key string) (float64, error) {
	v, ok := o[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrFieldMissing, key)
	}
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not numeric", ErrWrongType, key)
		}
		return f, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	}
	return 0, fmt.Errorf("%w: %q is %T, want number", ErrWrongType, key, v)
}

// String returns the named field as a string.
func (o Object) String(key string) (string, error) {
	v, ok := o[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrFieldMissing, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %T, want string", ErrWrongType, key, v)
	}
	return s, nil
}

// Bool returns the named field as a bool.
func (o Object) Bool(key string) (bool, error) {
	v, ok := o[key]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrFieldMissing, key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q is %T, want bool", ErrWrongType, key, v)
	}
	return b, nil
}

// Object returns the named field as a nested Object.
func (o Object) Object(key string) (Object, error) {
	v, ok := o[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFieldMissing, key)
	}
	switch m := v.(type) {
	case Object:
		return m, nil
	case map[string]any:
		return Object(m), nil
	}
	return nil, fmt.Errorf("%w: %q is %T, want object", ErrWrongType, key, v)
}

// Array returns the named field as a JSON array.
func (o Object) Array(key string) ([]any, error) {
	v, ok := o[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFieldMissing, key)
	}
	a, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T, want array", ErrWrongType, key, v)
	}
	return a, nil
}
