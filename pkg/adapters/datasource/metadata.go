package datasource

import (
	"fmt"
)

// Field is one named value of a result row.
type Field struct {
	Name  string
	Value any
}

// Row is an ordered list of fields, independent of the driver's row type.
type Row []Field

// Get returns the value of the named field.
func (r Row) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// String returns the named field as a string. NULL maps to "".
func (r Row) String(name string) (string, error) {
	s, err := r.NullableString(name)
	if err != nil || s == nil {
		return "", err
	}
	return *s, nil
}

// NullableString returns the named field as a string, nil for NULL.
func (r Row) NullableString(name string) (*string, error) {
	v, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("column %q not in row", name)
	}
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &val, nil
	case []byte:
		s := string(val)
		return &s, nil
	default:
		return nil, fmt.Errorf("column %q: expected string, got %T", name, v)
	}
}

// NullableInt returns the named field as an int, nil for NULL.
func (r Row) NullableInt(name string) (*int, error) {
	v, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("column %q not in row", name)
	}
	if v == nil {
		return nil, nil
	}
	n, err := toInt64(v)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", name, err)
	}
	i := int(n)
	return &i, nil
}

// Int64 returns the named field as an int64. NULL maps to 0.
func (r Row) Int64(name string) (int64, error) {
	v, ok := r.Get(name)
	if !ok {
		return 0, fmt.Errorf("column %q not in row", name)
	}
	if v == nil {
		return 0, nil
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", name, err)
	}
	return n, nil
}

// Map returns the row as a name → value map. Later duplicates win.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, f := range r {
		m[f.Name] = f.Value
	}
	return m
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint32:
		return int64(n), nil
	case float32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}
