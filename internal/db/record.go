package db

import "fmt"

// Record is a row of a table. It owns its field map directly; records
// returned by Query share that map with the store.
type Record struct {
	id     int
	schema *Schema
	data   map[string]any
}

// ID returns the record id, or -1 while the record has not been inserted.
func (r *Record) ID() int {
	return r.id
}

// Schema returns the record's table schema.
func (r *Record) Schema() *Schema {
	return r.schema
}

// Data exposes the underlying field map.
func (r *Record) Data() map[string]any {
	return r.data
}

// Get returns the raw value of a field.
func (r *Record) Get(name string) any {
	return r.data[name]
}

// Set assigns a declared field.
func (r *Record) Set(name string, value any) {
	if !r.schema.Has(name) {
		panic(fmt.Sprintf("db: table %q has no field %q", r.schema.Table, name))
	}
	r.data[name] = value
}

// String returns a string field, or "" when it is null or not a string.
func (r *Record) String(name string) string {
	s, _ := r.data[name].(string)
	return s
}

// OptString returns a string field as a pointer, nil when the field is null.
func (r *Record) OptString(name string) *string {
	s, ok := r.data[name].(string)
	if !ok {
		return nil
	}
	return &s
}

// Int returns a numeric field as int64.
func (r *Record) Int(name string) int64 {
	switch v := r.data[name].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// Bool returns a boolean field.
func (r *Record) Bool(name string) bool {
	b, _ := r.data[name].(bool)
	return b
}

// Strings returns a list field.
func (r *Record) Strings(name string) []string {
	return toStrings(r.data[name])
}

// Map returns a structured field.
func (r *Record) Map(name string) map[string]any {
	m, _ := r.data[name].(map[string]any)
	return m
}

func toStrings(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// StringsOf converts a list value from a structured field into []string.
func StringsOf(v any) []string {
	return toStrings(v)
}
