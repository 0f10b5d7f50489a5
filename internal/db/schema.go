package db

import (
	"fmt"
	"strconv"
)

// Kind is the storage type of a field.
type Kind int

const (
	String Kind = iota
	Int
	Bool
	StringList
	Map
)

// FieldDesc describes one stored field of a record type.
type FieldDesc struct {
	Name    string
	Kind    Kind
	Default func() any
	// Nullable fields store JSON null instead of the zero value when unset.
	Nullable bool
}

// Schema is the field layout of one table.
type Schema struct {
	Table  string
	Fields []FieldDesc
	index  map[string]int
}

// NewSchema builds a schema for table. Field names must be unique.
func NewSchema(table string, fields ...FieldDesc) *Schema {
	s := &Schema{
		Table:  table,
		Fields: fields,
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if _, dup := s.index[f.Name]; dup {
			panic(fmt.Sprintf("db: duplicate field %q in table %q", f.Name, table))
		}
		s.index[f.Name] = i
	}
	return s
}

// Field returns a reference to the named field for building predicates. It
// panics on unknown names since schemas are static.
func (s *Schema) Field(name string) Field {
	if _, ok := s.index[name]; !ok {
		panic(fmt.Sprintf("db: table %q has no field %q", s.Table, name))
	}
	return Field{name: name}
}

// Has reports whether the schema declares name.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// New returns an unsaved record populated with field defaults.
func (s *Schema) New() *Record {
	data := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		data[f.Name] = f.zero()
	}
	return &Record{id: -1, schema: s, data: data}
}

func (f FieldDesc) zero() any {
	if f.Default != nil {
		return f.Default()
	}
	if f.Nullable {
		return nil
	}
	switch f.Kind {
	case Int:
		return int64(0)
	case Bool:
		return false
	case StringList:
		return []string{}
	case Map:
		return map[string]any{}
	default:
		return ""
	}
}

func hydrate(s *Schema, key string, data map[string]any) *Record {
	id, _ := strconv.Atoi(key)
	return &Record{id: id, schema: s, data: data}
}
