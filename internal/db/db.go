// Package db is the record store behind the package index. All tables live in
// one JSON document on disk:
//
//	{
//	  "last_commit": "2024-05-01T12:00:00.000000",
//	  "project": {"0": {...}, "1": {...}},
//	  "release": {"0": {...}},
//	  "file":    {"0": {...}}
//	}
//
// Table names are the lower-cased record type names and record keys are
// decimal ids. The document is loaded once, queried and mutated in memory, and
// written back as a whole by Save. A Store is not safe for concurrent writers,
// in-process or across processes.
package db

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// TimeLayout is the ISO-8601 layout used for every stored timestamp.
const TimeLayout = "2006-01-02T15:04:05.000000"

const lastCommitKey = "last_commit"

// Timestamp formats t with TimeLayout.
func Timestamp(t time.Time) string {
	return t.Format(TimeLayout)
}

// Store is a JSON document of tables held in memory between Load and Save.
type Store struct {
	path       string
	now        func() time.Time
	loaded     bool
	lastCommit string
	tables     map[string]map[string]map[string]any
}

// New creates a store backed by the JSON file at path. Nothing is read until
// the first operation.
func New(path string) *Store {
	return &Store{
		path: path,
		now:  time.Now,
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document into memory unless it is already cached. A missing
// file initialises an empty document stamped with the current time.
func (s *Store) Load() error {
	if s.loaded {
		return nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read database %s: %w", s.path, err)
		}
		s.tables = make(map[string]map[string]map[string]any)
		s.lastCommit = Timestamp(s.now())
		s.loaded = true
		slog.Debug("database file not found, starting empty", "path", s.path)
		return nil
	}

	tables, lastCommit, err := decodeDocument(raw)
	if err != nil {
		return fmt.Errorf("failed to parse database %s: %w", s.path, err)
	}
	s.tables = tables
	s.lastCommit = lastCommit
	s.loaded = true
	return nil
}

// LastCommit returns the time of the last successful Save.
func (s *Store) LastCommit() (time.Time, error) {
	if err := s.Load(); err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation(TimeLayout, s.lastCommit, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid last_commit %q: %w", s.lastCommit, err)
	}
	return t, nil
}

// Query returns every record of schema's table matching where. A nil
// predicate selects everything. Returned records are live views: setting a
// field mutates the in-memory document.
func (s *Store) Query(schema *Schema, where Predicate) ([]*Record, error) {
	if err := s.Load(); err != nil {
		return nil, err
	}

	table, ok := s.tables[schema.Table]
	if !ok {
		return nil, nil
	}

	var results []*Record
	for _, key := range sortedKeys(table) {
		data := table[key]
		if where == nil || where(data) {
			results = append(results, hydrate(schema, key, data))
		}
	}
	return results, nil
}

// Remove deletes and returns every record of schema's table matching where.
func (s *Store) Remove(schema *Schema, where Predicate) ([]*Record, error) {
	if err := s.Load(); err != nil {
		return nil, err
	}

	table, ok := s.tables[schema.Table]
	if !ok {
		return nil, nil
	}

	var removed []*Record
	for _, key := range sortedKeys(table) {
		data := table[key]
		if where == nil || where(data) {
			removed = append(removed, hydrate(schema, key, data))
			delete(table, key)
		}
	}
	return removed, nil
}

// Delete removes the records with the given ids from schema's table. Unknown
// ids are ignored.
func (s *Store) Delete(schema *Schema, ids ...int) error {
	if err := s.Load(); err != nil {
		return err
	}
	table, ok := s.tables[schema.Table]
	if !ok {
		return nil
	}
	for _, id := range ids {
		delete(table, strconv.Itoa(id))
	}
	return nil
}

// Insert stores records in schema's table. A record without an id receives the
// smallest non-negative integer not yet used as a key in that table; a record
// that already has an id is stored under it.
func (s *Store) Insert(schema *Schema, records ...*Record) error {
	if err := s.Load(); err != nil {
		return err
	}

	table, ok := s.tables[schema.Table]
	if !ok {
		table = make(map[string]map[string]any)
		s.tables[schema.Table] = table
	}

	for _, rec := range records {
		if rec.schema != schema {
			return fmt.Errorf("record of table %q cannot be inserted into %q", rec.schema.Table, schema.Table)
		}
		if rec.id < 0 {
			id := 0
			for {
				if _, used := table[strconv.Itoa(id)]; !used {
					break
				}
				id++
			}
			rec.id = id
		}
		table[strconv.Itoa(rec.id)] = rec.data
	}
	return nil
}

// Save stamps last_commit and writes the whole document. The file is replaced
// atomically so a failed write leaves the previous commit intact.
func (s *Store) Save() error {
	if err := s.Load(); err != nil {
		return err
	}

	previous := s.lastCommit
	s.lastCommit = Timestamp(s.now())

	raw, err := s.encodeDocument()
	if err != nil {
		s.lastCommit = previous
		return fmt.Errorf("failed to encode database: %w", err)
	}

	if err := writeFileAtomic(s.path, raw); err != nil {
		s.lastCommit = previous
		return fmt.Errorf("failed to write database %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) encodeDocument() ([]byte, error) {
	doc := make(map[string]any, len(s.tables)+1)
	doc[lastCommitKey] = s.lastCommit
	for name, table := range s.tables {
		doc[name] = table
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeDocument(raw []byte) (map[string]map[string]map[string]any, string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, "", err
	}

	tables := make(map[string]map[string]map[string]any)
	var lastCommit string
	for name, value := range doc {
		if name == lastCommitKey {
			if err := json.Unmarshal(value, &lastCommit); err != nil {
				return nil, "", fmt.Errorf("invalid last_commit: %w", err)
			}
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(value))
		dec.UseNumber()
		var table map[string]map[string]any
		if err := dec.Decode(&table); err != nil {
			return nil, "", fmt.Errorf("invalid table %q: %w", name, err)
		}
		for key, data := range table {
			if _, err := strconv.Atoi(key); err != nil {
				return nil, "", fmt.Errorf("invalid record key %q in table %q", key, name)
			}
			for field, v := range data {
				data[field] = normalize(v)
			}
		}
		tables[name] = table
	}
	return tables, lastCommit, nil
}

// normalize converts json.Number values into int64 or float64 so predicates
// and accessors see plain Go numbers.
func normalize(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = normalize(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalize(x[k])
		}
		return x
	default:
		return v
	}
}

func sortedKeys(table map[string]map[string]any) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.Atoi(keys[i])
		b, _ := strconv.Atoi(keys[j])
		return a < b
	})
	return keys
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
