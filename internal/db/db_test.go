package db

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var itemSchema = NewSchema("item",
	FieldDesc{Name: "name", Kind: String},
	FieldDesc{Name: "size", Kind: Int},
	FieldDesc{Name: "tags", Kind: StringList},
	FieldDesc{Name: "note", Kind: String, Nullable: true},
)

func newItem(name string, size int64) *Record {
	r := itemSchema.New()
	r.Set("name", name)
	r.Set("size", size)
	return r
}

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "data.json"))
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

func TestLoad_MissingFileStartsEmpty(t *testing.T) {
	s := newStore(t)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.Load())
	require.NoError(t, s.Load(), "Load must be idempotent")

	got, err := s.Query(itemSchema, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	last, err := s.LastCommit()
	require.NoError(t, err)
	assert.True(t, last.Equal(fixed), "last commit = %v, want %v", last, fixed)
}

func TestLoad_InvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"item": {"abc": {}}}`), 0600))

	_, err := New(path).Query(itemSchema, nil)
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Insert / Query / Remove
// ---------------------------------------------------------------------------

func TestInsert_AssignsSmallestFreeID(t *testing.T) {
	s := newStore(t)

	a, b, c := newItem("a", 1), newItem("b", 2), newItem("c", 3)
	require.NoError(t, s.Insert(itemSchema, a, b, c))
	assert.Equal(t, []int{0, 1, 2}, []int{a.ID(), b.ID(), c.ID()})

	_, err := s.Remove(itemSchema, itemSchema.Field("name").Eq("^b$"))
	require.NoError(t, err)

	d := newItem("d", 4)
	require.NoError(t, s.Insert(itemSchema, d))
	assert.Equal(t, 1, d.ID(), "the gap left by the removed record is reused")

	e := newItem("e", 5)
	require.NoError(t, s.Insert(itemSchema, e))
	assert.Equal(t, 3, e.ID())
}

func TestInsert_ExplicitIDOverwrites(t *testing.T) {
	s := newStore(t)
	a := newItem("a", 1)
	require.NoError(t, s.Insert(itemSchema, a))

	replacement := newItem("a2", 10)
	replacement.id = a.ID()
	require.NoError(t, s.Insert(itemSchema, replacement))

	all, err := s.Query(itemSchema, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "a2", all[0].String("name"))
}

func TestInsert_RejectsForeignSchema(t *testing.T) {
	other := NewSchema("other", FieldDesc{Name: "name", Kind: String})
	s := newStore(t)
	assert.Error(t, s.Insert(itemSchema, other.New()))
}

func TestQuery_ByIDRoundTrip(t *testing.T) {
	s := newStore(t)
	rec := newItem("widget", 42)
	rec.Set("tags", []string{"x", "y"})
	require.NoError(t, s.Insert(itemSchema, newItem("filler", 1), rec))

	got, err := s.Query(itemSchema, func(data map[string]any) bool {
		return data["name"] == "widget"
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID(), got[0].ID())
	assert.Equal(t, "widget", got[0].String("name"))
	assert.Equal(t, int64(42), got[0].Int("size"))
	assert.Equal(t, []string{"x", "y"}, got[0].Strings("tags"))
	assert.Nil(t, got[0].OptString("note"))
}

func TestQuery_MissingTableIsEmpty(t *testing.T) {
	s := newStore(t)
	got, err := s.Query(itemSchema, Always)
	require.NoError(t, err)
	assert.Empty(t, got)

	removed, err := s.Remove(itemSchema, nil)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestQuery_ReturnsLiveViews(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Insert(itemSchema, newItem("a", 1)))

	first, err := s.Query(itemSchema, nil)
	require.NoError(t, err)
	first[0].Set("size", int64(99))

	again, err := s.Query(itemSchema, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(99), again[0].Int("size"))
}

func TestRemove_OnlyMatched(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Insert(itemSchema, newItem("keep", 1), newItem("drop", 2), newItem("drop-too", 3)))

	removed, err := s.Remove(itemSchema, itemSchema.Field("name").Eq("^drop"))
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	left, err := s.Query(itemSchema, nil)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "keep", left[0].String("name"))
	assert.Equal(t, 0, left[0].ID())
}

// ---------------------------------------------------------------------------
// Save
// ---------------------------------------------------------------------------

func TestSave_PersistsDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.json")
	s := New(path)
	saved := time.Date(2024, 6, 2, 8, 30, 0, 123456000, time.Local)
	s.now = func() time.Time { return saved }

	rec := newItem("a", 7)
	rec.Set("tags", []string{"t"})
	require.NoError(t, s.Insert(itemSchema, rec))
	require.NoError(t, s.Save())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "2024-06-02T08:30:00.123456", doc["last_commit"])
	table, ok := doc["item"].(map[string]any)
	require.True(t, ok, "item table missing: %s", raw)
	assert.Contains(t, table, "0")

	reloaded := New(path)
	got, err := reloaded.Query(itemSchema, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got[0].Int("size"))
	assert.Equal(t, []string{"t"}, got[0].Strings("tags"))

	last, err := reloaded.LastCommit()
	require.NoError(t, err)
	assert.True(t, last.Equal(saved))
}

func TestSave_ReportsWriteFailure(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the file makes the final rename fail.
	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "child"), 0750))

	s := New(path)
	s.tables = map[string]map[string]map[string]any{}
	s.loaded = true
	assert.Error(t, s.Save())
}

func TestDelete_ByID(t *testing.T) {
	s := newStore(t)
	a, b := newItem("a", 1), newItem("b", 2)
	require.NoError(t, s.Insert(itemSchema, a, b))

	require.NoError(t, s.Delete(itemSchema, a.ID(), 42))

	left, err := s.Query(itemSchema, nil)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "b", left[0].String("name"))

	require.NoError(t, s.Delete(NewSchema("missing"), 0))
}
