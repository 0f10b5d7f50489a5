package repositories

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/warehub/warehub/internal/db"
	"github.com/warehub/warehub/internal/db/models"
)

var now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local)

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	return db.New(filepath.Join(t.TempDir(), "db.json"))
}

// ---------------------------------------------------------------------------
// ProjectRepository
// ---------------------------------------------------------------------------

func TestProjectRepository_FindByName_Exact(t *testing.T) {
	repo := NewProjectRepository(newTestStore(t))
	for _, name := range []string{"demo", "demo2", "my.demo", "myxdemo"} {
		if err := repo.Create(models.NewProject(name, now)); err != nil {
			t.Fatalf("Create(%q): %v", name, err)
		}
	}

	tests := []struct {
		name string
		want int
	}{
		{"demo", 1},
		{"my.demo", 1},
		{"dem", 0},
		{"DEMO", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindByName(tt.name)
			if err != nil {
				t.Fatalf("FindByName: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("FindByName(%q) returned %d projects, want %d", tt.name, len(got), tt.want)
			}
		})
	}
}

func TestProjectRepository_AllAndDelete(t *testing.T) {
	repo := NewProjectRepository(newTestStore(t))
	a := models.NewProject("a", now)
	b := models.NewProject("b", now)
	for _, p := range []*models.Project{a, b} {
		if err := repo.Create(p); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if a.ID() != 0 || b.ID() != 1 {
		t.Errorf("ids = %d,%d, want 0,1", a.ID(), b.ID())
	}

	if err := repo.Delete(a.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, err := repo.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 || all[0].Name() != "b" {
		t.Errorf("All() after delete = %v", all)
	}
}

// ---------------------------------------------------------------------------
// ReleaseRepository
// ---------------------------------------------------------------------------

func TestReleaseRepository_Lookup(t *testing.T) {
	store := newTestStore(t)
	repo := NewReleaseRepository(store)

	for _, r := range []*models.Release{
		models.NewRelease(0, "1.0", now),
		models.NewRelease(0, "1.0.1", now),
		models.NewRelease(1, "1.0", now),
	} {
		if err := repo.Create(r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	list, err := repo.ListByProject(0)
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("ListByProject(0) = %d releases, want 2", len(list))
	}

	found, err := repo.FindByProjectAndVersion(0, "1.0")
	if err != nil {
		t.Fatalf("FindByProjectAndVersion: %v", err)
	}
	if len(found) != 1 || found[0].Version() != "1.0" || found[0].ProjectID() != 0 {
		t.Errorf("FindByProjectAndVersion(0, 1.0) = %v", found)
	}

	none, err := repo.FindByProjectAndVersion(2, "1.0")
	if err != nil {
		t.Fatalf("FindByProjectAndVersion: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no release for project 2, got %d", len(none))
	}
}

func TestReleaseRepository_Yank(t *testing.T) {
	store := newTestStore(t)
	repo := NewReleaseRepository(store)
	if err := repo.Create(models.NewRelease(0, "1.0", now)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.Yank(0, "1.0", "bad build"); err != nil {
		t.Fatalf("Yank: %v", err)
	}
	got, _ := repo.FindByProjectAndVersion(0, "1.0")
	if !got[0].Yanked() {
		t.Error("release should be yanked in the live store")
	}

	err := repo.Yank(0, "9.9", "")
	if !errors.Is(err, ErrReleaseNotFound) {
		t.Errorf("Yank on missing version: got %v, want ErrReleaseNotFound", err)
	}
}

// ---------------------------------------------------------------------------
// FileRepository
// ---------------------------------------------------------------------------

func TestFileRepository(t *testing.T) {
	store := newTestStore(t)
	repo := NewFileRepository(store)

	wheel := models.NewFile(0, "demo-1.0-py3-none-any.whl", "files/demo-1.0-py3-none-any.whl", now)
	sdist := models.NewFile(0, "demo-1.0.tar.gz", "files/demo-1.0.tar.gz", now)
	other := models.NewFile(1, "demo-2.0.tar.gz", "files/demo-2.0.tar.gz", now)
	for _, f := range []*models.File{wheel, sdist, other} {
		if err := repo.Create(f); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	files, err := repo.ListByRelease(0)
	if err != nil {
		t.Fatalf("ListByRelease: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("ListByRelease(0) = %d files, want 2", len(files))
	}

	byName, err := repo.FindByName("demo-1.0.tar.gz")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if len(byName) != 1 || byName[0].ID() != sdist.ID() {
		t.Errorf("FindByName returned %v", byName)
	}

	if err := repo.Delete(sdist.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	byName, _ = repo.FindByName("demo-1.0.tar.gz")
	if len(byName) != 0 {
		t.Error("file should be gone after Delete")
	}
}
