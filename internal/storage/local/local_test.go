package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/warehub/warehub/internal/config"
	"github.com/warehub/warehub/internal/storage"
)

// newTestStorage creates a LocalStorage backed by a temporary directory.
func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatal("New:", err)
	}
	return s
}

// ---------------------------------------------------------------------------
// New / factory registration
// ---------------------------------------------------------------------------

func TestNew_CreatesDirectory(t *testing.T) {
	subDir := filepath.Join(t.TempDir(), "a", "b", "c")
	if _, err := New(subDir); err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, err := os.Stat(subDir); os.IsNotExist(err) {
		t.Error("New() did not create base directory")
	}
}

func TestFactory_ResolvesBasePathAgainstRoot(t *testing.T) {
	root := t.TempDir()
	cfg := &config.Config{}
	cfg.Paths.Root = root
	cfg.Storage.DefaultBackend = "local"
	cfg.Storage.Local.BasePath = "files"

	s, err := storage.NewStorage(cfg)
	if err != nil {
		t.Fatalf("NewStorage() error: %v", err)
	}
	ls, ok := s.(*LocalStorage)
	if !ok {
		t.Fatalf("NewStorage() returned %T, want *LocalStorage", s)
	}
	if want := filepath.Join(root, "files"); ls.BasePath() != want {
		t.Errorf("BasePath() = %q, want %q", ls.BasePath(), want)
	}
}

// ---------------------------------------------------------------------------
// Upload
// ---------------------------------------------------------------------------

func TestUpload(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	content := "hello, world"
	result, err := s.Upload(ctx, "demo-1.0.tar.gz", strings.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	if result.Path != "demo-1.0.tar.gz" {
		t.Errorf("Path = %q, want demo-1.0.tar.gz", result.Path)
	}
	if result.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", result.Size, len(content))
	}
	// sha256("hello, world")
	const want = "09ca7e4eaa6e8ae9c7d261167129184883644d07dfba7cbfbc4c8a2e08360d5b"
	if result.Checksum != want {
		t.Errorf("Checksum = %q, want %q", result.Checksum, want)
	}
}

func TestUpload_CreatesSubdirectories(t *testing.T) {
	s := newTestStorage(t)

	if _, err := s.Upload(context.Background(), "deep/nested/file.whl", strings.NewReader("data"), 4); err != nil {
		t.Fatalf("Upload() error for deep path: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.basePath, "deep", "nested", "file.whl")); os.IsNotExist(err) {
		t.Error("Upload() did not create file at nested path")
	}
}

func TestUpload_SizeMismatchLeavesNothing(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if _, err := s.Upload(ctx, "short.whl", strings.NewReader("abc"), 10); err == nil {
		t.Fatal("Upload() expected error for size mismatch")
	}
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Upload() left %d entries behind after failure", len(entries))
	}
}

func TestUpload_UnknownSize(t *testing.T) {
	s := newTestStorage(t)
	result, err := s.Upload(context.Background(), "any.whl", strings.NewReader("abcdef"), -1)
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if result.Size != 6 {
		t.Errorf("Size = %d, want 6", result.Size)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestUpload_ReaderErrorLeavesNothing(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.Upload(context.Background(), "broken.whl", failingReader{}, -1); err == nil {
		t.Fatal("Upload() expected error from failing reader")
	}
	ok, _ := s.Exists(context.Background(), "broken.whl")
	if ok {
		t.Error("Upload() left a partial artifact behind")
	}
}

func TestUpload_CancelledContext(t *testing.T) {
	s := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Upload(ctx, "x.whl", strings.NewReader("x"), 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Upload() error = %v, want context.Canceled", err)
	}
}

func TestUpload_RejectsEscapingPaths(t *testing.T) {
	s := newTestStorage(t)
	for _, p := range []string{"../escape.whl", "/abs.whl", "a/../../b.whl", ""} {
		t.Run(p, func(t *testing.T) {
			_, err := s.Upload(context.Background(), p, strings.NewReader("x"), 1)
			if !errors.Is(err, storage.ErrInvalidPath) {
				t.Errorf("Upload(%q) error = %v, want ErrInvalidPath", p, err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Download
// ---------------------------------------------------------------------------

func TestDownload(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	want := "download me"
	if _, err := s.Upload(ctx, "dl.txt", strings.NewReader(want), int64(len(want))); err != nil {
		t.Fatal("Upload:", err)
	}

	rc, err := s.Download(ctx, "dl.txt")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != want {
		t.Errorf("Download() content = %q, want %q", string(data), want)
	}
}

func TestDownload_NotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Download(context.Background(), "nonexistent.txt")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Download() error = %v, want ErrNotFound", err)
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestDelete(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if _, err := s.Upload(ctx, "to-delete.txt", strings.NewReader("bye"), 3); err != nil {
		t.Fatal("Upload:", err)
	}
	if err := s.Delete(ctx, "to-delete.txt"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if exists, _ := s.Exists(ctx, "to-delete.txt"); exists {
		t.Error("Delete() file still exists after deletion")
	}
}

func TestDelete_NonExistentFile(t *testing.T) {
	s := newTestStorage(t)

	// Deleting a file that doesn't exist should be a no-op (no error).
	if err := s.Delete(context.Background(), "does-not-exist.txt"); err != nil {
		t.Errorf("Delete() error for non-existent file: %v (want nil)", err)
	}
}

func TestDelete_CleansUpEmptyParentDirs(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if _, err := s.Upload(ctx, "sub/leaf.txt", strings.NewReader("x"), 1); err != nil {
		t.Fatal("Upload:", err)
	}
	if err := s.Delete(ctx, "sub/leaf.txt"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(s.basePath, "sub")); !os.IsNotExist(err) {
		t.Error("Delete() should clean up empty parent directory 'sub'")
	}
	if _, err := os.Stat(s.basePath); err != nil {
		t.Errorf("Delete() removed the base directory: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Exists
// ---------------------------------------------------------------------------

func TestExists(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "no-such.txt")
	if err != nil {
		t.Fatalf("Exists() error: %v", err)
	}
	if ok {
		t.Error("Exists() = true for non-existent file, want false")
	}

	if _, err := s.Upload(ctx, "yes.txt", strings.NewReader("data"), 4); err != nil {
		t.Fatal("Upload:", err)
	}

	ok, err = s.Exists(ctx, "yes.txt")
	if err != nil {
		t.Fatalf("Exists() error after upload: %v", err)
	}
	if !ok {
		t.Error("Exists() = false for existing file, want true")
	}
}

// ---------------------------------------------------------------------------
// GetMetadata
// ---------------------------------------------------------------------------

func TestGetMetadata(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	content := []byte("metadata test content")
	uploadResult, err := s.Upload(ctx, "meta.txt", bytes.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatal("Upload:", err)
	}

	meta, err := s.GetMetadata(ctx, "meta.txt")
	if err != nil {
		t.Fatalf("GetMetadata() error: %v", err)
	}

	if meta.Path != "meta.txt" {
		t.Errorf("Path = %q, want meta.txt", meta.Path)
	}
	if meta.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", meta.Size, len(content))
	}
	if meta.Checksum != uploadResult.Checksum {
		t.Errorf("GetMetadata checksum %q != Upload checksum %q", meta.Checksum, uploadResult.Checksum)
	}
	if meta.LastModified.IsZero() {
		t.Error("LastModified should not be zero")
	}
}

func TestGetMetadata_NotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetMetadata(context.Background(), "not-here.txt")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetMetadata() error = %v, want ErrNotFound", err)
	}
}
