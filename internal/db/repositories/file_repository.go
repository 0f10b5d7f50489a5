// file_repository.go implements FileRepository, providing store queries for
// release artifacts and the global filename lookup used for uniqueness checks.
package repositories

import (
	"fmt"

	"github.com/warehub/warehub/internal/db"
	"github.com/warehub/warehub/internal/db/models"
)

// FileRepository handles store operations for files
type FileRepository struct {
	store *db.Store
}

// NewFileRepository creates a new file repository
func NewFileRepository(store *db.Store) *FileRepository {
	return &FileRepository{store: store}
}

// ListByRelease returns the files of a release in id order
func (r *FileRepository) ListByRelease(releaseID int) ([]*models.File, error) {
	recs, err := r.store.Query(models.FileSchema, models.FileReleaseID.Eq(int64(releaseID)))
	if err != nil {
		return nil, fmt.Errorf("failed to list files of release %d: %w", releaseID, err)
	}
	return models.AsFiles(recs), nil
}

// FindByName returns every file, across all releases, named exactly name
func (r *FileRepository) FindByName(name string) ([]*models.File, error) {
	recs, err := r.store.Query(models.FileSchema, db.Exactly(models.FileName, name))
	if err != nil {
		return nil, fmt.Errorf("failed to find file %q: %w", name, err)
	}
	return models.AsFiles(recs), nil
}

// Create inserts the file and assigns its id
func (r *FileRepository) Create(file *models.File) error {
	if err := r.store.Insert(models.FileSchema, file.Record); err != nil {
		return fmt.Errorf("failed to create file %q: %w", file.Name(), err)
	}
	return nil
}

// Delete removes the file with the given id
func (r *FileRepository) Delete(id int) error {
	if err := r.store.Delete(models.FileSchema, id); err != nil {
		return fmt.Errorf("failed to delete file %d: %w", id, err)
	}
	return nil
}
