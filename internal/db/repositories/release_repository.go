// release_repository.go implements ReleaseRepository, providing store queries for
// the releases of a project and for yanking a release.
package repositories

import (
	"errors"
	"fmt"

	"github.com/warehub/warehub/internal/db"
	"github.com/warehub/warehub/internal/db/models"
)

// ErrReleaseNotFound is returned by Yank when no release matches.
var ErrReleaseNotFound = errors.New("release not found")

// ReleaseRepository handles store operations for releases
type ReleaseRepository struct {
	store *db.Store
}

// NewReleaseRepository creates a new release repository
func NewReleaseRepository(store *db.Store) *ReleaseRepository {
	return &ReleaseRepository{store: store}
}

// ListByProject returns every release of the project, yanked ones included
func (r *ReleaseRepository) ListByProject(projectID int) ([]*models.Release, error) {
	recs, err := r.store.Query(models.ReleaseSchema, models.ReleaseProjectID.Eq(int64(projectID)))
	if err != nil {
		return nil, fmt.Errorf("failed to list releases of project %d: %w", projectID, err)
	}
	return models.AsReleases(recs), nil
}

// FindByProjectAndVersion returns every release of the project whose version
// is exactly version
func (r *ReleaseRepository) FindByProjectAndVersion(projectID int, version string) ([]*models.Release, error) {
	recs, err := r.store.Query(models.ReleaseSchema, db.And(
		models.ReleaseProjectID.Eq(int64(projectID)),
		db.Exactly(models.ReleaseVersion, version),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find release %s of project %d: %w", version, projectID, err)
	}
	return models.AsReleases(recs), nil
}

// Create inserts the release and assigns its id
func (r *ReleaseRepository) Create(release *models.Release) error {
	if err := r.store.Insert(models.ReleaseSchema, release.Record); err != nil {
		return fmt.Errorf("failed to create release %s: %w", release.Version(), err)
	}
	return nil
}

// Delete removes the release with the given id
func (r *ReleaseRepository) Delete(id int) error {
	if err := r.store.Delete(models.ReleaseSchema, id); err != nil {
		return fmt.Errorf("failed to delete release %d: %w", id, err)
	}
	return nil
}

// Yank marks the matching release as withdrawn. The change is visible in the
// store immediately and persisted by the next Save.
func (r *ReleaseRepository) Yank(projectID int, version, reason string) error {
	releases, err := r.FindByProjectAndVersion(projectID, version)
	if err != nil {
		return err
	}
	if len(releases) == 0 {
		return fmt.Errorf("%w: %s", ErrReleaseNotFound, version)
	}
	for _, rel := range releases {
		rel.Yank(reason)
	}
	return nil
}
