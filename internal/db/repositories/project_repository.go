// project_repository.go implements ProjectRepository, providing store queries for
// looking up and creating projects by name.
package repositories

import (
	"fmt"

	"github.com/warehub/warehub/internal/db"
	"github.com/warehub/warehub/internal/db/models"
)

// ProjectRepository handles store operations for projects
type ProjectRepository struct {
	store *db.Store
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(store *db.Store) *ProjectRepository {
	return &ProjectRepository{store: store}
}

// All returns every project in id order
func (r *ProjectRepository) All() ([]*models.Project, error) {
	recs, err := r.store.Query(models.ProjectSchema, db.Always)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return models.AsProjects(recs), nil
}

// FindByName returns every project whose name is exactly name. More than one
// result means the store is corrupt; the caller decides how to react.
func (r *ProjectRepository) FindByName(name string) ([]*models.Project, error) {
	recs, err := r.store.Query(models.ProjectSchema, db.Exactly(models.ProjectName, name))
	if err != nil {
		return nil, fmt.Errorf("failed to find project %q: %w", name, err)
	}
	return models.AsProjects(recs), nil
}

// Create inserts the project and assigns its id
func (r *ProjectRepository) Create(project *models.Project) error {
	if err := r.store.Insert(models.ProjectSchema, project.Record); err != nil {
		return fmt.Errorf("failed to create project %q: %w", project.Name(), err)
	}
	return nil
}

// Delete removes the project with the given id
func (r *ProjectRepository) Delete(id int) error {
	if err := r.store.Delete(models.ProjectSchema, id); err != nil {
		return fmt.Errorf("failed to delete project %d: %w", id, err)
	}
	return nil
}
