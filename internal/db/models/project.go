// Package models - project.go defines the Project record: one named package in
// the index and the running size of every file accepted for it.
package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/warehub/warehub/internal/db"
)

// ProjectSchema is the field layout of the "project" table.
var ProjectSchema = db.NewSchema("project",
	db.FieldDesc{Name: "name", Kind: db.String},
	db.FieldDesc{Name: "created", Kind: db.String},
	db.FieldDesc{Name: "documentation", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "total_size", Kind: db.Int},
)

// Project field references for building predicates.
var (
	ProjectName      = ProjectSchema.Field("name")
	ProjectTotalSize = ProjectSchema.Field("total_size")
)

// Project is a typed view over a project record.
type Project struct {
	*db.Record
}

// NewProject returns an unsaved project named name with a zero total size.
func NewProject(name string, created time.Time) *Project {
	p := &Project{Record: ProjectSchema.New()}
	p.Set("name", name)
	p.Set("created", db.Timestamp(created))
	return p
}

// AsProjects wraps store records.
func AsProjects(records []*db.Record) []*Project {
	out := make([]*Project, len(records))
	for i, r := range records {
		out[i] = &Project{Record: r}
	}
	return out
}

func (p *Project) Name() string           { return p.String("name") }
func (p *Project) Created() string        { return p.String("created") }
func (p *Project) Documentation() *string { return p.OptString("documentation") }
func (p *Project) TotalSize() int64       { return p.Int("total_size") }

// AddSize grows the accumulated size of the project's files.
func (p *Project) AddSize(n int64) {
	p.Set("total_size", p.TotalSize()+n)
}

var normalizeRe = regexp.MustCompile(`[-_.]+`)

// NormalizedName is the PEP 503 form of the name: lower case with every run of
// '-', '_' and '.' collapsed to a single '-'.
func (p *Project) NormalizedName() string {
	return NormalizeName(p.Name())
}

// NormalizeName applies the PEP 503 normalisation to name.
func NormalizeName(name string) string {
	return strings.ToLower(normalizeRe.ReplaceAllString(name, "-"))
}
