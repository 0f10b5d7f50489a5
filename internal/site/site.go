// Package site generates the static package index from the record store: the
// homepage, one page per project and release, the PEP 503 simple index and a
// PyPI-compatible JSON API.
package site

import (
	"context"
	"embed"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/warehub/warehub/internal/config"
	"github.com/warehub/warehub/internal/db"
	"github.com/warehub/warehub/internal/db/models"
	"github.com/warehub/warehub/internal/db/repositories"
	"github.com/warehub/warehub/internal/ingest"
	"github.com/warehub/warehub/internal/telemetry"
)

// Version is written into the generator meta tag of every page.
const Version = "1.0.0"

// Output directories below the repository root. Each is removed and recreated
// on every run.
const (
	ProjectDir = "project"
	SimpleDir  = "simple"
	APIDir     = "pypi"
)

//go:embed templates/*.html
var templateFS embed.FS

// Generator writes the site for one store into a repository root.
type Generator struct {
	projects *repositories.ProjectRepository
	releases *repositories.ReleaseRepository
	files    *repositories.FileRepository

	site      *config.SiteConfig
	url       string
	root      string
	version   string
	logger    *slog.Logger
	templates map[string]string
}

// Option configures a Generator.
type Option func(*Generator)

// WithVersion overrides the version advertised in the pages.
func WithVersion(v string) Option {
	return func(g *Generator) { g.version = v }
}

// WithLogger sets the logger used for progress and warnings.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// New creates a generator writing below root.
func New(store *db.Store, site *config.SiteConfig, root string, opts ...Option) (*Generator, error) {
	g := &Generator{
		projects:  repositories.NewProjectRepository(store),
		releases:  repositories.NewReleaseRepository(store),
		files:     repositories.NewFileRepository(store),
		site:      site,
		url:       strings.TrimRight(site.URL, "/"),
		root:      root,
		version:   Version,
		logger:    slog.Default(),
		templates: make(map[string]string),
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, name := range []string{"homepage", "release", "simple", "redirect"} {
		raw, err := templateFS.ReadFile("templates/" + name + ".html")
		if err != nil {
			return nil, fmt.Errorf("failed to load %s template: %w", name, err)
		}
		g.templates[name] = string(raw)
	}
	return g, nil
}

// projectView is a project with every release and file it owns.
type projectView struct {
	project  *models.Project
	releases []*models.Release
	files    map[int][]*models.File
	latest   *models.Release
}

// Generate rebuilds the whole site.
func (g *Generator) Generate(ctx context.Context) error {
	start := time.Now()
	defer func() {
		telemetry.SiteGenerateDuration.Observe(time.Since(start).Seconds())
	}()

	if err := g.resetDirs(); err != nil {
		return err
	}

	views, err := g.load(ctx)
	if err != nil {
		return err
	}

	for _, v := range views {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.writeProject(v); err != nil {
			return err
		}
		if err := g.writeSimpleProject(v); err != nil {
			return err
		}
		if err := g.writeAPI(v); err != nil {
			return err
		}
	}

	if err := g.writeHomepage(views); err != nil {
		return err
	}
	if err := g.writeSimpleIndex(views); err != nil {
		return err
	}

	g.logger.Info("site generated", "root", g.root, "projects", len(views), "duration", time.Since(start))
	return nil
}

func (g *Generator) resetDirs() error {
	for _, dir := range []string{ProjectDir, SimpleDir, APIDir} {
		path := filepath.Join(g.root, dir)
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
	}
	return nil
}

// load reads every project in id order. Projects without releases are skipped.
func (g *Generator) load(ctx context.Context) ([]*projectView, error) {
	projects, err := g.projects.All()
	if err != nil {
		return nil, err
	}

	views := make([]*projectView, 0, len(projects))
	for _, p := range projects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		releases, err := g.releases.ListByProject(p.ID())
		if err != nil {
			return nil, err
		}
		if len(releases) == 0 {
			g.logger.Warn("project does not have any release", "project", p.Name())
			continue
		}

		v := &projectView{
			project:  p,
			releases: releases,
			files:    make(map[int][]*models.File, len(releases)),
			latest:   LatestRelease(releases),
		}
		for _, r := range releases {
			files, err := g.files.ListByRelease(r.ID())
			if err != nil {
				return nil, err
			}
			v.files[r.ID()] = files
		}
		views = append(views, v)
	}
	return views, nil
}

// LatestRelease returns the release with the greatest version string. Versions
// are compared lexicographically, so "2.9" is newer than "2.10". Returns nil
// for an empty slice.
func LatestRelease(releases []*models.Release) *models.Release {
	var latest *models.Release
	for _, r := range releases {
		if latest == nil || r.Version() > latest.Version() {
			latest = r
		}
	}
	return latest
}

// fileURL is where the artifact is served from.
func (g *Generator) fileURL(f *models.File) string {
	return g.url + "/" + ingest.FilesDir + "/" + f.Name()
}

// releaseURL is the page of one version of a project.
func (g *Generator) releaseURL(name, version string) string {
	return g.url + "/" + ProjectDir + "/" + name + "/" + version + "/"
}

// fill replaces each %%TOKEN%% of the named template.
func (g *Generator) fill(template string, tokens map[string]string) string {
	pairs := make([]string, 0, 2*len(tokens))
	for token, value := range tokens {
		pairs = append(pairs, "%%"+token+"%%", value)
	}
	return strings.NewReplacer(pairs...).Replace(g.templates[template])
}

func (g *Generator) write(view string, content []byte, elem ...string) error {
	path := filepath.Join(append([]string{g.root}, elem...)...)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	telemetry.SitePagesTotal.WithLabelValues(view).Inc()
	g.logger.Debug("page written", "view", view, "path", path)
	return nil
}

func esc(s string) string {
	return html.EscapeString(s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
