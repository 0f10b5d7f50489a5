// Package ingest turns distribution files into index records. Every artifact
// is inspected, validated and checked against the store and the size limits
// before anything is written; only then are the Project, Release and File
// records inserted and the bytes copied into storage. A failed copy removes
// the records inserted for that artifact again.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/warehub/warehub/internal/config"
	"github.com/warehub/warehub/internal/db"
	"github.com/warehub/warehub/internal/db/models"
	"github.com/warehub/warehub/internal/db/repositories"
	"github.com/warehub/warehub/internal/distribution"
	"github.com/warehub/warehub/internal/storage"
	"github.com/warehub/warehub/internal/telemetry"
	"github.com/warehub/warehub/internal/validation"
)

// FilesDir is the published directory holding every artifact. File records
// store their path relative to the site root under it.
const FilesDir = "files"

// SignatureSuffix marks detached signature files in a batch.
const SignatureSuffix = ".asc"

// Limits bounds what a single artifact and a whole project may occupy.
type Limits struct {
	MaxFileSize      int64
	MaxProjectSize   int64
	MaxSignatureSize int64
}

// DefaultLimits are 100 MB per file, 10 GB per project and 8 KB per signature.
func DefaultLimits() Limits {
	return Limits{
		MaxFileSize:      100 * config.OneMB,
		MaxProjectSize:   10 * config.OneGB,
		MaxSignatureSize: distribution.MaxSignatureSize,
	}
}

// LimitsFromConfig reads the limits from the ingest configuration.
func LimitsFromConfig(cfg *config.IngestConfig) Limits {
	return Limits{
		MaxFileSize:      cfg.MaxFileSize,
		MaxProjectSize:   cfg.MaxProjectSize,
		MaxSignatureSize: cfg.MaxSignatureSize,
	}
}

// Ingester adds artifacts to a store and copies them into storage.
type Ingester struct {
	store    *db.Store
	projects *repositories.ProjectRepository
	releases *repositories.ReleaseRepository
	files    *repositories.FileRepository
	storage  storage.Storage
	limits   Limits
	keyring  *validation.Keyring
	now      func() time.Time
	logger   *slog.Logger
}

// Option customises an Ingester.
type Option func(*Ingester)

// WithKeyring verifies every attached signature against keyring.
func WithKeyring(keyring *validation.Keyring) Option {
	return func(in *Ingester) { in.keyring = keyring }
}

// WithClock replaces time.Now for created and upload timestamps.
func WithClock(now func() time.Time) Option {
	return func(in *Ingester) { in.now = now }
}

// WithLogger replaces slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(in *Ingester) { in.logger = logger }
}

// New creates an Ingester over store and st.
func New(store *db.Store, st storage.Storage, limits Limits, opts ...Option) *Ingester {
	in := &Ingester{
		store:    store,
		projects: repositories.NewProjectRepository(store),
		releases: repositories.NewReleaseRepository(store),
		files:    repositories.NewFileRepository(store),
		storage:  st,
		limits:   limits,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Result describes one accepted artifact.
type Result struct {
	Package    *distribution.Package
	Project    *models.Project
	Release    *models.Release
	File       *models.File
	NewProject bool
	NewRelease bool
}

// URL is the page of the release the artifact was added to, relative to the
// site root.
func (r *Result) URL() string {
	return fmt.Sprintf("project/%s/%s/", r.Project.Name(), r.Release.Version())
}

// stepError records which step rejected an artifact for the metrics.
type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string { return e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

func fail(step string, err error) error {
	return &stepError{step: step, err: err}
}

// plan is everything decided about an artifact before the store is touched.
type plan struct {
	pkg        *distribution.Package
	values     validation.Values
	project    *models.Project
	release    *models.Release
	newProject bool
	newRelease bool
}

// Ingest adds the artifact at path. signatures maps signature file names to
// their paths; the one named after the artifact, if any, is attached.
func (in *Ingester) Ingest(ctx context.Context, path string, signatures map[string]string) (*Result, error) {
	res, err := in.ingest(ctx, path, signatures)

	packageType := "unknown"
	if res != nil {
		packageType = res.Package.Type
	} else if f, derr := distribution.Detect(filepath.Base(path)); derr == nil {
		packageType = f.Type()
	}

	if err != nil {
		step := "error"
		var se *stepError
		if errors.As(err, &se) {
			step = se.step
		}
		telemetry.IngestArtifactsTotal.WithLabelValues(step, packageType).Inc()
		return nil, fmt.Errorf("failed to ingest %s: %w", filepath.Base(path), err)
	}

	telemetry.IngestArtifactsTotal.WithLabelValues("stored", packageType).Inc()
	telemetry.IngestBytesTotal.Add(float64(res.Package.Size))
	return res, nil
}

func (in *Ingester) ingest(ctx context.Context, path string, signatures map[string]string) (*Result, error) {
	p, err := in.prepare(path, signatures)
	if err != nil {
		return nil, err
	}
	if err := in.check(ctx, p); err != nil {
		return nil, err
	}
	return in.commit(ctx, p)
}

// prepare inspects, signs and validates the artifact.
func (in *Ingester) prepare(path string, signatures map[string]string) (*plan, error) {
	pkg, err := distribution.Inspect(path, "")
	if err != nil {
		return nil, fail("inspect", err)
	}

	if sig, ok := signatures[pkg.SignedName()]; ok {
		if err := pkg.AddSignature(sig, in.limits.MaxSignatureSize); err != nil {
			return nil, fail("signature", err)
		}
	}

	in.logger.Info("package created",
		"file", pkg.Filename,
		"size", FormatSize(pkg.Size),
		"type", pkg.Type,
		"signed", pkg.Signature != nil,
	)

	if in.keyring != nil && pkg.Signature != nil {
		result, err := in.keyring.VerifyFile(pkg.Path, pkg.Signature.Content)
		if err != nil {
			return nil, fail("signature", fmt.Errorf("signature %s does not verify: %w", pkg.Signature.Name, err))
		}
		in.logger.Info("signature verified", "file", pkg.Filename, "key_id", result.KeyID)
	}

	values := pkg.MetadataDictionary()
	if err := validation.Validate(values); err != nil {
		return nil, fail("validate", err)
	}

	return &plan{pkg: pkg, values: values}, nil
}

// check resolves the project and release and applies every limit without
// modifying the store.
func (in *Ingester) check(ctx context.Context, p *plan) error {
	pkg := p.pkg
	now := in.now()

	projects, err := in.projects.FindByName(pkg.SafeName)
	if err != nil {
		return fail("store", err)
	}
	switch len(projects) {
	case 0:
		p.project = models.NewProject(pkg.SafeName, now)
		p.project.Set("documentation", "")
		p.newProject = true
	case 1:
		p.project = projects[0]
	default:
		return fail("integrity", fmt.Errorf("%w: multiple projects found with name '%s'", ErrIntegrity, pkg.SafeName))
	}

	if !p.newProject {
		releases, err := in.releases.FindByProjectAndVersion(p.project.ID(), pkg.Metadata.Version)
		if err != nil {
			return fail("store", err)
		}
		switch len(releases) {
		case 0:
		case 1:
			p.release = releases[0]
		default:
			return fail("integrity", fmt.Errorf("%w: multiple releases found with version '%s' of '%s'",
				ErrIntegrity, pkg.Metadata.Version, pkg.SafeName))
		}
	}
	if p.release == nil {
		p.release = newRelease(pkg, p.values, now)
		p.newRelease = true
	}

	if pkg.Size > in.limits.MaxFileSize {
		return fail("file_size", fmt.Errorf("%w: limit for files is %s", ErrFileTooLarge, FormatSize(in.limits.MaxFileSize)))
	}

	existing, err := in.files.FindByName(pkg.Filename)
	if err != nil {
		return fail("store", err)
	}
	if len(existing) > 0 {
		return fail("exists", fmt.Errorf("%w: %s", ErrFileExists, pkg.Filename))
	}
	onDisk, err := in.storage.Exists(ctx, pkg.Filename)
	if err != nil {
		return fail("storage", err)
	}
	if onDisk {
		return fail("exists", fmt.Errorf("%w: %s is already in storage", ErrFileExists, pkg.Filename))
	}

	if total := p.project.TotalSize() + pkg.Size; total > in.limits.MaxProjectSize {
		return fail("project_size", fmt.Errorf("%w: %s would reach %s, limit is %s", ErrProjectTooLarge,
			pkg.SafeName, FormatSize(total), FormatSize(in.limits.MaxProjectSize)))
	}
	return nil
}

// commit inserts the records and copies the bytes. If the copy fails every
// record inserted here is removed again.
func (in *Ingester) commit(ctx context.Context, p *plan) (res *Result, err error) {
	pkg := p.pkg
	var undo []func()
	defer func() {
		if err == nil {
			return
		}
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}()

	if p.newProject {
		if err := in.projects.Create(p.project); err != nil {
			return nil, fail("store", err)
		}
		undo = append(undo, func() { _ = in.projects.Delete(p.project.ID()) })
	}
	if p.newRelease {
		p.release.Set("project_id", int64(p.project.ID()))
		if err := in.releases.Create(p.release); err != nil {
			return nil, fail("store", err)
		}
		undo = append(undo, func() { _ = in.releases.Delete(p.release.ID()) })
	}

	file := newFile(p.release.ID(), pkg, p.values, in.now())
	if err := in.files.Create(file); err != nil {
		return nil, fail("store", err)
	}
	undo = append(undo, func() { _ = in.files.Delete(file.ID()) })

	if err := in.copy(ctx, pkg.Path, pkg.Filename, pkg.Size); err != nil {
		return nil, fail("copy", err)
	}
	undo = append(undo, func() { _ = in.storage.Delete(context.Background(), pkg.Filename) })

	if sig := pkg.Signature; sig != nil {
		if _, err := in.storage.Upload(ctx, pkg.SignedName(), bytes.NewReader(sig.Content), int64(len(sig.Content))); err != nil {
			return nil, fail("copy", fmt.Errorf("failed to store signature %s: %w", pkg.SignedName(), err))
		}
	}

	p.project.AddSize(pkg.Size)

	in.logger.Info("artifact stored",
		"project", p.project.Name(),
		"version", p.release.Version(),
		"file", file.Name(),
		"new_project", p.newProject,
		"new_release", p.newRelease,
	)
	return &Result{
		Package:    pkg,
		Project:    p.project,
		Release:    p.release,
		File:       file,
		NewProject: p.newProject,
		NewRelease: p.newRelease,
	}, nil
}

func (in *Ingester) copy(ctx context.Context, src, name string, size int64) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer f.Close()

	if _, err := in.storage.Upload(ctx, name, f, size); err != nil {
		return fmt.Errorf("failed to store %s: %w", name, err)
	}
	return nil
}

// IngestAll adds a batch of files in order. Files ending in .asc are treated
// as detached signatures of the artifact they are named after. The first
// failure aborts the rest of the batch; the results of the artifacts accepted
// before it are returned alongside the error.
func (in *Ingester) IngestAll(ctx context.Context, paths []string) ([]*Result, error) {
	signatures := make(map[string]string)
	for _, p := range paths {
		if strings.HasSuffix(p, SignatureSuffix) {
			signatures[filepath.Base(p)] = p
		}
	}

	var results []*Result
	for _, p := range paths {
		if strings.HasSuffix(p, SignatureSuffix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := in.Ingest(ctx, p, signatures)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// newRelease builds the release record from the artifact's validated
// metadata. Its project id is set when it is inserted.
func newRelease(pkg *distribution.Package, values validation.Values, now time.Time) *models.Release {
	m := pkg.Metadata
	r := models.NewRelease(-1, m.Version, now)
	r.Set("author", optionalValue(values, "author"))
	r.Set("author_email", optionalValue(values, "author_email"))
	r.Set("maintainer", optionalValue(values, "maintainer"))
	r.Set("maintainer_email", optionalValue(values, "maintainer_email"))
	r.Set("summary", optionalValue(values, "summary"))
	r.SetDescription(m.Description, m.DescriptionContentType)
	r.Set("keywords", optionalValue(values, "keywords"))
	r.Set("classifiers", nonNil(values.List("classifiers")))
	r.Set("license", optionalValue(values, "license"))
	if len(m.Platforms) > 0 {
		r.Set("platform", strings.Join(m.Platforms, ", "))
	}
	r.Set("home_page", optionalValue(values, "home_page"))
	r.Set("download_url", optionalValue(values, "download_url"))
	r.Set("requires_python", optionalValue(values, "requires_python"))
	r.SetDependencies(map[string][]string{
		models.DepRequires:         values.List("requires"),
		models.DepProvides:         values.List("provides"),
		models.DepObsoletes:        values.List("obsoletes"),
		models.DepRequiresDist:     values.List("requires_dist"),
		models.DepProvidesDist:     values.List("provides_dist"),
		models.DepObsoletesDist:    values.List("obsoletes_dist"),
		models.DepRequiresExternal: values.List("requires_external"),
		models.DepProjectURLs:      values.List("project_urls"),
	})
	r.Set("project_urls", nonNil(values.List("project_urls")))
	return r
}

func newFile(releaseID int, pkg *distribution.Package, values validation.Values, now time.Time) *models.File {
	f := models.NewFile(releaseID, pkg.Filename, FilesDir+"/"+pkg.Filename, now)
	f.SetOptional("python_version", values.Optional("pyversion"))
	f.SetOptional("package_type", values.Optional("filetype"))
	f.SetOptional("comment_text", values.Optional("comment"))
	f.Set("size", pkg.Size)
	f.Set("has_signature", pkg.Signature != nil)
	f.SetOptional("md5_digest", optional(pkg.Digests.MD5))
	f.SetOptional("sha256_digest", optional(pkg.Digests.SHA256))
	f.SetOptional("blake2_256_digest", optional(pkg.Digests.BLAKE2b256))
	return f
}

func optionalValue(values validation.Values, name string) any {
	if s := values.Optional(name); s != nil {
		return *s
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
