// Package models - release.go defines the Release record representing one
// version of a project together with the metadata taken from its first artifact.
package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/warehub/warehub/internal/db"
)

// Dependency bundle keys stored under a release's "dependencies" field.
const (
	DepRequires         = "requires"
	DepProvides         = "provides"
	DepObsoletes        = "obsoletes"
	DepRequiresDist     = "requires_dist"
	DepProvidesDist     = "provides_dist"
	DepObsoletesDist    = "obsoletes_dist"
	DepRequiresExternal = "requires_external"
	DepProjectURLs      = "project_urls"
)

// ReleaseSchema is the field layout of the "release" table.
var ReleaseSchema = db.NewSchema("release",
	db.FieldDesc{Name: "project_id", Kind: db.Int},
	db.FieldDesc{Name: "version", Kind: db.String},
	db.FieldDesc{Name: "created", Kind: db.String},
	db.FieldDesc{Name: "author", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "author_email", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "maintainer", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "maintainer_email", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "summary", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "description", Kind: db.Map},
	db.FieldDesc{Name: "keywords", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "classifiers", Kind: db.StringList},
	db.FieldDesc{Name: "license", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "platform", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "home_page", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "download_url", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "requires_python", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "dependencies", Kind: db.Map},
	db.FieldDesc{Name: "project_urls", Kind: db.StringList},
	db.FieldDesc{Name: "uploader", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "uploaded_via", Kind: db.String, Nullable: true},
	db.FieldDesc{Name: "yanked", Kind: db.Bool},
	db.FieldDesc{Name: "yanked_reason", Kind: db.String, Nullable: true},
)

// Release field references for building predicates.
var (
	ReleaseProjectID = ReleaseSchema.Field("project_id")
	ReleaseVersion   = ReleaseSchema.Field("version")
	ReleaseYanked    = ReleaseSchema.Field("yanked")
)

// Release is a typed view over a release record.
type Release struct {
	*db.Record
}

// NewRelease returns an unsaved release of the project with the given id.
func NewRelease(projectID int, version string, created time.Time) *Release {
	r := &Release{Record: ReleaseSchema.New()}
	r.Set("project_id", int64(projectID))
	r.Set("version", version)
	r.Set("created", db.Timestamp(created))
	return r
}

// AsReleases wraps store records.
func AsReleases(records []*db.Record) []*Release {
	out := make([]*Release, len(records))
	for i, r := range records {
		out[i] = &Release{Record: r}
	}
	return out
}

func (r *Release) ProjectID() int           { return int(r.Int("project_id")) }
func (r *Release) Version() string          { return r.String("version") }
func (r *Release) Created() string          { return r.String("created") }
func (r *Release) Author() *string          { return r.OptString("author") }
func (r *Release) AuthorEmail() *string     { return r.OptString("author_email") }
func (r *Release) Maintainer() *string      { return r.OptString("maintainer") }
func (r *Release) MaintainerEmail() *string { return r.OptString("maintainer_email") }
func (r *Release) Summary() *string         { return r.OptString("summary") }
func (r *Release) Keywords() *string        { return r.OptString("keywords") }
func (r *Release) Classifiers() []string    { return r.Strings("classifiers") }
func (r *Release) License() *string         { return r.OptString("license") }
func (r *Release) Platform() *string        { return r.OptString("platform") }
func (r *Release) HomePage() *string        { return r.OptString("home_page") }
func (r *Release) DownloadURL() *string     { return r.OptString("download_url") }
func (r *Release) RequiresPython() *string  { return r.OptString("requires_python") }
func (r *Release) ProjectURLs() []string    { return r.Strings("project_urls") }
func (r *Release) Uploader() *string        { return r.OptString("uploader") }
func (r *Release) UploadedVia() *string     { return r.OptString("uploaded_via") }
func (r *Release) Yanked() bool             { return r.Bool("yanked") }
func (r *Release) YankedReason() *string    { return r.OptString("yanked_reason") }

// SetDescription stores the long description and its declared content type.
func (r *Release) SetDescription(raw, contentType string) {
	r.Set("description", map[string]any{"raw": raw, "content_type": contentType})
}

// Description returns the raw long description, nil when none was stored.
func (r *Release) Description() *string {
	s, ok := r.Map("description")["raw"].(string)
	if !ok {
		return nil
	}
	return &s
}

// DescriptionContentType returns the declared content type, nil when unset.
func (r *Release) DescriptionContentType() *string {
	s, ok := r.Map("description")["content_type"].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// SetDependencies stores the dependency bundle. Empty lists are kept so the
// stored document always carries every key.
func (r *Release) SetDependencies(deps map[string][]string) {
	bundle := make(map[string]any, len(deps))
	for k, v := range deps {
		if v == nil {
			v = []string{}
		}
		bundle[k] = v
	}
	r.Set("dependencies", bundle)
}

// Dependencies returns one list of the dependency bundle.
func (r *Release) Dependencies(key string) []string {
	return db.StringsOf(r.Map("dependencies")[key])
}

// Yank withdraws the release from default discovery.
func (r *Release) Yank(reason string) {
	r.Set("yanked", true)
	if reason == "" {
		r.Set("yanked_reason", nil)
		return
	}
	r.Set("yanked_reason", reason)
}

// Link is a labelled project URL.
type Link struct {
	Name string
	URL  string
}

// URLs lists the release's links: Homepage, Download, then every Project-URL
// entry split at its first comma. Entries with an empty label or URL are
// dropped and a repeated label replaces the earlier URL in place.
func (r *Release) URLs() []Link {
	var links []Link
	put := func(name, url string) {
		for i := range links {
			if links[i].Name == name {
				links[i].URL = url
				return
			}
		}
		links = append(links, Link{Name: name, URL: url})
	}

	if hp := r.HomePage(); hp != nil && *hp != "" {
		put("Homepage", *hp)
	}
	if dl := r.DownloadURL(); dl != nil && *dl != "" {
		put("Download", *dl)
	}
	for _, spec := range r.ProjectURLs() {
		name, url, _ := strings.Cut(spec, ",")
		name = strings.TrimSpace(name)
		url = strings.TrimSpace(url)
		if name != "" && url != "" {
			put(name, url)
		}
	}
	return links
}

var preReleaseRe = regexp.MustCompile(`^(a|b|rc)(0|[1-9][0-9]*)`)

// IsPreRelease reports whether the version starts with an alpha, beta or
// release-candidate marker.
func (r *Release) IsPreRelease() bool {
	return preReleaseRe.MatchString(r.Version())
}

// HasMeta reports whether any of the fields shown in the page sidebar is set.
func (r *Release) HasMeta() bool {
	for _, v := range []*string{
		r.License(), r.Keywords(), r.Author(), r.AuthorEmail(),
		r.Maintainer(), r.MaintainerEmail(), r.RequiresPython(),
	} {
		if v != nil && *v != "" {
			return true
		}
	}
	return false
}
