package site

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/warehub/warehub/internal/db/models"
)

// Document is the body of a JSON API response, shaped like PyPI's
// /pypi/<name>/<version>/json.
type Document struct {
	Info            Info                   `json:"info"`
	URLs            []FileEntry            `json:"urls"`
	Releases        map[string][]FileEntry `json:"releases"`
	Vulnerabilities []any                  `json:"vulnerabilities"`
	LastSerial      int                    `json:"last_serial"`
}

// Downloads statistics are not tracked; every counter is -1.
type Downloads struct {
	LastDay   int `json:"last_day"`
	LastWeek  int `json:"last_week"`
	LastMonth int `json:"last_month"`
}

// Info describes one release of a project.
type Info struct {
	Name                   string            `json:"name"`
	Version                string            `json:"version"`
	Summary                *string           `json:"summary"`
	DescriptionContentType *string           `json:"description_content_type"`
	Description            *string           `json:"description"`
	Keywords               *string           `json:"keywords"`
	License                *string           `json:"license"`
	Classifiers            []string          `json:"classifiers"`
	Author                 *string           `json:"author"`
	AuthorEmail            *string           `json:"author_email"`
	Maintainer             *string           `json:"maintainer"`
	MaintainerEmail        *string           `json:"maintainer_email"`
	RequiresPython         *string           `json:"requires_python"`
	Platform               *string           `json:"platform"`
	Downloads              Downloads         `json:"downloads"`
	PackageURL             string            `json:"package_url"`
	ProjectURL             string            `json:"project_url"`
	ProjectURLs            map[string]string `json:"project_urls"`
	ReleaseURL             string            `json:"release_url"`
	RequiresDist           []string          `json:"requires_dist"`
	DocsURL                *string           `json:"docs_url"`
	BugtrackURL            *string           `json:"bugtrack_url"`
	HomePage               *string           `json:"home_page"`
	DownloadURL            *string           `json:"download_url"`
	Yanked                 bool              `json:"yanked"`
	YankedReason           *string           `json:"yanked_reason"`
}

// Digests of one file.
type Digests struct {
	MD5       *string `json:"md5"`
	SHA256    *string `json:"sha256"`
	BLAKE2256 *string `json:"blake2_256"`
}

// FileEntry describes one artifact of a release.
type FileEntry struct {
	Filename          string  `json:"filename"`
	PythonVersion     *string `json:"python_version"`
	PackageType       *string `json:"packagetype"`
	CommentText       *string `json:"comment_text"`
	Size              int64   `json:"size"`
	HasSig            bool    `json:"has_sig"`
	MD5Digest         *string `json:"md5_digest"`
	Digests           Digests `json:"digests"`
	Downloads         int     `json:"downloads"`
	UploadTime        string  `json:"upload_time"`
	UploadTimeISO8601 string  `json:"upload_time_iso_8601"`
	URL               string  `json:"url"`
	RequiresPython    *string `json:"requires_python"`
	Yanked            bool    `json:"yanked"`
	YankedReason      *string `json:"yanked_reason"`
}

// writeAPI writes the JSON documents of every non-yanked release, the latest
// non-yanked release at pypi/<name>/json/ and the redirect pages.
func (g *Generator) writeAPI(v *projectView) error {
	name := v.project.Name()
	entries := g.fileEntries(v)

	var available []*models.Release
	for _, r := range v.releases {
		if r.Yanked() {
			continue
		}
		available = append(available, r)
		if err := g.writeDocument(v, r, entries, name, r.Version(), "json", "index.json"); err != nil {
			return err
		}
		if err := g.writeRedirect(g.url+"/"+ProjectDir+"/"+name+"/"+r.Version()+"/", APIDir, name, r.Version(), "index.html"); err != nil {
			return err
		}
	}

	if latest := LatestRelease(available); latest != nil {
		if err := g.writeDocument(v, latest, entries, name, "json", "index.json"); err != nil {
			return err
		}
	}
	return g.writeRedirect(g.url+"/"+ProjectDir+"/"+name+"/", APIDir, name, "index.html")
}

func (g *Generator) writeDocument(v *projectView, r *models.Release, entries map[string][]FileEntry, elem ...string) error {
	doc := Document{
		Info:            g.info(v.project, r),
		URLs:            entries[r.Version()],
		Releases:        entries,
		Vulnerabilities: []any{},
		LastSerial:      -1,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode json for %s %s: %w", v.project.Name(), r.Version(), err)
	}
	return g.write("json", bytes.TrimSuffix(buf.Bytes(), []byte("\n")), append([]string{APIDir}, elem...)...)
}

func (g *Generator) info(p *models.Project, r *models.Release) Info {
	projectURL := g.url + "/" + ProjectDir + "/" + p.Name()

	urls := make(map[string]string)
	for _, l := range r.URLs() {
		urls[l.Name] = l.URL
	}

	return Info{
		Name:                   p.Name(),
		Version:                r.Version(),
		Summary:                r.Summary(),
		DescriptionContentType: r.DescriptionContentType(),
		Description:            r.Description(),
		Keywords:               r.Keywords(),
		License:                r.License(),
		Classifiers:            nonNil(r.Classifiers()),
		Author:                 r.Author(),
		AuthorEmail:            r.AuthorEmail(),
		Maintainer:             r.Maintainer(),
		MaintainerEmail:        r.MaintainerEmail(),
		RequiresPython:         r.RequiresPython(),
		Platform:               r.Platform(),
		Downloads:              Downloads{LastDay: -1, LastWeek: -1, LastMonth: -1},
		PackageURL:             projectURL,
		ProjectURL:             projectURL,
		ProjectURLs:            urls,
		ReleaseURL:             projectURL + "/" + r.Version(),
		RequiresDist:           nonNil(r.Dependencies(models.DepRequiresDist)),
		HomePage:               r.HomePage(),
		DownloadURL:            r.DownloadURL(),
		Yanked:                 r.Yanked(),
		YankedReason:           emptyAsNull(r.YankedReason()),
	}
}

// fileEntries lists the files of every release, yanked ones included, keyed
// by version.
func (g *Generator) fileEntries(v *projectView) map[string][]FileEntry {
	out := make(map[string][]FileEntry, len(v.releases))
	for _, r := range v.releases {
		list := make([]FileEntry, 0, len(v.files[r.ID()]))
		for _, f := range v.files[r.ID()] {
			list = append(list, FileEntry{
				Filename:      f.Name(),
				PythonVersion: f.PythonVersion(),
				PackageType:   f.PackageType(),
				CommentText:   f.CommentText(),
				Size:          f.Size(),
				HasSig:        f.HasSignature(),
				MD5Digest:     f.MD5Digest(),
				Digests: Digests{
					MD5:       f.MD5Digest(),
					SHA256:    f.SHA256Digest(),
					BLAKE2256: f.BLAKE2256Digest(),
				},
				Downloads:         -1,
				UploadTime:        f.UploadTime(),
				UploadTimeISO8601: f.UploadTime() + "Z",
				URL:               g.fileURL(f),
				RequiresPython:    emptyAsNull(r.RequiresPython()),
				Yanked:            r.Yanked(),
				YankedReason:      emptyAsNull(r.YankedReason()),
			})
		}
		out[r.Version()] = list
	}
	return out
}

// writeRedirect writes a page forwarding to target.
func (g *Generator) writeRedirect(target string, elem ...string) error {
	page := g.fill("redirect", map[string]string{
		"WAREHUB_VERSION": esc(g.version),
		"TITLE":           esc(g.site.Title),
		"TARGET":          esc(target),
	})
	return g.write("redirect", []byte(page), elem...)
}

func emptyAsNull(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
