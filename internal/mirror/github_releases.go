// Package mirror - github_releases.go implements a client that fetches the
// release assets of a GitHub repository so they can be ingested into the index.
//
// GitHub Releases API endpoint: GET {domain}/repos/{owner}/{repo}/releases
//
// Supported repository formats (all resolve to the same owner/repo):
//
//	owner/repo
//	https://github.com/owner/repo/releases
//	https://github.com/owner/repo
//	https://api.github.com/repos/owner/repo
//
// The client paginates automatically (PerPage releases per page), skips draft
// releases and downloads every asset of the remaining ones, verifying the
// sha256 digest GitHub publishes for the asset when there is one.
package mirror

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/warehub/warehub/internal/telemetry"
	"github.com/warehub/warehub/internal/validation"
)

// DefaultDomain is the public GitHub API.
const DefaultDomain = "https://api.github.com"

// ErrDigestMismatch is returned when a downloaded asset does not hash to the
// digest advertised by the API.
var ErrDigestMismatch = errors.New("asset digest mismatch")

// LookupError is returned when the releases of a repository cannot be listed.
type LookupError struct {
	Repository string
	StatusCode int
	Message    string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("Could not get information on release for '%s':\n\t%s", e.Repository, e.Message)
}

// ParseRepository extracts "owner/repo" from a repository path or a GitHub URL
// in any of the supported formats.
func ParseRepository(repository string) (string, error) {
	u := strings.TrimRight(strings.TrimSpace(repository), "/")
	// Strip scheme + host variants
	for _, prefix := range []string{
		"https://api.github.com/repos/",
		"http://api.github.com/repos/",
		"https://github.com/",
		"http://github.com/",
	} {
		if strings.HasPrefix(strings.ToLower(u), prefix) {
			u = u[len(prefix):]
			break
		}
	}
	// Drop trailing path segments like /releases, /releases/tag/…, etc.
	parts := strings.SplitN(u, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" || strings.Contains(parts[0], ":") {
		return "", fmt.Errorf("cannot parse GitHub owner/repo from %q", repository)
	}
	return parts[0] + "/" + strings.TrimSuffix(parts[1], ".git"), nil
}

// ----- GitHub API types -----------------------------------------------------

// Release is the subset of a GitHub releases API entry the mirror uses.
type Release struct {
	TagName    string  `json:"tag_name"`
	Name       string  `json:"name"`
	Draft      bool    `json:"draft"`
	Prerelease bool    `json:"prerelease"`
	Assets     []Asset `json:"assets"`
}

// Asset is one downloadable file attached to a release. Digest is
// "sha256:<hex>" when GitHub computed one.
type Asset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	Digest             string `json:"digest"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// ----- ReleasesClient -------------------------------------------------------

// ReleasesClient lists and downloads the releases of one repository. Basic
// auth is sent when either Username or Password is set.
type ReleasesClient struct {
	Domain         string
	Repository     string
	Username       string
	Password       string // #nosec G117 -- configuration field resolved from secrets, not a hardcoded credential
	PerPage        int
	HTTPClient     *http.Client
	DownloadClient *http.Client
	Logger         *slog.Logger
}

// NewReleasesClient creates a client for repository on the given API domain.
// An empty domain means DefaultDomain.
func NewReleasesClient(domain, repository string) (*ReleasesClient, error) {
	repo, err := ParseRepository(repository)
	if err != nil {
		return nil, err
	}
	if domain == "" {
		domain = DefaultDomain
	}
	return &ReleasesClient{
		Domain:     strings.TrimRight(domain, "/"),
		Repository: repo,
		PerPage:    100,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		DownloadClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
		Logger: slog.Default(),
	}, nil
}

// RepositoryURL is the API URL of the repository.
func (c *ReleasesClient) RepositoryURL() string {
	return c.Domain + "/repos/" + c.Repository
}

func (c *ReleasesClient) authorize(req *http.Request) {
	if c.Username != "" || c.Password != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
}

// ----- ListReleases ---------------------------------------------------------

// ListReleases fetches every release of the repository, drafts included, in
// the order the API returns them.
func (c *ReleasesClient) ListReleases(ctx context.Context) ([]Release, error) {
	perPage := c.PerPage
	if perPage <= 0 {
		perPage = 100
	}

	var all []Release
	for page := 1; ; page++ {
		releases, err := c.fetchReleasesPage(ctx, page, perPage)
		if err != nil {
			return nil, err
		}
		all = append(all, releases...)
		if len(releases) < perPage {
			break // last page
		}
	}
	return all, nil
}

func (c *ReleasesClient) fetchReleasesPage(ctx context.Context, page, perPage int) ([]Release, error) {
	apiURL := fmt.Sprintf("%s/releases?per_page=%d&page=%d", c.RepositoryURL(), perPage, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build GitHub API request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	c.authorize(req)

	resp, err := c.HTTPClient.Do(req) // #nosec G704 -- URL derived from the configured API domain
	if err != nil {
		telemetry.MirrorRequestsTotal.WithLabelValues("release", "error").Inc()
		return nil, fmt.Errorf("failed to call GitHub releases API: %w", err)
	}
	defer resp.Body.Close()
	telemetry.MirrorRequestsTotal.WithLabelValues("release", strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Message string `json:"message"`
		}
		message := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			message = apiErr.Message
		}
		return nil, &LookupError{Repository: c.Repository, StatusCode: resp.StatusCode, Message: message}
	}

	var releases []Release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, fmt.Errorf("failed to decode GitHub releases response: %w", err)
	}
	return releases, nil
}

// ----- DownloadAssets -------------------------------------------------------

// SelectReleases drops drafts and releases whose tag is outside constraint,
// then orders the rest oldest first. Tags that are not versions keep their
// relative order after the versioned ones.
func SelectReleases(releases []Release, constraint *validation.TagConstraint) []Release {
	var selected []Release
	for _, rel := range releases {
		if rel.Draft || !constraint.Allows(rel.TagName) {
			continue
		}
		selected = append(selected, rel)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		a, b := selected[i].TagName, selected[j].TagName
		if cmp, err := validation.CompareSemver(a, b); err == nil {
			return cmp < 0
		}
		return isVersion(a) && !isVersion(b)
	})
	return selected
}

func isVersion(tag string) bool {
	_, err := validation.CompareSemver(tag, tag)
	return err == nil
}

// DownloadAssets downloads every asset of the selected releases into dir and
// returns the written paths in download order.
func (c *ReleasesClient) DownloadAssets(ctx context.Context, dir string, constraint *validation.TagConstraint) ([]string, error) {
	c.Logger.Info("downloading releases", "repository", c.RepositoryURL(), "constraint", constraint.String())

	releases, err := c.ListReleases(ctx)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, rel := range SelectReleases(releases, constraint) {
		for _, asset := range rel.Assets {
			path, err := c.DownloadAsset(ctx, dir, asset)
			if err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// DownloadAsset streams one asset into dir, named after the asset.
func (c *ReleasesClient) DownloadAsset(ctx context.Context, dir string, asset Asset) (string, error) {
	name := filepath.Base(asset.Name)
	if !filepath.IsLocal(name) || name != asset.Name {
		return "", fmt.Errorf("refusing to download asset with unsafe name %q", asset.Name)
	}
	c.Logger.Info("downloading file", "url", asset.BrowserDownloadURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.BrowserDownloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}
	c.authorize(req)

	resp, err := c.DownloadClient.Do(req) // #nosec G704 -- URL from the release listing
	if err != nil {
		telemetry.MirrorRequestsTotal.WithLabelValues("asset", "error").Inc()
		return "", fmt.Errorf("failed to download %s: %w", asset.BrowserDownloadURL, err)
	}
	defer resp.Body.Close()
	telemetry.MirrorRequestsTotal.WithLabelValues("asset", strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("could not download '%s': %d", asset.BrowserDownloadURL, resp.StatusCode)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, sum, err := StreamWithSHA256(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to download %s: %w", asset.BrowserDownloadURL, err)
	}
	telemetry.MirrorDownloadBytesTotal.Add(float64(n))

	if want, ok := strings.CutPrefix(asset.Digest, "sha256:"); ok && !strings.EqualFold(want, sum) {
		_ = os.Remove(path)
		return "", fmt.Errorf("%w: %s: expected sha256 %s, got %s", ErrDigestMismatch, asset.Name, want, sum)
	}
	return path, nil
}

// StreamWithSHA256 copies r into w while computing its SHA256. Returns the
// number of bytes copied and the lower-case hex-encoded digest.
func StreamWithSHA256(w io.Writer, r io.Reader) (int64, string, error) {
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(w, h), r)
	if err != nil {
		return n, "", fmt.Errorf("failed to read and hash: %w", err)
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}
