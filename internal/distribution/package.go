// Package distribution inspects Python distribution archives: it detects the
// packaging format from the file name, extracts the embedded core metadata,
// derives the safe project name and python tag, and digests the file content.
package distribution

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ProtonMail/go-crypto/openpgp/armor"

	"github.com/warehub/warehub/internal/validation"
	"github.com/warehub/warehub/pkg/checksum"
)

// MaxSignatureSize is the default limit for a detached signature (8KB).
const MaxSignatureSize = 8 * 1024

// Signature is a detached signature attached to a package.
type Signature struct {
	Name    string
	Content []byte
}

// Package is an inspected distribution file.
type Package struct {
	Path     string
	Filename string
	Type     string
	Size     int64
	Comment  string

	Metadata *Metadata
	SafeName string
	// PythonVersion is nil for formats without a python tag.
	PythonVersion *string
	Digests       checksum.Digests
	Signature     *Signature
}

var unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9.]+`)

// SafeName collapses every run of characters outside [A-Za-z0-9.] into a
// single '-'.
func SafeName(name string) string {
	return unsafeNameRe.ReplaceAllString(name, "-")
}

// Inspect detects the format of the file at path, reads its metadata and
// digests its content.
func Inspect(path, comment string) (*Package, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidDistribution, path)
	}

	filename := filepath.Base(path)
	format, err := Detect(filename)
	if err != nil {
		return nil, err
	}

	meta, err := format.Extract(path)
	if err != nil {
		return nil, err
	}
	if meta.Name == "" || meta.Version == "" {
		return nil, fmt.Errorf("%w: metadata of %s lacks a name or version", ErrInvalidDistribution, filename)
	}

	digests, err := checksum.CalculateFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to digest %s: %w", filename, err)
	}

	pkg := &Package{
		Path:     path,
		Filename: filename,
		Type:     format.Type(),
		Size:     info.Size(),
		Comment:  comment,
		Metadata: meta,
		SafeName: SafeName(meta.Name),
		Digests:  digests,
	}
	if tag, ok := format.PythonVersion(filename); ok {
		pkg.PythonVersion = &tag
	}
	return pkg, nil
}

// SignedName is the file name a detached signature for this package has.
func (p *Package) SignedName() string {
	return p.Filename + ".asc"
}

// SignedPath is where a detached signature is expected next to the package.
func (p *Package) SignedPath() string {
	return filepath.Join(filepath.Dir(p.Path), p.SignedName())
}

// AddSignature attaches the ASCII-armoured detached signature at path. A
// maxSize of zero or less selects MaxSignatureSize.
func (p *Package) AddSignature(path string, maxSize int64) error {
	if p.Signature != nil {
		return ErrSignatureExists
	}
	if maxSize <= 0 {
		maxSize = MaxSignatureSize
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open signature %s: %w", path, err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return fmt.Errorf("failed to read signature %s: %w", path, err)
	}
	if int64(len(content)) > maxSize {
		return fmt.Errorf("%w: signature exceeds %d bytes", ErrInvalidSignature, maxSize)
	}
	block, err := armor.Decode(bytes.NewReader(content))
	if err != nil || block.Type != "PGP SIGNATURE" {
		return fmt.Errorf("%w: signature is not ASCII-armoured", ErrInvalidSignature)
	}

	p.Signature = &Signature{Name: filepath.Base(path), Content: content}
	return nil
}

// MetadataDictionary merges the file name, metadata, digests and comment into
// the value set checked by the metadata form. Absent optional headers map to
// nil. MD5 and BLAKE2 digests are included only when they were computed.
func (p *Package) MetadataDictionary() validation.Values {
	m := p.Metadata
	data := validation.Values{
		"name":     p.SafeName,
		"version":  m.Version,
		"filetype": p.Type,
		"pyversion": func() any {
			if p.PythonVersion == nil {
				return nil
			}
			return *p.PythonVersion
		}(),
		"metadata_version":         optional(m.MetadataVersion),
		"summary":                  optional(m.Summary),
		"home_page":                optional(m.HomePage),
		"author":                   optional(m.Author),
		"author_email":             optional(m.AuthorEmail),
		"maintainer":               optional(m.Maintainer),
		"maintainer_email":         optional(m.MaintainerEmail),
		"license":                  optional(m.License),
		"description":              optional(m.Description),
		"keywords":                 optional(m.Keywords),
		"platform":                 list(m.Platforms),
		"classifiers":              list(m.Classifiers),
		"download_url":             optional(m.DownloadURL),
		"supported_platform":       list(m.SupportedPlatforms),
		"comment":                  optional(p.Comment),
		"sha256_digest":            p.Digests.SHA256,
		"provides":                 list(m.Provides),
		"requires":                 list(m.Requires),
		"obsoletes":                list(m.Obsoletes),
		"project_urls":             list(m.ProjectURLs),
		"provides_dist":            list(m.ProvidesDist),
		"obsoletes_dist":           list(m.ObsoletesDist),
		"requires_dist":            list(m.RequiresDist),
		"requires_external":        list(m.RequiresExternal),
		"requires_python":          optional(m.RequiresPython),
		"provides_extras":          list(m.ProvidesExtras),
		"description_content_type": optional(m.DescriptionContentType),
		"dynamic":                  list(m.Dynamic),
	}
	if p.Digests.MD5 != "" {
		data["md5_digest"] = p.Digests.MD5
	}
	if p.Digests.BLAKE2b256 != "" {
		data["blake2_256_digest"] = p.Digests.BLAKE2b256
	}
	return data
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func list(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
