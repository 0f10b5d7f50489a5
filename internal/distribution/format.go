package distribution

import (
	"archive/zip"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/warehub/warehub/internal/validation"
)

// Package types stored on files and reported by the JSON API.
const (
	TypeWheel   = "bdist_wheel"
	TypeWininst = "bdist_wininst"
	TypeEgg     = "bdist_egg"
	TypeSdist   = "sdist"
)

// Format reads one packaging format.
type Format interface {
	// Type is the package type name, e.g. "bdist_wheel".
	Type() string
	// Detect reports whether the file name belongs to this format.
	Detect(path string) bool
	// Extract reads the core metadata embedded in the archive.
	Extract(path string) (*Metadata, error)
	// PythonVersion derives the python tag from the file name. The second
	// result is false when the format has no tag pattern at all.
	PythonVersion(filename string) (string, bool)
}

// Formats lists the supported formats in the order they are tried.
var Formats = []Format{
	wheelFormat{},
	wininstFormat{},
	eggFormat{},
	sdistFormat{},
}

// Detect returns the first registered format claiming path.
func Detect(path string) (Format, error) {
	for _, f := range Formats {
		if f.Detect(path) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown distribution format: %q", ErrInvalidDistribution, filepath.Base(path))
}

// pythonVersionFrom applies a format's tag pattern, falling back to "any" when
// the name does not match.
func pythonVersionFrom(re *regexp.Regexp, filename string) string {
	m := re.FindStringSubmatch(filename)
	if m == nil {
		return "any"
	}
	if v := m[re.SubexpIndex("pyver")]; v != "" {
		return v
	}
	return "any"
}

// zipMember is a candidate metadata file inside a zip archive.
type zipMember struct {
	file  *zip.File
	depth int
}

// readZipMetadata opens a zip archive and returns the metadata of the
// shallowest member accepted by match whose content carries the
// Metadata-Version marker. Ties on depth are broken by path.
func readZipMetadata(path string, match func(name string) bool) (*Metadata, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open zip archive: %v", ErrInvalidDistribution, err)
	}
	defer zr.Close()

	var candidates []zipMember
	for _, f := range zr.File {
		if err := validation.ValidateMemberPath(f.Name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDistribution, err)
		}
		if f.FileInfo().IsDir() || !match(f.Name) {
			continue
		}
		candidates = append(candidates, zipMember{file: f, depth: validation.MemberDepth(f.Name)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].depth != candidates[j].depth {
			return candidates[i].depth < candidates[j].depth
		}
		return candidates[i].file.Name < candidates[j].file.Name
	})

	for _, c := range candidates {
		data, err := readZipFile(c.file)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read %s: %v", ErrInvalidDistribution, c.file.Name, err)
		}
		if strings.Contains(string(data), metadataMarker) {
			return ParseMetadata(data), nil
		}
	}
	return nil, fmt.Errorf("%w: no metadata found in %s", ErrInvalidDistribution, filepath.Base(path))
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, validation.MaxMemberSize))
}
