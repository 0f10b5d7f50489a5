package distribution

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/warehub/warehub/internal/validation"
)

var sdistSuffixes = []string{".tar.bz2", ".tar.gz", ".zip"}

// sdistFormat reads the PKG-INFO of a source archive.
type sdistFormat struct{}

func (sdistFormat) Type() string { return TypeSdist }

func (sdistFormat) Detect(path string) bool {
	for _, s := range sdistSuffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

func (sdistFormat) Extract(path string) (*Metadata, error) {
	isPKGInfo := func(name string) bool { return strings.HasSuffix(name, "PKG-INFO") }

	switch {
	case strings.HasSuffix(path, ".zip"):
		return readZipMetadata(path, isPKGInfo)
	case strings.HasSuffix(path, ".tar.gz"):
		return readTarMetadata(path, func(r io.Reader) (io.Reader, error) {
			gz, err := gzip.NewReader(r)
			if err != nil {
				return nil, err
			}
			return gz, nil
		}, isPKGInfo)
	case strings.HasSuffix(path, ".tar.bz2"):
		return readTarMetadata(path, func(r io.Reader) (io.Reader, error) {
			return bzip2.NewReader(r), nil
		}, isPKGInfo)
	}
	return nil, fmt.Errorf("%w: not a known archive format: %q", ErrInvalidDistribution, filepath.Base(path))
}

// Source archives carry no python tag.
func (sdistFormat) PythonVersion(string) (string, bool) { return "", false }

type tarMember struct {
	name  string
	depth int
	data  []byte
}

// readTarMetadata streams a compressed tarball once, buffering every candidate
// member, then applies the same shallowest-first rule as the zip reader.
func readTarMetadata(path string, decompress func(io.Reader) (io.Reader, error), match func(string) bool) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r, err := decompress(f)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decompress: %v", ErrInvalidDistribution, err)
	}

	var candidates []tarMember
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: invalid tar format: %v", ErrInvalidDistribution, err)
		}
		if err := validation.ValidateMemberPath(hdr.Name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDistribution, err)
		}
		if !hdr.FileInfo().Mode().IsRegular() || !match(hdr.Name) {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(tr, validation.MaxMemberSize))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read %s: %v", ErrInvalidDistribution, hdr.Name, err)
		}
		candidates = append(candidates, tarMember{name: hdr.Name, depth: validation.MemberDepth(hdr.Name), data: data})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].depth != candidates[j].depth {
			return candidates[i].depth < candidates[j].depth
		}
		return candidates[i].name < candidates[j].name
	})
	for _, c := range candidates {
		if strings.Contains(string(c.data), metadataMarker) {
			return ParseMetadata(c.data), nil
		}
	}
	return nil, fmt.Errorf("%w: no PKG-INFO in archive %s", ErrInvalidDistribution, filepath.Base(path))
}
