package distribution

import (
	"regexp"
	"strings"
)

var wininstRe = regexp.MustCompile(`.*py(?P<pyver>\d+\.\d+)\.exe$`)

// wininstFormat reads the legacy Windows installer: a zip archive appended to
// an executable stub. The metadata lives in an .egg-info file or a PKG-INFO
// somewhere in the archive; the shallowest one carrying the marker wins.
type wininstFormat struct{}

func (wininstFormat) Type() string { return TypeWininst }

func (wininstFormat) Detect(path string) bool { return strings.HasSuffix(path, ".exe") }

func (wininstFormat) Extract(path string) (*Metadata, error) {
	return readZipMetadata(path, func(name string) bool {
		return strings.HasSuffix(name, ".egg-info") || strings.HasSuffix(name, "PKG-INFO")
	})
}

func (wininstFormat) PythonVersion(filename string) (string, bool) {
	return pythonVersionFrom(wininstRe, filename), true
}
