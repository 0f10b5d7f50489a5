package distribution

import (
	"regexp"
	"strings"
)

var wheelRe = regexp.MustCompile(`^(?P<namever>(?P<name>.+?)(-(?P<ver>\d.+?))?)` +
	`((-(?P<build>\d.*?))?-(?P<pyver>.+?)-(?P<abi>.+?)-(?P<plat>.+?)` +
	`\.whl|\.dist-info)$`)

// wheelFormat reads <name>.dist-info/METADATA from a .whl archive.
type wheelFormat struct{}

func (wheelFormat) Type() string { return TypeWheel }

func (wheelFormat) Detect(path string) bool { return strings.HasSuffix(path, ".whl") }

func (wheelFormat) Extract(path string) (*Metadata, error) {
	return readZipMetadata(path, func(name string) bool {
		dir, file, ok := cutLast(name, "/")
		return ok && file == "METADATA" && strings.HasSuffix(dir, ".dist-info")
	})
}

func (wheelFormat) PythonVersion(filename string) (string, bool) {
	return pythonVersionFrom(wheelRe, filename), true
}

// cutLast splits s around the last instance of sep.
func cutLast(s, sep string) (before, after string, found bool) {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}
