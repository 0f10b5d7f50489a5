package distribution

import (
	"regexp"
	"strings"
)

var eggRe = regexp.MustCompile(`^(?P<namever>(?P<name>.+?)(-(?P<ver>\d.+?))?)` +
	`((-(?P<build>\d.*?))?-(?P<pyver>.+?)-(?P<abi>.+?)-(?P<plat>.+?)` +
	`\.egg|\.egg-info)$`)

// eggFormat reads EGG-INFO/PKG-INFO from an .egg archive.
type eggFormat struct{}

func (eggFormat) Type() string { return TypeEgg }

func (eggFormat) Detect(path string) bool { return strings.HasSuffix(path, ".egg") }

func (eggFormat) Extract(path string) (*Metadata, error) {
	return readZipMetadata(path, func(name string) bool {
		return name == "EGG-INFO/PKG-INFO"
	})
}

func (eggFormat) PythonVersion(filename string) (string, bool) {
	return pythonVersionFrom(eggRe, filename), true
}
