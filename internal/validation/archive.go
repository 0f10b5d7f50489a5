// Package validation checks uploaded distributions before anything is stored.
// The metadata form validates the core-metadata fields extracted from an
// artifact; the remaining validators check archive member paths, detached GPG
// signatures and release tag constraints for the mirror.
package validation

import (
	"fmt"
	"path"
	"strings"
)

// MaxMemberSize caps how many bytes are read from a single archive member when
// looking for metadata (16MB).
const MaxMemberSize = 16 * 1024 * 1024

// ValidateMemberPath rejects archive member names that would escape the
// archive root when extracted.
func ValidateMemberPath(name string) error {
	name = strings.ReplaceAll(name, "\\", "/")

	// Windows drive paths (C:/...) can appear in archives built on Windows.
	if len(name) >= 3 && name[1] == ':' && name[2] == '/' {
		return fmt.Errorf("absolute paths not allowed: %s", name)
	}
	if strings.HasPrefix(name, "/") {
		return fmt.Errorf("absolute paths not allowed: %s", name)
	}

	for _, seg := range strings.Split(path.Clean(name), "/") {
		if seg == ".." {
			return fmt.Errorf("path traversal not allowed: %s", name)
		}
	}
	return nil
}

// MemberDepth is the number of path separators in a cleaned member name.
func MemberDepth(name string) int {
	return strings.Count(path.Clean(strings.ReplaceAll(name, "\\", "/")), "/")
}
