// semver.go provides release tag constraints and ordering used when mirroring
// GitHub releases.
package validation

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"
)

// TagConstraint filters release tags by a version constraint such as ">= 1.2, < 2".
// The zero value allows every tag.
type TagConstraint struct {
	raw         string
	constraints version.Constraints
}

// ParseTagConstraint parses a constraint; an empty string allows every tag
func ParseTagConstraint(s string) (*TagConstraint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return &TagConstraint{}, nil
	}
	c, err := version.NewConstraint(s)
	if err != nil {
		return nil, fmt.Errorf("invalid tag constraint: %w", err)
	}
	return &TagConstraint{raw: s, constraints: c}, nil
}

// Allows reports whether tag satisfies the constraint. Tags that are not
// versions only pass an empty constraint.
func (c *TagConstraint) Allows(tag string) bool {
	if c == nil || c.constraints == nil {
		return true
	}
	v, err := version.NewVersion(tag)
	if err != nil {
		return false
	}
	return c.constraints.Check(v)
}

func (c *TagConstraint) String() string {
	if c == nil {
		return ""
	}
	return c.raw
}

// CompareSemver compares two semantic versions
// Returns -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareSemver(v1Str, v2Str string) (int, error) {
	v1, err := version.NewVersion(v1Str)
	if err != nil {
		return 0, fmt.Errorf("invalid version v1: %w", err)
	}

	v2, err := version.NewVersion(v2Str)
	if err != nil {
		return 0, fmt.Errorf("invalid version v2: %w", err)
	}

	return v1.Compare(v2), nil
}
