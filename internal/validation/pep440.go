package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	pep440 "github.com/aquasecurity/go-pep440-version"
)

// ParseVersion parses a PEP 440 version.
func ParseVersion(v string) (pep440.Version, error) {
	return pep440.Parse(v)
}

func pep440Version(field string, value any) error {
	v, err := pep440.Parse(value.(string))
	if err != nil {
		return fmt.Errorf("metadata provided wrong value for '%s'. "+
			"Start and end with a letter or numeral containing only ASCII numeric and '.', '_' and '-'.", field)
	}
	if v.Local() != "" {
		return fmt.Errorf("metadata provided wrong value for '%s'. Can't use PEP 440 local versions.", field)
	}
	return nil
}

var (
	errInvalidSpecifier = errors.New("Invalid specifier in requirement.")
	specifierOperatorRe = regexp.MustCompile(`^(===|==|!=|<=|>=|~=|<|>)\s*[^\s<>=!~]`)
)

// validateSpecifierSet accepts a comma separated PEP 440 specifier set. Every
// entry needs an explicit operator; empty entries are skipped, so the empty set
// is valid.
func validateSpecifierSet(spec string) error {
	if strings.TrimSpace(spec) == "" {
		return nil
	}
	if strings.Contains(spec, "||") {
		return errInvalidSpecifier
	}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !specifierOperatorRe.MatchString(part) {
			return errInvalidSpecifier
		}
		if _, err := pep440.NewSpecifiers(part); err != nil {
			return errInvalidSpecifier
		}
	}
	return nil
}
