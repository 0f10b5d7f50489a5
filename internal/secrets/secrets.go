// Package secrets resolves secret references of the form ##NAME## against a
// JSON object supplied out of band through an environment variable (in CI the
// workflow passes `toJSON(secrets)` as $SECRETS).
package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
)

// Defaults used by the CLI.
const (
	DefaultVariable = "SECRETS"
	DefaultToken    = "##"
)

var (
	// ErrSecretNotFound is returned for a well-formed reference to a secret
	// that was not supplied.
	ErrSecretNotFound = errors.New("requested secret not present")
	// ErrNotSecret is returned when Get is called with a plain value.
	ErrNotSecret = errors.New("not a secret name")
)

// Secrets holds the decoded secret values.
type Secrets struct {
	variable string
	token    string
	re       *regexp.Regexp
	values   map[string]any
}

// New reads the JSON object held in the environment variable named variable.
// An unset variable yields an empty set.
func New(variable, token string) (*Secrets, error) {
	s := &Secrets{variable: variable, values: map[string]any{}}
	s.SetToken(token)

	raw, ok := os.LookupEnv(variable)
	if !ok {
		return s, nil
	}
	if err := json.Unmarshal([]byte(raw), &s.values); err != nil {
		return nil, fmt.Errorf("failed to decode $%s: %w", variable, err)
	}
	if s.values == nil {
		s.values = map[string]any{}
	}
	return s, nil
}

// Variable is the environment variable the secrets were read from.
func (s *Secrets) Variable() string { return s.variable }

// Token is the delimiter wrapping secret names.
func (s *Secrets) Token() string { return s.token }

// SetToken changes the delimiter.
func (s *Secrets) SetToken(token string) {
	s.token = token
	q := regexp.QuoteMeta(token)
	s.re = regexp.MustCompile(`^` + q + `(\w+)` + q + `$`)
}

// IsName reports whether name is a secret reference.
func (s *Secrets) IsName(name string) bool {
	return s.re.MatchString(name)
}

// Name returns name formatted as a secret reference.
func (s *Secrets) Name(name string) string {
	if s.IsName(name) {
		return name
	}
	return s.token + name + s.token
}

// Get returns the value referenced by ref.
func (s *Secrets) Get(ref string) (any, error) {
	m := s.re.FindStringSubmatch(ref)
	if m == nil {
		return nil, fmt.Errorf("%w: name '%s'", ErrNotSecret, ref)
	}
	v, ok := s.values[m[1]]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, m[1])
	}
	return v, nil
}

// Resolve returns the secret value when value is a reference and value itself
// otherwise. Non-string secrets are formatted with fmt.Sprint.
func (s *Secrets) Resolve(value string) (string, error) {
	if !s.IsName(value) {
		return value, nil
	}
	v, err := s.Get(value)
	if err != nil {
		return "", err
	}
	if str, ok := v.(string); ok {
		return str, nil
	}
	return fmt.Sprint(v), nil
}
