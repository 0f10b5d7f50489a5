package validation

import (
	"fmt"
	"strings"
)

// Values is the metadata of one upload keyed by form field name. A value is a
// string, a []string, or nil when absent.
type Values map[string]any

// Kind is the declared type of a form field.
type Kind int

const (
	String Kind = iota
	List
)

// Validator checks one coerced field value: a string for String fields and a
// []string for List fields.
type Validator func(field string, value any) error

// FieldRule declares one field of the metadata form.
type FieldRule struct {
	Name string
	// Header is the core-metadata header the field comes from, if any.
	Header     string
	Kind       Kind
	Required   bool
	Validators []Validator
}

// FieldError reports the first failed check of a field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

// Form is the metadata form. Fields are validated in this order and the first
// failing validator stops validation.
var Form = []FieldRule{
	{Name: "metadata_version", Header: "Metadata-Version", Kind: String, Required: true, Validators: []Validator{
		AnyOf([]string{"1.0", "1.1", "1.2", "2.0", "2.1", "2.2", "2.3", "2.4"}, "Use a known metadata version."),
	}},
	{Name: "name", Header: "Name", Kind: String, Required: true, Validators: []Validator{
		Match(`(?i)^([A-Z0-9]|[A-Z0-9][A-Z0-9._-]*[A-Z0-9])$`,
			"Start and end with a letter or numeral containing only ASCII numeric and '.', '_' and '-'."),
	}},
	{Name: "version", Header: "Version", Kind: String, Required: true, Validators: []Validator{
		noSurroundingSpace,
		pep440Version,
	}},
	{Name: "summary", Header: "Summary", Kind: String, Validators: []Validator{
		MaxLength(512),
		singleLine,
	}},
	{Name: "description", Header: "Description", Kind: String},
	{Name: "author", Header: "Author", Kind: String},
	{Name: "description_content_type", Header: "Description-Content-Type", Kind: String, Validators: []Validator{
		descriptionContentType,
	}},
	{Name: "author_email", Header: "Author-email", Kind: String, Validators: []Validator{
		rfc822EmailList,
	}},
	{Name: "maintainer", Header: "Maintainer", Kind: String},
	{Name: "maintainer_email", Header: "Maintainer-email", Kind: String, Validators: []Validator{
		rfc822EmailList,
	}},
	{Name: "license", Header: "License", Kind: String},
	{Name: "keywords", Header: "Keywords", Kind: String},
	{Name: "classifiers", Header: "Classifier", Kind: List, Required: true, Validators: []Validator{
		noDeprecatedClassifiers,
		knownClassifiers,
	}},
	{Name: "platform", Header: "Platform", Kind: String},
	{Name: "home_page", Header: "Home-Page", Kind: String, Validators: []Validator{
		URI(true),
	}},
	{Name: "download_url", Header: "Download-URL", Kind: String, Validators: []Validator{
		URI(true),
	}},
	{Name: "requires_python", Header: "Requires-Python", Kind: String, Validators: []Validator{
		specifierField,
	}},
	{Name: "pyversion", Kind: String},
	{Name: "filetype", Kind: String, Required: true, Validators: []Validator{
		AnyOf([]string{"bdist_egg", "bdist_wheel", "sdist"}, "Use a known file type."),
	}},
	{Name: "comment", Kind: String},
	{Name: "md5_digest", Kind: String},
	{Name: "sha256_digest", Kind: String, Validators: []Validator{
		Match(`(?i)^[A-F0-9]{64}$`, "Use a valid, hex-encoded, SHA256 message digest."),
	}},
	{Name: "blake2_256_digest", Kind: String, Validators: []Validator{
		Match(`(?i)^[A-F0-9]{64}$`, "Use a valid, hex-encoded, BLAKE2 message digest."),
	}},
	{Name: "requires", Kind: List, Validators: []Validator{legacyNonDistRequirements}},
	{Name: "provides", Kind: List, Validators: []Validator{legacyNonDistRequirements}},
	{Name: "obsoletes", Kind: List, Validators: []Validator{legacyNonDistRequirements}},
	{Name: "requires_dist", Header: "Requires-Dist", Kind: List, Validators: []Validator{distRequirements}},
	{Name: "provides_dist", Header: "Provides-Dist", Kind: List, Validators: []Validator{distRequirements}},
	{Name: "obsoletes_dist", Header: "Obsoletes-Dist", Kind: List, Validators: []Validator{distRequirements}},
	{Name: "requires_external", Header: "Requires-External", Kind: List, Validators: []Validator{requiresExternal}},
	{Name: "project_urls", Header: "Project-URL", Kind: List, Validators: []Validator{projectURLs}},
}

// Validate checks values against Form, then applies the cross-field rules.
// Values are coerced in place to their declared kinds and an sdist without a
// python version receives "source".
func Validate(values Values) error {
	for _, rule := range Form {
		raw, present := values[rule.Name]
		if !present || raw == nil {
			if rule.Required {
				return &FieldError{Field: rule.Name, Message: fmt.Sprintf("missing required field for '%s'", rule.Name)}
			}
			continue
		}

		value := coerce(rule.Kind, raw)
		values[rule.Name] = value
		if !rule.Required && isEmpty(value) {
			continue
		}

		for _, v := range rule.Validators {
			if err := v(rule.Name, value); err != nil {
				return &FieldError{Field: rule.Name, Message: err.Error()}
			}
		}
	}
	return crossCheck(values)
}

func crossCheck(values Values) error {
	filetype := values.String("filetype")
	pyversion := values.String("pyversion")

	if filetype != "" && filetype != "sdist" && pyversion == "" {
		return &FieldError{Field: "pyversion", Message: "Python version is required for binary distribution uploads."}
	}
	if filetype == "sdist" {
		if pyversion == "" {
			values["pyversion"] = "source"
		} else if pyversion != "source" {
			return &FieldError{Field: "pyversion", Message: "Use 'source' as Python version for an sdist."}
		}
	}
	if values.String("md5_digest") == "" && values.String("sha256_digest") == "" {
		return &FieldError{Field: "sha256_digest", Message: "Include at least one message digest."}
	}
	return nil
}

// String returns a string field, "" when absent or not a string.
func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

// Optional returns a string field as a pointer, nil when absent or empty.
func (v Values) Optional(name string) *string {
	s, ok := v[name].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// List returns a list field, nil when absent.
func (v Values) List(name string) []string {
	switch x := v[name].(type) {
	case []string:
		return x
	case []any:
		return coerce(List, x).([]string)
	case string:
		return []string{x}
	}
	return nil
}

func coerce(kind Kind, raw any) any {
	switch kind {
	case List:
		switch x := raw.(type) {
		case []string:
			return x
		case []any:
			out := make([]string, 0, len(x))
			for _, item := range x {
				out = append(out, fmt.Sprint(item))
			}
			return out
		default:
			return []string{fmt.Sprint(x)}
		}
	default:
		switch x := raw.(type) {
		case string:
			return x
		case []string:
			return strings.Join(x, ", ")
		case []any:
			return strings.Join(coerce(List, x).([]string), ", ")
		default:
			return fmt.Sprint(x)
		}
	}
}

func isEmpty(value any) bool {
	switch x := value.(type) {
	case string:
		return x == ""
	case []string:
		return len(x) == 0
	}
	return false
}
