package validation

import (
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"unicode"
)

// AnyOf accepts only the listed values.
func AnyOf(allowed []string, message string) Validator {
	return func(_ string, value any) error {
		if !slices.Contains(allowed, value.(string)) {
			return errors.New(message)
		}
		return nil
	}
}

// Match requires pattern to match at the start of the value.
func Match(pattern, message string) Validator {
	re := regexp.MustCompile(pattern)
	return func(_ string, value any) error {
		if loc := re.FindStringIndex(value.(string)); loc == nil || loc[0] != 0 {
			return errors.New(message)
		}
		return nil
	}
}

// MaxLength limits a string to max characters.
func MaxLength(max int) Validator {
	return func(field string, value any) error {
		if len([]rune(value.(string))) > max {
			return fmt.Errorf("metadata provided wrong value for '%s'. length must be <=%d", field, max)
		}
		return nil
	}
}

// singleLine accepts a non-empty line, optionally followed by one newline.
func singleLine(_ string, value any) error {
	s := strings.TrimSuffix(value.(string), "\n")
	if s == "" || strings.ContainsAny(s, "\n") {
		return errors.New("Use a single line only.")
	}
	return nil
}

func noSurroundingSpace(_ string, value any) error {
	s := value.(string)
	if s == "" {
		return nil
	}
	first := []rune(s)[0]
	last := []rune(s)[len([]rune(s))-1]
	if unicode.IsSpace(first) || unicode.IsSpace(last) || strings.Contains(s, "\n") {
		return errors.New("Can't have leading or trailing whitespace.")
	}
	return nil
}

// URI requires an absolute http or https URI. requireHost additionally
// demands an authority component.
func URI(requireHost bool) Validator {
	return func(_ string, value any) error {
		s := value.(string)
		if !validURI(s, requireHost) {
			return fmt.Errorf("Invalid URI '%s'", s)
		}
		return nil
	}
}

func validURI(s string, requireHost bool) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	if requireHost && u.Hostname() == "" {
		return false
	}
	if p := u.Port(); p != "" {
		for _, r := range p {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

var markdownVariants = []string{"CommonMark", "GFM"}

func descriptionContentType(_ string, value any) error {
	fail := func(msg string) error {
		return fmt.Errorf("Invalid description content type: %s", msg)
	}

	mediaType, params, err := mime.ParseMediaType(value.(string))
	if err != nil {
		return fail("type/subtype is not valid")
	}
	switch mediaType {
	case "text/plain", "text/x-rst", "text/markdown":
	default:
		return fail("type/subtype is not valid")
	}

	if charset, ok := params["charset"]; ok && charset != "" && charset != "UTF-8" {
		return fail("Use a valid charset")
	}
	if variant := params["variant"]; mediaType == "text/markdown" && variant != "" && !slices.Contains(markdownVariants, variant) {
		return fail("Use a valid variant, expected one of " + strings.Join(markdownVariants, ", "))
	}
	return nil
}

var emailRe = regexp.MustCompile(`(?i)^([a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+(?:\.[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+)*|"` +
	`(?:[\x01-\x08\x0b\x0c\x0e-\x1f\x21\x23-\x5b\x5d-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])*")` +
	`@((?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z0-9](?:[a-z0-9-]*[a-z0-9])?` +
	`|\[(?:(?:2(?:5[0-5]|[0-4][0-9])|1[0-9][0-9]|[1-9]?[0-9])\.){3}` +
	`(?:(?:2(?:5[0-5]|[0-4][0-9])|1[0-9][0-9]|[1-9]?[0-9])|[a-z0-9-]*[a-z0-9]:` +
	`(?:[\x01-\x08\x0b\x0c\x0e-\x1f\x21-\x5a\x53-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])+)\])`)

// rfc822EmailList accepts one or more RFC 822 addresses, each of whose bare
// address matches emailRe.
func rfc822EmailList(field string, value any) error {
	invalid := fmt.Errorf("Use a valid email address for '%s'", field)

	addrs, err := mail.ParseAddressList(value.(string))
	if err != nil {
		return invalid
	}
	for _, a := range addrs {
		if !emailRe.MatchString(a.Address) {
			return invalid
		}
	}
	return nil
}

func specifierField(_ string, value any) error {
	return validateSpecifierSet(value.(string))
}

var requiresExternalRe = regexp.MustCompile(`^(?P<name>\S+)(?: \((?P<specifier>\S+)\))?$`)

func requiresExternal(_ string, value any) error {
	for _, datum := range value.([]string) {
		m := requiresExternalRe.FindStringSubmatch(datum)
		if m == nil {
			return errors.New("Invalid requirement.")
		}
		if spec := m[requiresExternalRe.SubexpIndex("specifier")]; spec != "" {
			if err := validateSpecifierSet(spec); err != nil {
				return err
			}
		}
	}
	return nil
}

func projectURLs(_ string, value any) error {
	for _, datum := range value.([]string) {
		label, link, ok := strings.Cut(datum, ", ")
		if !ok {
			return errors.New("Use both a label and an URL.")
		}
		if label == "" {
			return errors.New("Use a label.")
		}
		if len([]rune(label)) > 32 {
			return errors.New("Use 32 characters or less.")
		}
		if link == "" {
			return errors.New("Use an URL.")
		}
		if !validURI(link, false) {
			return errors.New("Use valid URL.")
		}
	}
	return nil
}
