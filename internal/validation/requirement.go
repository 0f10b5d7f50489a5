package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// Requirement is a parsed PEP 508 dependency specification.
type Requirement struct {
	Name      string
	Extras    []string
	Specifier string
	URL       string
	Marker    string
}

var (
	requirementNameRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?`)
	identifierRe      = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)
)

// ParseRequirement parses "name [extras] (specifier | @ url) ; marker". The
// legacy parenthesised specifier form "name (>=1.0)" is accepted.
func ParseRequirement(s string) (*Requirement, error) {
	s = strings.TrimSpace(s)
	name := requirementNameRe.FindString(s)
	if name == "" {
		return nil, fmt.Errorf("expected package name at the start of %q", s)
	}
	req := &Requirement{Name: name}
	rest := strings.TrimLeftFunc(s[len(name):], unicode.IsSpace)

	if strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, errors.New("unterminated extras")
		}
		for _, extra := range strings.Split(rest[1:end], ",") {
			extra = strings.TrimSpace(extra)
			if extra == "" {
				continue
			}
			if !identifierRe.MatchString(extra) {
				return nil, fmt.Errorf("invalid extra %q", extra)
			}
			req.Extras = append(req.Extras, extra)
		}
		rest = strings.TrimLeftFunc(rest[end+1:], unicode.IsSpace)
	}

	if strings.HasPrefix(rest, "@") {
		rest = strings.TrimLeftFunc(rest[1:], unicode.IsSpace)
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			end = len(rest)
		}
		req.URL = rest[:end]
		u, err := url.Parse(req.URL)
		if req.URL == "" || err != nil || u.Scheme == "" {
			return nil, fmt.Errorf("invalid URL %q", req.URL)
		}
		rest = strings.TrimSpace(rest[end:])
		if rest == "" {
			return req, nil
		}
		if !strings.HasPrefix(rest, ";") {
			return nil, fmt.Errorf("unexpected %q after URL", rest)
		}
		return req, req.parseMarker(rest[1:])
	}

	spec, marker, hasMarker := strings.Cut(rest, ";")
	spec = strings.TrimSpace(spec)
	if strings.HasPrefix(spec, "(") {
		if !strings.HasSuffix(spec, ")") {
			return nil, errors.New("unterminated version specifier")
		}
		spec = strings.TrimSpace(spec[1 : len(spec)-1])
	}
	if err := validateSpecifierSet(spec); err != nil {
		return nil, fmt.Errorf("invalid specifier %q", spec)
	}
	req.Specifier = spec

	if hasMarker {
		return req, req.parseMarker(marker)
	}
	return req, nil
}

func (r *Requirement) parseMarker(marker string) error {
	marker = strings.TrimSpace(marker)
	if err := validateMarker(marker); err != nil {
		return fmt.Errorf("invalid marker %q: %w", marker, err)
	}
	r.Marker = marker
	return nil
}

// legacyNonDistRequirements checks Requires/Provides/Obsoletes entries, whose
// names must be dotted Python identifiers.
func legacyNonDistRequirements(_ string, value any) error {
	for _, datum := range value.([]string) {
		req, err := ParseRequirement(strings.ReplaceAll(datum, "_", ""))
		if err != nil {
			return fmt.Errorf("Invalid requirement: %s", pyRepr(datum))
		}
		if req.URL != "" {
			return fmt.Errorf("Can't direct dependency: %s", pyRepr(datum))
		}
		for _, ident := range strings.Split(req.Name, ".") {
			if !isAlnum(ident) || (ident[0] >= '0' && ident[0] <= '9') {
				return errors.New("Use a valid Python identifier.")
			}
		}
	}
	return nil
}

func distRequirements(_ string, value any) error {
	for _, datum := range value.([]string) {
		req, err := ParseRequirement(datum)
		if err != nil {
			return fmt.Errorf("Invalid requirement: %s.", pyRepr(datum))
		}
		if req.URL != "" {
			return fmt.Errorf("Can't have direct dependency: %s", pyRepr(datum))
		}
	}
	return nil
}

func isAlnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// pyRepr quotes s the way the messages have always shown values.
func pyRepr(s string) string {
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	return "'" + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), "'", `\'`) + "'"
}

func pyListRepr(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = pyRepr(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// ---------------------------------------------------------------------------
// Environment markers
// ---------------------------------------------------------------------------

var markerVariables = map[string]bool{
	"python_version":                 true,
	"python_full_version":            true,
	"os_name":                        true,
	"os.name":                        true,
	"sys_platform":                   true,
	"sys.platform":                   true,
	"platform_release":               true,
	"platform.release":               true,
	"platform_system":                true,
	"platform_version":               true,
	"platform.version":               true,
	"platform_machine":               true,
	"platform.machine":               true,
	"platform_python_implementation": true,
	"platform.python_implementation": true,
	"python_implementation":          true,
	"implementation_name":            true,
	"implementation_version":         true,
	"extra":                          true,
}

var markerTokenRe = regexp.MustCompile(`^(?:` +
	`(?P<str>'[^']*'|"[^"]*")` +
	`|(?P<op>===|==|!=|<=|>=|~=|<|>)` +
	`|(?P<paren>[()])` +
	`|(?P<word>[A-Za-z_][A-Za-z0-9_.]*)` +
	`)`)

type markerToken struct {
	kind string
	text string
}

func tokenizeMarker(s string) ([]markerToken, error) {
	var tokens []markerToken
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return tokens, nil
		}
		m := markerTokenRe.FindStringSubmatch(s)
		if m == nil {
			return nil, fmt.Errorf("unexpected %q", s)
		}
		for i, name := range markerTokenRe.SubexpNames() {
			if name != "" && m[i] != "" {
				tokens = append(tokens, markerToken{kind: name, text: m[i]})
				break
			}
		}
		s = s[len(m[0]):]
	}
}

type markerParser struct {
	tokens []markerToken
	pos    int
}

// validateMarker checks the PEP 508 marker grammar:
//
//	expr  := term (("and" | "or") term)*
//	term  := "(" expr ")" | value op value
//	value := variable | quoted string
//	op    := comparison | "in" | "not" "in"
func validateMarker(marker string) error {
	if marker == "" {
		return errors.New("empty marker")
	}
	tokens, err := tokenizeMarker(marker)
	if err != nil {
		return err
	}
	p := &markerParser{tokens: tokens}
	if err := p.expr(); err != nil {
		return err
	}
	if p.pos != len(p.tokens) {
		return fmt.Errorf("unexpected %q", p.tokens[p.pos].text)
	}
	return nil
}

func (p *markerParser) peek() (markerToken, bool) {
	if p.pos >= len(p.tokens) {
		return markerToken{}, false
	}
	return p.tokens[p.pos], true
}

func (p *markerParser) expr() error {
	if err := p.term(); err != nil {
		return err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != "word" || (tok.text != "and" && tok.text != "or") {
			return nil
		}
		p.pos++
		if err := p.term(); err != nil {
			return err
		}
	}
}

func (p *markerParser) term() error {
	tok, ok := p.peek()
	if !ok {
		return errors.New("unexpected end of marker")
	}
	if tok.kind == "paren" && tok.text == "(" {
		p.pos++
		if err := p.expr(); err != nil {
			return err
		}
		closing, ok := p.peek()
		if !ok || closing.text != ")" {
			return errors.New("missing closing parenthesis")
		}
		p.pos++
		return nil
	}
	if err := p.value(); err != nil {
		return err
	}
	if err := p.op(); err != nil {
		return err
	}
	return p.value()
}

func (p *markerParser) value() error {
	tok, ok := p.peek()
	if !ok {
		return errors.New("expected a marker value")
	}
	switch {
	case tok.kind == "str":
	case tok.kind == "word" && markerVariables[tok.text]:
	default:
		return fmt.Errorf("unknown marker value %q", tok.text)
	}
	p.pos++
	return nil
}

func (p *markerParser) op() error {
	tok, ok := p.peek()
	if !ok {
		return errors.New("expected a marker operator")
	}
	switch {
	case tok.kind == "op", tok.kind == "word" && tok.text == "in":
		p.pos++
		return nil
	case tok.kind == "word" && tok.text == "not":
		p.pos++
		next, ok := p.peek()
		if !ok || next.text != "in" {
			return errors.New(`expected "in" after "not"`)
		}
		p.pos++
		return nil
	}
	return fmt.Errorf("unknown marker operator %q", tok.text)
}
