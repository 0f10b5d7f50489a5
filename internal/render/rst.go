package render

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

// RST renders the commonly used subset of reStructuredText found in package
// descriptions: section titles, paragraphs, bullet and enumerated lists,
// literal blocks, code directives, block quotes, transitions and the inline
// literal, strong, emphasis and hyperlink markup. Other directives and
// comments are dropped.
func RST(raw string) string {
	r := &rstRenderer{
		lines:  strings.Split(strings.ReplaceAll(strings.ReplaceAll(raw, "\r\n", "\n"), "\t", "        "), "\n"),
		levels: map[string]int{},
	}
	r.render()
	return r.out.String()
}

type rstRenderer struct {
	lines  []string
	pos    int
	out    strings.Builder
	levels map[string]int
}

const adornmentChars = "=-~^\"'`#*+:._"

var (
	bulletRe = regexp.MustCompile(`^([-*+•])\s+`)
	enumRe   = regexp.MustCompile(`^(\d+|#|[a-zA-Z])[.)]\s+`)
	codeRe   = regexp.MustCompile(`^\.\.\s+(?:code-block|code|sourcecode)::\s*(\S*)\s*$`)
)

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func indentOf(s string) int {
	return len(s) - len(strings.TrimLeft(s, " "))
}

// adornment reports whether s is a run of one repeated punctuation character.
func adornment(s string) (rune, bool) {
	s = strings.TrimRight(s, " ")
	if len(s) < 2 || !strings.ContainsRune(adornmentChars, rune(s[0])) {
		return 0, false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return 0, false
		}
	}
	return rune(s[0]), true
}

func (r *rstRenderer) render() {
	for r.pos < len(r.lines) {
		line := r.lines[r.pos]
		switch {
		case isBlank(line):
			r.pos++
		case r.section():
		case r.transition():
		case strings.HasPrefix(line, ".."):
			r.directive()
		case indentOf(line) > 0:
			r.blockQuote()
		case bulletRe.MatchString(line):
			r.list("ul", bulletRe)
		case enumRe.MatchString(line):
			r.list("ol", enumRe)
		default:
			r.paragraph()
		}
	}
}

// section handles "Title\n=====" and "=====\nTitle\n=====".
func (r *rstRenderer) section() bool {
	line := r.lines[r.pos]
	next := func(i int) string {
		if r.pos+i < len(r.lines) {
			return r.lines[r.pos+i]
		}
		return ""
	}

	style := ""
	var title string
	consumed := 0
	if c, ok := adornment(line); ok && !isBlank(next(1)) {
		if c2, ok := adornment(next(2)); ok && c2 == c {
			title = strings.TrimSpace(next(1))
			style = "over" + string(c)
			consumed = 3
		}
	}
	if style == "" && indentOf(line) == 0 {
		if c, ok := adornment(next(1)); ok && len(strings.TrimRight(next(1), " ")) >= len([]rune(strings.TrimSpace(line))) {
			title = strings.TrimSpace(line)
			style = string(c)
			consumed = 2
		}
	}
	if style == "" {
		return false
	}

	level, ok := r.levels[style]
	if !ok {
		level = len(r.levels) + 1
		r.levels[style] = level
	}
	if level > 6 {
		level = 6
	}
	tag := "h" + string(rune('0'+level))
	r.out.WriteString("<" + tag + ">" + inline(title) + "</" + tag + ">\n")
	r.pos += consumed
	return true
}

func (r *rstRenderer) transition() bool {
	c, ok := adornment(r.lines[r.pos])
	if !ok || len(strings.TrimSpace(r.lines[r.pos])) < 4 || c == ':' {
		return false
	}
	prevBlank := r.pos == 0 || isBlank(r.lines[r.pos-1])
	nextBlank := r.pos+1 >= len(r.lines) || isBlank(r.lines[r.pos+1])
	if !prevBlank || !nextBlank {
		return false
	}
	r.out.WriteString("<hr>\n")
	r.pos++
	return true
}

// indentedBlock consumes the lines indented deeper than base, keeping blank
// lines between them, and returns them dedented.
func (r *rstRenderer) indentedBlock(base int) []string {
	var block []string
	minIndent := -1
	for r.pos < len(r.lines) {
		line := r.lines[r.pos]
		if !isBlank(line) && indentOf(line) <= base {
			break
		}
		if !isBlank(line) && (minIndent < 0 || indentOf(line) < minIndent) {
			minIndent = indentOf(line)
		}
		block = append(block, line)
		r.pos++
	}
	for len(block) > 0 && isBlank(block[len(block)-1]) {
		block = block[:len(block)-1]
	}
	for i, line := range block {
		if len(line) >= minIndent && minIndent > 0 {
			block[i] = line[minIndent:]
		} else {
			block[i] = strings.TrimLeft(line, " ")
		}
	}
	for len(block) > 0 && isBlank(block[0]) {
		block = block[1:]
	}
	return block
}

func (r *rstRenderer) literal(lang string) {
	block := r.indentedBlock(0)
	if len(block) == 0 {
		return
	}
	class := ""
	if lang != "" {
		class = ` class="language-` + html.EscapeString(lang) + `"`
	}
	r.out.WriteString("<pre><code" + class + ">" + html.EscapeString(strings.Join(block, "\n")) + "</code></pre>\n")
}

func (r *rstRenderer) directive() {
	line := r.lines[r.pos]
	r.pos++
	if m := codeRe.FindStringSubmatch(line); m != nil {
		// skip directive options such as ":linenos:"
		for r.pos < len(r.lines) && strings.HasPrefix(strings.TrimSpace(r.lines[r.pos]), ":") && indentOf(r.lines[r.pos]) > 0 {
			r.pos++
		}
		r.literal(m[1])
		return
	}
	// comments, substitutions, targets and unsupported directives
	r.indentedBlock(0)
}

func (r *rstRenderer) blockQuote() {
	inner := &rstRenderer{lines: r.indentedBlock(0), levels: r.levels}
	inner.render()
	r.out.WriteString("<blockquote>\n" + inner.out.String() + "</blockquote>\n")
}

func (r *rstRenderer) list(tag string, marker *regexp.Regexp) {
	r.out.WriteString("<" + tag + ">\n")
	for r.pos < len(r.lines) {
		line := r.lines[r.pos]
		if isBlank(line) {
			r.pos++
			continue
		}
		m := marker.FindString(line)
		if m == "" || indentOf(line) > 0 {
			break
		}
		item := []string{line[len(m):]}
		r.pos++
		width := len(m)
		for r.pos < len(r.lines) {
			next := r.lines[r.pos]
			if isBlank(next) || indentOf(next) < width {
				break
			}
			item = append(item, next[width:])
			r.pos++
		}
		if r.pos < len(r.lines) && isBlank(r.lines[r.pos]) && r.pos+1 < len(r.lines) && indentOf(r.lines[r.pos+1]) >= width {
			item = append(item, "")
			item = append(item, r.indentedBlock(width-1)...)
		}

		inner := &rstRenderer{lines: item, levels: r.levels}
		inner.render()
		content := strings.TrimSuffix(inner.out.String(), "\n")
		// a single paragraph item is rendered inline
		if strings.Count(content, "<p>") == 1 && strings.HasPrefix(content, "<p>") && strings.HasSuffix(content, "</p>") {
			content = strings.TrimSuffix(strings.TrimPrefix(content, "<p>"), "</p>")
		}
		r.out.WriteString("<li>" + content + "</li>\n")
	}
	r.out.WriteString("</" + tag + ">\n")
}

func (r *rstRenderer) paragraph() {
	var text []string
	for r.pos < len(r.lines) {
		line := r.lines[r.pos]
		if isBlank(line) || (len(text) > 0 && indentOf(line) > 0) {
			break
		}
		text = append(text, strings.TrimSpace(line))
		r.pos++
	}
	joined := strings.Join(text, " ")

	literalFollows := false
	switch {
	case joined == "::":
		literalFollows = true
		joined = ""
	case strings.HasSuffix(joined, " ::"):
		literalFollows = true
		joined = strings.TrimSuffix(joined, " ::")
	case strings.HasSuffix(joined, "::"):
		literalFollows = true
		joined = strings.TrimSuffix(joined, ":")
	}
	if joined != "" {
		r.out.WriteString("<p>" + inline(joined) + "</p>\n")
	}
	if literalFollows {
		for r.pos < len(r.lines) && isBlank(r.lines[r.pos]) {
			r.pos++
		}
		if r.pos < len(r.lines) && indentOf(r.lines[r.pos]) > 0 {
			r.literal("")
		}
	}
}

var inlineRe = regexp.MustCompile("``(.+?)``" +
	`|\*\*(\S(?:.*?\S)?)\*\*` +
	`|\*(\S(?:[^*]*?\S)?)\*` +
	"|`([^`<]+?)\\s*<([^`>]+)>`__?" +
	"|`([^`]+)`" +
	`|(https?://[^\s<>"]*[^\s<>".,;:!?)\]'])`)

func inline(s string) string {
	var b strings.Builder
	last := 0
	for _, m := range inlineRe.FindAllStringSubmatchIndex(s, -1) {
		start, end := m[0], m[1]
		// inline markup must not start in the middle of a word
		if start > 0 {
			prev := rune(s[start-1])
			if unicode.IsLetter(prev) || unicode.IsDigit(prev) {
				continue
			}
		}
		b.WriteString(html.EscapeString(s[last:start]))
		group := func(i int) string {
			if m[2*i] < 0 {
				return ""
			}
			return s[m[2*i]:m[2*i+1]]
		}
		switch {
		case m[2] >= 0:
			b.WriteString("<code>" + html.EscapeString(group(1)) + "</code>")
		case m[4] >= 0:
			b.WriteString("<strong>" + html.EscapeString(group(2)) + "</strong>")
		case m[6] >= 0:
			b.WriteString("<em>" + html.EscapeString(group(3)) + "</em>")
		case m[8] >= 0:
			b.WriteString(`<a href="` + html.EscapeString(group(5)) + `">` + html.EscapeString(group(4)) + "</a>")
		case m[12] >= 0:
			b.WriteString("<cite>" + html.EscapeString(group(6)) + "</cite>")
		default:
			u := group(7)
			b.WriteString(`<a href="` + html.EscapeString(u) + `">` + html.EscapeString(u) + "</a>")
		}
		last = end
	}
	b.WriteString(html.EscapeString(s[last:]))
	return b.String()
}
