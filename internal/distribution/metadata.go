package distribution

import (
	"bufio"
	"bytes"
	"strings"
)

// Metadata is the core metadata of a distribution as read from its PKG-INFO
// or METADATA file. Absent single-use headers are empty strings.
type Metadata struct {
	MetadataVersion        string
	Name                   string
	Version                string
	Summary                string
	Description            string
	DescriptionContentType string
	Keywords               string
	HomePage               string
	DownloadURL            string
	Author                 string
	AuthorEmail            string
	Maintainer             string
	MaintainerEmail        string
	License                string
	RequiresPython         string

	Platforms          []string
	SupportedPlatforms []string
	Classifiers        []string
	Requires           []string
	Provides           []string
	Obsoletes          []string
	RequiresDist       []string
	ProvidesDist       []string
	ObsoletesDist      []string
	RequiresExternal   []string
	ProjectURLs        []string
	ProvidesExtras     []string
	Dynamic            []string
}

// metadataMarker must appear in a file for it to count as core metadata.
const metadataMarker = "Metadata-Version"

func (m *Metadata) single(key string) *string {
	switch key {
	case "metadata-version":
		return &m.MetadataVersion
	case "name":
		return &m.Name
	case "version":
		return &m.Version
	case "summary":
		return &m.Summary
	case "description":
		return &m.Description
	case "description-content-type":
		return &m.DescriptionContentType
	case "keywords":
		return &m.Keywords
	case "home-page":
		return &m.HomePage
	case "download-url":
		return &m.DownloadURL
	case "author":
		return &m.Author
	case "author-email":
		return &m.AuthorEmail
	case "maintainer":
		return &m.Maintainer
	case "maintainer-email":
		return &m.MaintainerEmail
	case "license":
		return &m.License
	case "requires-python":
		return &m.RequiresPython
	}
	return nil
}

func (m *Metadata) multi(key string) *[]string {
	switch key {
	case "platform":
		return &m.Platforms
	case "supported-platform":
		return &m.SupportedPlatforms
	case "classifier":
		return &m.Classifiers
	case "requires":
		return &m.Requires
	case "provides":
		return &m.Provides
	case "obsoletes":
		return &m.Obsoletes
	case "requires-dist":
		return &m.RequiresDist
	case "provides-dist":
		return &m.ProvidesDist
	case "obsoletes-dist":
		return &m.ObsoletesDist
	case "requires-external":
		return &m.RequiresExternal
	case "project-url":
		return &m.ProjectURLs
	case "provides-extra":
		return &m.ProvidesExtras
	case "dynamic":
		return &m.Dynamic
	}
	return nil
}

// ParseMetadata reads an RFC 822 style core-metadata document. Header names are
// matched case-insensitively; unknown headers are ignored. Folded lines are
// joined with a space except for Description, which keeps its line breaks.
// A non-empty message body is the description.
func ParseMetadata(raw []byte) *Metadata {
	raw = bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))

	type header struct {
		key   string
		lines []string
	}
	var (
		headers []header
		body    strings.Builder
		inBody  bool
	)

	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), len(raw)+1)
	for sc.Scan() {
		line := sc.Text()
		if inBody {
			body.WriteString(line)
			body.WriteByte('\n')
			continue
		}
		if line == "" {
			inBody = true
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if n := len(headers); n > 0 {
				headers[n-1].lines = append(headers[n-1].lines, line)
			}
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers = append(headers, header{
			key:   strings.ToLower(strings.TrimSpace(key)),
			lines: []string{strings.TrimSpace(value)},
		})
	}

	m := &Metadata{}
	for _, h := range headers {
		var value string
		if h.key == "description" {
			value = unfoldDescription(h.lines)
		} else {
			value = unfold(h.lines)
		}
		if p := m.single(h.key); p != nil {
			*p = value
		} else if p := m.multi(h.key); p != nil {
			*p = append(*p, value)
		}
	}

	if b := body.String(); strings.TrimSpace(b) != "" {
		m.Description = b
	}
	return m
}

func unfold(lines []string) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, " ")
}

// unfoldDescription undoes the two continuation styles writers use for a
// multi-line Description header: eight leading spaces, or whitespace followed
// by '|'.
func unfoldDescription(lines []string) string {
	out := make([]string, len(lines))
	out[0] = lines[0]
	for i, l := range lines[1:] {
		switch {
		case strings.HasPrefix(strings.TrimLeft(l, " \t"), "|"):
			l = strings.TrimLeft(l, " \t")[1:]
		case strings.HasPrefix(l, "        "):
			l = l[8:]
		default:
			l = strings.TrimLeft(l, " \t")
		}
		out[i+1] = l
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}
