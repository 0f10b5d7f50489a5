// Package render turns release long descriptions into sanitised HTML for the
// generated project pages.
package render

import (
	"html"
	"mime"
	"strings"
)

// Unset is the description setuptools writes when none was provided.
const Unset = "UNKNOWN\n\n\n"

// Content types with a dedicated renderer. Anything else is treated as reST.
const (
	ContentTypePlain    = "text/plain"
	ContentTypeRST      = "text/x-rst"
	ContentTypeMarkdown = "text/markdown"
)

// Description renders raw according to contentType and sanitises the result.
// An empty or unset description renders as "".
func Description(raw, contentType string) (string, error) {
	if raw == "" || raw == Unset {
		return "", nil
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, params = "", nil
	}

	var out string
	switch mediaType {
	case ContentTypePlain:
		out = Plain(raw)
	case ContentTypeMarkdown:
		out, err = Markdown(raw, params["variant"])
		if err != nil {
			return "", err
		}
	default:
		out = RST(raw)
	}
	return Sanitize(out)
}

// Plain escapes raw into a preformatted block.
func Plain(raw string) string {
	return "<pre>" + html.EscapeString(strings.TrimRight(raw, "\n")) + "</pre>"
}
