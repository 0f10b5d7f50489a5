package render

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var globalAttrs = map[string]bool{"id": true, "class": true}

// allowedTags maps each permitted element to its permitted attributes beyond
// id and class.
var allowedTags = map[string]map[string]bool{
	"a":          {"href": true, "title": true},
	"abbr":       {"title": true},
	"acronym":    {"title": true},
	"aside":      nil,
	"b":          nil,
	"blockquote": nil,
	"br":         nil,
	"caption":    nil,
	"cite":       nil,
	"code":       nil,
	"col":        {"span": true},
	"colgroup":   {"span": true},
	"dd":         nil,
	"del":        nil,
	"details":    {"open": true},
	"div":        {"align": true},
	"dl":         nil,
	"dt":         nil,
	"em":         nil,
	"figcaption": nil,
	"figure":     nil,
	"h1":         {"align": true},
	"h2":         {"align": true},
	"h3":         {"align": true},
	"h4":         {"align": true},
	"h5":         {"align": true},
	"h6":         {"align": true},
	"hr":         nil,
	"i":          nil,
	"img":        {"src": true, "alt": true, "title": true, "width": true, "height": true, "align": true},
	"input":      {"type": true, "checked": true, "disabled": true},
	"kbd":        nil,
	"li":         nil,
	"nav":        nil,
	"ol":         {"start": true},
	"p":          {"align": true},
	"picture":    nil,
	"pre":        nil,
	"s":          nil,
	"section":    nil,
	"source":     {"srcset": true, "media": true, "type": true},
	"span":       nil,
	"strong":     nil,
	"sub":        nil,
	"summary":    nil,
	"sup":        nil,
	"table":      {"align": true},
	"tbody":      nil,
	"td":         {"colspan": true, "rowspan": true, "align": true},
	"th":         {"colspan": true, "rowspan": true, "align": true},
	"thead":      nil,
	"tr":         nil,
	"tt":         nil,
	"ul":         nil,
	"var":        nil,
}

// droppedTags are removed together with their content.
var droppedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"iframe":   true,
	"object":   true,
	"embed":    true,
	"form":     true,
	"textarea": true,
	"select":   true,
	"button":   true,
	"noscript": true,
	"template": true,
	"head":     true,
	"title":    true,
	"svg":      true,
	"math":     true,
}

var urlAttrs = map[string]bool{"href": true, "src": true, "srcset": true}

var allowedSchemes = map[string]bool{"http": true, "https": true, "mailto": true}

// Sanitize keeps an allow-listed subset of fragment. Unknown elements are
// unwrapped, dangerous ones are dropped with their content, links get
// rel="nofollow" and URLs are limited to http, https, mailto and relative
// references.
func Sanitize(fragment string) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	var buf bytes.Buffer
	for _, n := range nodes {
		for _, clean := range sanitizeNode(n) {
			if err := html.Render(&buf, clean); err != nil {
				return "", fmt.Errorf("failed to render html: %w", err)
			}
		}
	}
	return buf.String(), nil
}

// sanitizeNode returns the nodes that replace n in the cleaned tree.
func sanitizeNode(n *html.Node) []*html.Node {
	switch n.Type {
	case html.TextNode:
		return []*html.Node{{Type: html.TextNode, Data: n.Data}}
	case html.ElementNode:
	default:
		// comments, doctypes
		return nil
	}

	if droppedTags[n.Data] {
		return nil
	}

	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, sanitizeNode(c)...)
	}

	allowed, ok := allowedTags[n.Data]
	if !ok || n.Namespace != "" {
		return children
	}
	if n.Data == "input" && attr(n, "type") != "checkbox" {
		return nil
	}

	clean := &html.Node{Type: html.ElementNode, Data: n.Data, DataAtom: n.DataAtom}
	for _, a := range n.Attr {
		if a.Namespace != "" || !(globalAttrs[a.Key] || allowed[a.Key]) {
			continue
		}
		if urlAttrs[a.Key] && !safeURL(a.Val) {
			continue
		}
		clean.Attr = append(clean.Attr, html.Attribute{Key: a.Key, Val: a.Val})
	}
	if n.Data == "a" && attr(clean, "href") != "" {
		clean.Attr = append(clean.Attr, html.Attribute{Key: "rel", Val: "nofollow"})
	}
	for _, c := range children {
		clean.AppendChild(c)
	}
	return []*html.Node{clean}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func safeURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return u.Scheme == "" || allowedSchemes[strings.ToLower(u.Scheme)]
}
