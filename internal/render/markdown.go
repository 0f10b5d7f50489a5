package render

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Markdown variants accepted in the content-type "variant" parameter.
const (
	VariantCommonMark = "CommonMark"
	VariantGFM        = "GFM"
)

// Converters are built once; goldmark keeps per-call state in the parse.
var (
	commonMarkOnce sync.Once
	commonMark     goldmark.Markdown
	gfmOnce        sync.Once
	gfm            goldmark.Markdown
)

func converter(variant string) goldmark.Markdown {
	// Raw HTML is passed through and removed later by Sanitize.
	opts := []goldmark.Option{
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	}
	if variant == VariantCommonMark {
		commonMarkOnce.Do(func() {
			commonMark = goldmark.New(opts...)
		})
		return commonMark
	}
	gfmOnce.Do(func() {
		gfm = goldmark.New(append(opts, goldmark.WithExtensions(extension.GFM))...)
	})
	return gfm
}

// Markdown renders raw with goldmark. GFM is the default variant.
func Markdown(raw, variant string) (string, error) {
	var buf bytes.Buffer
	if err := converter(variant).Convert([]byte(raw), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}
