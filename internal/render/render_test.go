package render

import (
	"strings"
	"testing"
)

func assertContains(t *testing.T, got string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n--- got ---\n%s", want, got)
		}
	}
}

func assertNotContains(t *testing.T, got string, unwanted ...string) {
	t.Helper()
	for _, u := range unwanted {
		if strings.Contains(got, u) {
			t.Errorf("output unexpectedly contains %q\n--- got ---\n%s", u, got)
		}
	}
}

// ---------------------------------------------------------------------------
// Description dispatch
// ---------------------------------------------------------------------------

func TestDescription_Empty(t *testing.T) {
	for _, raw := range []string{"", Unset} {
		got, err := Description(raw, "text/markdown")
		if err != nil {
			t.Fatalf("Description(%q) error: %v", raw, err)
		}
		if got != "" {
			t.Errorf("Description(%q) = %q, want empty", raw, got)
		}
	}
}

func TestDescription_Dispatch(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		contentType string
		want        []string
	}{
		{"plain is escaped", "a < b\n", "text/plain", []string{"<pre>a &lt; b</pre>"}},
		{"plain with charset", "x", "text/plain; charset=UTF-8", []string{"<pre>x</pre>"}},
		{"markdown", "# Title\n\nSome *text*", "text/markdown", []string{`<h1 id="title">Title</h1>`, "<em>text</em>"}},
		{"markdown default variant is gfm", "~~old~~", "text/markdown", []string{"<del>old</del>"}},
		{"explicit gfm", "~~old~~", "text/markdown; variant=GFM", []string{"<del>old</del>"}},
		{"rst", "Title\n=====\n\nHello **world**.", "text/x-rst", []string{"<h1>Title</h1>", "<strong>world</strong>"}},
		{"unknown type falls back to rst", "Hello **world**.", "text/x-unknown", []string{"<strong>world</strong>"}},
		{"missing type falls back to rst", "Hello **world**.", "", []string{"<strong>world</strong>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Description(tt.raw, tt.contentType)
			if err != nil {
				t.Fatalf("Description() error: %v", err)
			}
			assertContains(t, got, tt.want...)
		})
	}
}

func TestDescription_CommonMarkHasNoStrikethrough(t *testing.T) {
	got, err := Description("~~old~~", "text/markdown; variant=CommonMark")
	if err != nil {
		t.Fatal(err)
	}
	assertNotContains(t, got, "<del>")
}

func TestDescription_MarkdownIsSanitised(t *testing.T) {
	raw := "<script>alert(1)</script>\n\nok [home](https://example.com) [bad](javascript:alert(1))"
	got, err := Description(raw, "text/markdown")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, got, "ok", `<a href="https://example.com" rel="nofollow">home</a>`)
	assertNotContains(t, got, "<script", "alert(1)</script>", "javascript:")
}

func TestMarkdown_GFMFeatures(t *testing.T) {
	raw := "| a | b |\n|---|---|\n| 1 | 2 |\n\n- [x] done\n"
	got, err := Markdown(raw, VariantGFM)
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, got, "<table>", "<td>1</td>", `type="checkbox"`)
}

// ---------------------------------------------------------------------------
// reStructuredText
// ---------------------------------------------------------------------------

func TestRST(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "section levels in order of appearance",
			raw:  "Title\n=====\n\nSub\n---\n\nMore\n====\n",
			want: []string{"<h1>Title</h1>", "<h2>Sub</h2>", "<h1>More</h1>"},
		},
		{
			name: "overlined title",
			raw:  "=======\n Title\n=======\n\nBody\n",
			want: []string{"<h1>Title</h1>", "<p>Body</p>"},
		},
		{
			name: "paragraph lines joined",
			raw:  "first line\nsecond line\n",
			want: []string{"<p>first line second line</p>"},
		},
		{
			name: "bullet list",
			raw:  "- one\n- two\n  continued\n",
			want: []string{"<ul>\n<li>one</li>\n<li>two continued</li>\n</ul>"},
		},
		{
			name: "enumerated list",
			raw:  "1. first\n2. second\n",
			want: []string{"<ol>\n<li>first</li>\n<li>second</li>\n</ol>"},
		},
		{
			name: "nested list",
			raw:  "- outer\n\n  - inner\n",
			want: []string{"<li><p>outer</p>", "<ul>\n<li>inner</li>\n</ul>"},
		},
		{
			name: "expanded literal block",
			raw:  "Example::\n\n    code <here>\n    more\n\nAfter\n",
			want: []string{"<p>Example:</p>", "<pre><code>code &lt;here&gt;\nmore</code></pre>", "<p>After</p>"},
		},
		{
			name: "standalone literal marker",
			raw:  "::\n\n    x = 1\n",
			want: []string{"<pre><code>x = 1</code></pre>"},
		},
		{
			name: "code directive",
			raw:  ".. code-block:: python\n   :linenos:\n\n    print(1)\n",
			want: []string{`<pre><code class="language-python">print(1)</code></pre>`},
		},
		{
			name: "block quote",
			raw:  "Para\n\n    quoted text\n",
			want: []string{"<blockquote>\n<p>quoted text</p>\n</blockquote>"},
		},
		{
			name: "transition",
			raw:  "above\n\n----------\n\nbelow\n",
			want: []string{"<p>above</p>\n<hr>\n<p>below</p>"},
		},
		{
			name: "inline markup",
			raw:  "Use ``pip install`` with **care** and *style*.",
			want: []string{"<code>pip install</code>", "<strong>care</strong>", "<em>style</em>"},
		},
		{
			name: "named hyperlink",
			raw:  "See `the docs <https://docs.example.com>`_.",
			want: []string{`<a href="https://docs.example.com">the docs</a>.`},
		},
		{
			name: "bare url",
			raw:  "Visit https://example.com.",
			want: []string{`<a href="https://example.com">https://example.com</a>.`},
		},
		{
			name: "text is escaped",
			raw:  "a < b & c",
			want: []string{"<p>a &lt; b &amp; c</p>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertContains(t, RST(tt.raw), tt.want...)
		})
	}
}

func TestRST_DropsCommentsAndDirectives(t *testing.T) {
	got := RST(".. image:: https://example.com/badge.svg\n   :target: https://example.com\n\n.. a comment\n\nText\n")
	assertNotContains(t, got, "badge.svg", "comment")
	assertContains(t, got, "<p>Text</p>")
}

func TestRST_MidWordAsteriskIsLiteral(t *testing.T) {
	got := RST("2*3*4 is math")
	assertNotContains(t, got, "<em>")
}

// ---------------------------------------------------------------------------
// Sanitize
// ---------------------------------------------------------------------------

func TestSanitize(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		want      string
		unwanted  []string
		exactWant bool
	}{
		{name: "allowed markup kept", in: "<p><strong>x</strong></p>", want: "<p><strong>x</strong></p>", exactWant: true},
		{name: "unknown element unwrapped", in: "<foo>bar</foo>", want: "bar", exactWant: true},
		{name: "script removed with content", in: "a<script>evil()</script>b", want: "ab", exactWant: true},
		{name: "style attribute dropped", in: `<p style="color:red" class="c">x</p>`, want: `<p class="c">x</p>`, exactWant: true},
		{name: "event handler dropped", in: `<img src="https://e.com/i.png" onerror="x()">`, want: `<img src="https://e.com/i.png"/>`, exactWant: true},
		{name: "javascript src dropped", in: `<img src="javascript:x()">`, unwanted: []string{"javascript"}},
		{name: "relative link kept with nofollow", in: `<a href="#usage">u</a>`, want: `<a href="#usage" rel="nofollow">u</a>`, exactWant: true},
		{name: "existing rel replaced", in: `<a href="https://e.com" rel="me">x</a>`, want: `<a href="https://e.com" rel="nofollow">x</a>`, exactWant: true},
		{name: "mailto kept", in: `<a href="mailto:a@example.com">a</a>`, want: `href="mailto:a@example.com"`},
		{name: "comment removed", in: "x<!-- hidden -->y", want: "xy", exactWant: true},
		{name: "text input removed", in: `<input type="text" value="v">`, want: "", exactWant: true},
		{name: "checkbox kept", in: `<input type="checkbox" checked="" disabled="">`, want: `<input type="checkbox" checked="" disabled=""/>`, exactWant: true},
		{name: "svg dropped", in: `<svg><circle r="1"></circle></svg>ok`, want: "ok", exactWant: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.in)
			if err != nil {
				t.Fatalf("Sanitize() error: %v", err)
			}
			if tt.exactWant && got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if !tt.exactWant && tt.want != "" {
				assertContains(t, got, tt.want)
			}
			assertNotContains(t, got, tt.unwanted...)
		})
	}
}
