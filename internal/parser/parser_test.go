package parser

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// stubResolver resolves from a fixed table and echoes unknown targets.
type stubResolver map[string]string

func (s stubResolver) Resolve(raw, _ string) string {
	if p, ok := s[raw]; ok {
		return p
	}
	return raw
}

func TestParse_FrontmatterAndBody(t *testing.T) {
	p := New(Options{ShowTitleDefault: true})
	input := []byte("---\ntitle: Hello\nsummary: A short one\n---\n# Heading\nBody text.\n")
	r, err := p.Parse(input, "", stubResolver{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if r.Summary != "A short one" {
		t.Errorf("summary = %q", r.Summary)
	}
	if !r.ShowTitle {
		t.Error("showTitle should default to true")
	}
	if !strings.Contains(r.HTML, "<h1") || !strings.Contains(r.HTML, "Body text.") {
		t.Errorf("html = %q", r.HTML)
	}
	if strings.Contains(r.TextContent, "title:") {
		t.Errorf("textContent should exclude frontmatter: %q", r.TextContent)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	p := New(Options{})
	r, err := p.Parse([]byte("Just text.\n"), "", stubResolver{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "" || r.Summary != "" {
		t.Errorf("title/summary should be empty, got %q/%q", r.Title, r.Summary)
	}
	if r.TextContent != "Just text.\n" {
		t.Errorf("textContent = %q", r.TextContent)
	}
}

func TestParse_InvalidFrontmatterFallback(t *testing.T) {
	p := New(Options{ShowTitleDefault: true})
	input := []byte("---\ntitle: [unclosed\n---\nBody\n")
	r, err := p.Parse(input, "", stubResolver{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML, got %v", r.Frontmatter)
	}
	if r.Title != "" {
		t.Errorf("title = %q, want empty", r.Title)
	}
	if !r.ShowTitle {
		t.Error("showTitle should fall back to the default")
	}
}

func TestParse_ShowTitleToggle(t *testing.T) {
	cases := []struct {
		name string
		fm   string
		def  bool
		want bool
	}{
		{"bool false", "标题: false", true, false},
		{"bool true", "标题: true", false, true},
		{"string FALSE", `标题: "FALSE"`, true, false},
		{"string True", `标题: " True "`, false, true},
		{"unrecognised", `标题: "maybe"`, false, false},
		{"absent default true", "title: x", true, true},
		{"absent default false", "title: x", false, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := New(Options{ShowTitleDefault: c.def})
			r, err := p.Parse([]byte("---\n"+c.fm+"\n---\nbody\n"), "", stubResolver{})
			if err != nil {
				t.Fatal(err)
			}
			if r.ShowTitle != c.want {
				t.Errorf("showTitle = %v, want %v", r.ShowTitle, c.want)
			}
		})
	}
}

func TestParse_EmbedImage(t *testing.T) {
	p := New(Options{})
	res := stubResolver{"cat": "content/pets/cat.png"}
	r, err := p.Parse([]byte("![[cat|My cat]] and ![[cat]]\n"), "pets", res)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.HTML, `<img src="content/pets/cat.png" alt="My cat">`) {
		t.Errorf("captioned image missing: %q", r.HTML)
	}
	if !strings.Contains(r.HTML, `alt="cat"`) {
		t.Errorf("basename alt missing: %q", r.HTML)
	}
	if len(r.Images) != 2 || r.Images[0] != "content/pets/cat.png" || r.Images[1] != "content/pets/cat.png" {
		t.Errorf("images = %v, want the same image twice", r.Images)
	}
}

func TestParse_EmbedVideo(t *testing.T) {
	p := New(Options{})
	res := stubResolver{"trip.mp4": "media/trip.mp4"}
	r, err := p.Parse([]byte("![[trip.mp4]]\n"), "", res)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.HTML, `<video controls src="media/trip.mp4"></video>`) {
		t.Errorf("video element missing: %q", r.HTML)
	}
	if len(r.Images) != 0 {
		t.Errorf("images = %v, want none", r.Images)
	}
}

func TestParse_EmbedMarkdownAndOther(t *testing.T) {
	p := New(Options{})
	res := stubResolver{
		"dir/other":  "content/dir/other.md",
		"report.pdf": "content/report.pdf",
	}
	r, err := p.Parse([]byte("![[dir/other]]\n\n![[report.pdf]]\n\n![[report.pdf|The report]]\n"), "", res)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.HTML, `<a href="content/dir/other.md">other</a>`) {
		t.Errorf("markdown embed link missing: %q", r.HTML)
	}
	if !strings.Contains(r.HTML, `<a href="content/report.pdf">report.pdf</a>`) {
		t.Errorf("other embed link missing: %q", r.HTML)
	}
	if !strings.Contains(r.HTML, `<a href="content/report.pdf">The report</a>`) {
		t.Errorf("captioned other embed missing: %q", r.HTML)
	}
}

func TestParse_Wikilinks(t *testing.T) {
	p := New(Options{})
	res := stubResolver{"Note A": "content/Note_A.md"}
	r, err := p.Parse([]byte("See [[Note A]] and [[Note A|alias|extra]].\n"), "", res)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.HTML, `<a href="content/Note_A.md">Note A</a>`) {
		t.Errorf("plain link missing: %q", r.HTML)
	}
	// Only the first "|" separates target from label.
	if !strings.Contains(r.HTML, `<a href="content/Note_A.md">alias|extra</a>`) {
		t.Errorf("labelled link missing: %q", r.HTML)
	}
}

func TestParse_UnresolvedLinkDoesNotFail(t *testing.T) {
	p := New(Options{})
	r, err := p.Parse([]byte("[[missing-note]]\n"), "", stubResolver{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.HTML, `<a href="missing-note">missing-note</a>`) {
		t.Errorf("fallback link missing: %q", r.HTML)
	}
}

func TestParse_UnbalancedBracketsPassThrough(t *testing.T) {
	p := New(Options{})
	r, err := p.Parse([]byte("open [[never closed\n"), "", stubResolver{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.HTML, "[[never closed") {
		t.Errorf("raw text should pass through: %q", r.HTML)
	}
}

func TestParse_SpacesInPath(t *testing.T) {
	p := New(Options{})
	res := stubResolver{"my pic.png": "content/my pic.png"}
	r, err := p.Parse([]byte("![[my pic.png]]\n"), "", res)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Images) != 1 || r.Images[0] != "content/my%20pic.png" {
		t.Errorf("images = %v", r.Images)
	}
}

func TestParse_TextContentIsRawPrefix(t *testing.T) {
	p := New(Options{})
	body := strings.Repeat("封", 150) + "[[link]]" + strings.Repeat("a", 100)
	r, err := p.Parse([]byte(body), "", stubResolver{})
	if err != nil {
		t.Fatal(err)
	}
	if n := utf8.RuneCountInString(r.TextContent); n != DefaultExcerptLength {
		t.Errorf("textContent has %d characters, want %d", n, DefaultExcerptLength)
	}
	if !strings.Contains(r.TextContent, "[[link]]") {
		t.Errorf("textContent should hold the raw body: %q", r.TextContent)
	}
}

func TestParse_InvalidUTF8Replaced(t *testing.T) {
	p := New(Options{})
	r, err := p.Parse([]byte("---\ntitle: caf\xe9\n---\ncaf\xe9 latin-1 note\n"), "", stubResolver{})
	if err != nil {
		t.Fatal(err)
	}
	for name, s := range map[string]string{"title": r.Title, "html": r.HTML, "textContent": r.TextContent} {
		if !utf8.ValidString(s) {
			t.Errorf("%s holds invalid UTF-8: %q", name, s)
		}
		if !strings.Contains(s, "caf\uFFFD") {
			t.Errorf("%s = %q, want the replacement character", name, s)
		}
	}
}

func TestParse_Highlighting(t *testing.T) {
	p := New(Options{HighlightStyle: "monokai", HighlightClasses: true})
	r, err := p.Parse([]byte("```go\npackage main\n```\n"), "", stubResolver{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.HTML, `class="chroma"`) {
		t.Errorf("expected chroma classes: %q", r.HTML)
	}
}

func TestExtractImages_Order(t *testing.T) {
	html := `<p><img src="b.png" alt="b"><img alt="x" src="a.png"/></p><img src="b.png">`
	got := extractImages(html)
	if strings.Join(got, ",") != "b.png,a.png,b.png" {
		t.Errorf("images = %v", got)
	}
}

func TestExcerpt(t *testing.T) {
	if got := excerpt("héllo", 2); got != "hé" {
		t.Errorf("excerpt = %q", got)
	}
	if got := excerpt("hi", 10); got != "hi" {
		t.Errorf("excerpt = %q", got)
	}
}
