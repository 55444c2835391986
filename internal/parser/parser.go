// Package parser turns a Markdown note (frontmatter, Obsidian links and embeds)
// into the rendered fields of a manifest note.
package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultShowTitleKey  = "标题"
	DefaultExcerptLength = 200
)

// Resolver maps a raw link target, written in a note under currentDir, to a
// served path.
type Resolver interface {
	Resolve(raw, currentDir string) string
}

// Options configures a Parser.
type Options struct {
	// ShowTitleKey is the frontmatter field toggling title display.
	ShowTitleKey string
	// ShowTitleDefault applies when the toggle is absent or unrecognised.
	ShowTitleDefault bool
	// ExcerptLength is the number of characters kept in TextContent.
	ExcerptLength int
	// HighlightStyle enables chroma code highlighting with the named style.
	HighlightStyle string
	// HighlightClasses emits CSS classes instead of inline styles.
	HighlightClasses bool
}

// Result holds the output of parsing one note.
type Result struct {
	Frontmatter map[string]any
	Title       string
	Summary     string
	ShowTitle   bool
	HTML        string
	Images      []string
	TextContent string
}

// Parser renders notes. It holds no per-call state and is safe for
// concurrent use.
type Parser struct {
	opts Options
	md   goldmark.Markdown
}

// New creates a Parser.
func New(opts Options) *Parser {
	if opts.ShowTitleKey == "" {
		opts.ShowTitleKey = DefaultShowTitleKey
	}
	if opts.ExcerptLength <= 0 {
		opts.ExcerptLength = DefaultExcerptLength
	}
	return &Parser{opts: opts, md: newEngine(opts)}
}

// Options returns the effective options, defaults applied.
func (p *Parser) Options() Options {
	return p.opts
}

// Parse splits frontmatter from raw, rewrites links and embeds through res
// and renders the body to HTML. Title is empty when the frontmatter does
// not set one; callers fall back to the file name. Invalid UTF-8 is
// replaced with U+FFFD so a reused note encodes to the same bytes.
func (p *Parser) Parse(raw []byte, currentDir string, res Resolver) (*Result, error) {
	raw = bytes.ToValidUTF8(raw, []byte("\uFFFD"))
	fm, body := splitFrontmatter(raw)

	rewritten := rewriteLinks(string(body), currentDir, res)

	var buf bytes.Buffer
	if err := p.md.Convert([]byte(rewritten), &buf); err != nil {
		return nil, fmt.Errorf("parser: render: %w", err)
	}
	html := buf.String()

	return &Result{
		Frontmatter: fm,
		Title:       stringField(fm, "title"),
		Summary:     stringField(fm, "summary"),
		ShowTitle:   boolField(fm, p.opts.ShowTitleKey, p.opts.ShowTitleDefault),
		HTML:        html,
		Images:      extractImages(html),
		TextContent: excerpt(string(body), p.opts.ExcerptLength),
	}, nil
}

// splitFrontmatter separates the frontmatter block from the body. Invalid
// frontmatter is treated as absent and the whole input becomes the body.
func splitFrontmatter(raw []byte) (map[string]any, []byte) {
	var fm map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(raw), &fm)
	if err != nil {
		return nil, raw
	}
	return fm, body
}

func stringField(fm map[string]any, key string) string {
	switch v := fm[key].(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// boolField accepts a YAML boolean or a case-insensitive "true"/"false".
func boolField(fm map[string]any, key string, def bool) bool {
	switch v := fm[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return def
}

// excerpt returns the first n characters of s.
func excerpt(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
