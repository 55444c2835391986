package parser

import (
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	gmparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// newEngine builds the goldmark pipeline: GFM, generated heading ids and
// raw HTML passthrough (embedded videos are inline HTML).
func newEngine(opts Options) goldmark.Markdown {
	exts := []goldmark.Extender{extension.GFM}
	if opts.HighlightStyle != "" {
		exts = append(exts, highlighting.NewHighlighting(
			highlighting.WithStyle(opts.HighlightStyle),
			highlighting.WithFormatOptions(chromahtml.WithClasses(opts.HighlightClasses)),
		))
	}

	return goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(gmparser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
}
