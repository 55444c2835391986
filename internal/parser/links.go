package parser

import (
	"html"
	"path"
	"regexp"
	"strings"
)

// Bracket bodies are matched up to the first "]", so a nested [[...]]
// inside a caption is not supported.
var (
	embedRe    = regexp.MustCompile(`!\[\[([^\]]+)\]\]`)
	wikilinkRe = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
)

var (
	imageExts = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
		".webp": true, ".svg": true, ".bmp": true,
	}
	videoExts = map[string]bool{
		".mp4": true, ".webm": true, ".ogg": true, ".mov": true,
	}
)

// rewriteLinks replaces embeds, then wikilinks, with standard Markdown (or
// inline HTML for video) pointing at resolved paths.
func rewriteLinks(body, currentDir string, res Resolver) string {
	out := embedRe.ReplaceAllStringFunc(body, func(m string) string {
		target, caption := splitTarget(m[3 : len(m)-2])
		served := res.Resolve(target, currentDir)
		base := path.Base(strings.ReplaceAll(target, `\`, "/"))

		ext := strings.ToLower(path.Ext(served))
		switch {
		case imageExts[ext]:
			return "![" + orDefault(caption, base) + "](" + linkDest(served) + ")"
		case videoExts[ext]:
			return `<video controls src="` + html.EscapeString(served) + `"></video>`
		case ext == ".md":
			return "[" + orDefault(caption, strings.TrimSuffix(base, ".md")) + "](" + linkDest(served) + ")"
		}
		return "[" + orDefault(caption, target) + "](" + linkDest(served) + ")"
	})

	return wikilinkRe.ReplaceAllStringFunc(out, func(m string) string {
		target, label := splitTarget(m[2 : len(m)-2])
		served := res.Resolve(target, currentDir)
		return "[" + orDefault(label, target) + "](" + linkDest(served) + ")"
	})
}

// splitTarget splits a bracket body at its first "|".
func splitTarget(inner string) (target, label string) {
	target, label, _ = strings.Cut(inner, "|")
	return strings.TrimSpace(target), strings.TrimSpace(label)
}

// linkDest wraps destinations that plain Markdown would not accept.
func linkDest(p string) string {
	if strings.ContainsAny(p, " \t()") {
		return "<" + strings.NewReplacer("<", "%3C", ">", "%3E").Replace(p) + ">"
	}
	return p
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
