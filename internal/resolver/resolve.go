package resolver

import (
	"path"
	"strings"
)

// relativeExts are guessed for extensionless targets near the referencing note.
var relativeExts = []string{".md", ".png", ".jpg", ".jpeg", ".webp"}

// CommonExts are guessed, in priority order, for extensionless targets
// against the whole repository.
var CommonExts = []string{
	".md",
	".png", ".jpg", ".jpeg", ".webp", ".gif", ".svg", ".bmp",
	".mp4", ".webm", ".ogg", ".mov",
}

// Clean normalises a raw link target: trims space, converts backslashes
// and drops one leading "./" with any slashes after it. Deeper "./"
// segments are left for path.Join.
func Clean(raw string) string {
	s := strings.ReplaceAll(strings.TrimSpace(raw), `\`, "/")
	if strings.HasPrefix(s, "./") {
		s = strings.TrimLeft(s[1:], "/")
	}
	return s
}

// Resolve returns the served path for a link target written in a note that
// lives in currentDir (relative to the content directory). It never fails:
// when nothing matches, a best-effort rewrite of the cleaned target is returned.
func (idx *Index) Resolve(raw, currentDir string) string {
	cleaned := Clean(raw)
	noExt := path.Ext(cleaned) == ""

	fromCurrent := path.Join(currentDir, cleaned)
	candidates := withExts(nil, fromCurrent, noExt, relativeExts)

	fromRoot := path.Clean(strings.TrimPrefix(cleaned, "/"))
	if fromRoot != fromCurrent {
		candidates = withExts(candidates, fromRoot, noExt, relativeExts)
	}

	for _, c := range candidates {
		if idx.hasContent(c) {
			return idx.served(c)
		}
	}

	contentPrefix := idx.contentDir + "/"
	for _, c := range candidates {
		repoCandidate := c
		if !strings.HasPrefix(c, contentPrefix) {
			repoCandidate = path.Join(idx.contentDir, c)
		}
		if idx.hasRepo(repoCandidate) {
			return repoCandidate
		}
		if idx.hasRepo(c) {
			return c
		}
	}

	normalized := strings.TrimPrefix(cleaned, "/")
	if idx.hasRepo(normalized) {
		return normalized
	}
	if noExt {
		for _, ext := range CommonExts {
			if idx.hasRepo(normalized + ext) {
				return normalized + ext
			}
		}
	}

	if hit, ok := idx.byBasename(path.Base(normalized), currentDir); ok {
		return hit
	}

	switch {
	case strings.HasPrefix(cleaned, "media/"):
		return cleaned
	case strings.HasPrefix(cleaned, "../media/"):
		return strings.TrimPrefix(cleaned, "../")
	case strings.HasPrefix(cleaned, "/"):
		return cleaned[1:]
	}
	return cleaned
}

// byBasename picks among repository files sharing base: first one under the
// referencing note's directory, then any under the content directory, then
// the first indexed.
func (idx *Index) byBasename(base, currentDir string) (string, bool) {
	hits := idx.basenames[base]
	if len(hits) == 0 {
		return "", false
	}
	prefixes := []string{
		path.Join(idx.contentDir, currentDir) + "/",
		idx.contentDir + "/",
	}
	for _, prefix := range prefixes {
		for _, h := range hits {
			if strings.HasPrefix(h, prefix) {
				return h, true
			}
		}
	}
	return hits[0], true
}

// served converts a content-relative path to its root-relative URL path.
func (idx *Index) served(rel string) string {
	if strings.HasPrefix(rel, "media/") || strings.HasPrefix(rel, "/media/") {
		return strings.TrimPrefix(rel, "/")
	}
	return path.Join(idx.contentDir, rel)
}

func withExts(dst []string, p string, noExt bool, exts []string) []string {
	dst = append(dst, p)
	if noExt {
		for _, ext := range exts {
			dst = append(dst, p+ext)
		}
	}
	return dst
}
