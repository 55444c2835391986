package index

import (
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/starford/berkana/internal/checksum"
	"github.com/starford/berkana/internal/models"
)

// SyncStats reports what a Sync changed.
type SyncStats struct {
	Upserted  int
	Removed   int
	Unchanged int
}

// Sync brings the index up to date with tree:
//   - notes whose rendered content changed are upserted
//   - notes no longer in the tree are deleted from the index
//
// contentDir is the served prefix of content paths; it turns link hrefs
// back into note ids for the backlink table.
func Sync(db NoteIndex, tree *models.Tree, contentDir string, logger *slog.Logger) (SyncStats, error) {
	var stats SyncStats

	checksums, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	now := time.Now().UTC()
	seen := make(map[string]struct{})
	var firstErr error
	tree.Walk(func(n models.Node) bool {
		note, ok := n.(*models.NoteNode)
		if !ok {
			return true
		}
		seen[note.ID] = struct{}{}

		cs := noteChecksum(note)
		if checksums[note.ID] == cs {
			stats.Unchanged++
			return true
		}
		body, links := Document(note.HTML, contentDir)
		row := NoteRow{
			ID:        note.ID,
			Title:     note.Title,
			Summary:   note.Summary,
			Folder:    folderOf(note.ID),
			Checksum:  cs,
			Body:      body,
			UpdatedAt: now,
		}
		if err := db.UpsertNote(row, links); err != nil {
			logger.Warn("sync: index failed", slog.String("id", note.ID), slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
			return true
		}
		logger.Debug("sync: indexed", slog.String("id", note.ID))
		stats.Upserted++
		return true
	})

	// Remove stale entries.
	for id := range checksums {
		if _, ok := seen[id]; ok {
			continue
		}
		if err := db.DeleteNote(id); err != nil {
			logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logger.Debug("sync: removed stale", slog.String("id", id))
		stats.Removed++
	}

	return stats, firstErr
}

// Document extracts the searchable text of rendered note HTML and the ids of
// the notes it links to.
func Document(rendered, contentDir string) (string, []string) {
	prefix := strings.Trim(contentDir, "/") + "/"
	z := html.NewTokenizer(strings.NewReader(rendered))

	var text []string
	var links []string
	linked := make(map[string]struct{})
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(text, " "), links
		case html.TextToken:
			if s := strings.TrimSpace(string(z.Text())); s != "" {
				text = append(text, s)
			}
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "href" {
					if id, ok := linkTarget(string(val), prefix); ok {
						if _, dup := linked[id]; !dup {
							linked[id] = struct{}{}
							links = append(links, id)
						}
					}
				}
				if !more {
					break
				}
			}
		}
	}
}

// linkTarget maps a served note href back to its note id.
func linkTarget(href, prefix string) (string, bool) {
	if unescaped, err := url.PathUnescape(href); err == nil {
		href = unescaped
	}
	if !strings.HasPrefix(href, prefix) || !strings.HasSuffix(href, ".md") {
		return "", false
	}
	return strings.TrimPrefix(href, prefix), true
}

func folderOf(id string) string {
	dir := path.Dir(id)
	if dir == "." {
		return ""
	}
	return dir
}

func noteChecksum(n *models.NoteNode) string {
	return checksum.Sum([]byte(n.Title + "\x00" + n.Summary + "\x00" + n.HTML))
}
