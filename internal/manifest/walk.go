package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/starford/berkana/internal/models"
	"github.com/starford/berkana/internal/parser"
	"github.com/starford/berkana/internal/storage"
)

// walker builds the content tree for one run.
type walker struct {
	store      storage.Provider
	contentDir string
	marker     string
	parser     *parser.Parser
	tracker    *Tracker
	sorter     *sorter

	notes   int
	folders int
}

// walk returns the sorted children of the content directory. A missing
// content directory yields no children.
func (w *walker) walk(ctx context.Context) (models.Nodes, error) {
	return w.walkDir(ctx, "")
}

// walkDir processes rel (relative to the content directory) depth first.
// Folders are aggregated after their own children are complete.
func (w *walker) walkDir(ctx context.Context, rel string) (models.Nodes, error) {
	entries, err := w.store.ReadDir(path.Join(w.contentDir, rel))
	if err != nil {
		if rel == "" && errors.Is(err, fs.ErrNotExist) {
			return models.Nodes{}, nil
		}
		return nil, fmt.Errorf("manifest: read dir %q: %w", rel, err)
	}

	children := models.Nodes{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		id := path.Join(rel, name)

		switch {
		case e.IsDir():
			kids, err := w.walkDir(ctx, id)
			if err != nil {
				return nil, err
			}
			images, cover := AggregateWith(kids, nil, w.marker)
			children = append(children, &models.FolderNode{
				ID:         id,
				Title:      name,
				Children:   kids,
				Images:     images,
				CoverImage: cover,
			})
			w.folders++

		case e.Type().IsRegular() && strings.HasSuffix(name, ".md"):
			note, err := w.note(id, rel, name)
			if err != nil {
				return nil, err
			}
			children = append(children, note)
			w.notes++
		}
	}

	w.sorter.sort(children)
	return children, nil
}

func (w *walker) note(id, dir, name string) (*models.NoteNode, error) {
	full := path.Join(w.contentDir, id)
	fp, err := w.store.Stat(full)
	if err != nil {
		return nil, fmt.Errorf("manifest: stat %s: %w", id, err)
	}

	return w.tracker.Note(id, fp, func(res parser.Resolver) (*models.NoteNode, error) {
		raw, err := w.store.Read(full)
		if err != nil {
			return nil, fmt.Errorf("manifest: read %s: %w", id, err)
		}
		parsed, err := w.parser.Parse(raw, dir, res)
		if err != nil {
			return nil, fmt.Errorf("manifest: parse %s: %w", id, err)
		}
		title := parsed.Title
		if title == "" {
			title = strings.TrimSuffix(name, ".md")
		}
		return &models.NoteNode{
			ID:          id,
			Title:       title,
			Summary:     parsed.Summary,
			ShowTitle:   parsed.ShowTitle,
			HTML:        parsed.HTML,
			Images:      parsed.Images,
			TextContent: parsed.TextContent,
		}, nil
	})
}
