// Package catalog holds the most recently built manifest and answers the
// lookups made by the preview server and the MCP server.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/starford/berkana/internal/apperr"
	"github.com/starford/berkana/internal/index"
	"github.com/starford/berkana/internal/manifest"
	"github.com/starford/berkana/internal/models"
	"github.com/starford/berkana/internal/resolver"
	"github.com/starford/berkana/internal/storage"
)

// Search limits.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

// Entry is a child listed in a folder response.
type Entry struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

// FolderDetail is a folder with its direct children.
type FolderDetail struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Children   []Entry  `json:"children"`
	Images     []string `json:"images"`
	CoverImage *string  `json:"coverImage"`
}

// NoteDetail is a note together with the notes linking to it.
type NoteDetail struct {
	ID        string   `json:"id"`
	Path      string   `json:"path"`
	Folder    string   `json:"folder"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	ShowTitle bool     `json:"showTitle"`
	HTML      string   `json:"html"`
	Images    []string `json:"images"`
	Backlinks []string `json:"backlinks"`
}

// Options configures a Service.
type Options struct {
	// ContentDir is the content directory relative to the repository root.
	ContentDir string
	SkipDirs   []string
}

// Service serves lookups against the published snapshot. Apply swaps the
// snapshot atomically; readers never see a partially applied build.
type Service struct {
	store  storage.Provider
	db     index.NoteIndex
	opts   Options
	logger *slog.Logger

	snap atomic.Pointer[Snapshot]
}

// New creates a Service. db may be nil, in which case search and backlinks
// are answered from the in-memory tree.
func New(store storage.Provider, db index.NoteIndex, opts Options, logger *slog.Logger) *Service {
	if opts.ContentDir == "" {
		opts.ContentDir = manifest.DefaultContentDir
	}
	opts.ContentDir = strings.Trim(path.Clean(opts.ContentDir), "/")
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, db: db, opts: opts, logger: logger}
}

// Apply publishes a build result and brings the search index up to date.
// The snapshot is published even when syncing the index fails.
func (s *Service) Apply(ctx context.Context, res *manifest.Result) error {
	if res == nil || res.Tree == nil {
		return fmt.Errorf("catalog: apply: %w", apperr.ErrInvalid)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.snap.Store(newSnapshot(res, s.store, s.opts))

	if s.db == nil {
		return nil
	}
	stats, err := index.Sync(s.db, res.Tree, s.opts.ContentDir, s.logger)
	if err != nil {
		return fmt.Errorf("catalog: sync index: %w", err)
	}
	s.logger.Debug("catalog: index synced",
		slog.Int("upserted", stats.Upserted),
		slog.Int("removed", stats.Removed),
		slog.Int("unchanged", stats.Unchanged))
	return nil
}

// Snapshot returns the published snapshot, or apperr.ErrNotReady.
func (s *Service) Snapshot() (*Snapshot, error) {
	snap := s.snap.Load()
	if snap == nil {
		return nil, apperr.ErrNotReady
	}
	return snap, nil
}

// Note returns the note stored under id.
func (s *Service) Note(_ context.Context, id string) (*NoteDetail, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	n, ok := snap.notes[id]
	if !ok {
		return nil, fmt.Errorf("catalog: note %q: %w", id, apperr.ErrNotFound)
	}
	backlinks, err := s.backlinks(snap, id)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{
		ID:        n.ID,
		Path:      path.Join(s.opts.ContentDir, n.ID),
		Folder:    parentOf(n.ID),
		Title:     n.Title,
		Summary:   n.Summary,
		ShowTitle: n.ShowTitle,
		HTML:      n.HTML,
		Images:    n.Images,
		Backlinks: backlinks,
	}, nil
}

// Source returns the raw Markdown of the note stored under id.
func (s *Service) Source(_ context.Context, id string) ([]byte, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	if _, ok := snap.notes[id]; !ok {
		return nil, fmt.Errorf("catalog: note %q: %w", id, apperr.ErrNotFound)
	}
	raw, err := s.store.Read(path.Join(s.opts.ContentDir, id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("catalog: note %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read note: %w", err)
	}
	return raw, nil
}

// Folder returns the folder stored under id; "" is the content root.
func (s *Service) Folder(_ context.Context, id string) (*FolderDetail, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	id = strings.Trim(id, "/")
	if id == "" {
		return &FolderDetail{
			ID:       snap.Tree.ID,
			Title:    snap.Tree.Title,
			Children: entries(snap.Tree.Children),
			Images:   []string{},
		}, nil
	}
	f, ok := snap.folders[id]
	if !ok {
		return nil, fmt.Errorf("catalog: folder %q: %w", id, apperr.ErrNotFound)
	}
	images := f.Images
	if images == nil {
		images = []string{}
	}
	return &FolderDetail{
		ID:         f.ID,
		Title:      f.Title,
		Children:   entries(f.Children),
		Images:     images,
		CoverImage: f.CoverImage,
	}, nil
}

// Search finds notes matching query. limit is clamped to
// [1, MaxSearchLimit]; zero or less means DefaultSearchLimit.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("catalog: empty query: %w", apperr.ErrInvalid)
	}
	switch {
	case limit <= 0:
		limit = DefaultSearchLimit
	case limit > MaxSearchLimit:
		limit = MaxSearchLimit
	}

	if s.db != nil {
		results, err := s.db.Search(query, limit)
		if err != nil {
			return nil, fmt.Errorf("catalog: search: %w", err)
		}
		if results == nil {
			results = []index.SearchResult{}
		}
		return results, nil
	}

	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.search(query, limit), nil
}

// Resolve maps a link target written in a note under currentDir to its
// served path, using the file sets of the published snapshot.
func (s *Service) Resolve(_ context.Context, target, currentDir string) (string, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(target) == "" {
		return "", fmt.Errorf("catalog: empty target: %w", apperr.ErrInvalid)
	}
	idx, err := snap.resolver()
	if err != nil {
		return "", fmt.Errorf("catalog: %w", err)
	}
	return idx.Resolve(target, currentDir), nil
}

func (s *Service) backlinks(snap *Snapshot, id string) ([]string, error) {
	if s.db != nil {
		links, err := s.db.Backlinks(id)
		if err != nil {
			return nil, fmt.Errorf("catalog: backlinks: %w", err)
		}
		if links == nil {
			links = []string{}
		}
		return links, nil
	}
	links := snap.backlinks()[id]
	if links == nil {
		links = []string{}
	}
	return links, nil
}

// Snapshot is one published build.
type Snapshot struct {
	Tree     *models.Tree
	Manifest []byte
	Digest   string

	notes   map[string]*models.NoteNode
	folders map[string]*models.FolderNode
	order   []*models.NoteNode

	resolver  func() (*resolver.Index, error)
	backlinks func() map[string][]string
}

func newSnapshot(res *manifest.Result, store storage.Provider, opts Options) *Snapshot {
	snap := &Snapshot{
		Tree:     res.Tree,
		Manifest: res.Manifest,
		Digest:   res.Digest,
		notes:    make(map[string]*models.NoteNode),
		folders:  make(map[string]*models.FolderNode),
	}
	res.Tree.Walk(func(n models.Node) bool {
		switch v := n.(type) {
		case *models.NoteNode:
			snap.notes[v.ID] = v
			snap.order = append(snap.order, v)
		case *models.FolderNode:
			snap.folders[v.ID] = v
		}
		return true
	})
	snap.resolver = sync.OnceValues(func() (*resolver.Index, error) {
		return resolver.BuildIndex(store, resolver.IndexOptions{
			ContentDir: opts.ContentDir,
			SkipDirs:   opts.SkipDirs,
		})
	})
	snap.backlinks = sync.OnceValue(func() map[string][]string {
		out := make(map[string][]string)
		for _, n := range snap.order {
			_, links := index.Document(n.HTML, opts.ContentDir)
			for _, target := range links {
				if target != n.ID {
					out[target] = append(out[target], n.ID)
				}
			}
		}
		return out
	})
	return snap
}

// Notes returns the number of notes in the snapshot.
func (snap *Snapshot) Notes() int { return len(snap.notes) }

// search ranks title matches ahead of body matches and keeps tree order
// within each group.
func (snap *Snapshot) search(query string, limit int) []index.SearchResult {
	q := strings.ToLower(query)
	var byTitle, byBody []index.SearchResult
	for _, n := range snap.order {
		hit := index.SearchResult{ID: n.ID, Title: n.Title, Snippet: n.Summary}
		if hit.Snippet == "" {
			hit.Snippet = n.TextContent
		}
		switch {
		case strings.Contains(strings.ToLower(n.Title), q):
			byTitle = append(byTitle, hit)
		case strings.Contains(strings.ToLower(n.Summary), q),
			strings.Contains(strings.ToLower(n.TextContent), q):
			byBody = append(byBody, hit)
		}
	}
	results := append(byTitle, byBody...)
	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	return results
}

func entries(children models.Nodes) []Entry {
	out := make([]Entry, 0, len(children))
	for _, c := range children {
		out = append(out, Entry{ID: c.NodeID(), Type: c.NodeType(), Title: c.NodeTitle()})
	}
	return out
}

func parentOf(id string) string {
	dir := path.Dir(id)
	if dir == "." {
		return ""
	}
	return dir
}
