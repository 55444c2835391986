// Package resolver maps Obsidian-style link targets to served paths.
package resolver

import (
	"fmt"
	"path"
	"strings"

	"github.com/starford/berkana/internal/storage"
)

// DefaultSkipDirs are repository directories never indexed.
var DefaultSkipDirs = []string{".git", "node_modules"}

// Index holds the file sets consulted during resolution. It is built once
// per build and never mutated afterwards, so it is safe for concurrent use.
type Index struct {
	contentDir string
	content    map[string]struct{} // relative to contentDir
	repo       map[string]struct{} // relative to the repository root
	basenames  map[string][]string // basename -> repo paths, in walk order
}

// IndexOptions controls BuildIndex.
type IndexOptions struct {
	// ContentDir is the content directory relative to the repository root.
	ContentDir string
	// SkipDirs are directory names pruned from the repository walk.
	SkipDirs []string
}

// BuildIndex walks the content directory and the whole repository.
func BuildIndex(store storage.Provider, opts IndexOptions) (*Index, error) {
	contentDir := path.Clean(strings.Trim(opts.ContentDir, "/"))
	skipDirs := opts.SkipDirs
	if skipDirs == nil {
		skipDirs = DefaultSkipDirs
	}

	contentFiles, err := store.Files(contentDir, func(name string, _ bool) bool {
		return strings.HasPrefix(name, ".")
	})
	if err != nil {
		return nil, fmt.Errorf("resolver: index content: %w", err)
	}

	repoFiles, err := store.Files("", func(name string, isDir bool) bool {
		if strings.HasPrefix(name, ".") && name != ".github" {
			return true
		}
		if isDir {
			for _, d := range skipDirs {
				if name == d {
					return true
				}
			}
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("resolver: index repository: %w", err)
	}

	return NewIndex(contentDir, contentFiles, repoFiles), nil
}

// NewIndex assembles an Index from already listed files. contentFiles are
// relative to contentDir, repoFiles to the repository root.
func NewIndex(contentDir string, contentFiles, repoFiles []string) *Index {
	idx := &Index{
		contentDir: contentDir,
		content:    make(map[string]struct{}, len(contentFiles)),
		repo:       make(map[string]struct{}, len(repoFiles)),
		basenames:  make(map[string][]string),
	}
	for _, f := range contentFiles {
		idx.content[f] = struct{}{}
	}
	for _, f := range repoFiles {
		idx.repo[f] = struct{}{}
		base := path.Base(f)
		idx.basenames[base] = append(idx.basenames[base], f)
	}
	return idx
}

// ContentDir returns the content directory the index was built for.
func (idx *Index) ContentDir() string {
	return idx.contentDir
}

func (idx *Index) hasContent(p string) bool {
	_, ok := idx.content[p]
	return ok
}

func (idx *Index) hasRepo(p string) bool {
	_, ok := idx.repo[p]
	return ok
}
