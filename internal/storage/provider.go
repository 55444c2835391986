// Package storage defines the repository file-system abstraction used by the builder.
package storage

import (
	"io/fs"

	"github.com/starford/berkana/internal/models"
)

// SkipFunc reports whether an entry met during Files should be left out.
// Returning true for a directory prunes its whole subtree.
type SkipFunc func(name string, isDir bool) bool

// Provider is the interface for repository file operations. All paths are
// slash-separated and relative to the repository root.
type Provider interface {
	// ReadDir returns the entries of dir sorted by name.
	ReadDir(dir string) ([]fs.DirEntry, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Stat returns the size/mtime fingerprint of the file at path.
	Stat(path string) (models.Fingerprint, error)
	// Files lists every regular file under dir, in lexical walk order,
	// as paths relative to dir.
	Files(dir string, skip SkipFunc) ([]string, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
}
