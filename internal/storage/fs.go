package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/starford/berkana/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the repository directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute repository directory.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a relative path against the root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" || rel == "." {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return abs, nil
}

// ReadDir returns the entries of dir sorted by file name.
func (f *FS) ReadDir(dir string) ([]fs.DirEntry, error) {
	abs, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read dir %s: %w", dir, err)
	}
	return entries, nil
}

// Read returns the raw bytes of a file.
func (f *FS) Read(p string) ([]byte, error) {
	abs, err := f.safePath(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", p, err)
	}
	return data, nil
}

// Stat returns the fingerprint of a file. The modification time is
// truncated to whole milliseconds.
func (f *FS) Stat(p string) (models.Fingerprint, error) {
	abs, err := f.safePath(p)
	if err != nil {
		return models.Fingerprint{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.Fingerprint{}, fmt.Errorf("storage: stat %s: %w", p, err)
	}
	return models.Fingerprint{
		Size:    info.Size(),
		MtimeMs: info.ModTime().UnixMilli(),
	}, nil
}

// Files walks dir and returns every regular file below it, relative to dir.
// A missing dir yields an empty list.
func (f *FS) Files(dir string, skip SkipFunc) ([]string, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == base && errors.Is(walkErr, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return walkErr
		}
		if p == base {
			return nil
		}
		if skip != nil && skip(d.Name(), d.IsDir()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}
	return out, nil
}

// Write atomically replaces a file: temp file in the same directory, then rename.
func (f *FS) Write(p string, content []byte) error {
	abs, err := f.safePath(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	_, statErr := os.Stat(abs)
	created := errors.Is(statErr, fs.ErrNotExist)
	if err := atomic.WriteFile(abs, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("storage: write %s: %w", p, err)
	}
	// atomic.WriteFile keeps the mode of a replaced file but leaves new
	// files at the temp file's 0600.
	if created {
		if err := os.Chmod(abs, 0o644); err != nil {
			return fmt.Errorf("storage: chmod %s: %w", p, err)
		}
	}
	return nil
}

