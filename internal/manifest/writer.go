package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/starford/berkana/internal/models"
	"github.com/starford/berkana/internal/storage"
)

// Writer persists a build's output.
type Writer struct {
	store        storage.Provider
	manifestPath string
	metadataPath string
}

// NewWriter creates a Writer for the given repository-relative paths.
func NewWriter(store storage.Provider, manifestPath, metadataPath string) *Writer {
	return &Writer{store: store, manifestPath: manifestPath, metadataPath: metadataPath}
}

// RenderKeyPath returns the path of the file next to the metadata that
// records the render key of the last build.
func RenderKeyPath(metadataPath string) string {
	return strings.TrimSuffix(metadataPath, path.Ext(metadataPath)) + ".key"
}

// Commit writes the manifest, the metadata and the render key, each
// atomically and in that order. If the process dies in between, the next
// build sees old fingerprints or an old key against new output and
// re-parses rather than reusing stale nodes. It returns the encoded
// manifest.
func (w *Writer) Commit(tree *models.Tree, meta *models.Metadata, key string) ([]byte, error) {
	manifest, err := Encode(tree)
	if err != nil {
		return nil, fmt.Errorf("manifest: encode tree: %w", err)
	}
	metadata, err := Encode(meta)
	if err != nil {
		return nil, fmt.Errorf("manifest: encode metadata: %w", err)
	}
	if err := w.store.Write(w.manifestPath, manifest); err != nil {
		return nil, fmt.Errorf("manifest: write manifest: %w", err)
	}
	if err := w.store.Write(w.metadataPath, metadata); err != nil {
		return nil, fmt.Errorf("manifest: write metadata: %w", err)
	}
	if err := w.store.Write(RenderKeyPath(w.metadataPath), []byte(key+"\n")); err != nil {
		return nil, fmt.Errorf("manifest: write render key: %w", err)
	}
	return manifest, nil
}

// Encode renders v as 2-space indented JSON without HTML escaping.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
