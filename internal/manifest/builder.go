// Package manifest builds the content manifest: it walks the content
// directory, parses notes, aggregates folders and writes the result
// together with the metadata used by the next incremental build.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/starford/berkana/internal/checksum"
	"github.com/starford/berkana/internal/models"
	"github.com/starford/berkana/internal/parser"
	"github.com/starford/berkana/internal/resolver"
	"github.com/starford/berkana/internal/storage"
)

// Tree and profile defaults.
const (
	RootID              = "root"
	DefaultContentDir   = "content"
	DefaultProfileFile  = "profile.md"
	DefaultManifestPath = "assets/data/manifest.json"
	DefaultMetadataPath = "assets/data/manifest.meta.json"

	DefaultProfileTitle = "个人简介"
	MissingProfileHTML  = "<p>请在仓库根目录创建 profile.md。</p>"
)

// Options configures a Builder. Paths are relative to the repository root.
type Options struct {
	ContentDir   string
	ProfileFile  string
	ManifestPath string
	MetadataPath string
	// SkipDirs are pruned from the repository walk used for link resolution.
	SkipDirs    []string
	CoverMarker string
	Parser      parser.Options
}

// DefaultOptions returns the options of a stock site layout.
func DefaultOptions() Options {
	opts := Options{
		Parser: parser.Options{ShowTitleDefault: true},
	}
	opts.setDefaults()
	return opts
}

func (o *Options) setDefaults() {
	if o.ContentDir == "" {
		o.ContentDir = DefaultContentDir
	}
	o.ContentDir = strings.Trim(path.Clean(o.ContentDir), "/")
	if o.ProfileFile == "" {
		o.ProfileFile = DefaultProfileFile
	}
	if o.ManifestPath == "" {
		o.ManifestPath = DefaultManifestPath
	}
	if o.MetadataPath == "" {
		o.MetadataPath = DefaultMetadataPath
	}
	if o.CoverMarker == "" {
		o.CoverMarker = DefaultCoverMarker
	}
}

// Stats summarises one build.
type Stats struct {
	Notes   int
	Folders int
	Reused  int
	Parsed  int
}

// Result is the outcome of a build.
type Result struct {
	Tree     *models.Tree
	Metadata *models.Metadata
	// Manifest holds the bytes written to the manifest file.
	Manifest []byte
	// Digest is the SHA-256 of Manifest.
	Digest   string
	Stats    Stats
	Duration time.Duration
}

// Builder runs manifest builds against one repository. Builds must not run
// concurrently on the same output paths; callers serialise them.
type Builder struct {
	store  storage.Provider
	opts   Options
	parser *parser.Parser
	writer *Writer
	key    string
	logger *slog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(store storage.Provider, opts Options, logger *slog.Logger) *Builder {
	opts.setDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	p := parser.New(opts.Parser)
	return &Builder{
		store:  store,
		opts:   opts,
		parser: p,
		writer: NewWriter(store, opts.ManifestPath, opts.MetadataPath),
		key:    renderKey(opts, p.Options()),
		logger: logger,
	}
}

// renderKey digests the options that shape a note node. Notes from a build
// made under another key are never reused.
func renderKey(opts Options, parserOpts parser.Options) string {
	data, _ := json.Marshal(struct {
		ContentDir string
		SkipDirs   []string
		Parser     parser.Options
	}{opts.ContentDir, opts.SkipDirs, parserOpts})
	return checksum.Sum(data)
}

// Options returns the effective options, defaults applied.
func (b *Builder) Options() Options {
	return b.opts
}

// Build computes the tree, reusing unchanged notes from the previous
// manifest, and commits it.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()

	res, err := b.Compute(ctx)
	if err != nil {
		return nil, err
	}

	manifest, err := b.writer.Commit(res.Tree, res.Metadata, b.key)
	if err != nil {
		return nil, err
	}
	res.Manifest = manifest
	res.Digest = checksum.Sum(manifest)
	res.Duration = time.Since(start)

	b.logger.Info("manifest updated",
		slog.String("path", b.opts.ManifestPath),
		slog.Int("notes", res.Stats.Notes),
		slog.Int("folders", res.Stats.Folders),
		slog.Int("reused", res.Stats.Reused),
		slog.Int("parsed", res.Stats.Parsed),
		slog.String("digest", res.Digest),
		slog.Duration("took", res.Duration))
	return res, nil
}

// Compute builds the tree and metadata without writing anything.
func (b *Builder) Compute(ctx context.Context) (*Result, error) {
	prev, prevMeta := LoadPrevious(b.store, b.opts.ManifestPath, b.opts.MetadataPath, b.key)
	if prev == nil {
		b.logger.Debug("manifest: no previous state, parsing everything")
	}

	index := sync.OnceValues(func() (*resolver.Index, error) {
		idx, err := resolver.BuildIndex(b.store, resolver.IndexOptions{
			ContentDir: b.opts.ContentDir,
			SkipDirs:   b.opts.SkipDirs,
		})
		if err != nil {
			return nil, fmt.Errorf("manifest: %w", err)
		}
		return idx, nil
	})
	tracker := NewTracker(prev, prevMeta, index)

	profile, err := b.profile(tracker)
	if err != nil {
		return nil, err
	}

	w := &walker{
		store:      b.store,
		contentDir: b.opts.ContentDir,
		marker:     b.opts.CoverMarker,
		parser:     b.parser,
		tracker:    tracker,
		sorter:     newSorter(),
	}
	children, err := w.walk(ctx)
	if err != nil {
		return nil, err
	}

	return &Result{
		Tree: &models.Tree{
			ID:       RootID,
			Title:    path.Base(b.opts.ContentDir),
			Profile:  profile,
			Children: children,
		},
		Metadata: tracker.Metadata(),
		Stats: Stats{
			Notes:   w.notes,
			Folders: w.folders,
			Reused:  tracker.Reused(),
			Parsed:  tracker.Parsed(),
		},
	}, nil
}

func (b *Builder) profile(tracker *Tracker) (models.Profile, error) {
	file := b.opts.ProfileFile
	fp, err := b.store.Stat(file)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Profile{Title: DefaultProfileTitle, HTML: MissingProfileHTML}, nil
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("manifest: stat profile: %w", err)
	}

	p, reused, err := tracker.Profile(fp, func(res parser.Resolver) (models.Profile, error) {
		raw, err := b.store.Read(file)
		if err != nil {
			return models.Profile{}, fmt.Errorf("manifest: read profile: %w", err)
		}
		parsed, err := b.parser.Parse(raw, "", res)
		if err != nil {
			return models.Profile{}, fmt.Errorf("manifest: parse profile: %w", err)
		}
		title := parsed.Title
		if title == "" {
			title = DefaultProfileTitle
		}
		return models.Profile{Title: title, HTML: parsed.HTML}, nil
	})
	if err != nil {
		return models.Profile{}, err
	}
	b.logger.Debug("manifest: profile", slog.Bool("reused", reused))
	return p, nil
}
