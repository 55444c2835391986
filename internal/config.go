package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/berkana/internal/catalog"
	"github.com/starford/berkana/internal/manifest"
	"github.com/starford/berkana/internal/parser"
	"github.com/starford/berkana/internal/resolver"
	"github.com/starford/berkana/internal/watch"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
	// LogFormatAuto picks text on a terminal and JSON otherwise.
	LogFormatAuto = "auto"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Site     SiteConfig        `yaml:"site"`
	Markdown MarkdownConfig    `yaml:"markdown"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Watch    WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	if err := c.Markdown.Validate(); err != nil {
		return fmt.Errorf("markdown: %w", err)
	}
	if err := c.SQLite.Validate(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

// ManifestOptions maps the configuration onto the builder options.
func (c *Config) ManifestOptions() manifest.Options {
	return manifest.Options{
		ContentDir:   c.Site.ContentDir,
		ProfileFile:  c.Site.ProfileFile,
		ManifestPath: c.Site.ManifestPath,
		MetadataPath: c.Site.MetadataPath,
		SkipDirs:     c.Site.SkipDirs,
		CoverMarker:  c.Markdown.CoverMarker,
		Parser: parser.Options{
			ShowTitleKey:     c.Markdown.ShowTitleKey,
			ShowTitleDefault: c.Markdown.ShowTitleDefault,
			ExcerptLength:    c.Markdown.ExcerptLength,
			HighlightStyle:   c.Markdown.HighlightStyle,
			HighlightClasses: c.Markdown.HighlightClasses,
		},
	}
}

// CatalogOptions maps the configuration onto the catalog options.
func (c *Config) CatalogOptions() catalog.Options {
	return catalog.Options{
		ContentDir: c.Site.ContentDir,
		SkipDirs:   c.Site.SkipDirs,
	}
}

// WatchOptions maps the configuration onto the watcher options.
func (c *Config) WatchOptions(logger *slog.Logger) watch.Options {
	return watch.Options{
		Root:        c.Site.Root,
		ContentDir:  c.Site.ContentDir,
		ProfileFile: c.Site.ProfileFile,
		Debounce:    c.Watch.Debounce,
		Logger:      logger,
	}
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.Required, validation.In(LogFormatJSON, LogFormatText, LogFormatAuto)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SiteConfig describes the repository layout. Every path but Root is
// relative to Root.
type SiteConfig struct {
	Root         string   `yaml:"root"`
	ContentDir   string   `yaml:"content_dir"`
	ProfileFile  string   `yaml:"profile_file"`
	ManifestPath string   `yaml:"manifest_path"`
	MetadataPath string   `yaml:"metadata_path"`
	SkipDirs     []string `yaml:"skip_dirs"`
}

// Validate validates the site configuration.
func (c *SiteConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.ContentDir, validation.Required, validation.By(relativePath)),
		validation.Field(&c.ProfileFile, validation.Required, validation.By(relativePath)),
		validation.Field(&c.ManifestPath, validation.Required, validation.By(relativePath)),
		validation.Field(&c.MetadataPath, validation.Required, validation.By(relativePath)),
	); err != nil {
		return err
	}
	if path.Clean(c.ManifestPath) == path.Clean(c.MetadataPath) {
		return errors.New("manifest_path and metadata_path must differ")
	}
	if path.Clean(c.ManifestPath) == path.Clean(manifest.RenderKeyPath(c.MetadataPath)) {
		return fmt.Errorf("manifest_path is taken by the render key file %s", manifest.RenderKeyPath(c.MetadataPath))
	}
	return nil
}

// relativePath accepts slash-separated paths that stay inside the root.
func relativePath(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "/") || strings.Contains(s, `\`) {
		return errors.New("must be a relative slash-separated path")
	}
	if c := path.Clean(s); c == ".." || strings.HasPrefix(c, "../") {
		return errors.New("must stay inside the site root")
	}
	return nil
}

// MarkdownConfig controls note parsing.
type MarkdownConfig struct {
	// ShowTitleDefault applies when a note's frontmatter does not set ShowTitleKey.
	ShowTitleDefault bool   `yaml:"show_title_default"`
	ShowTitleKey     string `yaml:"show_title_key"`
	CoverMarker      string `yaml:"cover_marker"`
	ExcerptLength    int    `yaml:"excerpt_length"`
	// HighlightStyle is a chroma style name; empty disables highlighting.
	HighlightStyle   string `yaml:"highlight_style"`
	HighlightClasses bool   `yaml:"highlight_classes"`
}

// Validate validates the markdown configuration.
func (c *MarkdownConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ShowTitleKey, validation.Required),
		validation.Field(&c.CoverMarker, validation.Required),
		validation.Field(&c.ExcerptLength, validation.Required, validation.Min(1)),
	)
}

// SQLiteConfig holds the search index configuration. An empty Path disables
// the index; search then scans the in-memory manifest.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Length(0, 4096)),
	)
}

// Enabled reports whether the search index is configured.
func (c *SQLiteConfig) Enabled() bool {
	return c.Path != ""
}

// WatchConfig holds file watcher configuration.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watcher configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Required, validation.Min(10*time.Millisecond), validation.Max(time.Minute)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatAuto,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Site: SiteConfig{
			Root:         ".",
			ContentDir:   manifest.DefaultContentDir,
			ProfileFile:  manifest.DefaultProfileFile,
			ManifestPath: manifest.DefaultManifestPath,
			MetadataPath: manifest.DefaultMetadataPath,
			SkipDirs:     resolver.DefaultSkipDirs,
		},
		Markdown: MarkdownConfig{
			ShowTitleDefault: true,
			ShowTitleKey:     parser.DefaultShowTitleKey,
			CoverMarker:      manifest.DefaultCoverMarker,
			ExcerptLength:    parser.DefaultExcerptLength,
		},
		SQLite: SQLiteConfig{
			Path: ".search.db",
		},
		Watch: WatchConfig{
			Debounce: watch.DefaultDebounce,
		},
	}
}
