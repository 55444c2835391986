package internal

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestApplicationConfig_LogFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.LogFormat = "xml"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("unknown log format should fail")
	}
	if !strings.HasPrefix(err.Error(), "app:") {
		t.Errorf("error not scoped to section: %v", err)
	}
}

func TestHTTPConfig_Port(t *testing.T) {
	for _, port := range []int{0, 70000} {
		cfg := HTTPConfig{Port: port}
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should fail", port)
		}
	}
	cfg := HTTPConfig{Port: 8080}
	if cfg.Address() != ":8080" {
		t.Errorf("address = %q", cfg.Address())
	}
}

func TestSiteConfig_Paths(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SiteConfig)
		ok     bool
	}{
		{"defaults", func(*SiteConfig) {}, true},
		{"nested content dir", func(c *SiteConfig) { c.ContentDir = "site/content" }, true},
		{"absolute content dir", func(c *SiteConfig) { c.ContentDir = "/srv/content" }, false},
		{"escaping manifest", func(c *SiteConfig) { c.ManifestPath = "../manifest.json" }, false},
		{"backslashes", func(c *SiteConfig) { c.ProfileFile = `docs\profile.md` }, false},
		{"same outputs", func(c *SiteConfig) { c.MetadataPath = "./" + c.ManifestPath }, false},
		{"manifest on render key", func(c *SiteConfig) { c.ManifestPath, c.MetadataPath = "data/out.key", "data/out.json" }, false},
		{"missing root", func(c *SiteConfig) { c.Root = "" }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig().Site
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestMarkdownConfig_ExcerptLength(t *testing.T) {
	cfg := NewDefaultConfig().Markdown
	cfg.ExcerptLength = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero excerpt length should fail")
	}
}

func TestWatchConfig_Debounce(t *testing.T) {
	cfg := WatchConfig{Debounce: time.Millisecond}
	if err := cfg.Validate(); err == nil {
		t.Error("1ms debounce should fail")
	}
	cfg.Debounce = 500 * time.Millisecond
	if err := cfg.Validate(); err != nil {
		t.Errorf("500ms debounce: %v", err)
	}
}

func TestSQLiteConfig_EmptyDisables(t *testing.T) {
	cfg := SQLiteConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Enabled() {
		t.Error("empty path should disable the index")
	}
}

func TestConfig_ManifestOptions(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Site.ContentDir = "notes"
	cfg.Markdown.CoverMarker = "cover"
	cfg.Markdown.ShowTitleDefault = false

	opts := cfg.ManifestOptions()
	if opts.ContentDir != "notes" || opts.CoverMarker != "cover" {
		t.Errorf("opts = %+v", opts)
	}
	if opts.Parser.ShowTitleDefault {
		t.Error("show title default not carried over")
	}
	if cfg.CatalogOptions().ContentDir != "notes" {
		t.Error("catalog content dir not carried over")
	}
	if w := cfg.WatchOptions(nil); w.ContentDir != "notes" || w.Debounce != cfg.Watch.Debounce {
		t.Errorf("watch opts = %+v", w)
	}
}
