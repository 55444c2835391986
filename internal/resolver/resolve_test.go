package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/berkana/internal/storage"
)

func testIndex(contentFiles, repoOnly []string) *Index {
	repo := make([]string, 0, len(contentFiles)+len(repoOnly))
	for _, f := range contentFiles {
		repo = append(repo, "content/"+f)
	}
	repo = append(repo, repoOnly...)
	return NewIndex("content", contentFiles, repo)
}

func TestClean(t *testing.T) {
	cases := map[string]string{
		"  note  ":        "note",
		`a\b\c.png`:       "a/b/c.png",
		"./x.md":          "x.md",
		".//x.md":         "x.md",
		"../media/v.mp4":  "../media/v.mp4",
		"/abs/path.png":   "/abs/path.png",
		"././nested/a.md": "./nested/a.md",
	}
	for in, want := range cases {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolve_RelativeMarkdownBeatsRepoImage(t *testing.T) {
	idx := testIndex([]string{"notes/name.md"}, []string{"name.png"})
	got := idx.Resolve("name", "notes")
	if got != "content/notes/name.md" {
		t.Errorf("got %q, want content/notes/name.md", got)
	}
}

func TestResolve_ExtensionGuessOrder(t *testing.T) {
	idx := testIndex([]string{"a/pic.jpg", "a/pic.webp"}, nil)
	if got := idx.Resolve("pic", "a"); got != "content/a/pic.jpg" {
		t.Errorf("got %q, want content/a/pic.jpg", got)
	}
}

func TestResolve_ContentRootAbsolute(t *testing.T) {
	idx := testIndex([]string{"gallery/cat.png", "diary/today.md"}, nil)
	if got := idx.Resolve("/gallery/cat.png", "diary"); got != "content/gallery/cat.png" {
		t.Errorf("got %q", got)
	}
	if got := idx.Resolve("gallery/cat", "diary"); got != "content/gallery/cat.png" {
		t.Errorf("got %q", got)
	}
}

func TestResolve_MediaInsideContent(t *testing.T) {
	idx := testIndex([]string{"media/clip.mp4"}, nil)
	if got := idx.Resolve("media/clip.mp4", ""); got != "media/clip.mp4" {
		t.Errorf("got %q, want media/clip.mp4", got)
	}
}

func TestResolve_RepositoryCandidates(t *testing.T) {
	// The content set is stale (e.g. built before a file was added) but
	// the repository index knows about the file.
	idx := NewIndex("content", nil, []string{"content/late.md", "docs/guide.md"})
	if got := idx.Resolve("late", ""); got != "content/late.md" {
		t.Errorf("got %q, want content/late.md", got)
	}
	if got := idx.Resolve("docs/guide.md", "x"); got != "docs/guide.md" {
		t.Errorf("got %q, want docs/guide.md", got)
	}
}

func TestResolve_RepositoryExtensionGuess(t *testing.T) {
	idx := testIndex(nil, []string{"media/trailer.mp4"})
	if got := idx.Resolve("media/trailer", "a"); got != "media/trailer.mp4" {
		t.Errorf("got %q, want media/trailer.mp4", got)
	}
}

func TestResolve_BasenamePreference(t *testing.T) {
	idx := NewIndex("content",
		[]string{"a/deep/photo.png", "b/photo.png"},
		[]string{"assets/photo.png", "content/a/deep/photo.png", "content/b/photo.png"},
	)
	if got := idx.Resolve("photo.png", "b"); got != "content/b/photo.png" {
		t.Errorf("same dir: got %q", got)
	}
	if got := idx.Resolve("elsewhere/photo.png", "b"); got != "content/b/photo.png" {
		t.Errorf("same dir via basename: got %q", got)
	}
	if got := idx.Resolve("elsewhere/photo.png", "c"); got != "content/a/deep/photo.png" {
		t.Errorf("content fallback: got %q", got)
	}

	onlyRepo := NewIndex("content", nil, []string{"assets/logo.svg"})
	if got := onlyRepo.Resolve("img/logo.svg", "c"); got != "assets/logo.svg" {
		t.Errorf("any match: got %q", got)
	}
}

func TestResolve_Fallbacks(t *testing.T) {
	idx := testIndex(nil, nil)
	cases := []struct {
		raw, want string
	}{
		{"media/x.png", "media/x.png"},
		{"../media/x.png", "media/x.png"},
		{"/somewhere/x.png", "somewhere/x.png"},
		{"missing-note", "missing-note"},
		{`.\dir\file.txt`, "dir/file.txt"},
	}
	for _, c := range cases {
		if got := idx.Resolve(c.raw, "a"); got != c.want {
			t.Errorf("Resolve(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestResolve_Deterministic(t *testing.T) {
	idx := testIndex([]string{"x/a.md", "y/a.md"}, []string{"a.md"})
	first := idx.Resolve("zzz/a.md", "q")
	for i := 0; i < 20; i++ {
		if got := idx.Resolve("zzz/a.md", "q"); got != first {
			t.Fatalf("non-deterministic: %q vs %q", got, first)
		}
	}
}

func TestBuildIndex(t *testing.T) {
	root := t.TempDir()
	files := []string{
		"content/a/note.md",
		"content/a/.hidden.md",
		"content/pic.png",
		"media/clip.mp4",
		".git/config",
		".github/banner.png",
		"node_modules/pkg/readme.md",
		"profile.md",
	}
	for _, f := range files {
		full := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}

	idx, err := BuildIndex(store, IndexOptions{ContentDir: "content"})
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if !idx.hasContent("a/note.md") || !idx.hasContent("pic.png") {
		t.Error("content files missing from index")
	}
	if idx.hasContent("a/.hidden.md") {
		t.Error("hidden content file indexed")
	}
	if !idx.hasRepo(".github/banner.png") || !idx.hasRepo("media/clip.mp4") {
		t.Error("repository files missing from index")
	}
	if idx.hasRepo(".git/config") || idx.hasRepo("node_modules/pkg/readme.md") {
		t.Error("skipped directories indexed")
	}
	if got := idx.Resolve("clip.mp4", ""); got != "media/clip.mp4" {
		t.Errorf("Resolve(clip.mp4) = %q", got)
	}
}
