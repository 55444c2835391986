package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/berkana/internal/catalog"
	"github.com/starford/berkana/internal/manifest"
	"github.com/starford/berkana/internal/testutil"
)

// testEnv sets up a temp repository, builds it once and returns the router
// together with the repository root.
func testEnv(t *testing.T) (http.Handler, *catalog.Service, string) {
	t.Helper()
	root, store := testutil.TestRepo(t, map[string]string{
		"content/diary/today.md":     "---\ntitle: Today\nsummary: a hiking day\n---\nUp the hill. [[trips/alps walk]]\n",
		"content/trips/alps walk.md": "Snow everywhere\n",
		"index.html":                 "<html></html>",
		".secret":                    "token",
	})

	cat := catalog.New(store, testutil.TestDB(t), catalog.Options{}, testutil.Logger())
	res, err := manifest.NewBuilder(store, manifest.DefaultOptions(), testutil.Logger()).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := cat.Apply(context.Background(), res); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return NewRouter(cat, nil), cat, root
}

func get(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestManifest(t *testing.T) {
	router, cat, _ := testEnv(t)
	snap, _ := cat.Snapshot()

	w := get(t, router, "/manifest")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != string(snap.Manifest) {
		t.Error("body differs from the committed manifest")
	}
	etag := w.Header().Get("ETag")
	if etag != `"`+snap.Digest+`"` {
		t.Errorf("ETag = %q", etag)
	}

	w = get(t, router, "/manifest", "If-None-Match", etag)
	if w.Code != http.StatusNotModified {
		t.Errorf("conditional status = %d, want 304", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("304 carried a body: %q", w.Body.String())
	}
}

func TestManifest_NotReady(t *testing.T) {
	_, store := testutil.TestRepo(t, nil)
	router := NewRouter(catalog.New(store, nil, catalog.Options{}, testutil.Logger()), nil)

	w := get(t, router, "/manifest")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestGetNote(t *testing.T) {
	router, _, _ := testEnv(t)

	for _, target := range []string{"/notes/trips/alps%20walk.md", "/notes/trips%2Falps%20walk.md"} {
		w := get(t, router, target)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, body = %s", target, w.Code, w.Body.String())
		}
		var note NoteDetail
		if err := json.Unmarshal(w.Body.Bytes(), &note); err != nil {
			t.Fatal(err)
		}
		if note.ID != "trips/alps walk.md" || note.Title != "alps walk" {
			t.Errorf("%s: note = %+v", target, note)
		}
		if strings.Join(note.Backlinks, ",") != "diary/today.md" {
			t.Errorf("%s: backlinks = %v", target, note.Backlinks)
		}
	}
}

func TestGetNote_NotFound(t *testing.T) {
	router, _, _ := testEnv(t)
	w := get(t, router, "/notes/nope.md")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetFolder(t *testing.T) {
	router, _, _ := testEnv(t)

	w := get(t, router, "/folders")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var root FolderDetail
	_ = json.Unmarshal(w.Body.Bytes(), &root)
	if root.ID != manifest.RootID || len(root.Children) != 2 {
		t.Errorf("root = %+v", root)
	}

	w = get(t, router, "/folders/trips")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var trips FolderDetail
	_ = json.Unmarshal(w.Body.Bytes(), &trips)
	if len(trips.Children) != 1 || trips.Children[0].ID != "trips/alps walk.md" {
		t.Errorf("trips = %+v", trips)
	}

	if w := get(t, router, "/folders/missing"); w.Code != http.StatusNotFound {
		t.Errorf("missing folder status = %d", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router, _, _ := testEnv(t)

	w := get(t, router, "/search?q=hiking&limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].ID != "diary/today.md" {
		t.Errorf("results = %+v", resp.Results)
	}

	if w := get(t, router, "/search"); w.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", w.Code)
	}
	if w := get(t, router, "/search?q=%20%20"); w.Code != http.StatusBadRequest {
		t.Errorf("blank q status = %d, want 400", w.Code)
	}
}

func TestResolveEndpoint(t *testing.T) {
	router, _, _ := testEnv(t)

	w := get(t, router, "/resolve?target=trips%2Falps%20walk&dir=diary")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ResolveResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Path != "content/trips/alps walk.md" {
		t.Errorf("path = %q", resp.Path)
	}

	if w := get(t, router, "/resolve"); w.Code != http.StatusBadRequest {
		t.Errorf("missing target status = %d, want 400", w.Code)
	}
}

func TestStaticHandler(t *testing.T) {
	_, _, root := testEnv(t)
	h := StaticHandler(root)

	w := get(t, h, "/index.html")
	if w.Code != http.StatusMovedPermanently && w.Code != http.StatusOK {
		t.Errorf("index status = %d", w.Code)
	}
	w = get(t, h, "/content/trips/alps%20walk.md")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Snow") {
		t.Errorf("note file status = %d", w.Code)
	}
	if w.Header().Get("Cache-Control") != "no-cache" {
		t.Errorf("Cache-Control = %q", w.Header().Get("Cache-Control"))
	}

	for _, p := range []string{"/.secret", "/assets/.cache/x", "/content/../.secret"} {
		if w := get(t, h, p); w.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", p, w.Code)
		}
	}
}
