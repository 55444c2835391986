package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/berkana/internal/catalog"
	"github.com/starford/berkana/internal/checksum"
)

// Handler holds API route handlers.
type Handler struct {
	cat *catalog.Service
}

// NewHandler creates a new Handler.
func NewHandler(cat *catalog.Service) *Handler {
	return &Handler{cat: cat}
}

// wildcardPath extracts the id after the route prefix.
// Supports encoded slashes from clients (e.g. diary%2Ftoday.md).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Manifest handles GET /api/manifest.
//
//	@Summary		Current manifest, byte-identical to the file on disk
//	@Tags			manifest
//	@Produce		json
//	@Param			If-None-Match	header	string	false	"ETag of a cached copy"
//	@Success		200
//	@Success		304	"Not modified"
//	@Failure		503	{object}	errResponse
//	@Router			/manifest [get]
func (h *Handler) Manifest(w http.ResponseWriter, r *http.Request) {
	snap, err := h.cat.Snapshot()
	if err != nil {
		writeError(w, "manifest", err)
		return
	}
	etag := checksum.ETag(snap.Digest)
	w.Header().Set("ETag", etag)
	if checksum.MatchETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(snap.Manifest)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(snap.Manifest)
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note by id
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id, relative to the content directory"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := wildcardPath(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	note, err := h.cat.Note(r.Context(), id)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// GetFolder handles GET /api/folders and GET /api/folders/*.
//
//	@Summary		Get a folder and its direct children; no id means the content root
//	@Tags			folders
//	@Produce		json
//	@Param			id	path		string	false	"Folder id"
//	@Success		200	{object}	FolderDetail
//	@Failure		404	{object}	errResponse
//	@Router			/folders/{id} [get]
func (h *Handler) GetFolder(w http.ResponseWriter, r *http.Request) {
	folder, err := h.cat.Folder(r.Context(), wildcardPath(r))
	if err != nil {
		writeError(w, "get folder", err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.cat.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Query: q, Results: results})
}

// Resolve handles GET /api/resolve.
//
//	@Summary		Resolve a link target the way the builder does
//	@Tags			resolve
//	@Produce		json
//	@Param			target	query		string	true	"Link target as written in the note"
//	@Param			dir		query		string	false	"Directory of the linking note, relative to the content directory"
//	@Success		200		{object}	ResolveResponse
//	@Failure		400		{object}	errResponse
//	@Router			/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("target is required"))
		return
	}
	dir := r.URL.Query().Get("dir")

	resolved, err := h.cat.Resolve(r.Context(), target, dir)
	if err != nil {
		writeError(w, "resolve", err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{Target: target, Dir: dir, Path: resolved})
}
