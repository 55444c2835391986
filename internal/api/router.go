package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/berkana/internal/catalog"
)

// NewRouter creates a chi router with all API routes mounted.
// events, if non-nil, is mounted at GET /events.
func NewRouter(cat *catalog.Service, events http.Handler) chi.Router {
	h := NewHandler(cat)

	r := chi.NewRouter()
	r.Use(NoCache)

	r.Get("/manifest", h.Manifest)

	r.Get("/notes/*", h.GetNote)

	r.Get("/folders", h.GetFolder)
	r.Get("/folders/*", h.GetFolder)

	r.Get("/search", h.Search)
	r.Get("/resolve", h.Resolve)

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
