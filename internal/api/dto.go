package api

import (
	"github.com/starford/berkana/internal/catalog"
	"github.com/starford/berkana/internal/index"
)

// NoteDetail is the note response type (aliased from the domain layer).
type NoteDetail = catalog.NoteDetail

// FolderDetail is the folder response type (aliased from the domain layer).
type FolderDetail = catalog.FolderDetail

// SearchResult is a single search hit in the API response.
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Query   string         `json:"query" example:"hiking" validate:"required"`
	Results []SearchResult `json:"results" validate:"required"`
}

// ResolveResponse is the answer of the link resolver probe.
type ResolveResponse struct {
	Target string `json:"target" example:"封面" validate:"required"`
	Dir    string `json:"dir" example:"trip"`
	Path   string `json:"path" example:"content/trip/封面.md" validate:"required"`
}
