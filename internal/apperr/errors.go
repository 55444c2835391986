// Package apperr holds the sentinel errors shared by the catalog, the HTTP
// API and the MCP server.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid argument")
	// ErrNotReady is returned before the first manifest has been loaded.
	ErrNotReady = errors.New("manifest not ready")
)
