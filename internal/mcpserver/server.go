// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the built site to LLM tooling via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/berkana/internal/apperr"
	"github.com/starford/berkana/internal/catalog"
)

// ManifestURI is the resource holding the current manifest.
const ManifestURI = "berkana://manifest"

// Server wraps the MCP server with read-only catalog tools.
type Server struct {
	mcp    *server.MCPServer
	cat    *catalog.Service
	logger *slog.Logger
}

// New creates a new MCP server with all tools registered.
func New(cat *catalog.Service, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cat: cat, logger: logger}

	s.mcp = server.NewMCPServer(
		"Berkana",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles, summaries and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Maximum number of results (default %d)", catalog.DefaultSearchLimit))),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the Markdown source of a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id, relative to the content directory (e.g. diary/today.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_folder",
		mcp.WithDescription("List the direct children of a folder, with its images and cover."),
		mcp.WithString("id", mcp.Description("Folder id (empty for the content root)")),
	), s.listFolder)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Id of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("resolve_link",
		mcp.WithDescription("Resolve a [[link]] or ![[embed]] target to the path the site serves."),
		mcp.WithString("target", mcp.Required(), mcp.Description("Link target as written inside the brackets")),
		mcp.WithString("dir", mcp.Description("Folder of the linking note, relative to the content directory")),
	), s.resolveLink)

	s.mcp.AddResource(
		mcp.NewResource(ManifestURI, "Manifest",
			mcp.WithResourceDescription("The manifest consumed by the viewer: folder tree, notes and rendered HTML."),
			mcp.WithMIMEType("application/json"),
		),
		s.readManifestResource,
	)

	s.mcp.AddResource(
		mcp.NewResource(LinkSyntaxURI, "Note Format",
			mcp.WithResourceDescription("Frontmatter fields and the link and embed syntax of notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLinkSyntaxResource,
	)

	return s
}

// Serve runs the server on in/out until ctx is cancelled or in is closed.
// Transport errors are logged through the server's logger.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.cat.Search(ctx, query, req.GetInt("limit", catalog.DefaultSearchLimit))
	if err != nil {
		return toolError(err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	return jsonResult(results), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.cat.Source(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder, err := s.cat.Folder(ctx, req.GetString("id", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(folder), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.cat.Note(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	if len(note.Backlinks) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(note.Backlinks, "\n")), nil
}

func (s *Server) resolveLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resolved, err := s.cat.Resolve(ctx, target, req.GetString("dir", ""))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(resolved), nil
}

func (s *Server) readManifestResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	snap, err := s.cat.Snapshot()
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ManifestURI,
			MIMEType: "application/json",
			Text:     string(snap.Manifest),
		},
	}, nil
}

func (s *Server) readLinkSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      LinkSyntaxURI,
			MIMEType: "text/markdown",
			Text:     LinkSyntax,
		},
	}, nil
}

// toolError turns catalog errors into tool results; the client sees them,
// the protocol does not fail.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrNotReady):
		return mcp.NewToolResultError("the manifest has not been built yet")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}
