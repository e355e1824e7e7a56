// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/pageservice"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp *server.MCPServer
	svc *pageservice.Service
}

// New creates a new MCP server with all Ansuz tools registered.
func New(svc *pageservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List all pages with their ids, titles, and block counts."),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read one page rendered as markdown in the Ansuz outline format."),
		mcp.WithString("page_id", mcp.Required(), mcp.Description("Id of the page to read")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Create a new empty page with the given title."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title for the new page")),
	), s.createPage)

	s.mcp.AddTool(mcp.NewTool("import_markdown",
		mcp.WithDescription("Import a markdown document as a new page. "+
			"The document MUST follow the Ansuz outline format (blank-line separated "+
			"blocks, two-space indentation per level). Read the contract first via the "+
			"get_outline_contract tool or the ansuz://outline-format resource."),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Markdown document to import")),
		mcp.WithString("title", mcp.Description("Optional page title; defaults to the first heading")),
	), s.importMarkdown)

	s.mcp.AddTool(mcp.NewTool("search_pages",
		mcp.WithDescription("Full-text search through block content and page titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPages)

	s.mcp.AddTool(mcp.NewTool("create_backup",
		mcp.WithDescription("Snapshot the workspace to a new backup artifact."),
	), s.createBackup)

	s.mcp.AddTool(mcp.NewTool("get_outline_contract",
		mcp.WithDescription("Returns the canonical Ansuz outline format contract. "+
			"Call this before importing markdown to ensure correct structure."),
	), s.getOutlineContract)

	// Resource: outline format contract.
	s.mcp.AddResource(
		mcp.NewResource("ansuz://outline-format", "Outline Format Contract",
			mcp.WithResourceDescription("Canonical markdown dialect for imported documents."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readOutlineFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ws, err := s.svc.Workspace(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	type row struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Blocks int    `json:"blocks"`
	}
	rows := make([]row, 0, len(ws.Pages))
	for _, p := range ws.Pages {
		rows = append(rows, row{ID: p.ID, Title: p.Title, Blocks: len(p.Blocks)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Title < rows[j].Title })

	out, _ := json.MarshalIndent(rows, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := req.RequireString("page_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.ExportPage(ctx, pageID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", pageID)), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) createPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.svc.CreatePage(ctx, title)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", page.Title, page.ID)), nil
}

func (s *Server) importMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markup, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title := ""
	if t, err := req.RequireString("title"); err == nil {
		title = t
	}

	rep, err := s.svc.ImportMarkdown(ctx, markup, title)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	msg := fmt.Sprintf("imported: %s (%s), %d blocks", rep.Page.Title, rep.Page.ID, len(rep.Page.Blocks))
	if len(rep.Warnings) > 0 {
		msg += "\nwarnings:\n" + strings.Join(rep.Warnings, "\n")
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) searchPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createBackup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec, err := s.svc.CreateBackup(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("backup created: %s (%d bytes)", rec.Path, rec.SizeBytes)), nil
}

func (s *Server) getOutlineContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(OutlineFormatContract), nil
}

func (s *Server) readOutlineFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "ansuz://outline-format",
			MIMEType: "text/markdown",
			Text:     OutlineFormatContract,
		},
	}, nil
}
