package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/backup"
	"github.com/starford/ansuz/internal/pageservice"
	"github.com/starford/ansuz/internal/testutil"
)

func testServer(t *testing.T) (*Server, *pageservice.Service) {
	t.Helper()

	logger := testutil.QuietLogger()
	ws, provider := testutil.TestWorkspace(t)

	mgr := backup.NewManager(provider, ws, logger)
	svc := pageservice.NewService(ws, mgr, nil, nil, logger)
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are invoked
	// directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_pages":
		result, err = srv.listPages(ctx, req)
	case "read_page":
		result, err = srv.readPage(ctx, req)
	case "create_page":
		result, err = srv.createPage(ctx, req)
	case "import_markdown":
		result, err = srv.importMarkdown(ctx, req)
	case "search_pages":
		result, err = srv.searchPages(ctx, req)
	case "create_backup":
		result, err = srv.createBackup(ctx, req)
	case "get_outline_contract":
		result, err = srv.getOutlineContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreatePageTool(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "create_page", map[string]interface{}{"title": "From MCP"})
	text := resultText(r)
	if !strings.HasPrefix(text, "created: From MCP") {
		t.Errorf("create result = %q", text)
	}

	ws, err := svc.Workspace(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, p := range ws.Pages {
		if p.Title == "From MCP" {
			found = true
		}
	}
	if !found {
		t.Error("created page not in workspace")
	}
}

func TestImportAndReadPage(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "import_markdown", map[string]interface{}{
		"markdown": "# Imported\n\nBody paragraph.\n",
	})
	text := resultText(r)
	if !strings.Contains(text, "imported: Imported") {
		t.Fatalf("import result = %q", text)
	}
	if !strings.Contains(text, "2 blocks") {
		t.Errorf("import result = %q, want 2 blocks", text)
	}

	// Extract the page id from "imported: Imported (<id>), 2 blocks".
	start := strings.Index(text, "(")
	end := strings.Index(text, ")")
	if start < 0 || end < start {
		t.Fatalf("cannot parse id from %q", text)
	}
	pageID := text[start+1 : end]

	r = callTool(t, srv, "read_page", map[string]interface{}{"page_id": pageID})
	md := resultText(r)
	if !strings.Contains(md, "# Imported") || !strings.Contains(md, "Body paragraph.") {
		t.Errorf("read_page = %q", md)
	}
}

func TestImportReportsWarnings(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "import_markdown", map[string]interface{}{
		"markdown": "#### Too deep\n",
	})
	text := resultText(r)
	if !strings.Contains(text, "warnings:") {
		t.Errorf("expected degradation warning in %q", text)
	}
}

func TestListPagesTool(t *testing.T) {
	srv, _ := testServer(t)
	callTool(t, srv, "create_page", map[string]interface{}{"title": "Alpha"})
	callTool(t, srv, "create_page", map[string]interface{}{"title": "Beta"})

	r := callTool(t, srv, "list_pages", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "Alpha") || !strings.Contains(text, "Beta") {
		t.Errorf("list_pages = %q", text)
	}
}

func TestReadPageMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_page", map[string]interface{}{"page_id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing page")
	}
}

func TestCreateBackupTool(t *testing.T) {
	srv, svc := testServer(t)

	r := callTool(t, srv, "create_backup", map[string]interface{}{})
	text := resultText(r)
	if !strings.HasPrefix(text, "backup created: backups/") {
		t.Errorf("create_backup = %q", text)
	}

	records, err := svc.Backups(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("backups = %d, want 1", len(records))
	}
}

func TestOutlineContractTool(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_outline_contract", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "Outline Format Contract") {
		t.Errorf("contract missing header: %q", text)
	}
}
