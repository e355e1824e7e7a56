package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/pageservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *pageservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Workspace.
	r.Get("/workspace", h.GetWorkspace)
	r.Get("/metadata", h.GetMetadata)

	// Pages CRUD.
	r.Get("/pages", h.ListPages)
	r.Post("/pages", h.CreatePage)
	r.Get("/pages/{pageID}", h.GetPage)
	r.Put("/pages/{pageID}", h.UpdatePage)
	r.Delete("/pages/{pageID}", h.DeletePage)

	// Structural block operations.
	r.Post("/pages/{pageID}/blocks", h.InsertBlock)
	r.Post("/pages/{pageID}/blocks/{blockID}/indent", h.IndentBlock())
	r.Post("/pages/{pageID}/blocks/{blockID}/outdent", h.OutdentBlock())
	r.Post("/pages/{pageID}/blocks/{blockID}/collapse", h.CollapseBlock())
	r.Post("/pages/{pageID}/blocks/{blockID}/expand", h.ExpandBlock())
	r.Post("/pages/{pageID}/blocks/{blockID}/move-up", h.MoveBlockUp())
	r.Post("/pages/{pageID}/blocks/{blockID}/move-down", h.MoveBlockDown())
	r.Post("/pages/{pageID}/blocks/{blockID}/duplicate", h.DuplicateBlock())
	r.Post("/pages/{pageID}/blocks/{blockID}/delete-or-merge", h.DeleteOrMergeBlock)
	r.Post("/pages/{pageID}/blocks/{blockID}/retype", h.RetypeBlock)
	r.Post("/pages/{pageID}/blocks/{blockID}/reorder", h.ReorderBlock)

	// Backups.
	r.Get("/backups", h.ListBackups)
	r.Post("/backups", h.CreateBackup)
	r.Post("/backups/restore", h.RestoreBackup)

	// Markdown export/import.
	r.Get("/export", h.ExportWorkspace)
	r.Get("/pages/{pageID}/export", h.ExportPage)
	r.Post("/import", h.ImportMarkdown)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
