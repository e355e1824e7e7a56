package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/outline"
	"github.com/starford/ansuz/internal/pageservice"
	"github.com/starford/ansuz/internal/workspace"
)

// maxBodySize caps request bodies; markdown imports are the largest payloads.
const maxBodySize = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *pageservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *pageservice.Service) *Handler {
	return &Handler{svc: svc}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// GetWorkspace handles GET /api/workspace.
//
//	@Summary		Get the full workspace
//	@Tags			workspace
//	@Produce		json
//	@Success		200	{object}	models.Workspace
//	@Security		BearerAuth
//	@Router			/workspace [get]
func (h *Handler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := h.svc.Workspace(r.Context())
	if err != nil {
		writeError(w, err, "get workspace")
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// GetMetadata handles GET /api/metadata.
//
//	@Summary		Get workspace summary counters
//	@Tags			workspace
//	@Produce		json
//	@Success		200	{object}	models.Metadata
//	@Security		BearerAuth
//	@Router			/metadata [get]
func (h *Handler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := h.svc.Metadata(r.Context())
	if err != nil {
		writeError(w, err, "get metadata")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// ListPages handles GET /api/pages.
//
//	@Summary		List pages with block counts
//	@Tags			pages
//	@Produce		json
//	@Success		200	{object}	PageListResponse
//	@Security		BearerAuth
//	@Router			/pages [get]
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	ws, err := h.svc.Workspace(r.Context())
	if err != nil {
		writeError(w, err, "list pages")
		return
	}
	pages := make([]PageSummary, 0, len(ws.Pages))
	for _, p := range ws.Pages {
		pages = append(pages, PageSummary{
			ID:         p.ID,
			Title:      p.Title,
			BlockCount: len(p.Blocks),
			CreatedAt:  p.CreatedAt,
			UpdatedAt:  p.UpdatedAt,
		})
	}
	sort.Slice(pages, func(i, j int) bool {
		if !pages[i].CreatedAt.Equal(pages[j].CreatedAt) {
			return pages[i].CreatedAt.Before(pages[j].CreatedAt)
		}
		return pages[i].ID < pages[j].ID
	})
	writeJSON(w, http.StatusOK, PageListResponse{Pages: pages, Total: len(pages)})
}

// GetPage handles GET /api/pages/{pageID}.
//
//	@Summary		Get a single page with its block sequence
//	@Tags			pages
//	@Produce		json
//	@Param			pageID	path		string	true	"Page id"
//	@Success		200		{object}	models.Page
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{pageID} [get]
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Page(r.Context(), chi.URLParam(r, "pageID"))
	if err != nil {
		writeError(w, err, "get page")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// CreatePage handles POST /api/pages.
//
//	@Summary		Create a page seeded with one empty paragraph block
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreatePageRequest	true	"Page to create"
//	@Success		201		{object}	models.Page
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages [post]
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	var req CreatePageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	page, err := h.svc.CreatePage(r.Context(), req.Title)
	if err != nil {
		writeError(w, err, "create page")
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

// UpdatePage handles PUT /api/pages/{pageID}.
//
//	@Summary		Update a page's title and/or block sequence
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			pageID	path		string				true	"Page id"
//	@Param			body	body		UpdatePageRequest	true	"Fields to update"
//	@Success		200		{object}	models.Page
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{pageID} [put]
func (h *Handler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	var req UpdatePageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	page, err := h.svc.UpdatePage(r.Context(), chi.URLParam(r, "pageID"), workspace.PageUpdate{
		Title:  req.Title,
		Blocks: req.Blocks,
	})
	if err != nil {
		writeError(w, err, "update page")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// DeletePage handles DELETE /api/pages/{pageID}.
//
//	@Summary		Delete a page
//	@Tags			pages
//	@Param			pageID	path	string	true	"Page id"
//	@Success		204		"Page deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{pageID} [delete]
func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeletePage(r.Context(), chi.URLParam(r, "pageID")); err != nil {
		writeError(w, err, "delete page")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// blockOp is the shared shape of the simple structural operations that take
// only a page id and a block id.
func (h *Handler) blockOp(op string, fn func(r *http.Request, pageID, blockID string) (OpResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := fn(r, chi.URLParam(r, "pageID"), chi.URLParam(r, "blockID"))
		if err != nil {
			writeError(w, err, op)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// IndentBlock handles POST /api/pages/{pageID}/blocks/{blockID}/indent.
//
//	@Summary		Indent a block one level
//	@Tags			blocks
//	@Produce		json
//	@Success		200	{object}	OpResult
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{pageID}/blocks/{blockID}/indent [post]
func (h *Handler) IndentBlock() http.HandlerFunc {
	return h.blockOp("indent block", func(r *http.Request, pageID, blockID string) (OpResult, error) {
		return h.svc.IndentBlock(r.Context(), pageID, blockID)
	})
}

// OutdentBlock handles POST /api/pages/{pageID}/blocks/{blockID}/outdent.
//
//	@Summary		Outdent a block one level
//	@Tags			blocks
//	@Produce		json
//	@Success		200	{object}	OpResult
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{pageID}/blocks/{blockID}/outdent [post]
func (h *Handler) OutdentBlock() http.HandlerFunc {
	return h.blockOp("outdent block", func(r *http.Request, pageID, blockID string) (OpResult, error) {
		return h.svc.OutdentBlock(r.Context(), pageID, blockID)
	})
}

// CollapseBlock handles POST /api/pages/{pageID}/blocks/{blockID}/collapse.
//
//	@Summary		Collapse a block's descendants
//	@Tags			blocks
//	@Produce		json
//	@Success		200	{object}	OpResult
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{pageID}/blocks/{blockID}/collapse [post]
func (h *Handler) CollapseBlock() http.HandlerFunc {
	return h.blockOp("collapse block", func(r *http.Request, pageID, blockID string) (OpResult, error) {
		return h.svc.CollapseBlock(r.Context(), pageID, blockID)
	})
}

// ExpandBlock handles POST /api/pages/{pageID}/blocks/{blockID}/expand.
//
//	@Summary		Expand a collapsed block
//	@Tags			blocks
//	@Produce		json
//	@Success		200	{object}	OpResult
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{pageID}/blocks/{blockID}/expand [post]
func (h *Handler) ExpandBlock() http.HandlerFunc {
	return h.blockOp("expand block", func(r *http.Request, pageID, blockID string) (OpResult, error) {
		return h.svc.ExpandBlock(r.Context(), pageID, blockID)
	})
}

// MoveBlockUp handles POST /api/pages/{pageID}/blocks/{blockID}/move-up.
//
//	@Summary		Swap a block with its preceding neighbor
//	@Tags			blocks
//	@Produce		json
//	@Success		200	{object}	OpResult
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{pageID}/blocks/{blockID}/move-up [post]
func (h *Handler) MoveBlockUp() http.HandlerFunc {
	return h.blockOp("move block up", func(r *http.Request, pageID, blockID string) (OpResult, error) {
		return h.svc.MoveBlockUp(r.Context(), pageID, blockID)
	})
}

// MoveBlockDown handles POST /api/pages/{pageID}/blocks/{blockID}/move-down.
//
//	@Summary		Swap a block with its following neighbor
//	@Tags			blocks
//	@Produce		json
//	@Success		200	{object}	OpResult
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{pageID}/blocks/{blockID}/move-down [post]
func (h *Handler) MoveBlockDown() http.HandlerFunc {
	return h.blockOp("move block down", func(r *http.Request, pageID, blockID string) (OpResult, error) {
		return h.svc.MoveBlockDown(r.Context(), pageID, blockID)
	})
}

// DuplicateBlock handles POST /api/pages/{pageID}/blocks/{blockID}/duplicate.
//
//	@Summary		Duplicate a block in place
//	@Tags			blocks
//	@Produce		json
//	@Success		200	{object}	OpResult
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{pageID}/blocks/{blockID}/duplicate [post]
func (h *Handler) DuplicateBlock() http.HandlerFunc {
	return h.blockOp("duplicate block", func(r *http.Request, pageID, blockID string) (OpResult, error) {
		return h.svc.DuplicateBlock(r.Context(), pageID, blockID)
	})
}

// InsertBlock handles POST /api/pages/{pageID}/blocks.
//
//	@Summary		Insert a new empty block after another block
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			pageID	path		string				true	"Page id"
//	@Param			body	body		InsertBlockRequest	true	"Insertion point and type"
//	@Success		201		{object}	OpResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{pageID}/blocks [post]
func (h *Handler) InsertBlock(w http.ResponseWriter, r *http.Request) {
	var req InsertBlockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.InsertBlock(r.Context(), chi.URLParam(r, "pageID"), req.AfterID, req.Type)
	if err != nil {
		writeError(w, err, "insert block")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// DeleteOrMergeBlock handles POST /api/pages/{pageID}/blocks/{blockID}/delete-or-merge.
//
//	@Summary		Remove an empty block, reporting the merge focus target
//	@Tags			blocks
//	@Produce		json
//	@Success		200	{object}	outline.MergeResult
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{pageID}/blocks/{blockID}/delete-or-merge [post]
func (h *Handler) DeleteOrMergeBlock(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DeleteOrMergeBlock(r.Context(), chi.URLParam(r, "pageID"), chi.URLParam(r, "blockID"))
	if err != nil {
		writeError(w, err, "delete or merge block")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RetypeBlock handles POST /api/pages/{pageID}/blocks/{blockID}/retype.
//
//	@Summary		Change a block's type, preserving content and level
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RetypeBlockRequest	true	"New type"
//	@Success		200		{object}	OpResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{pageID}/blocks/{blockID}/retype [post]
func (h *Handler) RetypeBlock(w http.ResponseWriter, r *http.Request) {
	var req RetypeBlockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.RetypeBlock(r.Context(), chi.URLParam(r, "pageID"), chi.URLParam(r, "blockID"), req.Type)
	if err != nil {
		writeError(w, err, "retype block")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ReorderBlock handles POST /api/pages/{pageID}/blocks/{blockID}/reorder.
//
//	@Summary		Move a block before or after another block
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReorderBlockRequest	true	"Target and side"
//	@Success		200		{object}	OpResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{pageID}/blocks/{blockID}/reorder [post]
func (h *Handler) ReorderBlock(w http.ResponseWriter, r *http.Request) {
	var req ReorderBlockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.ReorderBlock(r.Context(),
		chi.URLParam(r, "pageID"), chi.URLParam(r, "blockID"),
		req.TargetID, outline.Position(req.Position))
	if err != nil {
		writeError(w, err, "reorder block")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateBackup handles POST /api/backups.
//
//	@Summary		Snapshot the workspace to a new backup artifact
//	@Tags			backups
//	@Produce		json
//	@Success		201	{object}	models.BackupRecord
//	@Security		BearerAuth
//	@Router			/backups [post]
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.CreateBackup(r.Context())
	if err != nil {
		writeError(w, err, "create backup")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ListBackups handles GET /api/backups.
//
//	@Summary		List backup artifacts, newest first
//	@Tags			backups
//	@Produce		json
//	@Success		200	{object}	BackupListResponse
//	@Security		BearerAuth
//	@Router			/backups [get]
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.Backups(r.Context())
	if err != nil {
		writeError(w, err, "list backups")
		return
	}
	if records == nil {
		records = []models.BackupRecord{}
	}
	writeJSON(w, http.StatusOK, BackupListResponse{Backups: records})
}

// RestoreBackup handles POST /api/backups/restore.
//
//	@Summary		Replace the live workspace with a backup artifact
//	@Tags			backups
//	@Accept			json
//	@Param			body	body	RestoreBackupRequest	true	"Artifact to restore"
//	@Success		204		"Workspace restored"
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backups/restore [post]
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	var req RestoreBackupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.RestoreBackup(r.Context(), req.Path); err != nil {
		writeError(w, err, "restore backup")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportWorkspace handles GET /api/export.
//
//	@Summary		Export every page as one markdown document
//	@Tags			markdown
//	@Produce		json
//	@Success		200	{object}	ExportResponse
//	@Security		BearerAuth
//	@Router			/export [get]
func (h *Handler) ExportWorkspace(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ExportWorkspace(r.Context())
	if err != nil {
		writeError(w, err, "export workspace")
		return
	}
	writeJSON(w, http.StatusOK, ExportResponse{Markdown: out})
}

// ExportPage handles GET /api/pages/{pageID}/export.
//
//	@Summary		Export one page as markdown
//	@Tags			markdown
//	@Produce		json
//	@Param			pageID	path		string	true	"Page id"
//	@Success		200		{object}	ExportResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{pageID}/export [get]
func (h *Handler) ExportPage(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ExportPage(r.Context(), chi.URLParam(r, "pageID"))
	if err != nil {
		writeError(w, err, "export page")
		return
	}
	writeJSON(w, http.StatusOK, ExportResponse{Markdown: out})
}

// ImportMarkdown handles POST /api/import.
//
//	@Summary		Import markdown as a new page
//	@Tags			markdown
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ImportRequest	true	"Markdown to import"
//	@Success		201		{object}	ImportReport
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) ImportMarkdown(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Markdown == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("markdown is required"))
		return
	}
	rep, err := h.svc.ImportMarkdown(r.Context(), req.Markdown, req.Title)
	if err != nil {
		writeError(w, err, "import markdown")
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across block content and page titles
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err, "search")
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
