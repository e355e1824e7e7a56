package api

import (
	"time"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/pageservice"
)

// CreatePageRequest is the request body for creating a page.
type CreatePageRequest struct {
	Title string `json:"title" example:"Meeting notes"`
}

// UpdatePageRequest carries a partial page update. Absent fields are left
// untouched; an explicit empty block list is rejected.
type UpdatePageRequest struct {
	Title  *string        `json:"title,omitempty" example:"Renamed page"`
	Blocks []models.Block `json:"blocks,omitempty"`
}

// InsertBlockRequest is the request body for inserting a new block.
type InsertBlockRequest struct {
	AfterID string           `json:"after_id" example:"b2f1..."`
	Type    models.BlockType `json:"type" example:"paragraph"`
}

// RetypeBlockRequest is the request body for changing a block's type.
type RetypeBlockRequest struct {
	Type models.BlockType `json:"type" example:"quote" validate:"required"`
}

// ReorderBlockRequest is the request body for moving a block relative to
// another block.
type ReorderBlockRequest struct {
	TargetID string `json:"target_id" example:"b9c3..." validate:"required"`
	Position string `json:"position" example:"before" validate:"required" enums:"before,after"`
}

// RestoreBackupRequest names the backup artifact to restore.
type RestoreBackupRequest struct {
	Path string `json:"path" example:"backups/workspace-20260831T120000-000000001.json" validate:"required"`
}

// ImportRequest is the request body for a markdown import.
type ImportRequest struct {
	Markdown string `json:"markdown" example:"# Title\n\nBody" validate:"required"`
	Title    string `json:"title,omitempty" example:"Imported page"`
}

// PageSummary is a lightweight item in the page list response.
type PageSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	BlockCount int       `json:"block_count" example:"12"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PageListResponse wraps the page list.
type PageListResponse struct {
	Pages []PageSummary `json:"pages" validate:"required"`
	Total int           `json:"total" example:"3" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// BackupListResponse wraps the backup artifact list, newest first.
type BackupListResponse struct {
	Backups []models.BackupRecord `json:"backups" validate:"required"`
}

// ExportResponse carries rendered markdown.
type ExportResponse struct {
	Markdown string `json:"markdown" validate:"required"`
}

// OpResult reports a structural block operation outcome (aliased from the
// domain layer).
type OpResult = pageservice.OpResult

// ImportReport is the markdown import outcome (aliased from the domain layer).
type ImportReport = pageservice.ImportReport
