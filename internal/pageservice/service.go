// Package pageservice is the engine facade: it coordinates the workspace
// store, backups, the markdown codec, the search index, and event broadcast.
package pageservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/ansuz/internal/backup"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/markdown"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/outline"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/workspace"
)

// OpResult reports the outcome of a structural block operation.
type OpResult struct {
	Changed bool          `json:"changed"`
	Block   *models.Block `json:"block,omitempty"`
}

// ImportReport is the outcome of a markdown import.
type ImportReport struct {
	Page     *models.Page `json:"page"`
	Warnings []string     `json:"warnings"`
}

// Service coordinates workspace, backup, index, and event operations.
type Service struct {
	ws      *workspace.Store
	backups *backup.Manager
	idx     index.PageIndex
	broker  *sse.Broker
	logger  *slog.Logger
}

// NewService creates the engine facade. idx and broker may be nil; indexing
// and event broadcast are then skipped.
func NewService(ws *workspace.Store, backups *backup.Manager, idx index.PageIndex, broker *sse.Broker, logger *slog.Logger) *Service {
	return &Service{ws: ws, backups: backups, idx: idx, broker: broker, logger: logger}
}

// Workspace returns a deep copy of the full workspace.
func (s *Service) Workspace(_ context.Context) (*models.Workspace, error) {
	return s.ws.Snapshot()
}

// Metadata returns workspace summary counters.
func (s *Service) Metadata(_ context.Context) (models.Metadata, error) {
	return s.ws.Metadata()
}

// Page returns a deep copy of one page.
func (s *Service) Page(_ context.Context, pageID string) (*models.Page, error) {
	return s.ws.Page(pageID)
}

// CreatePage allocates a new page seeded with one empty paragraph block.
func (s *Service) CreatePage(_ context.Context, title string) (*models.Page, error) {
	page, err := s.ws.CreatePage(title)
	if err != nil {
		return nil, err
	}
	s.reindex(page)
	s.publishPage("created", page.ID)
	return page, nil
}

// UpdatePage merges partial fields into a page.
func (s *Service) UpdatePage(_ context.Context, pageID string, upd workspace.PageUpdate) (*models.Page, error) {
	if err := s.ws.UpdatePage(pageID, upd); err != nil {
		return nil, err
	}
	page, err := s.ws.Page(pageID)
	if err != nil {
		return nil, err
	}
	s.reindex(page)
	s.publishPage("updated", pageID)
	return page, nil
}

// DeletePage removes a page from the workspace and the index.
func (s *Service) DeletePage(_ context.Context, pageID string) error {
	if err := s.ws.DeletePage(pageID); err != nil {
		return err
	}
	if s.idx != nil {
		if err := s.idx.DeletePage(pageID); err != nil {
			s.logger.Warn("index: delete failed", slog.String("page_id", pageID), slog.String("error", err.Error()))
		}
	}
	s.publishPage("deleted", pageID)
	return nil
}

// apply runs a structural operation through the workspace write gate and, on
// change, refreshes the index and broadcasts a page.updated event.
func (s *Service) apply(pageID string, op func(*models.Page) (bool, error)) (bool, error) {
	changed, err := s.ws.Apply(pageID, op)
	if err != nil {
		return false, err
	}
	if changed {
		if page, err := s.ws.Page(pageID); err == nil {
			s.reindex(page)
		}
		s.publishPage("updated", pageID)
	}
	return changed, nil
}

// IndentBlock deepens a block by one level, capped at the maximum depth.
func (s *Service) IndentBlock(_ context.Context, pageID, blockID string) (OpResult, error) {
	changed, err := s.apply(pageID, func(p *models.Page) (bool, error) {
		return outline.Indent(p, blockID)
	})
	return OpResult{Changed: changed}, err
}

// OutdentBlock shallows a block by one level, floored at zero.
func (s *Service) OutdentBlock(_ context.Context, pageID, blockID string) (OpResult, error) {
	changed, err := s.apply(pageID, func(p *models.Page) (bool, error) {
		return outline.Outdent(p, blockID)
	})
	return OpResult{Changed: changed}, err
}

// CollapseBlock hides a block's descendant run.
func (s *Service) CollapseBlock(_ context.Context, pageID, blockID string) (OpResult, error) {
	changed, err := s.apply(pageID, func(p *models.Page) (bool, error) {
		return outline.Collapse(p, blockID)
	})
	return OpResult{Changed: changed}, err
}

// ExpandBlock reveals a block's immediate descendants.
func (s *Service) ExpandBlock(_ context.Context, pageID, blockID string) (OpResult, error) {
	changed, err := s.apply(pageID, func(p *models.Page) (bool, error) {
		return outline.Expand(p, blockID)
	})
	return OpResult{Changed: changed}, err
}

// InsertBlock creates a new empty block after afterID and returns it.
func (s *Service) InsertBlock(_ context.Context, pageID, afterID string, t models.BlockType) (OpResult, error) {
	var nb models.Block
	changed, err := s.apply(pageID, func(p *models.Page) (bool, error) {
		b, err := outline.InsertAfter(p, afterID, t)
		if err != nil {
			return false, err
		}
		nb = b
		return true, nil
	})
	if err != nil {
		return OpResult{}, err
	}
	return OpResult{Changed: changed, Block: &nb}, nil
}

// DeleteOrMergeBlock removes an empty block, reporting the merge focus target.
func (s *Service) DeleteOrMergeBlock(_ context.Context, pageID, blockID string) (outline.MergeResult, error) {
	var res outline.MergeResult
	_, err := s.apply(pageID, func(p *models.Page) (bool, error) {
		r, err := outline.DeleteOrMerge(p, blockID)
		if err != nil {
			return false, err
		}
		res = r
		return r.Changed, nil
	})
	if err != nil {
		return outline.MergeResult{}, err
	}
	return res, nil
}

// MoveBlockUp swaps a block with its preceding neighbor.
func (s *Service) MoveBlockUp(_ context.Context, pageID, blockID string) (OpResult, error) {
	changed, err := s.apply(pageID, func(p *models.Page) (bool, error) {
		return outline.MoveUp(p, blockID)
	})
	return OpResult{Changed: changed}, err
}

// MoveBlockDown swaps a block with its following neighbor.
func (s *Service) MoveBlockDown(_ context.Context, pageID, blockID string) (OpResult, error) {
	changed, err := s.apply(pageID, func(p *models.Page) (bool, error) {
		return outline.MoveDown(p, blockID)
	})
	return OpResult{Changed: changed}, err
}

// DuplicateBlock inserts a copy of the block after itself and returns the copy.
func (s *Service) DuplicateBlock(_ context.Context, pageID, blockID string) (OpResult, error) {
	var cp models.Block
	changed, err := s.apply(pageID, func(p *models.Page) (bool, error) {
		b, err := outline.Duplicate(p, blockID)
		if err != nil {
			return false, err
		}
		cp = b
		return true, nil
	})
	if err != nil {
		return OpResult{}, err
	}
	return OpResult{Changed: changed, Block: &cp}, nil
}

// RetypeBlock changes a block's type in place.
func (s *Service) RetypeBlock(_ context.Context, pageID, blockID string, t models.BlockType) (OpResult, error) {
	changed, err := s.apply(pageID, func(p *models.Page) (bool, error) {
		return outline.Retype(p, blockID, t)
	})
	return OpResult{Changed: changed}, err
}

// ReorderBlock moves a block before or after a target block.
func (s *Service) ReorderBlock(_ context.Context, pageID, blockID, targetID string, pos outline.Position) (OpResult, error) {
	changed, err := s.apply(pageID, func(p *models.Page) (bool, error) {
		return outline.Reorder(p, blockID, targetID, pos)
	})
	return OpResult{Changed: changed}, err
}

// CreateBackup snapshots the workspace to a new backup artifact.
func (s *Service) CreateBackup(_ context.Context) (models.BackupRecord, error) {
	rec, err := s.backups.Create()
	if err != nil {
		return models.BackupRecord{}, err
	}
	s.publish(sse.Event{Type: "backup.created", Data: map[string]string{"name": rec.Name}})
	return rec, nil
}

// Backups enumerates backup artifacts, newest first.
func (s *Service) Backups(_ context.Context) ([]models.BackupRecord, error) {
	return s.backups.List()
}

// RestoreBackup replaces the live workspace with a validated backup artifact
// and rebuilds the search index from the restored state.
func (s *Service) RestoreBackup(_ context.Context, path string) error {
	if err := s.backups.Restore(path); err != nil {
		return err
	}
	s.resync()
	s.publish(sse.Event{Type: "backup.restored", Data: map[string]string{"path": path}})
	return nil
}

// ExportPage renders one page as markdown.
func (s *Service) ExportPage(_ context.Context, pageID string) (string, error) {
	page, err := s.ws.Page(pageID)
	if err != nil {
		return "", err
	}
	return markdown.ExportPage(page), nil
}

// ExportWorkspace renders every page as one markdown document.
func (s *Service) ExportWorkspace(_ context.Context) (string, error) {
	snap, err := s.ws.Snapshot()
	if err != nil {
		return "", err
	}
	return markdown.ExportWorkspace(snap), nil
}

// ImportMarkdown parses markup into a new page, adds it to the workspace, and
// reports any degradation warnings.
func (s *Service) ImportMarkdown(_ context.Context, markup, title string) (ImportReport, error) {
	res := markdown.Import(markup, title)
	page, err := s.ws.AddPage(res.Page)
	if err != nil {
		return ImportReport{}, err
	}
	s.reindex(page)
	s.publishPage("created", page.ID)
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	return ImportReport{Page: page, Warnings: res.Warnings}, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.idx == nil {
		return []index.SearchResult{}, nil
	}
	results, err := s.idx.Search(query, limit)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	return results, nil
}

// ReloadFromDisk re-reads the workspace artifact after an external change,
// rebuilds the index, and tells clients to refetch. The watcher calls this
// once it has established the change did not come from this process.
func (s *Service) ReloadFromDisk(_ context.Context) error {
	if _, err := s.ws.Load(); err != nil {
		return err
	}
	s.resync()
	s.publish(sse.Event{Type: "workspace.changed", Data: map[string]string{"reloaded_at": time.Now().UTC().Format(time.RFC3339)}})
	return nil
}

func (s *Service) reindex(page *models.Page) {
	if s.idx == nil {
		return
	}
	if err := s.idx.UpsertPage(index.Entry(page)); err != nil {
		s.logger.Warn("index: upsert failed", slog.String("page_id", page.ID), slog.String("error", err.Error()))
	}
}

func (s *Service) resync() {
	if s.idx == nil {
		return
	}
	snap, err := s.ws.Snapshot()
	if err != nil {
		return
	}
	if err := index.Sync(s.idx, snap, s.logger); err != nil {
		s.logger.Warn("index: resync failed", slog.String("error", err.Error()))
	}
}

func (s *Service) publish(ev sse.Event) {
	if s.broker != nil {
		s.broker.Publish(ev)
	}
}

func (s *Service) publishPage(kind, pageID string) {
	if s.broker != nil {
		s.broker.PublishPageEvent(kind, pageID)
	}
}
