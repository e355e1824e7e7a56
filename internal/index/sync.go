package index

import (
	"encoding/json"
	"log/slog"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/models"
)

// Fingerprint returns a stable content checksum for a page, used to skip
// reindexing unchanged pages.
func Fingerprint(p *models.Page) string {
	data, _ := json.Marshal(p)
	return checksum.Sum(data)
}

// Entry builds the index entry for a page.
func Entry(p *models.Page) PageEntry {
	return PageEntry{
		ID:        p.ID,
		Title:     p.Title,
		Checksum:  Fingerprint(p),
		UpdatedAt: p.UpdatedAt,
		Blocks:    p.Blocks,
	}
}

// Sync brings the index up to date with a workspace snapshot:
//   - new/changed pages are upserted
//   - pages no longer in the workspace are deleted from the index
func Sync(idx PageIndex, ws *models.Workspace, logger *slog.Logger) error {
	checksums, err := idx.AllChecksums()
	if err != nil {
		return err
	}

	live := make(map[string]struct{}, len(ws.Pages))
	for id, p := range ws.Pages {
		live[id] = struct{}{}

		entry := Entry(p)
		if checksums[id] == entry.Checksum {
			continue
		}
		if err := idx.UpsertPage(entry); err != nil {
			logger.Warn("sync: index failed", slog.String("page_id", id), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("page_id", id))
		}
	}

	// Remove stale entries.
	for id := range checksums {
		if _, ok := live[id]; !ok {
			if err := idx.DeletePage(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("page_id", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("page_id", id))
			}
		}
	}

	return nil
}
