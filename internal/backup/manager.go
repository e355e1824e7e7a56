// Package backup snapshots the workspace to timestamp-named artifacts and
// restores them.
package backup

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/workspace"
)

// Dir is the backup directory under the data root.
const Dir = "backups"

// DefaultRetention is how long backup artifacts are kept before the startup
// sweep removes them.
const DefaultRetention = 7 * 24 * time.Hour

const writeRetryDelay = 50 * time.Millisecond

// Manager creates, enumerates, and restores workspace backups.
type Manager struct {
	store  storage.Provider
	ws     *workspace.Store
	logger *slog.Logger
}

// NewManager creates a backup manager over the same provider and workspace
// store the engine runs on.
func NewManager(p storage.Provider, ws *workspace.Store, logger *slog.Logger) *Manager {
	return &Manager{store: p, ws: ws, logger: logger}
}

// Create serializes a consistent snapshot of the current workspace to a new
// timestamp-named artifact and returns its record. Only the snapshot step
// holds the workspace gate; concurrent edits during the write neither corrupt
// the backup nor block on it.
func (m *Manager) Create() (models.BackupRecord, error) {
	snap, err := m.ws.Snapshot()
	if err != nil {
		return models.BackupRecord{}, err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return models.BackupRecord{}, fmt.Errorf("backup: encode: %w", err)
	}

	now := time.Now().UTC()
	name := fmt.Sprintf("workspace-%s-%09d.json", now.Format("20060102T150405"), now.Nanosecond())
	path := filepath.Join(Dir, name)

	if err := m.store.Write(path, data); err != nil {
		m.logger.Warn("backup: write failed, retrying", slog.String("error", err.Error()))
		time.Sleep(writeRetryDelay)
		if err := m.store.Write(path, data); err != nil {
			return models.BackupRecord{}, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
		}
	}

	rec := models.BackupRecord{
		Name:      name,
		Path:      path,
		CreatedAt: now,
		SizeBytes: int64(len(data)),
	}
	m.logger.Info("backup: created",
		slog.String("path", rec.Path),
		slog.Int64("size_bytes", rec.SizeBytes))
	return rec, nil
}

// List enumerates backup artifacts, newest first.
func (m *Manager) List() ([]models.BackupRecord, error) {
	infos, err := m.store.List(Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}
	records := make([]models.BackupRecord, len(infos))
	for i, info := range infos {
		records[i] = models.BackupRecord{
			Name:      info.Name,
			Path:      info.Path,
			CreatedAt: info.ModTime,
			SizeBytes: info.Size,
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Restore reads the artifact at path, validates that it deserializes to a
// well-formed workspace, and atomically replaces the live workspace. A
// malformed artifact leaves the live workspace completely untouched.
func (m *Manager) Restore(path string) error {
	if filepath.Dir(filepath.Clean(path)) != Dir {
		return fmt.Errorf("%w: not a backup artifact: %s", apperr.ErrNotFound, path)
	}
	data, err := m.store.Read(path)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrNotFound, err)
	}

	var ws models.Workspace
	if err := json.Unmarshal(data, &ws); err != nil {
		return fmt.Errorf("%w: decode: %v", apperr.ErrMalformedBackup, err)
	}
	if err := ws.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrMalformedBackup, err)
	}

	if err := m.ws.Replace(&ws); err != nil {
		return err
	}
	m.logger.Info("backup: restored", slog.String("path", path))
	return nil
}

// Prune removes artifacts older than the retention window and returns how
// many were deleted. Run on normal startup.
func (m *Manager) Prune(retention time.Duration) (int, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	records, err := m.List()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-retention)
	removed := 0
	for _, rec := range records {
		if rec.CreatedAt.After(cutoff) {
			continue
		}
		if err := m.store.Delete(rec.Path); err != nil {
			m.logger.Warn("backup: prune failed",
				slog.String("path", rec.Path),
				slog.String("error", err.Error()))
			continue
		}
		removed++
	}
	if removed > 0 {
		m.logger.Info("backup: pruned old artifacts", slog.Int("removed", removed))
	}
	return removed, nil
}

// Cap deletes the oldest artifacts beyond max, keeping the newest ones.
// Used by the automatic backup scheduler.
func (m *Manager) Cap(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}
	records, err := m.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, rec := range records[min(max, len(records)):] {
		if err := m.store.Delete(rec.Path); err != nil {
			m.logger.Warn("backup: cap failed",
				slog.String("path", rec.Path),
				slog.String("error", err.Error()))
			continue
		}
		removed++
	}
	return removed, nil
}
