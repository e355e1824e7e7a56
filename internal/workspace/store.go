// Package workspace owns the in-memory workspace and its durable artifact.
//
// Every mutation updates the in-memory workspace and completes the durable
// write before returning. Mutations are serialized behind a single write
// gate, so at most one durable write is in flight; a failed write rolls the
// in-memory state back to its pre-call value. Restore holds the same gate for
// its whole duration, deferring competing mutations until it completes.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/storage"
)

// ArtifactName is the workspace artifact file name under the data root.
const ArtifactName = "workspace.json"

// writeRetryDelay is the pause before the single retry of a failed durable write.
const writeRetryDelay = 50 * time.Millisecond

// PageUpdate carries the partial fields accepted by UpdatePage.
// Nil fields are left untouched.
type PageUpdate struct {
	Title  *string
	Blocks []models.Block
}

// Store owns the workspace for one data directory.
type Store struct {
	mu     sync.Mutex
	store  storage.Provider
	logger *slog.Logger
	ws     *models.Workspace
}

// NewStore creates a store over the given provider. Call Load before use.
func NewStore(p storage.Provider, logger *slog.Logger) *Store {
	return &Store{store: p, logger: logger}
}

// Load reads the durable artifact into memory. A missing artifact seeds and
// persists the default workspace; an unreadable or corrupt artifact is
// reported as ErrStorageUnavailable and is never silently replaced with an
// empty workspace.
func (s *Store) Load() (*models.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.store.Read(ArtifactName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			ws := models.DefaultWorkspace()
			s.ws = ws
			if err := s.persistLocked(); err != nil {
				s.ws = nil
				return nil, err
			}
			s.logger.Info("workspace: seeded default", slog.String("id", ws.ID))
			return ws.Clone(), nil
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
	}

	var ws models.Workspace
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("%w: decode artifact: %v", apperr.ErrStorageUnavailable, err)
	}
	if ws.Pages == nil {
		ws.Pages = make(map[string]*models.Page)
	}
	for id, p := range ws.Pages {
		if p.Repair() {
			s.logger.Warn("workspace: repaired empty page", slog.String("page_id", id))
		}
	}

	s.ws = &ws
	s.logger.Info("workspace: loaded",
		slog.String("id", ws.ID),
		slog.Int("pages", len(ws.Pages)))
	return ws.Clone(), nil
}

// Snapshot returns a deep copy of the current workspace.
func (s *Store) Snapshot() (*models.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws == nil {
		return nil, apperr.ErrInvalidState
	}
	return s.ws.Clone(), nil
}

// Page returns a deep copy of one page.
func (s *Store) Page(pageID string) (*models.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws == nil {
		return nil, apperr.ErrInvalidState
	}
	p, ok := s.ws.Pages[pageID]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return p.Clone(), nil
}

// CreatePage allocates a new page seeded with one empty paragraph block,
// persists, and returns the page.
func (s *Store) CreatePage(title string) (*models.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws == nil {
		return nil, apperr.ErrInvalidState
	}

	page := models.NewPage(title)
	s.ws.Pages[page.ID] = page
	s.ws.UpdatedAt = time.Now().UTC()

	if err := s.persistLocked(); err != nil {
		delete(s.ws.Pages, page.ID)
		return nil, err
	}
	return page.Clone(), nil
}

// AddPage inserts a fully built page, such as one produced by a markdown
// import, and persists. A colliding page id is rejected.
func (s *Store) AddPage(page *models.Page) (*models.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws == nil {
		return nil, apperr.ErrInvalidState
	}
	if _, ok := s.ws.Pages[page.ID]; ok {
		return nil, fmt.Errorf("%w: page %s already exists", apperr.ErrInvalidState, page.ID)
	}

	prevTS := s.ws.UpdatedAt
	s.ws.Pages[page.ID] = page.Clone()
	s.ws.UpdatedAt = time.Now().UTC()

	if err := s.persistLocked(); err != nil {
		delete(s.ws.Pages, page.ID)
		s.ws.UpdatedAt = prevTS
		return nil, err
	}
	return page.Clone(), nil
}

// UpdatePage merges the given partial fields into the stored page and
// refreshes its timestamp. Replacing the block sequence with an empty one
// violates the page invariant and is rejected.
func (s *Store) UpdatePage(pageID string, upd PageUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws == nil {
		return apperr.ErrInvalidState
	}
	page, ok := s.ws.Pages[pageID]
	if !ok {
		return apperr.ErrNotFound
	}
	if upd.Blocks != nil && len(upd.Blocks) == 0 {
		return fmt.Errorf("%w: a page must keep at least one block", apperr.ErrInvalidState)
	}

	prev := page.Clone()
	prevTS := s.ws.UpdatedAt

	if upd.Title != nil {
		page.Title = *upd.Title
	}
	if upd.Blocks != nil {
		page.Blocks = make([]models.Block, len(upd.Blocks))
		copy(page.Blocks, upd.Blocks)
	}
	now := time.Now().UTC()
	page.UpdatedAt = now
	s.ws.UpdatedAt = now

	if err := s.persistLocked(); err != nil {
		s.ws.Pages[pageID] = prev
		s.ws.UpdatedAt = prevTS
		return err
	}
	return nil
}

// DeletePage removes the page. Deleting the last remaining page is permitted;
// a workspace, unlike a page, may be empty.
func (s *Store) DeletePage(pageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws == nil {
		return apperr.ErrInvalidState
	}
	page, ok := s.ws.Pages[pageID]
	if !ok {
		return apperr.ErrNotFound
	}

	prevTS := s.ws.UpdatedAt
	delete(s.ws.Pages, pageID)
	s.ws.UpdatedAt = time.Now().UTC()

	if err := s.persistLocked(); err != nil {
		s.ws.Pages[pageID] = page
		s.ws.UpdatedAt = prevTS
		return err
	}
	return nil
}

// Apply runs a structural operation against one page and persists the result
// if the operation reports a change. The operation sees a working copy; a
// failed durable write leaves the stored page untouched.
func (s *Store) Apply(pageID string, op func(*models.Page) (bool, error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws == nil {
		return false, apperr.ErrInvalidState
	}
	page, ok := s.ws.Pages[pageID]
	if !ok {
		return false, apperr.ErrNotFound
	}

	work := page.Clone()
	changed, err := op(work)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	prevTS := s.ws.UpdatedAt
	s.ws.Pages[pageID] = work
	s.ws.UpdatedAt = time.Now().UTC()

	if err := s.persistLocked(); err != nil {
		s.ws.Pages[pageID] = page
		s.ws.UpdatedAt = prevTS
		return false, err
	}
	return true, nil
}

// Replace swaps in a fully validated workspace (restore). Either the
// replacement fully succeeds or the live workspace is left untouched.
func (s *Store) Replace(ws *models.Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.ws
	s.ws = ws.Clone()
	if err := s.persistLocked(); err != nil {
		s.ws = prev
		return err
	}
	return nil
}

// Metadata returns summary counts without copying page content.
func (s *Store) Metadata() (models.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws == nil {
		return models.Metadata{}, apperr.ErrInvalidState
	}
	return models.Metadata{
		Version:      s.ws.Version,
		LastModified: s.ws.UpdatedAt,
		TotalPages:   len(s.ws.Pages),
		TotalBlocks:  s.ws.TotalBlocks(),
		DataPath:     s.store.Root(),
	}, nil
}

// Fingerprint returns the checksum of the canonical artifact encoding of the
// in-memory workspace. The watcher compares it against the on-disk artifact
// to tell this engine's own writes apart from external ones.
func (s *Store) Fingerprint() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ws == nil {
		return "", apperr.ErrInvalidState
	}
	data, err := json.MarshalIndent(s.ws, "", "  ")
	if err != nil {
		return "", fmt.Errorf("workspace: encode: %w", err)
	}
	return checksum.Sum(data), nil
}

// persistLocked writes the workspace artifact, retrying once on failure.
// Callers hold s.mu.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.ws, "", "  ")
	if err != nil {
		return fmt.Errorf("workspace: encode: %w", err)
	}
	if err := s.store.Write(ArtifactName, data); err != nil {
		s.logger.Warn("workspace: write failed, retrying", slog.String("error", err.Error()))
		time.Sleep(writeRetryDelay)
		if err := s.store.Write(ArtifactName, data); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
		}
	}
	return nil
}
