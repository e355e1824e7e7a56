package workspace

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/outline"
	"github.com/starford/ansuz/internal/storage"
)

// memProvider is an in-memory storage.Provider with fault injection.
type memProvider struct {
	files      map[string][]byte
	writes     int
	failWrites bool
}

func newMemProvider() *memProvider {
	return &memProvider{files: make(map[string][]byte)}
}

func (m *memProvider) List(dir string) ([]storage.ArtifactInfo, error) {
	var out []storage.ArtifactInfo
	for p, data := range m.files {
		if filepath.Dir(p) == dir && strings.HasSuffix(p, ".json") {
			out = append(out, storage.ArtifactInfo{Name: filepath.Base(p), Path: p, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (m *memProvider) Read(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (m *memProvider) Write(path string, content []byte) error {
	m.writes++
	if m.failWrites {
		return errors.New("disk full")
	}
	m.files[path] = content
	return nil
}

func (m *memProvider) Delete(path string) error {
	delete(m.files, path)
	return nil
}

func (m *memProvider) Root() string { return "/mem" }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func loadedStore(t *testing.T) (*Store, *memProvider) {
	t.Helper()
	mp := newMemProvider()
	s := NewStore(mp, discard())
	_, err := s.Load()
	require.NoError(t, err)
	return s, mp
}

func TestLoadSeedsDefaultWorkspace(t *testing.T) {
	s, mp := loadedStore(t)

	ws, err := s.Snapshot()
	require.NoError(t, err)
	assert.Len(t, ws.Pages, 1, "default workspace carries a welcome page")
	_, ok := mp.files[ArtifactName]
	assert.True(t, ok, "seed is persisted immediately")
}

func TestLoadCorruptArtifact(t *testing.T) {
	mp := newMemProvider()
	mp.files[ArtifactName] = []byte("{not json")
	s := NewStore(mp, discard())
	_, err := s.Load()
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
}

func TestLoadRepairsEmptyPage(t *testing.T) {
	ws := models.NewWorkspace("w")
	p := models.NewPage("broken")
	p.Blocks = nil
	ws.Pages[p.ID] = p
	data, _ := json.Marshal(ws)

	mp := newMemProvider()
	mp.files[ArtifactName] = data
	s := NewStore(mp, discard())
	loaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Pages[p.ID].Blocks, 1)
	assert.Equal(t, models.TypeParagraph, loaded.Pages[p.ID].Blocks[0].Type)
}

func TestCreateUpdateDeletePage(t *testing.T) {
	s, _ := loadedStore(t)

	page, err := s.CreatePage("Notes")
	require.NoError(t, err)
	assert.Equal(t, "Notes", page.Title)
	require.Len(t, page.Blocks, 1, "new page seeded with one empty paragraph")
	assert.Equal(t, models.TypeParagraph, page.Blocks[0].Type)
	assert.Empty(t, page.Blocks[0].Content)

	title := "Renamed"
	require.NoError(t, s.UpdatePage(page.ID, PageUpdate{Title: &title}))
	got, err := s.Page(page.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Len(t, got.Blocks, 1, "blocks untouched when update omits them")

	require.NoError(t, s.DeletePage(page.ID))
	_, err = s.Page(page.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdatePageUnknown(t *testing.T) {
	s, _ := loadedStore(t)
	title := "x"
	err := s.UpdatePage("ghost", PageUpdate{Title: &title})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdatePageEmptyBlocksRejected(t *testing.T) {
	s, _ := loadedStore(t)
	page, err := s.CreatePage("p")
	require.NoError(t, err)
	err = s.UpdatePage(page.ID, PageUpdate{Blocks: []models.Block{}})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	got, err := s.Page(page.ID)
	require.NoError(t, err)
	assert.Len(t, got.Blocks, 1)
}

func TestDeleteLastPagePermitted(t *testing.T) {
	s, _ := loadedStore(t)
	ws, err := s.Snapshot()
	require.NoError(t, err)
	for id := range ws.Pages {
		require.NoError(t, s.DeletePage(id))
	}
	meta, err := s.Metadata()
	require.NoError(t, err)
	assert.Zero(t, meta.TotalPages, "a workspace may be empty")
}

func TestFailedWriteRollsBack(t *testing.T) {
	s, mp := loadedStore(t)
	page, err := s.CreatePage("stable")
	require.NoError(t, err)

	mp.failWrites = true
	title := "should not stick"
	err = s.UpdatePage(page.ID, PageUpdate{Title: &title})
	require.ErrorIs(t, err, apperr.ErrStorageUnavailable)

	mp.failWrites = false
	got, err := s.Page(page.ID)
	require.NoError(t, err)
	assert.Equal(t, "stable", got.Title, "in-memory state rolled back to pre-call value")
}

func TestFailedWriteRetriesOnce(t *testing.T) {
	s, mp := loadedStore(t)
	page, err := s.CreatePage("p")
	require.NoError(t, err)

	mp.failWrites = true
	before := mp.writes
	title := "x"
	_ = s.UpdatePage(page.ID, PageUpdate{Title: &title})
	assert.Equal(t, 2, mp.writes-before, "one retry before reporting failure")
}

func TestApplyPersistsStructuralChange(t *testing.T) {
	s, mp := loadedStore(t)
	page, err := s.CreatePage("p")
	require.NoError(t, err)
	blockID := page.Blocks[0].ID

	changed, err := s.Apply(page.ID, func(p *models.Page) (bool, error) {
		return outline.Indent(p, blockID)
	})
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := s.Page(page.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Blocks[0].Level)

	// Unchanged operations skip the durable write.
	before := mp.writes
	changed, err = s.Apply(page.ID, func(p *models.Page) (bool, error) {
		return outline.Outdent(p, blockID) // level 1 -> 0, changes
	})
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.Apply(page.ID, func(p *models.Page) (bool, error) {
		return outline.Outdent(p, blockID) // already 0, no-op
	})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, mp.writes-before)
}

func TestApplyWriteFailureKeepsOldPage(t *testing.T) {
	s, mp := loadedStore(t)
	page, err := s.CreatePage("p")
	require.NoError(t, err)
	blockID := page.Blocks[0].ID

	mp.failWrites = true
	_, err = s.Apply(page.ID, func(p *models.Page) (bool, error) {
		return outline.Indent(p, blockID)
	})
	require.Error(t, err)

	mp.failWrites = false
	got, err := s.Page(page.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Blocks[0].Level)
}

func TestReplaceRollsBackOnWriteFailure(t *testing.T) {
	s, mp := loadedStore(t)
	orig, err := s.Snapshot()
	require.NoError(t, err)

	incoming := models.NewWorkspace("other")
	p := models.NewPage("restored page")
	incoming.Pages[p.ID] = p

	mp.failWrites = true
	require.Error(t, s.Replace(incoming))
	mp.failWrites = false

	after, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, orig.ID, after.ID, "live workspace untouched after failed restore")

	require.NoError(t, s.Replace(incoming))
	after, err = s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, incoming.ID, after.ID)
}

func TestMetadata(t *testing.T) {
	s, _ := loadedStore(t)
	page, err := s.CreatePage("p")
	require.NoError(t, err)
	_, err = s.Apply(page.ID, func(p *models.Page) (bool, error) {
		_, err := outline.InsertAfter(p, p.Blocks[0].ID, models.TypeListItem)
		return true, err
	})
	require.NoError(t, err)

	meta, err := s.Metadata()
	require.NoError(t, err)
	assert.Equal(t, 2, meta.TotalPages) // welcome + created
	assert.Equal(t, 4, meta.TotalBlocks)
	assert.Equal(t, "/mem", meta.DataPath)
	assert.Equal(t, models.SchemaVersion, meta.Version)
	assert.False(t, meta.LastModified.IsZero())
}
