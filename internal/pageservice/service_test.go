package pageservice

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/backup"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/outline"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/testutil"
	"github.com/starford/ansuz/internal/workspace"
)

// fakeIndex records index calls so tests can assert the service keeps the
// index in step with mutations.
type fakeIndex struct {
	upserts []string
	deletes []string
	results []index.SearchResult
}

func (f *fakeIndex) UpsertPage(p index.PageEntry) error { f.upserts = append(f.upserts, p.ID); return nil }
func (f *fakeIndex) DeletePage(pageID string) error     { f.deletes = append(f.deletes, pageID); return nil }
func (f *fakeIndex) AllChecksums() (map[string]string, error) {
	return map[string]string{}, nil
}
func (f *fakeIndex) Search(_ string, _ int) ([]index.SearchResult, error) { return f.results, nil }
func (f *fakeIndex) Close() error                                         { return nil }

type env struct {
	svc    *Service
	ws     *workspace.Store
	idx    *fakeIndex
	broker *sse.Broker
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := testutil.QuietLogger()
	ws, provider := testutil.TestWorkspace(t)

	idx := &fakeIndex{}
	broker := sse.NewBroker(time.Hour)
	t.Cleanup(broker.Close)

	mgr := backup.NewManager(provider, ws, logger)
	return &env{
		svc:    NewService(ws, mgr, idx, broker, logger),
		ws:     ws,
		idx:    idx,
		broker: broker,
	}
}

// firstPage returns the id of the seeded welcome page.
func firstPage(t *testing.T, e *env) string {
	t.Helper()
	snap, err := e.ws.Snapshot()
	require.NoError(t, err)
	for id := range snap.Pages {
		return id
	}
	t.Fatal("no pages in workspace")
	return ""
}

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestCreatePage_IndexesAndPublishes(t *testing.T) {
	e := newEnv(t)
	ch := e.broker.Subscribe()
	defer e.broker.Unsubscribe(ch)

	page, err := e.svc.CreatePage(context.Background(), "Notes")
	require.NoError(t, err)
	assert.Equal(t, "Notes", page.Title)
	require.Len(t, page.Blocks, 1)

	assert.Contains(t, e.idx.upserts, page.ID)

	time.Sleep(50 * time.Millisecond)
	events := strings.Join(drain(ch), "")
	assert.Contains(t, events, "page.created")
	assert.Contains(t, events, page.ID)
}

func TestDeletePage_RemovesFromIndex(t *testing.T) {
	e := newEnv(t)
	page, err := e.svc.CreatePage(context.Background(), "Doomed")
	require.NoError(t, err)

	require.NoError(t, e.svc.DeletePage(context.Background(), page.ID))
	assert.Contains(t, e.idx.deletes, page.ID)

	_, err = e.svc.Page(context.Background(), page.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdatePage_TitleOnly(t *testing.T) {
	e := newEnv(t)
	id := firstPage(t, e)

	title := "Renamed"
	page, err := e.svc.UpdatePage(context.Background(), id, workspace.PageUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", page.Title)
	assert.Contains(t, e.idx.upserts, id)
}

func TestIndentBlock_ChangedAndUnchanged(t *testing.T) {
	e := newEnv(t)
	page, err := e.svc.CreatePage(context.Background(), "Outline")
	require.NoError(t, err)
	blockID := page.Blocks[0].ID

	res, err := e.svc.IndentBlock(context.Background(), page.ID, blockID)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	// Drive the block to the maximum level; the next indent is a no-op.
	for i := 1; i < models.MaxLevel; i++ {
		_, err = e.svc.IndentBlock(context.Background(), page.ID, blockID)
		require.NoError(t, err)
	}
	res, err = e.svc.IndentBlock(context.Background(), page.ID, blockID)
	require.NoError(t, err)
	assert.False(t, res.Changed)
}

func TestInsertBlock_ReturnsNewBlock(t *testing.T) {
	e := newEnv(t)
	page, err := e.svc.CreatePage(context.Background(), "Insert")
	require.NoError(t, err)

	res, err := e.svc.InsertBlock(context.Background(), page.ID, page.Blocks[0].ID, models.TypeQuote)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	require.NotNil(t, res.Block)
	assert.Equal(t, models.TypeQuote, res.Block.Type)

	got, err := e.svc.Page(context.Background(), page.ID)
	require.NoError(t, err)
	require.Len(t, got.Blocks, 2)
	assert.Equal(t, res.Block.ID, got.Blocks[1].ID)
}

func TestInsertBlock_UnknownTypeRejected(t *testing.T) {
	e := newEnv(t)
	page, err := e.svc.CreatePage(context.Background(), "Insert")
	require.NoError(t, err)

	_, err = e.svc.InsertBlock(context.Background(), page.ID, page.Blocks[0].ID, "table")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestDeleteOrMergeBlock_FocusResult(t *testing.T) {
	e := newEnv(t)
	page, err := e.svc.CreatePage(context.Background(), "Merge")
	require.NoError(t, err)
	first := page.Blocks[0].ID

	content := "hello"
	_, err = e.svc.UpdatePage(context.Background(), page.ID, workspace.PageUpdate{Blocks: []models.Block{
		{ID: first, Type: models.TypeParagraph, Content: content},
	}})
	require.NoError(t, err)

	ins, err := e.svc.InsertBlock(context.Background(), page.ID, first, models.TypeParagraph)
	require.NoError(t, err)

	res, err := e.svc.DeleteOrMergeBlock(context.Background(), page.ID, ins.Block.ID)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, first, res.FocusID)
	assert.Equal(t, len(content), res.CursorOffset)
}

func TestReorderBlock(t *testing.T) {
	e := newEnv(t)
	page, err := e.svc.CreatePage(context.Background(), "Reorder")
	require.NoError(t, err)
	first := page.Blocks[0].ID

	ins, err := e.svc.InsertBlock(context.Background(), page.ID, first, models.TypeParagraph)
	require.NoError(t, err)

	res, err := e.svc.ReorderBlock(context.Background(), page.ID, ins.Block.ID, first, outline.Before)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	got, err := e.svc.Page(context.Background(), page.ID)
	require.NoError(t, err)
	assert.Equal(t, ins.Block.ID, got.Blocks[0].ID)
}

func TestBackupRoundTrip(t *testing.T) {
	e := newEnv(t)
	ch := e.broker.Subscribe()
	defer e.broker.Unsubscribe(ch)

	page, err := e.svc.CreatePage(context.Background(), "Precious")
	require.NoError(t, err)

	rec, err := e.svc.CreateBackup(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Name)

	require.NoError(t, e.svc.DeletePage(context.Background(), page.ID))

	require.NoError(t, e.svc.RestoreBackup(context.Background(), rec.Path))
	got, err := e.svc.Page(context.Background(), page.ID)
	require.NoError(t, err)
	assert.Equal(t, "Precious", got.Title)

	list, err := e.svc.Backups(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)

	time.Sleep(50 * time.Millisecond)
	events := strings.Join(drain(ch), "")
	assert.Contains(t, events, "backup.created")
	assert.Contains(t, events, "backup.restored")
}

func TestExportImportRoundTrip(t *testing.T) {
	e := newEnv(t)
	page, err := e.svc.CreatePage(context.Background(), "Doc")
	require.NoError(t, err)

	_, err = e.svc.UpdatePage(context.Background(), page.ID, workspace.PageUpdate{Blocks: []models.Block{
		{ID: page.Blocks[0].ID, Type: models.TypeHeading1, Content: "Doc"},
		{ID: "b2", Type: models.TypeListItem, Content: "first item", Level: 1},
	}})
	require.NoError(t, err)

	out, err := e.svc.ExportPage(context.Background(), page.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "# Doc")
	assert.Contains(t, out, "- first item")

	rep, err := e.svc.ImportMarkdown(context.Background(), out, "")
	require.NoError(t, err)
	assert.Equal(t, "Doc", rep.Page.Title)
	assert.Empty(t, rep.Warnings)
	require.Len(t, rep.Page.Blocks, 2)
	assert.Equal(t, models.TypeHeading1, rep.Page.Blocks[0].Type)
	assert.Equal(t, models.TypeListItem, rep.Page.Blocks[1].Type)
}

func TestSearchDelegatesToIndex(t *testing.T) {
	e := newEnv(t)
	e.idx.results = []index.SearchResult{{PageID: "p1", BlockID: "b1", PageTitle: "T", Snippet: "hit"}}

	results, err := e.svc.Search(context.Background(), "hit", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].PageID)
}

func TestSearchWithoutIndex(t *testing.T) {
	e := newEnv(t)
	svc := NewService(e.ws, nil, nil, nil, slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	results, err := svc.Search(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
