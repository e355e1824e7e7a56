// Package testutil provides shared test helpers for setting up data roots,
// workspace stores, and databases.
package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/workspace"
)

// QuietLogger returns a logger that only reports errors, keeping test output
// readable.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDataRoot creates a temporary data root with a storage.Provider.
func TestDataRoot(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dataRoot := t.TempDir()
	provider, err := storage.NewFS(dataRoot)
	if err != nil {
		t.Fatal(err)
	}
	return dataRoot, provider
}

// TestWorkspace creates a loaded workspace store over a temporary data root.
// The store holds the seeded default workspace.
func TestWorkspace(t *testing.T) (*workspace.Store, storage.Provider) {
	t.Helper()
	_, provider := TestDataRoot(t)
	ws := workspace.NewStore(provider, QuietLogger())
	if _, err := ws.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return ws, provider
}
