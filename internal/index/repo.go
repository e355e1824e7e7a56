package index

import (
	"fmt"
	"time"

	"github.com/starford/ansuz/internal/models"
)

// PageEntry is the unit of indexing: one page with its block sequence and a
// content fingerprint used to skip unchanged pages during sync.
type PageEntry struct {
	ID        string
	Title     string
	Checksum  string
	UpdatedAt time.Time
	Blocks    []models.Block
}

// SearchResult represents one search hit.
type SearchResult struct {
	PageID    string `json:"page_id"`
	BlockID   string `json:"block_id"`
	PageTitle string `json:"page_title"`
	Snippet   string `json:"snippet"`
}

// UpsertPage replaces a page row, its block rows, and its FTS entries within
// a transaction.
func (db *DB) UpsertPage(p PageEntry) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO pages (id, title, checksum, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, p.ID, p.Title, p.Checksum, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert page: %w", err)
	}

	_, _ = tx.Exec(`DELETE FROM blocks WHERE page_id = ?`, p.ID)
	ftsDeletePage(tx, p.ID)

	if len(p.Blocks) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO blocks (id, page_id, type, content, level, position) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare block insert: %w", err)
		}
		defer stmt.Close()
		for i, b := range p.Blocks {
			if _, err := stmt.Exec(b.ID, p.ID, string(b.Type), b.Content, b.Level, i); err != nil {
				return fmt.Errorf("index: insert block: %w", err)
			}
			if err := ftsUpsert(tx, b.ID, p.ID, p.Title, b.Content); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// DeletePage removes a page, its blocks, and their FTS entries.
func (db *DB) DeletePage(pageID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDeletePage(tx, pageID)
	_, _ = tx.Exec(`DELETE FROM blocks WHERE page_id = ?`, pageID)
	_, _ = tx.Exec(`DELETE FROM pages WHERE id = ?`, pageID)

	return tx.Commit()
}

// AllChecksums returns the stored content fingerprint of every indexed page.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}
