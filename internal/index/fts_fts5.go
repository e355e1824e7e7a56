//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS blocks_fts USING fts5(
			block_id UNINDEXED,
			page_id UNINDEXED,
			title,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, blockID, pageID, title, content string) error {
	_, err := tx.Exec(`INSERT INTO blocks_fts (block_id, page_id, title, content) VALUES (?, ?, ?, ?)`,
		blockID, pageID, title, content)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDeletePage(tx *sql.Tx, pageID string) {
	_, _ = tx.Exec(`DELETE FROM blocks_fts WHERE page_id = ?`, pageID)
}

// Search performs an FTS5 full-text search over block content and page
// titles, returning matches with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT page_id,
		       block_id,
		       title,
		       snippet(blocks_fts, 3, '<b>', '</b>', '...', 64)
		FROM blocks_fts
		WHERE blocks_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.PageID, &r.BlockID, &r.PageTitle, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
