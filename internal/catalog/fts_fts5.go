//go:build sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS entities_fts USING fts5(
			path UNINDEXED,
			id,
			title,
			tags,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, row EntityRow, body string) error {
	ftsDelete(tx, row.Path)
	_, err := tx.Exec(`INSERT INTO entities_fts (path, id, title, tags, body) VALUES (?, ?, ?, ?, ?)`,
		row.Path, row.ID, row.Title, strings.Join(row.Tags, " "), body)
	if err != nil {
		return fmt.Errorf("catalog: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM entities_fts WHERE path = ?`, path)
}

// matchExpr quotes every word of text as an FTS5 string so ids like TC-1
// are not read as column filters or operators.
func matchExpr(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		words[i] = `"` + strings.ReplaceAll(w, `"`, `""`) + `"`
	}
	return strings.Join(words, " ")
}

// Search runs an FTS5 query ranked by bm25 and returns snippets of the
// search text.
func (db *DB) Search(q Query) ([]SearchResult, error) {
	expr := matchExpr(q.Text)
	if expr == "" {
		return []SearchResult{}, nil
	}
	rows, err := db.conn.Query(`
		SELECT e.path,
		       e.id,
		       e.kind,
		       e.title,
		       e.status,
		       snippet(entities_fts, 4, '[', ']', '...', 16)
		FROM entities_fts f
		JOIN entities e ON e.path = f.path
		WHERE entities_fts MATCH ?
		  AND (? = '' OR e.kind = ?)
		  AND (? = '' OR e.status = ?)
		  AND (? = '' OR e.path IN (SELECT source FROM relations WHERE target = ?))
		ORDER BY rank
		LIMIT ?
	`, expr, q.Kind, q.Kind, q.Status, q.Status, q.Related, q.Related, q.limit())
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	return scanResults(rows)
}
