//go:build !sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(_ *sql.DB) error {
	return nil
}

func ftsUpsert(_ *sql.Tx, _ EntityRow, _ string) error {
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// Search matches each word of q.Text as a case-insensitive substring of the
// id, title, tags or search text. Hits are ordered by path.
func (db *DB) Search(q Query) ([]SearchResult, error) {
	var (
		where []string
		args  []any
	)
	for _, word := range strings.Fields(q.Text) {
		like := "%" + word + "%"
		where = append(where, "(id LIKE ? OR title LIKE ? OR tags LIKE ? OR body LIKE ?)")
		args = append(args, like, like, like, like)
	}
	if len(where) == 0 {
		return []SearchResult{}, nil
	}
	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, q.Kind)
	}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, q.Status)
	}
	if q.Related != "" {
		where = append(where, "path IN (SELECT source FROM relations WHERE target = ?)")
		args = append(args, q.Related)
	}
	args = append(args, q.limit())

	rows, err := db.conn.Query(`
		SELECT path, id, kind, title, status, substr(body, 1, 200)
		FROM entities
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY path
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	return scanResults(rows)
}
