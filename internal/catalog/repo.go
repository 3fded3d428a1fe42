package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Severities stored in the diagnostics table.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// EntityRow represents a row in the entities table.
type EntityRow struct {
	Path      string
	ID        string
	Kind      string
	Title     string
	Status    string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// Query selects search hits. Every word of Text must match; Kind and
// Status narrow the result when set, and Related keeps only entities whose
// related list names that id.
type Query struct {
	Text    string `json:"text"`
	Kind    string `json:"kind,omitempty"`
	Status  string `json:"status,omitempty"`
	Related string `json:"related,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return 20
	}
	return q.Limit
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Status  string `json:"status,omitempty"`
	Snippet string `json:"snippet"`
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.ID, &r.Kind, &r.Title, &r.Status, &r.Snippet); err != nil {
			return nil, fmt.Errorf("catalog: scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Diagnostic is a stored validation finding for one file.
type Diagnostic struct {
	Severity string `json:"severity"`
	Location string `json:"location,omitempty"`
	Message  string `json:"message"`
}

// Upsert replaces an entity row, its search text, outgoing relations and
// diagnostics within one transaction.
func (db *DB) Upsert(row EntityRow, body string, related []string, diags []Diagnostic) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if row.Tags == nil {
		row.Tags = []string{}
	}
	tagsJSON, _ := json.Marshal(row.Tags)
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now()
	}

	_, err = tx.Exec(`
		INSERT INTO entities (path, id, kind, title, status, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			id         = excluded.id,
			kind       = excluded.kind,
			title      = excluded.title,
			status     = excluded.status,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, row.Path, row.ID, row.Kind, row.Title, row.Status, row.Checksum, string(tagsJSON), body, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalog: upsert entity: %w", err)
	}

	if err := ftsUpsert(tx, row, body); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM relations WHERE source = ?`, row.Path); err != nil {
		return fmt.Errorf("catalog: clear relations: %w", err)
	}
	if len(related) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO relations (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("catalog: prepare relation insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range related {
			if _, err := stmt.Exec(row.Path, target); err != nil {
				return fmt.Errorf("catalog: insert relation: %w", err)
			}
		}
	}

	if _, err := tx.Exec(`DELETE FROM diagnostics WHERE path = ?`, row.Path); err != nil {
		return fmt.Errorf("catalog: clear diagnostics: %w", err)
	}
	for _, d := range diags {
		if _, err := tx.Exec(`INSERT INTO diagnostics (path, severity, location, message) VALUES (?, ?, ?, ?)`,
			row.Path, d.Severity, d.Location, d.Message); err != nil {
			return fmt.Errorf("catalog: insert diagnostic: %w", err)
		}
	}

	return tx.Commit()
}

// Delete removes an entity row with its search text, relations and
// diagnostics.
func (db *DB) Delete(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM relations WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM diagnostics WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM entities WHERE path = ?`, path)

	return tx.Commit()
}

// AllChecksums returns path → checksum for every cataloged file.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM entities`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Diagnostics returns the findings recorded for path at its last sync.
func (db *DB) Diagnostics(path string) ([]Diagnostic, error) {
	all, err := db.queryDiagnostics(`SELECT path, severity, location, message FROM diagnostics WHERE path = ? ORDER BY rowid`, path)
	if err != nil {
		return nil, err
	}
	return all[path], nil
}

// AllDiagnostics returns the findings of every cataloged file keyed by path.
func (db *DB) AllDiagnostics() (map[string][]Diagnostic, error) {
	return db.queryDiagnostics(`SELECT path, severity, location, message FROM diagnostics ORDER BY path, rowid`)
}

func (db *DB) queryDiagnostics(query string, args ...any) (map[string][]Diagnostic, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: diagnostics: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Diagnostic)
	for rows.Next() {
		var (
			p string
			d Diagnostic
		)
		if err := rows.Scan(&p, &d.Severity, &d.Location, &d.Message); err != nil {
			return nil, err
		}
		out[p] = append(out[p], d)
	}
	return out, rows.Err()
}
