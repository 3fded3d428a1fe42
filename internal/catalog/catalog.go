package catalog

// Catalog is the set of operations the tracker and watcher need. Depend on
// it rather than *DB so tests can substitute a fake.
type Catalog interface {
	Upsert(row EntityRow, body string, related []string, diags []Diagnostic) error
	Delete(path string) error
	Search(q Query) ([]SearchResult, error)
	Diagnostics(path string) ([]Diagnostic, error)
	AllDiagnostics() (map[string][]Diagnostic, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ Catalog = (*DB)(nil)
