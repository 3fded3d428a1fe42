package catalog

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/testrack/internal/checksum"
	"github.com/starford/testrack/internal/models"
	"github.com/starford/testrack/internal/parser"
	"github.com/starford/testrack/internal/schema"
	"github.com/starford/testrack/internal/storage"
)

// Sync walks the workspace and brings the catalog up to date:
//   - new/changed files are parsed, validated and upserted
//   - files removed from disk are deleted from the catalog
func Sync(db Catalog, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.Delete(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile validates data as the entity kind implied by path and upserts it
// with its diagnostics. Files that fail to parse are still cataloged so
// their parse error shows up in Diagnostics.
func IndexFile(db Catalog, path string, data []byte) error {
	kind, ok := parser.Classify(path)
	if !ok {
		return fmt.Errorf("catalog: %s: not an entity file", path)
	}
	row := EntityRow{
		Path:     path,
		Kind:     string(kind),
		Checksum: checksum.Sum(data),
		Tags:     []string{},
	}

	raw, err := parser.Decode(data)
	if err != nil {
		return db.Upsert(row, "", nil, []Diagnostic{{Severity: SeverityError, Message: err.Error()}})
	}
	row.ID, _ = parser.StringField(raw, "id")
	row.Title, _ = parser.StringField(raw, "title")
	row.Status, _ = parser.StringField(raw, "status")
	row.Tags = parser.StringList(raw, "tags")

	var errs, warns []schema.Diagnostic
	switch kind {
	case models.KindSuite:
		res := schema.ValidateSuite(raw)
		errs, warns = res.Errors, res.Warnings
	default:
		res := schema.ValidateCase(raw)
		errs, warns = res.Errors, res.Warnings
	}
	diags := make([]Diagnostic, 0, len(errs)+len(warns))
	for _, d := range errs {
		diags = append(diags, Diagnostic{Severity: SeverityError, Location: d.Path, Message: d.Message})
	}
	for _, d := range warns {
		diags = append(diags, Diagnostic{Severity: SeverityWarning, Location: d.Path, Message: d.Message})
	}

	return db.Upsert(row, searchText(raw), parser.StringList(raw, "related"), diags)
}

// searchText flattens the human-written fields of an entity into one blob.
func searchText(raw models.Record) string {
	var parts []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	for _, key := range []string{"id", "title", "description"} {
		s, _ := parser.StringField(raw, key)
		add(s)
	}
	for _, key := range []string{"operations", "remarks", "owners"} {
		for _, s := range parser.StringList(raw, key) {
			add(s)
		}
	}
	for _, key := range []string{"tests", "issues"} {
		items, _ := schema.AsList(raw[key])
		for _, item := range items {
			m, ok := schema.AsMap(item)
			if !ok {
				continue
			}
			for _, field := range []string{"name", "expected", "actual", "incident"} {
				s, _ := m[field].(string)
				add(s)
			}
			for _, field := range []string{"causes", "solutions"} {
				for _, s := range parser.StringList(models.Record(m), field) {
					add(s)
				}
			}
		}
	}
	return strings.Join(parts, "\n")
}
