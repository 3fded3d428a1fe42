package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/testrack/internal/catalog"
	"github.com/starford/testrack/internal/idindex"
	"github.com/starford/testrack/internal/models"
	"github.com/starford/testrack/internal/parser"
	"github.com/starford/testrack/internal/schema"
)

// FileReport is the validation outcome for one file.
type FileReport struct {
	Path     string              `json:"path"`
	Type     models.Kind         `json:"type"`
	Errors   []schema.Diagnostic `json:"errors"`
	Warnings []schema.Diagnostic `json:"warnings"`
}

// LintReport is the workspace-wide validation outcome.
type LintReport struct {
	Files      []FileReport        `json:"files"`
	Duplicates []idindex.Duplicate `json:"duplicates"`
	Dangling   map[string][]string `json:"dangling"`
	Errors     int                 `json:"errorCount"`
	Warnings   int                 `json:"warningCount"`
	// Cached counts files whose findings came from the catalog because
	// their checksum had not changed since they were last cataloged.
	Cached int `json:"cached"`
}

// OK reports whether the workspace has no blocking problems. Warnings and
// dangling related ids do not count.
func (r *LintReport) OK() bool {
	return r.Errors == 0 && len(r.Duplicates) == 0
}

// Lint strictly validates every entity file in the workspace and reports
// duplicate ids and dangling related references. With a catalog, unchanged
// files reuse their recorded findings and changed ones are re-cataloged.
func (s *Service) Lint(ctx context.Context) (*LintReport, error) {
	metas, err := s.store.List("")
	if err != nil {
		return nil, fmt.Errorf("tracker: lint: %w", err)
	}
	idx, err := s.index()
	if err != nil {
		return nil, err
	}

	cache := s.lintCache()
	report := &LintReport{
		Files:      []FileReport{},
		Duplicates: idx.Duplicates,
		Dangling:   idindex.Dangling(idx),
	}
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		kind, ok := parser.Classify(m.Path)
		if !ok {
			continue
		}
		fr, hit := cache.lookup(m, kind)
		if hit {
			report.Cached++
		} else {
			fr = s.lintFile(m.Path, kind)
			s.recatalog(m.Path)
		}
		report.Errors += len(fr.Errors)
		report.Warnings += len(fr.Warnings)
		report.Files = append(report.Files, fr)
	}
	return report, nil
}

func (s *Service) lintFile(p string, kind models.Kind) FileReport {
	fr := FileReport{Path: p, Type: kind, Errors: []schema.Diagnostic{}, Warnings: []schema.Diagnostic{}}
	raw, err := s.readRecord(p)
	if err != nil {
		fr.Errors = append(fr.Errors, schema.Diagnostic{Message: err.Error()})
		return fr
	}
	switch kind {
	case models.KindSuite:
		res := schema.ValidateSuite(raw)
		fr.Errors, fr.Warnings = res.Errors, res.Warnings
	default:
		res := schema.ValidateCase(raw)
		fr.Errors, fr.Warnings = res.Errors, res.Warnings
	}
	return fr
}

// lintCache is the catalog's view of per-file findings, valid for a file
// while its checksum matches.
type lintCache struct {
	sums  map[string]string
	diags map[string][]catalog.Diagnostic
}

func (s *Service) lintCache() *lintCache {
	if s.cat == nil {
		return nil
	}
	sums, err := s.cat.AllChecksums()
	if err != nil {
		s.logger.Warn("tracker: lint cache unavailable", slog.String("error", err.Error()))
		return nil
	}
	diags, err := s.cat.AllDiagnostics()
	if err != nil {
		s.logger.Warn("tracker: lint cache unavailable", slog.String("error", err.Error()))
		return nil
	}
	return &lintCache{sums: sums, diags: diags}
}

func (c *lintCache) lookup(m models.FileMeta, kind models.Kind) (FileReport, bool) {
	if c == nil {
		return FileReport{}, false
	}
	if sum, ok := c.sums[m.Path]; !ok || sum != m.Checksum {
		return FileReport{}, false
	}
	fr := FileReport{Path: m.Path, Type: kind, Errors: []schema.Diagnostic{}, Warnings: []schema.Diagnostic{}}
	for _, d := range c.diags[m.Path] {
		sd := schema.Diagnostic{Path: d.Location, Message: d.Message}
		if d.Severity == catalog.SeverityError {
			fr.Errors = append(fr.Errors, sd)
		} else {
			fr.Warnings = append(fr.Warnings, sd)
		}
	}
	return fr, true
}

// recatalog refreshes the catalog entry of p after it was linted afresh.
func (s *Service) recatalog(p string) {
	if s.cat == nil {
		return
	}
	data, err := s.store.Read(p)
	if err != nil {
		return
	}
	if err := catalog.IndexFile(s.cat, p, data); err != nil {
		s.logger.Warn("tracker: catalog update failed", slog.String("path", p), slog.String("error", err.Error()))
	}
}
