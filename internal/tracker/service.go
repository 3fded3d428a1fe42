// Package tracker implements the workspace operations behind the CLI and the
// MCP server: create, read, update, delete, templates, related-link upkeep,
// lint, listing with filters and suite statistics. Every mutation goes
// through normalization and strict validation before an atomic rewrite.
package tracker

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/starford/testrack/internal/apperr"
	"github.com/starford/testrack/internal/catalog"
	"github.com/starford/testrack/internal/idindex"
	"github.com/starford/testrack/internal/models"
	"github.com/starford/testrack/internal/parser"
	"github.com/starford/testrack/internal/schema"
	"github.com/starford/testrack/internal/storage"
)

// ErrNoCatalog is returned by Search when the service runs without a catalog.
var ErrNoCatalog = errors.New("tracker: search catalog not configured")

// Document is one loaded, strictly valid entity. Exactly one of Suite and
// Case is set.
type Document struct {
	Type       models.Kind         `json:"type"`
	Path       string              `json:"path"`
	Suite      *models.Suite       `json:"suite,omitempty"`
	Case       *models.TestCase    `json:"testcase,omitempty"`
	Advisories []schema.Diagnostic `json:"advisories"`
}

// ID returns the entity id.
func (d *Document) ID() string {
	if d.Suite != nil {
		return d.Suite.ID
	}
	if d.Case != nil {
		return d.Case.ID
	}
	return ""
}

// Title returns the entity title.
func (d *Document) Title() string {
	if d.Suite != nil {
		return d.Suite.Title
	}
	if d.Case != nil {
		return d.Case.Title
	}
	return ""
}

// Result is the outcome of a mutation. Warnings lists every correction the
// normalizer made to the submitted payload.
type Result struct {
	Document
	Warnings []string `json:"warnings"`
}

// Service coordinates the engine packages over one workspace.
type Service struct {
	store  storage.Provider
	cat    catalog.Catalog
	logger *slog.Logger
	trash  bool
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCatalog keeps cat in step with every write and enables Search.
func WithCatalog(cat catalog.Catalog) Option {
	return func(s *Service) {
		s.cat = cat
	}
}

// WithLogger sets the logger used for skipped files and catalog failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithTrash makes non-hard deletes move files into the workspace trash.
func WithTrash(enabled bool) Option {
	return func(s *Service) {
		s.trash = enabled
	}
}

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a tracker over store.
func NewService(store storage.Provider, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		trash:  true,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the workspace root.
func (s *Service) Root() string { return s.store.Root() }

func (s *Service) index() (*idindex.Index, error) {
	idx, err := idindex.Build(s.store.Root())
	if err != nil {
		return nil, fmt.Errorf("tracker: %w", err)
	}
	return idx, nil
}

func (s *Service) resolve(id string) (*idindex.Index, idindex.Entity, error) {
	idx, err := s.index()
	if err != nil {
		return nil, idindex.Entity{}, err
	}
	ent, err := idindex.Resolve(idx, id)
	if err != nil {
		return nil, idindex.Entity{}, fmt.Errorf("tracker: %w", err)
	}
	return idx, ent, nil
}

func (s *Service) readRecord(p string) (models.Record, error) {
	data, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("tracker: %s: %w", p, apperr.ErrNotFound)
		}
		return nil, err
	}
	raw, err := parser.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("tracker: %s: %w", p, err)
	}
	return raw, nil
}

// load reads and strictly validates the file at p as kind.
func (s *Service) load(p string, kind models.Kind) (*Document, error) {
	raw, err := s.readRecord(p)
	if err != nil {
		return nil, err
	}
	doc := &Document{Type: kind, Path: p}
	switch kind {
	case models.KindSuite:
		res := schema.ValidateSuite(raw)
		if !res.OK {
			return nil, fmt.Errorf("tracker: %s: %w", p, res.Err())
		}
		doc.Suite, doc.Advisories = res.Data, res.Warnings
	default:
		res := schema.ValidateCase(raw)
		if !res.OK {
			return nil, fmt.Errorf("tracker: %s: %w", p, res.Err())
		}
		doc.Case, doc.Advisories = res.Data, res.Warnings
	}
	return doc, nil
}

// Skipped names a file that could not be loaded while scanning.
type Skipped struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// loadAll loads every entity of kind (all kinds when empty) located under
// dir. Invalid files are reported in skipped rather than failing the scan.
func (s *Service) loadAll(idx *idindex.Index, kind models.Kind, dir string) (docs []*Document, skipped []Skipped) {
	skipped = []Skipped{}
	for _, ent := range idx.Entities {
		if kind != "" && ent.Type != kind {
			continue
		}
		if !within(dir, ent.Path) {
			continue
		}
		doc, err := s.load(ent.Path, ent.Type)
		if err != nil {
			s.logger.Warn("tracker: skipping invalid entity",
				slog.String("path", ent.Path),
				slog.String("error", err.Error()))
			skipped = append(skipped, Skipped{Path: ent.Path, Error: err.Error()})
			continue
		}
		docs = append(docs, doc)
	}
	return docs, skipped
}

// within reports whether the forward-slash path p lies under dir.
func within(dir, p string) bool {
	dir = strings.Trim(path.Clean("/"+dir), "/")
	if dir == "" {
		return true
	}
	return strings.HasPrefix(p, dir+"/")
}

// write encodes v, writes it atomically to p and refreshes the catalog.
func (s *Service) write(p string, v any) error {
	data, err := parser.Encode(v)
	if err != nil {
		return err
	}
	if err := s.store.Write(p, data); err != nil {
		return fmt.Errorf("tracker: write %s: %w", p, err)
	}
	if s.cat != nil {
		if err := catalog.IndexFile(s.cat, p, data); err != nil {
			s.logger.Warn("tracker: catalog update failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
	return nil
}

func (s *Service) uncatalog(p string) {
	if s.cat == nil {
		return
	}
	if err := s.cat.Delete(p); err != nil {
		s.logger.Warn("tracker: catalog delete failed", slog.String("path", p), slog.String("error", err.Error()))
	}
}

func (s *Service) today() string {
	return s.now().Format(schema.DateLayout)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
