package tracker

import (
	"context"
	"fmt"
	"path"

	"github.com/starford/testrack/internal/apperr"
	"github.com/starford/testrack/internal/idindex"
	"github.com/starford/testrack/internal/models"
	"github.com/starford/testrack/internal/normalize"
	"github.com/starford/testrack/internal/parser"
	"github.com/starford/testrack/internal/schema"
)

// CreateInput describes a new entity. Dir is workspace-relative; Fields may
// carry any other declared field and is normalized before writing.
type CreateInput struct {
	Dir    string        `json:"dir"`
	ID     string        `json:"id"`
	Title  string        `json:"title"`
	Fields models.Record `json:"fields,omitempty"`
}

func (in CreateInput) candidate() models.Record {
	raw := models.Record{}
	if in.Fields != nil {
		raw = in.Fields.Clone()
	}
	raw["id"] = in.ID
	if in.Title != "" {
		raw["title"] = in.Title
	}
	return raw
}

func (in CreateInput) title() string {
	if in.Title != "" {
		return in.Title
	}
	t, _ := parser.StringField(in.Fields, "title")
	return t
}

// CreateSuite writes a new suite to <dir>/<id>/index.yaml.
func (s *Service) CreateSuite(_ context.Context, in CreateInput) (*Result, error) {
	p, err := s.claim(in.ID, parser.SuitePath(in.Dir, in.ID))
	if err != nil {
		return nil, err
	}
	defaults, err := normalize.BuildDefaultSuite(in.ID, in.title(), s.now())
	if err != nil {
		return nil, fmt.Errorf("tracker: create suite: %w", err)
	}
	out, err := normalize.NormalizeSuiteCandidate(in.candidate(), defaults)
	if err != nil {
		return nil, fmt.Errorf("tracker: create suite: %w", err)
	}
	if err := s.write(p, out.Suite); err != nil {
		return nil, err
	}
	return &Result{
		Document: Document{Type: models.KindSuite, Path: p, Suite: &out.Suite, Advisories: out.Advisories},
		Warnings: out.Warnings,
	}, nil
}

// CreateCase writes a new case to <dir>/<id>.testcase.yaml.
func (s *Service) CreateCase(_ context.Context, in CreateInput) (*Result, error) {
	p, err := s.claim(in.ID, parser.CasePath(in.Dir, in.ID))
	if err != nil {
		return nil, err
	}
	defaults, err := normalize.BuildDefaultCase(in.ID, in.title())
	if err != nil {
		return nil, fmt.Errorf("tracker: create case: %w", err)
	}
	out, err := normalize.NormalizeCaseCandidate(in.candidate(), defaults)
	if err != nil {
		return nil, fmt.Errorf("tracker: create case: %w", err)
	}
	if err := s.write(p, out.Case); err != nil {
		return nil, err
	}
	return &Result{
		Document: Document{Type: models.KindCase, Path: p, Case: &out.Case, Advisories: out.Advisories},
		Warnings: out.Warnings,
	}, nil
}

// claim checks that id is well formed and unused in the workspace and that
// p is a free location inside the root.
func (s *Service) claim(id, p string) (string, error) {
	if !schema.ValidID(id) {
		verr := &schema.ValidationError{Errors: []schema.Diagnostic{{Path: "id", Message: "must match [A-Za-z0-9_-]+"}}}
		return "", fmt.Errorf("tracker: id %q: %w", id, verr)
	}
	if _, err := s.store.SafePath(p); err != nil {
		return "", fmt.Errorf("tracker: %w", err)
	}
	idx, err := s.index()
	if err != nil {
		return "", err
	}
	if ent, ok := idindex.ResolveByID(idx, id); ok {
		return "", fmt.Errorf("tracker: id %q used by %s: %w", id, ent.Path, apperr.ErrAlreadyExists)
	}
	exists, err := s.store.Exists(p)
	if err != nil {
		return "", fmt.Errorf("tracker: %w", err)
	}
	if exists {
		return "", fmt.Errorf("tracker: %s: %w", p, apperr.ErrAlreadyExists)
	}
	return p, nil
}

// TemplateInput seeds a new entity from an existing one. An empty Dir
// places the copy next to its source.
type TemplateInput struct {
	SourceID string `json:"sourceId"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Dir      string `json:"dir,omitempty"`
}

// CreateFromTemplate copies the content of an existing entity under a new
// id and title. Execution state is reset: a case returns to todo with no
// completion day, results cleared and no issues; a suite's windows collapse
// onto today.
func (s *Service) CreateFromTemplate(ctx context.Context, in TemplateInput) (*Result, error) {
	_, ent, err := s.resolve(in.SourceID)
	if err != nil {
		return nil, err
	}
	src, err := s.load(ent.Path, ent.Type)
	if err != nil {
		return nil, err
	}

	dir := in.Dir
	switch {
	case src.Suite != nil:
		if dir == "" {
			dir = suiteParent(ent.Path)
		}
		seed := *src.Suite
		day := s.today()
		seed.Duration = models.Duration{
			Scheduled: models.DateRange{Start: day, End: day},
			Actual:    models.DateRange{Start: day, End: day},
		}
		return s.CreateSuite(ctx, CreateInput{Dir: dir, ID: in.ID, Title: in.Title, Fields: seedFields(seed.ToRecord())})
	default:
		if dir == "" {
			dir = cleanDir(path.Dir(ent.Path))
		}
		seed := *src.Case
		todo := models.CaseTodo
		seed.Status = &todo
		seed.CompletedDay = nil
		seed.Issues = []models.Issue{}
		seed.Tests = make([]models.TestItem, len(src.Case.Tests))
		for i, t := range src.Case.Tests {
			t.Actual = ""
			t.Status = nil
			seed.Tests[i] = t
		}
		return s.CreateCase(ctx, CreateInput{Dir: dir, ID: in.ID, Title: in.Title, Fields: seedFields(seed.ToRecord())})
	}
}

func seedFields(raw models.Record) models.Record {
	delete(raw, "id")
	delete(raw, "title")
	return raw
}

// suiteParent returns the directory a sibling suite of p belongs in.
func suiteParent(p string) string {
	dir := path.Dir(p)
	if path.Base(p) == parser.SuiteIndexFile {
		dir = path.Dir(dir)
	}
	return cleanDir(dir)
}

func cleanDir(dir string) string {
	if dir == "." {
		return ""
	}
	return dir
}

// Detail is a loaded entity with its relationship context.
type Detail struct {
	Document
	Related      idindex.Related  `json:"related"`
	ReferencedBy []idindex.Entity `json:"referencedBy"`
}

// Get loads the entity declared under id.
func (s *Service) Get(_ context.Context, id string) (*Detail, error) {
	idx, ent, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	doc, err := s.load(ent.Path, ent.Type)
	if err != nil {
		return nil, err
	}
	return &Detail{
		Document:     *doc,
		Related:      idindex.ResolveRelated(idx, ent),
		ReferencedBy: referrers(idx, ent),
	}, nil
}

// referrers lists the entities naming ent in their related list, excluding
// ent itself.
func referrers(idx *idindex.Index, ent idindex.Entity) []idindex.Entity {
	out := []idindex.Entity{}
	for _, r := range idindex.ReferencedBy(idx, ent.ID) {
		if r.Path != ent.Path {
			out = append(out, r)
		}
	}
	return out
}

// Update merges patch over the stored entity, normalizes and validates the
// result and rewrites the file in place. The id cannot change.
func (s *Service) Update(_ context.Context, id string, patch models.Record) (*Result, error) {
	_, ent, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	return s.update(ent, patch)
}

func (s *Service) update(ent idindex.Entity, patch models.Record) (*Result, error) {
	current, err := s.readRecord(ent.Path)
	if err != nil {
		return nil, err
	}
	merged, err := normalize.MergePatch(current, patch)
	if err != nil {
		return nil, fmt.Errorf("tracker: update %s: %w", ent.ID, err)
	}
	title := ent.Title
	if title == "" {
		title = ent.ID
	}

	switch ent.Type {
	case models.KindSuite:
		defaults, err := normalize.BuildDefaultSuite(ent.ID, title, s.now())
		if err != nil {
			return nil, fmt.Errorf("tracker: update %s: %w", ent.ID, err)
		}
		out, err := normalize.NormalizeSuiteCandidate(merged, defaults)
		if err != nil {
			return nil, fmt.Errorf("tracker: update %s: %w", ent.ID, err)
		}
		if err := s.write(ent.Path, out.Suite); err != nil {
			return nil, err
		}
		return &Result{
			Document: Document{Type: models.KindSuite, Path: ent.Path, Suite: &out.Suite, Advisories: out.Advisories},
			Warnings: out.Warnings,
		}, nil
	default:
		defaults, err := normalize.BuildDefaultCase(ent.ID, title)
		if err != nil {
			return nil, fmt.Errorf("tracker: update %s: %w", ent.ID, err)
		}
		out, err := normalize.NormalizeCaseCandidate(merged, defaults)
		if err != nil {
			return nil, fmt.Errorf("tracker: update %s: %w", ent.ID, err)
		}
		if err := s.write(ent.Path, out.Case); err != nil {
			return nil, err
		}
		return &Result{
			Document: Document{Type: models.KindCase, Path: ent.Path, Case: &out.Case, Advisories: out.Advisories},
			Warnings: out.Warnings,
		}, nil
	}
}

// DeleteOptions controls Delete. Confirm must be true; Hard bypasses the
// trash even when the service is configured to use it.
type DeleteOptions struct {
	Confirm bool `json:"confirm"`
	Hard    bool `json:"hard"`
}

// DeleteResult reports what Delete did. ReferencedBy lists entities whose
// related lists still name the deleted id; they are left untouched.
type DeleteResult struct {
	ID           string           `json:"id"`
	Path         string           `json:"path"`
	TrashedTo    string           `json:"trashedTo,omitempty"`
	ReferencedBy []idindex.Entity `json:"referencedBy"`
}

// Delete removes the file declaring id.
func (s *Service) Delete(_ context.Context, id string, opts DeleteOptions) (*DeleteResult, error) {
	if !opts.Confirm {
		return nil, fmt.Errorf("tracker: delete %s: %w", id, apperr.ErrNotConfirmed)
	}
	idx, ent, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	res := &DeleteResult{ID: ent.ID, Path: ent.Path, ReferencedBy: referrers(idx, ent)}
	if s.trash && !opts.Hard {
		to, err := s.store.Trash(ent.Path)
		if err != nil {
			return nil, fmt.Errorf("tracker: delete %s: %w", id, err)
		}
		res.TrashedTo = to
	} else if err := s.store.Delete(ent.Path); err != nil {
		return nil, fmt.Errorf("tracker: delete %s: %w", id, err)
	}
	s.uncatalog(ent.Path)
	return res, nil
}
