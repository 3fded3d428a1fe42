package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/starford/testrack/internal/apperr"
	"github.com/starford/testrack/internal/catalog"
	"github.com/starford/testrack/internal/filter"
	"github.com/starford/testrack/internal/idindex"
	"github.com/starford/testrack/internal/models"
	"github.com/starford/testrack/internal/stats"
)

// ListOptions selects what List returns. An empty Type lists both kinds; an
// empty Dir lists the whole workspace.
type ListOptions struct {
	Type    models.Kind    `json:"type,omitempty"`
	Dir     string         `json:"dir,omitempty"`
	Filters filter.Filters `json:"filters"`
}

// ListItem is the summary of one matched entity.
type ListItem struct {
	ID      string      `json:"id"`
	Type    models.Kind `json:"type"`
	Path    string      `json:"path"`
	Title   string      `json:"title"`
	Tags    []string    `json:"tags"`
	Status  *string     `json:"status"`
	Reasons []string    `json:"reasons"`
}

// ListResult holds the matched items, filter metadata and the files that
// were skipped because they failed validation.
type ListResult struct {
	Items   []ListItem  `json:"items"`
	Meta    filter.Meta `json:"meta"`
	Skipped []Skipped   `json:"skipped"`
}

// List loads every valid entity selected by opts and applies the filter
// engine to it.
func (s *Service) List(_ context.Context, opts ListOptions) (*ListResult, error) {
	idx, err := s.index()
	if err != nil {
		return nil, err
	}
	docs, skipped := s.loadAll(idx, opts.Type, opts.Dir)

	res := filter.Apply(docs, subjectOf, opts.Filters)
	out := &ListResult{Items: make([]ListItem, 0, len(res.Items)), Meta: res.Meta, Skipped: skipped}
	for _, d := range res.Items {
		reasons := []string{}
		if !opts.Filters.Empty() {
			reasons = filter.Evaluate(subjectOf(d), opts.Filters).Reasons
		}
		out.Items = append(out.Items, listItem(d, reasons))
	}
	return out, nil
}

func subjectOf(d *Document) filter.Subject {
	if d.Suite != nil {
		return filter.SubjectFromSuite(*d.Suite)
	}
	return filter.SubjectFromCase(*d.Case)
}

func listItem(d *Document, reasons []string) ListItem {
	item := ListItem{ID: d.ID(), Type: d.Type, Path: d.Path, Title: d.Title(), Tags: []string{}, Reasons: reasons}
	switch {
	case d.Suite != nil:
		item.Tags = d.Suite.Tags
	case d.Case != nil:
		item.Tags = d.Case.Tags
		if d.Case.Status != nil {
			st := string(*d.Case.Status)
			item.Status = &st
		}
	}
	return item
}

// SuiteBurndown computes statistics for the suite declared under id. Its
// members are the cases stored anywhere below the suite's directory.
func (s *Service) SuiteBurndown(_ context.Context, id string) (*stats.SuiteReport, error) {
	idx, ent, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	if ent.Type != models.KindSuite {
		return nil, fmt.Errorf("tracker: %q is a %s, not a suite: %w", id, ent.Type, apperr.ErrNotFound)
	}
	doc, err := s.load(ent.Path, ent.Type)
	if err != nil {
		return nil, err
	}
	members, skipped := s.loadAll(idx, models.KindCase, cleanDir(path.Dir(ent.Path)))
	if len(skipped) > 0 {
		s.logger.Warn("tracker: burndown ignores invalid cases",
			slog.String("suite", id),
			slog.Int("skipped", len(skipped)))
	}
	cases := make([]models.TestCase, 0, len(members))
	for _, d := range members {
		cases = append(cases, *d.Case)
	}
	report := stats.ForSuite(*doc.Suite, cases)
	return &report, nil
}

// Search runs a text query against the catalog.
func (s *Service) Search(_ context.Context, q catalog.Query) ([]catalog.SearchResult, error) {
	if s.cat == nil {
		return nil, ErrNoCatalog
	}
	res, err := s.cat.Search(q)
	if err != nil {
		return nil, fmt.Errorf("tracker: search: %w", err)
	}
	return res, nil
}

// Relations is the relationship view of one entity.
type Relations struct {
	Entity       idindex.Entity   `json:"entity"`
	Related      idindex.Related  `json:"related"`
	ReferencedBy []idindex.Entity `json:"referencedBy"`
}

// Related resolves the related ids of the entity declared under id and
// lists the entities that point back at it.
func (s *Service) Related(_ context.Context, id string) (*Relations, error) {
	idx, ent, err := s.resolve(id)
	if err != nil {
		return nil, err
	}
	return &Relations{
		Entity:       ent,
		Related:      idindex.ResolveRelated(idx, ent),
		ReferencedBy: referrers(idx, ent),
	}, nil
}
