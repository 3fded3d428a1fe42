package tracker

import (
	"context"
	"fmt"

	"github.com/starford/testrack/internal/idindex"
	"github.com/starford/testrack/internal/models"
	"github.com/starford/testrack/internal/schema"
)

// LinkResult lists the files a link operation rewrote. Files already in the
// requested state are not touched. Warnings holds, per rewritten path, the
// corrections normalization made to the rest of that file.
type LinkResult struct {
	Changed  []string            `json:"changed"`
	Warnings map[string][]string `json:"warnings"`
}

// Link makes a and b name each other in their related lists.
func (s *Service) Link(_ context.Context, a, b string) (*LinkResult, error) {
	return s.relink(a, b, func(list []string, other string) ([]string, bool) {
		if contains(list, other) {
			return list, false
		}
		return append(append([]string{}, list...), other), true
	})
}

// Unlink removes a and b from each other's related lists.
func (s *Service) Unlink(_ context.Context, a, b string) (*LinkResult, error) {
	return s.relink(a, b, func(list []string, other string) ([]string, bool) {
		out := make([]string, 0, len(list))
		for _, id := range list {
			if id != other {
				out = append(out, id)
			}
		}
		return out, len(out) != len(list)
	})
}

func (s *Service) relink(a, b string, edit func(list []string, other string) ([]string, bool)) (*LinkResult, error) {
	if a == b {
		verr := &schema.ValidationError{Errors: []schema.Diagnostic{{Path: "related", Message: "an entity cannot relate to itself"}}}
		return nil, fmt.Errorf("tracker: link %s: %w", a, verr)
	}
	idx, err := s.index()
	if err != nil {
		return nil, err
	}
	ents := make([]idindex.Entity, 2)
	for i, id := range []string{a, b} {
		ent, err := idindex.Resolve(idx, id)
		if err != nil {
			return nil, fmt.Errorf("tracker: %w", err)
		}
		ents[i] = ent
	}

	res := &LinkResult{Changed: []string{}, Warnings: map[string][]string{}}
	for i, ent := range ents {
		other := ents[1-i].ID
		list, changed := edit(ent.Related, other)
		if !changed {
			continue
		}
		out, err := s.update(ent, models.Record{"related": toAny(list)})
		if err != nil {
			return res, err
		}
		res.Changed = append(res.Changed, ent.Path)
		if len(out.Warnings) > 0 {
			res.Warnings[ent.Path] = out.Warnings
		}
	}
	return res, nil
}

// RelatedChange is one back-reference SyncRelated added. Warnings lists
// the corrections made to the rest of the rewritten file.
type RelatedChange struct {
	ID       string   `json:"id"`
	Path     string   `json:"path"`
	Added    []string `json:"added"`
	Warnings []string `json:"warnings,omitempty"`
}

// SyncReport summarizes a SyncRelated run. Dangling maps a path to related
// ids that resolve to nothing; they are reported, never removed.
type SyncReport struct {
	DryRun   bool                `json:"dryRun"`
	Changes  []RelatedChange     `json:"changes"`
	Failed   []Skipped           `json:"failed"`
	Dangling map[string][]string `json:"dangling"`
}

// SyncRelated makes every resolvable related link bidirectional: when A
// lists B, B gains A. Running it twice makes no further changes.
func (s *Service) SyncRelated(ctx context.Context, dryRun bool) (*SyncReport, error) {
	idx, err := s.index()
	if err != nil {
		return nil, err
	}

	var order []string
	additions := make(map[string][]string)
	for _, ent := range idx.Entities {
		for _, r := range ent.Related {
			target, ok := idindex.ResolveByID(idx, r)
			if !ok || target.ID == ent.ID {
				continue
			}
			if contains(target.Related, ent.ID) || contains(additions[target.ID], ent.ID) {
				continue
			}
			if _, seen := additions[target.ID]; !seen {
				order = append(order, target.ID)
			}
			additions[target.ID] = append(additions[target.ID], ent.ID)
		}
	}

	report := &SyncReport{
		DryRun:   dryRun,
		Changes:  []RelatedChange{},
		Failed:   []Skipped{},
		Dangling: idindex.Dangling(idx),
	}
	for _, id := range order {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		target := idx.ByID[id]
		change := RelatedChange{ID: id, Path: target.Path, Added: additions[id]}
		if !dryRun {
			list := append(append([]string{}, target.Related...), change.Added...)
			out, err := s.update(target, models.Record{"related": toAny(list)})
			if err != nil {
				report.Failed = append(report.Failed, Skipped{Path: target.Path, Error: err.Error()})
				continue
			}
			if len(out.Warnings) > 0 {
				change.Warnings = out.Warnings
			}
		}
		report.Changes = append(report.Changes, change)
	}
	return report, nil
}

func toAny(list []string) []any {
	out := make([]any, len(list))
	for i, s := range list {
		out[i] = s
	}
	return out
}
