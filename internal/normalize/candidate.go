package normalize

import (
	"fmt"
	"strings"

	"github.com/starford/testrack/internal/apperr"
	"github.com/starford/testrack/internal/models"
	"github.com/starford/testrack/internal/schema"
)

// SuiteOutcome is a normalized, validated suite. Warnings lists every
// correction made to the input; Advisories are the validator's
// semantically-empty warnings for the final entity.
type SuiteOutcome struct {
	Suite      models.Suite        `json:"entity"`
	Warnings   []string            `json:"warnings"`
	Advisories []schema.Diagnostic `json:"advisories"`
}

// CaseOutcome is a normalized, validated case.
type CaseOutcome struct {
	Case       models.TestCase     `json:"entity"`
	Warnings   []string            `json:"warnings"`
	Advisories []schema.Diagnostic `json:"advisories"`
}

var (
	testItemFields = []string{"name", "expected", "actual", "trails", "status"}
	issueFields    = []string{"incident", "owners", "causes", "solutions", "status", "detectedDay", "completedDay", "related", "remarks"}
	durationFields = []string{"scheduled", "actual"}
	rangeFields    = []string{"start", "end"}
)

// NormalizeSuiteCandidate reconciles raw against defaults and validates the
// result. Normalization never fails on its own; the returned error is a
// *schema.ValidationError when the reconciled suite is still invalid.
func NormalizeSuiteCandidate(raw models.Record, defaults models.Suite) (SuiteOutcome, error) {
	n := &normalizer{}
	n.dropUnknown(raw, "", "suite", schema.SuiteFields)

	s := models.Suite{
		ID:          n.str(raw, "id", "id", defaults.ID),
		Title:       n.str(raw, "title", "title", defaults.Title),
		Tags:        n.list(raw, "tags", "tags", defaults.Tags),
		Description: n.str(raw, "description", "description", defaults.Description),
		Scoped:      n.boolean(raw, "scoped", "scoped", defaults.Scoped),
		Owners:      n.list(raw, "owners", "owners", defaults.Owners),
		Duration:    n.duration(raw, defaults.Duration),
		Related:     n.list(raw, "related", "related", defaults.Related),
		Remarks:     n.list(raw, "remarks", "remarks", defaults.Remarks),
	}

	res := schema.ValidateSuite(s.ToRecord())
	if !res.OK {
		return SuiteOutcome{Warnings: n.nonNil()}, fmt.Errorf("normalize: suite: %w", res.Err())
	}
	return SuiteOutcome{Suite: *res.Data, Warnings: n.nonNil(), Advisories: res.Warnings}, nil
}

// NormalizeCaseCandidate reconciles raw against defaults and validates the
// result.
func NormalizeCaseCandidate(raw models.Record, defaults models.TestCase) (CaseOutcome, error) {
	n := &normalizer{}
	n.dropUnknown(raw, "", "case", schema.CaseFields)

	tc := models.TestCase{
		ID:           n.str(raw, "id", "id", defaults.ID),
		Title:        n.str(raw, "title", "title", defaults.Title),
		Tags:         n.list(raw, "tags", "tags", defaults.Tags),
		Description:  n.str(raw, "description", "description", defaults.Description),
		Scoped:       n.boolean(raw, "scoped", "scoped", defaults.Scoped),
		Operations:   n.list(raw, "operations", "operations", defaults.Operations),
		Related:      n.list(raw, "related", "related", defaults.Related),
		Remarks:      n.list(raw, "remarks", "remarks", defaults.Remarks),
		CompletedDay: n.nullableDate(raw, "completedDay", "completedDay", defaults.CompletedDay),
		Tests:        n.tests(raw, defaults.Tests),
		Issues:       n.issues(raw, defaults.Issues),
	}
	def := ""
	if defaults.Status != nil {
		def = string(*defaults.Status)
	}
	if s, ok := n.enum(raw, "status", "status", models.StatusValues(models.CaseStatuses), def, ""); ok {
		st := models.CaseStatus(s)
		tc.Status = &st
	}

	res := schema.ValidateCase(tc.ToRecord())
	if !res.OK {
		return CaseOutcome{Warnings: n.nonNil()}, fmt.Errorf("normalize: case: %w", res.Err())
	}
	return CaseOutcome{Case: *res.Data, Warnings: n.nonNil(), Advisories: res.Warnings}, nil
}

func (n *normalizer) nonNil() []string {
	if n.warnings == nil {
		return []string{}
	}
	return n.warnings
}

func (n *normalizer) duration(raw map[string]any, def models.Duration) models.Duration {
	v, ok := raw["duration"]
	if !ok || v == nil {
		return def
	}
	m, ok := schema.AsMap(v)
	if !ok {
		n.warnf("duration is not an object and was reset to default")
		return def
	}
	n.dropUnknown(m, "duration", "suite", durationFields)
	return models.Duration{
		Scheduled: n.dateRange(m, "scheduled", "duration.scheduled", def.Scheduled),
		Actual:    n.dateRange(m, "actual", "duration.actual", def.Actual),
	}
}

func (n *normalizer) dateRange(raw map[string]any, key, path string, def models.DateRange) models.DateRange {
	v, ok := raw[key]
	if !ok || v == nil {
		return def
	}
	m, ok := schema.AsMap(v)
	if !ok {
		n.warnf("%s is not an object and was reset to default", path)
		return def
	}
	n.dropUnknown(m, path, "suite", rangeFields)
	return models.DateRange{
		Start: n.date(m, "start", schema.Join(path, "start"), def.Start),
		End:   n.date(m, "end", schema.Join(path, "end"), def.End),
	}
}

// objects yields each object element of raw[key]; non-objects are dropped
// with a warning. The bool result is false when raw[key] is absent or
// unusable and the caller should fall back to its default.
func (n *normalizer) objects(raw map[string]any, key string, fn func(m map[string]any, path string)) bool {
	v, ok := raw[key]
	if !ok || v == nil {
		return false
	}
	items, ok := schema.AsList(v)
	if !ok {
		n.warnf("%s is not an array and was reset to default", key)
		return false
	}
	for i, item := range items {
		path := schema.Index(key, i)
		m, ok := schema.AsMap(item)
		if !ok {
			n.warnf("%s is not an object and was removed", path)
			continue
		}
		fn(m, path)
	}
	return true
}

func (n *normalizer) tests(raw map[string]any, def []models.TestItem) []models.TestItem {
	out := []models.TestItem{}
	ok := n.objects(raw, "tests", func(m map[string]any, path string) {
		n.dropUnknown(m, path, "test", testItemFields)
		name := n.str(m, "name", schema.Join(path, "name"), "")
		if name == "" {
			n.warnf("%s has no name and was removed", path)
			return
		}
		t := models.TestItem{
			Name:     name,
			Expected: n.str(m, "expected", schema.Join(path, "expected"), ""),
			Actual:   n.str(m, "actual", schema.Join(path, "actual"), ""),
			Trails:   n.list(m, "trails", schema.Join(path, "trails"), nil),
		}
		if s, ok := n.enum(m, "status", schema.Join(path, "status"), models.StatusValues(models.TestStatuses), "", ""); ok {
			st := models.TestStatus(s)
			t.Status = &st
		}
		out = append(out, t)
	})
	if !ok {
		return append([]models.TestItem{}, def...)
	}
	return out
}

func (n *normalizer) issues(raw map[string]any, def []models.Issue) []models.Issue {
	out := []models.Issue{}
	ok := n.objects(raw, "issues", func(m map[string]any, path string) {
		folded, shadowed := schema.FoldLegacyIssueFields(m)
		for _, k := range shadowed {
			n.warnf("legacy issue field removed: %s", schema.Join(path, k))
		}
		n.dropUnknown(folded, path, "issue", issueFields)
		incident := n.str(folded, "incident", schema.Join(path, "incident"), "")
		if incident == "" {
			n.warnf("%s has no incident and was removed", path)
			return
		}
		is := models.Issue{
			Incident:     incident,
			Owners:       n.list(folded, "owners", schema.Join(path, "owners"), nil),
			Causes:       n.list(folded, "causes", schema.Join(path, "causes"), nil),
			Solutions:    n.list(folded, "solutions", schema.Join(path, "solutions"), nil),
			DetectedDay:  n.nullableDate(folded, "detectedDay", schema.Join(path, "detectedDay"), nil),
			CompletedDay: n.nullableDate(folded, "completedDay", schema.Join(path, "completedDay"), nil),
			Related:      n.list(folded, "related", schema.Join(path, "related"), nil),
			Remarks:      n.list(folded, "remarks", schema.Join(path, "remarks"), nil),
		}
		open := string(models.IssueOpen)
		st, _ := n.enum(folded, "status", schema.Join(path, "status"), models.StatusValues(models.IssueStatuses), open, open)
		is.Status = models.IssueStatus(st)
		out = append(out, is)
	})
	if !ok {
		return append([]models.Issue{}, def...)
	}
	return out
}

// MergePatch shallow-merges patch over current. The id key is rejected when
// it differs from the current id.
func MergePatch(current, patch models.Record) (models.Record, error) {
	merged := current.Clone()
	for k, v := range patch {
		if k == "id" {
			if s, ok := v.(string); !ok || strings.TrimSpace(s) != fmt.Sprint(current["id"]) {
				verr := &schema.ValidationError{Errors: []schema.Diagnostic{{Path: "id", Message: "id is immutable"}}}
				return nil, fmt.Errorf("normalize: merge: %w: %w", apperr.ErrImmutableID, verr)
			}
			continue
		}
		merged[k] = v
	}
	return merged, nil
}
