package schema

import (
	"github.com/starford/testrack/internal/models"
)

// Legacy issue field names and the canonical field each one folds into.
// "solutinos" is a historical misspelling found in older files.
var legacyIssueFields = []struct{ legacy, canonical string }{
	{"cause", "causes"},
	{"solution", "solutions"},
	{"solutinos", "solutions"},
}

var issueKeys = keySet(
	"incident", "owners", "causes", "solutions", "status",
	"detectedDay", "completedDay", "related", "remarks",
)

// FoldLegacyIssueFields returns a copy of raw where the legacy cause and
// solution spellings have been moved onto their canonical keys. A legacy
// key is dropped when its canonical key is already present; those keys are
// returned in shadowed so callers can report them. A bare string under a
// legacy key becomes a one-element list.
func FoldLegacyIssueFields(raw map[string]any) (folded map[string]any, shadowed []string) {
	folded = make(map[string]any, len(raw))
	for k, v := range raw {
		folded[k] = v
	}
	for _, f := range legacyIssueFields {
		v, ok := folded[f.legacy]
		if !ok {
			continue
		}
		delete(folded, f.legacy)
		if _, exists := folded[f.canonical]; exists {
			shadowed = append(shadowed, f.legacy)
			continue
		}
		if s, isString := v.(string); isString {
			v = []any{s}
		}
		folded[f.canonical] = v
	}
	return folded, shadowed
}

// ValidateIssue validates one issue payload located at path.
func ValidateIssue(raw map[string]any, path string) (models.Issue, []Diagnostic) {
	c := &collector{}
	is := validateIssue(c, raw, path)
	return is, c.errs
}

func validateIssue(c *collector, raw map[string]any, path string) models.Issue {
	raw, _ = FoldLegacyIssueFields(raw)
	checkKeys(c, raw, path, issueKeys)

	is := models.Issue{
		Incident:     readRequiredString(c, raw, "incident", Join(path, "incident")),
		Owners:       readStringList(c, raw, "owners", Join(path, "owners")),
		Causes:       readStringList(c, raw, "causes", Join(path, "causes")),
		Solutions:    readStringList(c, raw, "solutions", Join(path, "solutions")),
		Status:       models.IssueOpen,
		DetectedDay:  readNullableDate(c, raw, "detectedDay", Join(path, "detectedDay")),
		CompletedDay: readNullableDate(c, raw, "completedDay", Join(path, "completedDay")),
		Related:      readStringList(c, raw, "related", Join(path, "related")),
		Remarks:      readStringList(c, raw, "remarks", Join(path, "remarks")),
	}
	if s, ok := readEnum(c, raw, "status", Join(path, "status"), models.StatusValues(models.IssueStatuses)); ok {
		is.Status = models.IssueStatus(s)
	}
	return is
}

var testItemKeys = keySet("name", "expected", "actual", "trails", "status")

func validateTestItem(c *collector, raw map[string]any, path string) models.TestItem {
	checkKeys(c, raw, path, testItemKeys)

	t := models.TestItem{
		Name:     readRequiredString(c, raw, "name", Join(path, "name")),
		Expected: readString(c, raw, "expected", Join(path, "expected")),
		Actual:   readString(c, raw, "actual", Join(path, "actual")),
		Trails:   readStringList(c, raw, "trails", Join(path, "trails")),
	}
	if s, ok := readEnum(c, raw, "status", Join(path, "status"), models.StatusValues(models.TestStatuses)); ok {
		st := models.TestStatus(s)
		t.Status = &st
	}
	return t
}

// readObjects validates every element of an array of objects with fn.
func readObjects[T any](c *collector, raw map[string]any, key, path string, fn func(*collector, map[string]any, string) T) []T {
	v, ok := raw[key]
	if !ok || v == nil {
		return []T{}
	}
	list, ok := AsList(v)
	if !ok {
		c.addf(path, "expected array, received %s", typeName(v))
		return []T{}
	}
	out := make([]T, 0, len(list))
	for i, item := range list {
		itemPath := Index(path, i)
		m, ok := AsMap(item)
		if !ok {
			c.addf(itemPath, "expected object, received %s", typeName(item))
			continue
		}
		out = append(out, fn(c, m, itemPath))
	}
	return out
}
