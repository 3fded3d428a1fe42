package schema

import (
	"strings"

	"github.com/starford/testrack/internal/models"
)

// SuiteResult is the outcome of ValidateSuite. Data is set only when OK.
type SuiteResult struct {
	OK       bool          `json:"ok"`
	Data     *models.Suite `json:"data,omitempty"`
	Errors   []Diagnostic  `json:"errors"`
	Warnings []Diagnostic  `json:"warnings"`
}

// Err returns a *ValidationError when the result is not OK.
func (r SuiteResult) Err() error {
	if r.OK {
		return nil
	}
	return &ValidationError{Errors: r.Errors}
}

// CaseResult is the outcome of ValidateCase. Data is set only when OK.
type CaseResult struct {
	OK       bool             `json:"ok"`
	Data     *models.TestCase `json:"data,omitempty"`
	Errors   []Diagnostic     `json:"errors"`
	Warnings []Diagnostic     `json:"warnings"`
}

// Err returns a *ValidationError when the result is not OK.
func (r CaseResult) Err() error {
	if r.OK {
		return nil
	}
	return &ValidationError{Errors: r.Errors}
}

// SuiteFields and CaseFields list the declared top-level keys.
var (
	SuiteFields = []string{"id", "title", "tags", "description", "scoped", "owners", "duration", "related", "remarks"}
	CaseFields  = []string{"id", "title", "tags", "description", "scoped", "status", "operations", "related", "remarks", "completedDay", "tests", "issues"}
)

var (
	suiteKeys    = keySet(SuiteFields...)
	caseKeys     = keySet(CaseFields...)
	durationKeys = keySet("scheduled", "actual")
	rangeKeys    = keySet("start", "end")
)

// ValidateSuite strictly validates a suite payload. Keys outside the
// declared shape are errors.
func ValidateSuite(raw models.Record) SuiteResult {
	c := &collector{}
	checkKeys(c, raw, "", suiteKeys)

	s := models.Suite{
		ID:          readID(c, raw, "id", "id"),
		Title:       readRequiredString(c, raw, "title", "title"),
		Tags:        readStringList(c, raw, "tags", "tags"),
		Description: readString(c, raw, "description", "description"),
		Scoped:      readBool(c, raw, "scoped", "scoped"),
		Owners:      readStringList(c, raw, "owners", "owners"),
		Duration:    readDuration(c, raw, "duration", "duration"),
		Related:     readStringList(c, raw, "related", "related"),
		Remarks:     readStringList(c, raw, "remarks", "remarks"),
	}

	if !c.ok() {
		return SuiteResult{Errors: c.errs, Warnings: []Diagnostic{}}
	}
	return SuiteResult{OK: true, Data: &s, Errors: []Diagnostic{}, Warnings: SuiteWarnings(s)}
}

// ValidateCase strictly validates a case payload, including its nested
// test items and issues.
func ValidateCase(raw models.Record) CaseResult {
	c := &collector{}
	checkKeys(c, raw, "", caseKeys)

	tc := models.TestCase{
		ID:           readID(c, raw, "id", "id"),
		Title:        readRequiredString(c, raw, "title", "title"),
		Tags:         readStringList(c, raw, "tags", "tags"),
		Description:  readString(c, raw, "description", "description"),
		Scoped:       readBool(c, raw, "scoped", "scoped"),
		Operations:   readStringList(c, raw, "operations", "operations"),
		Related:      readStringList(c, raw, "related", "related"),
		Remarks:      readStringList(c, raw, "remarks", "remarks"),
		CompletedDay: readNullableDate(c, raw, "completedDay", "completedDay"),
		Tests:        readObjects(c, raw, "tests", "tests", validateTestItem),
		Issues:       readObjects(c, raw, "issues", "issues", validateIssue),
	}
	if s, ok := readEnum(c, raw, "status", "status", models.StatusValues(models.CaseStatuses)); ok {
		st := models.CaseStatus(s)
		tc.Status = &st
	}

	if !c.ok() {
		return CaseResult{Errors: c.errs, Warnings: []Diagnostic{}}
	}
	return CaseResult{OK: true, Data: &tc, Errors: []Diagnostic{}, Warnings: CaseWarnings(tc)}
}

func readDuration(c *collector, raw map[string]any, key, path string) models.Duration {
	v, ok := raw[key]
	if !ok {
		c.add(path, "is required")
		return models.Duration{}
	}
	m, ok := AsMap(v)
	if !ok {
		c.addf(path, "expected object, received %s", typeName(v))
		return models.Duration{}
	}
	checkKeys(c, m, path, durationKeys)
	return models.Duration{
		Scheduled: readRange(c, m, "scheduled", Join(path, "scheduled")),
		Actual:    readRange(c, m, "actual", Join(path, "actual")),
	}
}

func readRange(c *collector, raw map[string]any, key, path string) models.DateRange {
	v, ok := raw[key]
	if !ok {
		c.add(path, "is required")
		return models.DateRange{}
	}
	m, ok := AsMap(v)
	if !ok {
		c.addf(path, "expected object, received %s", typeName(v))
		return models.DateRange{}
	}
	checkKeys(c, m, path, rangeKeys)
	return models.DateRange{
		Start: readDate(c, m, "start", Join(path, "start")),
		End:   readDate(c, m, "end", Join(path, "end")),
	}
}

// SuiteWarnings flags structurally valid but semantically empty suite data.
func SuiteWarnings(s models.Suite) []Diagnostic {
	w := []Diagnostic{}
	w = emptyList(w, "tags", s.Tags)
	w = blank(w, "description", s.Description)
	w = emptyList(w, "owners", s.Owners)
	w = emptyList(w, "related", s.Related)
	w = emptyList(w, "remarks", s.Remarks)
	return w
}

// CaseWarnings flags structurally valid but semantically empty case data.
func CaseWarnings(tc models.TestCase) []Diagnostic {
	w := []Diagnostic{}
	w = emptyList(w, "tags", tc.Tags)
	w = blank(w, "description", tc.Description)
	w = emptyList(w, "operations", tc.Operations)
	w = emptyList(w, "related", tc.Related)
	w = emptyList(w, "remarks", tc.Remarks)
	if len(tc.Tests) == 0 {
		w = append(w, Diagnostic{Path: "tests", Message: "tests is empty"})
	}
	if len(tc.Issues) == 0 {
		w = append(w, Diagnostic{Path: "issues", Message: "issues is empty"})
	}
	return w
}

func emptyList(w []Diagnostic, path string, list []string) []Diagnostic {
	if len(list) == 0 {
		w = append(w, Diagnostic{Path: path, Message: path + " is empty"})
	}
	return w
}

func blank(w []Diagnostic, path, s string) []Diagnostic {
	if strings.TrimSpace(s) == "" {
		w = append(w, Diagnostic{Path: path, Message: path + " is blank"})
	}
	return w
}
