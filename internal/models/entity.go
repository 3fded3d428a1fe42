// Package models defines the domain types for testrack.
package models

// Record is an untyped entity payload as it arrives from parsed YAML or JSON.
// Every engine entry point accepts a Record and enumerates its fields
// explicitly; nothing is copied by reflection.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Kind distinguishes suites from cases in the id index.
type Kind string

// Entity kinds.
const (
	KindSuite Kind = "suite"
	KindCase  Kind = "case"
)

// DateRange is an inclusive calendar window. Start and End are YYYY-MM-DD.
type DateRange struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// Duration holds the scheduled and actual execution windows of a suite.
type Duration struct {
	Scheduled DateRange `yaml:"scheduled" json:"scheduled"`
	Actual    DateRange `yaml:"actual" json:"actual"`
}

// Suite is a named collection of test cases sharing an execution window.
type Suite struct {
	ID          string   `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Tags        []string `yaml:"tags" json:"tags"`
	Description string   `yaml:"description" json:"description"`
	Scoped      bool     `yaml:"scoped" json:"scoped"`
	Owners      []string `yaml:"owners" json:"owners"`
	Duration    Duration `yaml:"duration" json:"duration"`
	Related     []string `yaml:"related" json:"related"`
	Remarks     []string `yaml:"remarks" json:"remarks"`
}

// TestCase is a single test scenario.
type TestCase struct {
	ID           string      `yaml:"id" json:"id"`
	Title        string      `yaml:"title" json:"title"`
	Tags         []string    `yaml:"tags" json:"tags"`
	Description  string      `yaml:"description" json:"description"`
	Scoped       bool        `yaml:"scoped" json:"scoped"`
	Status       *CaseStatus `yaml:"status" json:"status"`
	Operations   []string    `yaml:"operations" json:"operations"`
	Related      []string    `yaml:"related" json:"related"`
	Remarks      []string    `yaml:"remarks" json:"remarks"`
	CompletedDay *string     `yaml:"completedDay" json:"completedDay"`
	Tests        []TestItem  `yaml:"tests" json:"tests"`
	Issues       []Issue     `yaml:"issues" json:"issues"`
}

// IsDone reports whether the case status is done.
func (c *TestCase) IsDone() bool {
	return c.Status != nil && *c.Status == CaseDone
}

// TestItem is one expected/actual check inside a case.
type TestItem struct {
	Name     string      `yaml:"name" json:"name"`
	Expected string      `yaml:"expected" json:"expected"`
	Actual   string      `yaml:"actual" json:"actual"`
	Trails   []string    `yaml:"trails" json:"trails"`
	Status   *TestStatus `yaml:"status" json:"status"`
}

// Issue is an incident attached to a case.
type Issue struct {
	Incident     string      `yaml:"incident" json:"incident"`
	Owners       []string    `yaml:"owners" json:"owners"`
	Causes       []string    `yaml:"causes" json:"causes"`
	Solutions    []string    `yaml:"solutions" json:"solutions"`
	Status       IssueStatus `yaml:"status" json:"status"`
	DetectedDay  *string     `yaml:"detectedDay" json:"detectedDay"`
	CompletedDay *string     `yaml:"completedDay" json:"completedDay"`
	Related      []string    `yaml:"related" json:"related"`
	Remarks      []string    `yaml:"remarks" json:"remarks"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
