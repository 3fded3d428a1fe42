package stats

import "github.com/starford/testrack/internal/models"

// SuiteReport aggregates the statistics shown for one suite.
type SuiteReport struct {
	SuiteID    string           `json:"suiteId"`
	Window     models.DateRange `json:"window"`
	Burndown   Burndown         `json:"burndown"`
	Tests      map[string]int   `json:"tests"`
	Issues     map[string]int   `json:"issues"`
	OpenIssues int              `json:"openIssues"`
}

// Scoped returns the cases flagged as counting toward statistics.
func Scoped(cases []models.TestCase) []models.TestCase {
	out := make([]models.TestCase, 0, len(cases))
	for _, c := range cases {
		if c.Scoped {
			out = append(out, c)
		}
	}
	return out
}

// ForSuite computes the burndown over the suite's scheduled window using
// only scoped cases, plus test item and issue status counts.
func ForSuite(suite models.Suite, cases []models.TestCase) SuiteReport {
	scoped := Scoped(cases)
	r := SuiteReport{
		SuiteID:  suite.ID,
		Window:   suite.Duration.Scheduled,
		Burndown: CalculateBurndown(scoped, suite.Duration.Scheduled.Start, suite.Duration.Scheduled.End),
		Tests:    map[string]int{"unset": 0},
		Issues:   map[string]int{},
	}
	for _, s := range models.TestStatuses {
		r.Tests[string(s)] = 0
	}
	for _, s := range models.IssueStatuses {
		r.Issues[string(s)] = 0
	}
	for _, c := range scoped {
		for _, t := range c.Tests {
			if t.Status == nil {
				r.Tests["unset"]++
				continue
			}
			r.Tests[string(*t.Status)]++
		}
		for _, is := range c.Issues {
			r.Issues[string(is.Status)]++
			if is.Status != models.IssueResolved {
				r.OpenIssues++
			}
		}
	}
	return r
}
