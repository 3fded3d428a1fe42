package filter

import "github.com/starford/testrack/internal/models"

// Date field names understood by the subjects built here.
const (
	FieldCompletedDay   = "completedDay"
	FieldScheduledStart = "scheduled.start"
	FieldScheduledEnd   = "scheduled.end"
	FieldActualStart    = "actual.start"
	FieldActualEnd      = "actual.end"
)

// SubjectFromCase projects a case. Owners are the union of its issue
// owners; test statuses come from its test items.
func SubjectFromCase(c models.TestCase) Subject {
	s := Subject{
		Tags:             c.Tags,
		Dates:            map[string]string{},
		DefaultDateField: FieldCompletedDay,
	}
	if c.Status != nil {
		s.Status = string(*c.Status)
	}
	if c.CompletedDay != nil {
		s.Dates[FieldCompletedDay] = *c.CompletedDay
	}
	for _, t := range c.Tests {
		if t.Status != nil && !contains(s.TestStatuses, string(*t.Status)) {
			s.TestStatuses = append(s.TestStatuses, string(*t.Status))
		}
	}
	for _, is := range c.Issues {
		for _, o := range is.Owners {
			if !contains(s.Owners, o) {
				s.Owners = append(s.Owners, o)
			}
		}
	}
	return s
}

// SubjectFromSuite projects a suite. Suites have no status, so any
// testcaseStatus or testStatus condition fails for them.
func SubjectFromSuite(st models.Suite) Subject {
	return Subject{
		Tags:   st.Tags,
		Owners: st.Owners,
		Dates: map[string]string{
			FieldScheduledStart: st.Duration.Scheduled.Start,
			FieldScheduledEnd:   st.Duration.Scheduled.End,
			FieldActualStart:    st.Duration.Actual.Start,
			FieldActualEnd:      st.Duration.Actual.End,
		},
		DefaultDateField: FieldScheduledStart,
	}
}
