package models

// The ToRecord functions convert typed entities back into the untyped shape
// the validator consumes. Fields are listed by hand so the record always
// carries the full declared shape and nothing else.

// ToRecord converts a suite to its untyped form.
func (s Suite) ToRecord() Record {
	return Record{
		"id":          s.ID,
		"title":       s.Title,
		"tags":        stringList(s.Tags),
		"description": s.Description,
		"scoped":      s.Scoped,
		"owners":      stringList(s.Owners),
		"duration": map[string]any{
			"scheduled": rangeRecord(s.Duration.Scheduled),
			"actual":    rangeRecord(s.Duration.Actual),
		},
		"related": stringList(s.Related),
		"remarks": stringList(s.Remarks),
	}
}

// ToRecord converts a case to its untyped form.
func (c TestCase) ToRecord() Record {
	tests := make([]any, len(c.Tests))
	for i, t := range c.Tests {
		tests[i] = map[string]any(t.ToRecord())
	}
	issues := make([]any, len(c.Issues))
	for i, is := range c.Issues {
		issues[i] = map[string]any(is.ToRecord())
	}
	var status any
	if c.Status != nil {
		status = string(*c.Status)
	}
	return Record{
		"id":           c.ID,
		"title":        c.Title,
		"tags":         stringList(c.Tags),
		"description":  c.Description,
		"scoped":       c.Scoped,
		"status":       status,
		"operations":   stringList(c.Operations),
		"related":      stringList(c.Related),
		"remarks":      stringList(c.Remarks),
		"completedDay": optionalString(c.CompletedDay),
		"tests":        tests,
		"issues":       issues,
	}
}

// ToRecord converts a test item to its untyped form.
func (t TestItem) ToRecord() Record {
	var status any
	if t.Status != nil {
		status = string(*t.Status)
	}
	return Record{
		"name":     t.Name,
		"expected": t.Expected,
		"actual":   t.Actual,
		"trails":   stringList(t.Trails),
		"status":   status,
	}
}

// ToRecord converts an issue to its untyped form.
func (i Issue) ToRecord() Record {
	return Record{
		"incident":     i.Incident,
		"owners":       stringList(i.Owners),
		"causes":       stringList(i.Causes),
		"solutions":    stringList(i.Solutions),
		"status":       string(i.Status),
		"detectedDay":  optionalString(i.DetectedDay),
		"completedDay": optionalString(i.CompletedDay),
		"related":      stringList(i.Related),
		"remarks":      stringList(i.Remarks),
	}
}

func rangeRecord(r DateRange) map[string]any {
	return map[string]any{"start": r.Start, "end": r.End}
}

func stringList(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func optionalString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
