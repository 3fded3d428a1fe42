// Package filter evaluates multi-condition predicates over suites and cases
// and explains which conditions matched.
package filter

import (
	"fmt"
	"strings"
)

// Date operators.
const (
	OpOnOrAfter  = "onOrAfter"
	OpOnOrBefore = "onOrBefore"
	OpBetween    = "between"
)

// DateFilter compares one date field of the subject against From (and To
// for OpBetween). Dates compare as YYYY-MM-DD strings.
type DateFilter struct {
	Field    string `json:"field,omitempty"`
	Operator string `json:"operator"`
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
}

// Filters holds the optional conditions. A nil or empty condition is not
// checked at all.
type Filters struct {
	Tags           []string    `json:"tags,omitempty"`
	Owners         []string    `json:"owners,omitempty"`
	TestcaseStatus []string    `json:"testcaseStatus,omitempty"`
	TestStatus     []string    `json:"testStatus,omitempty"`
	Date           *DateFilter `json:"date,omitempty"`
}

// Empty reports whether no condition is set.
func (f Filters) Empty() bool {
	return len(f.Tags) == 0 && len(f.Owners) == 0 && len(f.TestcaseStatus) == 0 &&
		len(f.TestStatus) == 0 && f.Date == nil
}

// Subject is the projection of an entity the engine evaluates. Dates maps a
// field name to its YYYY-MM-DD value; absent fields never match a date
// condition.
type Subject struct {
	Tags         []string
	Owners       []string
	Status       string
	TestStatuses []string
	Dates        map[string]string
	// DefaultDateField is used when DateFilter.Field is empty.
	DefaultDateField string
}

// Evaluation explains the outcome for one subject.
type Evaluation struct {
	Matched           bool     `json:"matched"`
	CheckedConditions int      `json:"checkedConditions"`
	MatchedConditions int      `json:"matchedConditions"`
	Reasons           []string `json:"reasons"`
}

// Evaluate checks every present condition. Within a list condition any
// overlap matches; across conditions all checked ones must match.
func Evaluate(s Subject, f Filters) Evaluation {
	ev := Evaluation{Reasons: []string{}}

	check := func(present bool, matched bool, reason string) {
		if !present {
			return
		}
		ev.CheckedConditions++
		if matched {
			ev.MatchedConditions++
			ev.Reasons = append(ev.Reasons, reason)
		}
	}

	if len(f.Tags) > 0 {
		hit := intersect(f.Tags, s.Tags)
		check(true, len(hit) > 0, "tags matched: "+strings.Join(hit, ", "))
	}
	if len(f.Owners) > 0 {
		hit := intersect(f.Owners, s.Owners)
		check(true, len(hit) > 0, "owners matched: "+strings.Join(hit, ", "))
	}
	if len(f.TestcaseStatus) > 0 {
		ok := s.Status != "" && contains(f.TestcaseStatus, s.Status)
		check(true, ok, "testcaseStatus matched: "+s.Status)
	}
	if len(f.TestStatus) > 0 {
		hit := intersect(f.TestStatus, s.TestStatuses)
		check(true, len(hit) > 0, "testStatus matched: "+strings.Join(hit, ", "))
	}
	if f.Date != nil {
		ok, reason := matchDate(s, *f.Date)
		check(true, ok, reason)
	}

	ev.Matched = ev.CheckedConditions == ev.MatchedConditions
	return ev
}

func matchDate(s Subject, d DateFilter) (bool, string) {
	field := d.Field
	if field == "" {
		field = s.DefaultDateField
	}
	value, ok := s.Dates[field]
	if !ok || value == "" {
		return false, ""
	}
	switch d.Operator {
	case OpOnOrAfter:
		return value >= d.From, fmt.Sprintf("date matched: %s %s on or after %s", field, value, d.From)
	case OpOnOrBefore:
		return value <= d.From, fmt.Sprintf("date matched: %s %s on or before %s", field, value, d.From)
	case OpBetween:
		if d.To == "" {
			return false, ""
		}
		return d.From <= value && value <= d.To,
			fmt.Sprintf("date matched: %s %s between %s and %s", field, value, d.From, d.To)
	default:
		return false, ""
	}
}

// Meta summarizes a filtered list.
type Meta struct {
	Total   int      `json:"total"`
	Matched int      `json:"matched"`
	Reasons []string `json:"reasons"`
}

// Result is the output of Apply.
type Result[T any] struct {
	Items []T  `json:"items"`
	Meta  Meta `json:"meta"`
}

// Apply keeps the items whose subject matches f. Meta.Reasons is the
// de-duplicated union of every matched item's reasons in first-seen order.
func Apply[T any](list []T, subjectOf func(T) Subject, f Filters) Result[T] {
	res := Result[T]{Items: []T{}, Meta: Meta{Total: len(list), Reasons: []string{}}}
	seen := make(map[string]struct{})
	for _, item := range list {
		ev := Evaluate(subjectOf(item), f)
		if !ev.Matched {
			continue
		}
		res.Items = append(res.Items, item)
		for _, r := range ev.Reasons {
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			res.Meta.Reasons = append(res.Meta.Reasons, r)
		}
	}
	res.Meta.Matched = len(res.Items)
	return res
}

func intersect(want, have []string) []string {
	var out []string
	for _, w := range want {
		if contains(have, w) && !contains(out, w) {
			out = append(out, w)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
