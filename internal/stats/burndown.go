// Package stats computes status summaries and planned-vs-actual burndown
// curves over a set of test cases.
package stats

import (
	"math"
	"time"

	"github.com/starford/testrack/internal/models"
	"github.com/starford/testrack/internal/schema"
)

// Anomalies reported by CalculateBurndown.
const (
	AnomalyNoTargetCases    = "no_target_cases"
	AnomalyInvalidDateRange = "invalid_date_range"
)

// Summary counts cases by status. Cases with a null status count toward
// Total only.
type Summary struct {
	Todo  int `json:"todo"`
	Doing int `json:"doing"`
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Bucket is one calendar day of the burndown.
type Bucket struct {
	Date             string `json:"date"`
	PlannedCompleted int    `json:"plannedCompleted"`
	ActualCompleted  int    `json:"actualCompleted"`
}

// Burndown is the result of CalculateBurndown.
type Burndown struct {
	Summary   Summary  `json:"summary"`
	Buckets   []Bucket `json:"buckets"`
	Anomalies []string `json:"anomalies"`
}

// Summarize counts cases by status. No filtering is applied.
func Summarize(cases []models.TestCase) Summary {
	var s Summary
	for _, c := range cases {
		s.Total++
		if c.Status == nil {
			continue
		}
		switch *c.Status {
		case models.CaseTodo:
			s.Todo++
		case models.CaseDoing:
			s.Doing++
		case models.CaseDone:
			s.Done++
		}
	}
	return s
}

// CalculateBurndown builds one bucket per day from start to end inclusive.
// Planned completion is a linear burn-up across the window; actual
// completion counts done cases whose completedDay is on or before the
// bucket date. A start after end short-circuits with no buckets.
func CalculateBurndown(cases []models.TestCase, start, end string) Burndown {
	b := Burndown{
		Summary:   Summarize(cases),
		Buckets:   []Bucket{},
		Anomalies: []string{},
	}
	total := b.Summary.Total
	if total == 0 {
		b.Anomalies = append(b.Anomalies, AnomalyNoTargetCases)
	}

	from, errFrom := time.Parse(schema.DateLayout, start)
	to, errTo := time.Parse(schema.DateLayout, end)
	if errFrom != nil || errTo != nil || start > end {
		b.Anomalies = append(b.Anomalies, AnomalyInvalidDateRange)
		return b
	}

	days := int(to.Sub(from)/(24*time.Hour)) + 1
	for i := 0; i < days; i++ {
		day := from.AddDate(0, 0, i).Format(schema.DateLayout)
		planned := int(math.Ceil(float64(i+1) / float64(days) * float64(total)))
		b.Buckets = append(b.Buckets, Bucket{
			Date:             day,
			PlannedCompleted: min(total, planned),
			ActualCompleted:  completedBy(cases, day),
		})
	}
	return b
}

func completedBy(cases []models.TestCase, day string) int {
	n := 0
	for _, c := range cases {
		if c.IsDone() && c.CompletedDay != nil && *c.CompletedDay <= day {
			n++
		}
	}
	return n
}
