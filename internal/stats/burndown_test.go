package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/testrack/internal/models"
)

func caseWith(status models.CaseStatus, completed string) models.TestCase {
	c := models.TestCase{ID: "c", Title: "c", Status: &status, Scoped: true}
	if completed != "" {
		c.CompletedDay = models.StringPtr(completed)
	}
	return c
}

func TestCalculateBurndown_NoCases(t *testing.T) {
	b := CalculateBurndown(nil, "2026-01-01", "2026-01-01")

	assert.Equal(t, 0, b.Summary.Total)
	assert.Contains(t, b.Anomalies, AnomalyNoTargetCases)
	require.Len(t, b.Buckets, 1)
	assert.Equal(t, Bucket{Date: "2026-01-01"}, b.Buckets[0])
}

func TestCalculateBurndown_StartAfterEnd(t *testing.T) {
	cases := []models.TestCase{caseWith(models.CaseTodo, "")}
	b := CalculateBurndown(cases, "2026-01-05", "2026-01-01")

	assert.Empty(t, b.Buckets)
	assert.NotNil(t, b.Buckets)
	assert.Equal(t, []string{AnomalyInvalidDateRange}, b.Anomalies)
	assert.Equal(t, 1, b.Summary.Total)
}

func TestCalculateBurndown_UnparseableDates(t *testing.T) {
	b := CalculateBurndown([]models.TestCase{caseWith(models.CaseTodo, "")}, "2026-02-30", "2026-03-01")
	assert.Equal(t, []string{AnomalyInvalidDateRange}, b.Anomalies)
	assert.Empty(t, b.Buckets)
}

func TestCalculateBurndown_ActualCompleted(t *testing.T) {
	cases := []models.TestCase{caseWith(models.CaseDone, "2026-02-21")}
	b := CalculateBurndown(cases, "2026-02-20", "2026-02-22")

	require.Len(t, b.Buckets, 3)
	actual := []int{b.Buckets[0].ActualCompleted, b.Buckets[1].ActualCompleted, b.Buckets[2].ActualCompleted}
	assert.Equal(t, []int{0, 1, 1}, actual)
	assert.Equal(t, "2026-02-20", b.Buckets[0].Date)
	assert.Equal(t, "2026-02-22", b.Buckets[2].Date)
	assert.Empty(t, b.Anomalies)
}

func TestCalculateBurndown_PlannedIsLinear(t *testing.T) {
	cases := []models.TestCase{
		caseWith(models.CaseTodo, ""),
		caseWith(models.CaseDoing, ""),
		caseWith(models.CaseDone, "2026-03-01"),
		{ID: "null", Title: "null"},
	}
	b := CalculateBurndown(cases, "2026-03-01", "2026-03-03")

	assert.Equal(t, Summary{Todo: 1, Doing: 1, Done: 1, Total: 4}, b.Summary)
	planned := make([]int, len(b.Buckets))
	for i, bk := range b.Buckets {
		planned[i] = bk.PlannedCompleted
	}
	// ceil(1/3*4)=2, ceil(2/3*4)=3, ceil(3/3*4)=4
	assert.Equal(t, []int{2, 3, 4}, planned)
}

func TestCalculateBurndown_DoneWithoutDayNotCounted(t *testing.T) {
	cases := []models.TestCase{
		caseWith(models.CaseDone, ""),
		caseWith(models.CaseDoing, "2026-01-01"),
	}
	b := CalculateBurndown(cases, "2026-01-01", "2026-01-02")
	for _, bk := range b.Buckets {
		assert.Equal(t, 0, bk.ActualCompleted, bk.Date)
	}
}

func TestCalculateBurndown_CrossesMonthBoundary(t *testing.T) {
	b := CalculateBurndown([]models.TestCase{caseWith(models.CaseTodo, "")}, "2024-02-28", "2024-03-01")
	require.Len(t, b.Buckets, 3)
	assert.Equal(t, "2024-02-29", b.Buckets[1].Date)
}

func TestForSuite_UsesScopedCasesAndScheduledWindow(t *testing.T) {
	suite := models.Suite{
		ID: "s",
		Duration: models.Duration{
			Scheduled: models.DateRange{Start: "2026-04-01", End: "2026-04-02"},
		},
	}
	pass := models.TestPass
	done := caseWith(models.CaseDone, "2026-04-01")
	done.Tests = []models.TestItem{{Name: "a", Status: &pass}, {Name: "b"}}
	done.Issues = []models.Issue{{Incident: "x", Status: models.IssueOpen}, {Incident: "y", Status: models.IssueResolved}}
	unscoped := caseWith(models.CaseTodo, "")
	unscoped.Scoped = false

	r := ForSuite(suite, []models.TestCase{done, unscoped})

	assert.Equal(t, 1, r.Burndown.Summary.Total)
	require.Len(t, r.Burndown.Buckets, 2)
	assert.Equal(t, 1, r.Burndown.Buckets[0].ActualCompleted)
	assert.Equal(t, 1, r.Tests["pass"])
	assert.Equal(t, 1, r.Tests["unset"])
	assert.Equal(t, 1, r.Issues["open"])
	assert.Equal(t, 1, r.Issues["resolved"])
	assert.Equal(t, 1, r.OpenIssues)
}
