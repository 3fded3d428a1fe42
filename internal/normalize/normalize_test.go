package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/starford/testrack/internal/apperr"
	"github.com/starford/testrack/internal/models"
	"github.com/starford/testrack/internal/schema"
)

var today = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func defaultCase(t *testing.T) models.TestCase {
	t.Helper()
	tc, err := BuildDefaultCase("TC-1", "Checkout")
	require.NoError(t, err)
	return tc
}

func TestBuildDefaultSuite(t *testing.T) {
	s, err := BuildDefaultSuite("smoke", "Smoke run", today)
	require.NoError(t, err)
	assert.True(t, s.Scoped)
	assert.Equal(t, models.DateRange{Start: "2026-03-14", End: "2026-03-14"}, s.Duration.Scheduled)
	assert.Equal(t, s.Duration.Scheduled, s.Duration.Actual)

	_, err = BuildDefaultSuite("bad id", "x", today)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestBuildDefaultCase(t *testing.T) {
	tc := defaultCase(t)
	require.NotNil(t, tc.Status)
	assert.Equal(t, models.CaseTodo, *tc.Status)
	assert.Nil(t, tc.CompletedDay)
	assert.Equal(t, []models.Issue{}, tc.Issues)

	_, err := BuildDefaultCase("TC-1", "")
	assert.Error(t, err)
}

func TestNormalizeCase_StatusCaseFolded(t *testing.T) {
	out, err := NormalizeCaseCandidate(models.Record{"status": "DOING"}, defaultCase(t))
	require.NoError(t, err)
	require.NotNil(t, out.Case.Status)
	assert.Equal(t, models.CaseDoing, *out.Case.Status)
	assert.Equal(t, []string{"status value 'DOING' was normalized to 'doing'"}, out.Warnings)
}

func TestNormalizeCase_InvalidStatusResetsToNull(t *testing.T) {
	out, err := NormalizeCaseCandidate(models.Record{"status": "blocked"}, defaultCase(t))
	require.NoError(t, err)
	assert.Nil(t, out.Case.Status)
	assert.Equal(t, []string{"status value 'blocked' is invalid and was reset to null"}, out.Warnings)
	assert.True(t, schema.ValidateCase(out.Case.ToRecord()).OK)
}

func TestNormalizeCase_AbsentFieldsTakeDefaults(t *testing.T) {
	def := defaultCase(t)
	def.Tags = []string{"smoke"}
	out, err := NormalizeCaseCandidate(models.Record{"title": "  Renamed  "}, def)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", out.Case.Title)
	assert.Equal(t, "TC-1", out.Case.ID)
	assert.Equal(t, []string{"smoke"}, out.Case.Tags)
	assert.Equal(t, models.CaseTodo, *out.Case.Status)
	assert.Empty(t, out.Warnings)
	assert.NotEmpty(t, out.Advisories)
}

func TestNormalizeCase_UnknownKeysDropped(t *testing.T) {
	out, err := NormalizeCaseCandidate(models.Record{
		"priority": 1,
		"tests":    []any{map[string]any{"name": "a", "owner": "kim"}},
	}, defaultCase(t))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"unknown case field removed: priority",
		"unknown test field removed: tests[0].owner",
	}, out.Warnings)
	require.Len(t, out.Case.Tests, 1)
}

func TestNormalizeCase_DropsUnusableNestedItems(t *testing.T) {
	out, err := NormalizeCaseCandidate(models.Record{
		"tests": []any{
			map[string]any{"name": " "},
			"loose",
			map[string]any{"name": "ok", "status": "PASS"},
		},
		"issues": []any{
			map[string]any{"status": "open"},
			map[string]any{"incident": "slow", "status": "wontfix", "cause": "cpu"},
		},
		"tags": []any{"smoke", 7},
	}, defaultCase(t))
	require.NoError(t, err)

	require.Len(t, out.Case.Tests, 1)
	assert.Equal(t, models.TestPass, *out.Case.Tests[0].Status)
	require.Len(t, out.Case.Issues, 1)
	assert.Equal(t, models.IssueOpen, out.Case.Issues[0].Status)
	assert.Equal(t, []string{"cpu"}, out.Case.Issues[0].Causes)
	assert.Equal(t, []string{"smoke"}, out.Case.Tags)
	assert.Equal(t, []string{
		"tags[1] is not a string and was removed",
		"tests[0] has no name and was removed",
		"tests[1] is not an object and was removed",
		"tests[2].status value 'PASS' was normalized to 'pass'",
		"issues[0] has no incident and was removed",
		"issues[1].status value 'wontfix' is invalid and was reset to 'open'",
	}, out.Warnings)
}

func TestNormalizeCase_LegacyShadowedByCanonical(t *testing.T) {
	out, err := NormalizeCaseCandidate(models.Record{
		"issues": []any{map[string]any{"incident": "x", "causes": []any{"a"}, "cause": "b"}},
	}, defaultCase(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, out.Case.Issues[0].Causes)
	assert.Equal(t, []string{"legacy issue field removed: issues[0].cause"}, out.Warnings)
}

func TestNormalizeCase_InvalidDatesResetToNull(t *testing.T) {
	def := defaultCase(t)
	def.CompletedDay = models.StringPtr("2026-01-01")
	out, err := NormalizeCaseCandidate(models.Record{"completedDay": "2026-02-30"}, def)
	require.NoError(t, err)
	assert.Nil(t, out.Case.CompletedDay)
	assert.Len(t, out.Warnings, 1)

	out, err = NormalizeCaseCandidate(models.Record{}, def)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", *out.Case.CompletedDay)
}

func TestNormalize_AcceptsDecodedTimestamps(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

	out, err := NormalizeCaseCandidate(models.Record{"completedDay": day(2)}, defaultCase(t))
	require.NoError(t, err)
	require.NotNil(t, out.Case.CompletedDay)
	assert.Equal(t, "2026-03-02", *out.Case.CompletedDay)
	assert.Empty(t, out.Warnings)

	def, err := BuildDefaultSuite("smoke", "Smoke", today)
	require.NoError(t, err)
	suite, err := NormalizeSuiteCandidate(models.Record{
		"duration": map[string]any{
			"scheduled": map[string]any{"start": day(1), "end": day(3)},
			"actual":    map[string]any{"start": day(1), "end": day(4)},
		},
	}, def)
	require.NoError(t, err)
	assert.Equal(t, models.DateRange{Start: "2026-03-01", End: "2026-03-03"}, suite.Suite.Duration.Scheduled)
	assert.Equal(t, models.DateRange{Start: "2026-03-01", End: "2026-03-04"}, suite.Suite.Duration.Actual)
	assert.Empty(t, suite.Warnings)

	// A clock time is not a calendar day.
	out, err = NormalizeCaseCandidate(models.Record{"completedDay": time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}, defaultCase(t))
	require.NoError(t, err)
	assert.Nil(t, out.Case.CompletedDay)
	assert.Len(t, out.Warnings, 1)
}

func TestNormalizeCase_StillInvalidIsError(t *testing.T) {
	def := defaultCase(t)
	_, err := NormalizeCaseCandidate(models.Record{"id": "has space"}, def)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestNormalizeSuite(t *testing.T) {
	def, err := BuildDefaultSuite("smoke", "Smoke", today)
	require.NoError(t, err)

	out, err := NormalizeSuiteCandidate(models.Record{
		"scoped": "false",
		"duration": map[string]any{
			"scheduled": map[string]any{"start": "2026-04-01", "end": "nope"},
		},
		"owner": "lee",
	}, def)
	require.NoError(t, err)

	assert.False(t, out.Suite.Scoped)
	assert.Equal(t, models.DateRange{Start: "2026-04-01", End: "2026-03-14"}, out.Suite.Duration.Scheduled)
	assert.Equal(t, def.Duration.Actual, out.Suite.Duration.Actual)
	assert.Equal(t, []string{
		"unknown suite field removed: owner",
		"scoped value 'false' was normalized to false",
		"duration.scheduled.end value 'nope' is not a valid date and was reset to '2026-03-14'",
	}, out.Warnings)
}

func TestMergePatch(t *testing.T) {
	current := models.Record{"id": "TC-1", "title": "old", "tags": []any{"a"}}

	merged, err := MergePatch(current, models.Record{"title": "new", "id": "TC-1"})
	require.NoError(t, err)
	assert.Equal(t, "new", merged["title"])
	assert.Equal(t, []any{"a"}, merged["tags"])
	assert.Equal(t, "old", current["title"], "current must not be mutated")

	_, err = MergePatch(current, models.Record{"id": "TC-2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrImmutableID)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

// Normalizing an already valid case must be a no-op without warnings.
func TestNormalizeCase_Idempotent(t *testing.T) {
	base := defaultCase(t)
	rapid.Check(t, func(rt *rapid.T) {
		raw := models.Record{
			"status": rapid.SampledFrom([]any{"todo", "Doing", "DONE", "bogus", nil, 3}).Draw(rt, "status"),
			"tags":   rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,6}`), 0, 3).Draw(rt, "tags"),
			"scoped": rapid.SampledFrom([]any{true, false, "true", "maybe"}).Draw(rt, "scoped"),
		}
		first, err := NormalizeCaseCandidate(raw, base)
		if err != nil {
			rt.Fatalf("first pass: %v", err)
		}
		second, err := NormalizeCaseCandidate(first.Case.ToRecord(), base)
		if err != nil {
			rt.Fatalf("second pass: %v", err)
		}
		if len(second.Warnings) != 0 {
			rt.Fatalf("second pass warned: %v", second.Warnings)
		}
		if !assert.ObjectsAreEqual(first.Case, second.Case) {
			rt.Fatalf("second pass changed case:\n%#v\n%#v", first.Case, second.Case)
		}
	})
}
