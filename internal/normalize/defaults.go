// Package normalize reconciles loosely shaped input (hand-edited YAML,
// agent-built JSON, legacy files) into schema-valid entities, emitting a
// warning for every value it discards or coerces.
package normalize

import (
	"fmt"
	"time"

	"github.com/starford/testrack/internal/models"
	"github.com/starford/testrack/internal/schema"
)

// BuildDefaultSuite returns a validated suite with every optional field at
// its default. Both duration windows collapse onto today.
func BuildDefaultSuite(id, title string, today time.Time) (models.Suite, error) {
	day := today.Format(schema.DateLayout)
	s := models.Suite{
		ID:          id,
		Title:       title,
		Tags:        []string{},
		Description: "",
		Scoped:      true,
		Owners:      []string{},
		Duration: models.Duration{
			Scheduled: models.DateRange{Start: day, End: day},
			Actual:    models.DateRange{Start: day, End: day},
		},
		Related: []string{},
		Remarks: []string{},
	}
	if err := schema.ValidateSuite(s.ToRecord()).Err(); err != nil {
		return models.Suite{}, fmt.Errorf("normalize: default suite: %w", err)
	}
	return s, nil
}

// BuildDefaultCase returns a validated case in the todo state.
func BuildDefaultCase(id, title string) (models.TestCase, error) {
	todo := models.CaseTodo
	tc := models.TestCase{
		ID:           id,
		Title:        title,
		Tags:         []string{},
		Description:  "",
		Scoped:       true,
		Status:       &todo,
		Operations:   []string{},
		Related:      []string{},
		Remarks:      []string{},
		CompletedDay: nil,
		Tests:        []models.TestItem{},
		Issues:       []models.Issue{},
	}
	if err := schema.ValidateCase(tc.ToRecord()).Err(); err != nil {
		return models.TestCase{}, fmt.Errorf("normalize: default case: %w", err)
	}
	return tc, nil
}
