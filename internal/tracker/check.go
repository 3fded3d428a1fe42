package tracker

import (
	"fmt"

	"github.com/starford/testrack/internal/models"
	"github.com/starford/testrack/internal/normalize"
	"github.com/starford/testrack/internal/parser"
	"github.com/starford/testrack/internal/schema"
)

// CheckResult is the dry-run view of a payload: what strict validation says
// about it as given, and what normalization would turn it into.
type CheckResult struct {
	Type       models.Kind         `json:"type"`
	Valid      bool                `json:"valid"`
	Errors     []schema.Diagnostic `json:"errors"`
	Warnings   []schema.Diagnostic `json:"warnings"`
	Normalized any                 `json:"normalized"`
	// Corrections lists the normalization warnings; NormalizeError is set
	// when even the normalized payload is invalid.
	Corrections    []string `json:"corrections"`
	NormalizeError string   `json:"normalizeError,omitempty"`
}

// Check validates raw as a kind and previews its normalization. Nothing is
// written.
func (s *Service) Check(kind models.Kind, raw models.Record) (*CheckResult, error) {
	id, _ := parser.StringField(raw, "id")
	title, _ := parser.StringField(raw, "title")
	res := &CheckResult{Type: kind, Corrections: []string{}}

	switch kind {
	case models.KindSuite:
		v := schema.ValidateSuite(raw)
		res.Valid, res.Errors, res.Warnings = v.OK, v.Errors, v.Warnings
		defaults, err := normalize.BuildDefaultSuite(id, title, s.now())
		if err != nil {
			res.NormalizeError = err.Error()
			return res, nil
		}
		out, err := normalize.NormalizeSuiteCandidate(raw.Clone(), defaults)
		res.Corrections = out.Warnings
		if err != nil {
			res.NormalizeError = err.Error()
			return res, nil
		}
		res.Normalized = out.Suite
	case models.KindCase:
		v := schema.ValidateCase(raw)
		res.Valid, res.Errors, res.Warnings = v.OK, v.Errors, v.Warnings
		defaults, err := normalize.BuildDefaultCase(id, title)
		if err != nil {
			res.NormalizeError = err.Error()
			return res, nil
		}
		out, err := normalize.NormalizeCaseCandidate(raw.Clone(), defaults)
		res.Corrections = out.Warnings
		if err != nil {
			res.NormalizeError = err.Error()
			return res, nil
		}
		res.Normalized = out.Case
	default:
		return nil, fmt.Errorf("tracker: unknown entity type %q", kind)
	}
	return res, nil
}
