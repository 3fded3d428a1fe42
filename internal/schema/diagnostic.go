// Package schema implements strict structural validation of suites, cases
// and issues, plus the advisory warnings pass that runs after a payload is
// accepted.
package schema

import (
	"fmt"
	"strings"

	"github.com/starford/testrack/internal/apperr"
)

// Diagnostic is one error or warning located by a dotted/bracketed path,
// e.g. "issues[0].status" or "duration.scheduled.start".
type Diagnostic struct {
	Path    string `json:"path" yaml:"path"`
	Message string `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return d.Message
	}
	return d.Path + ": " + d.Message
}

// ValidationError carries the structural errors that blocked a payload.
type ValidationError struct {
	Errors []Diagnostic
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, d := range e.Errors {
		parts[i] = d.String()
	}
	return fmt.Sprintf("%s: %s", apperr.ErrValidation, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is(err, apperr.ErrValidation) match.
func (e *ValidationError) Unwrap() error { return apperr.ErrValidation }

// Join builds a child path. Index segments are passed as "[i]".
func Join(parent, child string) string {
	switch {
	case parent == "":
		return child
	case strings.HasPrefix(child, "["):
		return parent + child
	default:
		return parent + "." + child
	}
}

// Index formats a bracketed index segment.
func Index(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}

type collector struct {
	errs []Diagnostic
}

func (c *collector) add(path, msg string) {
	c.errs = append(c.errs, Diagnostic{Path: path, Message: msg})
}

func (c *collector) addf(path, format string, args ...any) {
	c.add(path, fmt.Sprintf(format, args...))
}

func (c *collector) ok() bool { return len(c.errs) == 0 }
