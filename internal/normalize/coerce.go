package normalize

import (
	"fmt"
	"strings"

	"github.com/starford/testrack/internal/schema"
)

// normalizer accumulates human-readable warnings while coercing fields.
type normalizer struct {
	warnings []string
}

func (n *normalizer) warnf(format string, args ...any) {
	n.warnings = append(n.warnings, fmt.Sprintf(format, args...))
}

// dropUnknown warns once per key of raw that is not in allowed. kind names
// the entity in the message, e.g. "suite" or "issue".
func (n *normalizer) dropUnknown(raw map[string]any, path, kind string, allowed []string) {
	known := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		known[k] = struct{}{}
	}
	for _, k := range schema.SortedKeys(raw) {
		if _, ok := known[k]; !ok {
			n.warnf("unknown %s field removed: %s", kind, schema.Join(path, k))
		}
	}
}

func (n *normalizer) str(raw map[string]any, key, path, def string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		n.warnf("%s is not a string and was reset to default", path)
		return def
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return s
}

func (n *normalizer) list(raw map[string]any, key, path string, def []string) []string {
	v, ok := raw[key]
	if !ok || v == nil {
		return cloneStrings(def)
	}
	items, ok := schema.AsList(v)
	if !ok {
		n.warnf("%s is not an array and was reset to default", path)
		return cloneStrings(def)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			n.warnf("%s is not a string and was removed", schema.Index(path, i))
			continue
		}
		out = append(out, s)
	}
	return out
}

func (n *normalizer) boolean(raw map[string]any, key, path string, def bool) bool {
	v, ok := raw[key]
	if !ok || v == nil {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true":
			n.warnf("%s value '%s' was normalized to true", path, b)
			return true
		case "false":
			n.warnf("%s value '%s' was normalized to false", path, b)
			return false
		}
	}
	n.warnf("%s value '%v' is not a boolean and was reset to default", path, v)
	return def
}

func (n *normalizer) date(raw map[string]any, key, path, def string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return def
	}
	s, ok := schema.DateText(v)
	if ok {
		s = strings.TrimSpace(s)
		if schema.ValidDate(s) {
			return s
		}
	}
	n.warnf("%s value '%v' is not a valid date and was reset to '%s'", path, v, def)
	return def
}

func (n *normalizer) nullableDate(raw map[string]any, key, path string, def *string) *string {
	v, ok := raw[key]
	if !ok {
		return cloneStringPtr(def)
	}
	if v == nil {
		return nil
	}
	s, ok := schema.DateText(v)
	if ok {
		s = strings.TrimSpace(s)
		if schema.ValidDate(s) {
			return &s
		}
	}
	n.warnf("%s value '%v' is not a valid date and was reset to null", path, v)
	return nil
}

// enum lower-cases a string value and matches it against allowed. Values
// outside allowed reset to fallback; an empty fallback means null. The
// second return value is false when the result is null.
func (n *normalizer) enum(raw map[string]any, key, path string, allowed []string, def, fallback string) (string, bool) {
	v, ok := raw[key]
	if !ok {
		return def, def != ""
	}
	if v == nil {
		return fallback, fallback != ""
	}
	resetTo := "null"
	if fallback != "" {
		resetTo = "'" + fallback + "'"
	}
	s, ok := v.(string)
	if !ok {
		n.warnf("%s value '%v' is invalid and was reset to %s", path, v, resetTo)
		return fallback, fallback != ""
	}
	lowered := strings.ToLower(strings.TrimSpace(s))
	for _, a := range allowed {
		if lowered == a {
			if lowered != s {
				n.warnf("%s value '%s' was normalized to '%s'", path, s, lowered)
			}
			return lowered, true
		}
	}
	n.warnf("%s value '%s' is invalid and was reset to %s", path, s, resetTo)
	return fallback, fallback != ""
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}
