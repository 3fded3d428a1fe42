package schema

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/testrack/internal/models"
)

// DateLayout is the only accepted date format.
const DateLayout = "2006-01-02"

var (
	idPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

var (
	idRules = []validation.Rule{
		validation.Required.Error("must not be empty"),
		validation.Match(idPattern).Error("must match [A-Za-z0-9_-]+"),
	}
	dateRules = []validation.Rule{
		validation.Required.Error("must not be empty"),
		validation.Match(datePattern).Error("must be a YYYY-MM-DD date"),
		validation.Date(DateLayout).Error("must be a real calendar day"),
	}
)

// ValidID reports whether id satisfies the entity id pattern.
func ValidID(id string) bool {
	return validation.Validate(id, idRules...) == nil
}

// ValidDate reports whether s is a YYYY-MM-DD string naming a real day.
func ValidDate(s string) bool {
	return validation.Validate(s, dateRules...) == nil
}

// DateText returns v as a date string. A time.Time at midnight, which YAML
// decoders produce for unquoted dates, is formatted with DateLayout.
func DateText(v any) (string, bool) {
	switch d := v.(type) {
	case string:
		return d, true
	case time.Time:
		if d.Hour() != 0 || d.Minute() != 0 || d.Second() != 0 || d.Nanosecond() != 0 {
			return "", false
		}
		return d.Format(DateLayout), true
	default:
		return "", false
	}
}

// AsMap returns v as a string-keyed map when it is any of the map shapes a
// YAML or JSON decoder produces.
func AsMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case models.Record:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

// AsList returns v as a generic slice.
func AsList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func checkKeys(c *collector, raw map[string]any, path string, allowed map[string]struct{}) {
	for _, k := range SortedKeys(raw) {
		if _, ok := allowed[k]; !ok {
			c.add(Join(path, k), "unrecognized field")
		}
	}
}

func keySet(keys ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, float64, uint64:
		return "number"
	case []any, []string:
		return "array"
	case map[string]any, models.Record, map[any]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func ruleMessage(err error) string {
	if verr, ok := err.(validation.Error); ok {
		return verr.Message()
	}
	return err.Error()
}

func readID(c *collector, raw map[string]any, key, path string) string {
	v, ok := raw[key]
	if !ok {
		c.add(path, "is required")
		return ""
	}
	s, ok := v.(string)
	if !ok {
		c.addf(path, "expected string, received %s", typeName(v))
		return ""
	}
	if err := validation.Validate(s, idRules...); err != nil {
		c.add(path, ruleMessage(err))
	}
	return s
}

func readRequiredString(c *collector, raw map[string]any, key, path string) string {
	v, ok := raw[key]
	if !ok {
		c.add(path, "is required")
		return ""
	}
	s, ok := v.(string)
	if !ok {
		c.addf(path, "expected string, received %s", typeName(v))
		return ""
	}
	if err := validation.Validate(s, validation.Required.Error("must not be empty")); err != nil {
		c.add(path, ruleMessage(err))
	}
	return s
}

func readString(c *collector, raw map[string]any, key, path string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		c.addf(path, "expected string, received %s", typeName(v))
		return ""
	}
	return s
}

func readBool(c *collector, raw map[string]any, key, path string) bool {
	v, ok := raw[key]
	if !ok || v == nil {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		c.addf(path, "expected boolean, received %s", typeName(v))
		return false
	}
	return b
}

func readStringList(c *collector, raw map[string]any, key, path string) []string {
	v, ok := raw[key]
	if !ok || v == nil {
		return []string{}
	}
	list, ok := AsList(v)
	if !ok {
		c.addf(path, "expected array, received %s", typeName(v))
		return []string{}
	}
	out := make([]string, 0, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			c.addf(Index(path, i), "expected string, received %s", typeName(item))
			continue
		}
		out = append(out, s)
	}
	return out
}

func checkDate(c *collector, s, path string) {
	if err := validation.Validate(s, dateRules...); err != nil {
		c.add(path, ruleMessage(err))
	}
}

func readDate(c *collector, raw map[string]any, key, path string) string {
	v, ok := raw[key]
	if !ok {
		c.add(path, "is required")
		return ""
	}
	s, ok := DateText(v)
	if !ok {
		c.addf(path, "expected date string, received %s", typeName(v))
		return ""
	}
	checkDate(c, s, path)
	return s
}

func readNullableDate(c *collector, raw map[string]any, key, path string) *string {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := DateText(v)
	if !ok {
		c.addf(path, "expected date string or null, received %s", typeName(v))
		return nil
	}
	checkDate(c, s, path)
	return &s
}

// readEnum validates a nullable enum against allowed. Present is false when
// the value is absent or null.
func readEnum(c *collector, raw map[string]any, key, path string, allowed []string) (value string, present bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		c.addf(path, "expected string or null, received %s", typeName(v))
		return "", false
	}
	in := make([]any, len(allowed))
	for i, a := range allowed {
		in[i] = a
	}
	if err := validation.Validate(s, validation.Required, validation.In(in...)); err != nil {
		c.addf(path, "invalid value %q, expected one of %v", s, allowed)
		return "", false
	}
	return s, true
}
