// Package parser decodes and encodes entity YAML files and classifies them
// by file name.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/testrack/internal/models"
)

// File naming conventions.
const (
	SuiteIndexFile = "index.yaml"
	SuiteSuffix    = ".suite.yaml"
	CaseSuffix     = ".testcase.yaml"
	YAMLExt        = ".yaml"
)

// ErrNotMapping is returned when a document's root is not a YAML mapping.
var ErrNotMapping = errors.New("parser: document root is not a mapping")

// Decode parses one YAML document into an untyped record. An empty document
// yields an empty record. Unquoted timestamps such as 2026-03-01 stay
// strings in their source form.
func Decode(data []byte) (models.Record, error) {
	var node yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return models.Record{}, nil
		}
		return nil, fmt.Errorf("parser: decode: %w", err)
	}
	keepTimestampText(&node)

	var doc any
	if err := node.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parser: decode: %w", err)
	}
	if doc == nil {
		return models.Record{}, nil
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, ErrNotMapping
	}
	return models.Record(m), nil
}

// keepTimestampText retags implicit !!timestamp scalars as strings so they
// decode to their literal text instead of time.Time. Explicitly tagged
// scalars are left alone.
func keepTimestampText(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.Tag == "!!timestamp" && n.Style&yaml.TaggedStyle == 0 {
		n.Tag = "!!str"
	}
	for _, c := range n.Content {
		keepTimestampText(c)
	}
}

// Encode serializes an entity as YAML with two-space indentation.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("parser: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// IsYAML reports whether name has the .yaml extension.
func IsYAML(name string) bool {
	return strings.HasSuffix(name, YAMLExt)
}

// Classify returns the entity kind implied by a file name: index.yaml and
// *.suite.yaml are suites, any other .yaml file is a case.
func Classify(name string) (models.Kind, bool) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	switch {
	case !IsYAML(base):
		return "", false
	case base == SuiteIndexFile, strings.HasSuffix(base, SuiteSuffix):
		return models.KindSuite, true
	default:
		return models.KindCase, true
	}
}

// SuitePath returns the canonical location of a new suite under dir.
func SuitePath(dir, id string) string {
	return path.Join(dir, id, SuiteIndexFile)
}

// CasePath returns the canonical location of a new case under dir.
func CasePath(dir, id string) string {
	return path.Join(dir, id+CaseSuffix)
}

// StringField returns raw[key] when it is a string.
func StringField(raw models.Record, key string) (string, bool) {
	s, ok := raw[key].(string)
	return s, ok
}

// StringList returns the string elements of raw[key], ignoring anything else.
func StringList(raw models.Record, key string) []string {
	list, ok := raw[key].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
