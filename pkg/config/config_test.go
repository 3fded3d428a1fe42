package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Level int    `yaml:"level"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "from-env")
	p := writeConfig(t, "name: ${SAMPLE_NAME}\nlevel: 3\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatal(err)
	}
	if s.Name != "from-env" || s.Level != 3 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_Validates(t *testing.T) {
	p := writeConfig(t, "level: 1\n")
	var s sample
	if err := Load(p, &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadWithDefaults_MissingFileKeepsDefaults(t *testing.T) {
	s := sample{Name: "default", Level: 7}
	loaded, err := LoadWithDefaults(filepath.Join(t.TempDir(), "absent.yaml"), &s)
	if err != nil {
		t.Fatal(err)
	}
	if loaded {
		t.Error("loaded should be false for a missing file")
	}
	if s.Name != "default" || s.Level != 7 {
		t.Errorf("defaults changed: %+v", s)
	}
}

func TestLoadWithDefaults_FileOverridesDefaults(t *testing.T) {
	p := writeConfig(t, "level: 9\n")
	s := sample{Name: "default", Level: 7}
	loaded, err := LoadWithDefaults(p, &s)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded {
		t.Error("loaded should be true")
	}
	if s.Name != "default" || s.Level != 9 {
		t.Errorf("got %+v", s)
	}
}

func TestLoadWithDefaults_MissingFileStillValidated(t *testing.T) {
	var s sample
	if _, err := LoadWithDefaults(filepath.Join(t.TempDir(), "absent.yaml"), &s); err == nil {
		t.Fatal("expected validation error for empty defaults")
	}
}
