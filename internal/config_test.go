package internal

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	if !cfg.Workspace.Trash {
		t.Error("trash should be on by default")
	}
}

func TestWorkspaceConfig_RootRequired(t *testing.T) {
	cfg := WorkspaceConfig{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("empty root should fail validation")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "root") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSQLiteConfig_PathRequiredWhenEnabled(t *testing.T) {
	cfg := SQLiteConfig{Enabled: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled catalog without path should fail")
	}
	cfg.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled catalog needs no path: %v", err)
	}
}

func TestSQLiteConfig_Resolve(t *testing.T) {
	root := filepath.FromSlash("/work/space")
	rel := SQLiteConfig{Path: filepath.Join(".testrack", "catalog.db")}
	if got, want := rel.Resolve(root), filepath.Join(root, ".testrack", "catalog.db"); got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
	abs := SQLiteConfig{Path: filepath.Join(root, "elsewhere.db")}
	if got := abs.Resolve("/other"); got != abs.Path {
		t.Errorf("absolute path rewritten to %q", got)
	}
}

func TestWatchConfig_DebounceBounds(t *testing.T) {
	for _, d := range []time.Duration{0, time.Millisecond, 2 * time.Minute} {
		cfg := WatchConfig{Debounce: d}
		if err := cfg.Validate(); err == nil {
			t.Errorf("debounce %s should fail validation", d)
		}
	}
}

func TestFullConfig_WatchValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Watch.Debounce = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch watch error")
	}
}
