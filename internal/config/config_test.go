package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMergeDefaultsWhenNoFilesExist(t *testing.T) {
	userDir := t.TempDir()
	projectDir := t.TempDir()

	m := NewManager()
	if err := m.Load(userDir, projectDir); err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg := m.Get()
	if cfg.ScrollbackCapacity != 10000 {
		t.Errorf("expected default scrollback capacity 10000, got %d", cfg.ScrollbackCapacity)
	}
	if cfg.PromptIdleMs != 250 {
		t.Errorf("expected default prompt idle 250ms, got %d", cfg.PromptIdleMs)
	}
	if cfg.PatternBackend != "auto" {
		t.Errorf("expected default pattern backend auto, got %q", cfg.PatternBackend)
	}
}

func TestProjectOverridesUser(t *testing.T) {
	userDir := t.TempDir()
	projectDir := t.TempDir()

	writeSettings(t, userDir, `{"scrollback_capacity": 5000, "prompt_idle_ms": 100}`)
	writeSettings(t, filepath.Join(projectDir, ".smudgy"), `{"scrollback_capacity": 20000}`)

	m := NewManager()
	if err := m.Load(userDir, projectDir); err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg := m.Get()
	if cfg.ScrollbackCapacity != 20000 {
		t.Errorf("expected project override 20000, got %d", cfg.ScrollbackCapacity)
	}
	if cfg.PromptIdleMs != 100 {
		t.Errorf("expected user value to survive where project is silent, got %d", cfg.PromptIdleMs)
	}
}

func TestStartupScriptsAreConcatenatedNotOverridden(t *testing.T) {
	userDir := t.TempDir()
	projectDir := t.TempDir()

	writeSettings(t, userDir, `{"startup_scripts": ["~/.smudgy/common.smg"]}`)
	writeSettings(t, filepath.Join(projectDir, ".smudgy"), `{"startup_scripts": ["./aliases.smg"]}`)

	m := NewManager()
	if err := m.Load(userDir, projectDir); err != nil {
		t.Fatalf("load: %v", err)
	}

	scripts := m.Get().StartupScripts
	if len(scripts) != 2 || scripts[0] != "~/.smudgy/common.smg" || scripts[1] != "./aliases.smg" {
		t.Fatalf("expected both layers' startup scripts concatenated, got %v", scripts)
	}
}

func TestSaveUserConfigRoundTrips(t *testing.T) {
	userDir := t.TempDir()
	m := NewManager()
	m.userConfig.MapStoreDSN = "file:test.db"

	if err := m.SaveUserConfig(userDir); err != nil {
		t.Fatalf("save: %v", err)
	}

	m2 := NewManager()
	if err := m2.Load(userDir, t.TempDir()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if m2.Get().MapStoreDSN != "file:test.db" {
		t.Fatalf("expected saved DSN to round-trip, got %q", m2.Get().MapStoreDSN)
	}
}

func writeSettings(t *testing.T, dir, json string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), []byte(json), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}
