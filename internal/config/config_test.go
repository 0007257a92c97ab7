package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	configDir := filepath.Join(dir, ConfigDirName)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	path := filepath.Join(configDir, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Project.Dir != "." {
		t.Errorf("default project dir = %q, want .", cfg.Project.Dir)
	}
	if cfg.Report.Path != "coverage.json" {
		t.Errorf("default report path = %q", cfg.Report.Path)
	}
	if cfg.Report.Format != "table" {
		t.Errorf("default report format = %q", cfg.Report.Format)
	}
	if cfg.Checks.FailUnder != 0 || cfg.Checks.FailOnRegression {
		t.Errorf("default checks = %+v, want disabled", cfg.Checks)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadNoConfigReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Report.Format != "table" {
		t.Errorf("format = %q, want default table", cfg.Report.Format)
	}
}

func TestLoadFromPathMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
report:
  format: markdown
checks:
  fail_under: 0.8
  fail_on_regression: true
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Report.Format != "markdown" {
		t.Errorf("format = %q, want markdown", cfg.Report.Format)
	}
	if cfg.Report.Path != "coverage.json" {
		t.Errorf("path = %q, want default coverage.json", cfg.Report.Path)
	}
	if cfg.Checks.FailUnder != 0.8 || !cfg.Checks.FailOnRegression {
		t.Errorf("checks = %+v", cfg.Checks)
	}
}

func TestLoadFromPathInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad format", "report:\n  format: csv\n"},
		{"fail_under out of range", "checks:\n  fail_under: 80\n"},
		{"negative fail_under", "checks:\n  fail_under: -0.1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)
			if _, err := LoadFromPath(path); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("LoadFromPath error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadFromPathMalformedYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "report: [not a mapping\n")
	if _, err := LoadFromPath(path); err == nil {
		t.Errorf("LoadFromPath on malformed yaml succeeded")
	}
}

func TestFindConfigDirWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "")
	nested := filepath.Join(root, "models", "staging")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}

	found, err := FindConfigDir(nested)
	if err != nil {
		t.Fatalf("FindConfigDir: %v", err)
	}
	if found != filepath.Join(root, ConfigDirName) {
		t.Errorf("FindConfigDir = %q, want %q", found, filepath.Join(root, ConfigDirName))
	}
}

func TestFindConfigDirNotFound(t *testing.T) {
	if _, err := FindConfigDir(t.TempDir()); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("FindConfigDir error = %v, want ErrConfigNotFound", err)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	dir := t.TempDir()

	configDir, err := EnsureConfigDir(dir)
	if err != nil {
		t.Fatalf("EnsureConfigDir: %v", err)
	}
	info, err := os.Stat(configDir)
	if err != nil || !info.IsDir() {
		t.Fatalf("config dir not created: %v", err)
	}

	// Idempotent.
	again, err := EnsureConfigDir(dir)
	if err != nil || again != configDir {
		t.Errorf("second EnsureConfigDir = %q, %v", again, err)
	}
}

func TestSaveDefault(t *testing.T) {
	dir := t.TempDir()

	path, err := SaveDefault(dir)
	if err != nil {
		t.Fatalf("SaveDefault: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# dbtcov configuration") {
		t.Errorf("saved config missing header:\n%s", data)
	}

	// Written file loads back as a valid config.
	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath on saved config: %v", err)
	}
	if cfg.Report.Format != "table" {
		t.Errorf("round-tripped format = %q", cfg.Report.Format)
	}

	// Refuses to overwrite.
	if _, err := SaveDefault(dir); err == nil {
		t.Errorf("second SaveDefault succeeded, want already-exists error")
	}
}

func TestIsValidFormat(t *testing.T) {
	for _, f := range ValidFormats {
		if !IsValidFormat(f) {
			t.Errorf("IsValidFormat(%q) = false", f)
		}
	}
	for _, f := range []string{"", "csv", "TABLE"} {
		if IsValidFormat(f) {
			t.Errorf("IsValidFormat(%q) = true", f)
		}
	}
}
