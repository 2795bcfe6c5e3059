package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// isolate points every lookup location at empty temp directories.
func isolate(t *testing.T) (project, xdg string) {
	t.Helper()
	project, xdg = t.TempDir(), t.TempDir()
	t.Setenv(EnvVar, "")
	t.Setenv("XDG_CONFIG_HOME", xdg)
	return project, xdg
}

func TestLoadDefaults(t *testing.T) {
	project, _ := isolate(t)
	cfg, err := Load(project)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source != "" {
		t.Errorf("Source = %q, want empty", cfg.Source)
	}
	if cfg.Join.CartesianWarningRows != 20 || cfg.CSV.Delimiter != "," || cfg.Output.Format != "table" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("level = %v", cfg.SlogLevel())
	}
}

func TestLoadPrecedence(t *testing.T) {
	project, xdg := isolate(t)
	userPath := filepath.Join(xdg, "mashd", "config.yaml")
	write(t, userPath, "csv:\n  delimiter: \";\"\n")

	cfg, err := Load(project)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source != userPath || cfg.CSV.Delimiter != ";" {
		t.Errorf("user config not used: %+v", cfg)
	}

	projectPath := filepath.Join(project, ProjectFile)
	write(t, projectPath, "join:\n  cartesian_warning_rows: 5\n")
	cfg, err = Load(project)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source != projectPath || cfg.Join.CartesianWarningRows != 5 {
		t.Errorf("project config not used: %+v", cfg)
	}
	// Files do not merge with each other, only with the defaults.
	if cfg.CSV.Delimiter != "," {
		t.Errorf("delimiter = %q, want default", cfg.CSV.Delimiter)
	}

	envPath := filepath.Join(t.TempDir(), "custom.yaml")
	write(t, envPath, "adapters:\n  allow: [csv]\nlog:\n  level: debug\n")
	t.Setenv(EnvVar, envPath)
	cfg, err = Load(project)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source != envPath || len(cfg.Adapters.Allow) != 1 || cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("env config not used: %+v", cfg)
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	project, _ := isolate(t)
	t.Setenv(EnvVar, filepath.Join(project, "missing.yaml"))
	_, err := Load(project)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{"join: [1, 2]\n", "config"},
		{"join:\n  cartesian_warning_rows: -1\n", "cartesian_warning_rows"},
		{"csv:\n  delimiter: \"::\"\n", "csv.delimiter"},
		{"output:\n  format: xml\n", "output.format"},
		{"log:\n  level: loud\n", "log.level"},
		{"adapters:\n  allow: [\"\"]\n", "adapters.allow"},
	}
	for _, tt := range tests {
		project, _ := isolate(t)
		write(t, filepath.Join(project, ProjectFile), tt.content)
		_, err := Load(project)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%q: got %v, want error mentioning %s", tt.content, err, tt.want)
		}
	}
}

func TestTabDelimiter(t *testing.T) {
	cfg := Defaults()
	cfg.CSV.Delimiter = `\t`
	if err := cfg.Validate(); err != nil {
		t.Errorf("tab escape rejected: %v", err)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	project, _ := isolate(t)
	cfg := Defaults()
	cfg.Adapters.Allow = []string{"sqlite"}
	data, err := cfg.YAML()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "source") {
		t.Errorf("Source must not be serialized:\n%s", data)
	}
	write(t, filepath.Join(project, ProjectFile), string(data))
	got, err := Load(project)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Adapters.Allow) != 1 || got.Adapters.Allow[0] != "sqlite" || got.Output.Format != "table" {
		t.Errorf("round trip lost settings: %+v", got)
	}
}
