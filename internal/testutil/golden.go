// Package testutil provides shared test helpers for Mashd Go tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
)

// ScenariosDir is the relative path from the module root to the scenarios.
const ScenariosDir = "testdata/scenarios"

// Scenario represents a test scenario loaded from a scenario.json file.
// The scenario directory holds the pipeline document and its CSV inputs.
type Scenario struct {
	Cmd    []string        `json:"cmd"`
	Config *ScenarioConfig `json:"config,omitempty"`
	// SQLite maps database file names to the statements that create them.
	SQLite map[string][]string `json:"sqlite,omitempty"`
	Meta   *ScenarioMeta       `json:"meta,omitempty"`
	Expect ExpectedResult      `json:"expect"`
}

// ScenarioConfig overrides configuration defaults for a scenario.
type ScenarioConfig struct {
	Allow                []string `json:"allow,omitempty"`
	CartesianWarningRows int      `json:"cartesianWarningRows,omitempty"`
	Delimiter            string   `json:"delimiter,omitempty"`
}

// ScenarioMeta holds optional scenario metadata.
type ScenarioMeta struct {
	Tags []string `json:"tags,omitempty"`
}

// ExpectedResult describes the expected outcome of running a scenario.
type ExpectedResult struct {
	ExitCode         int             `json:"exitCode"`
	StdoutJSON       json.RawMessage `json:"stdoutJson,omitempty"`
	StdoutJSONSubset json.RawMessage `json:"stdoutJsonSubset,omitempty"`
	StderrContains   string          `json:"stderrContains,omitempty"`
	StderrJSONSubset json.RawMessage `json:"stderrJsonSubset,omitempty"`
	Rows             *int            `json:"rows,omitempty"`
	Warnings         int             `json:"warnings,omitempty"`
	// Files maps output files, relative to the scenario, to their content.
	Files map[string]string `json:"files,omitempty"`
}

// LoadScenario loads a scenario from a directory containing scenario.json.
func LoadScenario(dir string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Join(dir, "scenario.json"))
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListScenarios returns all scenario directories under the given root.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			scenarioPath := filepath.Join(root, e.Name(), "scenario.json")
			if _, err := os.Stat(scenarioPath); err == nil {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Materialize copies the scenario's files into a fresh directory and
// creates its SQLite databases there, so that runs never write into
// testdata. It returns the directory.
func Materialize(t T, scenarioDir string, s *Scenario) string {
	helper(t)
	dir := tempDir(t)
	entries, err := os.ReadDir(scenarioDir)
	if err != nil {
		t.Fatalf("read %s: %v", scenarioDir, err)
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() == "scenario.json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(scenarioDir, e.Name()))
		if err != nil {
			t.Fatalf("read %s: %v", e.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(dir, e.Name()), data, 0o644); err != nil {
			t.Fatalf("write %s: %v", e.Name(), err)
		}
	}
	for name, stmts := range s.SQLite {
		WriteSQLite(t, dir, name, stmts...)
	}
	return dir
}

func tempDir(t T) string {
	if td, ok := t.(interface{ TempDir() string }); ok {
		return td.TempDir()
	}
	dir, err := os.MkdirTemp("", "mashd-scenario-")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	return dir
}

// DocumentPath returns the pipeline document named by the scenario cmd
// inside dir, or "" when the cmd names none.
func DocumentPath(dir string, cmd []string) string {
	if len(cmd) < 2 {
		return ""
	}
	return filepath.Join(dir, cmd[1])
}
