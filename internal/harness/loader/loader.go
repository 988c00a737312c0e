package loader

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseScenario parses a scenario from YAML bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}

	if sc.ID == "" {
		return nil, &LoadError{Message: "scenario id is required"}
	}
	if len(sc.Steps) == 0 {
		return nil, &LoadError{Message: "scenario must have at least one step"}
	}

	return &sc, nil
}

// LoadScenario loads a scenario from a file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	sc, err := ParseScenario(data)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: err.Error()}
	}

	return sc, nil
}

// LoadDirectory loads every .yaml/.yml scenario file directly within
// dir, in lexical filename order.
func LoadDirectory(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{File: dir, Message: "failed to read directory", Cause: err}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, entry.Name())
		}
	}

	var cases []*Scenario
	for _, name := range names {
		sc, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		cases = append(cases, sc)
	}
	return cases, nil
}
