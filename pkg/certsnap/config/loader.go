package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FromFile loads a Paths layout from a file, auto-detecting format by
// extension. Supported extensions: .yaml, .yml, .json
func FromFile(path string) (Paths, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Paths{}, fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Paths{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses YAML data into a Paths layout.
func FromYAML(data []byte) (Paths, error) {
	var p Paths
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Paths{}, fmt.Errorf("parse yaml: %w", err)
	}
	return p, p.Validate()
}

// FromJSON parses JSON data into a Paths layout.
func FromJSON(data []byte) (Paths, error) {
	var p Paths
	if err := json.Unmarshal(data, &p); err != nil {
		return Paths{}, fmt.Errorf("parse json: %w", err)
	}
	return p, p.Validate()
}
