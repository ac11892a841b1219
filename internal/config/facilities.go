package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FacilityConfig describes one entry of the facility registry
type FacilityConfig struct {
	Name          string `yaml:"name"`
	BackendID     string `yaml:"backend_id"`
	CountKey      string `yaml:"count_key,omitempty"`
	DefaultAmount int    `yaml:"default_amount,omitempty"`
}

type facilitiesFile struct {
	Facilities []FacilityConfig `yaml:"facilities"`
}

// DefaultFacilities mirrors the backend's subsystem numbering.
func DefaultFacilities() []FacilityConfig {
	return []FacilityConfig{
		{Name: "GeneratorAddress", BackendID: "2", CountKey: "GeneratorAddr", DefaultAmount: 1},
		{Name: "GeneratorName", BackendID: "3", DefaultAmount: 1},
		{Name: "XFR", BackendID: "4", DefaultAmount: 1},
		{Name: "Scanner", BackendID: "5", DefaultAmount: 1},
	}
}

// LoadFacilities reads the registry from a YAML file. An empty path
// yields DefaultFacilities.
func LoadFacilities(path string) ([]FacilityConfig, error) {
	if path == "" {
		return DefaultFacilities(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read facilities file: %w", err)
	}

	var f facilitiesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse facilities file %s: %w", path, err)
	}
	if len(f.Facilities) == 0 {
		return nil, fmt.Errorf("facilities file %s defines no facilities", path)
	}

	seen := make(map[string]bool, len(f.Facilities))
	for i := range f.Facilities {
		fc := &f.Facilities[i]
		if fc.Name == "" || fc.BackendID == "" {
			return nil, fmt.Errorf("facility #%d: name and backend_id are required", i+1)
		}
		if seen[fc.Name] {
			return nil, fmt.Errorf("facility %s is defined twice", fc.Name)
		}
		seen[fc.Name] = true
		if fc.CountKey == "" {
			fc.CountKey = fc.Name
		}
		if fc.DefaultAmount < 0 {
			return nil, fmt.Errorf("facility %s: default_amount must not be negative", fc.Name)
		}
	}

	return f.Facilities, nil
}
