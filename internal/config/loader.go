package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadWithSources loads configuration relative to the working directory.
func LoadWithSources() (*TrackedConfig, error) {
	return LoadWithSourcesFrom(".")
}

// LoadWithSourcesFrom loads configuration with source tracking.
// Load order (later sources override earlier):
//  1. Built-in defaults
//  2. User config (~/.teamlead/config.yaml) - optional
//  3. Project config (<dir>/.teamlead/config.yaml) - optional
//  4. Environment variables (TEAMLEAD_*)
func LoadWithSourcesFrom(dir string) (*TrackedConfig, error) {
	tc := NewTrackedConfig()

	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, Dir, ConfigFileName)
		if _, err := os.Stat(userPath); err == nil {
			if err := MergeFile(tc, userPath, SourceUser); err != nil {
				slog.Warn("failed to load user config", "path", userPath, "error", err)
			}
		}
	}

	projectPath := filepath.Join(dir, Dir, ConfigFileName)
	if _, err := os.Stat(projectPath); err == nil {
		// Project config errors are fatal.
		if err := MergeFile(tc, projectPath, SourceProject); err != nil {
			return nil, err
		}
	}

	ApplyEnvVars(tc)

	return tc, nil
}

// MergeFile overlays the keys present in path onto tc.Config. Keys absent
// from the file keep their current values.
func MergeFile(tc *TrackedConfig, path string, source Source) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, tc.Config); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	var keys []string
	flattenKeys("", raw, &keys)
	for _, k := range keys {
		tc.SetSourceWithPath(k, source, path)
	}
	return nil
}
