package config

import (
	"fmt"
	"sort"
)

// Source indicates where a configuration value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceUser    Source = "user"
	SourceProject Source = "project"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// TrackedSource pairs a source with the file it was read from, if any.
type TrackedSource struct {
	Source Source
	Path   string
}

func (ts TrackedSource) String() string {
	if ts.Path != "" {
		return fmt.Sprintf("%s (%s)", ts.Source, ts.Path)
	}
	return string(ts.Source)
}

// TrackedConfig is a Config plus the source of every explicitly set key.
type TrackedConfig struct {
	Config  *Config
	sources map[string]TrackedSource
}

// NewTrackedConfig starts from the defaults.
func NewTrackedConfig() *TrackedConfig {
	return &TrackedConfig{
		Config:  Default(),
		sources: make(map[string]TrackedSource),
	}
}

// SetSource records where path was last set.
func (tc *TrackedConfig) SetSource(path string, source Source) {
	tc.sources[path] = TrackedSource{Source: source}
}

// SetSourceWithPath records the source and file for path.
func (tc *TrackedConfig) SetSourceWithPath(path string, source Source, file string) {
	tc.sources[path] = TrackedSource{Source: source, Path: file}
}

// GetSource returns the source of path, SourceDefault when never overridden.
func (tc *TrackedConfig) GetSource(path string) Source {
	return tc.GetTrackedSource(path).Source
}

// GetTrackedSource returns the source and file of path.
func (tc *TrackedConfig) GetTrackedSource(path string) TrackedSource {
	if ts, ok := tc.sources[path]; ok {
		return ts
	}
	return TrackedSource{Source: SourceDefault}
}

// Overrides lists every non-default key, sorted.
func (tc *TrackedConfig) Overrides() []string {
	keys := make([]string, 0, len(tc.sources))
	for k := range tc.sources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// flattenKeys turns a decoded YAML document into dotted leaf paths.
func flattenKeys(prefix string, raw map[string]any, out *[]string) {
	for k, v := range raw {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenKeys(path, nested, out)
			continue
		}
		*out = append(*out, path)
	}
}
