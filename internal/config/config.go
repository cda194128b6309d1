// Package config provides configuration management for teamlead.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/teamlead/internal/deliverable"
	"github.com/randalmurphal/teamlead/internal/lifecycle"
	"github.com/randalmurphal/teamlead/internal/phase"
	"github.com/randalmurphal/teamlead/internal/util"
)

const (
	// ConfigFileName is the default config file name
	ConfigFileName = "config.yaml"
	// Dir is the teamlead configuration directory, both per-user and per-project
	Dir = ".teamlead"
)

// LifecycleConfig controls automatic task generation.
type LifecycleConfig struct {
	// AutoGenerationEnabled turns on specialist follow-up analysis. Off by default.
	AutoGenerationEnabled bool `yaml:"auto_generation_enabled"`

	// HandoffCreationEnabled allows the analysis to create handoff tasks.
	HandoffCreationEnabled bool `yaml:"handoff_creation_enabled"`

	// ConfidenceThreshold is the minimum analysis confidence for a handoff.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// MaxAutoTasksPerWorkspace caps pending auto-generated tasks.
	MaxAutoTasksPerWorkspace int `yaml:"max_auto_tasks_per_workspace"`

	// CooldownMinutes is the per-workspace pause between handoffs.
	CooldownMinutes int `yaml:"cooldown_minutes"`

	// HandoffTTL is how long handoff cache entries are kept.
	HandoffTTL time.Duration `yaml:"handoff_ttl"`

	MaxDelegationDepth int `yaml:"max_delegation_depth"`
	AnalyzedCacheLimit int `yaml:"analyzed_cache_limit"`

	// AssessmentInterval is the number of completions between progress assessments.
	AssessmentInterval int `yaml:"assessment_interval"`

	// CleanupInterval is how often serve trims the executor caches.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// PhaseConfig holds the phase transition thresholds.
type PhaseConfig struct {
	Thresholds phase.Thresholds `yaml:"thresholds"`
}

// DatabaseConfig defines database connection settings.
type DatabaseConfig struct {
	// Driver is the database type: "sqlite" or "postgres"
	Driver string `yaml:"driver"`

	// Path is the SQLite file location.
	Path string `yaml:"path"`

	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn"`
}

// NATSConfig defines the event bus connection.
type NATSConfig struct {
	URL      string   `yaml:"url"`
	Stream   string   `yaml:"stream"`
	Consumer string   `yaml:"consumer"`
	Subjects []string `yaml:"subjects"`

	// Publish announces created tasks on teamlead.task.created.
	Publish bool `yaml:"publish"`
}

// MetricsConfig controls the Prometheus endpoint in serve.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LogConfig controls the default slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config represents the teamlead configuration.
type Config struct {
	Lifecycle   LifecycleConfig    `yaml:"lifecycle"`
	Phase       PhaseConfig        `yaml:"phase"`
	Deliverable deliverable.Config `yaml:"deliverable"`
	Database    DatabaseConfig     `yaml:"database"`
	NATS        NATSConfig         `yaml:"nats"`
	Metrics     MetricsConfig      `yaml:"metrics"`
	Log         LogConfig          `yaml:"log"`

	// RulesFile optionally replaces the built-in rule tables.
	RulesFile string `yaml:"rules_file,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	lc := lifecycle.DefaultConfig()
	return &Config{
		Lifecycle: LifecycleConfig{
			AutoGenerationEnabled:    lc.AutoGenerationEnabled,
			HandoffCreationEnabled:   lc.HandoffCreationEnabled,
			ConfidenceThreshold:      lc.ConfidenceThreshold,
			MaxAutoTasksPerWorkspace: lc.MaxAutoTasksPerWorkspace,
			CooldownMinutes:          int(lc.Cooldown / time.Minute),
			HandoffTTL:               lc.HandoffTTL,
			MaxDelegationDepth:       lc.MaxDelegationDepth,
			AnalyzedCacheLimit:       lc.AnalyzedCacheLimit,
			AssessmentInterval:       lc.AssessmentInterval,
			CleanupInterval:          time.Hour,
		},
		Phase:       PhaseConfig{Thresholds: phase.DefaultThresholds()},
		Deliverable: deliverable.DefaultConfig(),
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(Dir, "teamlead.db"),
		},
		NATS: NATSConfig{
			URL:      "nats://127.0.0.1:4222",
			Stream:   "TEAMLEAD",
			Consumer: "teamlead-lifecycle",
			Subjects: []string{"teamlead.task.>"},
			Publish:  true,
		},
		Metrics: MetricsConfig{Addr: ":9464"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// LifecycleSettings converts the lifecycle section to executor policy.
func (c *Config) LifecycleSettings() lifecycle.Config {
	l := c.Lifecycle
	return lifecycle.Config{
		AutoGenerationEnabled:    l.AutoGenerationEnabled,
		HandoffCreationEnabled:   l.HandoffCreationEnabled,
		ConfidenceThreshold:      l.ConfidenceThreshold,
		MaxAutoTasksPerWorkspace: l.MaxAutoTasksPerWorkspace,
		Cooldown:                 time.Duration(l.CooldownMinutes) * time.Minute,
		HandoffTTL:               l.HandoffTTL,
		MaxDelegationDepth:       l.MaxDelegationDepth,
		AnalyzedCacheLimit:       l.AnalyzedCacheLimit,
		AssessmentInterval:       l.AssessmentInterval,
	}
}

// LoadFrom loads a single config file over the defaults. A missing file
// yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveTo writes the config as YAML, creating the parent directory.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := util.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
