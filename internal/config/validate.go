package config

import (
	"strings"

	"github.com/randalmurphal/teamlead/internal/db/driver"
	teamerrors "github.com/randalmurphal/teamlead/internal/errors"
)

// Validate checks ranges and enumerations, returning the first problem.
func (c *Config) Validate() error {
	l := c.Lifecycle
	switch {
	case l.ConfidenceThreshold < 0 || l.ConfidenceThreshold > 1:
		return teamerrors.ErrConfigInvalid("lifecycle.confidence_threshold", "must be between 0 and 1")
	case l.MaxAutoTasksPerWorkspace < 0:
		return teamerrors.ErrConfigInvalid("lifecycle.max_auto_tasks_per_workspace", "must not be negative")
	case l.CooldownMinutes < 0:
		return teamerrors.ErrConfigInvalid("lifecycle.cooldown_minutes", "must not be negative")
	case l.HandoffTTL < 0:
		return teamerrors.ErrConfigInvalid("lifecycle.handoff_ttl", "must not be negative")
	case l.MaxDelegationDepth < 0:
		return teamerrors.ErrConfigInvalid("lifecycle.max_delegation_depth", "must not be negative")
	case l.AnalyzedCacheLimit < 1:
		return teamerrors.ErrConfigInvalid("lifecycle.analyzed_cache_limit", "must be at least 1")
	case l.AssessmentInterval < 1:
		return teamerrors.ErrConfigInvalid("lifecycle.assessment_interval", "must be at least 1")
	case l.CleanupInterval < 0:
		return teamerrors.ErrConfigInvalid("lifecycle.cleanup_interval", "must not be negative")
	}

	th := c.Phase.Thresholds
	if th.AnalysisToImplementation < 0 || th.ImplementationToFinalization < 0 || th.FinalizationToCompleted < 0 {
		return teamerrors.ErrConfigInvalid("phase.thresholds", "thresholds must not be negative")
	}

	d := c.Deliverable
	if d.ReadinessThreshold < 0 || d.ReadinessThreshold > 1 {
		return teamerrors.ErrConfigInvalid("deliverable.readiness_threshold", "must be between 0 and 1")
	}
	if d.MinCompletedTasks < 0 {
		return teamerrors.ErrConfigInvalid("deliverable.min_completed_tasks", "must not be negative")
	}

	dialect, err := driver.ParseDialect(c.Database.Driver)
	if err != nil {
		return teamerrors.ErrConfigInvalid("database.driver", "must be sqlite or postgres")
	}
	if dialect == driver.DialectSQLite && c.Database.Path == "" {
		return teamerrors.ErrConfigMissing("database.path")
	}
	if dialect == driver.DialectPostgres && c.Database.DSN == "" {
		return teamerrors.ErrConfigMissing("database.dsn")
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return teamerrors.ErrConfigMissing("metrics.addr")
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return teamerrors.ErrConfigInvalid("log.format", "must be text or json")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return teamerrors.ErrConfigInvalid("log.level", "must be debug, info, warn or error")
	}
	return nil
}

// Dialect returns the parsed database driver, defaulting to SQLite.
func (c *Config) Dialect() driver.Dialect {
	d, err := driver.ParseDialect(c.Database.Driver)
	if err != nil {
		return driver.DialectSQLite
	}
	return d
}
