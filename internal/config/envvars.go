package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvVarMapping defines the mapping between environment variables and config paths.
var EnvVarMapping = map[string]string{
	"TEAMLEAD_AUTO_GENERATION":     "lifecycle.auto_generation_enabled",
	"TEAMLEAD_HANDOFFS":            "lifecycle.handoff_creation_enabled",
	"TEAMLEAD_CONFIDENCE":          "lifecycle.confidence_threshold",
	"TEAMLEAD_MAX_AUTO_TASKS":      "lifecycle.max_auto_tasks_per_workspace",
	"TEAMLEAD_COOLDOWN_MINUTES":    "lifecycle.cooldown_minutes",
	"TEAMLEAD_HANDOFF_TTL":         "lifecycle.handoff_ttl",
	"TEAMLEAD_MAX_DELEGATION":      "lifecycle.max_delegation_depth",
	"TEAMLEAD_ASSESSMENT_INTERVAL": "lifecycle.assessment_interval",
	"TEAMLEAD_CLEANUP_INTERVAL":    "lifecycle.cleanup_interval",
	// Deliverable settings
	"TEAMLEAD_DELIVERABLE_ENABLED":   "deliverable.enabled",
	"TEAMLEAD_READINESS_THRESHOLD":   "deliverable.readiness_threshold",
	"TEAMLEAD_MIN_COMPLETED_TASKS":   "deliverable.min_completed_tasks",
	"TEAMLEAD_AUTO_COMPLETE_PROJECT": "deliverable.auto_complete_project",
	// Database settings
	"TEAMLEAD_DB_DRIVER": "database.driver",
	"TEAMLEAD_DB_PATH":   "database.path",
	"TEAMLEAD_DB_DSN":    "database.dsn",
	// Event bus
	"TEAMLEAD_NATS_URL":      "nats.url",
	"TEAMLEAD_NATS_STREAM":   "nats.stream",
	"TEAMLEAD_NATS_CONSUMER": "nats.consumer",
	"TEAMLEAD_NATS_PUBLISH":  "nats.publish",
	// Observability
	"TEAMLEAD_METRICS_ENABLED": "metrics.enabled",
	"TEAMLEAD_METRICS_ADDR":    "metrics.addr",
	"TEAMLEAD_LOG_LEVEL":       "log.level",
	"TEAMLEAD_LOG_FORMAT":      "log.format",
	"TEAMLEAD_RULES_FILE":      "rules_file",
}

// ApplyEnvVars applies environment variable overrides to a TrackedConfig.
// Returns the paths that were overridden.
func ApplyEnvVars(tc *TrackedConfig) []string {
	var overridden []string

	for envVar, path := range EnvVarMapping {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		if applyEnvVar(tc.Config, path, value) {
			tc.SetSource(path, SourceEnv)
			overridden = append(overridden, path)
		}
	}

	return overridden
}

// applyEnvVar sets a single path. Unparseable numbers and durations are
// ignored so a typo in the environment never zeroes a setting.
func applyEnvVar(cfg *Config, path, value string) bool {
	switch path {
	case "lifecycle.auto_generation_enabled":
		cfg.Lifecycle.AutoGenerationEnabled = parseBool(value)
	case "lifecycle.handoff_creation_enabled":
		cfg.Lifecycle.HandoffCreationEnabled = parseBool(value)
	case "lifecycle.confidence_threshold":
		return setFloat(&cfg.Lifecycle.ConfidenceThreshold, value)
	case "lifecycle.max_auto_tasks_per_workspace":
		return setInt(&cfg.Lifecycle.MaxAutoTasksPerWorkspace, value)
	case "lifecycle.cooldown_minutes":
		return setInt(&cfg.Lifecycle.CooldownMinutes, value)
	case "lifecycle.handoff_ttl":
		return setDuration(&cfg.Lifecycle.HandoffTTL, value)
	case "lifecycle.max_delegation_depth":
		return setInt(&cfg.Lifecycle.MaxDelegationDepth, value)
	case "lifecycle.assessment_interval":
		return setInt(&cfg.Lifecycle.AssessmentInterval, value)
	case "lifecycle.cleanup_interval":
		return setDuration(&cfg.Lifecycle.CleanupInterval, value)
	case "deliverable.enabled":
		cfg.Deliverable.Enabled = parseBool(value)
	case "deliverable.readiness_threshold":
		return setFloat(&cfg.Deliverable.ReadinessThreshold, value)
	case "deliverable.min_completed_tasks":
		return setInt(&cfg.Deliverable.MinCompletedTasks, value)
	case "deliverable.auto_complete_project":
		cfg.Deliverable.AutoCompleteProject = parseBool(value)
	case "database.driver":
		cfg.Database.Driver = value
	case "database.path":
		cfg.Database.Path = value
	case "database.dsn":
		cfg.Database.DSN = value
	case "nats.url":
		cfg.NATS.URL = value
	case "nats.stream":
		cfg.NATS.Stream = value
	case "nats.consumer":
		cfg.NATS.Consumer = value
	case "nats.publish":
		cfg.NATS.Publish = parseBool(value)
	case "metrics.enabled":
		cfg.Metrics.Enabled = parseBool(value)
	case "metrics.addr":
		cfg.Metrics.Addr = value
	case "log.level":
		cfg.Log.Level = value
	case "log.format":
		cfg.Log.Format = value
	case "rules_file":
		cfg.RulesFile = value
	default:
		return false
	}
	return true
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func setInt(dst *int, s string) bool {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	*dst = v
	return true
}

func setFloat(dst *float64, s string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return false
	}
	*dst = v
	return true
}

func setDuration(dst *time.Duration, s string) bool {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	*dst = d
	return true
}
