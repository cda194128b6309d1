package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	teamerrors "github.com/randalmurphal/teamlead/internal/errors"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, Dir, ConfigFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.False(t, cfg.Lifecycle.AutoGenerationEnabled, "auto generation starts disabled")
	assert.InDelta(t, 0.70, cfg.Lifecycle.ConfidenceThreshold, 1e-9)
	assert.Equal(t, 60, cfg.Lifecycle.CooldownMinutes)
	assert.Equal(t, 5, cfg.Lifecycle.AssessmentInterval)
	assert.Equal(t, 3, cfg.Phase.Thresholds.AnalysisToImplementation)
	assert.True(t, cfg.Deliverable.Enabled)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, []string{"teamlead.task.>"}, cfg.NATS.Subjects)
}

func TestLifecycleSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Lifecycle.CooldownMinutes = 15
	cfg.Lifecycle.AutoGenerationEnabled = true

	lc := cfg.LifecycleSettings()
	assert.Equal(t, 15*time.Minute, lc.Cooldown)
	assert.True(t, lc.AutoGenerationEnabled)
	assert.Equal(t, 24*time.Hour, lc.HandoffTTL)
}

func TestLoadFrom(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, `
lifecycle:
  auto_generation_enabled: true
  handoff_ttl: 2h
phase:
  thresholds:
    analysis_to_implementation: 5
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.True(t, cfg.Lifecycle.AutoGenerationEnabled)
	assert.Equal(t, 2*time.Hour, cfg.Lifecycle.HandoffTTL)
	assert.Equal(t, 5, cfg.Phase.Thresholds.AnalysisToImplementation)
	assert.Equal(t, 2, cfg.Phase.Thresholds.ImplementationToFinalization, "unset keys keep defaults")
	assert.Equal(t, 5, cfg.Lifecycle.AssessmentInterval)

	missing, err := LoadFrom(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), missing)
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, t.TempDir(), "lifecycle: [not, a, map")
	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestSaveToThenLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)
	cfg := Default()
	cfg.Metrics.Enabled = true
	cfg.Lifecycle.HandoffTTL = 90 * time.Minute
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadWithSources_Layering(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)

	writeConfig(t, home, `
lifecycle:
  confidence_threshold: 0.8
  cooldown_minutes: 30
`)
	projectPath := writeConfig(t, project, `
lifecycle:
  cooldown_minutes: 10
database:
  path: /tmp/team.db
`)
	t.Setenv("TEAMLEAD_AUTO_GENERATION", "true")
	t.Setenv("TEAMLEAD_MAX_AUTO_TASKS", "not-a-number")

	tc, err := LoadWithSourcesFrom(project)
	require.NoError(t, err)

	cfg := tc.Config
	assert.InDelta(t, 0.8, cfg.Lifecycle.ConfidenceThreshold, 1e-9)
	assert.Equal(t, 10, cfg.Lifecycle.CooldownMinutes)
	assert.Equal(t, "/tmp/team.db", cfg.Database.Path)
	assert.True(t, cfg.Lifecycle.AutoGenerationEnabled)
	assert.Equal(t, 5, cfg.Lifecycle.MaxAutoTasksPerWorkspace, "bad env values are ignored")

	assert.Equal(t, SourceUser, tc.GetSource("lifecycle.confidence_threshold"))
	assert.Equal(t, SourceProject, tc.GetSource("lifecycle.cooldown_minutes"))
	assert.Equal(t, projectPath, tc.GetTrackedSource("lifecycle.cooldown_minutes").Path)
	assert.Equal(t, SourceEnv, tc.GetSource("lifecycle.auto_generation_enabled"))
	assert.Equal(t, SourceDefault, tc.GetSource("lifecycle.max_auto_tasks_per_workspace"))
	assert.Contains(t, tc.Overrides(), "database.path")
}

func TestLoadWithSources_ProjectErrorIsFatal(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	writeConfig(t, project, "lifecycle: [broken")

	_, err := LoadWithSourcesFrom(project)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		code   teamerrors.Code
	}{
		{"confidence above one", func(c *Config) { c.Lifecycle.ConfidenceThreshold = 1.5 }, teamerrors.CodeConfigInvalid},
		{"negative cooldown", func(c *Config) { c.Lifecycle.CooldownMinutes = -1 }, teamerrors.CodeConfigInvalid},
		{"zero assessment interval", func(c *Config) { c.Lifecycle.AssessmentInterval = 0 }, teamerrors.CodeConfigInvalid},
		{"negative threshold", func(c *Config) { c.Phase.Thresholds.FinalizationToCompleted = -2 }, teamerrors.CodeConfigInvalid},
		{"readiness above one", func(c *Config) { c.Deliverable.ReadinessThreshold = 2 }, teamerrors.CodeConfigInvalid},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, teamerrors.CodeConfigInvalid},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }, teamerrors.CodeConfigMissing},
		{"metrics without addr", func(c *Config) { c.Metrics = MetricsConfig{Enabled: true} }, teamerrors.CodeConfigMissing},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, teamerrors.CodeConfigInvalid},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, teamerrors.CodeConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			te := teamerrors.AsTeamError(err)
			require.NotNil(t, te)
			assert.Equal(t, tt.code, te.Code)
		})
	}
}

func TestApplyEnvVar_UnknownPath(t *testing.T) {
	t.Parallel()
	assert.False(t, applyEnvVar(Default(), "nope.nothing", "1"))
}
