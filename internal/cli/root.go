// Package cli implements the teamlead command-line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/randalmurphal/teamlead/internal/config"
	"github.com/randalmurphal/teamlead/internal/db/driver"
)

// app carries the global flags and the configuration resolved for one
// invocation.
type app struct {
	cfgFile string
	dbPath  string
	verbose bool
	jsonOut bool

	v       *viper.Viper
	tracked *config.TrackedConfig
	cfg     *config.Config
	logger  *slog.Logger
	stderr  io.Writer
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), stderr: os.Stderr}

	rootCmd := &cobra.Command{
		Use:   "teamlead",
		Short: "Task lifecycle engine for agent teams",
		Long: `teamlead reacts to completed and failed tasks in an agent workspace.

It turns project-manager plans into subtasks, proposes follow-up handoffs for
specialists, escalates failures to the manager, triggers planning when a phase
completes and assembles the final deliverable.

Quick start:
  teamlead migrate                         Create the database schema
  teamlead workspace create "Site" --goal "Build a landing page"
  teamlead agent add <workspace> "Maya" --role "Project Manager"
  teamlead complete <task-id> --summary "done"
  teamlead serve                           Consume task events from NATS`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.stderr = cmd.ErrOrStderr()
			return a.loadConfig()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is .teamlead/config.yaml)")
	flags.StringVar(&a.dbPath, "db", "", "database path (sqlite) or DSN (postgres)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVar(&a.jsonOut, "json", false, "output as JSON")
	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = a.v.BindPFlag("json", flags.Lookup("json"))

	rootCmd.AddCommand(
		newMigrateCmd(a),
		newWorkspaceCmd(a),
		newAgentCmd(a),
		newAgentsCmd(a),
		newTaskCmd(a),
		newCompleteCmd(a),
		newFailCmd(a),
		newPhaseCmd(a),
		newPlanPhaseCmd(a),
		newDeliverableCmd(a),
		newAssessCmd(a),
		newStatusCmd(a),
		newConfigCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		if wantsJSON(cmd) {
			PrintErrorJSON(cmd.ErrOrStderr(), err)
		} else {
			PrintError(cmd.ErrOrStderr(), err, isVerbose(cmd))
		}
		return ExitCode(err)
	}
	return 0
}

func isVerbose(cmd *cobra.Command) bool {
	v, _ := cmd.PersistentFlags().GetBool("verbose")
	return v
}

func wantsJSON(cmd *cobra.Command) bool {
	v, _ := cmd.PersistentFlags().GetBool("json")
	return v
}

// loadConfig resolves the configuration and sets up logging.
func (a *app) loadConfig() error {
	a.v.SetEnvPrefix("TEAMLEAD")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	tc, err := a.resolveConfig()
	if err != nil {
		return err
	}

	a.tracked = tc
	a.cfg = tc.Config
	a.verbose = a.v.GetBool("verbose")
	a.jsonOut = a.v.GetBool("json")
	a.logger = newLogger(a.stderr, a.cfg.Log, a.verbose)
	slog.SetDefault(a.logger)

	for _, key := range tc.Overrides() {
		a.logger.Debug("config override", "key", key, "source", tc.GetTrackedSource(key).String())
	}
	return nil
}

// resolveConfig layers defaults, user and project files, an explicit
// --config file, TEAMLEAD_* variables and finally --db, then validates.
func (a *app) resolveConfig() (*config.TrackedConfig, error) {
	tc, err := config.LoadWithSources()
	if err != nil {
		return nil, err
	}
	if a.cfgFile != "" {
		if err := config.MergeFile(tc, a.cfgFile, config.SourceFile); err != nil {
			return nil, err
		}
		// Environment still wins over an explicit file.
		config.ApplyEnvVars(tc)
	}

	if a.dbPath != "" {
		if tc.Config.Dialect() == driver.DialectPostgres {
			tc.Config.Database.DSN = a.dbPath
			tc.SetSource("database.dsn", config.SourceFlag)
		} else {
			tc.Config.Database.Path = a.dbPath
			tc.SetSource("database.path", config.SourceFlag)
		}
	}
	if err := tc.Config.Validate(); err != nil {
		return nil, err
	}
	return tc, nil
}

// configFileInUse returns the file serve should watch, or "".
func (a *app) configFileInUse() string {
	if a.cfgFile != "" {
		return a.cfgFile
	}
	path := filepath.Join(config.Dir, config.ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func newLogger(w io.Writer, lc config.LogConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *app) printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
