package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/teamlead/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and initialize configuration",
		Long: `View and initialize teamlead configuration.

Configuration is loaded from these sources, later ones winning:
  1. Built-in defaults
  2. ~/.teamlead/config.yaml
  3. .teamlead/config.yaml
  4. --config <file>
  5. TEAMLEAD_* environment variables
  6. --db`,
	}
	cmd.AddCommand(newConfigShowCmd(a), newConfigInitCmd(a))
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	var showSource bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the merged configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showSource {
				overrides := a.tracked.Overrides()
				if len(overrides) == 0 {
					a.printf(cmd, "All values are defaults.\n")
					return nil
				}
				tw := newTable(cmd)
				_, _ = fmt.Fprintln(tw, "KEY\tSOURCE")
				for _, key := range overrides {
					_, _ = fmt.Fprintf(tw, "%s\t%s\n", key, a.tracked.GetTrackedSource(key))
				}
				return tw.Flush()
			}

			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&showSource, "source", false, "list overridden keys and where they came from")
	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to .teamlead/config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := filepath.Join(config.Dir, config.ConfigFileName)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Default().SaveTo(path); err != nil {
				return err
			}
			a.printf(cmd, "%s %s\n", stylesFor(cmd.OutOrStdout()).Success.Render("Wrote"), path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}
