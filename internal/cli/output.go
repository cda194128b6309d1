package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/teamlead/internal/util"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func newTable(cmd *cobra.Command) *tabwriter.Writer {
	return tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
}

// emit writes v as JSON when --json is set, otherwise calls text.
func (a *app) emit(cmd *cobra.Command, v any, text func(Styles) error) error {
	if a.jsonOut {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	return text(stylesFor(cmd.OutOrStdout()))
}

// truncate shortens s to n runes, ending in "..." when cut.
func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	if n <= 3 {
		return strings.Repeat(".", n)
	}
	return util.Truncate(s, n-3) + "..."
}
