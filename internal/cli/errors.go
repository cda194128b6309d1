package cli

import (
	"fmt"
	"io"

	teamerrors "github.com/randalmurphal/teamlead/internal/errors"
)

// PrintError prints err to w. A TeamError gets its user-facing form; in
// verbose mode the code and cause follow.
func PrintError(w io.Writer, err error, verbose bool) {
	st := stylesFor(w)
	if te := teamerrors.AsTeamError(err); te != nil {
		_, _ = fmt.Fprintln(w, st.Error.Render(te.UserMessage()))
		if verbose {
			_, _ = fmt.Fprintf(w, "\nCode: %s\n", te.Code)
			if te.Cause != nil {
				_, _ = fmt.Fprintf(w, "Cause: %v\n", te.Cause)
			}
		}
		return
	}
	_, _ = fmt.Fprintln(w, st.Error.Render("Error: "+err.Error()))
}

// PrintErrorJSON writes err to w as {"error": ...}. A TeamError keeps its
// code, why and fix fields.
func PrintErrorJSON(w io.Writer, err error) {
	var payload any = map[string]string{"what": err.Error()}
	if te := teamerrors.AsTeamError(err); te != nil {
		payload = te
	}
	_ = writeJSON(w, map[string]any{"error": payload})
}

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if te := teamerrors.AsTeamError(err); te != nil {
		return te.Category().ExitCode()
	}
	return 1
}
