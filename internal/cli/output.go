package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/spf13/cobra"
)

// useJSON selects JSON when --json is set or stdout is not a terminal.
func useJSON(app *App, cmd *cobra.Command) bool {
	if asJSON, err := cmd.Flags().GetBool("json"); err == nil && asJSON {
		return true
	}
	if app.IsInteractive == nil {
		return true
	}
	return !app.IsInteractive()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// render writes v as JSON, or the text produced by table otherwise.
func render(app *App, cmd *cobra.Command, v any, table func() string) error {
	if useJSON(app, cmd) {
		return writeJSON(cmd.OutOrStdout(), v)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), table())
	return err
}

type errorBody struct {
	Kind    string              `json:"kind"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

type errorPayload struct {
	Error errorBody `json:"error"`
}

func classifyError(err error) errorBody {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return errorBody{Kind: "validation", Message: err.Error(), Fields: verr.Fields}
	case errors.Is(err, domain.ErrNotFound):
		return errorBody{Kind: "not_found", Message: err.Error()}
	default:
		return errorBody{Kind: "error", Message: err.Error()}
	}
}

func writeJSONError(w io.Writer, err error) {
	_ = writeJSON(w, errorPayload{Error: classifyError(err)})
}

func writeTextError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
}
