package cli

import (
	"github.com/alexanderramin/framebudget/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import nodes, projects and records from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Import.Import(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(app, cmd, result, func() string {
				return formatter.FormatImportResult(result)
			})
		},
	}
}
