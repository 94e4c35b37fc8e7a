package cli

import (
	"fmt"
	"time"

	"github.com/alexanderramin/framebudget/internal/cli/formatter"
	"github.com/alexanderramin/framebudget/internal/service"
	"github.com/spf13/cobra"
)

func newRecordCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Manage planned spend of projects",
	}

	cmd.AddCommand(
		newRecordSetCmd(app),
		newRecordDeleteCmd(app),
	)

	return cmd
}

type projectRecordJSON struct {
	ProjectID string `json:"projectId"`
	Year      int    `json:"year"`
	Value     string `json:"value"`
}

func newRecordSetCmd(app *App) *cobra.Command {
	var in service.ProjectRecordInput

	cmd := &cobra.Command{
		Use:   "set PROJECT_ID",
		Short: "Create or replace the planned spend of a project for one year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.ProjectID = args[0]
			rec, err := app.Records.SetProjectRecord(cmd.Context(), in)
			if err != nil {
				return err
			}
			view := projectRecordJSON{ProjectID: rec.ProjectID, Year: rec.Year, Value: rec.Value.String()}
			return render(app, cmd, view, func() string {
				return fmt.Sprintf("%s %d of %s: %s",
					formatter.StyleGreen.Render("Saved"), rec.Year, rec.ProjectID, formatter.Money(rec.Value))
			})
		},
	}

	cmd.Flags().IntVar(&in.Year, "year", time.Now().Year(), "Budget year")
	cmd.Flags().StringVar(&in.Value, "value", "", "Planned spend (decimal)")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func newRecordDeleteCmd(app *App) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "delete PROJECT_ID",
		Short: "Delete the planned spend of a project for one year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Records.DeleteProjectRecord(cmd.Context(), args[0], year); err != nil {
				return err
			}
			return render(app, cmd, deletedView{Deleted: true}, func() string {
				return fmt.Sprintf("Deleted %d of %s", year, args[0])
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "Budget year")

	return cmd
}
