package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alexanderramin/framebudget/internal/cli/formatter"
	"github.com/alexanderramin/framebudget/internal/domain"
	"github.com/alexanderramin/framebudget/internal/service"
	"github.com/spf13/cobra"
)

func newFrameCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Manage frame budgets of coordinator nodes",
	}

	cmd.AddCommand(
		newFrameSetCmd(app),
		newFrameDeleteCmd(app),
		newFramePatchCmd(app),
	)

	return cmd
}

func newFrameSetCmd(app *App) *cobra.Command {
	var in service.FrameRecordInput

	cmd := &cobra.Command{
		Use:   "set NODE_ID",
		Short: "Create or replace the frame budget of a node for one year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.NodeID = args[0]
			rec, err := app.Records.SetFrameRecord(cmd.Context(), in)
			if err != nil {
				return err
			}
			return render(app, cmd, frameRecordView(rec), func() string {
				return fmt.Sprintf("%s frame %d of %s: %s (change %s)",
					formatter.StyleGreen.Render("Saved"), rec.Year, rec.NodeID,
					formatter.Money(rec.FrameBudget), formatter.Money(rec.BudgetChange))
			})
		},
	}

	cmd.Flags().IntVar(&in.Year, "year", time.Now().Year(), "Budget year")
	cmd.Flags().StringVar(&in.FrameBudget, "budget", "", "Frame budget (decimal)")
	cmd.Flags().StringVar(&in.BudgetChange, "change", "", "Budget change (decimal)")
	cmd.Flags().BoolVar(&in.FrameView, "frame-view", false, "Write the frame-view variant")
	_ = cmd.MarkFlagRequired("budget")

	return cmd
}

func newFrameDeleteCmd(app *App) *cobra.Command {
	var year int
	var frameView bool

	cmd := &cobra.Command{
		Use:   "delete NODE_ID",
		Short: "Delete the frame budget of a node for one year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Records.DeleteFrameRecord(cmd.Context(), args[0], year, frameView); err != nil {
				return err
			}
			return render(app, cmd, deletedView{Deleted: true}, func() string {
				return fmt.Sprintf("Deleted frame %d of %s", year, args[0])
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "Budget year")
	cmd.Flags().BoolVar(&frameView, "frame-view", false, "Delete the frame-view variant")

	return cmd
}

func newFramePatchCmd(app *App) *cobra.Command {
	var frameView bool

	cmd := &cobra.Command{
		Use:   "patch NODE_ID [FILE]",
		Short: "Apply a year-keyed JSON patch of frame budgets (reads stdin without FILE)",
		Long: `Apply a partial update of several years at once, for example:

  {"2030": {"frameBudget": "58000"}, "2031": {"budgetChange": "-500"}}

Fields missing from a year keep their stored value.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			var err error
			if len(args) == 2 && args[1] != "-" {
				raw, err = os.ReadFile(args[1])
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("reading patch: %w", err)
			}

			recs, err := app.Records.PatchFrameRecords(cmd.Context(), args[0], frameView, raw)
			if err != nil {
				return err
			}
			views := make([]frameRecordJSON, 0, len(recs))
			for _, r := range recs {
				views = append(views, frameRecordView(r))
			}
			return render(app, cmd, views, func() string {
				return fmt.Sprintf("%s %d frame records of %s", formatter.StyleGreen.Render("Patched"), len(recs), args[0])
			})
		},
	}

	cmd.Flags().BoolVar(&frameView, "frame-view", false, "Patch the frame-view variant")

	return cmd
}

type frameRecordJSON struct {
	NodeID       string `json:"nodeId"`
	Year         int    `json:"year"`
	FrameView    bool   `json:"frameView"`
	FrameBudget  string `json:"frameBudget"`
	BudgetChange string `json:"budgetChange"`
}

func frameRecordView(r *domain.FrameRecord) frameRecordJSON {
	return frameRecordJSON{
		NodeID:       r.NodeID,
		Year:         r.Year,
		FrameView:    r.ForFrameView,
		FrameBudget:  r.FrameBudget.String(),
		BudgetChange: r.BudgetChange.String(),
	}
}

type deletedView struct {
	Deleted bool `json:"deleted"`
}
