package cli

import (
	"time"

	"github.com/alexanderramin/framebudget/internal/aggregate"
	"github.com/alexanderramin/framebudget/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newSeriesCmd(app *App) *cobra.Command {
	var year int
	var frameView, coordinator bool

	cmd := &cobra.Command{
		Use:   "series NODE_ID...",
		Short: "Show the eleven-year budget series of one or more nodes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if len(args) == 1 {
				s, err := app.Series.Series(ctx, aggregate.SeriesRequest{
					NodeID:          args[0],
					StartYear:       year,
					FrameView:       frameView,
					CoordinatorView: coordinator,
				})
				if err != nil {
					return err
				}
				return render(app, cmd, s, func() string { return formatter.FormatSeries(s) })
			}

			list, err := app.Series.ListSeries(ctx, aggregate.ListRequest{
				NodeIDs:         args,
				StartYear:       year,
				FrameView:       frameView,
				CoordinatorView: coordinator,
			})
			if err != nil {
				return err
			}
			return render(app, cmd, list, func() string { return formatter.FormatSeriesList(list) })
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "First year of the series")
	cmd.Flags().BoolVar(&frameView, "frame-view", false, "Use frame-view frame records")
	cmd.Flags().BoolVar(&coordinator, "coordinator", false, "Serve coordinator nodes")

	return cmd
}
