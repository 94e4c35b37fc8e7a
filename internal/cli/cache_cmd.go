package cli

import (
	"time"

	"github.com/alexanderramin/framebudget/internal/cli/formatter"
	"github.com/spf13/cobra"
)

type cacheStatusJSON struct {
	State    string     `json:"state"`
	Failures int        `json:"failures"`
	Disabled bool       `json:"disabled"`
	OpenedAt *time.Time `json:"openedAt,omitempty"`
}

func newCacheCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the result cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the cache circuit breaker state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := app.Cache.Status()
			view := cacheStatusJSON{State: st.State.String(), Failures: st.Failures, Disabled: st.Disabled}
			if !st.OpenedAt.IsZero() {
				view.OpenedAt = &st.OpenedAt
			}
			return render(app, cmd, view, func() string {
				return formatter.FormatCacheStatus(st, time.Now())
			})
		},
	})

	return cmd
}
