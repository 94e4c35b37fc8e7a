package cli

import (
	"context"
	"io"

	"github.com/alexanderramin/framebudget/internal/cache"
	"github.com/alexanderramin/framebudget/internal/service"
	"github.com/spf13/cobra"
)

// CacheStatus reports the cache circuit breaker.
type CacheStatus interface {
	Status() cache.BreakerStatus
}

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Series  service.SeriesService
	Records service.RecordService
	Import  service.ImportService
	Cache   CacheStatus

	// IsInteractive reports whether stdout is a terminal. Non-interactive
	// output is JSON.
	IsInteractive func() bool
}

// NewRootCmd creates the top-level "framebudget" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "framebudget",
		Short:         "Rolling budget series for coordinator and planning hierarchies",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().Bool("json", false, "Write JSON instead of tables")

	root.AddCommand(
		newSeriesCmd(app),
		newFrameCmd(app),
		newRecordCmd(app),
		newCacheCmd(app),
		newImportCmd(app),
	)

	return root
}

// Execute runs the root command with args and reports a failure in the
// selected output mode. It returns the process exit code.
func Execute(ctx context.Context, app *App, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd(app)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return 0
	}
	if cmd == nil {
		cmd = root
	}
	if useJSON(app, cmd) {
		writeJSONError(stdout, err)
	} else {
		writeTextError(stderr, err)
	}
	return 1
}
