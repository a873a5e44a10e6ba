package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/rates"
	"github.com/tally-dev/tally/internal/ui"
	"github.com/tally-dev/tally/internal/web"
	"github.com/tally-dev/tally/internal/workspace"
)

// startRefresher schedules background rate refreshes unless the workspace
// runs offline. The returned stop func is always safe to call.
func startRefresher(ws *workspace.Workspace, offline bool) (func(), error) {
	if offline {
		return func() {}, nil
	}
	c, err := rates.StartRefresher(ws.Rates, ws.Config.Rates.Refresh)
	if err != nil {
		return nil, err
	}
	return func() { stopCron(c) }, nil
}

func stopCron(c *cron.Cron) {
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

func newUICommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the terminal expense form and table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUI(cmd, opts)
		},
	}
}

func runUI(cmd *cobra.Command, opts *globalOptions) error {
	root, err := filepath.Abs(opts.dir)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	// The screen belongs to tview, so logs go to a file.
	logFile, err := workspace.LogFile(root)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ws, err := workspace.Open(cmd.Context(), root, workspace.Options{
		Offline:   opts.offline,
		LogOutput: logFile,
	})
	if err != nil {
		return err
	}
	defer ws.Close()

	stop, err := startRefresher(ws, opts.offline)
	if err != nil {
		return err
	}
	defer stop()

	ctrl := ui.NewController(cmd.Context(), ws.Expenses, ws.Rates, time.Now)
	app := ui.NewApp(cmd.Context(), ctrl)
	app.Follow(ws.Rates)
	return app.Run()
}

func newServeCommand(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the expense form and table to a local browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *globalOptions, addr string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ws, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	if addr == "" {
		addr = ws.Config.Server.Addr
	}

	stop, err := startRefresher(ws, opts.offline)
	if err != nil {
		return err
	}
	defer stop()

	srv, err := web.NewServer(ws.Expenses, ws.Rates, ws.Log.WithField("component", "web"))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s (Ctrl-C to stop)\n", ws.Root, addr)
	return srv.ListenAndServe(ctx, addr)
}
