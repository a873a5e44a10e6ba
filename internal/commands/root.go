package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/buildinfo"
	"github.com/tally-dev/tally/internal/workspace"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	dir     string
	offline bool
}

// open loads the workspace named by --dir, logging to the command's stderr.
func (o *globalOptions) open(cmd *cobra.Command) (*workspace.Workspace, error) {
	return workspace.Open(cmd.Context(), o.dir, workspace.Options{
		Offline:   o.offline,
		LogOutput: cmd.ErrOrStderr(),
	})
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "tally",
		Short:   "Track expenses in several currencies with a live USD total",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.dir, "dir", ".", "workspace directory")
	rootCmd.PersistentFlags().BoolVar(&opts.offline, "offline", false, "skip the live rate lookup and use the fallback table")

	rootCmd.AddCommand(
		newInitCommand(opts),
		newAddCommand(opts),
		newListCommand(opts),
		newEditCommand(opts),
		newDeleteCommand(opts),
		newClearCommand(opts),
		newTotalCommand(opts),
		newRatesCommand(opts),
		newImportCommand(opts),
		newExportCommand(opts),
		newLogCommand(opts),
		newUICommand(opts),
		newServeCommand(opts),
	)

	return rootCmd
}
