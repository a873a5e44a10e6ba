package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/workspace"
)

func newInitCommand(opts *globalOptions) *cobra.Command {
	var git bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new tally workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.dir
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, git)
		},
	}

	cmd.Flags().BoolVar(&git, "git", false, "create a git repository and commit the data file after every change")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, git bool) error {
	res, err := workspace.Init(cmd.Context(), dir, workspace.InitOptions{
		Git:       git,
		GitOutput: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.CommitHash != "" {
		fmt.Fprintf(out, "Initialized tally workspace at %s (%s)\n", res.Root, res.CommitHash)
		return nil
	}
	fmt.Fprintf(out, "Initialized tally workspace at %s\n", res.Root)
	return nil
}
