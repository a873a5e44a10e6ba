package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/transfer"
	"github.com/tally-dev/tally/internal/workspace"
)

func newImportCommand(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import expenses from a CSV or JSON file",
		Long: `Import expenses from a CSV or JSON file. Every record is validated first;
if any is invalid nothing is imported.

Without a file, every readable file in the workspace import/ folder is
imported and then moved to import/processed/.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runImportFile(cmd, opts, args[0], format)
			}
			return runImportScan(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "file format (csv or json); guessed from the extension when empty")

	return cmd
}

func runImportFile(cmd *cobra.Command, opts *globalOptions, path, format string) error {
	ws, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	f, err := ws.Transfers.Resolve(format, path)
	if err != nil {
		return err
	}
	n, err := importOne(cmd, ws, path, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d expense(s) from %s\n", n, filepath.Base(path))
	return nil
}

func runImportScan(cmd *cobra.Command, opts *globalOptions) error {
	ws, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	files, err := transfer.Scan(ws.Root, ws.Transfers)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintln(out, "No files in import/.")
		return nil
	}

	for _, fi := range files {
		n, err := importOne(cmd, ws, fi.Path, fi.Format)
		if err != nil {
			return err
		}
		if err := transfer.MarkProcessed(ws.Root, fi.Name); err != nil {
			return err
		}
		fmt.Fprintf(out, "Imported %d expense(s) from %s\n", n, fi.Name)
	}
	return nil
}

func importOne(cmd *cobra.Command, ws *workspace.Workspace, path string, f transfer.Format) (int, error) {
	drafts, err := transfer.ReadFile(path, f)
	if err != nil {
		return 0, err
	}
	added, err := ws.Expenses.Import(cmd.Context(), drafts)
	if err != nil {
		return 0, fmt.Errorf("importing %s: %w", filepath.Base(path), err)
	}
	return len(added), nil
}

func newExportCommand(opts *globalOptions) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all expenses as CSV or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts, format, output)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "csv or json; guessed from --output, json when writing to stdout")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (stdout when empty)")

	return cmd
}

func runExport(cmd *cobra.Command, opts *globalOptions, format, output string) error {
	ws, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	if format == "" && output == "" {
		format = transfer.JSONFormat{}.Name()
	}
	f, err := ws.Transfers.Resolve(format, output)
	if err != nil {
		return err
	}

	list := ws.Expenses.List()
	if output == "" {
		return f.Write(cmd.OutOrStdout(), list)
	}

	fh, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	if err := f.Write(fh, list); err != nil {
		fh.Close()
		return fmt.Errorf("writing %s: %w", output, err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", output, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d expense(s) to %s\n", len(list), output)
	return nil
}
