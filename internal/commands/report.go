package commands

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/id"
	"github.com/tally-dev/tally/internal/rates"
)

func newTotalCommand(opts *globalOptions) *cobra.Command {
	var byCategory bool

	cmd := &cobra.Command{
		Use:   "total",
		Short: "Print the total of all expenses in the base currency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTotal(cmd, opts, byCategory)
		},
	}
	cmd.Flags().BoolVar(&byCategory, "by-category", false, "break the total down per category")

	return cmd
}

func runTotal(cmd *cobra.Command, opts *globalOptions, byCategory bool) error {
	ws, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	total, tbl := ws.Total(cmd.Context())
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if byCategory {
		breakdown := ws.Expenses.Breakdown(tbl)
		for _, ct := range breakdown {
			fmt.Fprintf(tw, "%s\t%s\t%s\t(%d)\n", ct.Category, ct.Amount.StringFixed(2), total.Currency, ct.Count)
		}
	}
	fmt.Fprintf(tw, "%s\t%s\t%s\t(%d)\n", "TOTAL", total.Amount.StringFixed(2), total.Currency, total.Count)
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing totals: %w", err)
	}

	warnRates(cmd.ErrOrStderr(), total, tbl.Source, ws.Rates.LastError())
	return nil
}

func newRatesCommand(opts *globalOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Fetch and print the exchange rates used for totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRates(cmd, opts, all)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every currency the rate table knows, not only the offered ones")

	return cmd
}

func runRates(cmd *cobra.Command, opts *globalOptions, all bool) error {
	ws, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	tbl, err := ws.Rates.Refresh(cmd.Context())
	switch {
	case errors.Is(err, rates.ErrOffline):
	case err != nil:
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: live rates unavailable: %v\n", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Base: %s (source: %s", tbl.Base, tbl.Source)
	if !tbl.FetchedAt.IsZero() && tbl.Source == rates.SourceLive {
		fmt.Fprintf(out, ", fetched %s", tbl.FetchedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintln(out, ")")

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "CURRENCY\tPER %s\n", tbl.Base)
	codes := ws.Catalog.Currencies()
	if all {
		codes = tbl.Codes()
	}
	for _, code := range codes {
		r, ok := tbl.Rate(code)
		if !ok {
			fmt.Fprintf(tw, "%s\t-\n", code)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", code, r.String())
	}
	return tw.Flush()
}

func newLogCommand(opts *globalOptions) *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent changes to the expense list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(cmd, opts, n)
		},
	}
	cmd.Flags().IntVarP(&n, "number", "n", 20, "number of entries to show (0 for all)")

	return cmd
}

func runLog(cmd *cobra.Command, opts *globalOptions, n int) error {
	ws, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	entries, err := ws.Activity.Tail(n)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No activity yet.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tACTION\tEXPENSES\tDETAILS\tCOMMIT")
	for _, e := range entries {
		short := make([]string, len(e.ExpenseIDs))
		for i, x := range e.ExpenseIDs {
			short[i] = id.Short(x)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Action, strings.Join(short, ","), e.Details, e.CommitHash)
	}
	return tw.Flush()
}
