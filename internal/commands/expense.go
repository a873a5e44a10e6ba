package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tally-dev/tally/internal/id"
	"github.com/tally-dev/tally/internal/model"
	"github.com/tally-dev/tally/internal/rates"
)

// draftFlags are the form fields shared by add and edit.
type draftFlags struct {
	amount   string
	currency string
	category string
	payment  string
	date     string
}

func (f *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount, e.g. 12.50")
	cmd.Flags().StringVar(&f.currency, "currency", "", "currency code, e.g. GBP")
	cmd.Flags().StringVar(&f.category, "category", "", "expense category")
	cmd.Flags().StringVar(&f.payment, "payment", "", "payment method")
	cmd.Flags().StringVar(&f.date, "date", "", `date as YYYY-MM-DD, or "today"`)
}

// apply overwrites the fields of d whose flags were set on cmd.
func (f *draftFlags) apply(cmd *cobra.Command, d model.Draft) model.Draft {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("amount", &d.Amount, f.amount)
	set("currency", &d.Currency, f.currency)
	set("category", &d.Category, f.category)
	set("payment", &d.Payment, f.payment)
	set("date", &d.Date, expandDate(f.date, time.Now()))
	return d
}

func expandDate(v string, now time.Time) string {
	if strings.EqualFold(strings.TrimSpace(v), "today") {
		return now.Format(model.DateLayout)
	}
	return v
}

func describe(e model.Expense) string {
	return fmt.Sprintf("%s %s %s %s via %s on %s",
		id.Short(e.ID), e.Amount.StringFixed(2), e.Currency, e.Category, e.Payment, e.Date)
}

func newAddCommand(opts *globalOptions) *cobra.Command {
	var f draftFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, opts, f.apply(cmd, model.Draft{}))
		},
	}
	f.register(cmd)

	return cmd
}

func runAdd(cmd *cobra.Command, opts *globalOptions, d model.Draft) error {
	ws, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	exp, err := ws.Expenses.Add(cmd.Context(), d)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", describe(exp))
	return nil
}

func newListCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show all expenses with the converted total",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts)
		},
	}
}

func runList(cmd *cobra.Command, opts *globalOptions) error {
	ws, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	total, tbl := ws.Total(cmd.Context())

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAMOUNT\tCURRENCY\tCATEGORY\tPAYMENT\tDATE")
	for _, e := range ws.Expenses.List() {
		fmt.Fprintf(tw, "%s\t%s\n", id.Short(e.ID), strings.Join(e.Row(), "\t"))
	}
	fmt.Fprintln(tw, strings.Join(total.Row(), "\t"))
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}

	warnRates(cmd.ErrOrStderr(), total, tbl.Source, ws.Rates.LastError())
	return nil
}

func newEditCommand(opts *globalOptions) *cobra.Command {
	var f draftFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of an expense",
		Long:  "Change fields of an expense. Only the flags given are changed; the id may be a unique prefix.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, opts, args[0], &f)
		},
	}
	f.register(cmd)

	return cmd
}

func runEdit(cmd *cobra.Command, opts *globalOptions, ref string, f *draftFlags) error {
	ws, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	cur, err := ws.Expenses.Resolve(ref)
	if err != nil {
		return err
	}
	exp, err := ws.Expenses.Update(cmd.Context(), cur.ID, f.apply(cmd, cur.Draft()))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", describe(exp))
	return nil
}

func newDeleteCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete expenses",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, opts, args)
		},
	}
}

func runDelete(cmd *cobra.Command, opts *globalOptions, refs []string) error {
	ws, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		exp, err := ws.Expenses.Resolve(ref)
		if err != nil {
			return err
		}
		ids = append(ids, exp.ID)
	}

	n, err := ws.Expenses.Delete(cmd.Context(), ids...)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expense(s).\n", n)
	return nil
}

func newClearCommand(opts *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(cmd, opts, yes)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting all expenses")

	return cmd
}

func runClear(cmd *cobra.Command, opts *globalOptions, yes bool) error {
	ws, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer ws.Close()

	if !yes {
		return fmt.Errorf("refusing to delete %d expense(s) without --yes", ws.Expenses.Len())
	}
	n, err := ws.Expenses.Clear(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "All expenses cleared (%d removed).\n", n)
	return nil
}

// warnRates notes on w when the total is not fully backed by live rates.
// lookupErr is the reason the live lookup failed, if known.
func warnRates(w io.Writer, total model.Total, source rates.Source, lookupErr error) {
	if source != rates.SourceLive {
		reason := "offline"
		if lookupErr != nil && !errors.Is(lookupErr, rates.ErrOffline) {
			reason = lookupErr.Error()
		}
		fmt.Fprintf(w, "warning: using fallback currency rates (%s)\n", reason)
	}
	if len(total.Unconverted) > 0 {
		fmt.Fprintf(w, "warning: no rate for %s; left out of the total\n", strings.Join(total.Unconverted, ", "))
	}
}
