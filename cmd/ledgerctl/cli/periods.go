package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
)

func newPeriodsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "periods",
		Short: "Manage fiscal periods",
	}

	var year int
	create := &cobra.Command{
		Use:   "create-year",
		Short: "Create the twelve monthly periods of a fiscal year",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.requireActor(); err != nil {
				return err
			}
			return opts.withLedger(cmd, func(m *accounting.Module) error {
				list, err := m.Periods.CreateYear(cmd.Context(), opts.companyID, opts.actorID, year)
				if err != nil {
					return err
				}
				return printPeriods(cmd.OutOrStdout(), list)
			})
		},
	}
	create.Flags().IntVar(&year, "year", time.Now().Year(), "fiscal year")
	cmd.AddCommand(create)

	var listYear int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the periods of a fiscal year",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withLedger(cmd, func(m *accounting.Module) error {
				list, err := m.Periods.List(cmd.Context(), opts.companyID, listYear)
				if err != nil {
					return err
				}
				return printPeriods(cmd.OutOrStdout(), list)
			})
		},
	}
	list.Flags().IntVar(&listYear, "year", time.Now().Year(), "fiscal year")
	cmd.AddCommand(list)

	cmd.AddCommand(periodTransition(opts, "close", "Close an open period", (*periods.Service).Close))
	cmd.AddCommand(periodTransition(opts, "reopen", "Reopen a closed period", (*periods.Service).Reopen))
	return cmd
}

type transitionFunc func(s *periods.Service, ctx context.Context, companyID, actorID, periodID int64) (periods.Period, error)

func periodTransition(opts *options, use, short string, fn transitionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <period-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid period id %q", args[0])
			}
			if err := opts.requireActor(); err != nil {
				return err
			}
			return opts.withLedger(cmd, func(m *accounting.Module) error {
				p, err := fn(m.Periods, cmd.Context(), opts.companyID, opts.actorID, id)
				if err != nil {
					return err
				}
				return printPeriods(cmd.OutOrStdout(), []periods.Period{p})
			})
		},
	}
}

func printPeriods(w io.Writer, list []periods.Period) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tYEAR\tNO\tSTART\tEND\tSTATUS")
	for _, p := range list {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\t%s\n", p.ID, p.FiscalYear, p.PeriodNumber,
			p.StartDate.Format(time.DateOnly), p.EndDate.Format(time.DateOnly), p.Status)
	}
	return tw.Flush()
}
