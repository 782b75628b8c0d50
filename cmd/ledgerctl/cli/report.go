package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/reports"
)

func newReportCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print ledger reports",
	}

	var (
		asOf        string
		includeZero bool
		lang        string
	)
	tb := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print the trial balance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := reports.TrialBalanceFilter{IncludeZero: includeZero}
			if asOf != "" {
				d, err := time.Parse(time.DateOnly, asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of %q: want YYYY-MM-DD", asOf)
				}
				filter.AsOf = &d
			}
			tag, err := language.Parse(lang)
			if err != nil {
				return fmt.Errorf("invalid --lang %q", lang)
			}
			return opts.withLedger(cmd, func(m *accounting.Module) error {
				report, err := m.Reports.TrialBalance(cmd.Context(), opts.companyID, filter)
				if err != nil {
					return err
				}
				PrintTrialBalance(cmd.OutOrStdout(), message.NewPrinter(tag), report)
				return nil
			})
		},
	}
	tb.Flags().StringVar(&asOf, "as-of", "", "balances as of this date (YYYY-MM-DD), default current")
	tb.Flags().BoolVar(&includeZero, "include-zero", false, "include accounts without activity")
	tb.Flags().StringVar(&lang, "lang", "en", "locale used to format amounts")
	cmd.AddCommand(tb)
	return cmd
}

// PrintTrialBalance renders the report as a fixed-width table with one subtotal per group.
func PrintTrialBalance(w io.Writer, p *message.Printer, tb reports.TrialBalance) {
	title := "Trial Balance"
	if tb.AsOf != nil {
		title += " as of " + tb.AsOf.Format(time.DateOnly)
	}
	rule := strings.Repeat("-", 74)
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  %-8s %-30s %15s %15s\n", "CODE", "ACCOUNT", "DEBIT", "CREDIT")
	fmt.Fprintln(w, rule)
	for _, g := range tb.Groups {
		for _, row := range g.Rows {
			fmt.Fprintf(w, "  %-8s %-30s %15s %15s\n", row.Code, truncate(row.Name, 30), amount(p, row.Debit), amount(p, row.Credit))
		}
		fmt.Fprintf(w, "  %-8s %-30s %15s %15s\n", "", "Total "+g.Key, amount(p, g.Debit), amount(p, g.Credit))
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  %-8s %-30s %15s %15s\n", "", "TOTAL", amount(p, tb.TotalDebit), amount(p, tb.TotalCredit))
	if tb.Balanced() {
		fmt.Fprintln(w, "balanced")
	} else {
		fmt.Fprintf(w, "OUT OF BALANCE by %s\n", amount(p, tb.Difference))
	}
}

func amount(p *message.Printer, v float64) string {
	if v == 0 {
		return "-"
	}
	return p.Sprintf("%.2f", v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
