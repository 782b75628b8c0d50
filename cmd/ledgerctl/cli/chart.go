package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// ChartNode is one account in a chart file. Children inherit the node as parent.
type ChartNode struct {
	Code           string      `yaml:"code"`
	Name           string      `yaml:"name"`
	LocalizedName  string      `yaml:"localized_name"`
	Type           string      `yaml:"type"`
	Nature         string      `yaml:"nature"`
	Classification string      `yaml:"classification"`
	Header         bool        `yaml:"header"`
	Children       []ChartNode `yaml:"children"`
}

// Chart is the document read by `chart seed`.
type Chart struct {
	Accounts []ChartNode `yaml:"accounts"`
}

// ParseChart decodes a chart document, rejecting unknown keys.
func ParseChart(r io.Reader) (Chart, error) {
	var chart Chart
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&chart); err != nil {
		if errors.Is(err, io.EOF) {
			return Chart{}, errors.New("chart is empty")
		}
		return Chart{}, fmt.Errorf("parse chart: %w", err)
	}
	return chart, nil
}

// AccountSeeder is the slice of the account directory used for seeding.
type AccountSeeder interface {
	GetByCode(ctx context.Context, companyID int64, code string) (accounts.Account, error)
	Create(ctx context.Context, companyID, actorID int64, in accounts.CreateInput) (accounts.Account, error)
}

// SeedResult counts what a seed run did.
type SeedResult struct {
	Created int
	Skipped int
}

// SeedChart creates the chart depth first so parents exist before their children.
// Codes already present are left untouched, which makes reruns safe.
func SeedChart(ctx context.Context, svc AccountSeeder, companyID, actorID int64, chart Chart) (SeedResult, error) {
	var res SeedResult
	var walk func(nodes []ChartNode, parent *int64) error
	walk = func(nodes []ChartNode, parent *int64) error {
		for _, node := range nodes {
			acc, err := svc.GetByCode(ctx, companyID, node.Code)
			switch {
			case err == nil:
				res.Skipped++
			case errors.Is(err, shared.ErrNotFound):
				acc, err = svc.Create(ctx, companyID, actorID, accounts.CreateInput{
					Code:           node.Code,
					Name:           node.Name,
					LocalizedName:  node.LocalizedName,
					Type:           accounts.AccountType(node.Type),
					Nature:         accounts.Nature(node.Nature),
					Classification: accounts.Classification(node.Classification),
					ParentID:       parent,
					IsHeader:       node.Header || len(node.Children) > 0,
				})
				if err != nil {
					return fmt.Errorf("account %s: %w", node.Code, err)
				}
				res.Created++
			default:
				return fmt.Errorf("account %s: %w", node.Code, err)
			}
			if len(node.Children) > 0 {
				id := acc.ID
				if err := walk(node.Children, &id); err != nil {
					return err
				}
			}
		}
		return nil
	}
	err := walk(chart.Accounts, nil)
	return res, err
}

func newChartCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Manage the chart of accounts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Create the accounts listed in a YAML chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.requireActor(); err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			chart, err := ParseChart(f)
			if err != nil {
				return err
			}
			return opts.withLedger(cmd, func(m *accounting.Module) error {
				res, err := SeedChart(cmd.Context(), m.Accounts, opts.companyID, opts.actorID, chart)
				fmt.Fprintf(cmd.OutOrStdout(), "created %d, skipped %d\n", res.Created, res.Skipped)
				return err
			})
		},
	})
	return cmd
}
