// Package cli implements ledgerctl, the operator tool for the ledger.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

// Env is what the commands operate on.
type Env struct {
	Ledger *accounting.Module
	Jobs   JobQueue
	Close  func()
}

// Opener builds the Env. It runs only when a command needs it, so help output works
// without a database.
type Opener func(ctx context.Context) (*Env, error)

type options struct {
	companyID int64
	actorID   int64
	open      Opener
}

// withEnv opens the environment for the duration of fn.
func (o *options) withEnv(cmd *cobra.Command, fn func(*Env) error) error {
	env, err := o.open(cmd.Context())
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	if env.Close != nil {
		defer env.Close()
	}
	return fn(env)
}

// withLedger is withEnv for commands scoped to one company.
func (o *options) withLedger(cmd *cobra.Command, fn func(*accounting.Module) error) error {
	if o.companyID <= 0 {
		return errors.New("--company is required")
	}
	return o.withEnv(cmd, func(env *Env) error {
		if env.Ledger == nil {
			return errors.New("ledger not configured")
		}
		return fn(env.Ledger)
	})
}

func (o *options) requireActor() error {
	if o.actorID <= 0 {
		return errors.New("--actor is required")
	}
	return nil
}

// NewRootCommand assembles the command tree.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &options{open: open}
	root := &cobra.Command{
		Use:          "ledgerctl",
		Short:        "Operate the double-entry ledger",
		SilenceUsage: true,
	}
	root.PersistentFlags().Int64Var(&opts.companyID, "company", 0, "company id")
	root.PersistentFlags().Int64Var(&opts.actorID, "actor", 0, "acting user id recorded in the audit trail")

	root.AddCommand(newChartCommand(opts))
	root.AddCommand(newPeriodsCommand(opts))
	root.AddCommand(newReportCommand(opts))
	root.AddCommand(newJobsCommand(opts))
	return root
}
