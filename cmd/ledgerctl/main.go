package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/odyssey-ledger/cmd/ledgerctl/cli"
	"github.com/odyssey-erp/odyssey-ledger/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(openEnv)
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// openEnv connects to Postgres and Redis the same way the API does.
func openEnv(ctx context.Context) (*cli.Env, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(cfg)
	rt, err := app.NewRuntime(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	queue := cli.NewJobsCLI(rt.RedisOpt())
	return &cli.Env{
		Ledger: rt.Ledger(),
		Jobs:   queue,
		Close: func() {
			_ = queue.Close()
			rt.Close()
		},
	}, nil
}
