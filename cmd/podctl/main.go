// podctl runs operator jobs against the fulfillment database without the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"pod_fulfillment_v1/internal/app"
	"pod_fulfillment_v1/internal/config"
	"pod_fulfillment_v1/internal/service"
	"pod_fulfillment_v1/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "podctl",
		Usage: "print-on-demand fulfillment operations",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to config.yaml"},
			&cli.StringFlag{Name: "log-level", Value: "info"},
		},
		Commands: []*cli.Command{
			{
				Name:   "seed-providers",
				Usage:  "upsert the built-in provider registry",
				Action: withApp(seedProviders),
			},
			{
				Name:  "sync-catalog",
				Usage: "import provider catalogs into the local snapshot",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "provider", Aliases: []string{"p"}, Usage: "only this provider slug"},
				},
				Action: withApp(syncCatalog),
			},
			{
				Name:  "refresh-orders",
				Usage: "pull provider status for open orders",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "batch", Value: 100, Usage: "orders per batch"},
					&cli.IntFlag{Name: "limit", Usage: "stop after this many orders (0: all)"},
				},
				Action: withApp(refreshOrders),
			},
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type command func(c *cli.Context, a *app.App, log *zap.Logger) error

func withApp(run command) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}
		log, err := logger.New(c.String("log-level"), cfg.Server.Environment)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		a, err := app.Open(c.Context, cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()
		return run(c, a, log)
	}
}

// ==================== commands ====================

func seedProviders(c *cli.Context, a *app.App, log *zap.Logger) error {
	n, err := a.Services.Registry.Seed(c.Context, service.DefaultProviders())
	if err != nil {
		return err
	}
	log.Info("providers seeded", zap.Int("providers", n))
	return nil
}

func syncCatalog(c *cli.Context, a *app.App, log *zap.Logger) error {
	if slug := c.String("provider"); slug != "" {
		res, err := a.Services.Catalog.SyncCatalog(c.Context, slug)
		if err != nil {
			return err
		}
		return printJSON(res)
	}
	report := a.Services.Catalog.SyncAll(c.Context)
	for _, w := range report.Warnings {
		log.Warn("provider skipped", zap.String("provider", w.Provider), zap.String("reason", w.Reason))
	}
	return printJSON(report)
}

func refreshOrders(c *cli.Context, a *app.App, log *zap.Logger) error {
	batch, limit := c.Int("batch"), c.Int("limit")
	var cursor int64
	total, failed := 0, 0
	for {
		res, err := a.Services.Tracking.RefreshBatch(c.Context, cursor, batch)
		if err != nil {
			return err
		}
		total += res.Orders
		failed += res.Failed
		cursor = res.LastID
		if cursor == 0 || (limit > 0 && total >= limit) || c.Context.Err() != nil {
			break
		}
	}
	log.Info("orders refreshed", zap.Int("orders", total), zap.Int("failed", failed))
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d orders failed to refresh", failed, total), 2)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
