package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"pod_fulfillment_v1/internal/app"
	"pod_fulfillment_v1/internal/config"
	"pod_fulfillment_v1/pkg/logger"
)

func main() {
	server := &cli.App{
		Name:  "server",
		Usage: "print-on-demand fulfillment HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to config.yaml"},
		},
		Action: serve,
	}
	if err := server.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.Must(cfg.Log.Level, cfg.Server.Environment)
	defer func() { _ = log.Sync() }()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. database, registry and services
	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer func() { _ = a.Close() }()

	// 2. background tasks
	if err := a.Tasks.Start(); err != nil {
		return fmt.Errorf("start background tasks: %w", err)
	}
	defer a.Tasks.Stop()

	// 3. HTTP
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: a.Handler(),
	}
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}
