package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/oil_storefront/internal/app"
	"github.com/fjod/oil_storefront/internal/cli"
	"github.com/fjod/oil_storefront/internal/config"
	"github.com/fjod/oil_storefront/internal/logger"
	"github.com/fjod/oil_storefront/internal/tracing"
	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	shutdownTracing := tracing.Init(cfg.TracingEnabled)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Str("backend", string(cfg.StoreBackend)).Msg("failed to open storefront")
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}()

	if err := cli.New(a, os.Stdout).Run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, cli.ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}
