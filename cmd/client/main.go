package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/auditkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/auditkeeper/internal/client/cli"
	"github.com/dmitrijs2005/auditkeeper/internal/client/config"
	"github.com/dmitrijs2005/auditkeeper/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	log := logging.NewText(os.Stderr, slog.LevelWarn)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Error(ctx, "invalid configuration", "error", err)
		os.Exit(2)
	}

	app, err := cli.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}

	app.Run(ctx)
}
