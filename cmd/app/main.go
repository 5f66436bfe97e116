package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"marketsim/internal/api"
	"marketsim/internal/app"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := bootstrap.Engine

	// Read model feeds API queries.
	go bootstrap.Service.Run(ctx, eng.Subscribe(512))

	// Optional journal persists quotes and trades.
	if bootstrap.Journal != nil {
		sub := eng.Subscribe(1024)
		go func() {
			if err := bootstrap.Journal.Run(ctx, sub); err != nil {
				slog.Warn("journal stopped with write errors", slog.Any("error", err))
			}
		}()
		defer bootstrap.Journal.Close()
	}

	if err := eng.Start(ctx); err != nil {
		slog.Error("failed to start engine", slog.Any("error", err))
		os.Exit(1)
	}
	defer eng.Close()

	if bootstrap.Config.API.Enabled {
		server := api.NewServer(eng, bootstrap.Service, slog.Default(), bootstrap.Config.API.Port)
		go func() {
			if err := server.Start(ctx); err != nil {
				slog.Error("API server failed", slog.Any("error", err))
				stop()
			}
		}()
	}

	slog.Info("market simulator running, press Ctrl+C to exit")
	<-ctx.Done()
	slog.Info("shutting down")
}
