package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	rasacontrol "github.com/ntphong404/rasa-control"
	"github.com/ntphong404/rasa-control/internal/logger"
)

func createServeCommand(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the control-plane HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(flags.ConfigPath)
		},
	}
}

func runServe(configPath string) error {
	cfg, err := rasacontrol.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Color)

	if err := rasacontrol.RegisterDefaultMetrics(); err != nil {
		slog.Warn("metrics registration failed", "error", err)
	}

	ctl, err := rasacontrol.New(cfg)
	if err != nil {
		return err
	}

	if err := ensureDirs(cfg); err != nil {
		return err
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	ctl.CheckConnections(startupCtx)
	cancel()

	srv := ctl.NewHTTPServer(cfg.Server.Listen)
	slog.Info("control plane listening", "addr", cfg.Server.Listen)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http server shutdown", "error", err)
	}
	return ctl.Close(shutdownCtx)
}

func ensureDirs(cfg *rasacontrol.Config) error {
	for _, dir := range []string{
		cfg.Rasa.DataDir,
		cfg.Rasa.ModelsDir,
		filepath.Dir(cfg.Rasa.ActionsFile),
	} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return err
		}
	}
	return nil
}
