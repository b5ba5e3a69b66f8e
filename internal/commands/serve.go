package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/draftcue/draftcue/internal/alert"
	"github.com/draftcue/draftcue/internal/config"
	"github.com/draftcue/draftcue/internal/generate"
	"github.com/draftcue/draftcue/internal/scheduler"
	"github.com/draftcue/draftcue/internal/server"
	"github.com/draftcue/draftcue/pkg/types"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the draftcue HTTP API server and scheduling loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.Default()
	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to store: %w", err)
	}
	defer st.Close()

	gen, err := generate.New(cfg.Generator)
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}

	dispatcher, err := alert.NewDispatcher(cfg.Alerts, logger)
	if err != nil {
		return fmt.Errorf("creating alert dispatcher: %w", err)
	}
	defer dispatcher.Close()

	sched := scheduler.New(st, gen, dispatcher.AlertFunc(), logger, scheduler.ConfigFrom(cfg.Scheduler))
	schedulerEnabled := cfg.Scheduler == nil || cfg.Scheduler.Enabled
	if schedulerEnabled {
		sched.Start(ctx)
	}

	serverCfg := types.ServerConfig{Addr: ":3000"}
	if cfg.Server != nil {
		if cfg.Server.Addr != "" {
			serverCfg.Addr = cfg.Server.Addr
		}
		serverCfg.APIKey = cfg.Server.APIKey
	}
	srv := server.New(serverCfg, st, sched, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		color.Yellow("\nReceived %s, shutting down...", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if schedulerEnabled {
			sched.Stop()
		}
		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		color.Green("Server stopped gracefully")
		return nil
	}
}
