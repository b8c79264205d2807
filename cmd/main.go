package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/okian/lifespan/internal/config"
	"github.com/okian/lifespan/pkg/logger"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lifespan",
		Short: "Heuristic life-expectancy estimates",
		Long: `lifespan scores health profiles against configurable rule sets and
serves accounts, prediction history and exports over HTTP.

Run without a subcommand to start the server.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv(config.EnvPrefix+"CONFIG"),
		"YAML config file (env "+config.EnvPrefix+"CONFIG)")

	root.AddCommand(
		newServeCmd(),
		newScoreCmd(),
		newRulesCmd(),
		newAdminCmd(),
		newLoadgenCmd(),
	)
	return root
}

func main() {
	// Default Go collectors live on the global registry; ours is custom.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and initializes the global logger from it.
func setup(ctx context.Context) (*config.Config, error) {
	cfg, err := config.LoadFile(ctx, configPath)
	if err != nil {
		// Logger isn't available yet.
		_, _ = fmt.Fprintln(os.Stderr, "failed to load config:", err)
		return nil, err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		return nil, err
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}
