package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/lifespan/internal/loadgen"
	"github.com/okian/lifespan/pkg/logger"
)

func newLoadgenCmd() *cobra.Command {
	cfg := loadgen.Config{}
	cmd := &cobra.Command{
		Use:     "loadgen",
		Short:   "Drive a running server with synthetic users and verify their histories",
		Example: `  lifespan loadgen --url http://localhost:9080 --users 50 --per-user 20
  lifespan loadgen --duplicate-every 5 --output subs.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return err
			}
			if cfg.Verbose {
				_ = logger.SetLevelString("debug")
			}
			_, err := loadgen.Run(cmd.Context(), &cfg)
			return err
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	cmd.Flags().IntVar(&cfg.Users, "users", loadgen.DefaultUsers, "number of synthetic accounts")
	cmd.Flags().IntVar(&cfg.PerUser, "per-user", loadgen.DefaultPerUser, "predictions per account")
	cmd.Flags().IntVar(&cfg.Workers, "workers", 0, "concurrent workers (default CPU cores * 2)")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", loadgen.DefaultTimeout, "HTTP request timeout")
	cmd.Flags().IntVar(&cfg.DuplicateEvery, "duplicate-every", 10, "replay every n-th submission; 0 disables")
	cmd.Flags().StringVar(&cfg.OutputFile, "output", "", "write generated submissions to this JSON file")
	cmd.Flags().BoolVar(&cfg.Verbose, "verbose", false, "log every failure")
	return cmd
}
