package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"orderhub/config"
	"orderhub/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCommand returns the orderhub CLI with its serve and sweep commands.
func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "orderhub",
		Short:         "Order completion and notification service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, push channels and timeout sweeper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			app, err := NewBuilder(cfg).Build()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Cancel unpaid orders past the payment timeout once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			n, err := SweepOnce(cmd.Context(), NewBuilder(cfg))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled %d expired order(s)\n", n)
			return nil
		},
	})

	return root
}

// SweepOnce runs a single timeout sweep against the builder's storage.
func SweepOnce(ctx context.Context, b *AppBuilder) (int, error) {
	c, err := b.buildCore()
	if err != nil {
		return 0, err
	}
	defer func() {
		c.gateway.Shutdown()
		c.registry.Close()
		if err := c.storage.Close(); err != nil {
			logger.Warn("storage close failed", zap.Error(err))
		}
	}()
	return c.sweeper(b.cfg, b.clock).SweepOnce(ctx)
}

func setup(configPath string) (*config.Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Log, cfg.App.Env); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "orderhub:", err)
		os.Exit(1)
	}
}
