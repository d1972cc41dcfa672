// Package cmd wires the command line to config loading and the server.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/usama1031/csrf-jwt-server/config"
	"github.com/usama1031/csrf-jwt-server/logging"
	"github.com/usama1031/csrf-jwt-server/server"
)

// NewRootCmd returns the csrf-server command. Running it serves until
// SIGINT or SIGTERM.
func NewRootCmd() *cobra.Command {
	var configFile string
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "csrf-server",
		Short:         "HTTP server with JWT double-submit CSRF protection",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(v, configFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "path to a config file (yaml, json or toml)")
	flags.Int("port", 3000, "listen port")
	flags.String("public-dir", "./public", "directory served for unrouted GET requests")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	_ = v.BindPFlag("server.port", flags.Lookup("port"))
	_ = v.BindPFlag("server.public_dir", flags.Lookup("public-dir"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize server", zap.Error(err))
		return err
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server failed", zap.Error(err))
		return err
	}
	return nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
