package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/phillip/church-cms-go/config"
	"github.com/phillip/church-cms-go/controllers"
	"github.com/phillip/church-cms-go/repository"
)

var (
	logLevel  string
	logFormat string

	rootCmd = &cobra.Command{
		Use:     "church-cms",
		Short:   "Church CMS REST backend",
		Long:    "Serves the events, notices and members API for the church website and admin panel.",
		Version: controllers.Version,
		// serve is the default command
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
		SilenceUsage: true,
	}
)

// Execute runs the command line. It is called by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error), overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (json, console), overrides LOG_FORMAT")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedAdminCmd)
	rootCmd.AddCommand(ensureIndexesCmd)
}

// loadConfig reads the environment and applies the global flag overrides.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("config error: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	return cfg, config.NewLogger(cfg), nil
}

// openStore connects to MongoDB and returns the repositories over cfg's database.
// The caller disconnects with config.DisconnectMongo.
func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	if err := config.ConnectMongo(ctx, cfg); err != nil {
		return nil, err
	}
	return repository.New(cfg.Database()), nil
}
