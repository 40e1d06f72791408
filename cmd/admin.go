package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/phillip/church-cms-go/config"
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the bootstrap administrator from ADMIN_* settings",
	Long: `Create the administrator account named by ADMIN_NAME, ADMIN_EMAIL and
ADMIN_PASSWORD unless an account with the admin role already exists.

The serve command does the same on start; this command is for one-off setup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer config.DisconnectMongo(context.Background(), cfg)

		created, err := store.Users.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password, time.Now())
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		logger.Info().Str("email", cfg.Admin.Email).Bool("created", created).Msg("admin bootstrap finished")
		return nil
	},
}

var ensureIndexesCmd = &cobra.Command{
	Use:   "ensure-indexes",
	Short: "Create the MongoDB indexes the API relies on",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer config.DisconnectMongo(context.Background(), cfg)

		if err := store.EnsureIndexes(ctx); err != nil {
			return err
		}
		logger.Info().Str("database", cfg.DBName).Msg("indexes ensured")
		return nil
	},
}
