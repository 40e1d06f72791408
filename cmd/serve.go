package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/phillip/church-cms-go/config"
	"github.com/phillip/church-cms-go/controllers"
	"github.com/phillip/church-cms-go/middleware"
	"github.com/phillip/church-cms-go/routes"
	"github.com/phillip/church-cms-go/utils"
)

var serverPort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server.

The server will:
- Load configuration from .env and the environment
- Connect to MongoDB, ensure indexes and seed the admin account
- Serve the API under /api and uploads under /uploads
- Shut down gracefully on SIGINT/SIGTERM`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverPort, "port", "", "listen port, overrides PORT")
}

func runServer(parent context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if serverPort != "" {
		cfg.Port = serverPort
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, err := openStore(startCtx, cfg)
	if err != nil {
		cancel()
		return err
	}
	defer func() {
		if err := config.DisconnectMongo(context.Background(), cfg); err != nil {
			logger.Error().Err(err).Msg("mongo disconnect failed")
		}
	}()
	logger.Info().Str("database", cfg.DBName).Msg("connected to mongodb")

	if err := store.EnsureIndexes(startCtx); err != nil {
		logger.Error().Err(err).Msg("index creation failed")
	}
	if created, err := store.Users.EnsureAdmin(startCtx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password, time.Now()); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	} else if created {
		logger.Warn().Str("email", cfg.Admin.Email).Msg("default admin user created, change its password")
	}
	cancel()

	files, uploadDir, err := newFileStore(cfg)
	if err != nil {
		return err
	}

	controllers.RegisterValidators()
	limiter := middleware.NewRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax)
	defer limiter.Stop()

	env := &controllers.Env{
		Cfg:     cfg,
		Events:  store.Events,
		Notices: store.Notices,
		Users:   store.Users,
		Files:   files,
		Tokens:  utils.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry),
		Mailer:  utils.NewMailer(cfg.Mail.Driver, cfg.Mail.APIURL, cfg.Mail.APIKey, cfg.Mail.From, logger),
		Log:     logger,
	}
	if !env.Mailer.Enabled() {
		logger.Info().Msg("mail not configured, registration confirmations disabled")
	}

	router := routes.NewRouter(env, routes.Options{
		Limiter:   limiter,
		DB:        store,
		UploadDir: uploadDir,
		Metrics:   cfg.MetricsEnabled,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Str("env", cfg.Env).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}
	return shutdown(server, logger)
}

func shutdown(server *http.Server, logger zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newFileStore picks the upload backend. The returned directory is served
// statically and is empty for remote storage.
func newFileStore(cfg *config.Config) (utils.FileStore, string, error) {
	if cfg.StorageDriver == "cloudinary" {
		store, err := utils.NewCloudinaryStore(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	}
	store, err := utils.NewLocalStore(cfg.UploadDir)
	if err != nil {
		return nil, "", err
	}
	return store, cfg.UploadDir, nil
}
