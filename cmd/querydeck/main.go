package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/querydeck/querydeck/internal/config"
	"github.com/querydeck/querydeck/internal/engine"
	"github.com/querydeck/querydeck/internal/handlers"
	"github.com/querydeck/querydeck/internal/history"
	"github.com/querydeck/querydeck/internal/pipeline"
	"github.com/querydeck/querydeck/internal/schema"
	"github.com/querydeck/querydeck/internal/server"
	"github.com/querydeck/querydeck/internal/services"
	"github.com/querydeck/querydeck/internal/store"
	"github.com/querydeck/querydeck/internal/workspace"
	"github.com/querydeck/querydeck/pkg/crypto"
	"github.com/querydeck/querydeck/pkg/scheduler"
)

var configFile string

func main() {
	root := &cobra.Command{
		Use:          "querydeck",
		Short:        "querydeck is a local analytical query workbench",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a config file")
	root.AddCommand(serveCommand())

	if err := root.Execute(); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the querydeck API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
			defer logger.Sync()

			return run(cmd.Context(), cfg)
		},
	}
}

func run(ctx context.Context, cfg *config.Configuration) error {
	log := zap.S().Named("main")

	if err := os.MkdirAll(cfg.Storage.DataFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create data folder: %w", err)
	}

	keystore, err := crypto.NewKeystore(cfg.Storage.KeystorePath())
	if err != nil {
		return fmt.Errorf("failed to open keystore: %w", err)
	}
	cipher := store.NewFieldCipher(keystore)

	st, err := store.Open(ctx, cfg.Storage.PrimaryPath(), cfg.Storage.FallbackPath(), cipher)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer st.Close()
	if st.Fallback() {
		log.Warnw("running on the fallback key/value store")
	}

	manager := engine.NewManager(engine.Config{
		MaxOpenAttempts:    cfg.Engine.MaxOpenAttempts,
		OpenBackoffInitial: cfg.Engine.OpenBackoff(),
		SettleDelay:        cfg.Engine.SettleDelay(),
	}, engine.NewAddressRegistry(), nil)

	refresher := schema.NewRefresher(manager)
	manager.SetRefresher(refresher)

	ledger := history.NewLedger(cfg.Engine.HistoryCapacity)
	pipe := pipeline.New(manager, ledger, refresher, nil)

	workers := scheduler.NewScheduler(cfg.Engine.NumWorkers)
	defer workers.Close()

	querySvc := services.NewQueryService(workers, pipe, ledger, st)
	connSvc := services.NewConnectionService(st, manager)
	profileSvc := services.NewProfileService(st, keystore, jwtSecret(cfg))

	autosaver := workspace.NewAutosaver(st.Workspace(), cfg.Engine.AutosaveWindow())

	if err := connSvc.Bootstrap(ctx, handlers.DefaultProfileID); err != nil {
		return fmt.Errorf("failed to bootstrap connections: %w", err)
	}

	handler := handlers.New(querySvc, connSvc, profileSvc, refresher, st, autosaver, manager)
	srv := server.NewServer(cfg, func(router *gin.RouterGroup) {
		router.Use(handlers.Auth(profileSvc))
		handler.Register(router)
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-sigCh:
		log.Infow("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Errorw("failed to stop server", "error", err)
	}
	autosaver.Close(shutdownCtx)
	manager.Shutdown(shutdownCtx)
	return nil
}

// jwtSecret returns the configured session signing key, or a random one for
// this process when none is set. Random keys invalidate sessions across
// restarts.
func jwtSecret(cfg *config.Configuration) []byte {
	if cfg.Server.JWTSecret != "" {
		return []byte(cfg.Server.JWTSecret)
	}
	buf := make([]byte, 32)
	rand.Read(buf)
	zap.S().Named("main").Warnw("no jwt secret configured, sessions will not survive restarts")
	return buf
}

func newLogger(cfg *config.Configuration) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.Encoding = cfg.LogFormat
	if cfg.LogFormat == "console" {
		zcfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zcfg.Build()
}
