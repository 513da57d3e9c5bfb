package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"savings/internal/backend"
	"savings/internal/cache"
	"savings/internal/cli"
	"savings/internal/config"
	"savings/internal/goals"
	apphttp "savings/internal/http"
	"savings/internal/identity"
	"savings/internal/log"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig((*config.Config).ValidateServer)
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel, log.ComponentApp)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", "error", err)
		}
	}()

	svc := goals.NewService(res.Records, identity.ContextProvider{}, res.Notifier, cfg.CacheOptions())

	manager := cache.NewManager()
	manager.Register(svc.Collections())
	manager.StartCleanup(cfg.CacheCleanupInterval)
	defer manager.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		JWTSecret:          []byte(cfg.JWTSecret),
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting savings server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := svc.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Pending cache refetches abandoned", "error", err)
		}
		return nil
	})
	return g.Wait()
}
