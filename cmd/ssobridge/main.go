package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/loamlabs/ssobridge/pkg/api"
	"github.com/loamlabs/ssobridge/pkg/config"
	"github.com/loamlabs/ssobridge/pkg/observability"
	"github.com/loamlabs/ssobridge/pkg/provision"
	"github.com/loamlabs/ssobridge/pkg/storage/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		logger.WithError(err).Error("failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		logger.WithError(err).Error("failed to apply migrations")
		os.Exit(1)
	}

	server := api.NewServer(api.Config{
		DB:         db,
		Logger:     logger,
		AdminToken: cfg.SSO.AdminToken,
		Provision: provision.Options{
			SessionTTL: cfg.SSO.SessionTTL,
		},
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.SSO.CleanupSchedule, func() {
		if _, err := server.CleanupSessions(context.Background()); err != nil {
			logger.WithError(err).Warn("session cleanup failed")
		}
	})
	if err != nil {
		logger.WithError(err).Error("invalid cleanup schedule")
		os.Exit(1)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.WithField("addr", httpServer.Addr).Info("starting sso bridge")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		scheduler.Start()
		<-groupCtx.Done()
		<-scheduler.Stop().Done()
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
