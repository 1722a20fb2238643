package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"gastopro/internal/backend"
	"gastopro/internal/cli"
	"gastopro/internal/export"
	"gastopro/internal/fx"
	apphttp "gastopro/internal/http"
	"gastopro/internal/log"
	"gastopro/internal/services"
)

func main() {
	cli.LoadEnvFile()

	bootstrap := cli.SetupLogger(log.ComponentApp, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(log.ComponentApp, cfg.LogLevel)

	be, err := backend.Create(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer be.Close()

	var events services.EventPublisher
	if be.Events != nil {
		events = be.Events
	}

	transactions := services.NewTransactionService(be.Store, events, logger)
	recurring := services.NewRecurringService(be.Store, logger)
	assistant := services.NewAssistant(be.Store, logger)
	exporter := export.NewService(be.Store, logger)
	fxClient := fx.NewClient(cfg.FXBaseURL, cfg.FXTimeout, logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:        be.Store,
		Transactions: transactions,
		Recurring:    recurring,
		Assistant:    assistant,
		Exporter:     exporter,
		FX:           fxClient,
		Logger:       logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting gastopro server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		materializeCurrentMonth(ctx, recurring, logger)

		ticker := time.NewTicker(cfg.MaterializeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				materializeCurrentMonth(ctx, recurring, logger)
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func materializeCurrentMonth(ctx context.Context, recurring *services.RecurringService, logger *log.Logger) {
	now := time.Now()
	created, err := recurring.MaterializeMonth(ctx, now.Year(), int(now.Month()))
	if err != nil {
		logger.Error("Recurring materialization failed", log.FieldError, err)
		return
	}
	if created > 0 {
		logger.Info("Recurring templates materialized",
			log.FieldYear, now.Year(),
			log.FieldMonth, int(now.Month()),
			"created", created)
	}
}
