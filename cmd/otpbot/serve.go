package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/api"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/config"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/logging"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/runner"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/runner/tasks"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, log := a.cfg, a.logger

	if cfg.Bot.WebhookToken == "" {
		log.Warn("bot.webhook_token is empty; every webhook call will be rejected")
	}
	if a.loader.Watch(func(next *config.Config) {
		if err := logging.SetLevel(a.level, next.Logging.Level); err != nil {
			log.Warn("config reload: log level not applied", zap.Error(err))
			return
		}
		log.Info("configuration reloaded", zap.String("level", next.Logging.Level))
	}, func(err error) {
		log.Warn("config reload rejected", zap.Error(err))
	}) {
		log.Info("watching config file", zap.String("path", a.loader.ConfigFile()))
	}

	pool := worker.New(cfg.Retrieval.Workers, worker.WithLogger(log.Named("worker")))

	var cron *runner.Runner
	if cfg.Maintenance.PurgeSchedule != "" {
		registry := runner.NewTaskRegistry()
		if err := registry.Register(tasks.NewGrantPurgeTask(a.ledger, cfg.Maintenance.PurgeSchedule, log.Named("purge"))); err != nil {
			return err
		}
		cron = runner.NewRunner(registry, log.Named("runner"))
		if err := cron.Start(ctx); err != nil {
			return err
		}
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	replies := api.NewHTTPReplySender(cfg.Bot.ReplyURL, cfg.Server.WriteTimeout, log.Named("reply"))
	handler := api.NewHandler(cfg.Bot.WebhookToken, a.service, pool, replies,
		api.WithLogger(log.Named("http")),
		api.WithGatherer(a.registry),
	)
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	start := time.Now()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	if cron != nil {
		cron.Stop()
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		log.Warn("worker pool did not drain", zap.Error(err), zap.Int("pending", pool.Pending()))
	}

	log.Info("shutdown complete", zap.Duration("took", time.Since(start)))
	return nil
}
