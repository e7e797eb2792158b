package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Aaryanpadhaikarega/otp-bot/internal/commands"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/config"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/database"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/extractor"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/logging"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/mailbox"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/repository"
	"github.com/Aaryanpadhaikarega/otp-bot/internal/retrieval"
)

// app is the wired object graph shared by the subcommands.
type app struct {
	cfg      *config.Config
	loader   *config.Loader
	logger   *zap.Logger
	level    zap.AtomicLevel
	registry *prometheus.Registry

	accounts *repository.Accounts
	ledger   *repository.Ledger
	service  *commands.Service

	closers []func() error
}

func loadApp(ctx context.Context) (*app, error) {
	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	logger, level, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		loader:   loader,
		logger:   logger.With(zap.String("app", cfg.App.Name)),
		level:    level,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	backend, err := a.openBackend(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	var accountOpts []repository.AccountsOption
	if cfg.Storage.SecretKey != "" {
		box, err := repository.NewSecretBox(cfg.Storage.SecretKey)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("storage.secret_key: %w", err)
		}
		accountOpts = append(accountOpts, repository.WithSealer(box))
	}
	a.accounts = repository.NewAccounts(backend, accountOpts...)
	a.ledger = repository.NewLedger(backend, cfg.Bot.AdminID)

	ext, err := extractor.New(cfg.Retrieval.CodeLength, extractor.WithProductNames(cfg.Retrieval.ProductNames...))
	if err != nil {
		a.close()
		return nil, err
	}
	clients := mailbox.DefaultFactory(a.logger.Named("mailbox"), mailbox.Timeouts{
		Dial:    cfg.Mailbox.DialTimeout,
		Command: cfg.Mailbox.CommandTimeout,
	})
	coordinator := retrieval.NewCoordinator(a.ledger, a.accounts, clients, ext,
		retrieval.WithSearchDepth(cfg.Retrieval.SearchDepth),
		retrieval.WithTimeout(cfg.Retrieval.Timeout),
		retrieval.WithLogger(a.logger.Named("retrieval")),
		retrieval.WithMetrics(retrieval.NewMetrics(a.registry)),
	)
	a.service = commands.NewService(a.accounts, a.ledger, coordinator, cfg.Bot.AdminID,
		commands.WithChunkSize(cfg.Bot.ChunkSize),
		commands.WithLogger(a.logger.Named("commands")),
	)
	return a, nil
}

func (a *app) openBackend(ctx context.Context) (repository.Backend, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendSQL:
		db, err := openDB(ctx, a.cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if a.cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				return nil, err
			}
		}
		a.logger.Info("storage ready", zap.String("backend", "sql"), zap.String("driver", db.DriverName()))
		return repository.NewSQLBackend(db), nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", a.cfg.Redis.Addr, err)
		}
		a.logger.Info("storage ready", zap.String("backend", "redis"), zap.String("addr", a.cfg.Redis.Addr))
		return repository.NewRedisBackend(client, a.cfg.Redis.Prefix), nil

	case config.BackendMemory:
		a.logger.Warn("storage is in memory; data is lost on exit")
		return repository.NewMemoryBackend(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
}

func openDB(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	return database.Open(ctx, database.Options{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
	_ = a.logger.Sync()
}
