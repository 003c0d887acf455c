// Package bootstrap builds the auth facade and everything under it from
// configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"go-auth-core/internal/core/auth"
	"go-auth-core/internal/core/config"
	"go-auth-core/internal/core/database"
	"go-auth-core/internal/core/kv"
	"go-auth-core/internal/core/latency"
	"go-auth-core/internal/core/logger"
	"go-auth-core/internal/core/metrics"
	"go-auth-core/internal/domain"
	"go-auth-core/internal/repo"
	"go-auth-core/internal/service"
)

// Deps overrides what New would otherwise build itself.
type Deps struct {
	Logger     *zap.Logger           // nil: built from cfg.Log
	Registerer prometheus.Registerer // nil: metrics are not registered
	Fs         afero.Fs              // nil: OS filesystem (file driver)
	Delayer    latency.Delayer       // nil: built from cfg.Auth delays
}

type App struct {
	Auth    *service.AuthService
	Users   *repo.UserRepo
	Session *service.SessionManager
	Store   domain.KVStore
	Metrics *metrics.Auth
	Log     *zap.Logger

	closers []func()
}

// Close releases the store and flushes the logger, in reverse build order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// FromEnv loads .env (if present) and the config file named by CONFIG_PATH.
func FromEnv(ctx context.Context) (*App, error) {
	_ = godotenv.Load()
	cfg, err := config.Read(config.ResolvePath(""))
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, Deps{Registerer: prometheus.DefaultRegisterer})
}

func New(ctx context.Context, cfg *config.Config, deps Deps) (*App, error) {
	a := &App{}

	log := deps.Logger
	if log == nil {
		var cleanup func()
		if cfg.Log.File != "" {
			log, cleanup = logger.NewWithRotate(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File,
				cfg.Log.MaxSizeMB, cfg.Log.MaxBackups, cfg.Log.MaxAgeDays, cfg.Log.Compress)
		} else {
			log, cleanup = logger.New(cfg.Log.Level, cfg.Log.JSON)
		}
		a.closers = append(a.closers, cleanup, logger.RedirectStdLog(log, zapcore.InfoLevel))
	}
	log = log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))
	a.Log = log

	store, closeStore, err := openStore(ctx, cfg, log, deps.Fs)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, closeStore)
	log.Info("store ready", zap.String("driver", cfg.Store.Driver))

	hasher, err := auth.NewHasher(cfg.Auth.HashAlgorithm, cfg.Auth.WorkFactor)
	if err != nil {
		a.Close()
		return nil, err
	}

	delay := deps.Delayer
	if delay == nil {
		delay = latency.New(cfg.Auth.MinDelayMs, cfg.Auth.MaxDelayMs)
	}

	seed := make([]domain.User, 0, len(cfg.Auth.SeedUsers))
	for _, u := range cfg.Auth.SeedUsers {
		seed = append(seed, domain.User{Name: u.Name, Email: u.Email, PasswordDigest: u.PasswordDigest})
	}

	a.Metrics = metrics.New(deps.Registerer)
	a.Users = repo.NewUserRepo(store, seed, log.Named("users"))
	a.Session = service.NewSessionManager(store, a.Users, log.Named("session"))
	a.Auth = service.NewAuthService(ctx, a.Users, a.Session, hasher, service.Options{
		Delayer: delay,
		Metrics: a.Metrics,
		Logger:  log.Named("auth"),
	})
	log.Info("auth ready",
		zap.String("hash", hasher.Algorithm()),
		zap.Int("seed_users", len(seed)),
	)
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger, fs afero.Fs) (domain.KVStore, func(), error) {
	noop := func() {}
	switch cfg.Store.Driver {
	case "memory":
		return kv.NewMemory(), noop, nil

	case "file":
		s, err := kv.NewFile(fs, cfg.Store.Dir)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil

	case "redis":
		s := kv.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Store.Prefix)
		if err := s.RDB.Ping(ctx).Err(); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		return s, func() { _ = s.Close() }, nil

	case "gorm":
		db, err := database.NewGorm(database.Opts{
			Driver:             cfg.DB.Driver,
			DSN:                cfg.DB.DSN,
			Username:           cfg.DB.Username,
			Password:           cfg.DB.Password,
			MaxOpenConns:       cfg.DB.MaxOpenConns,
			MaxIdleConns:       cfg.DB.MaxIdleConns,
			ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
			LogLevel:           cfg.DB.LogLevel,
			Logger:             log.Named("gorm"),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("db open: %w", err)
		}
		closeDB := func() {
			if sqlDB, e := db.DB(); e == nil {
				_ = sqlDB.Close()
			}
		}
		s := kv.NewGorm(db)
		if cfg.DB.AutoMigrate {
			if err := s.Migrate(ctx); err != nil {
				closeDB()
				return nil, nil, err
			}
			log.Info("automigrate done")
		}
		return s, closeDB, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
