// Package app wires storage, locking and the domain services from Config.
// Both the server and the admin CLI start from here.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/mind-engage/interviewbook/internal/answers"
	"github.com/mind-engage/interviewbook/internal/config"
	"github.com/mind-engage/interviewbook/internal/db"
	"github.com/mind-engage/interviewbook/internal/lock"
	"github.com/mind-engage/interviewbook/internal/structure"
)

type App struct {
	Config    config.Config
	Log       *slog.Logger
	DB        *sql.DB
	Driver    db.Driver
	Locker    lock.Locker
	Redis     *lock.Redis // nil unless LOCK_DRIVER=redis
	Structure *structure.Service
	Answers   *answers.Service
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	driver, err := db.ParseDriver(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	dbh, err := db.Open(ctx, driver, cfg.DBDSN, cfg.DBMaxOpenConns)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log, DB: dbh, Driver: driver}
	switch cfg.LockDriver {
	case "", "local":
		a.Locker = lock.NewLocal()
	case "redis":
		rl, err := lock.NewRedis(cfg.RedisURL, cfg.LockTTL)
		if err != nil {
			_ = dbh.Close()
			return nil, err
		}
		if err := rl.Ping(ctx); err != nil {
			_ = rl.Close()
			_ = dbh.Close()
			return nil, fmt.Errorf("redis lock: %w", err)
		}
		a.Locker, a.Redis = rl, rl
	case "none":
		a.Locker = lock.Noop{}
	default:
		_ = dbh.Close()
		return nil, fmt.Errorf("unsupported lock driver: %s", cfg.LockDriver)
	}

	advisory := cfg.PGAdvisoryLocks && driver == db.DriverPostgres
	a.Structure = structure.NewService(dbh, driver, structure.Options{
		Locker:        a.Locker,
		Logger:        log.With("component", "structure"),
		AdvisoryLocks: advisory,
		MaxQuestions:  cfg.MaxQuestionsPerChapter,
	})
	a.Answers = answers.NewService(dbh, driver, answers.Options{
		Locker:        a.Locker,
		Logger:        log.With("component", "answers"),
		AdvisoryLocks: advisory,
	})
	log.Info("storage ready", "db", driver, "lock", cfg.LockDriver, "advisory_locks", advisory)
	return a, nil
}

func (a *App) Close() error {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	return a.DB.Close()
}
