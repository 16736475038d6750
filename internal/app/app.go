// Package app wires configuration into the stores, the rebuild controller and
// every invocation surface. Both binaries build on it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smart-student/stats-engine/internal/aggregation"
	"github.com/smart-student/stats-engine/internal/auth"
	"github.com/smart-student/stats-engine/internal/controller"
	"github.com/smart-student/stats-engine/internal/core/config"
	"github.com/smart-student/stats-engine/internal/core/storage"
	"github.com/smart-student/stats-engine/internal/core/storage/memory"
	"github.com/smart-student/stats-engine/internal/core/storage/mongodb"
	"github.com/smart-student/stats-engine/internal/core/storage/postgres"
	"github.com/smart-student/stats-engine/internal/migrations"
	"github.com/smart-student/stats-engine/internal/projection"
	"github.com/smart-student/stats-engine/internal/server"
	"github.com/smart-student/stats-engine/internal/trigger"
	"golang.org/x/sync/errgroup"
)

const closeTimeout = 10 * time.Second

// App holds the wired components of one process.
type App struct {
	Config   *config.Config
	Location *time.Location

	Records    storage.RecordStore
	Cache      aggregation.StatsCacheStore
	Control    controller.ControlStore
	Controller *controller.Controller

	Trigger    *trigger.Service
	Projection *projection.Service

	// Scheduler and Listener are nil when disabled by config.
	Scheduler *aggregation.Scheduler
	Listener  *trigger.Listener

	checks  map[string]server.HealthChecker
	closers []func(context.Context) error
}

// New builds every component from cfg. Stores that are missing credentials
// or reject them do not fail startup: they are replaced by a store that
// reports the configuration error on every call.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loc, err := cfg.Schedule.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid schedule.timezone %q: %w", cfg.Schedule.Timezone, err)
	}

	a := &App{
		Config:   cfg,
		Location: loc,
		checks:   make(map[string]server.HealthChecker),
	}

	if err := a.openStores(ctx); err != nil {
		a.Close()
		return nil, err
	}

	aggregator := aggregation.NewAggregator(a.Records, aggregation.RebuildParameter{
		WorkerCount: cfg.Rebuild.WorkerCount,
		Grading:     cfg.Grading,
	})
	job := aggregation.NewJob(aggregator, a.Cache)
	a.Controller = controller.New(job, a.Control, controller.Options{
		MaxDuration: cfg.Rebuild.MaxDuration,
		Debounce:    cfg.Rebuild.Debounce,
		StaleAfter:  cfg.Rebuild.StaleAfter,
	})

	var verifier *auth.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier, err = auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.Leeway)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("auth: %w", err)
		}
	} else {
		slog.Info("[App] No JWT secret configured, callable surface disabled")
	}

	a.Trigger = trigger.NewService(a.Controller, verifier, trigger.Options{
		MaxBodySizeMB:   cfg.Server.MaxBodySizeMB,
		OnDemandTimeout: cfg.Rebuild.OnDemandTimeout,
		CallableTimeout: cfg.Rebuild.CallableTimeout,
		HookTimeout:     cfg.Trigger.Timeout,
		HookEnabled:     cfg.Trigger.HTTPEnabled,
		Location:        loc,
	})
	a.Projection = projection.NewService(a.Cache, loc)

	if cfg.Schedule.Enabled {
		a.Scheduler, err = aggregation.NewScheduler(a.Controller, a.Controller, aggregation.ScheduleParameter{
			Spec:      cfg.Schedule.Cron,
			SweepSpec: cfg.Schedule.SweepCron,
			Location:  loc,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	if cfg.Trigger.ListenEnabled {
		if cfg.Database.DSN == "" {
			slog.Warn("[App] trigger.listen_enabled is set but database.dsn is empty, listener disabled")
		} else {
			a.Listener = trigger.NewListener(cfg.Database.DSN, cfg.Trigger.Channel, trigger.NotifierFunc(a.notify), loc)
		}
	}

	slog.Info("[App] Components initialized",
		"records_backend", cfg.Records.Backend,
		"cache_backend", cfg.Cache.Backend,
		"timezone", loc.String(),
		"schedule_enabled", a.Scheduler != nil,
		"listener_enabled", a.Listener != nil,
		"callable_enabled", verifier != nil,
	)
	return a, nil
}

// notify feeds listener notifications into the debounced trigger path.
func (a *App) notify(ctx context.Context, year int) error {
	out, err := a.Controller.Trigger(ctx, year)
	if err != nil {
		return err
	}
	slog.Debug("[App] Write trigger handled", "year", year, "decision", out.Decision, "pending", out.PendingCount)
	return nil
}

func (a *App) openStores(ctx context.Context) error {
	cfg := a.Config

	var db *sql.DB
	var dbErr error
	if cfg.Records.Backend == config.BackendPostgres || cfg.Cache.Backend == config.BackendPostgres {
		db, dbErr = openPostgres(cfg.Database)
		if dbErr != nil {
			if !storage.IsConfigError(dbErr) {
				return dbErr
			}
			slog.Warn("[App] PostgreSQL not configured, requests will report a configuration error", "error", dbErr)
		}
	}
	if db != nil && cfg.Records.Backend != config.BackendPostgres {
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
	}

	switch cfg.Records.Backend {
	case config.BackendPostgres:
		if db == nil {
			a.Records = unavailable{err: dbErr}
			break
		}
		adapter, err := postgres.NewAdapterFromDB(db)
		if err != nil {
			db.Close()
			return err
		}
		a.Records = adapter
		a.closers = append(a.closers, func(context.Context) error { return adapter.Close() })

	case config.BackendMongo:
		adapter, err := mongodb.NewAdapter(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.ConnectTimeout)
		switch {
		case err == nil:
			a.Records = adapter
			a.closers = append(a.closers, adapter.Close)
		case storage.IsConfigError(err):
			slog.Warn("[App] MongoDB not configured, requests will report a configuration error", "error", err)
			a.Records = unavailable{err: err}
		default:
			return err
		}

	case config.BackendMemory:
		records, err := openMemoryRecords(cfg.Records.Fixture)
		if err != nil {
			return err
		}
		a.Records = records

	default:
		return fmt.Errorf("unsupported records backend %q", cfg.Records.Backend)
	}
	a.checks["records"] = a.Records

	switch cfg.Cache.Backend {
	case config.BackendPostgres:
		if db == nil {
			u := unavailable{err: dbErr}
			a.Cache, a.Control = u, u
			a.checks["cache"] = u
			break
		}
		a.Cache = postgres.NewCacheAdapter(db)
		a.Control = postgres.NewControlAdapter(db)
		a.checks["cache"] = pingFunc(db.PingContext)
	case config.BackendMemory:
		a.Cache = memory.NewCacheStore()
		a.Control = memory.NewControlStore()
	default:
		return fmt.Errorf("unsupported cache backend %q", cfg.Cache.Backend)
	}
	return nil
}

// openPostgres connects and applies the schema migrations.
func openPostgres(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := postgres.Open(cfg.DSN, cfg.MaxOpenConns, cfg.MaxIdleConns)
	if err != nil {
		return nil, err
	}
	if err := migrations.RunMigrations(db, cfg.AutoMigrate); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	return db, nil
}

func openMemoryRecords(fixture string) (*memory.RecordStore, error) {
	if fixture == "" {
		slog.Warn("[App] Memory records backend without fixture, every year is empty")
		return memory.NewRecordStore(), nil
	}
	records, err := memory.LoadFixture(fixture)
	if err != nil {
		return nil, fmt.Errorf("load records fixture: %w", err)
	}
	slog.Info("[App] Loaded records fixture", "path", fixture)
	return records, nil
}

// RegisterRoutes mounts the trigger and projection surfaces.
func (a *App) RegisterRoutes(r gin.IRouter) {
	a.Trigger.RegisterRoutes(r)
	a.Projection.RegisterRoutes(r)
}

// HealthChecks returns the probes reported by /health.
func (a *App) HealthChecks() map[string]server.HealthChecker {
	out := make(map[string]server.HealthChecker, len(a.checks))
	for name, c := range a.checks {
		out[name] = c
	}
	return out
}

// RunBackground runs the scheduler and the notification listener until ctx is
// cancelled. It returns immediately when both are disabled.
func (a *App) RunBackground(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if a.Scheduler != nil {
		g.Go(func() error { return a.Scheduler.Start(gctx) })
	}
	if a.Listener != nil {
		g.Go(func() error { return a.Listener.Run(gctx) })
	}
	return g.Wait()
}

// Close releases every store connection, newest first.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
