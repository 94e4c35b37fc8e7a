package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexanderramin/framebudget/internal/aggregate"
	"github.com/alexanderramin/framebudget/internal/cache"
	"github.com/alexanderramin/framebudget/internal/cli"
	"github.com/alexanderramin/framebudget/internal/config"
	"github.com/alexanderramin/framebudget/internal/db"
	"github.com/alexanderramin/framebudget/internal/liveness"
	"github.com/alexanderramin/framebudget/internal/repository"
	"github.com/alexanderramin/framebudget/internal/service"
	"github.com/jonboulle/clockwork"
	"github.com/mattn/go-isatty"
	"go.opentelemetry.io/otel"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	app, cleanup, err := wire(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.Execute(ctx, app, os.Args[1:], os.Stdout, os.Stderr)
}

// wire builds the App and returns a func releasing the database and store.
func wire(cfg *config.Config, logger *slog.Logger) (*cli.App, func(), error) {
	aliases, err := cfg.AliasRule()
	if err != nil {
		return nil, nil, err
	}

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	closers := []func() error{database.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	var (
		store   cache.Store
		breaker *cache.Breaker
	)
	if cfg.CacheEnabled() {
		redisStore, err := cache.NewRedisStore(cfg.CacheURL, cfg.CacheOpTimeout)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("configuring cache: %w", err)
		}
		closers = append(closers, redisStore.Close)

		addr, err := liveness.AddressFromURL(cfg.CacheURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("configuring cache: %w", err)
		}
		checker := liveness.New(liveness.Config{
			Address:  addr,
			Interval: cfg.LivenessInterval,
			Timeout:  cfg.LivenessTimeout,
		}, liveness.WithLogger(logger))

		store = redisStore
		breaker = cache.NewBreaker(cache.BreakerConfig{
			FailureThreshold: cfg.CacheFailureThreshold,
			PollInterval:     cfg.CachePollInterval,
		}, checker, clockwork.NewRealClock())
	}

	meter := otel.Meter("framebudget")
	cacheSvc := cache.NewService(store, breaker, cache.Options{
		TTL:    cfg.CacheTTL,
		Logger: logger,
		Meter:  meter,
	})

	engine := aggregate.NewEngine(
		repository.NewSQLiteNodeRepo(database),
		repository.NewSQLiteProjectRepo(database),
		repository.NewSQLiteProjectRecordRepo(database),
		repository.NewSQLiteFrameRecordRepo(database),
		cacheSvc,
		aggregate.Config{
			TTL:         cfg.CacheTTL,
			NodeTimeout: cfg.NodeTimeout,
			Concurrency: cfg.Concurrency,
			Aliases:     aliases,
			Logger:      logger,
		},
	)

	observers := []service.UseCaseObserver{service.NewLogUseCaseObserver(logger)}
	if metered, err := service.NewMeterUseCaseObserver(meter); err == nil {
		observers = append(observers, metered)
	} else {
		logger.Warn("use case metrics disabled", "error", err)
	}

	uow := db.NewSQLiteUnitOfWork(database)
	app := &cli.App{
		Series:  service.NewSeriesService(engine, observers...),
		Records: service.NewRecordService(uow, cacheSvc, aliases, observers...),
		Import:  service.NewImportService(uow, cacheSvc, observers...),
		Cache:   cacheSvc,
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
		},
	}
	return app, cleanup, nil
}
