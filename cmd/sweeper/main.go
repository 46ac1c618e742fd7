package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/isrcanalytics/streamledger/internal/adapter"
	"github.com/isrcanalytics/streamledger/internal/config"
	"github.com/isrcanalytics/streamledger/internal/logger"
	temporal "github.com/isrcanalytics/streamledger/internal/providers/temporal"
	"github.com/isrcanalytics/streamledger/internal/store"
	"github.com/isrcanalytics/streamledger/internal/sweeper"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadSweeperConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "sweeper",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting sweeper")

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err), zap.String("dsn", cfg.Database.DSN()))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database")

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Initialize clock adapter
	clock := adapter.NewClock()

	// Connect to Temporal
	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporal.NewZapLoggerAdapter(logger.Default()),
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to Temporal", zap.Error(err), zap.String("host_port", cfg.Temporal.HostPort))
	}
	defer temporalClient.Close()
	logger.InfoCtx(ctx, "Connected to Temporal", zap.String("namespace", cfg.Temporal.Namespace))

	// Initialize sweepers
	sweepers := []sweeper.Sweeper{
		sweeper.NewScheduleSweeper(sweeper.ScheduleSweeperConfig{
			FinalizeCronSpec:  cfg.Sweep.FinalizeCronSpec,
			RetentionCronSpec: cfg.Sweep.RetentionCronSpec,
			TaskQueue:         cfg.Temporal.TaskQueue,
		}, temporalClient, clock),
	}

	if cfg.Sweep.BackfillEnabled {
		sweepers = append(sweepers, sweeper.NewBackfillSweeper(sweeper.BackfillSweeperConfig{
			Interval:       cfg.Sweep.BackfillInterval,
			WorkerPoolSize: cfg.Sweep.BackfillPoolSize,
			TaskQueue:      cfg.Temporal.TaskQueue,
		}, dataStore, temporalClient, clock))
	}

	// Start each sweeper in its own goroutine
	errCh := make(chan error, len(sweepers))
	for _, s := range sweepers {
		go func(s sweeper.Sweeper) {
			logger.InfoCtx(ctx, "Starting sweeper loop", zap.String("sweeper", s.Name()))
			if err := s.Start(ctx); err != nil {
				errCh <- fmt.Errorf("%s: %w", s.Name(), err)
			}
		}(s)
	}

	// Wait for interrupt signal or sweeper error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err)
	}
	cancel()

	// Give in-progress sweeps time to finish
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()

	for _, s := range sweepers {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.ErrorCtx(shutdownCtx, err, zap.String("sweeper", s.Name()))
		}
	}

	logger.InfoCtx(shutdownCtx, "Sweeper stopped")
}
