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
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/isrcanalytics/streamledger/internal/adapter"
	"github.com/isrcanalytics/streamledger/internal/config"
	"github.com/isrcanalytics/streamledger/internal/delta"
	"github.com/isrcanalytics/streamledger/internal/ingest"
	"github.com/isrcanalytics/streamledger/internal/logger"
	temporal "github.com/isrcanalytics/streamledger/internal/providers/temporal"
	"github.com/isrcanalytics/streamledger/internal/reconcile"
	"github.com/isrcanalytics/streamledger/internal/retention"
	"github.com/isrcanalytics/streamledger/internal/store"
	"github.com/isrcanalytics/streamledger/internal/workflows"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadWorkerConfig(*configFile, *envPath)
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
			"service": "worker",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting analytics worker")

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

	// Initialize store and domain components
	dataStore := store.NewPGStore(db)
	clock := adapter.NewClock()
	engine := delta.NewEngine(dataStore)
	reconciler := reconcile.NewReconciler(dataStore, clock, cfg.Reconcile.LagWindow)
	retentionManager := retention.NewManager(dataStore, clock, cfg.Retention.RawRetention, cfg.Retention.CompressionAge)
	ingestor := ingest.NewIngestor(dataStore, clock)

	// Initialize executor for activities
	executor := workflows.NewExecutor(dataStore, engine, reconciler, retentionManager, ingestor)

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

	// Create Temporal worker
	temporalWorker := worker.New(
		temporalClient,
		cfg.Temporal.TaskQueue,
		worker.Options{
			MaxConcurrentActivityExecutionSize: cfg.Temporal.MaxConcurrentActivityExecutionSize,
			WorkerActivitiesPerSecond:          cfg.Temporal.WorkerActivitiesPerSecond,
			MaxConcurrentActivityTaskPollers:   cfg.Temporal.MaxConcurrentActivityTaskPollers,
		})
	logger.InfoCtx(ctx, "Created Temporal worker", zap.String("task_queue", cfg.Temporal.TaskQueue))

	// Create workflows instance
	analyticsWorker := workflows.NewWorker(executor, workflows.WorkerConfig{
		BackfillPageSize: cfg.Workflow.BackfillPageSize,
	})

	// Register workflows
	temporalWorker.RegisterWorkflow(analyticsWorker.ProcessSnapshot)
	temporalWorker.RegisterWorkflow(analyticsWorker.RecomputeEntity)
	temporalWorker.RegisterWorkflow(analyticsWorker.BackfillTenant)
	temporalWorker.RegisterWorkflow(analyticsWorker.FinalizeSweep)
	temporalWorker.RegisterWorkflow(analyticsWorker.RetentionSweep)
	logger.InfoCtx(ctx, "Registered workflows")

	// Register activities
	temporalWorker.RegisterActivity(executor.IngestSnapshot)
	temporalWorker.RegisterActivity(executor.RecomputeEntity)
	temporalWorker.RegisterActivity(executor.ListEntityIDs)
	temporalWorker.RegisterActivity(executor.StartReconcilePass)
	temporalWorker.RegisterActivity(executor.FinalizeDueDays)
	temporalWorker.RegisterActivity(executor.VerifyConservation)
	temporalWorker.RegisterActivity(executor.ApplyRetention)
	temporalWorker.RegisterActivity(executor.ApplyCompression)
	logger.InfoCtx(ctx, "Registered activities")

	// Start worker
	if err := temporalWorker.Start(); err != nil {
		logger.FatalCtx(ctx, "Failed to start worker", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Worker started and listening for tasks")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))

	temporalWorker.Stop()
	logger.InfoCtx(ctx, "Worker stopped")
}
