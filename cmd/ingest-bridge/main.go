package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/isrcanalytics/streamledger/internal/adapter"
	"github.com/isrcanalytics/streamledger/internal/bridge"
	"github.com/isrcanalytics/streamledger/internal/config"
	"github.com/isrcanalytics/streamledger/internal/ingest"
	"github.com/isrcanalytics/streamledger/internal/logger"
	temporal "github.com/isrcanalytics/streamledger/internal/providers/temporal"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadIngestBridgeConfig(*configFile, *envPath)
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
			"service": "ingest-bridge",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting ingest bridge")

	// Connect to Temporal (for triggering recompute workflows)
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

	// Collector payloads are only verified when a shared secret is configured
	var verifier *ingest.SignatureVerifier
	if cfg.Ingest.SignatureSecret != "" {
		verifier = ingest.NewSignatureVerifier(cfg.Ingest.SignatureSecret, adapter.NewJCS(), adapter.NewClock(), cfg.Ingest.ReplayWindow)
		logger.InfoCtx(ctx, "Collector signature verification enabled", zap.Duration("replay_window", cfg.Ingest.ReplayWindow))
	} else {
		logger.WarnCtx(ctx, "Collector signature secret not configured, accepting unsigned events")
	}

	// Create bridge
	snapshotBridge, err := bridge.NewBridge(
		bridge.Config{
			URL:               cfg.NATS.URL,
			StreamName:        cfg.NATS.StreamName,
			ConsumerName:      cfg.NATS.ConsumerName,
			MaxReconnects:     cfg.NATS.MaxReconnects,
			ReconnectWait:     cfg.NATS.ReconnectWait,
			ConnectionName:    cfg.NATS.ConnectionName,
			AckWaitTimeout:    cfg.NATS.AckWait,
			MaxDeliver:        cfg.NATS.MaxDeliver,
			TemporalTaskQueue: cfg.Temporal.TaskQueue,
		},
		adapter.NewNatsJetStream(),
		temporalClient,
		adapter.NewJSON(),
		verifier,
	)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to create bridge", zap.Error(err))
	}
	defer snapshotBridge.Close()
	logger.InfoCtx(ctx, "Bridge created", zap.String("stream", cfg.NATS.StreamName), zap.String("consumer", cfg.NATS.ConsumerName))

	// Start the bridge
	errCh := make(chan error, 1)
	go func() {
		if err := snapshotBridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err)
	}
	cancel()

	// Give in-flight messages time to settle
	time.Sleep(time.Second)

	logger.Info("Ingest bridge stopped")
}
