package bridge

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/isrcanalytics/streamledger/internal/adapter"
	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/ingest"
	"github.com/isrcanalytics/streamledger/internal/logger"
	"github.com/isrcanalytics/streamledger/internal/providers/temporal"
	"github.com/isrcanalytics/streamledger/internal/workflows"
)

// Config holds the configuration for the snapshot bridge
type Config struct {
	URL               string
	StreamName        string
	ConsumerName      string
	MaxReconnects     int
	ReconnectWait     time.Duration
	ConnectionName    string
	AckWaitTimeout    time.Duration
	MaxDeliver        int
	TemporalTaskQueue string
}

// Bridge defines the interface for the snapshot bridge
type Bridge interface {
	// Run starts the snapshot bridge
	Run(ctx context.Context) error
	// Close closes the bridge and cleans up resources
	Close()
}

type bridge struct {
	nc           adapter.NatsConn
	js           adapter.JetStream
	orchestrator temporal.TemporalOrchestrator
	json         adapter.JSON
	verifier     *ingest.SignatureVerifier
	config       Config
}

// NewBridge creates a new snapshot bridge. A nil verifier accepts unsigned
// events, for deployments without a collector secret.
func NewBridge(
	cfg Config,
	natsJS adapter.NatsJetStream,
	orchestrator temporal.TemporalOrchestrator,
	jsonAdapter adapter.JSON,
	verifier *ingest.SignatureVerifier,
) (Bridge, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	return &bridge{
		nc:           nc,
		js:           js,
		orchestrator: orchestrator,
		json:         jsonAdapter,
		verifier:     verifier,
		config:       cfg,
	}, nil
}

// Run starts the snapshot bridge
func (b *bridge) Run(ctx context.Context) error {
	logger.Info("Starting snapshot bridge", zap.String("stream", b.config.StreamName), zap.String("consumer", b.config.ConsumerName))

	// Subscribe to snapshots from every platform and entity kind
	subject := "snapshots.>"

	consumerConfig := jetstream.ConsumerConfig{
		Durable:       b.config.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       b.config.AckWaitTimeout,
		MaxDeliver:    b.config.MaxDeliver,
		FilterSubject: subject,
	}

	consumer, err := b.js.CreateOrUpdateConsumer(ctx, b.config.StreamName, consumerConfig)
	if err != nil {
		return fmt.Errorf("failed to create/update consumer: %w", err)
	}

	consumerInfo, err := consumer.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}
	logger.Info("Consumer created/retrieved", zap.String("consumer", consumerInfo.Name))

	msgChan := make(chan adapter.Message, 100)
	sub, err := consumer.Consume(func(msg adapter.Message) {
		msgChan <- msg
	})
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	defer sub.Stop()

	logger.Info("Started consuming messages")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down snapshot bridge")
			return ctx.Err()
		case msg := <-msgChan:
			// Spawn goroutine to handle message asynchronously
			go b.handleMessage(ctx, msg)
		}
	}
}

// handleMessage processes a single NATS message
func (b *bridge) handleMessage(ctx context.Context, msg adapter.Message) {
	metadata, _ := msg.Metadata()

	if err := b.verifyMessage(msg); err != nil {
		logger.Warn("Rejected snapshot with bad signature",
			zap.Error(err),
			zap.String("subject", msg.Subject()),
		)
		// Terminate; redelivery cannot fix a forged or stale payload
		if err := msg.Term(); err != nil {
			logger.Error(err, zap.String("message", "Failed to terminate message"))
		}
		return
	}

	var event domain.SnapshotEvent
	if err := b.json.Unmarshal(msg.Data(), &event); err != nil {
		logger.Error(err, zap.String("message", "Failed to unmarshal event"))
		// Terminate message for unparseable data
		if err := msg.Term(); err != nil {
			logger.Error(err, zap.String("message", "Failed to terminate message"))
		}
		return
	}

	var deliveryCount uint64
	if metadata != nil {
		deliveryCount = metadata.NumDelivered
	}
	logger.Info("Received snapshot event",
		zap.String("eventID", event.EventID),
		zap.String("platform", string(event.Platform)),
		zap.String("entityKind", string(event.EntityKind)),
		zap.String("entityCode", event.EntityCode),
		zap.String("date", event.Date),
		zap.Uint64("deliveryCount", deliveryCount),
	)

	if err := b.forwardToWorker(ctx, &event); err != nil {
		logger.Error(err, zap.String("message", "Failed to forward event to worker"))
		// NAK to retry
		if err := msg.Nak(); err != nil {
			logger.Error(err, zap.String("message", "Failed to NAK message"))
		}
		return
	}

	// ACK message after successful processing
	if err := msg.Ack(); err != nil {
		logger.Error(err, zap.String("message", "Failed to ACK message"))
	}
}

// verifyMessage checks the collector signature headers against the payload
func (b *bridge) verifyMessage(msg adapter.Message) error {
	if b.verifier == nil {
		return nil
	}

	headers := msg.Headers()
	signature := headers.Get(ingest.SignatureHeader)
	if signature == "" {
		return fmt.Errorf("missing %s header", ingest.SignatureHeader)
	}

	timestamp, err := strconv.ParseInt(headers.Get(ingest.TimestampHeader), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s header: %w", ingest.TimestampHeader, err)
	}

	return b.verifier.Verify(msg.Data(), signature, timestamp)
}

// forwardToWorker starts the ProcessSnapshot workflow for the event. The
// workflow ID carries the event ID, so a redelivered message joins the
// running execution instead of starting a second one.
func (b *bridge) forwardToWorker(ctx context.Context, event *domain.SnapshotEvent) error {
	if event.EventID == "" {
		return fmt.Errorf("event has no event ID")
	}

	w := workflows.NewWorker(nil, workflows.WorkerConfig{})
	opt := client.StartWorkflowOptions{
		ID:                    fmt.Sprintf("process-snapshot-%s", event.EventID),
		TaskQueue:             b.config.TemporalTaskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
		WorkflowRunTimeout:    30 * time.Minute,
	}
	_, err := b.orchestrator.ExecuteWorkflow(ctx, opt, w.ProcessSnapshot, event)
	if err != nil {
		return fmt.Errorf("failed to execute workflow: %w", err)
	}

	logger.Info("Snapshot forwarded to worker",
		zap.String("eventID", event.EventID),
		zap.String("entityCode", event.EntityCode),
	)

	return nil
}

// Close closes the bridge and cleans up resources
func (b *bridge) Close() {
	if b.nc == nil {
		return
	}

	b.nc.Close()
}
