package jetstream

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/isrcanalytics/streamledger/internal/adapter"
	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/ingest"
	"github.com/isrcanalytics/streamledger/internal/logger"
	"github.com/isrcanalytics/streamledger/internal/messaging"
)

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

type publisher struct {
	nc         adapter.NatsConn
	js         adapter.JetStream
	streamName string
	json       adapter.JSON
	signer     *ingest.SignatureVerifier
	clock      adapter.Clock
}

// NewPublisher creates a new NATS JetStream publisher. A nil signer publishes
// unsigned events for deployments without a collector secret.
func NewPublisher(cfg Config, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON, signer *ingest.SignatureVerifier, clock adapter.Clock) (messaging.Publisher, error) {
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

	return &publisher{
		nc:         nc,
		js:         js,
		streamName: cfg.StreamName,
		json:       jsonAdapter,
		signer:     signer,
		clock:      clock,
	}, nil
}

// PublishSnapshot publishes a snapshot event to NATS JetStream. The event ID
// doubles as the JetStream message ID, so collector retries deduplicate at
// the broker.
func (p *publisher) PublishSnapshot(ctx context.Context, event *domain.SnapshotEvent) error {
	logger.Debug("Publishing snapshot event", zap.Any("event", event))

	// Collectors that do not assign event IDs still need a stable dedupe key
	if event.EventID == "" {
		event.EventID = ulid.Make().String()
	}

	data, err := p.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if p.signer == nil {
		_, err = p.js.Publish(ctx, event.Subject(), data, jetstream.WithMsgID(event.EventID))
		if err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}
		return nil
	}

	timestamp := p.clock.Now().Unix()
	signature, err := p.signer.Sign(data, timestamp)
	if err != nil {
		return fmt.Errorf("failed to sign event: %w", err)
	}

	msg := &nats.Msg{
		Subject: event.Subject(),
		Data:    data,
		Header: nats.Header{
			ingest.SignatureHeader: []string{signature},
			ingest.TimestampHeader: []string{strconv.FormatInt(timestamp, 10)},
		},
	}
	_, err = p.js.PublishMsg(ctx, msg, jetstream.WithMsgID(event.EventID))
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Close closes the NATS connection
func (p *publisher) Close() {
	if p.nc == nil {
		return
	}

	p.nc.Close()
}
