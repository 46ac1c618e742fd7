package messaging

import (
	"context"

	"github.com/isrcanalytics/streamledger/internal/domain"
)

// Publisher defines the interface for publishing snapshot events to the message queue
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishSnapshot publishes one counter observation to the message broker
	PublishSnapshot(ctx context.Context, event *domain.SnapshotEvent) error

	// Close closes the connection
	Close()
}
