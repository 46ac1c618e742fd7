package jetstream_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	natsjs "github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isrcanalytics/streamledger/internal/adapter"
	"github.com/isrcanalytics/streamledger/internal/domain"
	"github.com/isrcanalytics/streamledger/internal/ingest"
	"github.com/isrcanalytics/streamledger/internal/logger"
	"github.com/isrcanalytics/streamledger/internal/messaging"
	"github.com/isrcanalytics/streamledger/internal/providers/jetstream"
)

func TestMain(m *testing.M) {
	_ = logger.Initialize(logger.Config{Debug: true})
	m.Run()
}

type fakePubConn struct {
	closed bool
}

func (c *fakePubConn) Close()               { c.closed = true }
func (c *fakePubConn) LastError() error     { return nil }
func (c *fakePubConn) ConnectedUrl() string { return "nats://test:4222" }

// fakePubJetStream records the last publish call in either form
type fakePubJetStream struct {
	subject string
	data    []byte
	msg     *nats.Msg
}

func (f *fakePubJetStream) Publish(ctx context.Context, subject string, data []byte, opts ...natsjs.PublishOpt) (*natsjs.PubAck, error) {
	f.subject = subject
	f.data = data
	return &natsjs.PubAck{Stream: "SNAPSHOTS"}, nil
}

func (f *fakePubJetStream) PublishMsg(ctx context.Context, msg *nats.Msg, opts ...natsjs.PublishOpt) (*natsjs.PubAck, error) {
	f.msg = msg
	return &natsjs.PubAck{Stream: "SNAPSHOTS"}, nil
}

func (f *fakePubJetStream) CreateOrUpdateStream(ctx context.Context, cfg natsjs.StreamConfig) error {
	return nil
}

func (f *fakePubJetStream) CreateOrUpdateConsumer(ctx context.Context, stream string, cfg natsjs.ConsumerConfig) (adapter.Consumer, error) {
	return nil, nil
}

type fakePubNatsJetStream struct {
	conn *fakePubConn
	js   *fakePubJetStream
}

func (f *fakePubNatsJetStream) Connect(url string, options ...nats.Option) (adapter.NatsConn, adapter.JetStream, error) {
	return f.conn, f.js, nil
}

func newTestPublisher(t *testing.T, signer *ingest.SignatureVerifier) (*fakePubJetStream, messaging.Publisher) {
	t.Helper()

	fake := &fakePubNatsJetStream{conn: &fakePubConn{}, js: &fakePubJetStream{}}
	pub, err := jetstream.NewPublisher(jetstream.Config{
		URL:            "nats://test:4222",
		StreamName:     "SNAPSHOTS",
		ConnectionName: "test-publisher",
	}, fake, adapter.NewJSON(), signer, adapter.NewClock())
	require.NoError(t, err)

	return fake.js, pub
}

func testEvent() *domain.SnapshotEvent {
	return &domain.SnapshotEvent{
		EventID:         "evt-123",
		TenantID:        uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		Platform:        domain.PlatformSpotify,
		EntityKind:      domain.EntityKindTrack,
		EntityCode:      "USRC17607839",
		Date:            "2026-01-15",
		CumulativeValue: 1000,
	}
}

func TestPublishSnapshot_AssignsEventID(t *testing.T) {
	_, pub := newTestPublisher(t, nil)

	event := testEvent()
	event.EventID = ""
	err := pub.PublishSnapshot(context.Background(), event)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
}

func TestPublishSnapshot_Unsigned(t *testing.T) {
	js, pub := newTestPublisher(t, nil)

	err := pub.PublishSnapshot(context.Background(), testEvent())
	require.NoError(t, err)

	assert.Equal(t, "snapshots.spotify.track", js.subject)
	assert.Contains(t, string(js.data), "USRC17607839")
	assert.Nil(t, js.msg)
}

func TestPublishSnapshot_SignedHeadersVerify(t *testing.T) {
	verifier := ingest.NewSignatureVerifier("collector-secret", adapter.NewJCS(), adapter.NewClock(), 5*time.Minute)
	js, pub := newTestPublisher(t, verifier)

	err := pub.PublishSnapshot(context.Background(), testEvent())
	require.NoError(t, err)

	require.NotNil(t, js.msg)
	assert.Equal(t, "snapshots.spotify.track", js.msg.Subject)

	signature := js.msg.Header.Get(ingest.SignatureHeader)
	require.NotEmpty(t, signature)
	timestamp, err := strconv.ParseInt(js.msg.Header.Get(ingest.TimestampHeader), 10, 64)
	require.NoError(t, err)

	// The bridge-side verifier must accept what the publisher signed
	require.NoError(t, verifier.Verify(js.msg.Data, signature, timestamp))
}
