package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isrcanalytics/streamledger/internal/adapter"
)

func newTestVerifier(now time.Time) *SignatureVerifier {
	return NewSignatureVerifier("test-secret", adapter.NewJCS(), &fakeClock{now: now}, 5*time.Minute)
}

func TestSignatureRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(now)

	payload := []byte(`{"event_id":"evt-1","cumulative_value":100}`)
	timestamp := now.Unix()

	signature, err := v.Sign(payload, timestamp)
	require.NoError(t, err)
	assert.Contains(t, signature, "sha256=")

	assert.NoError(t, v.Verify(payload, signature, timestamp))
}

func TestSignatureIgnoresKeyOrder(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(now)
	timestamp := now.Unix()

	signature, err := v.Sign([]byte(`{"a":1,"b":2}`), timestamp)
	require.NoError(t, err)

	// canonicalization makes key order and whitespace irrelevant
	assert.NoError(t, v.Verify([]byte(`{"b": 2, "a": 1}`), signature, timestamp))
}

func TestSignatureRejectsTamperedPayload(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(now)
	timestamp := now.Unix()

	signature, err := v.Sign([]byte(`{"cumulative_value":100}`), timestamp)
	require.NoError(t, err)

	err = v.Verify([]byte(`{"cumulative_value":900}`), signature, timestamp)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestSignatureRejectsWrongSecret(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	timestamp := now.Unix()
	payload := []byte(`{"cumulative_value":100}`)

	signature, err := NewSignatureVerifier("other-secret", adapter.NewJCS(), &fakeClock{now: now}, 0).
		Sign(payload, timestamp)
	require.NoError(t, err)

	err = newTestVerifier(now).Verify(payload, signature, timestamp)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestSignatureReplayWindow(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(now)
	payload := []byte(`{"cumulative_value":100}`)

	// too old
	stale := now.Add(-6 * time.Minute).Unix()
	signature, err := v.Sign(payload, stale)
	require.NoError(t, err)
	assert.ErrorIs(t, v.Verify(payload, signature, stale), ErrStaleTimestamp)

	// too far in the future
	ahead := now.Add(6 * time.Minute).Unix()
	signature, err = v.Sign(payload, ahead)
	require.NoError(t, err)
	assert.ErrorIs(t, v.Verify(payload, signature, ahead), ErrStaleTimestamp)

	// just inside the window
	recent := now.Add(-4 * time.Minute).Unix()
	signature, err = v.Sign(payload, recent)
	require.NoError(t, err)
	assert.NoError(t, v.Verify(payload, signature, recent))
}
