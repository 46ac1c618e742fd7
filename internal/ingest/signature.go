package ingest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isrcanalytics/streamledger/internal/adapter"
	"github.com/isrcanalytics/streamledger/internal/domain"
)

var (
	// ErrInvalidSignature is returned when a payload signature does not verify
	ErrInvalidSignature = errors.New("invalid payload signature")
	// ErrStaleTimestamp is returned when a signed payload is outside the replay window
	ErrStaleTimestamp = errors.New("signed payload timestamp outside replay window")
)

// Message headers carrying the collector signature alongside each snapshot
const (
	SignatureHeader = "X-Snapshot-Signature"
	TimestampHeader = "X-Snapshot-Timestamp"
)

// SignatureVerifier checks collector payload signatures. The signed input is
// "{timestamp}.{canonical_json}" so semantically identical bodies verify
// regardless of key order or whitespace.
type SignatureVerifier struct {
	secret []byte
	jcs    adapter.JCS
	clock  adapter.Clock
	window time.Duration
}

// NewSignatureVerifier creates a verifier. A non-positive window falls back to
// the default replay window.
func NewSignatureVerifier(secret string, jcs adapter.JCS, clock adapter.Clock, window time.Duration) *SignatureVerifier {
	if window <= 0 {
		window = domain.SIGNATURE_REPLAY_WINDOW
	}
	return &SignatureVerifier{
		secret: []byte(secret),
		jcs:    jcs,
		clock:  clock,
		window: window,
	}
}

// Sign computes the signature header value for a payload at a timestamp.
// Format: "sha256=<hex_signature>".
func (v *SignatureVerifier) Sign(payload []byte, timestamp int64) (string, error) {
	canonical, err := v.jcs.Transform(payload)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize payload: %w", err)
	}

	h := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(h, "%d.%s", timestamp, canonical)
	return "sha256=" + hex.EncodeToString(h.Sum(nil)), nil
}

// Verify checks a payload's signature and replay window.
func (v *SignatureVerifier) Verify(payload []byte, signature string, timestamp int64) error {
	issued := time.Unix(timestamp, 0)
	age := v.clock.Since(issued)
	if age > v.window || age < -v.window {
		return fmt.Errorf("%w: issued %s", ErrStaleTimestamp, issued.UTC().Format(time.RFC3339))
	}

	expected, err := v.Sign(payload, timestamp)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(strings.TrimSpace(signature)), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}
