// Package webhook verifies Svix-signed webhook deliveries.
//
// Signature checks are delegated to the Svix SDK. Timestamp tolerance is
// enforced here so the window and the clock stay configurable.
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	svix "github.com/svix/svix-webhooks/go"
)

const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"

	DefaultTolerance = 5 * time.Minute

	secretPrefix = "whsec_"
)

var ErrEmptySecret = errors.New("webhook: signing secret is required")

// Envelope is a raw inbound delivery. Payload must hold the exact bytes
// received on the wire.
type Envelope struct {
	Payload   []byte
	ID        string
	Timestamp string
	Signature string
}

// EnvelopeFromHeaders pulls the three svix headers out of h.
func EnvelopeFromHeaders(payload []byte, h http.Header) Envelope {
	return Envelope{
		Payload:   payload,
		ID:        strings.TrimSpace(h.Get(HeaderID)),
		Timestamp: strings.TrimSpace(h.Get(HeaderTimestamp)),
		Signature: strings.TrimSpace(h.Get(HeaderSignature)),
	}
}

func (e Envelope) headers() http.Header {
	h := http.Header{}
	h.Set(HeaderID, e.ID)
	h.Set(HeaderTimestamp, e.Timestamp)
	h.Set(HeaderSignature, e.Signature)
	return h
}

// VerifiedEvent is a delivery whose signature and timestamp checked out.
type VerifiedEvent struct {
	ID        string
	Timestamp time.Time
	Type      string
	Data      map[string]any
	Raw       []byte

	rawData json.RawMessage
}

// DecodeData unmarshals the event's data object into v.
func (e VerifiedEvent) DecodeData(v any) error {
	if len(e.rawData) == 0 {
		return errors.New("webhook: event has no data")
	}
	return json.Unmarshal(e.rawData, v)
}

type Option func(*Verifier)

// WithTolerance sets the accepted clock skew in either direction.
func WithTolerance(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.tolerance = d
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// Verifier checks deliveries against a single shared secret. It holds no
// mutable state and is safe for concurrent use.
type Verifier struct {
	wh        *svix.Webhook
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier decodes secret and returns a Verifier. Secrets are base64,
// optionally prefixed with "whsec_".
func NewVerifier(secret string, opts ...Option) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if strings.TrimPrefix(secret, secretPrefix) == "" {
		return nil, ErrEmptySecret
	}

	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("webhook: decode signing secret: %w", err)
	}

	v := &Verifier{
		wh:        wh,
		tolerance: DefaultTolerance,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Sign returns a "v1,<base64>" signature for the given message.
func (v *Verifier) Sign(id string, timestamp time.Time, payload []byte) (string, error) {
	return v.wh.Sign(id, timestamp, payload)
}

// Verify authenticates env and decodes its payload. Any failure is reported
// as a *VerificationError.
func (v *Verifier) Verify(env Envelope) (VerifiedEvent, error) {
	if env.ID == "" || env.Timestamp == "" || env.Signature == "" {
		return VerifiedEvent{}, verificationErrorf("missing required headers")
	}

	seconds, err := strconv.ParseInt(env.Timestamp, 10, 64)
	if err != nil {
		return VerifiedEvent{}, verificationErrorf("invalid %s header", HeaderTimestamp)
	}
	timestamp := time.Unix(seconds, 0).UTC()

	now := v.now().UTC()
	if now.Sub(timestamp) > v.tolerance {
		return VerifiedEvent{}, verificationErrorf("message timestamp too old")
	}
	if timestamp.Sub(now) > v.tolerance {
		return VerifiedEvent{}, verificationErrorf("message timestamp too new")
	}

	// The window was checked above against the injected clock.
	if err := v.wh.VerifyIgnoringTimestamp(env.Payload, env.headers()); err != nil {
		return VerifiedEvent{}, verificationErrorf("no matching signature found")
	}

	var body struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(env.Payload, &body); err != nil {
		return VerifiedEvent{}, verificationErrorf("invalid payload: %v", err)
	}
	if strings.TrimSpace(body.Type) == "" {
		return VerifiedEvent{}, verificationErrorf("invalid payload: missing event type")
	}

	var data map[string]any
	if len(body.Data) > 0 && string(body.Data) != "null" {
		if err := json.Unmarshal(body.Data, &data); err != nil {
			return VerifiedEvent{}, verificationErrorf("invalid payload: data must be an object")
		}
	}

	return VerifiedEvent{
		ID:        env.ID,
		Timestamp: timestamp,
		Type:      body.Type,
		Data:      data,
		Raw:       env.Payload,
		rawData:   body.Data,
	}, nil
}
