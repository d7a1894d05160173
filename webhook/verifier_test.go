package webhook

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	svix "github.com/svix/svix-webhooks/go"
)

const testSecret = "whsec_test"

var (
	fixedNow    = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	userCreated = []byte(`{"type":"user.created","data":{"id":"u_1","email_addresses":[{"email_address":"a@b.com"}]}}`)
)

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(testSecret, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return v
}

func signedEnvelope(t *testing.T, v *Verifier, id string, ts time.Time, payload []byte) Envelope {
	t.Helper()
	signature, err := v.Sign(id, ts, payload)
	require.NoError(t, err)
	return Envelope{
		Payload:   payload,
		ID:        id,
		Timestamp: strconv.FormatInt(ts.Unix(), 10),
		Signature: signature,
	}
}

func requireVerificationError(t *testing.T, err error) *VerificationError {
	t.Helper()
	require.Error(t, err)
	var verr *VerificationError
	require.True(t, errors.As(err, &verr), "expected *VerificationError, got %T", err)
	return verr
}

func TestNewVerifier(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{name: "prefixed secret", secret: "whsec_test"},
		{name: "bare base64 secret", secret: base64.StdEncoding.EncodeToString([]byte("shared-key"))},
		{name: "empty secret", secret: "", wantErr: true},
		{name: "whitespace secret", secret: "   ", wantErr: true},
		{name: "prefix only", secret: "whsec_", wantErr: true},
		{name: "not base64", secret: "whsec_***", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewVerifier(tt.secret)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, v)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultTolerance, v.tolerance)
		})
	}
}

func TestVerify_ValidDelivery(t *testing.T) {
	v := newTestVerifier(t)
	env := signedEnvelope(t, v, "msg_1", fixedNow, userCreated)

	evt, err := v.Verify(env)
	require.NoError(t, err)

	assert.Equal(t, "msg_1", evt.ID)
	assert.Equal(t, fixedNow, evt.Timestamp)
	assert.Equal(t, "user.created", evt.Type)
	assert.Equal(t, userCreated, evt.Raw)
	assert.Equal(t, "u_1", evt.Data["id"])

	var data struct {
		ID             string `json:"id"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
	}
	require.NoError(t, evt.DecodeData(&data))
	assert.Equal(t, "u_1", data.ID)
	require.Len(t, data.EmailAddresses, 1)
	assert.Equal(t, "a@b.com", data.EmailAddresses[0].EmailAddress)
}

func TestVerify_AcceptsSignatureFromSvixClient(t *testing.T) {
	v := newTestVerifier(t)

	sender, err := svix.NewWebhook(testSecret)
	require.NoError(t, err)
	signature, err := sender.Sign("msg_svix", fixedNow, userCreated)
	require.NoError(t, err)

	evt, err := v.Verify(Envelope{
		Payload:   userCreated,
		ID:        "msg_svix",
		Timestamp: strconv.FormatInt(fixedNow.Unix(), 10),
		Signature: signature,
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_svix", evt.ID)
}

func TestVerify_AcceptsAnyListedSignature(t *testing.T) {
	v := newTestVerifier(t)
	env := signedEnvelope(t, v, "msg_1", fixedNow, userCreated)

	env.Signature = "v1,Zm9vYmFy v2,ignored " + env.Signature + " malformed"
	_, err := v.Verify(env)
	assert.NoError(t, err)
}

func TestVerify_IgnoresOtherVersions(t *testing.T) {
	v := newTestVerifier(t)
	env := signedEnvelope(t, v, "msg_1", fixedNow, userCreated)

	env.Signature = "v2," + env.Signature[len("v1,"):]
	verr := requireVerificationError(t, func() error { _, err := v.Verify(env); return err }())
	assert.Equal(t, "no matching signature found", verr.Reason)
}

func TestVerify_MissingHeaders(t *testing.T) {
	v := newTestVerifier(t)
	valid := signedEnvelope(t, v, "msg_1", fixedNow, userCreated)

	tests := []struct {
		name   string
		mutate func(*Envelope)
	}{
		{name: "missing id", mutate: func(e *Envelope) { e.ID = "" }},
		{name: "missing timestamp", mutate: func(e *Envelope) { e.Timestamp = "" }},
		{name: "missing signature", mutate: func(e *Envelope) { e.Signature = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := valid
			tt.mutate(&env)
			_, err := v.Verify(env)
			verr := requireVerificationError(t, err)
			assert.Equal(t, "missing required headers", verr.Reason)
		})
	}
}

func TestVerify_TimestampWindow(t *testing.T) {
	v := newTestVerifier(t)

	tests := []struct {
		name   string
		offset time.Duration
		reason string
	}{
		{name: "inside window past", offset: -4 * time.Minute},
		{name: "inside window future", offset: 4 * time.Minute},
		{name: "edge of window", offset: -DefaultTolerance},
		{name: "too old", offset: -DefaultTolerance - time.Second, reason: "message timestamp too old"},
		{name: "way too old", offset: -time.Hour, reason: "message timestamp too old"},
		{name: "too new", offset: DefaultTolerance + time.Second, reason: "message timestamp too new"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := signedEnvelope(t, v, "msg_1", fixedNow.Add(tt.offset), userCreated)
			_, err := v.Verify(env)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			verr := requireVerificationError(t, err)
			assert.Equal(t, tt.reason, verr.Reason)
		})
	}
}

func TestVerify_CustomTolerance(t *testing.T) {
	v, err := NewVerifier(testSecret,
		WithClock(func() time.Time { return fixedNow }),
		WithTolerance(30*time.Second),
	)
	require.NoError(t, err)

	_, err = v.Verify(signedEnvelope(t, v, "msg_1", fixedNow.Add(-time.Minute), userCreated))
	requireVerificationError(t, err)
}

func TestVerify_InvalidTimestamp(t *testing.T) {
	v := newTestVerifier(t)
	env := signedEnvelope(t, v, "msg_1", fixedNow, userCreated)
	env.Timestamp = "yesterday"

	_, err := v.Verify(env)
	verr := requireVerificationError(t, err)
	assert.Equal(t, "invalid svix-timestamp header", verr.Reason)
}

func TestVerify_SingleByteFlipsFail(t *testing.T) {
	v := newTestVerifier(t)
	valid := signedEnvelope(t, v, "msg_2gq3", fixedNow, userCreated)

	flip := func(s string, i int) string {
		b := []byte(s)
		b[i] ^= 0x01
		return string(b)
	}

	for i := range valid.Payload {
		env := valid
		env.Payload = append([]byte(nil), valid.Payload...)
		env.Payload[i] ^= 0x01
		_, err := v.Verify(env)
		requireVerificationError(t, err)
	}
	for i := range valid.ID {
		env := valid
		env.ID = flip(valid.ID, i)
		_, err := v.Verify(env)
		requireVerificationError(t, err)
	}
	for i := range valid.Timestamp {
		env := valid
		env.Timestamp = flip(valid.Timestamp, i)
		_, err := v.Verify(env)
		requireVerificationError(t, err)
	}
	for i := range valid.Signature {
		env := valid
		env.Signature = flip(valid.Signature, i)
		_, err := v.Verify(env)
		requireVerificationError(t, err)
	}
}

func TestVerify_TruncatedSignature(t *testing.T) {
	v := newTestVerifier(t)
	env := signedEnvelope(t, v, "msg_1", fixedNow, userCreated)
	env.Signature = env.Signature[:len(env.Signature)-1]

	_, err := v.Verify(env)
	verr := requireVerificationError(t, err)
	assert.Equal(t, "no matching signature found", verr.Reason)
}

func TestVerify_WrongSecret(t *testing.T) {
	v := newTestVerifier(t)
	other, err := NewVerifier("whsec_"+base64.StdEncoding.EncodeToString([]byte("other-key")),
		WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)

	_, err = v.Verify(signedEnvelope(t, other, "msg_1", fixedNow, userCreated))
	requireVerificationError(t, err)
}

func TestVerify_MalformedPayload(t *testing.T) {
	v := newTestVerifier(t)

	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `not json`},
		{name: "missing type", payload: `{"data":{"id":"u_1"}}`},
		{name: "data not object", payload: `{"type":"user.created","data":[1,2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(signedEnvelope(t, v, "msg_1", fixedNow, []byte(tt.payload)))
			verr := requireVerificationError(t, err)
			assert.Contains(t, verr.Reason, "invalid payload")
		})
	}
}

func TestVerify_EventWithoutData(t *testing.T) {
	v := newTestVerifier(t)

	evt, err := v.Verify(signedEnvelope(t, v, "msg_1", fixedNow, []byte(`{"type":"session.ended"}`)))
	require.NoError(t, err)
	assert.Equal(t, "session.ended", evt.Type)
	assert.Nil(t, evt.Data)
	assert.Error(t, evt.DecodeData(&struct{}{}))
}

func TestEnvelopeFromHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Svix-Id", " msg_1 ")
	h.Set("Svix-Timestamp", "1700000000")
	h.Set("Svix-Signature", "v1,abc")

	env := EnvelopeFromHeaders(userCreated, h)
	assert.Equal(t, "msg_1", env.ID)
	assert.Equal(t, "1700000000", env.Timestamp)
	assert.Equal(t, "v1,abc", env.Signature)
	assert.Equal(t, userCreated, env.Payload)
}
