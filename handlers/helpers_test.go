package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"user-webhook-sync/events"
	"user-webhook-sync/models"
	"user-webhook-sync/webhook"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type memoryStore struct {
	mu    sync.Mutex
	users map[string]models.User
	calls int
	err   error

	// onCreate runs before each insert with the dispatch context; a non-nil
	// result fails the call.
	onCreate func(ctx context.Context) error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: make(map[string]models.User)}
}

func (s *memoryStore) CreateUser(ctx context.Context, externalUserID, email string) (models.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.onCreate != nil {
		if err := s.onCreate(ctx); err != nil {
			return models.User{}, false, err
		}
	}
	if s.err != nil {
		return models.User{}, false, s.err
	}
	if existing, ok := s.users[externalUserID]; ok {
		return existing, false, nil
	}
	user := models.User{ExternalUserID: externalUserID, Email: email, CreatedAt: testNow}
	s.users[externalUserID] = user
	return user, true, nil
}

func (s *memoryStore) Ping(context.Context) error { return s.err }

func (s *memoryStore) Close(context.Context) error { return nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.UserEvent
	err    error
}

func (p *recordingPublisher) PublishUserCreated(_ context.Context, event events.UserEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func newTestVerifier(t *testing.T) *webhook.Verifier {
	t.Helper()
	v, err := webhook.NewVerifier(testSecret, webhook.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	return v
}

func sign(t *testing.T, v *webhook.Verifier, id, payload string) string {
	t.Helper()
	signature, err := v.Sign(id, testNow, []byte(payload))
	require.NoError(t, err)
	return signature
}

type delivery struct {
	id        string
	payload   string
	signature string
}

func newWebhookRequest(t *testing.T, v *webhook.Verifier, d delivery) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks", bytes.NewBufferString(d.payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(webhook.HeaderID, d.id)
	req.Header.Set(webhook.HeaderTimestamp, strconv.FormatInt(testNow.Unix(), 10))

	signature := d.signature
	if signature == "" {
		signature = sign(t, v, d.id, d.payload)
	}
	req.Header.Set(webhook.HeaderSignature, signature)
	return req
}

type webhookBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func decodeWebhookBody(t *testing.T, rec *httptest.ResponseRecorder) webhookBody {
	t.Helper()
	var body webhookBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
