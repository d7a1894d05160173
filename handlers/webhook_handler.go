package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"user-webhook-sync/metrics"
	"user-webhook-sync/replay"
	"user-webhook-sync/store"
	"user-webhook-sync/webhook"

	"github.com/labstack/echo/v4"
)

const (
	unknownEventType = "unknown"
	releaseTimeout   = 2 * time.Second
)

type WebhookHandler struct {
	verifier   *webhook.Verifier
	dispatcher *Dispatcher
	guard      replay.Guard
	timeout    time.Duration
}

func NewWebhookHandler(verifier *webhook.Verifier, dispatcher *Dispatcher, guard replay.Guard, timeout time.Duration) *WebhookHandler {
	if guard == nil {
		guard = replay.NopGuard{}
	}
	return &WebhookHandler{
		verifier:   verifier,
		dispatcher: dispatcher,
		guard:      guard,
		timeout:    timeout,
	}
}

func webhookResult(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{
		"success": status == http.StatusOK,
		"message": message,
	})
}

// Receive handles POST /api/webhooks. The body is read raw because the
// signature covers the exact bytes sent.
func (h *WebhookHandler) Receive(c echo.Context) error {
	start := time.Now()
	defer func() {
		metrics.WebhookDuration.Observe(time.Since(start).Seconds())
	}()

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		metrics.WebhooksReceived.WithLabelValues(unknownEventType, metrics.OutcomeRejected).Inc()
		return webhookResult(c, http.StatusBadRequest, "failed to read request body")
	}

	evt, err := h.verifier.Verify(webhook.EnvelopeFromHeaders(payload, c.Request().Header))
	if err != nil {
		c.Logger().Warnf("webhook failed to verify: %v", err)
		metrics.WebhooksReceived.WithLabelValues(unknownEventType, metrics.OutcomeRejected).Inc()
		return webhookResult(c, http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	claimed, err := h.guard.Claim(ctx, evt.ID)
	if err != nil {
		// The upsert keeps processing safe without the guard.
		c.Logger().Warnf("replay guard unavailable, processing %s anyway: %v", evt.ID, err)
		claimed = true
	}
	if !claimed {
		c.Logger().Infof("webhook %s already processed", evt.ID)
		metrics.WebhooksReceived.WithLabelValues(evt.Type, metrics.OutcomeDuplicate).Inc()
		return webhookResult(c, http.StatusOK, "Webhook already processed")
	}

	defer func() {
		if r := recover(); r != nil {
			h.release(c, evt.ID)
			panic(r)
		}
	}()

	outcome, err := h.dispatcher.Dispatch(ctx, evt)
	metrics.WebhooksReceived.WithLabelValues(evt.Type, outcome).Inc()
	if err != nil {
		h.release(c, evt.ID)
		return h.dispatchFailure(c, evt, err)
	}

	c.Logger().Infof("webhook with an ID of %s and type of %s: %s", evt.ID, evt.Type, outcome)
	return webhookResult(c, http.StatusOK, "Webhook received")
}

// release frees the claim on id so the sender's retry is dispatched. The
// request context may already be cancelled, so it is detached from it.
func (h *WebhookHandler) release(c echo.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), releaseTimeout)
	defer cancel()

	if err := h.guard.Release(ctx, id); err != nil {
		c.Logger().Warnf("failed to release webhook %s: %v", id, err)
	}
}

func (h *WebhookHandler) dispatchFailure(c echo.Context, evt webhook.VerifiedEvent, err error) error {
	var malformed *MalformedEventError
	if errors.As(err, &malformed) {
		c.Logger().Warnf("webhook %s rejected: %v", evt.ID, err)
		return webhookResult(c, http.StatusBadRequest, malformed.Error())
	}

	c.Logger().Errorf("webhook %s of type %s failed: %v", evt.ID, evt.Type, err)

	var perr *store.PersistenceError
	if errors.As(err, &perr) {
		return webhookResult(c, http.StatusInternalServerError, "failed to persist event")
	}
	return webhookResult(c, http.StatusInternalServerError, "failed to process event")
}
