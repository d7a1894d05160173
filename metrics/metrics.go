package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeHandled   = "handled"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeMalformed = "malformed"
	OutcomeFailed    = "failed"
)

var (
	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_deliveries_total",
		Help: "Total number of webhook deliveries, labelled by event type and outcome.",
	}, []string{"event_type", "outcome"})

	UsersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "webhook_users_created_total",
		Help: "Total number of user records inserted from webhook events.",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_published_total",
		Help: "Total number of domain events handed to the broker, labelled by status.",
	}, []string{"status"})

	WebhookDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "webhook_processing_duration_seconds",
		Help:    "Webhook handling latency in seconds, from body read to response.",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})
)
