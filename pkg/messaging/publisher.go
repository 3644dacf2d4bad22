package messaging

import (
	"context"

	"github.com/jwalitptl/clinicstore/pkg/logger"
	"github.com/jwalitptl/clinicstore/pkg/metrics"
)

// EventPublisher wraps record events in a Message and hands them to a Broker
// on a single channel. Publishing is best effort: failures are logged and
// counted, never returned to the caller's write path.
type EventPublisher struct {
	broker  Broker
	channel string
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewEventPublisher(broker Broker, channel string, log *logger.Logger, m *metrics.Metrics) *EventPublisher {
	return &EventPublisher{
		broker:  broker,
		channel: channel,
		logger:  log,
		metrics: m,
	}
}

func (p *EventPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	err := p.broker.Publish(ctx, p.channel, Message{Type: eventType, Payload: payload})

	status := "success"
	if err != nil {
		status = "error"
		p.logger.WithContext(ctx).Error(err, "failed to publish event", "event_type", eventType, "channel", p.channel)
	}
	if p.metrics != nil {
		p.metrics.EventsPublished.WithLabelValues(eventType, status).Inc()
	}
	return nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
