package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSEmitter publishes task state events on a NATS subject. It is wired in
// when an events broker URL is configured; otherwise the in-memory emitter is
// used alone.
type NATSEmitter struct {
	nc      *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSEmitter connects to the broker at the given URL and returns an
// emitter publishing on subject.
func NewNATSEmitter(url, subject string, logger *slog.Logger) (*NATSEmitter, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	return &NATSEmitter{
		nc:      nc,
		subject: subject,
		logger:  logger.With("component", "nats_event_emitter"),
	}, nil
}

// EmitEvent serializes the event as JSON and publishes it.
func (e *NATSEmitter) EmitEvent(ctx context.Context, event *TaskStateEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal task state event: %w", err)
	}

	if err := e.nc.Publish(e.subject, payload); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", e.subject, err)
	}

	e.logger.Debug("published task state event",
		"subject", e.subject,
		"task_id", event.TaskID,
		"state", event.State)
	return nil
}

// Close drains the connection, flushing any buffered publishes.
func (e *NATSEmitter) Close() {
	if e.nc != nil {
		_ = e.nc.Drain()
	}
}
