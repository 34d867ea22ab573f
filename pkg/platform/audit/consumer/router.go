// Package consumer handles audit events read back from the event bus and
// routes them by category to long-retention sinks.
package consumer

import (
	"context"
	"log/slog"

	"anima/internal/platform/kafka"
	audit "anima/pkg/platform/audit"
)

// EventHandler processes one decoded audit event.
type EventHandler interface {
	Handle(ctx context.Context, event audit.Event) error
}

// ConsumptionRecorder counts consumed events.
type ConsumptionRecorder interface {
	IncrementAuditConsumed(category string)
}

// Router decodes outbox payloads and dispatches them by category.
type Router struct {
	handlers map[audit.EventCategory]EventHandler
	logger   *slog.Logger
	metrics  ConsumptionRecorder
}

func NewRouter(logger *slog.Logger, metrics ConsumptionRecorder) *Router {
	return &Router{
		handlers: make(map[audit.EventCategory]EventHandler),
		logger:   logger,
		metrics:  metrics,
	}
}

// Register adds the handler for one category.
func (r *Router) Register(category audit.EventCategory, handler EventHandler) {
	r.handlers[category] = handler
}

// Handle implements kafka.Handler. Undecodable and unrouted messages are
// skipped so a poison record cannot block the partition.
func (r *Router) Handle(ctx context.Context, msg *kafka.Message) error {
	event, err := audit.DecodePayload(msg.Value)
	if err != nil {
		r.logger.WarnContext(ctx, "skipping undecodable audit record",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}
	if r.metrics != nil {
		r.metrics.IncrementAuditConsumed(string(event.Category))
	}

	handler, ok := r.handlers[event.Category]
	if !ok {
		r.logger.DebugContext(ctx, "no handler for audit category",
			"category", string(event.Category),
			"action", event.Action,
		)
		return nil
	}
	return handler.Handle(ctx, event)
}
