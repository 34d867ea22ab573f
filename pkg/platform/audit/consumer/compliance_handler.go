package consumer

import (
	"context"
	"fmt"
	"log/slog"

	audit "anima/pkg/platform/audit"
)

// ComplianceStore keeps compliance events for their full retention period.
// Record must be idempotent on event ID because records can be redelivered.
type ComplianceStore interface {
	RecordCompliance(ctx context.Context, event audit.Event) error
}

// ComplianceHandler persists ownership-changing events. Failures are returned
// so the record is not committed and will be retried.
type ComplianceHandler struct {
	store  ComplianceStore
	logger *slog.Logger
}

func NewComplianceHandler(store ComplianceStore, logger *slog.Logger) *ComplianceHandler {
	return &ComplianceHandler{store: store, logger: logger}
}

func (h *ComplianceHandler) Handle(ctx context.Context, event audit.Event) error {
	if err := h.store.RecordCompliance(ctx, event); err != nil {
		h.logger.ErrorContext(ctx, "failed to store compliance event",
			"event_id", event.ID,
			"action", event.Action,
			"error", err,
		)
		return fmt.Errorf("store compliance event: %w", err)
	}
	h.logger.DebugContext(ctx, "stored compliance event",
		"event_id", event.ID,
		"action", event.Action,
		"subject", event.Subject,
	)
	return nil
}
