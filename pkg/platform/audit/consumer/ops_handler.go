package consumer

import (
	"context"
	"log/slog"

	audit "anima/pkg/platform/audit"
)

// OpsHandler only logs operational events; progression history is already in
// the asset state.
type OpsHandler struct {
	logger *slog.Logger
}

func NewOpsHandler(logger *slog.Logger) *OpsHandler {
	return &OpsHandler{logger: logger}
}

func (h *OpsHandler) Handle(ctx context.Context, event audit.Event) error {
	h.logger.DebugContext(ctx, "ops event",
		"event", event.Action,
		"subject", event.Subject,
		"request_id", event.RequestID,
	)
	return nil
}
