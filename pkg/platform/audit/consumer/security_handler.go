package consumer

import (
	"context"
	"log/slog"
	"time"

	"anima/internal/ratelimit"
	audit "anima/pkg/platform/audit"
)

// AlertRecorder counts raised security alerts.
type AlertRecorder interface {
	IncrementSecurityAlert(action string)
}

// SecurityHandler watches rejected mint claims and raises an alert when one
// principal collects more than threshold rejections inside window. Repeated
// payer mismatches usually mean someone is probing other callers' memos.
type SecurityHandler struct {
	windows ratelimit.Store
	limit   ratelimit.Limit
	logger  *slog.Logger
	alerts  AlertRecorder
}

func NewSecurityHandler(windows ratelimit.Store, threshold int, window time.Duration, logger *slog.Logger, alerts AlertRecorder) *SecurityHandler {
	return &SecurityHandler{
		windows: windows,
		limit:   ratelimit.Limit{Requests: threshold, Window: window},
		logger:  logger,
		alerts:  alerts,
	}
}

func (h *SecurityHandler) Handle(ctx context.Context, event audit.Event) error {
	h.logger.InfoContext(ctx, "security event",
		"event", event.Action,
		"log_type", "audit",
		"principal", event.Principal.String(),
		"subject", event.Subject,
		"reason", event.Reason,
		"client_ip", event.ClientIP,
	)
	if event.Action != string(audit.EventMintRejected) || event.Principal.IsNil() {
		return nil
	}

	res, err := h.windows.Allow(ctx, "rejections:"+event.Principal.String(), h.limit)
	if err != nil {
		// best effort: never stall the stream on the window store
		h.logger.WarnContext(ctx, "rejection window unavailable", "error", err)
		return nil
	}
	if res.Allowed {
		return nil
	}

	h.logger.WarnContext(ctx, "repeated mint rejections",
		"alert", "mint_rejection_burst",
		"principal", event.Principal.String(),
		"threshold", h.limit.Requests,
		"window", h.limit.Window.String(),
		"last_reason", event.Reason,
		"client_ip", event.ClientIP,
	)
	if h.alerts != nil {
		h.alerts.IncrementSecurityAlert(event.Action)
	}
	return nil
}
