// Package admin serves operator endpoints guarded by a shared token.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"anima/internal/state/snapshot"
	dErrors "anima/pkg/domain-errors"
	audit "anima/pkg/platform/audit"
	"anima/pkg/platform/httputil"
	adminmw "anima/pkg/platform/middleware/admin"
	"anima/pkg/requestcontext"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditLister reads recent audit events.
type AuditLister interface {
	List(ctx context.Context, limit int) ([]audit.Event, error)
}

type Handler struct {
	token    string
	exporter snapshot.Exporter
	saver    snapshot.Saver
	audit    AuditLister
	logger   *slog.Logger
}

type Option func(*Handler)

// WithSnapshots enables POST /admin/snapshot. Without it the route answers 404,
// which is the case for the Postgres backend.
func WithSnapshots(exporter snapshot.Exporter, saver snapshot.Saver) Option {
	return func(h *Handler) {
		h.exporter = exporter
		h.saver = saver
	}
}

func New(token string, auditLister AuditLister, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{token: token, audit: auditLister, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(h.token, h.logger))
		r.Post("/snapshot", h.handleSnapshot)
		r.Get("/audit", h.handleAudit)
	})
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.exporter == nil || h.saver == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "snapshots are not enabled for this backend"))
		return
	}

	snap, err := h.exporter.Export(ctx)
	if err == nil {
		err = h.saver.Save(ctx, snap)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "manual snapshot failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "snapshot failed"))
		return
	}

	h.logger.InfoContext(ctx, "manual snapshot saved",
		"request_id", requestcontext.RequestID(ctx),
		"payments", len(snap.Payments),
		"assets", len(snap.Assets),
	)
	httputil.WriteJSON(w, http.StatusOK, toSnapshotResponse(snap))
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxAuditLimit {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	events, err := h.audit.List(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditListResponse(events))
}
