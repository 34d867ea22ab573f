// Package handler exposes the payment ledger, asset registry and progression
// engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	assetmodels "anima/internal/asset/models"
	paymentmodels "anima/internal/payment/models"
	"anima/internal/platform/metrics"
	platformmw "anima/internal/platform/middleware"
	"anima/internal/progression"
	"anima/internal/ratelimit"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
	"anima/pkg/platform/httputil"
	"anima/pkg/platform/middleware/auth"
	"anima/pkg/requestcontext"
)

// maxBodyBytes bounds request bodies; every payload here is tiny.
const maxBodyBytes = 16 << 10

type PaymentService interface {
	Register(ctx context.Context, memo id.Memo) (*paymentmodels.PaymentRecord, error)
	Verify(ctx context.Context, memo id.Memo) (*paymentmodels.PaymentRecord, error)
}

type AssetService interface {
	Mint(ctx context.Context, memo id.Memo) (*assetmodels.MintResult, error)
	Get(ctx context.Context, assetID id.AssetID) (*assetmodels.AssetData, error)
	ListOwned(ctx context.Context) ([]*assetmodels.AssetData, error)
}

type ProgressionService interface {
	Interact(ctx context.Context, assetID id.AssetID, message *string) (*progression.InteractionResult, error)
}

// RateLimiter builds per-class limiting middleware for authenticated routes.
type RateLimiter interface {
	Middleware(class ratelimit.Class) func(http.Handler) http.Handler
}

// Handler serves the authenticated API.
type Handler struct {
	payments     PaymentService
	assets       AssetService
	progression  ProgressionService
	logger       *slog.Logger
	metrics      *metrics.Metrics
	jwtValidator auth.JWTValidator
	limiter      RateLimiter
}

type Option func(*Handler)

// WithRateLimiter limits the write endpoints per caller.
func WithRateLimiter(l RateLimiter) Option {
	return func(h *Handler) {
		h.limiter = l
	}
}

func New(
	payments PaymentService,
	assets AssetService,
	progression ProgressionService,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator auth.JWTValidator,
	opts ...Option,
) *Handler {
	h := &Handler{
		payments:     payments,
		assets:       assets,
		progression:  progression,
		logger:       logger,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the API routes. Request id, client metadata, request time
// and recovery middleware are expected on the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(platformmw.LatencyMiddleware(h.metrics))
		r.Use(platformmw.ContentTypeJSON)
		r.Use(auth.RequireAuth(h.jwtValidator, h.logger))

		r.With(h.limit(ratelimit.ClassPayment)).Post("/payments", h.handleRegisterPayment)
		r.Get("/payments/{memo}", h.handleVerifyPayment)

		r.With(h.limit(ratelimit.ClassPayment)).Post("/assets/mint", h.handleMint)
		r.Get("/assets", h.handleListOwned)
		r.Get("/assets/{id}", h.handleGetAsset)
		r.With(h.limit(ratelimit.ClassInteract)).Post("/assets/{id}/interact", h.handleInteract)
	})
}

func (h *Handler) limit(class ratelimit.Class) func(http.Handler) http.Handler {
	if h.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return h.limiter.Middleware(class)
}

func (h *Handler) handleRegisterPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req MemoRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.payments.Register(ctx, req.MemoID())
	if err != nil {
		h.writeServiceError(ctx, w, "register payment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toPaymentResponse(rec))
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memo, err := id.ParseMemo(chi.URLParam(r, "memo"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.payments.Verify(ctx, memo)
	if err != nil {
		h.writeServiceError(ctx, w, "verify payment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPaymentResponse(rec))
}

func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req MemoRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.assets.Mint(ctx, req.MemoID())
	if err != nil {
		h.writeServiceError(ctx, w, "mint asset", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, &MintResponse{
		Identifier:  uint64(res.ID),
		Designation: res.Designation,
	})
}

func (h *Handler) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, err := id.ParseAssetID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	asset, err := h.assets.Get(ctx, assetID)
	if err != nil {
		h.writeServiceError(ctx, w, "get asset", err)
		return
	}
	resp := &AssetEnvelope{}
	if asset != nil {
		resp.Asset = toAssetResponse(asset)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListOwned(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owned, err := h.assets.ListOwned(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "list owned assets", err)
		return
	}
	resp := &AssetsResponse{Assets: make([]*AssetResponse, 0, len(owned))}
	for _, a := range owned {
		resp.Assets = append(resp.Assets, toAssetResponse(a))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleInteract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	assetID, err := id.ParseAssetID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req InteractRequest
	if !h.decode(w, r, &req, true) {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.progression.Interact(ctx, assetID, req.Message)
	if err != nil {
		h.writeServiceError(ctx, w, "interact", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &InteractResponse{
		Message:          res.Message,
		ExperienceGained: res.ExperienceGained,
	})
}

// decode reads a JSON body into dst. An empty body is accepted only when
// allowEmpty is set.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	ctx := r.Context()
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	h.logger.WarnContext(ctx, "invalid request body",
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
	httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
	return false
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+op,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	} else {
		h.logger.InfoContext(ctx, op+" rejected",
			"request_id", requestcontext.RequestID(ctx),
			"code", string(dErrors.CodeOf(err)),
		)
	}
	httputil.WriteError(w, err)
}
