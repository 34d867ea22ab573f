// Package service implements the asset registry: converting a caller's pending
// payment into exactly one minted asset, and read access to minted assets.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"anima/internal/asset/models"
	"anima/internal/platform/metrics"
	"anima/internal/platform/tracing"
	"anima/internal/state"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
	audit "anima/pkg/platform/audit"
	"anima/pkg/platform/sentinel"
	"anima/pkg/requestcontext"
)

var tracer = otel.Tracer("anima/internal/asset/service")

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service mints and serves assets.
type Service struct {
	state          state.Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(store state.Store, opts ...Option) *Service {
	s := &Service{state: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mint consumes the caller's pending payment under memo and creates one asset
// owned by the caller. The payment check, its consumption, identifier
// allocation and asset creation happen in one transaction; any failure leaves
// every record as it was.
//
// Rejections are checked in order: unknown memo, caller is not the payer,
// payment already consumed.
func (s *Service) Mint(ctx context.Context, memo id.Memo) (*models.MintResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "asset.Mint", trace.WithAttributes(attribute.String("memo", memo.String())))
	defer span.End()
	if s.metrics != nil {
		defer s.metrics.ObserveMint(start)
	}

	caller := requestcontext.Principal(ctx)
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	var minted *models.AssetData
	err := s.state.RunInTx(ctx, func(ctx context.Context, tx state.Tx) error {
		payment, err := tx.PaymentForUpdate(ctx, memo)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodePaymentNotFound, "payment not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
		}
		if !payment.IsPayer(caller) {
			return dErrors.New(dErrors.CodePayerMismatch, "caller is not the payer")
		}
		if err := payment.Complete(); err != nil {
			return err
		}
		if err := tx.SavePayment(ctx, payment); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume payment")
		}

		assetID, err := tx.AllocateAssetID(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate asset identifier")
		}
		asset, err := models.NewAsset(assetID, caller, memo, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		if err := tx.InsertAsset(ctx, asset); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Wrap(err, dErrors.CodePaymentConsumed, "payment already used for minting")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create asset")
		}

		if err := s.emitAudit(ctx, audit.Event{
			Principal: caller,
			Action:    string(audit.EventAssetMinted),
			Subject:   "asset:" + asset.ID.String(),
			Decision:  "minted",
			Reason:    "memo:" + memo.String(),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record mint audit")
		}
		minted = asset
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		s.recordRejection(ctx, caller, memo, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("asset.id", minted.ID.String()))
	s.logAudit(ctx, string(audit.EventAssetMinted),
		"asset_id", minted.ID.String(),
		"designation", minted.Designation,
		"owner", caller.String(),
		"memo", memo.String(),
	)
	if s.metrics != nil {
		s.metrics.IncrementAssetsMinted()
	}
	return &models.MintResult{ID: minted.ID, Designation: minted.Designation}, nil
}

// Get returns the asset with assetID, or nil when no such asset was minted.
func (s *Service) Get(ctx context.Context, assetID id.AssetID) (*models.AssetData, error) {
	ctx, span := tracer.Start(ctx, "asset.Get", trace.WithAttributes(attribute.String("asset.id", assetID.String())))
	defer span.End()

	var asset *models.AssetData
	err := s.state.View(ctx, func(ctx context.Context, r state.Reader) error {
		found, err := r.Asset(ctx, assetID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load asset")
		}
		asset = found
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	return asset, nil
}

// ListOwned returns the caller's assets in ascending identifier order.
func (s *Service) ListOwned(ctx context.Context) ([]*models.AssetData, error) {
	ctx, span := tracer.Start(ctx, "asset.ListOwned")
	defer span.End()

	caller := requestcontext.Principal(ctx)
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	var owned []*models.AssetData
	err := s.state.View(ctx, func(ctx context.Context, r state.Reader) error {
		var err error
		owned, err = r.AssetsByOwner(ctx, caller)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list assets")
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("asset.count", len(owned)))
	return owned, nil
}

// recordRejection reports domain rejections of a mint. It runs after the
// transaction rolled back, so a failure here only gets logged.
func (s *Service) recordRejection(ctx context.Context, caller id.PrincipalID, memo id.Memo, err error) {
	reason := dErrors.CodeOf(err)
	switch reason {
	case dErrors.CodePaymentNotFound, dErrors.CodePayerMismatch, dErrors.CodePaymentConsumed:
	default:
		return
	}
	if s.metrics != nil {
		s.metrics.IncrementMintRejection(string(reason))
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "mint rejected",
			"memo", memo.String(),
			"caller", caller.String(),
			"reason", string(reason),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if emitErr := s.emitAudit(ctx, audit.Event{
		Principal: caller,
		Action:    string(audit.EventMintRejected),
		Subject:   "memo:" + memo.String(),
		Decision:  "rejected",
		Reason:    string(reason),
	}); emitErr != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to record mint rejection", "error", emitErr)
	}
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) error {
	if s.auditPublisher == nil {
		return nil
	}
	return s.auditPublisher.Emit(ctx, event)
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
