// Package progression advances minted assets through experience and levels.
package progression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	assetmodels "anima/internal/asset/models"
	"anima/internal/platform/metrics"
	"anima/internal/platform/tracing"
	"anima/internal/state"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
	audit "anima/pkg/platform/audit"
	"anima/pkg/platform/sentinel"
	"anima/pkg/requestcontext"
)

var tracer = otel.Tracer("anima/internal/progression")

// maxAuditMessage caps how much of a caller message is copied into the audit trail.
const maxAuditMessage = 256

// InteractionResult reports what one interaction did.
type InteractionResult struct {
	Message          string `json:"message"`
	ExperienceGained uint64 `json:"experience_gained"`
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

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

// Interact grants one interaction's experience to the asset and applies any
// level-ups it earns. Any authenticated caller may interact with any asset.
// The message has no effect on state; it is only kept in the audit trail.
func (s *Service) Interact(ctx context.Context, assetID id.AssetID, message *string) (*InteractionResult, error) {
	ctx, span := tracer.Start(ctx, "progression.Interact", trace.WithAttributes(attribute.String("asset.id", assetID.String())))
	defer span.End()

	caller := requestcontext.Principal(ctx)

	var (
		updated *assetmodels.AssetData
		gained  uint64
		levels  uint64
	)
	err := s.state.RunInTx(ctx, func(ctx context.Context, tx state.Tx) error {
		asset, err := tx.AssetForUpdate(ctx, assetID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeAssetNotFound, "asset not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load asset")
		}

		gained, levels = asset.Interact()
		if err := tx.UpdateAsset(ctx, asset); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save progression")
		}

		event := audit.Event{
			Principal: caller,
			Action:    string(audit.EventAssetInteracted),
			Subject:   "asset:" + asset.ID.String(),
			Decision:  fmt.Sprintf("level=%d experience=%d", asset.Level, asset.Experience),
		}
		if message != nil {
			event.Reason = truncate(*message, maxAuditMessage)
		}
		if err := s.emitAudit(ctx, event); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record interaction audit")
		}
		if levels > 0 {
			if err := s.emitAudit(ctx, audit.Event{
				Principal: caller,
				Action:    string(audit.EventAssetLeveledUp),
				Subject:   "asset:" + asset.ID.String(),
				Decision:  fmt.Sprintf("level=%d", asset.Level),
			}); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record level-up audit")
			}
		}
		updated = asset
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("levels_gained", int64(levels)))
	if s.metrics != nil {
		s.metrics.IncrementInteractions()
		s.metrics.AddLevelUps(levels)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "asset interacted",
			"asset_id", assetID.String(),
			"level", updated.Level,
			"experience", updated.Experience,
			"levels_gained", levels,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	return &InteractionResult{
		Message:          confirmation(updated, gained, levels),
		ExperienceGained: gained,
	}, nil
}

func confirmation(asset *assetmodels.AssetData, gained, levels uint64) string {
	msg := fmt.Sprintf("%s gained %d experience", asset.Designation, gained)
	if levels > 0 {
		msg += fmt.Sprintf(" and reached level %d", asset.Level)
	}
	return msg
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) error {
	if s.auditPublisher == nil {
		return nil
	}
	return s.auditPublisher.Emit(ctx, event)
}
