// Package service implements the payment ledger: registering payment intents
// keyed by memo and letting their payer verify them.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"anima/internal/payment/models"
	"anima/internal/platform/metrics"
	"anima/internal/platform/tracing"
	"anima/internal/state"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
	audit "anima/pkg/platform/audit"
	"anima/pkg/platform/sentinel"
	"anima/pkg/requestcontext"
)

var tracer = otel.Tracer("anima/internal/payment/service")

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns payment intents.
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

// Register records that the caller intends to pay for one mint under memo.
//
// A pending memo may be re-registered by its own payer, which refreshes the
// timestamp. A pending memo held by someone else, or a memo already consumed by
// a mint, is rejected so neither hijacking nor replay is possible.
func (s *Service) Register(ctx context.Context, memo id.Memo) (*models.PaymentRecord, error) {
	ctx, span := tracer.Start(ctx, "payment.Register", trace.WithAttributes(attribute.String("memo", memo.String())))
	defer span.End()

	caller := requestcontext.Principal(ctx)
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	var (
		registered *models.PaymentRecord
		refreshed  bool
	)
	err := s.state.RunInTx(ctx, func(ctx context.Context, tx state.Tx) error {
		existing, err := tx.PaymentForUpdate(ctx, memo)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
		case err != nil:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
		default:
			if err := checkReRegistration(existing, caller); err != nil {
				return err
			}
			refreshed = true
		}

		rec, err := models.NewPaymentRecord(caller, memo, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		err = tx.SavePayment(ctx, rec)
		if errors.Is(err, sentinel.ErrConflict) {
			// Another registration committed after our read; judge against it.
			winner, readErr := tx.PaymentForUpdate(ctx, memo)
			if readErr != nil {
				return dErrors.Wrap(readErr, dErrors.CodeInternal, "failed to reload payment")
			}
			if err := checkReRegistration(winner, caller); err != nil {
				return err
			}
			return dErrors.New(dErrors.CodeConflict, "payment changed concurrently")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save payment")
		}

		decision := "registered"
		if refreshed {
			decision = "refreshed"
		}
		if err := s.emitAudit(ctx, audit.Event{
			Principal: caller,
			Action:    string(audit.EventPaymentRegistered),
			Subject:   "memo:" + memo.String(),
			Decision:  decision,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment audit")
		}
		registered = rec
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	s.logAudit(ctx, string(audit.EventPaymentRegistered),
		"memo", memo.String(),
		"payer", caller.String(),
		"refreshed", refreshed,
	)
	if s.metrics != nil {
		s.metrics.IncrementPaymentsRegistered()
	}
	return registered, nil
}

// checkReRegistration rejects registering memo again unless it is still
// pending and held by caller.
func checkReRegistration(existing *models.PaymentRecord, caller id.PrincipalID) error {
	if existing.IsCompleted() {
		return dErrors.New(dErrors.CodePaymentConsumed, "payment already used for minting")
	}
	if !existing.IsPayer(caller) {
		return dErrors.New(dErrors.CodePayerMismatch, "memo is registered to a different payer")
	}
	return nil
}

// Verify returns the caller's payment intent for memo.
func (s *Service) Verify(ctx context.Context, memo id.Memo) (*models.PaymentRecord, error) {
	ctx, span := tracer.Start(ctx, "payment.Verify", trace.WithAttributes(attribute.String("memo", memo.String())))
	defer span.End()

	caller := requestcontext.Principal(ctx)
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	var rec *models.PaymentRecord
	err := s.state.View(ctx, func(ctx context.Context, r state.Reader) error {
		var err error
		rec, err = r.Payment(ctx, memo)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodePaymentNotFound, "payment not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if !rec.IsPayer(caller) {
		err := dErrors.New(dErrors.CodePayerMismatch, "caller is not the payer")
		tracing.RecordError(span, err)
		return nil, err
	}
	return rec, nil
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
