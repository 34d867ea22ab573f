package models

import (
	"fmt"
	"time"

	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
)

// MintPriceE8s is the fixed amount recorded for every payment intent: one ICP
// expressed in e8s. Callers never supply it.
const MintPriceE8s uint64 = 100_000_000

// PaymentStatus is the closed set of states a payment intent can be in.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// ParsePaymentStatus rejects anything outside the closed set.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentStatusPending, PaymentStatusCompleted:
		return PaymentStatus(s), nil
	default:
		return "", dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("unknown payment status %q", s))
	}
}

func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusPending || s == PaymentStatusCompleted
}

// CanTransitionTo reports whether s may move to next. Pending -> Completed is
// the only legal transition.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return s == PaymentStatusPending && next == PaymentStatusCompleted
}

func (s PaymentStatus) String() string { return string(s) }

// PaymentRecord is a caller's declared intent to pay for one mint.
//
// Invariants:
//   - Amount is always MintPriceE8s
//   - Timestamp is fixed at registration
//   - Status moves Pending -> Completed at most once and never back
type PaymentRecord struct {
	Payer     id.PrincipalID `json:"payer"`
	Memo      id.Memo        `json:"memo"`
	Timestamp time.Time      `json:"timestamp"`
	Amount    uint64         `json:"amount"`
	Status    PaymentStatus  `json:"status"`
}

// NewPaymentRecord creates a pending intent for payer at the fixed price.
func NewPaymentRecord(payer id.PrincipalID, memo id.Memo, now time.Time) (*PaymentRecord, error) {
	if payer.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "payer cannot be empty")
	}
	return &PaymentRecord{
		Payer:     payer,
		Memo:      memo,
		Timestamp: now,
		Amount:    MintPriceE8s,
		Status:    PaymentStatusPending,
	}, nil
}

func (p *PaymentRecord) IsPending() bool {
	return p.Status == PaymentStatusPending
}

func (p *PaymentRecord) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}

// IsPayer reports whether principal registered this intent.
func (p *PaymentRecord) IsPayer(principal id.PrincipalID) bool {
	return p.Payer == principal
}

// CanComplete checks the Pending -> Completed transition.
func (p *PaymentRecord) CanComplete() error {
	if !p.Status.CanTransitionTo(PaymentStatusCompleted) {
		return dErrors.New(dErrors.CodePaymentConsumed, "payment already used for minting")
	}
	return nil
}

// ApplyCompletion marks the intent consumed.
// Must only be called after CanComplete returns nil.
func (p *PaymentRecord) ApplyCompletion() {
	p.Status = PaymentStatusCompleted
}

// Complete validates and applies completion in one call.
func (p *PaymentRecord) Complete() error {
	if err := p.CanComplete(); err != nil {
		return err
	}
	p.ApplyCompletion()
	return nil
}
