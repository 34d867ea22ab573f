package handler

import (
	"time"

	assetmodels "anima/internal/asset/models"
	paymentmodels "anima/internal/payment/models"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
)

// MemoRequest is the body of register and mint calls. The payer is never part
// of the body; it is always the authenticated caller.
type MemoRequest struct {
	Memo *uint64 `json:"memo"`
}

func (r *MemoRequest) Validate() error {
	if r.Memo == nil {
		return dErrors.New(dErrors.CodeValidation, "memo is required")
	}
	return nil
}

func (r *MemoRequest) MemoID() id.Memo {
	return id.Memo(*r.Memo)
}

// InteractRequest carries an optional free-form message.
type InteractRequest struct {
	Message *string `json:"message,omitempty"`
}

const maxMessageLength = 1024

func (r *InteractRequest) Validate() error {
	if r.Message != nil && len(*r.Message) > maxMessageLength {
		return dErrors.New(dErrors.CodeValidation, "message is too long")
	}
	return nil
}

type PaymentResponse struct {
	Payer     string    `json:"payer"`
	Memo      uint64    `json:"memo"`
	Timestamp time.Time `json:"timestamp"`
	Amount    uint64    `json:"amount"`
	Status    string    `json:"status"`
}

func toPaymentResponse(p *paymentmodels.PaymentRecord) *PaymentResponse {
	return &PaymentResponse{
		Payer:     p.Payer.String(),
		Memo:      uint64(p.Memo),
		Timestamp: p.Timestamp,
		Amount:    p.Amount,
		Status:    p.Status.String(),
	}
}

type MintResponse struct {
	Identifier  uint64 `json:"identifier"`
	Designation string `json:"designation"`
}

type AssetResponse struct {
	Identifier  uint64    `json:"identifier"`
	Owner       string    `json:"owner"`
	Designation string    `json:"designation"`
	CreatedAt   time.Time `json:"created_at"`
	Level       uint64    `json:"level"`
	Experience  uint64    `json:"experience"`
	SourceMemo  uint64    `json:"source_memo"`
}

func toAssetResponse(a *assetmodels.AssetData) *AssetResponse {
	return &AssetResponse{
		Identifier:  uint64(a.ID),
		Owner:       a.Owner.String(),
		Designation: a.Designation,
		CreatedAt:   a.CreatedAt,
		Level:       a.Level,
		Experience:  a.Experience,
		SourceMemo:  uint64(a.SourceMemo),
	}
}

// AssetEnvelope wraps a single lookup. Asset is null when nothing was minted
// under the identifier.
type AssetEnvelope struct {
	Asset *AssetResponse `json:"asset"`
}

type AssetsResponse struct {
	Assets []*AssetResponse `json:"assets"`
}

type InteractResponse struct {
	Message          string `json:"message"`
	ExperienceGained uint64 `json:"experience_gained"`
}
