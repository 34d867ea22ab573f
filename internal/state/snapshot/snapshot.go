// Package snapshot captures the whole shared state (payments, assets and the
// identifier counter) as one unit so it can be persisted and restored together.
package snapshot

import (
	"context"
	"fmt"
	"time"

	assetmodels "anima/internal/asset/models"
	paymentmodels "anima/internal/payment/models"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
)

// CurrentVersion is bumped whenever the encoded layout changes.
const CurrentVersion = 1

// Snapshot is a point-in-time copy of the shared state.
type Snapshot struct {
	Version     int                            `json:"version"`
	TakenAt     time.Time                      `json:"taken_at"`
	Payments    []*paymentmodels.PaymentRecord `json:"payments"`
	Assets      []*assetmodels.AssetData       `json:"assets"`
	NextAssetID uint64                         `json:"next_asset_id"`
}

// Exporter produces snapshots of live state.
type Exporter interface {
	Export(ctx context.Context) (*Snapshot, error)
}

// Restorer replaces live state with a snapshot. Implementations must validate
// before swapping anything in.
type Restorer interface {
	Restore(ctx context.Context, snap *Snapshot) error
}

// Validate checks that the snapshot describes a state the service could have
// produced. A snapshot failing any check must not be loaded at all.
func (s *Snapshot) Validate() error {
	if s.Version != CurrentVersion {
		return invariant("unsupported snapshot version %d", s.Version)
	}

	payments := make(map[id.Memo]*paymentmodels.PaymentRecord, len(s.Payments))
	for _, p := range s.Payments {
		if p == nil {
			return invariant("nil payment record")
		}
		if _, dup := payments[p.Memo]; dup {
			return invariant("duplicate payment memo %s", p.Memo)
		}
		if !p.Status.IsValid() {
			return invariant("payment %s has unknown status %q", p.Memo, p.Status)
		}
		if p.Payer.IsNil() {
			return invariant("payment %s has no payer", p.Memo)
		}
		if p.Amount != paymentmodels.MintPriceE8s {
			return invariant("payment %s has amount %d", p.Memo, p.Amount)
		}
		payments[p.Memo] = p
	}

	assetIDs := make(map[id.AssetID]struct{}, len(s.Assets))
	sources := make(map[id.Memo]id.AssetID, len(s.Assets))
	for _, a := range s.Assets {
		if a == nil {
			return invariant("nil asset record")
		}
		if err := a.Validate(); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvariantViolation, fmt.Sprintf("asset %s", a.ID))
		}
		if _, dup := assetIDs[a.ID]; dup {
			return invariant("duplicate asset id %s", a.ID)
		}
		assetIDs[a.ID] = struct{}{}
		if uint64(a.ID) >= s.NextAssetID {
			return invariant("asset id %s is not below next asset id %d", a.ID, s.NextAssetID)
		}
		if other, dup := sources[a.SourceMemo]; dup {
			return invariant("assets %s and %s share source memo %s", other, a.ID, a.SourceMemo)
		}
		sources[a.SourceMemo] = a.ID

		payment, ok := payments[a.SourceMemo]
		if !ok {
			return invariant("asset %s references unknown memo %s", a.ID, a.SourceMemo)
		}
		if !payment.IsCompleted() {
			return invariant("asset %s references memo %s which is not completed", a.ID, a.SourceMemo)
		}
		if payment.Payer != a.Owner {
			return invariant("asset %s owner differs from payer of memo %s", a.ID, a.SourceMemo)
		}
	}

	for memo, p := range payments {
		if p.IsCompleted() {
			if _, ok := sources[memo]; !ok {
				return invariant("completed payment %s has no asset", memo)
			}
		}
	}
	return nil
}

func invariant(format string, args ...any) error {
	return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf(format, args...))
}
