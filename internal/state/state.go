// Package state defines the single critical section shared by the payment ledger,
// the asset registry and the progression engine.
//
// Every mutation runs inside Store.RunInTx. Backends guarantee that concurrent
// transactions behave as if run one at a time and that a transaction whose
// callback returns an error leaves no trace. Reads that need a consistent view
// across several records use Store.View.
package state

import (
	"context"
	"time"

	assetmodels "anima/internal/asset/models"
	paymentmodels "anima/internal/payment/models"
	id "anima/pkg/domain"
)

// DefaultTxTimeout bounds a transaction when the caller's context has no deadline.
const DefaultTxTimeout = 5 * time.Second

// Reader exposes read access to the shared state.
//
// Lookups return sentinel.ErrNotFound when the record does not exist. Returned
// records are copies; mutating them has no effect until written back through Tx.
type Reader interface {
	Payment(ctx context.Context, memo id.Memo) (*paymentmodels.PaymentRecord, error)
	Asset(ctx context.Context, assetID id.AssetID) (*assetmodels.AssetData, error)
	// AssetsByOwner returns the owner's assets in ascending identifier order.
	AssetsByOwner(ctx context.Context, owner id.PrincipalID) ([]*assetmodels.AssetData, error)
}

// Tx is the mutable view handed to a RunInTx callback.
type Tx interface {
	Reader

	// PaymentForUpdate reads a payment that the transaction intends to modify.
	// SQL backends lock the row until commit.
	PaymentForUpdate(ctx context.Context, memo id.Memo) (*paymentmodels.PaymentRecord, error)
	// SavePayment inserts the payment keyed by its memo, or overwrites a pending
	// one held by the same payer. Any other existing row is left untouched and
	// sentinel.ErrConflict is returned.
	SavePayment(ctx context.Context, payment *paymentmodels.PaymentRecord) error

	AssetForUpdate(ctx context.Context, assetID id.AssetID) (*assetmodels.AssetData, error)
	// InsertAsset adds a freshly minted asset. It returns sentinel.ErrConflict if
	// the identifier or the source memo is already taken.
	InsertAsset(ctx context.Context, asset *assetmodels.AssetData) error
	// UpdateAsset persists progression changes to an existing asset.
	UpdateAsset(ctx context.Context, asset *assetmodels.AssetData) error

	// AllocateAssetID returns the next identifier and advances the counter.
	// Identifiers are never reused. A rolled back transaction does not consume one.
	AllocateAssetID(ctx context.Context) (id.AssetID, error)
}

// Store runs transactions against one state instance.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	View(ctx context.Context, fn func(ctx context.Context, r Reader) error) error
}
