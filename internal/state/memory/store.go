// Package memory is the in-process state backend. One RWMutex guards all state:
// transactions take the write lock, views take the read lock.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	assetmodels "anima/internal/asset/models"
	paymentmodels "anima/internal/payment/models"
	"anima/internal/state"
	"anima/internal/state/snapshot"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
	"anima/pkg/platform/sentinel"
	txcontext "anima/pkg/platform/tx"
	"anima/pkg/requestcontext"
)

// Store holds payments, assets and the identifier counter.
type Store struct {
	mu          sync.RWMutex
	payments    map[id.Memo]*paymentmodels.PaymentRecord
	assets      map[id.AssetID]*assetmodels.AssetData
	bySource    map[id.Memo]id.AssetID
	nextAssetID uint64
	timeout     time.Duration
}

type Option func(*Store)

// WithTxTimeout bounds transactions whose context carries no deadline.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		payments: make(map[id.Memo]*paymentmodels.PaymentRecord),
		assets:   make(map[id.AssetID]*assetmodels.AssetData),
		bySource: make(map[id.Memo]id.AssetID),
		timeout:  state.DefaultTxTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunInTx runs fn with exclusive access. Writes are staged and applied only if
// fn returns nil and ctx is still live. In-process stores called from fn, such
// as the audit store, defer their writes to the same commit.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx state.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	staged := newTx(s)
	deferred := &txcontext.Deferred{}
	if err := fn(txcontext.WithDeferred(ctx, deferred), staged); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	staged.commit()
	deferred.Apply()
	return nil
}

// View runs fn under the read lock.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, r state.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "view aborted: context cancelled")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, reader{s: s})
}

// Export copies the full state under the read lock.
func (s *Store) Export(ctx context.Context) (*snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &snapshot.Snapshot{
		Version:     snapshot.CurrentVersion,
		TakenAt:     requestcontext.Now(ctx).UTC(),
		Payments:    make([]*paymentmodels.PaymentRecord, 0, len(s.payments)),
		Assets:      make([]*assetmodels.AssetData, 0, len(s.assets)),
		NextAssetID: s.nextAssetID,
	}
	for _, p := range s.payments {
		snap.Payments = append(snap.Payments, clonePayment(p))
	}
	for _, a := range s.assets {
		snap.Assets = append(snap.Assets, cloneAsset(a))
	}
	sort.Slice(snap.Payments, func(i, j int) bool { return snap.Payments[i].Memo < snap.Payments[j].Memo })
	sort.Slice(snap.Assets, func(i, j int) bool { return snap.Assets[i].ID < snap.Assets[j].ID })
	return snap, nil
}

// Restore validates snap and replaces the whole state with it. On any
// validation error the current state is left untouched.
func (s *Store) Restore(_ context.Context, snap *snapshot.Snapshot) error {
	if snap == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "snapshot is nil")
	}
	if err := snap.Validate(); err != nil {
		return err
	}

	payments := make(map[id.Memo]*paymentmodels.PaymentRecord, len(snap.Payments))
	for _, p := range snap.Payments {
		payments[p.Memo] = clonePayment(p)
	}
	assets := make(map[id.AssetID]*assetmodels.AssetData, len(snap.Assets))
	bySource := make(map[id.Memo]id.AssetID, len(snap.Assets))
	for _, a := range snap.Assets {
		assets[a.ID] = cloneAsset(a)
		bySource[a.SourceMemo] = a.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = payments
	s.assets = assets
	s.bySource = bySource
	s.nextAssetID = snap.NextAssetID
	return nil
}

type reader struct {
	s *Store
}

func (r reader) Payment(_ context.Context, memo id.Memo) (*paymentmodels.PaymentRecord, error) {
	p, ok := r.s.payments[memo]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clonePayment(p), nil
}

func (r reader) Asset(_ context.Context, assetID id.AssetID) (*assetmodels.AssetData, error) {
	a, ok := r.s.assets[assetID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneAsset(a), nil
}

func (r reader) AssetsByOwner(_ context.Context, owner id.PrincipalID) ([]*assetmodels.AssetData, error) {
	owned := make([]*assetmodels.AssetData, 0)
	for _, a := range r.s.assets {
		if a.Owner == owner {
			owned = append(owned, cloneAsset(a))
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })
	return owned, nil
}

// tx stages writes on top of the committed maps.
type tx struct {
	reader
	payments    map[id.Memo]*paymentmodels.PaymentRecord
	assets      map[id.AssetID]*assetmodels.AssetData
	nextAssetID uint64
}

func newTx(s *Store) *tx {
	return &tx{
		reader:      reader{s: s},
		payments:    make(map[id.Memo]*paymentmodels.PaymentRecord),
		assets:      make(map[id.AssetID]*assetmodels.AssetData),
		nextAssetID: s.nextAssetID,
	}
}

func (t *tx) Payment(ctx context.Context, memo id.Memo) (*paymentmodels.PaymentRecord, error) {
	if p, ok := t.payments[memo]; ok {
		return clonePayment(p), nil
	}
	return t.reader.Payment(ctx, memo)
}

func (t *tx) PaymentForUpdate(ctx context.Context, memo id.Memo) (*paymentmodels.PaymentRecord, error) {
	return t.Payment(ctx, memo)
}

func (t *tx) SavePayment(ctx context.Context, payment *paymentmodels.PaymentRecord) error {
	existing, err := t.Payment(ctx, payment.Memo)
	if err == nil && (!existing.IsPending() || !existing.IsPayer(payment.Payer)) {
		return sentinel.ErrConflict
	}
	t.payments[payment.Memo] = clonePayment(payment)
	return nil
}

func (t *tx) Asset(ctx context.Context, assetID id.AssetID) (*assetmodels.AssetData, error) {
	if a, ok := t.assets[assetID]; ok {
		return cloneAsset(a), nil
	}
	return t.reader.Asset(ctx, assetID)
}

func (t *tx) AssetForUpdate(ctx context.Context, assetID id.AssetID) (*assetmodels.AssetData, error) {
	return t.Asset(ctx, assetID)
}

func (t *tx) AssetsByOwner(ctx context.Context, owner id.PrincipalID) ([]*assetmodels.AssetData, error) {
	merged := make(map[id.AssetID]*assetmodels.AssetData)
	committed, err := t.reader.AssetsByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, a := range committed {
		merged[a.ID] = a
	}
	for assetID, a := range t.assets {
		if a.Owner == owner {
			merged[assetID] = cloneAsset(a)
		}
	}
	owned := make([]*assetmodels.AssetData, 0, len(merged))
	for _, a := range merged {
		owned = append(owned, a)
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })
	return owned, nil
}

func (t *tx) InsertAsset(ctx context.Context, asset *assetmodels.AssetData) error {
	if _, err := t.Asset(ctx, asset.ID); err == nil {
		return sentinel.ErrConflict
	}
	if _, taken := t.s.bySource[asset.SourceMemo]; taken {
		return sentinel.ErrConflict
	}
	for _, staged := range t.assets {
		if staged.SourceMemo == asset.SourceMemo {
			return sentinel.ErrConflict
		}
	}
	t.assets[asset.ID] = cloneAsset(asset)
	return nil
}

func (t *tx) UpdateAsset(ctx context.Context, asset *assetmodels.AssetData) error {
	if _, err := t.Asset(ctx, asset.ID); err != nil {
		return err
	}
	t.assets[asset.ID] = cloneAsset(asset)
	return nil
}

func (t *tx) AllocateAssetID(_ context.Context) (id.AssetID, error) {
	if t.nextAssetID == math.MaxUint64 {
		return 0, sentinel.ErrUnavailable
	}
	allocated := id.AssetID(t.nextAssetID)
	t.nextAssetID++
	return allocated, nil
}

func (t *tx) commit() {
	for memo, p := range t.payments {
		t.s.payments[memo] = p
	}
	for assetID, a := range t.assets {
		t.s.assets[assetID] = a
		t.s.bySource[a.SourceMemo] = assetID
	}
	t.s.nextAssetID = t.nextAssetID
}

func clonePayment(p *paymentmodels.PaymentRecord) *paymentmodels.PaymentRecord {
	c := *p
	return &c
}

func cloneAsset(a *assetmodels.AssetData) *assetmodels.AssetData {
	c := *a
	return &c
}
