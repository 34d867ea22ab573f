// Package postgres is the SQL state backend. Each RunInTx is one database
// transaction; the payment and counter rows a mint touches are locked with
// SELECT ... FOR UPDATE and a unique index on assets(source_memo) backs the
// one-asset-per-payment rule.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	assetmodels "anima/internal/asset/models"
	paymentmodels "anima/internal/payment/models"
	platformpg "anima/internal/platform/postgres"
	"anima/internal/state"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
	"anima/pkg/platform/sentinel"
	txcontext "anima/pkg/platform/tx"
)

type Store struct {
	db      *sql.DB
	timeout time.Duration
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

func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, timeout: state.DefaultTxTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunInTx runs fn inside a database transaction. The transaction is also placed
// in the context handed to fn so the audit outbox joins it.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx state.Tx) error) error {
	return s.run(ctx, nil, func(ctx context.Context, sqlTx *sql.Tx) error {
		return fn(ctx, &tx{q: sqlTx})
	})
}

// View runs fn in a read-only repeatable-read transaction so multi-row reads see
// one consistent snapshot.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, r state.Reader) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	return s.run(ctx, opts, func(ctx context.Context, sqlTx *sql.Tx) error {
		return fn(ctx, &tx{q: sqlTx})
	})
}

func (s *Store) run(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, sqlTx *sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	sqlTx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, sqlTx), sqlTx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction commit timed out")
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type tx struct {
	q querier
}

const paymentColumns = `memo::text, payer::text, amount::text, status, created_at`

func (t *tx) Payment(ctx context.Context, memo id.Memo) (*paymentmodels.PaymentRecord, error) {
	return t.payment(ctx, `SELECT `+paymentColumns+` FROM payments WHERE memo = $1`, memo)
}

func (t *tx) PaymentForUpdate(ctx context.Context, memo id.Memo) (*paymentmodels.PaymentRecord, error) {
	return t.payment(ctx, `SELECT `+paymentColumns+` FROM payments WHERE memo = $1 FOR UPDATE`, memo)
}

func (t *tx) payment(ctx context.Context, query string, memo id.Memo) (*paymentmodels.PaymentRecord, error) {
	var (
		memoText, payerText, amountText, status string
		createdAt                               time.Time
	)
	err := t.q.QueryRowContext(ctx, query, num(uint64(memo))).Scan(&memoText, &payerText, &amountText, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select payment: %w", err)
	}

	rec := &paymentmodels.PaymentRecord{Timestamp: createdAt.UTC()}
	if rec.Status, err = paymentmodels.ParsePaymentStatus(status); err != nil {
		return nil, err
	}
	if rec.Payer, err = parsePrincipal(payerText); err != nil {
		return nil, err
	}
	memoValue, err := parseNum(memoText)
	if err != nil {
		return nil, err
	}
	rec.Memo = id.Memo(memoValue)
	if rec.Amount, err = parseNum(amountText); err != nil {
		return nil, err
	}
	return rec, nil
}

func (t *tx) SavePayment(ctx context.Context, p *paymentmodels.PaymentRecord) error {
	res, err := t.q.ExecContext(ctx, `
		INSERT INTO payments (memo, payer, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (memo) DO UPDATE SET
			amount = EXCLUDED.amount,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at
		WHERE payments.status = $6 AND payments.payer = EXCLUDED.payer
	`, num(uint64(p.Memo)), p.Payer.String(), num(p.Amount), p.Status.String(), p.Timestamp,
		paymentmodels.PaymentStatusPending.String())
	if err != nil {
		return fmt.Errorf("upsert payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("upsert payment rows affected: %w", err)
	}
	// A concurrent registration by another payer, or a completed row, wins.
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

const assetColumns = `id::text, owner::text, designation, created_at, level::text, experience::text, source_memo::text`

func (t *tx) Asset(ctx context.Context, assetID id.AssetID) (*assetmodels.AssetData, error) {
	return t.asset(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, assetID)
}

func (t *tx) AssetForUpdate(ctx context.Context, assetID id.AssetID) (*assetmodels.AssetData, error) {
	return t.asset(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1 FOR UPDATE`, assetID)
}

func (t *tx) asset(ctx context.Context, query string, assetID id.AssetID) (*assetmodels.AssetData, error) {
	a, err := scanAsset(t.q.QueryRowContext(ctx, query, num(uint64(assetID))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (t *tx) AssetsByOwner(ctx context.Context, owner id.PrincipalID) ([]*assetmodels.AssetData, error) {
	rows, err := t.q.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE owner = $1 ORDER BY id`, owner.String())
	if err != nil {
		return nil, fmt.Errorf("select assets by owner: %w", err)
	}
	defer rows.Close()

	owned := make([]*assetmodels.AssetData, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		owned = append(owned, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return owned, nil
}

func (t *tx) InsertAsset(ctx context.Context, a *assetmodels.AssetData) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO assets (id, owner, designation, created_at, level, experience, source_memo)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, num(uint64(a.ID)), a.Owner.String(), a.Designation, a.CreatedAt,
		num(a.Level), num(a.Experience), num(uint64(a.SourceMemo)))
	if platformpg.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

func (t *tx) UpdateAsset(ctx context.Context, a *assetmodels.AssetData) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE assets SET level = $2, experience = $3 WHERE id = $1`,
		num(uint64(a.ID)), num(a.Level), num(a.Experience))
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update asset rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (t *tx) AllocateAssetID(ctx context.Context) (id.AssetID, error) {
	var current string
	err := t.q.QueryRowContext(ctx,
		`SELECT next_asset_id::text FROM asset_counter WHERE singleton FOR UPDATE`).Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("lock asset counter: %w", err)
	}
	next, err := parseNum(current)
	if err != nil {
		return 0, err
	}
	if next == ^uint64(0) {
		return 0, sentinel.ErrUnavailable
	}
	if _, err := t.q.ExecContext(ctx,
		`UPDATE asset_counter SET next_asset_id = $1 WHERE singleton`, num(next+1)); err != nil {
		return 0, fmt.Errorf("advance asset counter: %w", err)
	}
	return id.AssetID(next), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*assetmodels.AssetData, error) {
	var (
		idText, ownerText, designation, levelText, xpText, memoText string
		createdAt                                                  time.Time
	)
	if err := row.Scan(&idText, &ownerText, &designation, &createdAt, &levelText, &xpText, &memoText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	assetID, err := parseNum(idText)
	if err != nil {
		return nil, err
	}
	owner, err := parsePrincipal(ownerText)
	if err != nil {
		return nil, err
	}
	level, err := parseNum(levelText)
	if err != nil {
		return nil, err
	}
	xp, err := parseNum(xpText)
	if err != nil {
		return nil, err
	}
	memo, err := parseNum(memoText)
	if err != nil {
		return nil, err
	}
	return &assetmodels.AssetData{
		ID:          id.AssetID(assetID),
		Owner:       owner,
		Designation: designation,
		CreatedAt:   createdAt.UTC(),
		Level:       level,
		Experience:  xp,
		SourceMemo:  id.Memo(memo),
	}, nil
}

// num renders a uint64 for a NUMERIC(20,0) parameter. database/sql refuses
// uint64 values with the high bit set, so every unsigned value goes as text.
func num(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func parseNum(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse numeric column %q: %w", s, err)
	}
	return v, nil
}

func parsePrincipal(s string) (id.PrincipalID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return id.PrincipalID{}, fmt.Errorf("parse principal column: %w", err)
	}
	return id.PrincipalID(u), nil
}
