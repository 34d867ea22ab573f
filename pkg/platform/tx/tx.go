// Package tx carries an open transaction through context so that stores
// invoked inside state.Store.RunInTx write through it. SQL stores join the
// *sql.Tx; in-process stores queue their writes on a Deferred.
package tx

import (
	"context"
	"database/sql"
)

type (
	txKey       struct{}
	deferredKey struct{}
)

// Execer is the write surface shared by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WithTx returns ctx carrying tx. A nil tx leaves ctx untouched.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, tx)
}

func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// ExecerFor picks the transaction in ctx, or db when there is none.
func ExecerFor(ctx context.Context, db *sql.DB) Execer {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}

// Deferred queues writes to in-process stores until the enclosing in-process
// transaction commits. It is used from one goroutine at a time.
type Deferred struct {
	writes []func()
}

func WithDeferred(ctx context.Context, d *Deferred) context.Context {
	if d == nil {
		return ctx
	}
	return context.WithValue(ctx, deferredKey{}, d)
}

// Defer queues write on the Deferred in ctx. It reports false when ctx carries
// none, and the caller should then write immediately.
func Defer(ctx context.Context, write func()) bool {
	d, ok := ctx.Value(deferredKey{}).(*Deferred)
	if !ok {
		return false
	}
	d.writes = append(d.writes, write)
	return true
}

// Apply runs the queued writes in order. Dropping a Deferred discards them.
func (d *Deferred) Apply() {
	for _, write := range d.writes {
		write()
	}
	d.writes = nil
}
