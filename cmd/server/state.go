package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"anima/internal/platform/config"
	platformpg "anima/internal/platform/postgres"
	"anima/internal/state"
	"anima/internal/state/memory"
	statepg "anima/internal/state/postgres"
	"anima/internal/state/snapshot"
	audit "anima/pkg/platform/audit"
	"anima/pkg/platform/audit/publisher"
	auditmemory "anima/pkg/platform/audit/store/memory"
	auditpg "anima/pkg/platform/audit/store/postgres"
	"anima/pkg/platform/sentinel"
)

// auditBackend is what the process needs from an audit store: append and list
// for the publisher, pending/mark for the outbox relay.
type auditBackend interface {
	audit.Store
	audit.Outbox
}

// backend bundles the state store with the audit store that must share its
// transactions.
type backend struct {
	store state.Store
	audit auditBackend
	// memory is set only for the in-process backend; it is what snapshots
	// export from and restore into.
	memory *memory.Store
	db     *sql.DB
}

func (b *backend) Close() {
	if b.db != nil {
		_ = b.db.Close()
	}
}

func buildBackend(ctx context.Context, cfg config.StateConfig) (*backend, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := platformpg.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := platformpg.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &backend{
			store: statepg.New(db, statepg.WithTxTimeout(cfg.TxTimeout)),
			audit: auditpg.New(db),
			db:    db,
		}, nil
	default:
		mem := memory.New(memory.WithTxTimeout(cfg.TxTimeout))
		return &backend{
			store:  mem,
			audit:  auditmemory.NewInMemoryStore(),
			memory: mem,
		}, nil
	}
}

// restoreSnapshot loads the latest snapshot into the memory backend. A missing
// snapshot is a fresh start; an invalid one aborts startup so state is never
// half restored.
func restoreSnapshot(ctx context.Context, snapshots *snapshot.RedisStore, mem *memory.Store, pub *publisher.Publisher, logger *slog.Logger) error {
	snap, err := snapshots.Load(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		logger.InfoContext(ctx, "no snapshot found, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if err := mem.Restore(ctx, snap); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}

	logger.InfoContext(ctx, "state restored from snapshot",
		"event", string(audit.EventSnapshotRestored),
		"log_type", "audit",
		"taken_at", snap.TakenAt,
		"payments", len(snap.Payments),
		"assets", len(snap.Assets),
		"next_asset_id", snap.NextAssetID,
	)
	return pub.Emit(ctx, audit.Event{
		Action:   string(audit.EventSnapshotRestored),
		Subject:  "snapshot",
		Decision: "restored",
		Reason:   fmt.Sprintf("payments=%d assets=%d", len(snap.Payments), len(snap.Assets)),
	})
}
