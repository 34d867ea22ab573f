//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "anima/pkg/domain"
	audit "anima/pkg/platform/audit"
	auditpg "anima/pkg/platform/audit/store/postgres"
	txcontext "anima/pkg/platform/tx"
	"anima/pkg/testutil/containers"
)

func TestAuditOutbox(t *testing.T) {
	ctx := context.Background()
	pg := containers.GetManager().GetPostgres(t)
	require.NoError(t, pg.TruncateTables(ctx, "audit_outbox", "audit_compliance"))
	store := auditpg.New(pg.DB)
	alice := id.PrincipalID(uuid.New())

	t.Run("append joins the caller's transaction", func(t *testing.T) {
		tx, err := pg.DB.BeginTx(ctx, nil)
		require.NoError(t, err)
		txCtx := txcontext.WithTx(ctx, tx)
		require.NoError(t, store.Append(txCtx, audit.Event{Action: string(audit.EventAssetMinted), Principal: alice, Subject: "asset:0"}))
		require.NoError(t, tx.Rollback())

		pending, err := store.FetchPending(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending, "rolled back events never reach the outbox")
	})

	t.Run("pending entries are relayed once", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, audit.Event{Action: string(audit.EventPaymentRegistered), Principal: alice, Subject: "memo:42"}))
		require.NoError(t, store.Append(ctx, audit.Event{Action: string(audit.EventAssetMinted), Principal: alice, Subject: "asset:0"}))

		pending, err := store.FetchPending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, alice.String(), pending[0].Key)
		assert.Equal(t, string(audit.EventPaymentRegistered), pending[0].EventType)

		require.NoError(t, store.MarkPublished(ctx, []uuid.UUID{pending[0].ID, pending[1].ID}, time.Now()))
		pending, err = store.FetchPending(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)

		recent, err := store.ListRecent(ctx, 1)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, string(audit.EventAssetMinted), recent[0].Action)
	})

	t.Run("compliance records are idempotent", func(t *testing.T) {
		event := audit.Prepare(audit.Event{Action: string(audit.EventAssetMinted), Principal: alice, Subject: "asset:0"})
		require.NoError(t, store.RecordCompliance(ctx, event))
		require.NoError(t, store.RecordCompliance(ctx, event))

		n, err := store.CountCompliance(ctx, string(audit.EventAssetMinted))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		var principal sql.NullString
		require.NoError(t, pg.DB.QueryRowContext(ctx,
			`SELECT principal::text FROM audit_compliance WHERE event_id = $1`, event.ID).Scan(&principal))
		assert.Equal(t, alice.String(), principal.String)
	})
}
