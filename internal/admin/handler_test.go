package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anima/internal/state/memory"
	"anima/internal/state/snapshot"
	id "anima/pkg/domain"
	audit "anima/pkg/platform/audit"
	"anima/pkg/platform/audit/publisher"
	auditmemory "anima/pkg/platform/audit/store/memory"
	"anima/pkg/testutil"
)

const adminToken = "operator-secret"

type recordingSaver struct {
	mu    sync.Mutex
	saved []*snapshot.Snapshot
	err   error
}

func (s *recordingSaver) Save(_ context.Context, snap *snapshot.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, snap)
	return nil
}

type failingExporter struct{}

func (failingExporter) Export(context.Context) (*snapshot.Snapshot, error) {
	return nil, errors.New("export exploded")
}

func newRouter(t *testing.T, pub *publisher.Publisher, opts ...Option) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(adminToken, pub, logger, opts...).Register(r)
	return r
}

func adminRequest(t *testing.T, method, path string) *http.Request {
	req := testutil.NewRequest(t, method, path)
	req.Header.Set("X-Admin-Token", adminToken)
	return req
}

func TestSnapshotEndpoint(t *testing.T) {
	pub := publisher.NewPublisher(auditmemory.NewInMemoryStore())

	t.Run("writes the current state", func(t *testing.T) {
		saver := &recordingSaver{}
		router := newRouter(t, pub, WithSnapshots(memory.New(), saver))

		rr := testutil.DoRequest(router, adminRequest(t, http.MethodPost, "/admin/snapshot"))

		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[SnapshotResponse](t, rr)
		assert.Zero(t, resp.Payments)
		assert.Zero(t, resp.NextAssetID)
		require.Len(t, saver.saved, 1)
		assert.Equal(t, snapshot.CurrentVersion, saver.saved[0].Version)
	})

	t.Run("disabled without a snapshot store", func(t *testing.T) {
		router := newRouter(t, pub)

		rr := testutil.DoRequest(router, adminRequest(t, http.MethodPost, "/admin/snapshot"))

		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("save failure is internal", func(t *testing.T) {
		saver := &recordingSaver{err: errors.New("redis down")}
		router := newRouter(t, pub, WithSnapshots(memory.New(), saver))

		rr := testutil.DoRequest(router, adminRequest(t, http.MethodPost, "/admin/snapshot"))

		testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
		assert.NotContains(t, rr.Body.String(), "redis down")
	})

	t.Run("export failure is internal", func(t *testing.T) {
		saver := &recordingSaver{}
		router := newRouter(t, pub, WithSnapshots(failingExporter{}, saver))

		rr := testutil.DoRequest(router, adminRequest(t, http.MethodPost, "/admin/snapshot"))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Empty(t, saver.saved)
	})

	t.Run("requires the admin token", func(t *testing.T) {
		router := newRouter(t, pub, WithSnapshots(memory.New(), &recordingSaver{}))

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/admin/snapshot"))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAuditEndpoint(t *testing.T) {
	ctx := context.Background()
	pub := publisher.NewPublisher(auditmemory.NewInMemoryStore())
	alice := id.PrincipalID(uuid.New())
	for _, action := range []audit.AuditEvent{audit.EventPaymentRegistered, audit.EventAssetMinted, audit.EventAssetInteracted} {
		require.NoError(t, pub.Emit(ctx, audit.Event{Action: string(action), Principal: alice, Subject: "memo:42"}))
	}
	router := newRouter(t, pub)

	t.Run("newest first with default limit", func(t *testing.T) {
		rr := testutil.DoRequest(router, adminRequest(t, http.MethodGet, "/admin/audit"))

		testutil.AssertStatusOK(t, rr)
		resp := testutil.UnmarshalResponse[AuditListResponse](t, rr)
		require.Equal(t, 3, resp.Total)
		assert.Equal(t, string(audit.EventAssetInteracted), resp.Events[0].Action)
		assert.Equal(t, string(audit.CategoryOperations), resp.Events[0].Category)
		assert.Equal(t, alice.String(), resp.Events[2].Principal)
	})

	t.Run("limit is honored", func(t *testing.T) {
		rr := testutil.DoRequest(router, adminRequest(t, http.MethodGet, "/admin/audit?limit=1"))

		resp := testutil.UnmarshalResponse[AuditListResponse](t, rr)
		assert.Equal(t, 1, resp.Total)
	})

	t.Run("invalid limit", func(t *testing.T) {
		for _, limit := range []string{"0", "-3", "abc", "501"} {
			rr := testutil.DoRequest(router, adminRequest(t, http.MethodGet, "/admin/audit?limit="+limit))
			testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
		}
	})
}
