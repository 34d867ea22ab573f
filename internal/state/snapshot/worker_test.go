package snapshot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticExporter struct {
	snap *Snapshot
	err  error
}

func (e staticExporter) Export(context.Context) (*Snapshot, error) {
	return e.snap, e.err
}

type recordingSaver struct {
	mu    sync.Mutex
	saved []*Snapshot
}

func (s *recordingSaver) Save(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, snap)
	return nil
}

func (s *recordingSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func TestWorker(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("snapshot once saves the export", func(t *testing.T) {
		snap := validSnapshot(t)
		saver := &recordingSaver{}
		w := NewWorker(staticExporter{snap: snap}, saver, logger)

		require.NoError(t, w.SnapshotOnce(context.Background()))
		assert.Equal(t, 1, saver.count())
	})

	t.Run("export failure is returned", func(t *testing.T) {
		boom := errors.New("boom")
		saver := &recordingSaver{}
		w := NewWorker(staticExporter{err: boom}, saver, logger)

		assert.ErrorIs(t, w.SnapshotOnce(context.Background()), boom)
		assert.Zero(t, saver.count())
	})

	t.Run("run writes a final snapshot on shutdown", func(t *testing.T) {
		saver := &recordingSaver{}
		w := NewWorker(staticExporter{snap: validSnapshot(t)}, saver, logger, WithInterval(time.Hour))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- w.Run(ctx) }()
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not stop")
		}
		assert.Equal(t, 1, saver.count())
	})
}
