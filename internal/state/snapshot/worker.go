package snapshot

import (
	"context"
	"log/slog"
	"time"
)

const defaultInterval = 30 * time.Second

// Saver persists snapshots.
type Saver interface {
	Save(ctx context.Context, snap *Snapshot) error
}

// Worker periodically exports live state and saves it. A final snapshot is
// written when Run's context is cancelled.
type Worker struct {
	exporter Exporter
	saver    Saver
	logger   *slog.Logger
	interval time.Duration
}

type Option func(*Worker)

func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func NewWorker(exporter Exporter, saver Saver, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		exporter: exporter,
		saver:    saver,
		logger:   logger,
		interval: defaultInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run snapshots on every tick until ctx is cancelled, then takes one last
// snapshot with a short detached deadline.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := w.SnapshotOnce(final); err != nil {
				w.logger.ErrorContext(final, "final snapshot failed", "error", err)
				return err
			}
			return ctx.Err()
		case <-ticker.C:
			if err := w.SnapshotOnce(ctx); err != nil && ctx.Err() == nil {
				w.logger.WarnContext(ctx, "snapshot failed", "error", err)
			}
		}
	}
}

// SnapshotOnce exports and saves the current state.
func (w *Worker) SnapshotOnce(ctx context.Context) error {
	snap, err := w.exporter.Export(ctx)
	if err != nil {
		return err
	}
	if err := w.saver.Save(ctx, snap); err != nil {
		return err
	}
	w.logger.DebugContext(ctx, "snapshot saved",
		"payments", len(snap.Payments),
		"assets", len(snap.Assets),
		"next_asset_id", snap.NextAssetID,
	)
	return nil
}
