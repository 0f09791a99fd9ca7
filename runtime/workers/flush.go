package workers

import (
	"context"
	"log/slog"
	"time"

	"puzzle-lab/contract"
)

// FlushWorker drives the cell store's deferred persistence: every interval
// it asks the store to sync all loaded grids to disk. A failed sync is
// logged and retried on the next tick; durability at shutdown is the store's
// own final flush, not this worker's job.
type FlushWorker struct {
	log      *slog.Logger
	store    contract.ICellStore
	interval time.Duration
}

func NewFlushWorker(log *slog.Logger, store contract.ICellStore, interval time.Duration) *FlushWorker {
	return &FlushWorker{log: log, store: store, interval: interval}
}

func (w *FlushWorker) Run(ctx context.Context) error {
	w.log.Info("Starting flush worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.store.Sync(false); err != nil {
				w.log.Warn("Periodic sync failed, will retry next interval", "error", err)
			}
		}
	}
}
