package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/clinicstore/pkg/logger"
)

// Syncer makes buffered writes durable.
type Syncer interface {
	Sync() error
}

// FlushWorker periodically syncs a store running in async durability mode,
// bounding how much acknowledged data a crash can lose.
type FlushWorker struct {
	target   Syncer
	interval time.Duration
	logger   *logger.Logger
}

func NewFlushWorker(target Syncer, interval time.Duration, log *logger.Logger) *FlushWorker {
	if interval <= 0 {
		panic("flush interval must be greater than 0")
	}
	return &FlushWorker{
		target:   target,
		interval: interval,
		logger:   log,
	}
}

// Start blocks until ctx is done, then performs a final sync.
func (w *FlushWorker) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Starting flush worker", "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down flush worker")
			return w.flush()
		case <-ticker.C:
			if err := w.flush(); err != nil {
				w.logger.Error(err, "Failed to flush store")
			}
		}
	}
}

func (w *FlushWorker) flush() error {
	return w.target.Sync()
}
