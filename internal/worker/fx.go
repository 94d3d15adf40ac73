package worker

import (
	"context"
	"log/slog"
	"time"
)

// RateRefresher defines the interface for fetching and storing currency rates.
type RateRefresher interface {
	FetchAndStoreRates(ctx context.Context) error
}

// FXWorker periodically refreshes the currency rate table.
type FXWorker struct {
	refresher RateRefresher
	interval  time.Duration
}

// NewFXWorker creates a new FXWorker.
func NewFXWorker(refresher RateRefresher, interval time.Duration) *FXWorker {
	return &FXWorker{
		refresher: refresher,
		interval:  interval,
	}
}

func (w *FXWorker) refresh(ctx context.Context, phase string) {
	if err := w.refresher.FetchAndStoreRates(ctx); err != nil {
		slog.Error("FXWorker: refresh failed", "phase", phase, "error", err)
		return
	}
	slog.Info("FXWorker: refresh completed", "phase", phase)
}

// Run starts the FX worker loop. It blocks until the context is cancelled.
func (w *FXWorker) Run(ctx context.Context) {
	slog.Info("FXWorker: starting", "interval", w.interval)

	// Refresh immediately on startup
	w.refresh(ctx, "initial")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("FXWorker: shutting down")
			return
		case <-ticker.C:
			w.refresh(ctx, "tick")
		}
	}
}
