package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type mockRefresher struct {
	callCount atomic.Int32
	err       error
}

func (m *mockRefresher) FetchAndStoreRates(_ context.Context) error {
	m.callCount.Add(1)
	return m.err
}

func TestFXWorkerRunsAndShutdown(t *testing.T) {
	mock := &mockRefresher{}
	w := NewFXWorker(mock, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	// Should have run at least the initial refresh + some ticks
	if got := mock.callCount.Load(); got < 2 {
		t.Errorf("call count = %d, want >= 2", got)
	}
}

func TestFXWorkerKeepsRunningAfterError(t *testing.T) {
	mock := &mockRefresher{err: errors.New("provider down")}
	w := NewFXWorker(mock, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := mock.callCount.Load(); got < 2 {
		t.Errorf("call count = %d, want retries after failure", got)
	}
}
