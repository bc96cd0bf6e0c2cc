package sched

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/usecase"
)

// PollWorker runs the sweep on a fixed cadence. A tick that finds the
// previous sweep still running is skipped (single-flight), so a slow
// CRM never stacks overlapping sweeps.
type PollWorker struct {
	sweep    usecase.SweepUseCase
	interval time.Duration
	running  atomic.Bool
}

func NewPollWorker(sweep usecase.SweepUseCase, interval time.Duration) *PollWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PollWorker{sweep: sweep, interval: interval}
}

// Run loops until ctx is cancelled. Call in its own goroutine.
func (w *PollWorker) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	log.Printf("[poll-worker] started with interval %s", w.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[poll-worker] context cancelled; stopping")
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PollWorker) tick(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		log.Println("[poll-worker] previous sweep still running; skipping tick")
		return
	}
	defer w.running.Store(false)

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	checked, notified := w.sweep.Sweep(runCtx)
	if notified > 0 {
		log.Printf("[poll-worker] checked %d orders, sent %d notifications", checked, notified)
	}
}
