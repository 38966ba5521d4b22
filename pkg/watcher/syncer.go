package watcher

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/orderwatch/pkg/util"
)

// Syncer drives SyncFreshOrders at a fixed cadence. Overlap policy is
// skip-if-running: chunk independence makes concurrent sweeps safe but
// wasteful, so a tick that lands while a sweep is still going is dropped.
// A failed sweep is logged and the loop keeps ticking; the next cycle is
// the retry.
type Syncer struct {
	watcher  *Watcher
	interval time.Duration
	clock    util.Clock
	log      *zap.SugaredLogger

	running atomic.Bool
	skipped atomic.Uint64
}

func NewSyncer(w *Watcher, interval time.Duration, clock util.Clock, lg *zap.SugaredLogger) *Syncer {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Syncer{watcher: w, interval: interval, clock: clock, log: lg}
}

// SkippedTicks reports how many ticks were dropped because a sweep was
// still in flight.
func (s *Syncer) SkippedTicks() uint64 { return s.skipped.Load() }

// Run blocks until ctx is done.
func (s *Syncer) Run(ctx context.Context) {
	s.log.Infow("syncer_started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("syncer_stopped")
			return
		case <-s.clock.After(s.interval):
		}

		if !s.running.CompareAndSwap(false, true) {
			s.skipped.Add(1)
			s.log.Debugw("sync_tick_skipped", "skipped_total", s.skipped.Load())
			continue
		}
		go func() {
			defer s.running.Store(false)
			start := s.clock.Now()
			if err := s.watcher.SyncFreshOrders(ctx); err != nil {
				s.log.Errorw("sync_failed", "err", err)
				return
			}
			s.log.Debugw("sync_completed", "elapsed", s.clock.Now().Sub(start))
		}()
	}
}
