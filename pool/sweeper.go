// File: pool/sweeper.go
// Author: momentics <momentics@gmail.com>
//
// Background cleanup loop. Wakes on a fixed interval, snapshots the bucket
// set under the map lock, then visits bucket locks one at a time so a
// thread registering a new shape can never deadlock against the sweep.

package pool

import (
	"sync/atomic"
	"time"
)

type sweeper struct {
	pool     *Pool
	interval atomic.Int64 // nanoseconds
	started  atomic.Bool
	stopped  atomic.Bool
	stopCh   chan struct{}
	done     chan struct{}
}

func newSweeper(p *Pool, interval time.Duration) *sweeper {
	s := &sweeper{
		pool:   p,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.interval.Store(int64(interval))
	return s
}

// setInterval changes the sweep cadence. The loop re-arms its ticker on the
// next wake, so the change takes effect after at most one old interval.
func (s *sweeper) setInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	s.interval.Store(int64(d))
}

func (s *sweeper) currentInterval() time.Duration {
	return time.Duration(s.interval.Load())
}

func (s *sweeper) start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run()
}

func (s *sweeper) run() {
	defer close(s.done)
	cur := s.currentInterval()
	ticker := time.NewTicker(cur)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.pool.TriggerCleanup()
			if d := s.currentInterval(); d != cur {
				cur = d
				ticker.Reset(d)
			}
		case <-s.stopCh:
			return
		}
	}
}

// stop signals the loop and joins it. Idempotent, and a no-op join when the
// loop was never started.
func (s *sweeper) stop() {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}
	close(s.stopCh)
	if s.started.Load() {
		<-s.done
	}
}
