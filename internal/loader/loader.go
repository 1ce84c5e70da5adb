// Package loader runs the cooperative producer that moves processes from
// waiting to ready on a fixed admission interval (spec §4.6), grounded on
// the teacher's debug_monitor.go ticker-driven polling loop.
package loader

import (
	"context"
	"time"

	"github.com/opsim/simulator/internal/scheduler"
)

// DefaultIntervalMs is the admission interval internal/sim passes to New,
// and the one New uses when given a non-positive interval (spec §4.6).
const DefaultIntervalMs = 100

// Loader periodically admits one waiting process to ready until waiting is
// empty, then stops.
type Loader struct {
	sched      *scheduler.Scheduler
	intervalMs int
	onAdmit    func()
}

// New creates a Loader driving sched on the given interval. onAdmit, if
// non-nil, is invoked after every successful admission — internal/sim uses
// it to log "process admitted to ready queue".
func New(sched *scheduler.Scheduler, intervalMs int, onAdmit func()) *Loader {
	if intervalMs <= 0 {
		intervalMs = DefaultIntervalMs
	}
	return &Loader{sched: sched, intervalMs: intervalMs, onAdmit: onAdmit}
}

// Run admits the first waiting process immediately, then one more every
// interval, until waiting is empty or ctx is canceled. It blocks the
// calling goroutine; internal/sim runs it concurrently with the executor
// dispatch loop.
func (l *Loader) Run(ctx context.Context) {
	interval := time.Duration(l.intervalMs) * time.Millisecond

	for l.sched.WaitingLen() > 0 {
		if admitted, _ := l.sched.Admit(); admitted != nil && l.onAdmit != nil {
			l.onAdmit()
		}
		if l.sched.WaitingLen() == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
