// Package resource implements the device pools the Executor acquires and
// releases around I/O instructions: counting semaphores for
// hard drives and projectors, mutual-exclusion locks for keyboard, scanner,
// and monitor (spec §4.4).
package resource

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Kind identifies one of the five device pools the Resource Manager
// arbitrates.
type Kind int

const (
	HDD Kind = iota
	Projector
	Keyboard
	Scanner
	Monitor
)

func (k Kind) String() string {
	switch k {
	case HDD:
		return "hard drive"
	case Projector:
		return "projector"
	case Keyboard:
		return "keyboard"
	case Scanner:
		return "scanner"
	case Monitor:
		return "monitor"
	default:
		return "unknown device"
	}
}

// Lease identifies the device kind and the instance index a process was
// granted. Release returns capacity to the Kind's pool; it does not track
// individual instance slots.
type Lease struct {
	Kind     Kind
	Instance int
}

// pool is a single device kind's bounded capacity plus a running counter of
// grants, used to compute the `used mod capacity` instance index per spec
// §4.4.
type pool struct {
	capacity int
	sem      *semaphore.Weighted // nil for mutex-only kinds
	mu       *sync.Mutex         // non-nil for mutex-only kinds

	usedMu sync.Mutex // guards used
	used   int
}

// Manager owns every device pool for one simulation run. It is grounded on
// the teacher's coprocessor_manager.go pattern of a small set of named
// worker slots guarded by a manager-level struct, generalized here to
// semaphore-backed pools sized from Config.
type Manager struct {
	pools map[Kind]*pool
}

// New builds a Manager with HDD/projector pools sized by hddQuantity and
// projQuantity, and capacity-1 pools for keyboard, scanner, and monitor.
func New(hddQuantity, projQuantity int) *Manager {
	m := &Manager{pools: make(map[Kind]*pool)}
	m.pools[HDD] = &pool{capacity: hddQuantity, sem: semaphore.NewWeighted(int64(hddQuantity))}
	m.pools[Projector] = &pool{capacity: projQuantity, sem: semaphore.NewWeighted(int64(projQuantity))}
	m.pools[Keyboard] = &pool{capacity: 1, mu: &sync.Mutex{}}
	m.pools[Scanner] = &pool{capacity: 1, mu: &sync.Mutex{}}
	m.pools[Monitor] = &pool{capacity: 1, mu: &sync.Mutex{}}
	return m
}

// Acquire blocks until a device instance of the given kind is available.
// The caller transitions its process to WAITING before calling this and
// back to RUNNING on return (spec §4.4); ctx cancellation unblocks a
// pending acquire without granting the lease. The Executor passes the
// simulation's run context, so a scheduler interrupt does not cancel a
// pending acquire.
func (m *Manager) Acquire(ctx context.Context, kind Kind) (Lease, error) {
	p, ok := m.pools[kind]
	if !ok {
		return Lease{}, fmt.Errorf("resource: unknown device kind %v", kind)
	}
	if p.sem != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return Lease{}, fmt.Errorf("resource: acquire %v: %w", kind, err)
		}
	} else {
		if err := acquireMutexCtx(ctx, p.mu); err != nil {
			return Lease{}, fmt.Errorf("resource: acquire %v: %w", kind, err)
		}
	}

	p.usedMu.Lock()
	instance := p.used % p.capacity
	p.used++
	p.usedMu.Unlock()

	return Lease{Kind: kind, Instance: instance}, nil
}

// Release returns a previously acquired lease to its pool. Safe to call
// exactly once per successful Acquire; the Executor calls this on every
// exit path (normal completion, preemption, or cancellation) per spec §5.
func (m *Manager) Release(lease Lease) {
	p, ok := m.pools[lease.Kind]
	if !ok {
		return
	}
	if p.sem != nil {
		p.sem.Release(1)
		return
	}
	p.mu.Unlock()
}

// acquireMutexCtx takes mu, respecting ctx cancellation. sync.Mutex has no
// native context support, so a goroutine takes the lock and closes a
// channel when it has it; if ctx ends first, a second goroutine unlocks
// the mutex as soon as the first one obtains it.
func acquireMutexCtx(ctx context.Context, mu *sync.Mutex) error {
	done := make(chan struct{})
	go func() {
		mu.Lock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		go func() {
			<-done
			mu.Unlock()
		}()
		return ctx.Err()
	}
}
