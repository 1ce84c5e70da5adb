// Package scheduler owns the waiting/ready/blocked queues and applies the
// configured ordering policy to the ready queue (spec §4.3).
package scheduler

import (
	"sort"
	"sync"

	"github.com/opsim/simulator/internal/config"
	"github.com/opsim/simulator/internal/process"
)

// Policy identifies one of the five supported ready-queue orderings.
type Policy int

const (
	FIFO Policy = iota + 1
	PS
	SJF
	STR
	RR
)

// PolicyFromConfig maps a config.SchedulingCode to its Policy.
func PolicyFromConfig(c config.SchedulingCode) Policy {
	switch c {
	case config.FIFO:
		return FIFO
	case config.PS:
		return PS
	case config.SJF:
		return SJF
	case config.STR:
		return STR
	case config.RR:
		return RR
	default:
		return FIFO
	}
}

// Scheduler holds the three queues named in spec §3 and mutates them under
// a single lock held only across the mutation itself, never across a
// blocking wait — grounded on the teacher's coprocessor_manager.go holding
// its manager lock only across shadow-register mutation, not across
// worker I/O.
type Scheduler struct {
	mu sync.Mutex

	policy  Policy
	quantum int
	waiting []*process.Process
	ready   []*process.Process
	blocked []*process.Process

	// running is the process most recently handed out by DispatchNext
	// that has neither terminated nor been requeued yet — the STR
	// preemption target, since a running process is not itself sitting
	// in ready.
	running *process.Process
}

// New creates a Scheduler for the given policy. quantumMs is only
// meaningful under RR.
func New(policy Policy, quantumMs int) *Scheduler {
	return &Scheduler{policy: policy, quantum: quantumMs}
}

func (s *Scheduler) Policy() Policy { return s.policy }

func (s *Scheduler) Quantum() int { return s.quantum }

// SeedWaiting populates the waiting queue at simulation start, in process
// order (pid ascending).
func (s *Scheduler) SeedWaiting(procs []*process.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiting = append(s.waiting, procs...)
}

// WaitingLen reports how many processes remain in waiting.
func (s *Scheduler) WaitingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waiting)
}

// ReadyLen reports how many processes are currently ready.
func (s *Scheduler) ReadyLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ready)
}

// Admit moves the head of waiting into ready, applying the policy's
// admission ordering rule (spec §4.3). Under STR, the new arrival's
// estimatedTimeRemaining is compared against whichever process is
// currently dispatched (or, if none is, the current ready head); if the
// arrival is strictly shorter, that process is interrupted. Returns the
// admitted process (or nil if waiting was empty) and the preempted
// process, if any.
func (s *Scheduler) Admit() (admitted *process.Process, preempt *process.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.waiting) == 0 {
		return nil, nil
	}

	var previousReadyHead *process.Process
	if len(s.ready) > 0 {
		previousReadyHead = s.ready[0]
	}

	admitted = s.waiting[0]
	s.waiting = s.waiting[1:]
	admitted.PCB.SetState(process.Ready)
	s.ready = append(s.ready, admitted)

	s.reorderLocked()

	for i, p := range s.ready {
		p.PCB.SetQueueIndex(i)
	}

	if s.policy == STR {
		candidate := s.running
		if candidate == nil {
			candidate = previousReadyHead
		}
		if candidate != nil && candidate != admitted &&
			admitted.PCB.EstimatedTimeRemaining() < candidate.PCB.EstimatedTimeRemaining() {
			candidate.PCB.Interrupt()
			preempt = candidate
		}
	}
	return admitted, preempt
}

// reorderLocked applies the policy's ready-queue ordering. Callers must
// hold mu.
func (s *Scheduler) reorderLocked() {
	switch s.policy {
	case PS:
		sort.SliceStable(s.ready, func(i, j int) bool {
			ci, cj := s.ready[i].IOCount(), s.ready[j].IOCount()
			if ci != cj {
				return ci > cj
			}
			return s.ready[i].PID < s.ready[j].PID
		})
	case SJF:
		sort.SliceStable(s.ready, func(i, j int) bool {
			ei, ej := s.ready[i].EstimatedTotalMs, s.ready[j].EstimatedTotalMs
			if ei != ej {
				return ei < ej
			}
			return s.ready[i].PID < s.ready[j].PID
		})
	case STR:
		sort.SliceStable(s.ready, func(i, j int) bool {
			ei, ej := s.ready[i].PCB.EstimatedTimeRemaining(), s.ready[j].PCB.EstimatedTimeRemaining()
			if ei != ej {
				return ei < ej
			}
			return s.ready[i].PID < s.ready[j].PID
		})
	case FIFO, RR:
		// append-only FIFO ring; no re-sort.
	}
}

// ReorderOnCompletion re-applies the STR ordering after a device
// completion changes a process's estimatedTimeRemaining (spec §4.3: "every
// device-completion"), returning the previous head if a preemption should
// be raised.
func (s *Scheduler) ReorderOnCompletion() (preempt *process.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.policy != STR || len(s.ready) == 0 {
		return nil
	}
	previousHead := s.ready[0]
	s.reorderLocked()
	if s.ready[0] != previousHead {
		previousHead.PCB.Interrupt()
		return previousHead
	}
	return nil
}

// DispatchNext pops and returns the head of ready, or nil if ready is
// empty. The dispatch rule never reorders mid-flight for non-preemptive
// policies (spec §4.3); this method performs no reordering of its own.
func (s *Scheduler) DispatchNext() *process.Process {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ready) == 0 {
		return nil
	}
	p := s.ready[0]
	s.ready = s.ready[1:]
	for i, q := range s.ready {
		q.PCB.SetQueueIndex(i)
	}
	s.running = p
	return p
}

// Requeue appends a preempted process to ready and re-applies the policy's
// ordering, so it stays at the tail under FIFO and RR (RR's rotation rule)
// and is re-ranked under PS, SJF and STR. It is the generic reinsertion
// path used when any policy's running process is interrupted mid-flight
// per spec §4.5.
func (s *Scheduler) Requeue(p *process.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running == p {
		s.running = nil
	}
	p.PCB.SetState(process.Ready)
	s.ready = append(s.ready, p)
	s.reorderLocked()
	for i, q := range s.ready {
		q.PCB.SetQueueIndex(i)
	}
}

// FinishRunning clears the running slot after a process reaches
// TERMINATED, so a subsequent Admit no longer considers it an STR
// preemption target.
func (s *Scheduler) FinishRunning(p *process.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == p {
		s.running = nil
	}
}

// Block moves a process to the blocked-by-device queue.
func (s *Scheduler) Block(p *process.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.PCB.SetState(process.Waiting)
	s.blocked = append(s.blocked, p)
}

// Unblock removes a process from the blocked-by-device queue after its
// device operation completes. It does not put the process into ready.
func (s *Scheduler) Unblock(p *process.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, q := range s.blocked {
		if q == p {
			s.blocked = append(s.blocked[:i], s.blocked[i+1:]...)
			return
		}
	}
}
