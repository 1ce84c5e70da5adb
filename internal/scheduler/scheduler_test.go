package scheduler

import (
	"testing"

	"github.com/opsim/simulator/internal/metadata"
	"github.com/opsim/simulator/internal/process"
)

func proc(pid, estimatedMs, ioCount int) *process.Process {
	var instructions []metadata.Instruction
	for i := 0; i < ioCount; i++ {
		instructions = append(instructions, metadata.Instruction{Code: metadata.Input, Descriptor: "keyboard"})
	}
	p := &process.Process{PID: pid, Instructions: instructions, EstimatedTotalMs: estimatedMs, PCB: process.NewPCB(pid)}
	p.PCB.SetEstimatedTimeRemaining(float64(estimatedMs))
	return p
}

// TestFIFOPreservesAdmissionOrder verifies property 3 from spec §8: under
// FIFO, dispatch order equals admission order.
func TestFIFOPreservesAdmissionOrder(t *testing.T) {
	s := New(FIFO, 0)
	s.SeedWaiting([]*process.Process{proc(1, 100, 0), proc(2, 50, 0), proc(3, 10, 0)})

	for i := 0; i < 3; i++ {
		s.Admit()
	}

	for _, want := range []int{1, 2, 3} {
		got := s.DispatchNext()
		if got == nil || got.PID != want {
			t.Fatalf("DispatchNext = %v, want pid %d", got, want)
		}
	}
}

// TestPSRanksByIOCountDescending verifies property 4 from spec §8: under
// PS, ready order is non-increasing in I/O instruction count, ties by pid.
func TestPSRanksByIOCountDescending(t *testing.T) {
	s := New(PS, 0)
	s.SeedWaiting([]*process.Process{proc(1, 0, 1), proc(2, 0, 3), proc(3, 0, 2), proc(4, 0, 3)})

	for i := 0; i < 4; i++ {
		s.Admit()
	}

	want := []int{2, 4, 3, 1}
	for _, w := range want {
		got := s.DispatchNext()
		if got == nil || got.PID != w {
			t.Fatalf("DispatchNext = %v, want pid %d", got, w)
		}
	}
}

// TestSJFRanksByEstimatedTotalAscending verifies property 5 from spec §8:
// under SJF, dispatch order is non-decreasing in estimatedTotalMs.
func TestSJFRanksByEstimatedTotalAscending(t *testing.T) {
	s := New(SJF, 0)
	s.SeedWaiting([]*process.Process{proc(1, 300, 0), proc(2, 100, 0), proc(3, 200, 0)})

	for i := 0; i < 3; i++ {
		s.Admit()
	}

	want := []int{2, 3, 1}
	for _, w := range want {
		got := s.DispatchNext()
		if got == nil || got.PID != w {
			t.Fatalf("DispatchNext = %v, want pid %d", got, w)
		}
	}
}

// TestSTRPreemptsOnShorterAdmission verifies STR raises an interrupt on the
// previous ready head when a shorter process is admitted (spec §4.3).
func TestSTRPreemptsOnShorterAdmission(t *testing.T) {
	s := New(STR, 0)
	s.SeedWaiting([]*process.Process{proc(1, 500, 0)})
	admitted, preempt := s.Admit()
	if admitted == nil || admitted.PID != 1 {
		t.Fatalf("first Admit = %v, want pid 1", admitted)
	}
	if preempt != nil {
		t.Fatalf("unexpected preempt on first admission: %v", preempt)
	}

	s.SeedWaiting([]*process.Process{proc(2, 50, 0)})
	admitted, preempt = s.Admit()
	if admitted == nil || admitted.PID != 2 {
		t.Fatalf("second Admit = %v, want pid 2", admitted)
	}
	if preempt == nil || preempt.PID != 1 {
		t.Fatalf("expected preempt of pid 1, got %v", preempt)
	}
	if !preempt.PCB.InterruptPending() {
		t.Error("expected InterruptPending on preempted process")
	}
}

// TestSTRNoPreemptOnLongerAdmission verifies STR does not raise an
// interrupt when the new process is not shorter than the current head.
func TestSTRNoPreemptOnLongerAdmission(t *testing.T) {
	s := New(STR, 0)
	s.SeedWaiting([]*process.Process{proc(1, 50, 0)})
	s.Admit()

	s.SeedWaiting([]*process.Process{proc(2, 500, 0)})
	_, preempt := s.Admit()
	if preempt != nil {
		t.Fatalf("unexpected preempt: %v", preempt)
	}
}

// TestRequeueAppendsToTailUnderRR verifies RR's rotation rule: a preempted
// process returns to the tail of ready, not the head.
func TestRequeueAppendsToTailUnderRR(t *testing.T) {
	s := New(RR, 10)
	s.SeedWaiting([]*process.Process{proc(1, 100, 0), proc(2, 100, 0)})
	s.Admit()
	s.Admit()

	head := s.DispatchNext()
	if head.PID != 1 {
		t.Fatalf("DispatchNext = %v, want pid 1", head)
	}
	s.Requeue(head)

	next := s.DispatchNext()
	if next.PID != 2 {
		t.Fatalf("DispatchNext = %v, want pid 2", next)
	}
	last := s.DispatchNext()
	if last.PID != 1 {
		t.Fatalf("DispatchNext = %v, want pid 1 (requeued to tail)", last)
	}
}

// TestDispatchNextEmptyReturnsNil verifies the empty-ready case returns nil
// without panicking.
func TestDispatchNextEmptyReturnsNil(t *testing.T) {
	s := New(FIFO, 0)
	if got := s.DispatchNext(); got != nil {
		t.Fatalf("DispatchNext on empty ready = %v, want nil", got)
	}
}

// TestReorderOnCompletionPreemptsWhenRemainingTimeDrops verifies spec §4.3's
// "re-sort ... on every device-completion": once a device completion lowers
// a waiting process's estimatedTimeRemaining below the current ready head's,
// ReorderOnCompletion must re-sort and interrupt the displaced head.
func TestReorderOnCompletionPreemptsWhenRemainingTimeDrops(t *testing.T) {
	s := New(STR, 0)
	s.SeedWaiting([]*process.Process{proc(1, 100, 0), proc(2, 200, 0)})
	s.Admit()
	s.Admit()

	head := s.DispatchNext()
	if head.PID != 1 {
		t.Fatalf("DispatchNext = %v, want pid 1", head)
	}

	second := s.ready[0]
	if second.PID != 2 {
		t.Fatalf("ready head = %v, want pid 2", second)
	}
	s.Requeue(head)

	second.PCB.SetEstimatedTimeRemaining(5)

	preempt := s.ReorderOnCompletion()
	if preempt == nil || preempt.PID != 1 {
		t.Fatalf("ReorderOnCompletion preempt = %v, want pid 1", preempt)
	}
	if !preempt.PCB.InterruptPending() {
		t.Error("expected InterruptPending on displaced head")
	}
	if s.ready[0].PID != 2 {
		t.Fatalf("ready head after reorder = %v, want pid 2", s.ready[0])
	}
}

// TestReorderOnCompletionNoChangeReturnsNil verifies ReorderOnCompletion is
// a no-op when the re-sort does not change the ready head.
func TestReorderOnCompletionNoChangeReturnsNil(t *testing.T) {
	s := New(STR, 0)
	s.SeedWaiting([]*process.Process{proc(1, 50, 0), proc(2, 200, 0)})
	s.Admit()
	s.Admit()

	if preempt := s.ReorderOnCompletion(); preempt != nil {
		t.Fatalf("unexpected preempt: %v", preempt)
	}
}
