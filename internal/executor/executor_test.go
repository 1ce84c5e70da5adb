package executor

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opsim/simulator/internal/metadata"
	"github.com/opsim/simulator/internal/process"
	"github.com/opsim/simulator/internal/resource"
	"github.com/opsim/simulator/internal/scheduler"
	"github.com/opsim/simulator/internal/simlog"
)

type fakeClock struct{}

func (fakeClock) Elapsed() time.Duration { return 0 }

type fakeMemory struct {
	mu    sync.Mutex
	count int
}

func (m *fakeMemory) Allocate() (int, uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count++
	return m.count, uint32(m.count * 1024)
}

func (m *fakeMemory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count = 0
}

func newTestExecutor(policy scheduler.Policy, quantum int) (*Executor, *scheduler.Scheduler, *bytes.Buffer) {
	sched := scheduler.New(policy, quantum)
	devices := resource.New(1, 1)
	var buf bytes.Buffer
	logger := simlog.New(simlog.Monitor, &buf, nil, fakeClock{})
	ex := New(sched, devices, logger, &fakeMemory{})
	return ex, sched, &buf
}

func ins(code metadata.Code, descriptor string, totalMs int) metadata.Instruction {
	return metadata.Instruction{Code: code, Descriptor: descriptor, TotalMs: totalMs}
}

// TestRunToCompletionTerminatesProcess verifies a process with no
// preemption runs every instruction and ends TERMINATED.
func TestRunToCompletionTerminatesProcess(t *testing.T) {
	ex, _, buf := newTestExecutor(scheduler.FIFO, 0)

	p := &process.Process{
		PID: 1,
		Instructions: []metadata.Instruction{
			ins(metadata.Application, "begin", 0),
			ins(metadata.Processor, "run", 2),
			ins(metadata.Application, "finish", 0),
		},
		PCB: process.NewPCB(1),
	}

	yielded, err := ex.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if yielded {
		t.Fatal("expected Run to complete without yielding")
	}
	if p.PCB.State() != process.Terminated {
		t.Errorf("State = %v, want TERMINATED", p.PCB.State())
	}
	out := buf.String()
	for _, want := range []string{"preparing process 1", "starting process 1", "End process 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

// TestRunHonorsExternalInterrupt verifies a P{run} instruction aborts and
// requeues the process as soon as InterruptPending is observed.
func TestRunHonorsExternalInterrupt(t *testing.T) {
	ex, sched, _ := newTestExecutor(scheduler.FIFO, 0)

	p := &process.Process{
		PID: 1,
		Instructions: []metadata.Instruction{
			ins(metadata.Application, "begin", 0),
			ins(metadata.Processor, "run", 50),
			ins(metadata.Application, "finish", 0),
		},
		PCB: process.NewPCB(1),
	}

	go func() {
		time.Sleep(5 * time.Millisecond)
		p.PCB.Interrupt()
	}()

	yielded, err := ex.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !yielded {
		t.Fatal("expected Run to yield after interrupt")
	}
	if p.PCB.SavedRunningTimeMs() <= 0 {
		t.Errorf("SavedRunningTimeMs = %v, want > 0", p.PCB.SavedRunningTimeMs())
	}
	if sched.ReadyLen() != 1 {
		t.Errorf("ReadyLen = %d, want 1 (requeued)", sched.ReadyLen())
	}
}

// TestRunYieldsAtRRQuantum verifies RR requeues a still-running process
// once its quantum is exhausted, without requiring an external interrupt.
func TestRunYieldsAtRRQuantum(t *testing.T) {
	ex, sched, _ := newTestExecutor(scheduler.RR, 5)

	p := &process.Process{
		PID: 1,
		Instructions: []metadata.Instruction{
			ins(metadata.Application, "begin", 0),
			ins(metadata.Processor, "run", 20),
			ins(metadata.Application, "finish", 0),
		},
		PCB: process.NewPCB(1),
	}

	yielded, err := ex.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !yielded {
		t.Fatal("expected Run to yield at quantum boundary")
	}
	if sched.ReadyLen() != 1 {
		t.Errorf("ReadyLen = %d, want 1 (requeued)", sched.ReadyLen())
	}
	if p.PCB.NextInstructionIndex() != 1 {
		t.Errorf("NextInstructionIndex = %d, want 1 (resume at P{run})", p.PCB.NextInstructionIndex())
	}

	// Resume: remaining budget is 15ms, under one more 5ms quantum it
	// yields again rather than finishing.
	yielded, err = ex.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !yielded {
		t.Fatal("expected second Run to yield again")
	}
}

// TestRunMemoryAllocateRecordsAddress verifies M{allocate} records the
// cursor's block count and address onto the PCB.
func TestRunMemoryAllocateRecordsAddress(t *testing.T) {
	ex, _, buf := newTestExecutor(scheduler.FIFO, 0)

	p := &process.Process{
		PID: 1,
		Instructions: []metadata.Instruction{
			ins(metadata.Application, "begin", 0),
			ins(metadata.Memory, "allocate", 1),
			ins(metadata.Application, "finish", 0),
		},
		PCB: process.NewPCB(1),
	}

	if _, err := ex.Run(context.Background(), p); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if p.PCB.BlockCount() != 1 {
		t.Errorf("BlockCount = %d, want 1", p.PCB.BlockCount())
	}
	if p.PCB.LastAddress() != 1024 {
		t.Errorf("LastAddress = %d, want 1024", p.PCB.LastAddress())
	}
	if out := buf.String(); !strings.Contains(out, "memory allocated at 0x00000400") {
		t.Errorf("log output missing lowercase hex address line:\n%s", out)
	}
}

// TestRunDeviceIOReleasesLease verifies an I{hard drive} instruction
// acquires and releases the HDD pool so a subsequent process can acquire
// it too.
func TestRunDeviceIOReleasesLease(t *testing.T) {
	ex, _, buf := newTestExecutor(scheduler.FIFO, 0)

	p := &process.Process{
		PID: 1,
		Instructions: []metadata.Instruction{
			ins(metadata.Application, "begin", 0),
			ins(metadata.Input, "hard drive", 1),
			ins(metadata.Application, "finish", 0),
		},
		PCB: process.NewPCB(1),
	}

	if _, err := ex.Run(context.Background(), p); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "start hard drive input on HDD 0") {
		t.Errorf("log output missing HDD start line:\n%s", out)
	}
	if !strings.Contains(out, "end hard drive input") {
		t.Errorf("log output missing HDD end line:\n%s", out)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	lease, err := ex.devices.Acquire(ctx, resource.HDD)
	if err != nil {
		t.Fatalf("HDD still held after Run: %v", err)
	}
	ex.devices.Release(lease)
}
