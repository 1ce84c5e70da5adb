// Package executor drives a single Process's instruction stream against
// the Resource Manager and Logger, honoring scheduler-issued preemption
// (spec §4.5). It is grounded on the teacher's program_executor.go
// dispatch-loop idiom of a small per-run struct driving a instruction
// sequence against shared peripherals under explicit state transitions.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/opsim/simulator/internal/metadata"
	"github.com/opsim/simulator/internal/process"
	"github.com/opsim/simulator/internal/resource"
	"github.com/opsim/simulator/internal/scheduler"
	"github.com/opsim/simulator/internal/simlog"
)

// Executor runs one process at a time on behalf of the Simulation
// dispatch loop. It holds no queue state of its own; the Scheduler owns
// admission and ordering.
type Executor struct {
	sched   *scheduler.Scheduler
	devices *resource.Manager
	log     *simlog.Logger
	memory  MemoryAllocator
}

// New builds an Executor wired to the given Scheduler, device Manager,
// Logger, and memory cursor.
func New(sched *scheduler.Scheduler, devices *resource.Manager, log *simlog.Logger, memory MemoryAllocator) *Executor {
	return &Executor{sched: sched, devices: devices, log: log, memory: memory}
}

// HandleSystemBegin processes the program-wide S{begin} bracket, emitted
// once before any process is dispatched (spec §4.5).
func (e *Executor) HandleSystemBegin() {
	e.log.Log("Simulator program starting")
}

// HandleSystemFinish processes the program-wide S{finish} bracket,
// emitted once after every process has terminated, resetting the shared
// memory cursor.
func (e *Executor) HandleSystemFinish() {
	e.log.Log("Simulator program ending")
	e.memory.Reset()
}

// Run executes p's instructions in program order starting from its
// resume point, dispatching each to its handler (spec §4.5). It returns
// yielded=true if the process was preempted or hit its RR quantum and has
// been requeued by the Scheduler; the caller should dispatch the next
// ready process. yielded=false means p ran to A{finish} and its PCB is
// TERMINATED.
func (e *Executor) Run(ctx context.Context, p *process.Process) (yielded bool, err error) {
	idx := p.PCB.NextInstructionIndex()
	for idx < len(p.Instructions) {
		ins := p.Instructions[idx]

		switch {
		case ins.Code == metadata.Application && ins.Descriptor == "begin":
			e.handleApplicationBegin(p)

		case ins.Code == metadata.Application && ins.Descriptor == "finish":
			e.handleApplicationFinish(p)
			p.PCB.SetNextInstructionIndex(idx + 1)
			return false, nil

		case ins.Code == metadata.Processor && ins.Descriptor == "run":
			if done := e.runProcessor(ctx, p, ins); !done {
				p.PCB.SetNextInstructionIndex(idx)
				e.sched.Requeue(p)
				return true, nil
			}

		case ins.Code == metadata.Memory:
			e.runMemory(ctx, p, ins)

		case ins.Code == metadata.Input || ins.Code == metadata.Output:
			e.runDeviceIO(ctx, p, ins)

		default:
			return false, fmt.Errorf("%w: %v", ErrUnknownDescriptor, ins)
		}

		idx++
		p.PCB.SetNextInstructionIndex(idx)

		if p.PCB.InterruptPending() {
			p.PCB.AcknowledgeInterrupt()
			e.sched.Requeue(p)
			return true, nil
		}
	}
	return false, nil
}

func (e *Executor) handleApplicationBegin(p *process.Process) {
	e.log.Log(fmt.Sprintf("preparing process %d", p.PID))
	e.log.Log(fmt.Sprintf("starting process %d", p.PID))
	p.PCB.SetState(process.Running)
	if p.PCB.StartTime() == 0 {
		p.PCB.SetStartTime(float64(time.Now().UnixNano()) / 1e9)
	}
}

func (e *Executor) handleApplicationFinish(p *process.Process) {
	e.log.Log(fmt.Sprintf("End process %d", p.PID))
	p.PCB.SetState(process.Terminated)
}

// runProcessor waits out a P{run} instruction's remaining time, honoring
// RR quantum boundaries and scheduler-issued interrupts at 1ms
// granularity (spec §5 suspension points; spec §4.5 preemption contract).
// It returns done=false if the wait was cut short by either cause, in
// which case the caller requeues p and returns control to the dispatch
// loop; the next dispatch resumes this same instruction with
// savedRunningTimeMs already credited.
func (e *Executor) runProcessor(ctx context.Context, p *process.Process, ins metadata.Instruction) (done bool) {
	remaining := ins.TotalMs - int(p.PCB.SavedRunningTimeMs())
	if remaining < 0 {
		remaining = 0
	}

	budget := remaining
	if e.sched.Policy() == scheduler.RR {
		if q := e.sched.Quantum(); q > 0 && q < budget {
			budget = q
		}
	}

	e.log.Log("start processing action")
	ran, interrupted := e.consumeTime(ctx, p, budget)
	e.creditElapsed(p, ran)

	if interrupted || ran < remaining {
		e.log.Log("interrupt processing action")
		p.PCB.SetSavedRunningTimeMs(p.PCB.SavedRunningTimeMs() + float64(ran))
		return false
	}

	e.log.Log("end processing action")
	p.PCB.SetSavedRunningTimeMs(0)
	return true
}

// consumeTime sleeps out ms simulated milliseconds in 1ms steps, checking
// for a scheduler-issued interrupt at every tick so preemption is honored
// "as soon as the current ms tick is observed" (spec §4.5).
func (e *Executor) consumeTime(ctx context.Context, p *process.Process, ms int) (ran int, interrupted bool) {
	for ran = 0; ran < ms; ran++ {
		if p.PCB.InterruptPending() {
			p.PCB.AcknowledgeInterrupt()
			return ran, true
		}
		select {
		case <-ctx.Done():
			return ran, true
		case <-time.After(time.Millisecond):
		}
	}
	return ran, false
}

func (e *Executor) runMemory(ctx context.Context, p *process.Process, ins metadata.Instruction) {
	switch ins.Descriptor {
	case "allocate":
		ran, _ := e.consumeTime(ctx, p, ins.TotalMs)
		e.creditElapsed(p, ran)
		blockCount, address := e.memory.Allocate()
		p.PCB.RecordAllocation(blockCount, address)
		e.log.Log(fmt.Sprintf("memory allocated at 0x%08x", address))
	case "block":
		e.log.Log("start memory blocking")
		ran, _ := e.consumeTime(ctx, p, ins.TotalMs)
		e.creditElapsed(p, ran)
		e.log.Log("end memory blocking")
	}
}

// creditElapsed records ran simulated milliseconds against both the
// process's running total and its estimatedTimeRemaining, so policies that
// rank on remaining time (STR) see the effect of non-P{run} instructions
// too (spec §4.3: ranking covers the whole process, not just its P{run}
// bursts).
func (e *Executor) creditElapsed(p *process.Process, ran int) {
	p.PCB.AddProcessDuration(float64(ran))
	p.PCB.SetEstimatedTimeRemaining(p.PCB.EstimatedTimeRemaining() - float64(ran))
}

func (e *Executor) runDeviceIO(ctx context.Context, p *process.Process, ins metadata.Instruction) {
	kind, err := deviceKindFor(ins.Code, ins.Descriptor)
	if err != nil {
		e.log.Errorf("%v", err)
		return
	}

	direction := "input"
	if ins.Code == metadata.Output {
		direction = "output"
	}

	p.PCB.SetState(process.Waiting)
	e.sched.Block(p)
	lease, err := e.devices.Acquire(ctx, kind)
	e.sched.Unblock(p)
	p.PCB.SetState(process.Running)
	if err != nil {
		e.log.Errorf("acquire %s: %v", kind, err)
		return
	}
	defer e.devices.Release(lease)

	switch ins.Descriptor {
	case "hard drive":
		e.log.Log(fmt.Sprintf("start hard drive %s on HDD %d", direction, lease.Instance))
	case "projector":
		e.log.Log(fmt.Sprintf("start %s %s on projector %d", ins.Descriptor, direction, lease.Instance))
	default:
		e.log.Log(fmt.Sprintf("start %s %s", ins.Descriptor, direction))
	}

	ran, _ := e.consumeTime(ctx, p, ins.TotalMs)
	e.creditElapsed(p, ran)

	if ins.Descriptor == "hard drive" {
		e.log.Log(fmt.Sprintf("end hard drive %s", direction))
	} else {
		e.log.Log(fmt.Sprintf("end %s %s", ins.Descriptor, direction))
	}

	if kind == resource.HDD {
		p.PCB.IncrementHardDrivesUsed()
	}
	if kind == resource.Projector {
		p.PCB.IncrementProjectorsUsed()
	}

	// Under STR, ReorderOnCompletion re-sorts ready and interrupts the
	// previous ready head if the sort displaces it. p itself is not in
	// ready while it runs, so the time credited to it above does not
	// change that ordering.
	e.sched.ReorderOnCompletion()
}

func deviceKindFor(code metadata.Code, descriptor string) (resource.Kind, error) {
	switch {
	case descriptor == "hard drive":
		return resource.HDD, nil
	case code == metadata.Input && descriptor == "keyboard":
		return resource.Keyboard, nil
	case code == metadata.Input && descriptor == "scanner":
		return resource.Scanner, nil
	case code == metadata.Output && descriptor == "monitor":
		return resource.Monitor, nil
	case code == metadata.Output && descriptor == "projector":
		return resource.Projector, nil
	default:
		return 0, fmt.Errorf("%w: %s{%s}", ErrUnknownDescriptor, code, descriptor)
	}
}
