package process

import (
	"errors"
	"fmt"

	"github.com/opsim/simulator/internal/metadata"
)

// Sentinel errors for malformed process bracketing.
var (
	ErrMissingSystemBegin  = errors.New("process: instruction stream does not start with S{begin}")
	ErrMissingSystemFinish = errors.New("process: instruction stream does not end with S{finish}")
	ErrUnmatchedBegin      = errors.New("process: A{begin} has no matching A{finish}")
	ErrUnmatchedFinish     = errors.New("process: A{finish} encountered with no open process")
	ErrOrphanInstruction   = errors.New("process: instruction outside any A{begin}/A{finish} bracket")
)

// Program is the result of splitting a parsed meta-data stream: the
// simulator-wide S{begin}/S{finish} bookends plus the independent
// processes between them.
type Program struct {
	SystemBegin  metadata.Instruction
	SystemFinish metadata.Instruction
	Processes    []*Process
}

// Build splits instructions on each A{begin} boundary (spec §4.2): every
// resulting process runs from A{begin} up to and including its paired
// A{finish}. The System brackets S{begin}/S{finish} must appear exactly
// once, at the very start and end of the stream.
func Build(instructions []metadata.Instruction) (Program, error) {
	if len(instructions) < 2 {
		return Program{}, fmt.Errorf("%w: stream too short", ErrMissingSystemBegin)
	}
	first := instructions[0]
	if !(first.Code == metadata.System && first.Descriptor == "begin") {
		return Program{}, ErrMissingSystemBegin
	}
	last := instructions[len(instructions)-1]
	if !(last.Code == metadata.System && last.Descriptor == "finish") {
		return Program{}, ErrMissingSystemFinish
	}

	var (
		processes []*Process
		current   []metadata.Instruction
		open      bool
		nextPID   = 1
	)

	for _, ins := range instructions[1 : len(instructions)-1] {
		switch {
		case ins.Code == metadata.Application && ins.Descriptor == "begin":
			if open {
				return Program{}, ErrUnmatchedBegin
			}
			open = true
			current = []metadata.Instruction{ins}
		case ins.Code == metadata.Application && ins.Descriptor == "finish":
			if !open {
				return Program{}, ErrUnmatchedFinish
			}
			current = append(current, ins)
			total := 0
			for _, i := range current {
				total += i.TotalMs
			}
			proc := &Process{
				PID:              nextPID,
				Instructions:     current,
				EstimatedTotalMs: total,
				PCB:              NewPCB(nextPID),
			}
			proc.PCB.SetEstimatedTimeRemaining(float64(total))
			processes = append(processes, proc)
			nextPID++
			open = false
			current = nil
		default:
			if !open {
				return Program{}, fmt.Errorf("%w: %v", ErrOrphanInstruction, ins)
			}
			current = append(current, ins)
		}
	}

	if open {
		return Program{}, ErrUnmatchedBegin
	}

	return Program{SystemBegin: first, SystemFinish: last, Processes: processes}, nil
}
