package process

import "github.com/opsim/simulator/internal/metadata"

// Process is a bracketed subsequence of instructions running from
// A{begin} to its paired A{finish} (spec §3). It is created once by the
// Builder and mutated only by the Executor during its dispatch turn.
type Process struct {
	PID              int
	Instructions     []metadata.Instruction
	EstimatedTotalMs int
	PCB              *PCB
}

// IOCount returns the number of I{...}/O{...} instructions in the
// process, used by the PS (priority) scheduling policy (spec §4.3).
func (p *Process) IOCount() int {
	n := 0
	for _, ins := range p.Instructions {
		if ins.Code == metadata.Input || ins.Code == metadata.Output {
			n++
		}
	}
	return n
}
