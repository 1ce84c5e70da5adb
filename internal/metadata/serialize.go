package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// Serialize renders instructions back to canonical meta-data text: the
// fixed header, one whitespace-separated token per instruction terminated
// by ';' (or '.' on the last one), and the fixed trailer. Used to verify
// the parser round-trip property (spec §8, property 1).
func Serialize(instructions []Instruction) string {
	var b strings.Builder
	b.WriteString(headerText)
	for i, ins := range instructions {
		b.WriteByte(' ')
		b.WriteString(string(rune(ins.Code)))
		b.WriteByte('{')
		b.WriteString(ins.Descriptor)
		b.WriteByte('}')
		b.WriteString(strconv.Itoa(ins.Cycles))
		if i == len(instructions)-1 {
			b.WriteByte('.')
		} else {
			b.WriteByte(';')
		}
	}
	b.WriteByte(' ')
	b.WriteString(trailerText)
	return b.String()
}

// String implements fmt.Stringer for debug output and log diagnostics.
func (ins Instruction) String() string {
	return fmt.Sprintf("%s{%s}%d", string(ins.Code), ins.Descriptor, ins.Cycles)
}
