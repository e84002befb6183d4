package cpu

import (
	"iter"
	"strings"
)

// Program is an assembled instruction sequence with its label table.
type Program struct {
	Instructions []Instruction
	Labels       map[string]int
}

// ResolveLabels scans the instruction sequence once and maps the text
// before the first ':' of every line to that line's index.
//
// A duplicated label keeps the last index seen.
func ResolveLabels(lines []string) (labels map[string]int) {
	labels = make(map[string]int, 16)
	for n, line := range lines {
		label, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		labels[strings.TrimSpace(label)] = n
	}

	return
}

// Len is the length of the instruction sequence.
func (prog *Program) Len() int {
	return len(prog.Instructions)
}

// Debug returns the instruction at a program counter, if any.
func (prog *Program) Debug(pc int) (inst *Instruction) {
	if pc < 0 || pc >= len(prog.Instructions) {
		return
	}

	inst = &prog.Instructions[pc]
	return
}

// Lines iterates over the source text of the instruction sequence.
func (prog *Program) Lines() iter.Seq2[int, string] {
	return func(yield func(index int, line string) bool) {
		for n, inst := range prog.Instructions {
			if !yield(n, inst.Text) {
				return
			}
		}
	}
}

// Steps counts the positions that execute, excluding bare labels.
func (prog *Program) Steps() (steps int) {
	for _, inst := range prog.Instructions {
		if inst.Executable() {
			steps++
		}
	}

	return
}
