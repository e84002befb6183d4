package cpu

import (
	"iter"
	"maps"
	"slices"
)

// Memory is sparse word-addressed storage. Addresses that were never
// written read as zero.
type Memory map[int64]int64

// Load reads the word at an address.
func (mem Memory) Load(addr int64) int64 {
	return mem[addr]
}

// Store writes the word at an address.
func (mem *Memory) Store(addr int64, value int64) {
	if *mem == nil {
		*mem = make(Memory)
	}
	(*mem)[addr] = value
}

// Len is the number of written addresses.
func (mem Memory) Len() int {
	return len(mem)
}

// All iterates over the written addresses in ascending order.
func (mem Memory) All() iter.Seq2[int64, int64] {
	return func(yield func(addr int64, value int64) bool) {
		for _, addr := range slices.Sorted(maps.Keys(mem)) {
			if !yield(addr, mem[addr]) {
				return
			}
		}
	}
}
