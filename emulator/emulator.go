// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ezrec/arm64sim/cpu"
	"github.com/ezrec/arm64sim/internal"
)

const (
	SYMBOL_BASE = 0x1000 // First address handed out to symbolic memory seeds.
)

var _emulator_defines = map[string]string{
	"SYMBOL_BASE": fmt.Sprintf("%d", SYMBOL_BASE),
}

var reSymbol = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Emulator state. CPU + loaded program + memory image.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently loaded program.

	MaxTicks int // If > 0, Run() fails with ErrTickLimit after this many ticks.

	Unknown []*ErrRuntime // Unknown instructions seen since the last reset.

	seed    map[int64]int64  // Memory image applied at reset.
	symbols map[string]int64 // Symbolic seed addresses.
	state   State
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		seed:    make(map[int64]int64),
		symbols: make(map[string]int64),
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	var symbols iter.Seq2[string, string] = func(yield func(string, string) bool) {
		for _, name := range slices.Sorted(maps.Keys(emu.symbols)) {
			if !yield(name, fmt.Sprintf("%d", emu.symbols[name])) {
				return
			}
		}
	}

	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
		symbols,
	)
}

// Symbol returns the address bound to a symbolic memory seed.
func (emu *Emulator) Symbol(name string) (addr int64, ok bool) {
	addr, ok = emu.symbols[name]
	return
}

// Seed adds entries to the initial memory image.
//
// Keys are base-10 addresses, or symbol names. Each new symbol is bound to
// the next free address from SYMBOL_BASE, in name order, and is predefined
// as an equate for programs loaded afterwards. Register names and reserved
// equates are not symbols. Nothing is applied if any key is invalid.
func (emu *Emulator) Seed(init map[string]int64) (err error) {
	keys := slices.Sorted(maps.Keys(init))

	for _, key := range keys {
		err = emu.checkSeed(key)
		if err != nil {
			return
		}
	}

	for _, key := range keys {
		value := init[key]
		text := strings.TrimSpace(key)

		addr, perr := strconv.ParseInt(text, 10, 64)
		if perr != nil {
			var ok bool
			addr, ok = emu.symbols[text]
			if !ok {
				addr = SYMBOL_BASE + int64(len(emu.symbols))
				emu.symbols[text] = addr
			}
		}

		if emu.Verbose {
			log.Printf("emulator: seed [%d] = %d", addr, value)
		}

		emu.seed[addr] = value
		emu.Cpu.Memory.Store(addr, value)
	}

	return
}

// checkSeed validates a single seed key.
func (emu *Emulator) checkSeed(key string) (err error) {
	text := strings.TrimSpace(key)

	_, perr := strconv.ParseInt(text, 10, 64)
	if perr == nil {
		return
	}

	if !reSymbol.MatchString(text) {
		err = ErrSeed(key)
		return
	}

	_, perr = cpu.ParseRegister(text)
	if perr == nil {
		err = ErrSeedName(key)
		return
	}

	_, reserved := _emulator_defines[text]
	if reserved || cpu.IsSystemEquate(text) {
		err = ErrSeedName(key)
		return
	}

	return
}

// Load assembles a program and resets the emulator to run it.
func (emu *Emulator) Load(input io.Reader) (err error) {
	asm := &cpu.Assembler{Verbose: emu.Verbose}
	for equ, value := range emu.Defines() {
		asm.Predefine(equ, value)
	}

	prog, err := asm.Parse(input)
	if err != nil {
		return
	}

	emu.Program = prog
	emu.Cpu.Load(prog)

	err = emu.Reset()
	return
}

// LoadString assembles a program held in a string.
func (emu *Emulator) LoadString(program string) (err error) {
	return emu.Load(strings.NewReader(program))
}

// LoadLines assembles a program that was already split into lines.
func (emu *Emulator) LoadLines(lines []string) (err error) {
	return emu.Load(strings.NewReader(strings.Join(lines, "\n")))
}

// Reset the emulator to the start of the loaded program.
// Registers are zeroed, and memory is replaced by the seeded image.
func (emu *Emulator) Reset() (err error) {
	if emu.Program == nil {
		err = ErrNoProgram
		return
	}

	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()

	clear(emu.Cpu.Memory)
	for addr, value := range emu.seed {
		emu.Cpu.Memory.Store(addr, value)
	}

	emu.Unknown = nil
	emu.state = STATE_READY

	return
}

// State returns the run state.
func (emu *Emulator) State() State {
	return emu.state
}

// Ticks returns the total executed instructions since a reset.
func (emu *Emulator) Ticks() int {
	return emu.Cpu.Ticks
}

// Pc returns current program counter.
func (emu *Emulator) Pc() int {
	return emu.Cpu.Pc
}

// LineNo returns the source line number for the instruction at the program
// counter, or 0 if there is none.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return 0
	}

	inst := emu.Program.Debug(emu.Cpu.Pc)
	if inst == nil {
		return 0
	}

	return inst.LineNo
}

// MemoryCells iterates over the written memory cells in address order.
func (emu *Emulator) MemoryCells() iter.Seq2[int64, int64] {
	return emu.Cpu.Memory.All()
}

// Tick executes the next instruction, stepping over bare labels.
// done is set once the program counter has run off the end of the program.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	switch emu.state {
	case STATE_EMPTY:
		err = ErrNoProgram
		return
	case STATE_HALTED:
		done = true
		return
	case STATE_READY:
		emu.state = STATE_RUNNING
	}

	for {
		pc := emu.Cpu.Pc

		var inst cpu.Instruction
		inst, err = emu.Cpu.FetchCode()
		if errors.Is(err, cpu.ErrPcEmpty) {
			err = nil
			done = true
			emu.state = STATE_HALTED
			return
		}
		if err != nil {
			return
		}

		err = emu.Cpu.Execute(inst)
		if err != nil {
			rt := &ErrRuntime{Index: pc, LineNo: inst.LineNo, Line: inst.Text, Err: err}
			if !errors.Is(err, cpu.ErrInstructionUnknown) {
				err = rt
				return
			}
			log.Print(rt)
			emu.Unknown = append(emu.Unknown, rt)
			err = nil
		}

		if inst.Executable() {
			break
		}
	}

	return
}

// pending is true while an executable instruction remains at or after
// the program counter.
func (emu *Emulator) pending() bool {
	if emu.Program == nil || emu.Cpu.Pc < 0 {
		return false
	}

	for _, inst := range emu.Program.Instructions[min(emu.Cpu.Pc, emu.Program.Len()):] {
		if inst.Executable() {
			return true
		}
	}

	return false
}

// Run ticks the emulator until the program halts.
// If MaxTicks is set, Run fails with ErrTickLimit once that many
// instructions have executed and another one is still to come.
func (emu *Emulator) Run() (err error) {
	for {
		if emu.MaxTicks > 0 && emu.Cpu.Ticks >= emu.MaxTicks && emu.pending() {
			err = ErrTickLimit
			return
		}

		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
	}
}
