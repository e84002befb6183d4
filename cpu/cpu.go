package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"
)

var _cpu_defines = map[string]string{
	"REGISTER_COUNT": fmt.Sprintf("%d", REGISTER_COUNT),
}

// Cpu is the simulation context for the register machine.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Pc       int          // Current program counter.
	Register RegisterFile // Register bank.
	Memory   Memory       // Sparse data memory.

	Ticks int // Executed instruction counter.

	code []Instruction // Loaded instruction sequence.
}

// NewCpu creates a new CPU with empty memory and no program.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{
		Memory: make(Memory),
	}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Load installs the instruction sequence of a program.
func (cpu *Cpu) Load(prog *Program) {
	cpu.code = prog.Instructions
}

// Reset the CPU state.
// - Clears the registers.
// - Zeros the program counter and tick counter.
// Memory is left untouched.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	cpu.Pc = 0
	cpu.Ticks = 0
}

// Halted is true once the program counter has left the instruction sequence.
func (cpu *Cpu) Halted() bool {
	return cpu.Pc < 0 || cpu.Pc >= len(cpu.code)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text = fmt.Sprintf("% 5s: %d\n", "pc", cpu.Pc)
	for name, value := range cpu.Register.All() {
		text += fmt.Sprintf("% 5s: %d\n", name, value)
	}

	return
}

// GetRegister reads a register by name.
func (cpu *Cpu) GetRegister(name string) (value int64, err error) {
	reg, err := ParseRegister(name)
	if err != nil {
		err = &StateError{Register: name}
		return
	}

	return cpu.Register.Read(reg)
}

// SetRegister writes a register by name.
func (cpu *Cpu) SetRegister(name string, value int64) (err error) {
	reg, err := ParseRegister(name)
	if err != nil {
		err = &StateError{Register: name}
		return
	}

	return cpu.Register.Write(reg, value)
}

// Registers iterates over the register file by name.
func (cpu *Cpu) Registers() iter.Seq2[string, int64] {
	return cpu.Register.All()
}

// FetchCode fetches the instruction at the program counter.
func (cpu *Cpu) FetchCode() (inst Instruction, err error) {
	if cpu.Halted() {
		err = ErrPcEmpty
		return
	}

	inst = cpu.code[cpu.Pc]
	return
}

// Tick executes the instruction at the program counter.
func (cpu *Cpu) Tick() (err error) {
	inst, err := cpu.FetchCode()
	if err != nil {
		return
	}

	return cpu.Execute(inst)
}

// getValue gets the value of a register-or-immediate operand.
func (cpu *Cpu) getValue(op Operand) (value int64, err error) {
	if op.IsImm {
		value = op.Imm
		return
	}

	return cpu.Register.Read(op.Reg)
}

// Execute executes a single decoded instruction.
//
// On success, or on an *UnknownError, the program counter has moved to the
// next instruction. On any other error no state has changed.
func (cpu *Cpu) Execute(inst Instruction) (err error) {
	if cpu.Verbose {
		log.Printf("%03d: %v", cpu.Pc, inst)
	}

	next_pc := cpu.Pc + 1

	var unknown error

	switch inst.Op {
	case OP_LABEL:
		// Label positions never count as executed.
		cpu.Pc = next_pc
		return
	case OP_IMM:
		err = cpu.Register.Write(inst.Dst, inst.Imm)
	case OP_LOAD:
		var addr int64
		addr, err = cpu.Register.Read(inst.Addr)
		if err != nil {
			return
		}
		err = cpu.Register.Write(inst.Dst, cpu.Memory.Load(addr))
	case OP_STORE:
		var addr, value int64
		addr, err = cpu.Register.Read(inst.Addr)
		if err != nil {
			return
		}
		value, err = cpu.Register.Read(inst.Src)
		if err != nil {
			return
		}
		cpu.Memory.Store(addr, value)
	case OP_ADD, OP_MUL:
		var a, b int64
		a, err = cpu.Register.Read(inst.Src)
		if err != nil {
			return
		}
		b, err = cpu.getValue(inst.Arg)
		if err != nil {
			return
		}
		if !inst.Dst.Valid() {
			err = &StateError{Register: inst.Dst.String()}
			return
		}
		if inst.Op == OP_ADD {
			err = cpu.Register.Write(inst.Dst, a+b)
		} else {
			err = cpu.Register.Write(inst.Dst, a*b)
		}
	case OP_SVC:
		// Service calls are accepted and ignored.
	case OP_BRANCH:
		if inst.Target < 0 {
			err = ResolutionError{Label: inst.Label}
			return
		}
		next_pc = inst.Target
	case OP_UNKNOWN:
		unknown = &UnknownError{Mnemonic: inst.Mnemonic}
	default:
		err = ErrOpcodeDecode
		return
	}

	if err != nil {
		return
	}

	cpu.Pc = next_pc
	cpu.Ticks += 1

	err = unknown
	return
}
