package cpu

import (
	"fmt"
)

// CodeOp is the kind of a decoded instruction.
type CodeOp int

//go:generate go tool stringer -linecomment -type=CodeOp
const (
	OP_LABEL   = CodeOp(0) // label
	OP_IMM     = CodeOp(1) // imm
	OP_LOAD    = CodeOp(2) // ldr
	OP_STORE   = CodeOp(3) // str
	OP_ADD     = CodeOp(4) // add
	OP_MUL     = CodeOp(5) // mul
	OP_SVC     = CodeOp(6) // svc
	OP_BRANCH  = CodeOp(7) // b
	OP_UNKNOWN = CodeOp(8) // unknown
)

// Operand is a register-or-immediate source value.
type Operand struct {
	Reg   Register
	Imm   int64
	IsImm bool
}

// RegOperand makes a register source operand.
func RegOperand(reg Register) Operand {
	return Operand{Reg: reg}
}

// ImmOperand makes an immediate source operand.
func ImmOperand(imm int64) Operand {
	return Operand{Imm: imm, IsImm: true}
}

// String returns the assembly form of the operand.
func (op Operand) String() string {
	if op.IsImm {
		return fmt.Sprintf("#%d", op.Imm)
	}
	return op.Reg.String()
}

// Instruction is one decoded line of the instruction sequence.
//
// Field use by kind:
//
//	OP_IMM:    Dst <- Imm
//	OP_LOAD:   Dst <- Memory[Addr]
//	OP_STORE:  Memory[Addr] <- Src
//	OP_ADD:    Dst <- Src + Arg
//	OP_MUL:    Dst <- Src * Arg
//	OP_SVC:    Imm is the service number (ignored)
//	OP_BRANCH: Pc <- Target (Label when Target < 0 is unresolved)
//	OP_UNKNOWN: Mnemonic holds the unrecognized opcode.
type Instruction struct {
	Op       CodeOp
	Mnemonic string
	Dst      Register
	Src      Register
	Addr     Register
	Arg      Operand
	Imm      int64
	Label    string
	Target   int
	LineNo   int    // Source line number.
	Text     string // Source text, comments removed.
}

// MakeImm creates a load-immediate instruction.
func MakeImm(dst Register, imm int64) Instruction {
	return Instruction{Op: OP_IMM, Mnemonic: "mov", Dst: dst, Imm: imm}
}

// MakeLoad creates a load-indirect instruction.
func MakeLoad(dst, addr Register) Instruction {
	return Instruction{Op: OP_LOAD, Mnemonic: "ldr", Dst: dst, Addr: addr}
}

// MakeStore creates a store instruction.
func MakeStore(src, addr Register) Instruction {
	return Instruction{Op: OP_STORE, Mnemonic: "str", Src: src, Addr: addr}
}

// MakeAdd creates an add instruction.
func MakeAdd(dst, src Register, arg Operand) Instruction {
	return Instruction{Op: OP_ADD, Mnemonic: "add", Dst: dst, Src: src, Arg: arg}
}

// MakeMul creates a multiply instruction.
func MakeMul(dst, src Register, arg Operand) Instruction {
	return Instruction{Op: OP_MUL, Mnemonic: "mul", Dst: dst, Src: src, Arg: arg}
}

// MakeBranch creates a branch to an already resolved target index.
func MakeBranch(label string, target int) Instruction {
	return Instruction{Op: OP_BRANCH, Mnemonic: "b", Label: label, Target: target}
}

// MakeLabel creates a bare label definition.
func MakeLabel(label string) Instruction {
	return Instruction{Op: OP_LABEL, Label: label}
}

// MakeUnknown creates an instruction for an unrecognized mnemonic.
func MakeUnknown(mnemonic string) Instruction {
	return Instruction{Op: OP_UNKNOWN, Mnemonic: mnemonic}
}

// Executable is false for positions that are skipped at execution time.
func (inst Instruction) Executable() bool {
	return inst.Op != OP_LABEL
}

// String returns the canonical assembly form of the instruction.
func (inst Instruction) String() (out string) {
	switch inst.Op {
	case OP_LABEL:
		out = inst.Label + ":"
	case OP_IMM:
		out = fmt.Sprintf("mov %v, #%d", inst.Dst, inst.Imm)
	case OP_LOAD:
		out = fmt.Sprintf("ldr %v, [%v]", inst.Dst, inst.Addr)
	case OP_STORE:
		out = fmt.Sprintf("str %v, [%v]", inst.Src, inst.Addr)
	case OP_ADD, OP_MUL:
		out = fmt.Sprintf("%v %v, %v, %v", inst.Op, inst.Dst, inst.Src, inst.Arg)
	case OP_SVC:
		out = fmt.Sprintf("svc #%d", inst.Imm)
	case OP_BRANCH:
		out = "b " + inst.Label
	case OP_UNKNOWN:
		out = inst.Mnemonic
	default:
		out = inst.Op.String()
	}

	return
}
