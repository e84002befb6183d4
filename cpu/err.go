package cpu

import (
	"errors"

	"github.com/ezrec/arm64sim/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrPcEmpty            = errors.New(f("pc empty"))
	ErrRegisterUndeclared = errors.New(f("register undeclared"))
	ErrInstructionUnknown = errors.New(f("unknown instruction"))
	ErrOpcodeDecode       = errors.New(f("decode"))

	// Assembler errors
	ErrEquateSyntax    = errors.New(f(".equ syntax"))
	ErrEquateDuplicate = errors.New(f(".equ duplicated"))
	ErrOperandMissing  = errors.New(f("operand missing"))
	ErrOperandExtra    = errors.New(f("excessive operands"))
	ErrOperandIndirect = errors.New(f("indirect operand needs [register]"))
	ErrOperandImmMark  = errors.New(f("immediate marker missing"))
	ErrRegisterInvalid = errors.New(f("register invalid"))
)

// ResolutionError is a branch to a label that is not in the label table.
type ResolutionError struct {
	Label string
}

func (err ResolutionError) Error() string {
	return f("label %v missing", err.Label)
}

// StateError is an access to a register outside of the register file.
type StateError struct {
	Register string
}

func (err *StateError) Error() string {
	return f("register %v undeclared", err.Register)
}

func (err *StateError) Unwrap() error {
	return ErrRegisterUndeclared
}

// UnknownError is an instruction with no matching opcode. It is not fatal;
// the program counter has already advanced when it is returned.
type UnknownError struct {
	Mnemonic string
}

func (err *UnknownError) Error() string {
	return f("unknown instruction: %v", err.Mnemonic)
}

func (err *UnknownError) Unwrap() error {
	return ErrInstructionUnknown
}

// DecodeError locates a line the assembler could not decode.
type DecodeError struct {
	LineNo int    // Source line number, 1 based.
	Index  int    // Instruction sequence index, or -1 for directives.
	Line   string // Line text, comments removed.
	Err    error
}

func (err *DecodeError) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *DecodeError) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseRegister string

func (err ErrParseRegister) Error() string {
	return f("'%v' is not a register", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
