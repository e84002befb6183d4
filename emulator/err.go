package emulator

import (
	"errors"

	"github.com/ezrec/arm64sim/translate"
)

var f = translate.From

var (
	ErrTickLimit    = errors.New(f("tick limit reached"))
	ErrNoProgram    = errors.New(f("no program loaded"))
	ErrSeedAddress  = errors.New(f("memory seed address invalid"))
	ErrSeedReserved = errors.New(f("memory seed name is reserved"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Index  int    // Instruction sequence index.
	LineNo int    // Source line number.
	Line   string // Source text.
	Err    error
}

func (err *ErrRuntime) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

// ErrSeed is a memory seed entry that could not be applied.
type ErrSeed string

func (err ErrSeed) Error() string {
	return f("memory seed '%v' is not an address or symbol", string(err))
}

func (err ErrSeed) Unwrap() error {
	return ErrSeedAddress
}

// ErrSeedName is a memory seed symbol that collides with a register or a
// predefined equate.
type ErrSeedName string

func (err ErrSeedName) Error() string {
	return f("memory seed '%v' is a reserved name", string(err))
}

func (err ErrSeedName) Unwrap() error {
	return ErrSeedReserved
}
