package cpu

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
)

const (
	REGISTER_COUNT = 31 // General purpose registers x0-x30.
)

// Register is a validated general purpose register number.
type Register uint8

// ParseRegister converts a register name (x0-x30) to a Register.
func ParseRegister(name string) (reg Register, err error) {
	num, ok := strings.CutPrefix(name, "x")
	if !ok || len(num) == 0 || (len(num) > 1 && num[0] == '0') {
		err = ErrParseRegister(name)
		return
	}

	n, err := strconv.ParseUint(num, 10, 8)
	if err != nil || n >= REGISTER_COUNT {
		err = ErrParseRegister(name)
		return
	}

	reg = Register(n)
	return
}

// Valid returns true if the register is in the register file.
func (reg Register) Valid() bool {
	return reg < REGISTER_COUNT
}

func (reg Register) String() string {
	return fmt.Sprintf("x%d", uint8(reg))
}

// RegisterFile is the bank of general purpose registers.
type RegisterFile [REGISTER_COUNT]int64

// Read returns the value of a register.
func (rf *RegisterFile) Read(reg Register) (value int64, err error) {
	if !reg.Valid() {
		err = &StateError{Register: reg.String()}
		return
	}

	value = rf[reg]
	return
}

// Write sets the value of a register.
func (rf *RegisterFile) Write(reg Register, value int64) (err error) {
	if !reg.Valid() {
		err = &StateError{Register: reg.String()}
		return
	}

	rf[reg] = value
	return
}

// All iterates over the registers by name, x0 first.
func (rf *RegisterFile) All() iter.Seq2[string, int64] {
	return func(yield func(name string, value int64) bool) {
		for n, value := range rf {
			if !yield(Register(n).String(), value) {
				return
			}
		}
	}
}
