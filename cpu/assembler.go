// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":         "0",
	"REGISTER_COUNT": fmt.Sprintf("%d", REGISTER_COUNT),
}

// IsSystemEquate reports whether name is predefined by every Parse.
func IsSystemEquate(name string) (ok bool) {
	_, ok = sysEquate[name]
	return
}

var reParen = regexp.MustCompile(`\$\([^\$]*\)`)

// Assembler is a single pass assembler from arm64sim text to a Program.
type Assembler struct {
	Verbose bool // If set, verbosely logs the assembler actions.

	predefine map[string]string // Predefines
	Label     map[string]int    // Map of labels to instruction indexes.
	Equate    map[string]string // Map of equates.

	lines   []string // Instruction sequence text.
	linenos []int    // Source line of each instruction.
}

// Predefine defines a new equate or redefines an existing equate, applied
// at the start of every Parse.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// stripComment removes ';' and '//' comments, and surrounding whitespace.
func stripComment(text string) string {
	text, _, _ = strings.Cut(text, ";")
	text, _, _ = strings.Cut(text, "//")
	return strings.TrimSpace(text)
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v64, perr := strconv.ParseInt(str, 10, 64)
		if perr != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = errors.Join(ErrParseExpression(expr), err)
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// parseLine evaluates expressions and directives in a line. An empty result
// means the line is not part of the instruction sequence.
func (asm *Assembler) parseLine(line string, lineno int) (out string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%d", lineno)

	// Do $() evaluations
	line = reParen.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})
	if err != nil {
		return
	}

	words := strings.Fields(line)

	// .equ CONST VALUE
	if len(words) > 0 && words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		return
	}

	out = line
	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	asm.lines = asm.lines[:0]
	asm.linenos = asm.linenos[:0]
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		lineno += 1
		line = stripComment(scanner.Text())

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, line)
		}

		if len(line) == 0 {
			continue
		}

		var text string
		text, err = asm.parseLine(line, lineno)
		if err != nil {
			err = &DecodeError{LineNo: lineno, Index: -1, Line: line, Err: err}
			return
		}
		if len(text) == 0 {
			continue
		}

		asm.lines = append(asm.lines, text)
		asm.linenos = append(asm.linenos, lineno)
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	asm.Label = ResolveLabels(asm.lines)
	if asm.Verbose {
		asm.reportDuplicateLabels()
	}

	prog = &Program{
		Instructions: make([]Instruction, 0, len(asm.lines)),
		Labels:       maps.Clone(asm.Label),
	}

	for n, line := range asm.lines {
		var inst Instruction
		inst, err = asm.decode(line)
		if err != nil {
			err = &DecodeError{LineNo: asm.linenos[n], Index: n, Line: line, Err: err}
			prog = nil
			return
		}
		inst.LineNo = asm.linenos[n]
		inst.Text = line
		prog.Instructions = append(prog.Instructions, inst)
	}

	return
}

// ParseLines parses a program that was already split into lines.
func (asm *Assembler) ParseLines(lines []string) (prog *Program, err error) {
	return asm.Parse(strings.NewReader(strings.Join(lines, "\n")))
}

// reportDuplicateLabels logs labels that are defined more than once.
func (asm *Assembler) reportDuplicateLabels() {
	seen := make(map[string]int, len(asm.Label))
	for n, line := range asm.lines {
		label, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		label = strings.TrimSpace(label)
		prior, dup := seen[label]
		if dup {
			log.Print(f("label %v at line %d redefined at line %d", label, asm.linenos[prior], asm.linenos[n]))
		}
		seen[label] = n
	}
}

// operands splits instruction operands, dropping separator commas.
func operands(words []string) (ops []string) {
	for _, word := range words {
		word = strings.TrimSuffix(word, ",")
		if len(word) > 0 {
			ops = append(ops, word)
		}
	}
	return
}

// argCount checks the operand count of an instruction.
func argCount(ops []string, need int) (err error) {
	switch {
	case len(ops) < need:
		err = ErrOperandMissing
	case len(ops) > need:
		err = ErrOperandExtra
	}
	return
}

// register decodes a register operand.
func (asm *Assembler) register(word string) (reg Register, err error) {
	if equate, ok := asm.Equate[word]; ok {
		word = equate
	}
	reg, err = ParseRegister(word)
	if err != nil {
		err = errors.Join(ErrRegisterInvalid, err)
	}
	return
}

// immediate decodes a marked base-10 immediate, or a marked equate name.
func (asm *Assembler) immediate(word string, mark string) (value int64, err error) {
	text, ok := strings.CutPrefix(word, mark)
	if !ok {
		err = errors.Join(ErrOperandImmMark, ErrParseNumber(word))
		return
	}
	if equate, ok := asm.Equate[text]; ok {
		text = equate
	}
	value, err = strconv.ParseInt(text, 10, 64)
	if err != nil {
		err = ErrParseNumber(text)
		return
	}
	return
}

// indirect decodes a [register] memory operand.
func (asm *Assembler) indirect(word string) (reg Register, err error) {
	if !strings.HasPrefix(word, "[") || !strings.HasSuffix(word, "]") || len(word) < 2 {
		err = errors.Join(ErrOperandIndirect, ErrParseRegister(word))
		return
	}
	return asm.register(strings.TrimSpace(word[1 : len(word)-1]))
}

// operand decodes a register or '#' immediate source.
func (asm *Assembler) operand(word string) (op Operand, err error) {
	if strings.HasPrefix(word, "#") {
		var imm int64
		imm, err = asm.immediate(word, "#")
		op = ImmOperand(imm)
		return
	}
	var reg Register
	reg, err = asm.register(word)
	op = RegOperand(reg)
	return
}

// decode converts one line of the instruction sequence to an Instruction.
func (asm *Assembler) decode(line string) (inst Instruction, err error) {
	if strings.HasSuffix(line, ":") {
		label, _, _ := strings.Cut(line, ":")
		inst = MakeLabel(strings.TrimSpace(label))
		return
	}

	words := strings.Fields(line)

	// Labels sharing a line with an instruction.
	for len(words) > 0 && strings.HasSuffix(words[0], ":") {
		words = words[1:]
	}
	if len(words) == 0 {
		err = ErrOpcodeDecode
		return
	}

	mnemonic := strings.ToLower(words[0])
	ops := operands(words[1:])

	switch mnemonic {
	case "ldr":
		if err = argCount(ops, 2); err != nil {
			return
		}
		var dst Register
		dst, err = asm.register(ops[0])
		if err != nil {
			return
		}
		if strings.HasPrefix(ops[1], "=") {
			var imm int64
			imm, err = asm.immediate(ops[1], "=")
			if err != nil {
				return
			}
			inst = MakeImm(dst, imm)
			inst.Mnemonic = mnemonic
			return
		}
		var addr Register
		addr, err = asm.indirect(ops[1])
		if err != nil {
			return
		}
		inst = MakeLoad(dst, addr)
	case "mov":
		if err = argCount(ops, 2); err != nil {
			return
		}
		var dst Register
		dst, err = asm.register(ops[0])
		if err != nil {
			return
		}
		var imm int64
		imm, err = asm.immediate(ops[1], "#")
		if err != nil {
			return
		}
		inst = MakeImm(dst, imm)
	case "str":
		if err = argCount(ops, 2); err != nil {
			return
		}
		var src, addr Register
		src, err = asm.register(ops[0])
		if err != nil {
			return
		}
		addr, err = asm.indirect(ops[1])
		if err != nil {
			return
		}
		inst = MakeStore(src, addr)
	case "add", "mul":
		if err = argCount(ops, 3); err != nil {
			return
		}
		var dst, src Register
		dst, err = asm.register(ops[0])
		if err != nil {
			return
		}
		src, err = asm.register(ops[1])
		if err != nil {
			return
		}
		var arg Operand
		arg, err = asm.operand(ops[2])
		if err != nil {
			return
		}
		if mnemonic == "add" {
			inst = MakeAdd(dst, src, arg)
		} else {
			inst = MakeMul(dst, src, arg)
		}
	case "svc":
		if len(ops) > 1 {
			err = ErrOperandExtra
			return
		}
		inst = Instruction{Op: OP_SVC, Mnemonic: mnemonic}
		if len(ops) == 1 {
			inst.Imm, err = asm.immediate(ops[0], "#")
		}
	case "b":
		if err = argCount(ops, 1); err != nil {
			return
		}
		label := ops[0]
		target, ok := asm.Label[label]
		if !ok {
			target = -1
		}
		inst = MakeBranch(label, target)
	default:
		inst = MakeUnknown(words[0])
	}

	return
}
