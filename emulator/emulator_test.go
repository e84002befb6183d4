package emulator

import (
	"errors"
	"maps"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/arm64sim/cpu"
)

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	assert.False(emu.Verbose)
	assert.NotNil(emu.Cpu)
	assert.Nil(emu.Program)
	assert.Equal(STATE_EMPTY, emu.State())
	assert.Equal(0, emu.LineNo())

	_, err := emu.Tick()
	assert.ErrorIs(err, ErrNoProgram)
	assert.ErrorIs(emu.Reset(), ErrNoProgram)
	assert.ErrorIs(emu.Run(), ErrNoProgram)
}

func loadFile(t *testing.T, emu *Emulator, name string) {
	t.Helper()

	inf, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer inf.Close()

	err = emu.Load(inf)
	if err != nil {
		t.Fatal(err)
	}
}

// doRunSingle runs a branch-free program one tick per executable line.
func doRunSingle(emu *Emulator, program []string, t *testing.T) {
	assert := assert.New(t)

	err := emu.LoadLines(program)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(STATE_READY, emu.State())

	for _, inst := range emu.Program.Instructions {
		if !inst.Executable() {
			continue
		}
		done, err := emu.Tick()
		assert.NoError(err, inst.Text)
		assert.False(done, inst.Text)
		assert.Equal(STATE_RUNNING, emu.State())
	}

	done, err := emu.Tick()
	assert.NoError(err)
	assert.True(done)
	assert.Equal(STATE_HALTED, emu.State())
	assert.Equal(emu.Program.Steps(), emu.Ticks())
}

func TestEmulatorReference(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	err := emu.Seed(map[string]int64{"5": 5, "7": 7, "3": 3, "0": 0})
	assert.NoError(err)

	loadFile(t, emu, "testdata/reference.s")

	err = emu.Run()
	assert.NoError(err)

	assert.Equal(STATE_HALTED, emu.State())
	assert.Equal(10, emu.Ticks())
	assert.Equal(int64(12), emu.Cpu.Register[3])
	assert.Equal(int64(36), emu.Cpu.Register[5])
	assert.Equal(int64(36), emu.Cpu.Memory.Load(0))
	assert.Empty(emu.Unknown)

	memory := maps.Collect(emu.MemoryCells())
	assert.Equal(map[int64]int64{0: 36, 3: 3, 5: 5, 7: 7}, memory)

	registers := maps.Collect(emu.Registers())
	assert.Equal(cpu.REGISTER_COUNT, len(registers))
	assert.Equal(int64(36), registers["x5"])
	assert.Equal(int64(0), registers["x0"])
}

func TestEmulatorSymbols(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	err := emu.Seed(map[string]int64{
		"num1":       5,
		"num2":       7,
		"multiplier": 3,
		"result":     0,
	})
	assert.NoError(err)

	addr, ok := emu.Symbol("multiplier")
	assert.True(ok)
	assert.Equal(int64(SYMBOL_BASE), addr)

	addr, ok = emu.Symbol("result")
	assert.True(ok)
	assert.Equal(int64(SYMBOL_BASE+3), addr)

	_, ok = emu.Symbol("missing")
	assert.False(ok)

	loadFile(t, emu, "testdata/symbols.s")

	assert.NoError(emu.Run())
	assert.Equal(int64(36), emu.Cpu.Register[5])
	assert.Equal(int64(36), emu.Cpu.Memory.Load(addr))

	defines := maps.Collect(emu.Defines())
	assert.Equal("4096", defines["SYMBOL_BASE"])
	assert.Equal("31", defines["REGISTER_COUNT"])
	assert.Equal("4097", defines["num1"])
	assert.Equal("4099", defines["result"])
}

func TestEmulatorSeedReuse(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	assert.NoError(emu.Seed(map[string]int64{"a": 1}))
	assert.NoError(emu.Seed(map[string]int64{"a": 2, "b": 3}))

	addr_a, _ := emu.Symbol("a")
	addr_b, _ := emu.Symbol("b")
	assert.Equal(int64(SYMBOL_BASE), addr_a)
	assert.Equal(int64(SYMBOL_BASE+1), addr_b)
	assert.Equal(int64(2), emu.Cpu.Memory.Load(addr_a))
}

func TestEmulatorSeedInvalid(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	err := emu.Seed(map[string]int64{"not a symbol": 1})
	assert.ErrorIs(err, ErrSeedAddress)
	assert.Equal(ErrSeed("not a symbol"), err)

	err = emu.Seed(map[string]int64{" 12 ": 4, "-3": 9})
	assert.NoError(err)
	assert.Equal(int64(4), emu.Cpu.Memory.Load(12))
	assert.Equal(int64(9), emu.Cpu.Memory.Load(-3))
}

func TestEmulatorSeedReserved(t *testing.T) {
	table := [](struct {
		name string
		key  string
	}){
		{"register", "x1"},
		{"register_high", "x30"},
		{"lineno", "LINENO"},
		{"register_count", "REGISTER_COUNT"},
		{"symbol_base", "SYMBOL_BASE"},
	}

	for _, entry := range table {
		emu := NewEmulator()

		err := emu.Seed(map[string]int64{entry.key: 9, "other": 1})
		assert.ErrorIs(t, err, ErrSeedReserved, entry.name)
		assert.Equal(t, ErrSeedName(entry.key), err, entry.name)

		_, ok := emu.Symbol("other")
		assert.False(t, ok, entry.name)
		assert.Equal(t, 0, emu.Cpu.Memory.Len(), entry.name)

		err = emu.LoadLines([]string{
			"ldr x1, =5",
			"mov x2, #1",
			"ldr x0, =LINENO",
		})
		assert.NoError(t, err, entry.name)
		assert.NoError(t, emu.Run(), entry.name)
		assert.Equal(t, int64(5), emu.Cpu.Register[1], entry.name)
		assert.Equal(t, int64(3), emu.Cpu.Register[0], entry.name)
	}

	// Register-like names outside the register file are plain symbols.
	emu := NewEmulator()
	assert.NoError(t, emu.Seed(map[string]int64{"x31": 2, "lineno": 3}))
	_, ok := emu.Symbol("x31")
	assert.True(t, ok)
}

func TestEmulatorSingle(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	program := []string{
		"start:",
		"mov x0, #16",
		"mov x1, #32",
		"middle:",
		"add x2, x0, x1",
		"mul x3, x2, #2",
		"svc #0",
		"end:",
	}

	doRunSingle(emu, program, t)

	assert.Equal(int64(48), emu.Cpu.Register[2])
	assert.Equal(int64(96), emu.Cpu.Register[3])
	assert.Equal(5, emu.Ticks())
}

func TestEmulatorStepCount(t *testing.T) {
	table := [](struct {
		name    string
		program []string
	}){
		{"empty", []string{}},
		{"labels", []string{"a:", "b:"}},
		{"one", []string{"mov x0, #1"}},
		{"mixed", []string{"a:", "mov x0, #1", "nop", "b:", "str x0, [x1]", "c:"}},
	}

	for _, entry := range table {
		emu := NewEmulator()
		err := emu.LoadLines(entry.program)
		if !assert.NoError(t, err, entry.name) {
			continue
		}

		ticks := 0
		for {
			done, err := emu.Tick()
			assert.NoError(t, err, entry.name)
			if done || err != nil {
				break
			}
			ticks++
		}

		assert.Equal(t, emu.Program.Steps(), ticks, entry.name)
		assert.Equal(t, ticks, emu.Ticks(), entry.name)
		assert.Equal(t, STATE_HALTED, emu.State(), entry.name)
	}
}

func TestEmulatorBranch(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	err := emu.LoadLines([]string{
		"b skip",
		"mov x0, #1",
		"skip:",
		"mov x1, #2",
	})
	assert.NoError(err)

	assert.NoError(emu.Run())
	assert.Equal(int64(0), emu.Cpu.Register[0])
	assert.Equal(int64(2), emu.Cpu.Register[1])
	assert.Equal(2, emu.Ticks())
}

func TestEmulatorSelfBranch(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.MaxTicks = 100

	err := emu.LoadLines([]string{
		"mov x0, #1",
		"spin: b spin",
	})
	assert.NoError(err)

	err = emu.Run()
	assert.ErrorIs(err, ErrTickLimit)
	assert.Equal(100, emu.Ticks())
	assert.Equal(1, emu.Pc())
	assert.Equal(2, emu.LineNo())
	assert.Equal(STATE_RUNNING, emu.State())
}

func TestEmulatorLoop(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.MaxTicks = 11

	err := emu.LoadLines([]string{
		"mov x0, #0",
		"loop:",
		"add x0, x0, #1",
		"b loop",
	})
	assert.NoError(err)

	err = emu.Run()
	assert.ErrorIs(err, ErrTickLimit)
	assert.Equal(int64(5), emu.Cpu.Register[0])
}

func TestEmulatorTickLimitTrailingLabels(t *testing.T) {
	table := [](struct {
		name     string
		program  []string
		maxTicks int
		ticks    int
	}){
		{"trailing_label", []string{"mov x0, #1", "end:"}, 1, 1},
		{"trailing_labels", []string{"mov x0, #1", "mov x1, #2", "a:", "b:"}, 2, 2},
		{"labels_only", []string{"a:", "b:"}, 1, 0},
	}

	for _, entry := range table {
		emu := NewEmulator()
		emu.MaxTicks = entry.maxTicks

		err := emu.LoadLines(entry.program)
		if !assert.NoError(t, err, entry.name) {
			continue
		}

		assert.NoError(t, emu.Run(), entry.name)
		assert.Equal(t, STATE_HALTED, emu.State(), entry.name)
		assert.Equal(t, entry.ticks, emu.Ticks(), entry.name)
	}

	// An executable instruction after the labels still hits the limit.
	emu := NewEmulator()
	emu.MaxTicks = 1
	assert.NoError(t, emu.LoadLines([]string{"mov x0, #1", "end:", "mov x1, #1"}))
	assert.ErrorIs(t, emu.Run(), ErrTickLimit)
	assert.Equal(t, STATE_RUNNING, emu.State())
	assert.Equal(t, int64(0), emu.Cpu.Register[1])
}

func TestEmulatorUnknown(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	assert.NoError(emu.Seed(map[string]int64{"1": 10}))

	err := emu.LoadLines([]string{
		"mov x0, #1",
		"nop",
		"mov x1, #2",
	})
	assert.NoError(err)

	done, err := emu.Tick()
	assert.NoError(err)
	assert.False(done)

	registers := emu.Cpu.Register
	memory := maps.Clone(emu.Cpu.Memory)

	done, err = emu.Tick()
	assert.NoError(err)
	assert.False(done)
	assert.Equal(registers, emu.Cpu.Register)
	assert.Equal(memory, emu.Cpu.Memory)
	assert.Equal(2, emu.Pc())

	assert.NoError(emu.Run())
	assert.Equal(int64(1), emu.Cpu.Register[0])
	assert.Equal(int64(2), emu.Cpu.Register[1])

	if assert.Equal(1, len(emu.Unknown)) {
		unknown := emu.Unknown[0]
		assert.Equal(2, unknown.LineNo)
		assert.Equal(1, unknown.Index)
		assert.Equal("nop", unknown.Line)
		assert.ErrorIs(unknown, cpu.ErrInstructionUnknown)
	}
}

func TestEmulatorUnresolved(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	err := emu.LoadLines([]string{
		"mov x0, #1",
		"; nothing here",
		"b missing",
		"mov x0, #2",
	})
	assert.NoError(err)

	err = emu.Run()

	var rt *ErrRuntime
	if assert.True(errors.As(err, &rt)) {
		assert.Equal(1, rt.Index)
		assert.Equal(3, rt.LineNo)
		assert.Equal("b missing", rt.Line)
	}

	var resolve cpu.ResolutionError
	if assert.True(errors.As(err, &resolve)) {
		assert.Equal("missing", resolve.Label)
	}

	assert.Equal(1, emu.Pc())
	assert.Equal(int64(1), emu.Cpu.Register[0])
}

func TestEmulatorDecodeError(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	err := emu.LoadLines([]string{
		"mov x0, #1",
		"ldr x1, [x0",
	})

	var decode *cpu.DecodeError
	if assert.True(errors.As(err, &decode)) {
		assert.Equal(2, decode.LineNo)
		assert.Equal(1, decode.Index)
	}
	assert.ErrorIs(err, cpu.ErrOperandIndirect)
	assert.Nil(emu.Program)
	assert.Equal(STATE_EMPTY, emu.State())
}

func TestEmulatorReset(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	assert.NoError(emu.Seed(map[string]int64{"0": 0, "5": 5}))
	assert.NoError(emu.LoadString("ldr x0, =5\nldr x1, [x0]\nldr x0, =0\nstr x1, [x0]\nnop\n"))

	assert.NoError(emu.Run())
	assert.Equal(int64(5), emu.Cpu.Memory.Load(0))
	assert.Equal(1, len(emu.Unknown))

	// Halted is terminal until reset.
	done, err := emu.Tick()
	assert.NoError(err)
	assert.True(done)

	assert.NoError(emu.Reset())
	assert.Equal(STATE_READY, emu.State())
	assert.Equal(cpu.RegisterFile{}, emu.Cpu.Register)
	assert.Equal(int64(0), emu.Cpu.Memory.Load(0))
	assert.Equal(0, emu.Ticks())
	assert.Empty(emu.Unknown)

	assert.NoError(emu.Run())
	assert.Equal(int64(5), emu.Cpu.Memory.Load(0))
}

func TestEmulatorVerbose(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Verbose = true

	assert.NoError(emu.Seed(map[string]int64{"total": 0}))
	assert.NoError(emu.LoadLines([]string{
		"dup:",
		"dup:",
		"mov x0, #2",
		"mul x0, x0, x0",
		"ldr x1, =total",
		"str x0, [x1]",
	}))
	assert.Equal(map[string]int{"dup": 1}, emu.Program.Labels)

	assert.NoError(emu.Run())
	assert.Equal(int64(4), emu.Cpu.Memory.Load(SYMBOL_BASE))
	assert.True(emu.Cpu.Verbose)
}

func TestState_String(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("empty", STATE_EMPTY.String())
	assert.Equal("ready", STATE_READY.String())
	assert.Equal("running", STATE_RUNNING.String())
	assert.Equal("halted", STATE_HALTED.String())
	assert.Equal("state(9)", State(9).String())
}
