// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/tebeka/atexit"
	"golang.org/x/text/language"

	"github.com/ezrec/arm64sim/emulator"
	"github.com/ezrec/arm64sim/translate"
)

var f = translate.From

// seedFlag collects repeated -m ADDR=VALUE memory seeds.
type seedFlag map[string]int64

func (sf seedFlag) String() string {
	var parts []string
	for key, value := range sf {
		parts = append(parts, fmt.Sprintf("%v=%d", key, value))
	}
	return strings.Join(parts, ",")
}

func (sf seedFlag) Set(text string) (err error) {
	key, value, ok := strings.Cut(text, "=")
	if !ok {
		err = errors.New(f("'%v' is not ADDR=VALUE", text))
		return
	}
	v64, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return
	}
	sf[strings.TrimSpace(key)] = v64
	return
}

func fatalf(format string, args ...any) {
	log.Print(f(format, args...))
	atexit.Exit(1)
}

func main() {
	var compile string
	var ticks int
	var verbose bool
	var dump bool
	var lang string
	seeds := seedFlag{}

	flag.StringVar(&compile, "c", "-", "program file to run ('-' for stdin)")
	flag.Var(seeds, "m", "memory seed ADDR=VALUE (repeatable)")
	flag.IntVar(&ticks, "n", 0, "maximum instructions to execute (0 for no limit)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&dump, "d", false, "Dump the decoded program")
	flag.StringVar(&lang, "lang", "", "message language tag (default from the system locale)")

	flag.Parse()

	if lang != "" {
		tag, err := language.Parse(lang)
		if err != nil {
			fatalf("-lang %v: %v", lang, err)
		}
		translate.SetLanguage(tag)
	}

	if flag.NArg() != 0 {
		fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	inf := os.Stdin
	if compile != "-" {
		var err error
		inf, err = os.Open(compile)
		if err != nil {
			fatalf("%v: %v", compile, err)
		}
		atexit.Register(func() { inf.Close() })
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.MaxTicks = ticks

	err := emu.Seed(seeds)
	if err != nil {
		fatalf("%v: %v", compile, err)
	}

	err = emu.Load(inf)
	if err != nil {
		fatalf("%v: %v", compile, err)
	}

	if dump {
		pp.Println(emu.Program)
	}

	err = emu.Run()
	if err != nil {
		fatalf("%v: %v", compile, err)
	}

	fmt.Println(f("Registers:"))
	for name, value := range emu.Registers() {
		fmt.Printf("%v: %d\n", name, value)
	}

	fmt.Println(f("Memory:"))
	for addr, value := range emu.MemoryCells() {
		fmt.Printf("%d: %d\n", addr, value)
	}

	atexit.Exit(0)
}
