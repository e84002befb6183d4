// Package cpu implements the register machine and assembler for the
// arm64sim toy instruction set.
//
// The machine has 31 signed 64-bit general purpose registers (x0-x30), a
// sparse word-addressed memory, and a program counter that indexes the
// assembled instruction sequence. The instruction set is a small load/store
// subset: immediate loads (ldr =, mov #), indirect loads and stores, add,
// mul, svc (no-op) and the unconditional branch b.
//
// The assembler decodes text once into typed instructions, supporting
// labels, .equ equates, and compile-time $(...) expression evaluation.
package cpu
