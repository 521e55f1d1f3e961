// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"testing"

	"github.com/duck-lisp/duckvm/bytecode"
	"github.com/duck-lisp/duckvm/disasm"
	"github.com/duck-lisp/duckvm/ir"
	"github.com/duck-lisp/duckvm/vm"
)

// S1: trivial push/halt.
func TestScenarioS1TrivialPushHalt(t *testing.T) {
	prog := ir.Program{
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(42)}},
		{Class: ir.Halt},
	}
	img, _, err := Assemble(prog)
	assert(t, err == nil, "Assemble error: %v", err)

	want := []byte{byte(bytecode.PushInteger8), 0x2A, byte(bytecode.Halt)}
	assert(t, len(img.Code) == len(want), "len(Code) = %d, want %d", len(img.Code), len(want))
	for i := range want {
		assert(t, img.Code[i] == want[i], "Code[%d] = 0x%02x, want 0x%02x", i, img.Code[i], want[i])
	}

	m := vm.NewVM(img.Code, 0)
	defer m.Close()
	if _, err := m.ExecCode(0); err != nil {
		t.Fatalf("ExecCode error: %v", err)
	}
	top, err := m.VMPeek(0)
	if err != nil {
		t.Fatalf("VMPeek error: %v", err)
	}
	if top.Kind != vm.KindInteger || top.Integer != 42 {
		t.Fatalf("top of stack = %+v, want Integer(42)", top)
	}
}

// S2: a short back-edge jump assembles to the 8-bit variant.
func TestScenarioS2BranchWidthShrinking(t *testing.T) {
	prog := ir.Program{
		ir.NewLabel(0),
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(0)}},
		{Class: ir.Pop, Args: []ir.Arg{ir.Int(1)}},
		{Class: ir.Jump, Args: []ir.Arg{ir.Int(0)}},
	}
	img, _, err := Assemble(prog)
	assert(t, err == nil, "Assemble error: %v", err)

	d, err := disasm.Disassemble(img.Code)
	assert(t, err == nil, "Disassemble error: %v", err)

	var jump *disasm.Instr
	for i := range d.Code {
		if d.Code[i].Op.Base() == bytecode.Jump8 {
			jump = &d.Code[i]
		}
	}
	assert(t, jump != nil, "no jump instruction found in disassembly")
	assert(t, jump.Op == bytecode.Jump8, "jump opcode = %v, want Jump8", jump.Op)
}

// S3: 200 nops between a forward jump and its target force the 16-bit
// variant.
func TestScenarioS3BranchWidthForced16(t *testing.T) {
	prog := make(ir.Program, 0, 210)
	prog = append(prog, ir.Instruction{Class: ir.Jump, Args: []ir.Arg{ir.Int(0)}})
	for i := 0; i < 200; i++ {
		prog = append(prog, ir.Instruction{Class: ir.Nop})
	}
	prog = append(prog, ir.NewLabel(0))
	prog = append(prog, ir.Instruction{Class: ir.Halt})

	img, _, err := Assemble(prog)
	assert(t, err == nil, "Assemble error: %v", err)

	op := bytecode.Op(img.Code[0])
	assert(t, op == bytecode.Jump16, "first opcode = %v, want Jump16", op)
}

// S4: push/pop elimination leaves only halt.
func TestScenarioS4PushPopElimination(t *testing.T) {
	prog := ir.Program{
		{Class: ir.PushBoolean, Args: []ir.Arg{ir.Int(1)}},
		{Class: ir.Pop, Args: []ir.Arg{ir.Int(1)}},
		{Class: ir.Halt},
	}
	img, _, err := Assemble(prog)
	assert(t, err == nil, "Assemble error: %v", err)
	assert(t, len(img.Code) == 1, "len(Code) = %d, want 1", len(img.Code))
	assert(t, img.Code[0] == byte(bytecode.Halt), "Code[0] = %d, want Halt", img.Code[0])
}

// S5: a closure capturing one local is invoked twice, each call setting
// its own upvalue to a fresh argument and returning the new value.
func TestScenarioS5ClosureCaptureAndMutation(t *testing.T) {
	const setget = 0

	prog := ir.Program{
		// main
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(0)}},                            // 0: local0 = 0
		{Class: ir.PushClosure, Args: []ir.Arg{ir.Int(setget), ir.Int(1), ir.Int(1)}}, // 1: local1 = closure(local0)
		{Class: ir.PushLocal, Args: []ir.Arg{ir.Index(0)}},                            // 2: dup closure
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(11)}},                           // 3: arg
		{Class: ir.Funcall, Args: []ir.Arg{ir.Index(1), ir.Int(1)}},                   // 4: result1 = setget(11)
		{Class: ir.PushLocal, Args: []ir.Arg{ir.Index(1)}},                            // 5: dup closure again
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(22)}},                           // 6: arg
		{Class: ir.Funcall, Args: []ir.Arg{ir.Index(1), ir.Int(1)}},                   // 7: result2 = setget(22)
		{Class: ir.Halt},

		// setget(arg): sets its own upvalue to arg, then moves the updated
		// value down onto the argument's slot so return has nothing left
		// to discard.
		ir.NewLabel(setget),
		{Class: ir.SetUpvalue, Args: []ir.Arg{ir.Index(0), ir.Index(0)}},
		{Class: ir.PushUpvalue, Args: []ir.Arg{ir.Index(0)}},
		{Class: ir.Move, Args: []ir.Arg{ir.Index(0), ir.Index(1)}},
		{Class: ir.Return, Args: []ir.Arg{ir.Int(0)}},
	}

	img, warnings, err := Assemble(prog)
	assert(t, err == nil, "Assemble error: %v", err)
	for _, w := range warnings {
		t.Logf("assemble warning: %v", w)
	}

	m := vm.NewVM(img.Code, 0)
	defer m.Close()
	if _, err := m.ExecCode(0); err != nil {
		t.Fatalf("ExecCode error: %v", err)
	}

	result2, err := m.VMPeek(0)
	assert(t, err == nil, "VMPeek(0) error: %v", err)
	assert(t, result2.Kind == vm.KindInteger && result2.Integer == 22, "result2 = %+v, want Integer(22)", result2)

	result1, err := m.VMPeek(1)
	assert(t, err == nil, "VMPeek(1) error: %v", err)
	assert(t, result1.Kind == vm.KindInteger && result1.Integer == 11, "result1 = %+v, want Integer(11)", result1)
}

// S6: the jump-size minimizer's tie-breaker must not swap which label a
// jump resolves to when two candidate jumps sit at the same offset.
func TestScenarioS6TieBreakerRegression(t *testing.T) {
	const l1, l2 = 0, 1

	prog := ir.Program{
		ir.NewLabel(l1),
		{Class: ir.Jump, Args: []ir.Arg{ir.Int(l2)}},
		{Class: ir.Nop},
		{Class: ir.Jump, Args: []ir.Arg{ir.Int(l1)}},
		ir.NewLabel(l2),
	}

	img, _, err := Assemble(prog)
	assert(t, err == nil, "Assemble error: %v", err)

	d, err := disasm.Disassemble(img.Code)
	assert(t, err == nil, "Disassemble error: %v", err)
	assert(t, len(d.Code) == 3, "len(instructions) = %d, want 3 (jump, nop, jump)", len(d.Code))

	firstJump := d.Code[0]
	nop := d.Code[1]
	secondJump := d.Code[2]

	assert(t, nop.Op == bytecode.Nop, "middle instruction = %v, want Nop", nop.Op)

	firstDisp := firstJump.Immediates[0].(int64)
	firstTarget := firstJump.Offset + int(firstJump.Op.WidthOf().OperandBytes()) + 1 + int(firstDisp)
	assert(t, firstTarget == len(img.Code), "first jump (l1->l2) target = %d, want end of image (%d)", firstTarget, len(img.Code))

	secondDisp := secondJump.Immediates[0].(int64)
	secondTarget := secondJump.Offset + int(secondJump.Op.WidthOf().OperandBytes()) + 1 + int(secondDisp)
	assert(t, secondTarget == 0, "second jump (l2->l1) target = %d, want 0", secondTarget)
}
