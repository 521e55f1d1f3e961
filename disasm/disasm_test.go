// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm_test

import (
	"testing"

	"github.com/duck-lisp/duckvm/asm"
	"github.com/duck-lisp/duckvm/disasm"
	"github.com/duck-lisp/duckvm/ir"
)

func assemble(t *testing.T, prog ir.Program) []byte {
	t.Helper()
	img, _, err := asm.Assemble(prog)
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	return img.Code
}

func TestDisassembleArithmetic(t *testing.T) {
	code := assemble(t, ir.Program{
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(3)}},
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(4)}},
		{Class: ir.Add, Args: []ir.Arg{ir.Index(0), ir.Index(1)}},
		{Class: ir.Halt},
	})

	d, err := disasm.Disassemble(code)
	if err != nil {
		t.Fatalf("Disassemble error: %v", err)
	}
	if len(d.Code) != 4 {
		t.Fatalf("got %d instructions, want 4: %v", len(d.Code), d.Code)
	}

	wantMnemonics := []string{"push.int.8", "push.int.8", "add.8", "halt"}
	for i, want := range wantMnemonics {
		if got := d.Code[i].Op.String(); got != want {
			t.Errorf("instr %d mnemonic = %q, want %q", i, got, want)
		}
	}

	add := d.Code[2]
	if len(add.Immediates) != 2 || add.Immediates[0] != int64(0) || add.Immediates[1] != int64(1) {
		t.Errorf("add immediates = %v, want [0 1]", add.Immediates)
	}
}

func TestDisassembleBranchAndClosure(t *testing.T) {
	code := assemble(t, ir.Program{
		{Class: ir.PushClosure, Args: []ir.Arg{ir.Int(0), ir.Int(1)}},
		{Class: ir.Halt},
		ir.NewLabel(0),
		{Class: ir.Return, Args: []ir.Arg{ir.Int(0)}},
	})

	d, err := disasm.Disassemble(code)
	if err != nil {
		t.Fatalf("Disassemble error: %v", err)
	}

	push := d.Code[0]
	if push.Op.String() != "push.closure.32" {
		t.Fatalf("first instr = %s, want push.closure.32", push.Op)
	}
	// addr, arity, captureCount
	if len(push.Immediates) != 3 {
		t.Fatalf("push.closure immediates = %v, want 3 entries", push.Immediates)
	}
	if push.Immediates[1] != int64(1) {
		t.Errorf("closure arity = %v, want 1", push.Immediates[1])
	}
	if push.Immediates[2] != int64(0) {
		t.Errorf("closure capture count = %v, want 0", push.Immediates[2])
	}

	last := d.Code[len(d.Code)-1]
	if last.Op.String() != "return0" {
		t.Errorf("final instr = %s, want return0 (n == 0 must encode as return0)", last.Op)
	}
}

func TestDisassembleRejectsTruncatedOperand(t *testing.T) {
	code := assemble(t, ir.Program{
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(1000)}}, // push.int.16: opcode + 2 operand bytes
		{Class: ir.Halt},
	})
	// Keep the opcode byte and only one of its two operand bytes.
	if _, err := disasm.Disassemble(code[:2]); err == nil {
		t.Fatal("expected an error disassembling a truncated operand, got nil")
	}
}
