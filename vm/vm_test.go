// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm_test

import (
	"testing"

	"github.com/duck-lisp/duckvm/asm"
	"github.com/duck-lisp/duckvm/ir"
	"github.com/duck-lisp/duckvm/vm"
)

func assert(t *testing.T, cond bool, format string, args ...interface{}) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func runProgram(t *testing.T, prog ir.Program) (*vm.VM, int64) {
	t.Helper()
	img, _, err := asm.Assemble(prog)
	assert(t, err == nil, "Assemble error: %v", err)
	m := vm.NewVM(img.Code, 0)
	t.Cleanup(func() { m.Close() })
	code, err := m.ExecCode(0)
	assert(t, err == nil, "ExecCode error: %v", err)
	return m, code
}

func TestArithmeticAndHalt(t *testing.T) {
	prog := ir.Program{
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(3)}},
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(4)}},
		{Class: ir.Add, Args: []ir.Arg{ir.Index(0), ir.Index(1)}},
		{Class: ir.Halt},
	}
	_, code := runProgram(t, prog)
	assert(t, code == 7, "halt code = %d, want 7", code)
}

func TestBrzSkipsOnFalse(t *testing.T) {
	prog := ir.Program{
		{Class: ir.PushBoolean, Args: []ir.Arg{ir.Int(0)}},
		{Class: ir.Brz, Args: []ir.Arg{ir.Int(0), ir.Int(0)}},
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(99)}},
		{Class: ir.Halt},
		ir.NewLabel(0),
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(1)}},
		{Class: ir.Halt},
	}
	_, code := runProgram(t, prog)
	assert(t, code == 1, "halt code = %d, want 1 (brz should have jumped)", code)
}

func TestBrnzFallsThroughOnFalse(t *testing.T) {
	prog := ir.Program{
		{Class: ir.PushBoolean, Args: []ir.Arg{ir.Int(0)}},
		{Class: ir.Brnz, Args: []ir.Arg{ir.Int(0), ir.Int(0)}},
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(42)}},
		{Class: ir.Halt},
		ir.NewLabel(0),
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(99)}},
		{Class: ir.Halt},
	}
	_, code := runProgram(t, prog)
	assert(t, code == 42, "halt code = %d, want 42 (brnz should not have jumped)", code)
}

func TestConsCarCdr(t *testing.T) {
	prog := ir.Program{
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(1)}},
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(2)}},
		{Class: ir.Cons, Args: []ir.Arg{ir.Index(0), ir.Index(1)}},
		{Class: ir.Car, Args: []ir.Arg{ir.Index(0)}},
		{Class: ir.Halt},
	}
	_, code := runProgram(t, prog)
	assert(t, code == 1, "car of (1 . 2) = %d, want 1", code)
}

func TestCollectKeepsReachableObject(t *testing.T) {
	m := vm.NewVM([]byte{}, 0)
	defer m.Close()

	reachable := m.VMAllocInteger(7)
	m.VMPush(reachable)
	m.VMAllocInteger(99) // never pushed, never pinned: garbage

	m.Collect()

	top, err := m.VMPeek(0)
	assert(t, err == nil, "VMPeek error: %v", err)
	assert(t, top == reachable, "collector dropped a reachable object")
}

func TestPinSurvivesCollectionWithoutStackReference(t *testing.T) {
	m := vm.NewVM([]byte{}, 0)
	defer m.Close()

	pinned := m.VMAllocInteger(123)
	m.VMGCPin(pinned)

	m.Collect()

	m.VMPush(pinned)
	top, err := m.VMPeek(0)
	assert(t, err == nil, "VMPeek error: %v", err)
	assert(t, top.Integer == 123, "pinned object did not survive collection: got %v", top)
	m.VMGCUnpin(pinned)
}
