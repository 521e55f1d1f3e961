// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm_test

import (
	"testing"

	"github.com/duck-lisp/duckvm/ir"
)

// TestFuncallReturnsResult calls a one-argument closure that adds one to
// its argument, through the ordinary fn-index/arity calling convention.
func TestFuncallReturnsResult(t *testing.T) {
	prog := ir.Program{
		// main
		{Class: ir.PushClosure, Args: []ir.Arg{ir.Int(0), ir.Int(1)}}, // -> addOne, arity 1
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(10)}},
		{Class: ir.Funcall, Args: []ir.Arg{ir.Index(1), ir.Int(1)}},
		{Class: ir.Halt},

		ir.NewLabel(0), // addOne(arg)
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(1)}},
		{Class: ir.Add, Args: []ir.Arg{ir.Index(0), ir.Index(1)}},
		{Class: ir.Return, Args: []ir.Arg{ir.Int(0)}},
	}
	_, code := runProgram(t, prog)
	assert(t, code == 11, "funcall result = %d, want 11", code)
}

// TestVariadicClosureConsesExcessArgs calls a variadic closure with more
// arguments than its fixed arity and checks the excess landed, in
// order, in the consed trailing list.
func TestVariadicClosureConsesExcessArgs(t *testing.T) {
	prog := ir.Program{
		// main: call f(1, 2, 3) where f has fixed arity 1
		{Class: ir.PushVaClosure, Args: []ir.Arg{ir.Int(0), ir.Int(1)}}, // target, arity 1
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(1)}},
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(2)}},
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(3)}},
		{Class: ir.Funcall, Args: []ir.Arg{ir.Index(3), ir.Int(3)}},
		{Class: ir.Halt},

		ir.NewLabel(0), // f(fixed, rest...): returns car(rest) + car(cdr(rest))
		{Class: ir.Car, Args: []ir.Arg{ir.Index(0)}},
		{Class: ir.Cdr, Args: []ir.Arg{ir.Index(1)}},
		{Class: ir.Car, Args: []ir.Arg{ir.Index(0)}},
		{Class: ir.Add, Args: []ir.Arg{ir.Index(0), ir.Index(2)}},
		{Class: ir.Return, Args: []ir.Arg{ir.Int(0)}},
	}
	_, code := runProgram(t, prog)
	assert(t, code == 5, "car(rest)+car(cdr(rest)) = %d, want 5 (rest = (2 3))", code)
}

// TestApplySplicesTrailingList calls a two-argument closure via apply,
// splicing a two-element list as the tail of the argument sequence.
func TestApplySplicesTrailingList(t *testing.T) {
	prog := ir.Program{
		{Class: ir.PushClosure, Args: []ir.Arg{ir.Int(0), ir.Int(2)}}, // -> sum2, arity 2
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(10)}},
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(20)}},
		{Class: ir.Nil},
		{Class: ir.Cons, Args: []ir.Arg{ir.Index(0), ir.Index(1)}}, // (20 . nil)
		{Class: ir.Cons, Args: []ir.Arg{ir.Index(0), ir.Index(3)}}, // (10 20)
		{Class: ir.Apply, Args: []ir.Arg{ir.Index(5), ir.Int(1)}},
		{Class: ir.Halt},

		ir.NewLabel(0), // sum2(a, b)
		{Class: ir.Add, Args: []ir.Arg{ir.Index(0), ir.Index(1)}},
		{Class: ir.Return, Args: []ir.Arg{ir.Int(0)}},
	}
	_, code := runProgram(t, prog)
	assert(t, code == 30, "apply-spliced sum = %d, want 30", code)
}
