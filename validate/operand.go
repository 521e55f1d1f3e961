// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package validate

import "github.com/duck-lisp/duckvm/ir"

// argSpec describes the argument-kind signature expected of an
// instruction class.
type argSpec struct {
	kinds []ir.ArgKind
	// stackEffect is the net number of values the instruction pushes
	// (positive) or pops (negative) once its operands are resolved. It
	// is meaningless when variable is set: those instructions consume or
	// produce a runtime-determined count (ccall, funcall, apply, return,
	// pop-n, vector) and are skipped by the static depth simulator.
	stackEffect int
	variable    bool
}

var classSpecs = map[ir.Class]argSpec{
	ir.Label:       {},
	ir.InternalNop: {},
	ir.Nop:         {},

	ir.PushBoolean: {kinds: []ir.ArgKind{ir.KindInteger}, stackEffect: 1},
	ir.PushInteger: {kinds: []ir.ArgKind{ir.KindInteger}, stackEffect: 1},
	ir.PushDouble:  {kinds: []ir.ArgKind{ir.KindDouble}, stackEffect: 1},
	ir.PushString:  {kinds: []ir.ArgKind{ir.KindString}, stackEffect: 1},
	ir.PushSymbol:  {kinds: []ir.ArgKind{ir.KindString}, stackEffect: 1},
	ir.PushLocal:   {kinds: []ir.ArgKind{ir.KindIndex}, stackEffect: 1},
	ir.PushUpvalue: {kinds: []ir.ArgKind{ir.KindIndex}, stackEffect: 1},
	// PushClosure/PushVaClosure carry a variable trailing capture list
	// (target label, arity, then one entry per capture); validate.go
	// checks their shape specially rather than through classSpecs.
	ir.PushClosure:   {variable: true},
	ir.PushVaClosure: {variable: true},
	ir.PushGlobal:    {kinds: []ir.ArgKind{ir.KindIndex}, stackEffect: 1},
	ir.Nil:           {stackEffect: 1},
	ir.MakeType:      {kinds: []ir.ArgKind{ir.KindInteger}, stackEffect: 1},

	ir.Pop: {kinds: []ir.ArgKind{ir.KindInteger}, variable: true},

	ir.Jump: {kinds: []ir.ArgKind{ir.KindInteger}, stackEffect: 0},
	// Second arg is the trailing pop count discarded before the branch
	// condition is tested; its value is data-dependent so the depth
	// simulator treats these like Pop rather than asserting a fixed
	// stack effect.
	ir.Brz:  {kinds: []ir.ArgKind{ir.KindInteger, ir.KindInteger}, variable: true},
	ir.Brnz: {kinds: []ir.ArgKind{ir.KindInteger, ir.KindInteger}, variable: true},

	ir.Call:    {kinds: []ir.ArgKind{ir.KindInteger, ir.KindInteger}, variable: true},
	ir.Acall:   {kinds: []ir.ArgKind{ir.KindInteger, ir.KindInteger}, variable: true},
	ir.Funcall: {kinds: []ir.ArgKind{ir.KindIndex, ir.KindInteger}, variable: true},
	ir.Apply:   {kinds: []ir.ArgKind{ir.KindIndex, ir.KindInteger}, variable: true},
	ir.Ccall:   {kinds: []ir.ArgKind{ir.KindInteger}, variable: true},
	ir.Return:  {kinds: []ir.ArgKind{ir.KindInteger}, variable: true},
	ir.Halt:    {},

	ir.SetUpvalue:      {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex}, stackEffect: 0},
	ir.ReleaseUpvalues: {kinds: []ir.ArgKind{ir.KindIndex}, stackEffect: 0},

	// Args are (source, destination); the value at source overwrites the
	// slot at destination and is not separately pushed.
	ir.Move: {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex}, stackEffect: -1},

	ir.Add:     {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex}, stackEffect: 1},
	ir.Sub:     {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex}, stackEffect: 1},
	ir.Mul:     {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex}, stackEffect: 1},
	ir.Div:     {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex}, stackEffect: 1},
	ir.Equal:   {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex}, stackEffect: 1},
	ir.Less:    {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex}, stackEffect: 1},
	ir.Greater: {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex}, stackEffect: 1},

	ir.Cons:   {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex}, stackEffect: 1},
	ir.Car:    {kinds: []ir.ArgKind{ir.KindIndex}, stackEffect: 1},
	ir.Cdr:    {kinds: []ir.ArgKind{ir.KindIndex}, stackEffect: 1},
	ir.SetCar: {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex}, stackEffect: 0},
	ir.SetCdr: {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex}, stackEffect: 0},
	ir.NullP:  {kinds: []ir.ArgKind{ir.KindIndex}, stackEffect: 1},
	ir.TypeOf: {kinds: []ir.ArgKind{ir.KindIndex}, stackEffect: 1},

	ir.MakeVector: {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex}, stackEffect: 1},
	ir.Vector:     {kinds: []ir.ArgKind{ir.KindInteger}, variable: true},
	ir.GetVecElt:  {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex}, stackEffect: 1},
	ir.SetVecElt:  {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex, ir.KindIndex}, stackEffect: 0},

	ir.MakeString:  {kinds: []ir.ArgKind{ir.KindIndex}, stackEffect: 1},
	ir.Concatenate: {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex}, stackEffect: 1},
	ir.Substring:   {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex, ir.KindIndex}, stackEffect: 1},
	ir.Length:      {kinds: []ir.ArgKind{ir.KindIndex}, stackEffect: 1},

	ir.SymbolString: {kinds: []ir.ArgKind{ir.KindIndex}, stackEffect: 1},
	ir.SymbolID:     {kinds: []ir.ArgKind{ir.KindIndex}, stackEffect: 1},

	ir.MakeInstance:         {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex, ir.KindIndex}, stackEffect: 1},
	ir.CompositeValue:       {kinds: []ir.ArgKind{ir.KindIndex}, stackEffect: 1},
	ir.CompositeFunction:    {kinds: []ir.ArgKind{ir.KindIndex}, stackEffect: 1},
	ir.SetCompositeValue:    {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex}, stackEffect: 0},
	ir.SetCompositeFunction: {kinds: []ir.ArgKind{ir.KindIndex, ir.KindIndex}, stackEffect: 0},
}
