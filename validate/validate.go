// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package validate performs structural validation of an ir.Program
// before it is handed to package asm: label references resolve,
// instructions carry the right argument kinds, and stack-index operands
// never reach below the locals known to exist at that point.
package validate

import (
	"github.com/duck-lisp/duckvm/ir"
)

const maxStringBytes = 1<<32 - 1

// Result carries the non-fatal warnings accumulated during a successful
// validation pass.
type Result struct {
	Warnings []error
}

// Program checks prog for structural errors and returns an Error
// wrapping the first one found, along with any warnings collected up to
// that point. A nil error with a non-empty Result.Warnings means the
// program is valid but carries advisory warnings (e.g. a truncated
// string literal).
func Program(prog ir.Program) (Result, error) {
	var res Result

	if len(prog) == 0 {
		return res, Error{Offset: 0, Err: ErrEmptyProgram}
	}

	labels := map[int64]int{}
	for i, instr := range prog {
		if instr.Class != ir.Label {
			continue
		}
		if _, ok := labels[instr.LabelID]; ok {
			return res, Error{Offset: i, Err: DuplicateLabelError(instr.LabelID)}
		}
		labels[instr.LabelID] = i
	}

	sim := &depthSim{}
	haltedAtTopLevel := false

	for i, instr := range prog {
		if haltedAtTopLevel {
			res.Warnings = append(res.Warnings, UnreachableHalt{Offset: i})
		}

		if instr.Class == ir.Label {
			haltedAtTopLevel = false
			continue
		}

		spec, ok := classSpecs[instr.Class]
		if !ok {
			return res, Error{Offset: i, Err: InvalidArgCountError{Class: instr.Class}}
		}

		if len(spec.kinds) != 0 && len(instr.Args) != len(spec.kinds) {
			return res, Error{Offset: i, Err: InvalidArgCountError{
				Class: instr.Class, Wanted: len(spec.kinds), Got: len(instr.Args),
			}}
		}
		for p, wantKind := range spec.kinds {
			got := instr.Args[p]
			if got.Kind != wantKind {
				return res, Error{Offset: i, Err: InvalidArgKindError{
					Class: instr.Class, Position: p, Wanted: wantKind, Got: got.Kind,
				}}
			}
		}

		if instr.Class.Branches() {
			target := instr.Args[0].Int
			if _, ok := labels[target]; !ok {
				return res, Error{Offset: i, Err: UndefinedLabelError(target)}
			}
		}

		if instr.Class.IsClosurePush() {
			if len(instr.Args) < 2 {
				return res, Error{Offset: i, Err: InvalidArgCountError{
					Class: instr.Class, Wanted: 2, Got: len(instr.Args),
				}}
			}
			if instr.Args[0].Kind != ir.KindInteger || instr.Args[1].Kind != ir.KindInteger {
				return res, Error{Offset: i, Err: InvalidArgKindError{
					Class: instr.Class, Position: 0, Wanted: ir.KindInteger, Got: instr.Args[0].Kind,
				}}
			}
			for p := 2; p < len(instr.Args); p++ {
				if instr.Args[p].Kind != ir.KindInteger {
					return res, Error{Offset: i, Err: InvalidArgKindError{
						Class: instr.Class, Position: p, Wanted: ir.KindInteger, Got: instr.Args[p].Kind,
					}}
				}
			}
			target := instr.Args[0].Int
			if _, ok := labels[target]; !ok {
				return res, Error{Offset: i, Err: UndefinedLabelError(target)}
			}
			if err := sim.apply(1); err != nil {
				return res, Error{Offset: i, Err: err}
			}
		}

		if instr.Class == ir.PushString || instr.Class == ir.PushSymbol {
			if n := len(instr.Args[0].Str); n > maxStringBytes {
				res.Warnings = append(res.Warnings, StringTruncationWarning{
					Offset: i, Length: n, Max: maxStringBytes,
				})
			}
		}

		for p, k := range spec.kinds {
			if k != ir.KindIndex {
				continue
			}
			if err := sim.checkIndex(instr.Args[p].Int); err != nil {
				return res, Error{Offset: i, Err: err}
			}
		}

		if !spec.variable {
			if err := sim.apply(spec.stackEffect); err != nil {
				return res, Error{Offset: i, Err: err}
			}
		}

		switch instr.Class {
		case ir.Halt, ir.Jump, ir.Return:
			haltedAtTopLevel = true
		default:
			haltedAtTopLevel = false
		}
	}

	return res, nil
}
