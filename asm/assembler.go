// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"github.com/duck-lisp/duckvm/ir"
	"github.com/duck-lisp/duckvm/validate"
)

// Image is a finished bytecode program: the raw byte stream the VM
// loads and starts executing from offset 0.
type Image struct {
	Code []byte
}

// Assemble validates prog, runs the peephole optimizer, linearizes the
// result into fixed- and variable-width units, minimizes jump widths to
// a fixed point, and emits the final byte stream. Warnings (truncated
// strings, unreachable code, a minimizer that hit its iteration bound)
// never prevent assembly from succeeding; only a validate or asm Error
// does.
func Assemble(prog ir.Program) (Image, []error, error) {
	var warnings []error

	vres, err := validate.Program(prog)
	if err != nil {
		return Image{}, nil, err
	}
	warnings = append(warnings, vres.Warnings...)

	optimized := Peephole(prog)

	units, err := linearize(optimized)
	if err != nil {
		return Image{}, warnings, err
	}

	links := collectJumpLinks(units)
	warnings = append(warnings, minimizeJumps(units, links)...)

	logger.Printf("assembled %d IR instructions into %d units", len(optimized), len(units))

	return Image{Code: emit(units)}, warnings, nil
}
