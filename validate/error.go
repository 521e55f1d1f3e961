// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package validate

import (
	"errors"
	"fmt"

	"github.com/duck-lisp/duckvm/ir"
)

// Error wraps a validation error with the IR offset at which it was
// found. Duck-lisp bytecode is a single flat instruction stream, so
// unlike a structured format there is no enclosing function index to
// report.
type Error struct {
	Offset int // index into the ir.Program where the error occurs
	Err    error
}

func (e Error) Error() string {
	return fmt.Sprintf("validate: instruction %d: %v", e.Offset, e.Err)
}

func (e Error) Unwrap() error { return e.Err }

// ErrStackUnderflow is returned when an instruction's stack-index operand
// reaches below the bottom of the locals currently in scope.
var ErrStackUnderflow = errors.New("stack index operand underflows locals")

// ErrEmptyProgram is returned by Program for a program with no
// instructions.
var ErrEmptyProgram = errors.New("empty program")

// UndefinedLabelError is returned when a branch or closure-push
// instruction references a label id that no Label instruction declares.
type UndefinedLabelError int64

func (e UndefinedLabelError) Error() string {
	return fmt.Sprintf("reference to undefined label %d", int64(e))
}

// DuplicateLabelError is returned when two Label instructions in the
// same program declare the same id.
type DuplicateLabelError int64

func (e DuplicateLabelError) Error() string {
	return fmt.Sprintf("label %d declared more than once", int64(e))
}

// InvalidArgCountError is returned when an instruction carries the wrong
// number of arguments for its class.
type InvalidArgCountError struct {
	Class  ir.Class
	Wanted int
	Got    int
}

func (e InvalidArgCountError) Error() string {
	return fmt.Sprintf("%s expects %d argument(s), got %d", e.Class, e.Wanted, e.Got)
}

// InvalidArgKindError is returned when an instruction argument has the
// wrong Kind for its position.
type InvalidArgKindError struct {
	Class    ir.Class
	Position int
	Wanted   ir.ArgKind
	Got      ir.ArgKind
}

func (e InvalidArgKindError) Error() string {
	return fmt.Sprintf("%s argument %d: wanted kind %d, got %d", e.Class, e.Position, e.Wanted, e.Got)
}

// UnreachableHalt is a Warning (not an Error): instructions found after
// an unconditional halt, jump or return, before the next label, are dead
// but not invalid, mirroring the assembler's tolerance of trailing
// internal-nops.
type UnreachableHalt struct {
	Offset int
}

func (e UnreachableHalt) Error() string {
	return fmt.Sprintf("instruction %d is unreachable (follows an unconditional halt/jump/return)", e.Offset)
}

// StringTruncationWarning reports a push-string/push-symbol argument
// whose length exceeds the maximum a 32-bit width variant can address;
// the assembler still emits it truncated rather than refusing to build,
// per the original implementation's leniency here.
type StringTruncationWarning struct {
	Offset int
	Length int
	Max    int
}

func (e StringTruncationWarning) Error() string {
	return fmt.Sprintf("instruction %d: string of length %d truncated to %d bytes", e.Offset, e.Length, e.Max)
}
