// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"errors"
	"fmt"

	"github.com/duck-lisp/duckvm/bytecode"
)

// ErrStackUnderflow is returned when an instruction needs more values on
// the stack than are actually present. Reaching this at runtime after
// package validate accepted the program means the program's stack
// effect depends on a value validate could not see statically (e.g. an
// apply or funcall whose argument count was wrong at the call site).
var ErrStackUnderflow = errors.New("vm: stack underflow")

// ErrInvalidFunctionIndex is returned by ExecCode for an out-of-range
// entry point.
var ErrInvalidFunctionIndex = errors.New("vm: invalid function entry point")

// TypeError is returned when an instruction's operand has a Kind it
// cannot operate on.
type TypeError struct {
	Op     string
	Wanted string
	Got    Kind
}

func (e TypeError) Error() string {
	return fmt.Sprintf("vm: %s expected %s, got kind %d", e.Op, e.Wanted, e.Got)
}

// UndefinedGlobalError is returned when push-global references an index
// past the end of the global table.
type UndefinedGlobalError int64

func (e UndefinedGlobalError) Error() string {
	return fmt.Sprintf("vm: undefined global %d", int64(e))
}

// UndefinedCallbackError is returned when ccall references an index with
// no RegisterCallback entry.
type UndefinedCallbackError int64

func (e UndefinedCallbackError) Error() string {
	return fmt.Sprintf("vm: undefined callback %d", int64(e))
}

// ArityError is returned by funcall/apply when the callee's required
// argument count and the call site's argument count disagree.
type ArityError struct {
	Wanted int
	Got    int
}

func (e ArityError) Error() string {
	return fmt.Sprintf("vm: wrong number of arguments: wanted %d, got %d", e.Wanted, e.Got)
}

// RuntimeError wraps any of the above with the program counter at which
// it was raised, the duck-lisp analogue of validate.Error.
type RuntimeError struct {
	PC  int64
	Err error
}

func (e RuntimeError) Error() string {
	return fmt.Sprintf("vm: pc %d: %v", e.PC, e.Err)
}

func (e RuntimeError) Unwrap() error { return e.Err }

// unknownOpcodeError is returned by step when it reads a byte with no
// entry in funcTable and no case in its own control-flow switch: a
// corrupt or hand-edited image.
type unknownOpcodeError bytecode.Op

func (e unknownOpcodeError) Error() string {
	return fmt.Sprintf("vm: unknown opcode %d", byte(e))
}

func errUnknownOpcode(op bytecode.Op) error { return unknownOpcodeError(op) }
