// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"github.com/duck-lisp/duckvm/bytecode"
	"github.com/duck-lisp/duckvm/ir"
)

// emit serializes units, with all branch widths already frozen, into
// the final bytecode image.
func emit(units []unit) []byte {
	unitOffsets, labelOffsets := offsetsOf(units)

	total := 0
	for _, u := range units {
		total += u.size()
	}
	out := make([]byte, 0, total)

	for i, u := range units {
		switch {
		case u.isLabel:
			continue

		case u.isBranch:
			base := branchOpBase(u.class)
			out = append(out, byte(opForWidth(base, u.width)))
			disp := resolvedDisplacement(units, unitOffsets, labelOffsets, i)
			out = append(out, encodeUint(uint64(disp), u.width)...)
			out = append(out, u.payload...)

		default:
			out = append(out, u.payload...)
		}
	}

	return out
}

func branchOpBase(c ir.Class) bytecode.Op {
	switch c {
	case ir.Jump:
		return bytecode.Jump8
	case ir.Brz:
		return bytecode.Brz8
	case ir.Brnz:
		return bytecode.Brnz8
	case ir.Call:
		return bytecode.Call8
	case ir.Acall:
		return bytecode.Acall8
	case ir.Funcall:
		return bytecode.Funcall8
	case ir.Apply:
		return bytecode.Apply8
	case ir.PushClosure:
		return bytecode.PushClosure8
	case ir.PushVaClosure:
		return bytecode.PushVaClosure8
	default:
		panic("branchOpBase: not a branch-family class: " + c.String())
	}
}
