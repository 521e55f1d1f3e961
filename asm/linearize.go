// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm turns a validated ir.Program into a finished bytecode
// image: peephole cleanup, linearization into fixed- and variable-width
// units, jump-size minimization, and byte emission.
package asm

import (
	"encoding/binary"
	"math"

	"github.com/duck-lisp/duckvm/bytecode"
	"github.com/duck-lisp/duckvm/ir"
)

// unit is one linearized slot in the output image. A label declares a
// byte position but itself occupies zero bytes; a branch's width is a
// guess refined by the minimizer; everything else already knows its
// final bytes the moment it is linearized, since push-integer/local/
// string/etc. pick their width from a value that's known up front, not
// from a byte position that might still move.
type unit struct {
	isLabel bool
	labelID int64

	isBranch bool
	class    ir.Class
	target   int64
	width    bytecode.Width

	payload []byte
}

func (u *unit) size() int {
	switch {
	case u.isLabel:
		return 0
	case u.isBranch:
		return 1 + u.width.OperandBytes() + len(u.payload)
	default:
		return len(u.payload)
	}
}

// linearize walks prog and produces the initial unit list. Branch units
// start at the narrowest width; minimizeJumps grows them as needed.
func linearize(prog ir.Program) ([]unit, error) {
	units := make([]unit, 0, len(prog))

	for i, instr := range prog {
		switch {
		case instr.Class == ir.Label:
			units = append(units, unit{isLabel: true, labelID: instr.LabelID})

		case instr.Class.Branches():
			u := unit{
				isBranch: true,
				class:    instr.Class,
				target:   instr.Args[0].Int,
				width:    bytecode.Width8,
			}
			if instr.Class == ir.Brz || instr.Class == ir.Brnz {
				u.payload = []byte{byte(instr.Args[1].Int)}
			}
			units = append(units, u)

		case instr.Class.IsClosurePush():
			// Absolute displacements are always forced to the 32-bit
			// variant (see widthForDisplacement), so there is no point
			// starting narrow here.
			units = append(units, unit{
				isBranch: true,
				class:    instr.Class,
				target:   instr.Args[0].Int,
				width:    bytecode.Width32,
				payload:  encodeClosurePayload(instr),
			})

		default:
			payload, err := encodeFixed(instr)
			if err != nil {
				return nil, Error{Offset: i, Err: err}
			}
			units = append(units, unit{payload: payload})
		}
	}

	return units, nil
}

// encodeFixed serializes every instruction whose bytes never depend on
// another instruction's address: arithmetic, stack-index operands,
// inline literals. Variable-width families here pick their width from
// the operand value itself, so there is nothing left to relax.
func encodeFixed(instr ir.Instruction) ([]byte, error) {
	switch instr.Class {
	case ir.InternalNop, ir.Nop:
		return []byte{byte(bytecode.Nop)}, nil

	case ir.PushBoolean:
		v := byte(0)
		if instr.Args[0].Int != 0 {
			v = 1
		}
		return []byte{byte(bytecode.PushBoolean), v}, nil

	case ir.PushInteger:
		w := widthForSigned(instr.Args[0].Int)
		out := []byte{byte(opForWidth(bytecode.PushInteger8, w))}
		return append(out, encodeUint(uint64(instr.Args[0].Int), w)...), nil

	case ir.PushDouble:
		out := []byte{byte(bytecode.PushDoubleNative)}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(instr.Args[0].Double))
		return append(out, buf[:]...), nil

	case ir.PushString, ir.PushSymbol:
		base := bytecode.PushString8
		if instr.Class == ir.PushSymbol {
			base = bytecode.PushSymbol8
		}
		s := instr.Args[0].Str
		if uint64(len(s)) > math.MaxUint32 {
			s = s[:uint64(math.MaxUint32)]
		}
		w := widthForUnsigned(uint64(len(s)))
		out := []byte{byte(opForWidth(base, w))}
		out = append(out, encodeUint(uint64(len(s)), w)...)
		return append(out, s...), nil

	case ir.PushLocal, ir.PushUpvalue, ir.PushGlobal:
		base := bytecode.PushLocal8
		switch instr.Class {
		case ir.PushUpvalue:
			base = bytecode.PushUpvalue8
		case ir.PushGlobal:
			base = bytecode.PushGlobal8
		}
		w := widthForUnsigned(uint64(instr.Args[0].Int))
		out := []byte{byte(opForWidth(base, w))}
		return append(out, encodeUint(uint64(instr.Args[0].Int), w)...), nil

	case ir.Nil:
		return []byte{byte(bytecode.Nil)}, nil

	case ir.MakeType:
		return []byte{byte(bytecode.MakeType), byte(instr.Args[0].Int)}, nil

	case ir.Pop:
		w := widthForUnsigned(uint64(instr.Args[0].Int))
		out := []byte{byte(opForWidth(bytecode.Pop8, w))}
		return append(out, encodeUint(uint64(instr.Args[0].Int), w)...), nil

	case ir.Funcall:
		// Args[0] is the fn stack-index (the operand the family's width
		// is chosen from, per the ccall/funcall/apply width rule);
		// Args[1] is the call-site arity, always one fixed byte like
		// pushClosure's arity field.
		w := widthForUnsigned(uint64(instr.Args[0].Int))
		out := []byte{byte(opForWidth(bytecode.Funcall8, w))}
		out = append(out, encodeUint(uint64(instr.Args[0].Int), w)...)
		return append(out, byte(instr.Args[1].Int)), nil

	case ir.Apply:
		w := widthForUnsigned(uint64(instr.Args[0].Int))
		out := []byte{byte(opForWidth(bytecode.Apply8, w))}
		out = append(out, encodeUint(uint64(instr.Args[0].Int), w)...)
		return append(out, byte(instr.Args[1].Int)), nil

	case ir.Ccall:
		w := widthForUnsigned(uint64(instr.Args[0].Int))
		out := []byte{byte(opForWidth(bytecode.Ccall8, w))}
		return append(out, encodeUint(uint64(instr.Args[0].Int), w)...), nil

	case ir.Return:
		if instr.Args[0].Int == 0 {
			return []byte{byte(bytecode.Return0)}, nil
		}
		w := widthForUnsigned(uint64(instr.Args[0].Int))
		out := []byte{byte(opForWidth(bytecode.Return8, w))}
		return append(out, encodeUint(uint64(instr.Args[0].Int), w)...), nil

	case ir.Halt:
		return []byte{byte(bytecode.Halt)}, nil

	case ir.SetUpvalue:
		// Args[0] is the upvalue index (its own width family, same as
		// pushUpvalue); Args[1] is the source stack-index operand,
		// always a fixed 32-bit field, unlike the other index operands,
		// whose width maxIndexWidth narrows.
		w := widthForUnsigned(uint64(instr.Args[0].Int))
		out := []byte{byte(opForWidth(bytecode.SetUpvalue8, w))}
		out = append(out, encodeUint(uint64(instr.Args[0].Int), w)...)
		return append(out, encodeUint(uint64(instr.Args[1].Int), bytecode.Width32)...), nil
	case ir.ReleaseUpvalues:
		w := widthForUnsigned(uint64(instr.Args[0].Int))
		out := []byte{byte(opForWidth(bytecode.ReleaseUpvalues8, w))}
		return append(out, encodeUint(uint64(instr.Args[0].Int), w)...), nil

	case ir.Move:
		return encodeTwoIndex(bytecode.Move8, instr), nil

	case ir.Add:
		return encodeTwoIndex(bytecode.Add8, instr), nil
	case ir.Sub:
		return encodeTwoIndex(bytecode.Sub8, instr), nil
	case ir.Mul:
		return encodeTwoIndex(bytecode.Mul8, instr), nil
	case ir.Div:
		return encodeTwoIndex(bytecode.Div8, instr), nil
	case ir.Equal:
		return encodeTwoIndex(bytecode.Equal8, instr), nil
	case ir.Less:
		return encodeTwoIndex(bytecode.Less8, instr), nil
	case ir.Greater:
		return encodeTwoIndex(bytecode.Greater8, instr), nil

	case ir.Cons:
		return encodeTwoIndex(bytecode.Cons8, instr), nil
	case ir.Car:
		return encodeOneIndex(bytecode.Car8, instr), nil
	case ir.Cdr:
		return encodeOneIndex(bytecode.Cdr8, instr), nil
	case ir.SetCar:
		return encodeTwoIndex(bytecode.SetCar8, instr), nil
	case ir.SetCdr:
		return encodeTwoIndex(bytecode.SetCdr8, instr), nil
	case ir.NullP:
		return encodeOneIndex(bytecode.NullP8, instr), nil
	case ir.TypeOf:
		return encodeOneIndex(bytecode.TypeOf8, instr), nil

	case ir.MakeVector:
		return encodeTwoIndex(bytecode.MakeVector8, instr), nil
	case ir.Vector:
		w := widthForUnsigned(uint64(instr.Args[0].Int))
		out := []byte{byte(opForWidth(bytecode.Vector8, w))}
		return append(out, encodeUint(uint64(instr.Args[0].Int), w)...), nil
	case ir.GetVecElt:
		return encodeTwoIndex(bytecode.GetVecElt8, instr), nil
	case ir.SetVecElt:
		return encodeThreeIndex(bytecode.SetVecElt8, instr), nil

	case ir.MakeString:
		return encodeOneIndex(bytecode.MakeString8, instr), nil
	case ir.Concatenate:
		return encodeTwoIndex(bytecode.Concatenate8, instr), nil
	case ir.Substring:
		return encodeThreeIndex(bytecode.Substring8, instr), nil
	case ir.Length:
		return encodeOneIndex(bytecode.Length8, instr), nil

	case ir.SymbolString:
		return encodeOneIndex(bytecode.SymbolString8, instr), nil
	case ir.SymbolID:
		return encodeOneIndex(bytecode.SymbolID8, instr), nil

	case ir.MakeInstance:
		return encodeThreeIndex(bytecode.MakeInstance8, instr), nil
	case ir.CompositeValue:
		return encodeOneIndex(bytecode.CompositeValue8, instr), nil
	case ir.CompositeFunction:
		return encodeOneIndex(bytecode.CompositeFunction8, instr), nil
	case ir.SetCompositeValue:
		return encodeTwoIndex(bytecode.SetCompositeValue8, instr), nil
	case ir.SetCompositeFunction:
		return encodeTwoIndex(bytecode.SetCompositeFunction8, instr), nil

	default:
		return nil, unsupportedClassError{instr.Class}
	}
}

// encodeClosurePayload builds the trailing fixed part of a pushClosure /
// pushVaClosure unit: arity as a single byte, then the capture count and
// each capture as 4-byte big-endian fields. A positive capture is a
// stack distance to alias as a fresh open upvalue; a negative capture
// indexes into the currently executing closure's own upvalues to share
// an already-open or already-closed cell.
func encodeClosurePayload(instr ir.Instruction) []byte {
	arity := instr.Args[1].Int
	captures := instr.Args[2:]

	out := []byte{byte(arity)}
	out = append(out, encodeUint(uint64(len(captures)), bytecode.Width32)...)
	for _, c := range captures {
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(int32(c.Int)))
		out = append(out, buf[:]...)
	}
	return out
}

// maxIndexWidth returns the narrowest width that fits every one of vs, so
// a multi-index instruction encodes all of its stack-index operands at a
// single shared width chosen from the widest one.
func maxIndexWidth(vs ...int64) bytecode.Width {
	w := bytecode.Width8
	for _, v := range vs {
		if got := widthForUnsigned(uint64(v)); got > w {
			w = got
		}
	}
	return w
}

// encodeOneIndex encodes a single-stack-index instruction: base's width
// variant picked from the operand's own magnitude, then the index at
// that width.
func encodeOneIndex(base bytecode.Op, instr ir.Instruction) []byte {
	w := maxIndexWidth(instr.Args[0].Int)
	out := []byte{byte(opForWidth(base, w))}
	return append(out, encodeUint(uint64(instr.Args[0].Int), w)...)
}

// encodeTwoIndex encodes a two-stack-index instruction: both indices
// share the narrowest width that fits the larger of the two.
func encodeTwoIndex(base bytecode.Op, instr ir.Instruction) []byte {
	w := maxIndexWidth(instr.Args[0].Int, instr.Args[1].Int)
	out := []byte{byte(opForWidth(base, w))}
	out = append(out, encodeUint(uint64(instr.Args[0].Int), w)...)
	out = append(out, encodeUint(uint64(instr.Args[1].Int), w)...)
	return out
}

// encodeThreeIndex encodes a three-stack-index instruction: all three
// indices share the narrowest width that fits the largest of them.
func encodeThreeIndex(base bytecode.Op, instr ir.Instruction) []byte {
	w := maxIndexWidth(instr.Args[0].Int, instr.Args[1].Int, instr.Args[2].Int)
	out := []byte{byte(opForWidth(base, w))}
	out = append(out, encodeUint(uint64(instr.Args[0].Int), w)...)
	out = append(out, encodeUint(uint64(instr.Args[1].Int), w)...)
	out = append(out, encodeUint(uint64(instr.Args[2].Int), w)...)
	return out
}

type unsupportedClassError struct{ class ir.Class }

func (e unsupportedClassError) Error() string {
	return "no fixed encoding for " + e.class.String()
}
