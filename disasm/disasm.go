// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm pretty-prints duck-lisp bytecode images back into a
// mnemonic-per-line listing. It never reconstructs ir.Program: the
// bytecode has already discarded labels in favor of absolute/relative
// byte displacements, so a disassembly is for human inspection and
// golden-file testing only.
package disasm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/duck-lisp/duckvm/bytecode"
)

// Instr describes one decoded instruction: its opcode, the byte offset
// it starts at, and its immediate operands in emission order.
//
// Immediates holds, per class of operand:
//   - stack-index / count / capture fields: int64
//   - the pushDouble literal: float64
//   - pushString/pushSymbol payloads: string
type Instr struct {
	Op         bytecode.Op
	Offset     int
	Immediates []interface{}
}

// Disassembly is the result of disassembling a bytecode image.
type Disassembly struct {
	Code []Instr
}

var ErrTruncated = errors.New("disasm: instruction truncated at end of image")

// Disassemble decodes code into a linear instruction listing. It does
// not validate jump targets or stack effects; see the validate package
// for that.
func Disassemble(code []byte) (*Disassembly, error) {
	r := bytes.NewReader(code)
	d := &Disassembly{}

	for {
		offset := len(code) - r.Len()
		opByte, err := r.ReadByte()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		op := bytecode.Op(opByte)
		if !op.Valid() {
			return nil, fmt.Errorf("disasm: invalid opcode 0x%02x at offset %d", opByte, offset)
		}

		instr := Instr{Op: op, Offset: offset, Immediates: []interface{}{}}

		if err := decodeOperands(&instr, op, r); err != nil {
			return nil, err
		}

		d.Code = append(d.Code, instr)
	}

	return d, nil
}

// decodeOperands reads the operand bytes belonging to op, in exactly
// the order the VM's dispatch table fetches them (see vm/funcs.go,
// vm/calls.go, vm/dispatch.go). A family's width variant is read off
// the already-decoded opcode itself via Op.WidthOf.
func decodeOperands(instr *Instr, op bytecode.Op, r *bytes.Reader) error {
	switch op.Base() {
	case bytecode.PushBoolean:
		b, err := r.ReadByte()
		if err != nil {
			return ErrTruncated
		}
		instr.Immediates = append(instr.Immediates, b != 0)

	case bytecode.PushInteger8:
		v, err := readInt(r, op.WidthOf())
		if err != nil {
			return err
		}
		instr.Immediates = append(instr.Immediates, v)

	case bytecode.PushDoubleNative:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return ErrTruncated
		}
		instr.Immediates = append(instr.Immediates, math.Float64frombits(binary.BigEndian.Uint64(buf[:])))

	case bytecode.PushString8, bytecode.PushSymbol8:
		n, err := readUint(r, op.WidthOf())
		if err != nil {
			return err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return ErrTruncated
		}
		instr.Immediates = append(instr.Immediates, string(buf))

	case bytecode.PushLocal8, bytecode.PushUpvalue8, bytecode.PushGlobal8:
		v, err := readUint(r, op.WidthOf())
		if err != nil {
			return err
		}
		instr.Immediates = append(instr.Immediates, v)

	case bytecode.MakeType:
		b, err := r.ReadByte()
		if err != nil {
			return ErrTruncated
		}
		instr.Immediates = append(instr.Immediates, int64(b))

	case bytecode.Pop8, bytecode.Ccall8:
		v, err := readUint(r, op.WidthOf())
		if err != nil {
			return err
		}
		instr.Immediates = append(instr.Immediates, v)

	case bytecode.Return8:
		v, err := readUint(r, op.WidthOf())
		if err != nil {
			return err
		}
		instr.Immediates = append(instr.Immediates, v)

	case bytecode.Jump8:
		disp, err := readInt(r, op.WidthOf())
		if err != nil {
			return err
		}
		instr.Immediates = append(instr.Immediates, disp)

	case bytecode.Brz8, bytecode.Brnz8:
		disp, err := readInt(r, op.WidthOf())
		if err != nil {
			return err
		}
		pops, err := r.ReadByte()
		if err != nil {
			return ErrTruncated
		}
		instr.Immediates = append(instr.Immediates, disp, int64(pops))

	case bytecode.Call8:
		disp, err := readInt(r, op.WidthOf())
		if err != nil {
			return err
		}
		pops, err := r.ReadByte()
		if err != nil {
			return ErrTruncated
		}
		instr.Immediates = append(instr.Immediates, disp, int64(pops))

	case bytecode.Acall8:
		count, err := readUint(r, op.WidthOf())
		if err != nil {
			return err
		}
		calleeIdx, err := readUint(r, op.WidthOf())
		if err != nil {
			return err
		}
		instr.Immediates = append(instr.Immediates, count, calleeIdx)

	case bytecode.Funcall8, bytecode.Apply8:
		fnIdx, err := readUint(r, op.WidthOf())
		if err != nil {
			return err
		}
		arity, err := r.ReadByte()
		if err != nil {
			return ErrTruncated
		}
		instr.Immediates = append(instr.Immediates, fnIdx, int64(arity))

	case bytecode.SetUpvalue8:
		upvalIdx, err := readUint(r, op.WidthOf())
		if err != nil {
			return err
		}
		srcIdx, err := readUint(r, bytecode.Width32)
		if err != nil {
			return err
		}
		instr.Immediates = append(instr.Immediates, upvalIdx, srcIdx)

	case bytecode.ReleaseUpvalues8:
		v, err := readUint(r, op.WidthOf())
		if err != nil {
			return err
		}
		instr.Immediates = append(instr.Immediates, v)

	case bytecode.PushClosure8, bytecode.PushVaClosure8:
		addr, err := readUint(r, op.WidthOf())
		if err != nil {
			return err
		}
		arity, err := r.ReadByte()
		if err != nil {
			return ErrTruncated
		}
		captureCount, err := readUint(r, bytecode.Width32)
		if err != nil {
			return err
		}
		instr.Immediates = append(instr.Immediates, addr, int64(arity), captureCount)
		for i := int64(0); i < captureCount; i++ {
			c, err := readInt(r, bytecode.Width32)
			if err != nil {
				return err
			}
			instr.Immediates = append(instr.Immediates, c)
		}

	case bytecode.Vector8:
		v, err := readUint(r, op.WidthOf())
		if err != nil {
			return err
		}
		instr.Immediates = append(instr.Immediates, v)

	case bytecode.Move8,
		bytecode.Add8, bytecode.Sub8, bytecode.Mul8, bytecode.Div8,
		bytecode.Equal8, bytecode.Less8, bytecode.Greater8,
		bytecode.Cons8, bytecode.SetCar8, bytecode.SetCdr8,
		bytecode.MakeVector8, bytecode.GetVecElt8,
		bytecode.Concatenate8, bytecode.SetCompositeValue8, bytecode.SetCompositeFunction8:
		a, err := readUint(r, op.WidthOf())
		if err != nil {
			return err
		}
		b, err := readUint(r, op.WidthOf())
		if err != nil {
			return err
		}
		instr.Immediates = append(instr.Immediates, a, b)

	case bytecode.Car8, bytecode.Cdr8, bytecode.NullP8, bytecode.TypeOf8,
		bytecode.MakeString8, bytecode.Length8,
		bytecode.SymbolString8, bytecode.SymbolID8,
		bytecode.CompositeValue8, bytecode.CompositeFunction8:
		a, err := readUint(r, op.WidthOf())
		if err != nil {
			return err
		}
		instr.Immediates = append(instr.Immediates, a)

	case bytecode.SetVecElt8, bytecode.Substring8, bytecode.MakeInstance8:
		a, err := readUint(r, op.WidthOf())
		if err != nil {
			return err
		}
		b, err := readUint(r, op.WidthOf())
		if err != nil {
			return err
		}
		c, err := readUint(r, op.WidthOf())
		if err != nil {
			return err
		}
		instr.Immediates = append(instr.Immediates, a, b, c)

	case bytecode.Nop, bytecode.Nil, bytecode.Return0, bytecode.Halt:
		// no operands

	default:
		return fmt.Errorf("disasm: unhandled opcode %s", op)
	}

	return nil
}

func readUint(r *bytes.Reader, w bytecode.Width) (int64, error) {
	var buf [4]byte
	n := w.OperandBytes()
	if _, err := io.ReadFull(r, buf[:n]); err != nil {
		return 0, ErrTruncated
	}
	switch w {
	case bytecode.Width8:
		return int64(buf[0]), nil
	case bytecode.Width16:
		return int64(binary.BigEndian.Uint16(buf[:2])), nil
	default:
		return int64(binary.BigEndian.Uint32(buf[:4])), nil
	}
}

func readInt(r *bytes.Reader, w bytecode.Width) (int64, error) {
	var buf [4]byte
	n := w.OperandBytes()
	if _, err := io.ReadFull(r, buf[:n]); err != nil {
		return 0, ErrTruncated
	}
	switch w {
	case bytecode.Width8:
		return int64(int8(buf[0])), nil
	case bytecode.Width16:
		return int64(int16(binary.BigEndian.Uint16(buf[:2]))), nil
	default:
		return int64(int32(binary.BigEndian.Uint32(buf[:4]))), nil
	}
}

// String renders an instruction as "offset: mnemonic imm1 imm2 ...".
func (instr Instr) String() string {
	s := fmt.Sprintf("%6d: %s", instr.Offset, instr.Op)
	for _, imm := range instr.Immediates {
		s += fmt.Sprintf(" %v", imm)
	}
	return s
}
