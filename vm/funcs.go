// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import "github.com/duck-lisp/duckvm/bytecode"

// fetchIndex reads a stack-index operand at width w, the width the
// currently executing opcode variant was assembled with.
func (vm *VM) fetchIndex(w bytecode.Width) int64 { return int64(vm.fetchUint(w)) }

// opForWidth returns the opcode variant of base's three-wide family for
// width w. Mirrors package asm's own opForWidth, which this package
// cannot import without an import cycle.
func opForWidth(base bytecode.Op, w bytecode.Width) bytecode.Op {
	return base + bytecode.Op(w)
}

// newFuncTable wires every non-control-flow opcode to its handler.
// Opcodes not assigned here (control flow, and the obsolete call/acall
// family) are handled directly by step's switch.
func (vm *VM) newFuncTable() {
	t := &vm.funcTable

	t[bytecode.Nop] = func(vm *VM) error { return nil }

	t[bytecode.PushBoolean] = func(vm *VM) error {
		vm.push(vm.alloc(boolObject(vm.fetchByte() != 0)))
		return nil
	}

	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.PushInteger8, w)] = func(vm *VM) error {
			vm.push(vm.alloc(intObject(vm.fetchInt(w))))
			return nil
		}
	}

	t[bytecode.PushDoubleNative] = func(vm *VM) error {
		vm.push(vm.alloc(floatObject(vm.fetchFloat64())))
		return nil
	}

	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.PushString8, w)] = func(vm *VM) error {
			n := vm.fetchUint(w)
			data := vm.fetchBytes(int(n))
			vm.push(vm.alloc(Object{Kind: KindString, Bytes: data, Length: len(data)}))
			return nil
		}
	}

	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.PushSymbol8, w)] = func(vm *VM) error {
			n := vm.fetchUint(w)
			data := vm.fetchBytes(int(n))
			id := vm.symtab.Intern(string(data))
			vm.push(vm.alloc(Object{Kind: KindSymbol, Symbol: id}))
			return nil
		}
	}

	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.PushLocal8, w)] = func(vm *VM) error {
			obj, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			vm.push(obj)
			return nil
		}
	}

	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.PushUpvalue8, w)] = func(vm *VM) error {
			idx := vm.fetchUint(w)
			upvals := vm.currentUpvalues()
			if int(idx) >= len(upvals) {
				return TypeError{Op: "push-upvalue", Wanted: "valid upvalue index", Got: KindNil}
			}
			cell := upvals[idx]
			vm.push(vm.resolveUpvalue(cell))
			return nil
		}
	}

	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.PushGlobal8, w)] = func(vm *VM) error {
			idx := vm.fetchUint(w)
			if int(idx) >= len(vm.globals) {
				return UndefinedGlobalError(int64(idx))
			}
			vm.push(vm.globals[idx])
			return nil
		}
	}

	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.PushClosure8, w)] = vm.makeClosureHandler(w, false)
	}
	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.PushVaClosure8, w)] = vm.makeClosureHandler(w, true)
	}

	t[bytecode.Nil] = func(vm *VM) error { vm.push(vm.alloc(nilObject())); return nil }

	t[bytecode.MakeType] = func(vm *VM) error {
		id := int64(vm.fetchByte())
		vm.push(vm.alloc(Object{Kind: KindType, TypeID: id}))
		return nil
	}

	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.Pop8, w)] = func(vm *VM) error {
			return vm.popN(int64(vm.fetchUint(w)))
		}
	}

	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.SetUpvalue8, w)] = func(vm *VM) error {
			upvalIdx := int(vm.fetchUint(w))
			srcIdx := vm.fetchIndex(bytecode.Width32)
			obj, err := vm.at(srcIdx)
			if err != nil {
				return err
			}
			upvals := vm.currentUpvalues()
			if upvalIdx < 0 || upvalIdx >= len(upvals) {
				return TypeError{Op: "set-upvalue", Wanted: "valid upvalue index", Got: KindNil}
			}
			assignThroughUpvalue(vm, upvals[upvalIdx], obj)
			return nil
		}
	}

	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.ReleaseUpvalues8, w)] = func(vm *VM) error {
			n := int(vm.fetchUint(w))
			for i := len(vm.stack) - n; i < len(vm.stack); i++ {
				vm.closeUpvalueAt(i)
			}
			return nil
		}
	}

	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.Move8, w)] = func(vm *VM) error {
			srcIdx := vm.fetchIndex(w)
			dstIdx := vm.fetchIndex(w)
			val, err := vm.at(srcIdx)
			if err != nil {
				return err
			}
			if err := vm.setAt(dstIdx, val); err != nil {
				return err
			}
			_, err = vm.pop()
			return err
		}
	}

	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.Add8, w)] = vm.binNumeric(w, "add", func(a, b float64) float64 { return a + b }, func(a, b int64) int64 { return a + b })
		vm.funcTable[opForWidth(bytecode.Sub8, w)] = vm.binNumeric(w, "sub", func(a, b float64) float64 { return a - b }, func(a, b int64) int64 { return a - b })
		vm.funcTable[opForWidth(bytecode.Mul8, w)] = vm.binNumeric(w, "mul", func(a, b float64) float64 { return a * b }, func(a, b int64) int64 { return a * b })
		vm.funcTable[opForWidth(bytecode.Div8, w)] = vm.binNumeric(w, "div", func(a, b float64) float64 { return a / b }, func(a, b int64) int64 { return a / b })

		vm.funcTable[opForWidth(bytecode.Equal8, w)] = vm.binCompare(w, "equal", func(a, b *Object) bool { return objectsEqual(a, b) })
		vm.funcTable[opForWidth(bytecode.Less8, w)] = vm.binCompare(w, "less", func(a, b *Object) bool { return numericLess(a, b) })
		vm.funcTable[opForWidth(bytecode.Greater8, w)] = vm.binCompare(w, "greater", func(a, b *Object) bool { return numericLess(b, a) })
	}

	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.Cons8, w)] = func(vm *VM) error {
			cdr, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			car, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			vm.push(vm.alloc(Object{Kind: KindCons, Car: car, Cdr: cdr}))
			return nil
		}
	}
	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.Car8, w)] = vm.unaryAccessor(w, "car", func(o *Object) (*Object, error) {
			if o.Kind != KindCons && o.Kind != KindList {
				return nil, TypeError{Op: "car", Wanted: "cons", Got: o.Kind}
			}
			return o.Car, nil
		})
		vm.funcTable[opForWidth(bytecode.Cdr8, w)] = vm.unaryAccessor(w, "cdr", func(o *Object) (*Object, error) {
			if o.Kind != KindCons && o.Kind != KindList {
				return nil, TypeError{Op: "cdr", Wanted: "cons", Got: o.Kind}
			}
			return o.Cdr, nil
		})
	}
	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.SetCar8, w)] = func(vm *VM) error {
			val, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			cons, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			cons.Car = val
			return nil
		}
		vm.funcTable[opForWidth(bytecode.SetCdr8, w)] = func(vm *VM) error {
			val, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			cons, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			cons.Cdr = val
			return nil
		}
	}
	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.NullP8, w)] = vm.unaryPredicate(w, func(o *Object) bool { return o.Kind == KindNil })
		vm.funcTable[opForWidth(bytecode.TypeOf8, w)] = func(vm *VM) error {
			o, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			vm.push(vm.alloc(Object{Kind: KindType, TypeID: int64(o.Kind)}))
			return nil
		}
	}

	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.MakeVector8, w)] = func(vm *VM) error {
			fill, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			n, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			elems := make([]*Object, n.Integer)
			for i := range elems {
				elems[i] = fill
			}
			vm.push(vm.alloc(Object{Kind: KindVector, Elems: elems, VecLen: len(elems)}))
			return nil
		}
	}
	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.Vector8, w)] = func(vm *VM) error {
			n := int(vm.fetchUint(w))
			elems := make([]*Object, n)
			for i := n - 1; i >= 0; i-- {
				o, err := vm.pop()
				if err != nil {
					return err
				}
				elems[i] = o
			}
			vm.push(vm.alloc(Object{Kind: KindVector, Elems: elems, VecLen: len(elems)}))
			return nil
		}
	}
	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.GetVecElt8, w)] = func(vm *VM) error {
			idx, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			vec, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			if vec.Kind != KindVector {
				return TypeError{Op: "vector-get", Wanted: "vector", Got: vec.Kind}
			}
			if idx.Integer < 0 || idx.Integer >= int64(vec.VecLen) {
				return TypeError{Op: "vector-get", Wanted: "index within the vector", Got: idx.Kind}
			}
			vm.push(vec.Elems[vec.VecStart+int(idx.Integer)])
			return nil
		}
		vm.funcTable[opForWidth(bytecode.SetVecElt8, w)] = func(vm *VM) error {
			val, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			idx, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			vec, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			if vec.Kind != KindVector {
				return TypeError{Op: "vector-set", Wanted: "vector", Got: vec.Kind}
			}
			if idx.Integer < 0 || idx.Integer >= int64(vec.VecLen) {
				return TypeError{Op: "vector-set", Wanted: "index within the vector", Got: idx.Kind}
			}
			vec.Elems[vec.VecStart+int(idx.Integer)] = val
			return nil
		}
	}

	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.MakeString8, w)] = func(vm *VM) error {
			n, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			vm.push(vm.alloc(Object{Kind: KindString, Bytes: make([]byte, n.Integer), Length: int(n.Integer)}))
			return nil
		}
		vm.funcTable[opForWidth(bytecode.Concatenate8, w)] = func(vm *VM) error {
			b, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			a, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			out := append(append([]byte{}, stringBytes(a)...), stringBytes(b)...)
			vm.push(vm.alloc(Object{Kind: KindString, Bytes: out, Length: len(out)}))
			return nil
		}
		vm.funcTable[opForWidth(bytecode.Substring8, w)] = func(vm *VM) error {
			end, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			start, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			s, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			data := stringBytes(s)
			lo, hi := start.Integer, end.Integer
			if lo < 0 || hi > int64(len(data)) || lo > hi {
				return TypeError{Op: "substring", Wanted: "0 <= start <= end <= length", Got: KindString}
			}
			vm.push(vm.alloc(Object{Kind: KindString, Bytes: data[lo:hi], Length: int(hi - lo)}))
			return nil
		}
		vm.funcTable[opForWidth(bytecode.Length8, w)] = func(vm *VM) error {
			o, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			var n int64
			switch o.Kind {
			case KindString, KindInternalString:
				n = int64(len(stringBytes(o)))
			case KindVector, KindInternalVector:
				n = int64(o.VecLen)
			default:
				return TypeError{Op: "length", Wanted: "string or vector", Got: o.Kind}
			}
			vm.push(vm.alloc(intObject(n)))
			return nil
		}
	}

	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.SymbolString8, w)] = func(vm *VM) error {
			o, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			if o.Kind != KindSymbol {
				return TypeError{Op: "symbol-string", Wanted: "symbol", Got: o.Kind}
			}
			name := vm.symtab.Name(o.Symbol)
			vm.push(vm.alloc(Object{Kind: KindString, Bytes: []byte(name), Length: len(name)}))
			return nil
		}
		vm.funcTable[opForWidth(bytecode.SymbolID8, w)] = func(vm *VM) error {
			o, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			if o.Kind != KindSymbol {
				return TypeError{Op: "symbol-id", Wanted: "symbol", Got: o.Kind}
			}
			vm.push(vm.alloc(intObject(int64(o.Symbol))))
			return nil
		}
	}

	for _, w := range widths8to32() {
		w := w
		vm.funcTable[opForWidth(bytecode.MakeInstance8, w)] = func(vm *VM) error {
			fn, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			val, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			typ, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			vm.push(vm.alloc(Object{Kind: KindComposite, CompositeType: typ.TypeID, CompositeValue: val, CompositeFunction: fn}))
			return nil
		}
		vm.funcTable[opForWidth(bytecode.CompositeValue8, w)] = vm.unaryAccessor(w, "composite-value", func(o *Object) (*Object, error) {
			if o.Kind != KindComposite {
				return nil, TypeError{Op: "composite-value", Wanted: "composite", Got: o.Kind}
			}
			return o.CompositeValue, nil
		})
		vm.funcTable[opForWidth(bytecode.CompositeFunction8, w)] = vm.unaryAccessor(w, "composite-function", func(o *Object) (*Object, error) {
			if o.Kind != KindComposite {
				return nil, TypeError{Op: "composite-function", Wanted: "composite", Got: o.Kind}
			}
			return o.CompositeFunction, nil
		})
		vm.funcTable[opForWidth(bytecode.SetCompositeValue8, w)] = func(vm *VM) error {
			val, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			c, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			if c.Kind != KindComposite {
				return TypeError{Op: "set-composite-value", Wanted: "composite", Got: c.Kind}
			}
			c.CompositeValue = val
			return nil
		}
		vm.funcTable[opForWidth(bytecode.SetCompositeFunction8, w)] = func(vm *VM) error {
			val, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			c, err := vm.at(vm.fetchIndex(w))
			if err != nil {
				return err
			}
			if c.Kind != KindComposite {
				return TypeError{Op: "set-composite-function", Wanted: "composite", Got: c.Kind}
			}
			c.CompositeFunction = val
			return nil
		}
	}
}

func widths8to32() []bytecode.Width {
	return []bytecode.Width{bytecode.Width8, bytecode.Width16, bytecode.Width32}
}

func (vm *VM) fetchBytes(n int) []byte {
	b := vm.ctx.code[vm.ctx.pc : vm.ctx.pc+int64(n)]
	vm.ctx.pc += int64(n)
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (vm *VM) unaryAccessor(w bytecode.Width, op string, f func(*Object) (*Object, error)) func(*VM) error {
	return func(vm *VM) error {
		o, err := vm.at(vm.fetchIndex(w))
		if err != nil {
			return err
		}
		res, err := f(o)
		if err != nil {
			return err
		}
		vm.push(res)
		return nil
	}
}

func (vm *VM) unaryPredicate(w bytecode.Width, f func(*Object) bool) func(*VM) error {
	return func(vm *VM) error {
		o, err := vm.at(vm.fetchIndex(w))
		if err != nil {
			return err
		}
		vm.push(vm.alloc(boolObject(f(o))))
		return nil
	}
}

func (vm *VM) binNumeric(w bytecode.Width, op string, ff func(a, b float64) float64, fi func(a, b int64) int64) func(*VM) error {
	return func(vm *VM) error {
		b, err := vm.at(vm.fetchIndex(w))
		if err != nil {
			return err
		}
		a, err := vm.at(vm.fetchIndex(w))
		if err != nil {
			return err
		}
		if a.Kind == KindFloat || b.Kind == KindFloat {
			vm.push(vm.alloc(floatObject(ff(asFloat(a), asFloat(b)))))
			return nil
		}
		if a.Kind != KindInteger || b.Kind != KindInteger {
			return TypeError{Op: op, Wanted: "number", Got: a.Kind}
		}
		if op == "div" && b.Integer == 0 {
			return TypeError{Op: op, Wanted: "nonzero divisor", Got: b.Kind}
		}
		vm.push(vm.alloc(intObject(fi(a.Integer, b.Integer))))
		return nil
	}
}

func (vm *VM) binCompare(w bytecode.Width, op string, f func(a, b *Object) bool) func(*VM) error {
	return func(vm *VM) error {
		b, err := vm.at(vm.fetchIndex(w))
		if err != nil {
			return err
		}
		a, err := vm.at(vm.fetchIndex(w))
		if err != nil {
			return err
		}
		vm.push(vm.alloc(boolObject(f(a, b))))
		return nil
	}
}

func asFloat(o *Object) float64 {
	if o.Kind == KindFloat {
		return o.Float
	}
	return float64(o.Integer)
}

func numericLess(a, b *Object) bool { return asFloat(a) < asFloat(b) }

func objectsEqual(a, b *Object) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindInteger:
		return a.Integer == b.Integer
	case KindFloat:
		return a.Float == b.Float
	case KindSymbol:
		return a.Symbol == b.Symbol
	case KindString, KindInternalString:
		return string(stringBytes(a)) == string(stringBytes(b))
	default:
		return a == b
	}
}

func stringBytes(o *Object) []byte {
	if o.Length == len(o.Bytes) && o.Offset == 0 {
		return o.Bytes
	}
	return o.Bytes[o.Offset : o.Offset+o.Length]
}
