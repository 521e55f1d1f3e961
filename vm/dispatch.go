// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vm implements the duck-lisp bytecode interpreter: a stack
// machine with closures, upvalues, and a precise tracing collector over
// a tagged heap.
package vm

import (
	"encoding/binary"
	"math"

	"github.com/duck-lisp/duckvm/bytecode"
)

var endianess = binary.BigEndian

// frame is one activation record on the call stack: where to resume the
// caller, and the stack index of the callee's slot, where this call's
// arguments and temporaries begin and where return truncates the stack.
type frame struct {
	returnPC    int64
	localsBase  int
	upvalArrIdx int // index into vm.upvalArrayStack this frame owns
}

// VM is the execution context for a loaded bytecode image.
type VM struct {
	ctx struct {
		code []byte
		pc   int64
	}

	stack     []*Object
	upvalRefs []*Object // parallel to stack; an open UpvalueCell object, or nil

	callStack       []frame
	upvalArrayStack [][]*Object

	globals []*Object

	heap   *Heap
	symtab *SymbolTable

	pinned map[*Object]int

	callbacks map[int64]Callback

	funcTable [256]func(*VM) error

	halted   bool
	haltCode int64
}

// NewVM loads code and prepares globalCount global slots, all
// initialized to nil.
func NewVM(code []byte, globalCount int) *VM {
	vm := &VM{
		heap:      NewHeap(),
		symtab:    NewSymbolTable(),
		pinned:    map[*Object]int{},
		callbacks: map[int64]Callback{},
	}
	vm.ctx.code = code
	vm.globals = make([]*Object, globalCount)
	for i := range vm.globals {
		vm.globals[i] = vm.alloc(nilObject())
	}
	vm.upvalArrayStack = [][]*Object{nil}
	vm.callStack = []frame{{returnPC: -1, localsBase: 0, upvalArrIdx: 0}}
	vm.newFuncTable()
	return vm
}

// RegisterCallback binds a native Go function to a ccall index.
func (vm *VM) RegisterCallback(index int64, cb Callback) {
	vm.callbacks[index] = cb
}

// Close releases resources the Go garbage collector would never reclaim
// on its own, namely the heap's mmap-backed mark bitmap.
func (vm *VM) Close() error { return vm.heap.Close() }

// fetch helpers ------------------------------------------------------

func (vm *VM) fetchByte() byte {
	b := vm.ctx.code[vm.ctx.pc]
	vm.ctx.pc++
	return b
}

func (vm *VM) fetchUint(w bytecode.Width) uint64 {
	switch w {
	case bytecode.Width8:
		return uint64(vm.fetchByte())
	case bytecode.Width16:
		v := endianess.Uint16(vm.ctx.code[vm.ctx.pc:])
		vm.ctx.pc += 2
		return uint64(v)
	default:
		v := endianess.Uint32(vm.ctx.code[vm.ctx.pc:])
		vm.ctx.pc += 4
		return uint64(v)
	}
}

func (vm *VM) fetchInt(w bytecode.Width) int64 {
	switch w {
	case bytecode.Width8:
		return int64(int8(vm.fetchByte()))
	case bytecode.Width16:
		v := endianess.Uint16(vm.ctx.code[vm.ctx.pc:])
		vm.ctx.pc += 2
		return int64(int16(v))
	default:
		v := endianess.Uint32(vm.ctx.code[vm.ctx.pc:])
		vm.ctx.pc += 4
		return int64(int32(v))
	}
}

func (vm *VM) fetchFloat64() float64 {
	v := endianess.Uint64(vm.ctx.code[vm.ctx.pc:])
	vm.ctx.pc += 8
	return math.Float64frombits(v)
}

// push/pop on the value stack ----------------------------------------

func (vm *VM) push(o *Object) {
	vm.stack = append(vm.stack, o)
	vm.upvalRefs = append(vm.upvalRefs, nil)
}

func (vm *VM) pop() (*Object, error) {
	n := len(vm.stack) - 1
	if n < 0 {
		return nil, ErrStackUnderflow
	}
	o := vm.stack[n]
	vm.closeUpvalueAt(n)
	vm.stack = vm.stack[:n]
	vm.upvalRefs = vm.upvalRefs[:n]
	return o, nil
}

func (vm *VM) popN(n int64) error {
	for i := int64(0); i < n; i++ {
		if _, err := vm.pop(); err != nil {
			return err
		}
	}
	return nil
}

// at resolves a stack-index operand, encoded at assembly time as
// locals_length - target_index, i.e. distance below the current top.
func (vm *VM) at(distanceFromTop int64) (*Object, error) {
	idx := len(vm.stack) - 1 - int(distanceFromTop)
	if idx < 0 || idx >= len(vm.stack) {
		return nil, ErrStackUnderflow
	}
	return vm.stack[idx], nil
}

// setAt overwrites the slot at a stack-index operand in place, used by
// move. Unlike push, it does not grow the stack or touch upvalRefs; an
// open upvalue over the slot keeps pointing at it and observes the new
// value.
func (vm *VM) setAt(distanceFromTop int64, obj *Object) error {
	idx := len(vm.stack) - 1 - int(distanceFromTop)
	if idx < 0 || idx >= len(vm.stack) {
		return ErrStackUnderflow
	}
	vm.stack[idx] = obj
	return nil
}

// closeUpvalueAt promotes an open upvalue pointing at stack index idx so
// it survives that slot being popped, copying the value onto the heap.
func (vm *VM) closeUpvalueAt(idx int) {
	if idx < 0 || idx >= len(vm.upvalRefs) {
		return
	}
	cell := vm.upvalRefs[idx]
	if cell == nil {
		return
	}
	closed := vm.stack[idx]
	cell.UpvalueKind = UpvalueHeapObject
	cell.HeapObject = closed
}

func (vm *VM) alloc(o Object) *Object {
	obj := &o
	vm.heap.Alloc(obj)
	return obj
}

// ExecCode runs the loaded image starting at pc until a halt
// instruction or a top-level return, and reports the halt code (0 for
// an implicit fall-off-the-end).
func (vm *VM) ExecCode(pc int64) (int64, error) {
	if pc < 0 || pc >= int64(len(vm.ctx.code)) {
		return 0, ErrInvalidFunctionIndex
	}
	vm.ctx.pc = pc
	for !vm.halted && int(vm.ctx.pc) < len(vm.ctx.code) {
		if err := vm.step(); err != nil {
			return 0, RuntimeError{PC: vm.ctx.pc, Err: err}
		}
		vm.maybeGC()
	}
	return vm.haltCode, nil
}

func (vm *VM) step() error {
	op := bytecode.Op(vm.fetchByte())

	switch op.Base() {
	case bytecode.Jump8:
		target := vm.fetchInt(op.WidthOf())
		vm.ctx.pc += target
		return nil

	case bytecode.Brz8, bytecode.Brnz8:
		target := vm.fetchInt(op.WidthOf())
		pops := int64(vm.fetchByte())
		cond, err := vm.pop()
		if err != nil {
			return err
		}
		if err := vm.popN(pops); err != nil {
			return err
		}
		taken := !cond.Truthy()
		if op.Base() == bytecode.Brnz8 {
			taken = cond.Truthy()
		}
		if taken {
			vm.ctx.pc += target
		}
		return nil

	case bytecode.Funcall8:
		return vm.doFuncall(op.WidthOf())

	case bytecode.Apply8:
		return vm.doApply(op.WidthOf())

	case bytecode.Ccall8:
		return vm.doCcall(op.WidthOf())

	case bytecode.Return0:
		return vm.doReturn(0)

	case bytecode.Return8:
		n := vm.fetchUint(op.WidthOf())
		return vm.doReturn(int(n))

	case bytecode.Halt:
		vm.halted = true
		if len(vm.stack) > 0 {
			top, _ := vm.at(0)
			if top.Kind == KindInteger {
				vm.haltCode = top.Integer
			}
		}
		return nil

	// Obsolete: never emitted by Assemble, but decoded so legacy bytecode
	// blobs still execute. call is branch-shaped with a trailing one-byte
	// pop count, like brz/brnz; acall addresses its callee by stack index.
	case bytecode.Call8:
		_ = vm.fetchInt(op.WidthOf()) // label displacement; call invokes the closure on top of stack instead, see DESIGN.md
		pops := int64(vm.fetchByte())
		if err := vm.popN(pops); err != nil {
			return err
		}
		callee, err := vm.at(0)
		if err != nil {
			return err
		}
		return vm.invoke(callee, len(vm.stack)-1, 0)

	case bytecode.Acall8:
		argCount := int(vm.fetchUint(op.WidthOf()))
		dist := vm.fetchInt(op.WidthOf())
		arrayIdx := len(vm.stack) - 1 - int(dist)
		if arrayIdx < 0 || arrayIdx >= len(vm.stack) {
			return ErrStackUnderflow
		}
		return vm.invoke(vm.stack[arrayIdx], arrayIdx, argCount)

	default:
		if vm.funcTable[op] == nil {
			return errUnknownOpcode(op)
		}
		return vm.funcTable[op](vm)
	}
}
