// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import "github.com/duck-lisp/duckvm/bytecode"

// currentUpvalues returns the upvalue array owned by the call frame
// presently executing.
func (vm *VM) currentUpvalues() []*Object {
	f := vm.callStack[len(vm.callStack)-1]
	return vm.upvalArrayStack[f.upvalArrIdx]
}

// resolveUpvalue follows an UpvalueCell to the Object it currently
// denotes, whether still open on the stack or already closed onto the
// heap.
func (vm *VM) resolveUpvalue(cell *Object) *Object {
	switch cell.UpvalueKind {
	case UpvalueStackIndex:
		return vm.stack[cell.StackIndex]
	case UpvalueHeapUpvalue:
		return vm.resolveUpvalue(cell.HeapUpvalue)
	default:
		return cell.HeapObject
	}
}

// assignThroughUpvalue writes obj through cell, following any
// HeapUpvalue indirection to the cell that actually owns a slot, and
// mutating the stack in place if that slot is still open.
func assignThroughUpvalue(vm *VM, cell *Object, obj *Object) {
	for cell.UpvalueKind == UpvalueHeapUpvalue {
		cell = cell.HeapUpvalue
	}
	if cell.UpvalueKind == UpvalueStackIndex {
		vm.stack[cell.StackIndex] = obj
		return
	}
	cell.HeapObject = obj
}

// makeClosureHandler builds the funcTable entry for one width variant of
// push-closure / push-va-closure. Operands: an absolute function
// address (width w; Assemble always emits the 32-bit variant), a one-byte arity,
// a 4-byte capture count, then one signed 4-byte capture per upvalue. A
// positive capture n aliases the stack slot n-1 positions below the
// current top as a fresh open cell; a negative capture -n shares the
// currently executing closure's own upvalue cell at index n-1; zero is
// a reserved, rejected sentinel.
func (vm *VM) makeClosureHandler(w bytecode.Width, variadic bool) func(*VM) error {
	return func(vm *VM) error {
		addr := int64(vm.fetchUint(w))
		arity := int(vm.fetchByte())
		captureCount := int(vm.fetchUint(bytecode.Width32))

		outer := vm.currentUpvalues()
		upvals := make([]*Object, captureCount)
		for i := range upvals {
			c := vm.fetchInt(bytecode.Width32)
			switch {
			case c > 0:
				distance := int(c) - 1
				stackIdx := len(vm.stack) - 1 - distance
				if stackIdx < 0 || stackIdx >= len(vm.stack) {
					return ErrStackUnderflow
				}
				cell := vm.alloc(Object{Kind: KindUpvalueCell, UpvalueKind: UpvalueStackIndex, StackIndex: stackIdx})
				vm.upvalRefs[stackIdx] = cell
				upvals[i] = cell
			case c < 0:
				idx := int(-c) - 1
				if idx < 0 || idx >= len(outer) {
					return TypeError{Op: "push-closure", Wanted: "valid upvalue capture", Got: KindNil}
				}
				upvals[i] = vm.alloc(Object{Kind: KindUpvalueCell, UpvalueKind: UpvalueHeapUpvalue, HeapUpvalue: outer[idx]})
			default:
				return TypeError{Op: "push-closure", Wanted: "nonzero capture", Got: KindNil}
			}
		}

		closure := &ClosureObject{Address: addr, ArgCount: arity, Variadic: variadic, Upvalues: upvals}
		vm.push(vm.alloc(Object{Kind: KindClosure, Closure: closure}))
		return nil
	}
}

// doFuncall invokes the closure found at the given stack distance below
// the top with the given call-site arity. width is the operand width of
// the fn stack-index, chosen at assembly time from its value.
func (vm *VM) doFuncall(width bytecode.Width) error {
	fnIdx := int64(vm.fetchUint(width))
	arity := int(vm.fetchByte())

	calleeIdx := len(vm.stack) - 1 - int(fnIdx)
	if calleeIdx < 0 {
		return ErrStackUnderflow
	}
	return vm.invoke(vm.stack[calleeIdx], calleeIdx, arity)
}

// doApply is like doFuncall, except the last of the arity arguments
// already pushed is a list whose elements are spliced in as the tail of
// the argument sequence before the call.
func (vm *VM) doApply(width bytecode.Width) error {
	fnIdx := int64(vm.fetchUint(width))
	arity := int(vm.fetchByte())
	if arity < 1 {
		return ArityError{Wanted: 1, Got: arity}
	}

	calleeIdx := len(vm.stack) - 1 - int(fnIdx)
	if calleeIdx < 0 {
		return ErrStackUnderflow
	}
	callee := vm.stack[calleeIdx]

	tail, err := vm.pop()
	if err != nil {
		return err
	}
	spliced := 0
	for tail.Kind == KindCons || (tail.Kind == KindList && tail.Car != nil) {
		vm.push(tail.Car)
		spliced++
		tail = tail.Cdr
	}

	return vm.invoke(callee, calleeIdx, arity-1+spliced)
}

func (vm *VM) invoke(callee *Object, calleeIdx, argCount int) error {
	if callee.Kind != KindClosure {
		return TypeError{Op: "funcall", Wanted: "closure", Got: callee.Kind}
	}
	cl := callee.Closure

	if cl.Variadic {
		if argCount < cl.ArgCount {
			return ArityError{Wanted: cl.ArgCount, Got: argCount}
		}
		rest := vm.alloc(nilObject())
		for argCount > cl.ArgCount {
			arg, err := vm.pop()
			if err != nil {
				return err
			}
			rest = vm.alloc(Object{Kind: KindCons, Car: arg, Cdr: rest})
			argCount--
		}
		vm.push(rest)
	} else if argCount != cl.ArgCount {
		return ArityError{Wanted: cl.ArgCount, Got: argCount}
	}

	vm.callStack = append(vm.callStack, frame{
		returnPC:    vm.ctx.pc,
		localsBase:  calleeIdx,
		upvalArrIdx: len(vm.upvalArrayStack),
	})
	vm.upvalArrayStack = append(vm.upvalArrayStack, cl.Upvalues)
	vm.ctx.pc = cl.Address
	return nil
}

// doCcall invokes a host callback registered under the fetched index.
// width is the operand width chosen at assembly time from the index's
// own magnitude.
func (vm *VM) doCcall(width bytecode.Width) error {
	idx := int64(vm.fetchUint(width))
	cb, ok := vm.callbacks[idx]
	if !ok {
		return UndefinedCallbackError(idx)
	}
	return cb(vm)
}

// doReturn pops the current call frame. n garbage objects sitting above
// the function's single return value are discarded first, then every
// local at or above the frame base is torn down (closing any upvalue
// still open onto it), and the return value takes the callee's former
// slot before control resumes at the caller's saved program counter.
func (vm *VM) doReturn(n int) error {
	if len(vm.callStack) <= 1 {
		vm.halted = true
		return nil
	}
	f := vm.callStack[len(vm.callStack)-1]

	for i := 0; i < n; i++ {
		if _, err := vm.pop(); err != nil {
			return err
		}
	}
	result, err := vm.pop()
	if err != nil {
		return err
	}

	for i := len(vm.stack) - 1; i >= f.localsBase; i-- {
		vm.closeUpvalueAt(i)
	}
	vm.stack = vm.stack[:f.localsBase]
	vm.upvalRefs = vm.upvalRefs[:f.localsBase]

	vm.push(result)

	vm.upvalArrayStack = vm.upvalArrayStack[:f.upvalArrIdx]
	vm.callStack = vm.callStack[:len(vm.callStack)-1]
	vm.ctx.pc = f.returnPC
	return nil
}
