// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

// Callback is a host-provided native function invoked by the ccall
// instruction. It pops the arguments it consumes and pushes exactly one
// result. ccall reserves no result slot for it and does not check the
// stack depth it leaves behind.
type Callback func(*VM) error

// VMPush pushes obj onto the value stack. Exported under the vm_push
// name the host ABI documents it by.
func (vm *VM) VMPush(obj *Object) { vm.push(obj) }

// VMPop pops and returns the top of the value stack.
func (vm *VM) VMPop() (*Object, error) {
	return vm.pop()
}

// VMPeek returns the value distanceFromTop below the top of the stack
// without popping it. distanceFromTop == 0 is the top itself.
func (vm *VM) VMPeek(distanceFromTop int) (*Object, error) {
	idx := len(vm.stack) - 1 - distanceFromTop
	if idx < 0 || idx >= len(vm.stack) {
		return nil, ErrStackUnderflow
	}
	return vm.stack[idx], nil
}

// VMError aborts the running program with err, to be surfaced to
// ExecCode's caller the same way an internal runtime error would be.
func (vm *VM) VMError(err error) error {
	return RuntimeError{PC: vm.ctx.pc, Err: err}
}

// VMAllocNil, VMAllocInteger, ... construct heap objects on the
// callback's behalf; a callback never touches the heap directly.
func (vm *VM) VMAllocNil() *Object { return vm.alloc(nilObject()) }

func (vm *VM) VMAllocBool(v bool) *Object { return vm.alloc(boolObject(v)) }

func (vm *VM) VMAllocInteger(v int64) *Object { return vm.alloc(intObject(v)) }

func (vm *VM) VMAllocFloat(v float64) *Object { return vm.alloc(floatObject(v)) }

func (vm *VM) VMAllocString(data []byte) *Object {
	return vm.alloc(Object{Kind: KindString, Bytes: data, Length: len(data)})
}

func (vm *VM) VMAllocCons(car, cdr *Object) *Object {
	return vm.alloc(Object{Kind: KindCons, Car: car, Cdr: cdr})
}

// VMGCPin and VMGCUnpin are the pin/unpin half of the callback ABI: a
// callback that stashes an Object somewhere the collector's root set
// does not reach (a package-level cache, say) must pin it first.
func (vm *VM) VMGCPin(obj *Object)   { vm.Pin(obj) }
func (vm *VM) VMGCUnpin(obj *Object) { vm.Unpin(obj) }
