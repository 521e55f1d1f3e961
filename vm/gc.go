// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

// Collect runs a precise, non-moving mark-and-sweep pass over the
// heap. The root set is exactly: the value stack, the upvalue-reference
// stack, every call frame's upvalue array, the global table, and any
// object an in-flight host callback has pinned with vm_gc_pin.
func (vm *VM) Collect() {
	for i := range vm.heap.markBits {
		vm.heap.markBits[i] = 0
	}

	var stack []*Object
	mark := func(o *Object) {
		if o == nil || vm.heap.markBits[o.heapIndex] != 0 {
			return
		}
		vm.heap.markBits[o.heapIndex] = 1
		stack = append(stack, o)
	}

	for _, o := range vm.stack {
		mark(o)
	}
	for _, o := range vm.upvalRefs {
		mark(o)
	}
	for _, frame := range vm.upvalArrayStack {
		for _, o := range frame {
			mark(o)
		}
	}
	for _, o := range vm.globals {
		mark(o)
	}
	for o := range vm.pinned {
		mark(o)
	}

	for len(stack) > 0 {
		o := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		markChildren(o, mark)
		if o.Kind == KindUser && o.UserMarker != nil {
			o.UserMarker(vm, o)
		}
	}

	for idx, o := range vm.heap.objects {
		if o == nil {
			continue
		}
		if vm.heap.markBits[idx] == 0 {
			if o.Kind == KindUser && o.UserDestroy != nil {
				o.UserDestroy(vm, o)
			}
			vm.heap.objects[idx] = nil
			vm.heap.freeList = append(vm.heap.freeList, idx)
		}
	}
	vm.heap.allocSinceGC = 0
}

func markChildren(o *Object, mark func(*Object)) {
	switch o.Kind {
	case KindCons, KindList:
		mark(o.Car)
		mark(o.Cdr)
	case KindVector:
		for i := o.VecStart; i < o.VecStart+o.VecLen; i++ {
			mark(o.Elems[i])
		}
	case KindUpvalueCell:
		switch o.UpvalueKind {
		case UpvalueHeapObject:
			mark(o.HeapObject)
		case UpvalueHeapUpvalue:
			mark(o.HeapUpvalue)
		}
	case KindUpvalueArray:
		for _, u := range o.Upvalues {
			mark(u)
		}
	case KindClosure:
		if o.Closure != nil {
			for _, u := range o.Closure.Upvalues {
				mark(u)
			}
		}
	case KindComposite:
		mark(o.CompositeValue)
		mark(o.CompositeFunction)
	}
}

// maybeGC triggers a collection if the heap's allocation threshold has
// been crossed since the last one. Called between instructions, never
// mid-instruction, so every instruction's own temporaries are always
// reachable from the stack when it runs.
func (vm *VM) maybeGC() {
	if vm.heap.needsCollection() {
		vm.Collect()
	}
}

// Pin keeps obj alive across a host callback even if nothing else in
// the VM still references it, mirroring vm_gc_pin in the callback ABI.
func (vm *VM) Pin(obj *Object) { vm.pinned[obj]++ }

// Unpin releases a Pin. Panics if obj was never pinned, the same
// contract the original's unbalanced-pin check enforces.
func (vm *VM) Unpin(obj *Object) {
	n, ok := vm.pinned[obj]
	if !ok || n == 0 {
		panic("vm: Unpin called without a matching Pin")
	}
	if n == 1 {
		delete(vm.pinned, obj)
	} else {
		vm.pinned[obj] = n - 1
	}
}
