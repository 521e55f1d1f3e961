// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"fmt"

	mmap "github.com/edsrzf/mmap-go"
)

// defaultMaxComptimeObjects bounds how many heap-allocated objects the
// VM tolerates before forcing a collection, mirroring the allocation
// threshold the original implementation checks per-allocation rather
// than on a timer.
const defaultMaxComptimeObjects = 1 << 16

// Heap owns every heap-allocated Object plus the out-of-band mark
// bitmap the collector uses to flag live objects during a trace. The
// bitmap is backed by an anonymous mmap region instead of a Go slice:
// it is scanned and cleared on every collection but never touched by
// pointers the Go runtime's own GC needs to chase, so keeping it off
// the Go heap avoids adding scan pressure there for what is already a
// bespoke collector.
type Heap struct {
	objects  []*Object
	freeList []int

	markBits mmap.MMap
	capacity int

	allocSinceGC int
	threshold    int
}

func NewHeap() *Heap {
	h := &Heap{threshold: defaultMaxComptimeObjects}
	h.growMarkBits(1024)
	return h
}

func (h *Heap) growMarkBits(capacity int) {
	region, err := mmap.MapRegion(nil, capacity, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		// Anonymous mmap failing means the process is out of address
		// space or virtual memory accounting; there is no graceful
		// degradation path, so this mirrors a fatal allocator failure.
		panic(fmt.Sprintf("vm: failed to map heap mark bitmap: %v", err))
	}
	if h.markBits != nil {
		copy(region, h.markBits)
		h.markBits.Unmap()
	}
	h.markBits = region
	h.capacity = capacity
}

// Alloc reserves a heap slot for obj and returns its index. It never
// triggers a collection itself; callers drive GC via (*VM).maybeGC at
// safe points between instructions.
func (h *Heap) Alloc(obj *Object) int {
	h.allocSinceGC++
	if n := len(h.freeList); n > 0 {
		idx := h.freeList[n-1]
		h.freeList = h.freeList[:n-1]
		h.objects[idx] = obj
		h.markBits[idx] = 0
		obj.heapIndex = idx
		return idx
	}
	idx := len(h.objects)
	if idx >= h.capacity {
		h.growMarkBits(h.capacity * 2)
	}
	h.objects = append(h.objects, obj)
	obj.heapIndex = idx
	return idx
}

func (h *Heap) Get(idx int) *Object { return h.objects[idx] }

func (h *Heap) needsCollection() bool { return h.allocSinceGC >= h.threshold }

// Close releases the mmap-backed mark bitmap. A VM that is done running
// must call this or the region leaks for the life of the process, since
// it was never subject to the Go garbage collector to begin with.
func (h *Heap) Close() error {
	if h.markBits == nil {
		return nil
	}
	err := h.markBits.Unmap()
	h.markBits = nil
	return err
}
