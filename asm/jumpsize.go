// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// maxRelaxIterations bounds the jump-size minimizer's fixed-point loop.
// Growing one branch's width can push every label after it further out,
// which can in turn force another branch to grow; in principle that
// chain could cascade once per branch, but in practice the loop settles
// in two or three passes. If the bound is hit the widths found so far
// are still a valid (if possibly non-minimal) encoding.
const maxRelaxIterations = 10

// JumpLink records one branch or closure-push unit's provisional
// displacement, resolved once label offsets are known.
type JumpLink struct {
	UnitIndex int
	Target    int64
	Absolute  bool
}

func collectJumpLinks(units []unit) []JumpLink {
	var links []JumpLink
	for i, u := range units {
		if u.isBranch {
			links = append(links, JumpLink{UnitIndex: i, Target: u.target, Absolute: u.class.IsClosurePush()})
		}
	}
	return links
}

// offsetsOf returns the byte offset of every unit, given their current
// widths, plus the offset of every declared label.
func offsetsOf(units []unit) (unitOffsets []int, labelOffsets map[int64]int) {
	unitOffsets = make([]int, len(units))
	labelOffsets = make(map[int64]int)
	pos := 0
	for i, u := range units {
		unitOffsets[i] = pos
		if u.isLabel {
			labelOffsets[u.labelID] = pos
		}
		pos += u.size()
	}
	return unitOffsets, labelOffsets
}

// minimizeJumps grows branch widths until every displacement fits the
// width it was assembled with, or the iteration bound is hit.
func minimizeJumps(units []unit, links []JumpLink) (warnings []error) {
	for iter := 0; iter < maxRelaxIterations; iter++ {
		unitOffsets, labelOffsets := offsetsOf(units)
		changed := false

		for _, link := range links {
			u := &units[link.UnitIndex]
			targetOffset, ok := labelOffsets[link.Target]
			if !ok {
				continue // unresolved labels are reported by validate, not here
			}

			var disp int64
			if link.Absolute {
				disp = int64(targetOffset)
			} else {
				// Relative to the address of the byte immediately after
				// this instruction's encoding.
				nextOffset := unitOffsets[link.UnitIndex] + u.size()
				disp = int64(targetOffset) - int64(nextOffset)
			}

			needed := widthForDisplacement(disp, link.Absolute)
			if needed > u.width {
				u.width = needed
				changed = true
			}
		}

		if !changed {
			return warnings
		}

		if iter == maxRelaxIterations-1 {
			warnings = append(warnings, relaxationLimitWarning{iterations: maxRelaxIterations})
		}
	}
	return warnings
}

// resolvedDisplacement computes the final displacement for a branch unit
// once all widths are frozen; used by the emitter.
func resolvedDisplacement(units []unit, unitOffsets []int, labelOffsets map[int64]int, idx int) int64 {
	u := &units[idx]
	targetOffset := labelOffsets[u.target]
	if u.class.IsClosurePush() {
		return int64(targetOffset)
	}
	nextOffset := unitOffsets[idx] + u.size()
	return int64(targetOffset) - int64(nextOffset)
}
