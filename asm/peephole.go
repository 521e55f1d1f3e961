// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "github.com/duck-lisp/duckvm/ir"

// isPureProducer reports whether class pushes exactly one value with no
// other observable effect, making a push immediately followed by a pop
// safe to cancel.
func isPureProducer(c ir.Class) bool {
	switch c {
	case ir.PushBoolean, ir.PushInteger, ir.PushDouble, ir.PushString, ir.PushSymbol,
		ir.PushLocal, ir.PushUpvalue, ir.PushClosure, ir.PushVaClosure, ir.PushGlobal, ir.Nil, ir.MakeType:
		return true
	default:
		return false
	}
}

// Peephole applies the two local rewrite rules described for duck-lisp
// bytecode:
//
//	P1: producer; pop(n)      -> pop(n-1), dropping the producer entirely
//	P2: pop(n); pop(m)        -> pop(n+m)
//
// Neither rule ever reorders instructions across a Label: a label marks
// a jump target, and folding across it would change what a branch into
// the middle of the sequence actually observes. Because both rules only
// ever look at strictly adjacent instructions, a Label between two
// candidates already blocks the match without special-casing it.
//
// The pass iterates to a fixed point: cancelling a producer/pop pair can
// expose a fresh pop/pop adjacency that wasn't there before.
func Peephole(prog ir.Program) ir.Program {
	cur := prog
	for {
		next, changed := peepholePass(cur)
		if !changed {
			return next
		}
		cur = next
	}
}

func peepholePass(prog ir.Program) (ir.Program, bool) {
	out := make(ir.Program, 0, len(prog))
	changed := false

	for i := 0; i < len(prog); i++ {
		instr := prog[i]

		if isPureProducer(instr.Class) && i+1 < len(prog) && prog[i+1].Class == ir.Pop {
			popCount := prog[i+1].Args[0].Int
			if popCount > 1 {
				out = append(out, ir.Instruction{Class: ir.Pop, Args: []ir.Arg{ir.Int(popCount - 1)}})
			}
			i++
			changed = true
			continue
		}

		if instr.Class == ir.Pop && len(out) > 0 && out[len(out)-1].Class == ir.Pop {
			prevCount := out[len(out)-1].Args[0].Int
			out[len(out)-1] = ir.Instruction{Class: ir.Pop, Args: []ir.Arg{ir.Int(prevCount + instr.Args[0].Int)}}
			changed = true
			continue
		}

		out = append(out, instr)
	}

	return out, changed
}
