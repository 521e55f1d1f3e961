// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bytecode

import "testing"

func TestVariantFamiliesAreThreeWide(t *testing.T) {
	families := []Op{
		PushInteger8, PushString8, PushSymbol8, PushLocal8, PushUpvalue8,
		PushClosure8, PushVaClosure8, PushGlobal8, Jump8, Brz8, Brnz8,
		Call8, Acall8, Funcall8, Apply8, SetUpvalue8, ReleaseUpvalues8,
	}
	for _, base := range families {
		if base.Base() != base {
			t.Errorf("%v.Base() = %v, want itself (it should already be the 8-bit member)", base, base.Base())
		}
		if (base + 1).WidthOf() != Width16 {
			t.Errorf("(%v+1).WidthOf() = %v, want Width16", base, (base + 1).WidthOf())
		}
		if (base + 2).WidthOf() != Width32 {
			t.Errorf("(%v+2).WidthOf() = %v, want Width32", base, (base + 2).WidthOf())
		}
	}
}

func TestOpStringNeverEmpty(t *testing.T) {
	for op := Nop; op < opCount; op++ {
		if op.String() == "" {
			t.Errorf("Op(%d).String() is empty", byte(op))
		}
	}
}

func TestWidthOperandBytes(t *testing.T) {
	cases := map[Width]int{Width8: 1, Width16: 2, Width32: 4}
	for w, want := range cases {
		if got := w.OperandBytes(); got != want {
			t.Errorf("%v.OperandBytes() = %d, want %d", w, got, want)
		}
	}
}
