// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"encoding/binary"

	"github.com/duck-lisp/duckvm/bytecode"
)

// opForWidth returns the opcode variant of base's family for width w.
// base must be the 8-bit member of a three-wide family.
func opForWidth(base bytecode.Op, w bytecode.Width) bytecode.Op {
	switch w {
	case bytecode.Width8:
		return base
	case bytecode.Width16:
		return base + 1
	default:
		return base + 2
	}
}

// widthForUnsigned returns the narrowest width whose unsigned range
// holds v.
func widthForUnsigned(v uint64) bytecode.Width {
	switch {
	case v <= 0xff:
		return bytecode.Width8
	case v <= 0xffff:
		return bytecode.Width16
	default:
		return bytecode.Width32
	}
}

// widthForSigned returns the narrowest width whose two's-complement
// range holds v.
func widthForSigned(v int64) bytecode.Width {
	switch {
	case v >= -128 && v <= 127:
		return bytecode.Width8
	case v >= -32768 && v <= 32767:
		return bytecode.Width16
	default:
		return bytecode.Width32
	}
}

// widthForDisplacement returns the narrowest width whose range holds a
// jump displacement. Relative displacements are signed (a backward jump
// is negative); absolute addresses (closure pushes) are always forced
// to the full 32-bit variant, matching the minimizer's handling of
// absolute JumpLinks.
func widthForDisplacement(v int64, absolute bool) bytecode.Width {
	if absolute {
		return bytecode.Width32
	}
	return widthForSigned(v)
}

// encodeUint truncates v to w bytes and writes it big-endian. Used both
// for genuinely unsigned fields (lengths, indices) and, via two's
// complement truncation, for signed fields (integers, displacements):
// keeping only the low w*8 bits of v reproduces the same bit pattern a
// narrower signed type would have held.
func encodeUint(v uint64, w bytecode.Width) []byte {
	switch w {
	case bytecode.Width8:
		return []byte{byte(v)}
	case bytecode.Width16:
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(v))
		return buf[:]
	default:
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], uint32(v))
		return buf[:]
	}
}
