// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/duck-lisp/duckvm/vm"
)

func stdoutWrite(data []byte) (int, error) { return os.Stdout.Write(data) }

// console is the host side of the readc/writec callback pair every
// duck-lisp image addresses as ccall indices 0 and 1. Its terminal
// handling is platform-specific; see console_unix.go and
// console_other.go.
type console struct {
	restore func() error
}

// writec pops a string argument, writes it to stdout, and pushes nil
// as its result.
func (c *console) writec(m *vm.VM) error {
	arg, err := m.VMPop()
	if err != nil {
		return m.VMError(err)
	}
	if _, err := stdoutWrite(arg.Bytes); err != nil {
		return m.VMError(err)
	}
	m.VMPush(m.VMAllocNil())
	return nil
}

// readc reads one raw byte from stdin and pushes it as a one-byte
// string, or nil at end of input.
func (c *console) readc(m *vm.VM) error {
	b, ok, err := stdinReadByte()
	if err != nil {
		return m.VMError(err)
	}
	if !ok {
		m.VMPush(m.VMAllocNil())
		return nil
	}
	m.VMPush(m.VMAllocString([]byte{b}))
	return nil
}

func (c *console) Close() error {
	if c.restore == nil {
		return nil
	}
	return c.restore()
}
