// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix

package main

import (
	"bufio"
	"os"
)

var stdin = bufio.NewReader(os.Stdin)

// newConsole falls back to line-buffered stdin on platforms x/sys/unix
// does not cover; readc still returns one byte at a time, just from a
// buffer the OS fills a line at a time instead of raw mode.
func newConsole() (*console, error) {
	return &console{}, nil
}

func stdinReadByte() (byte, bool, error) {
	b, err := stdin.ReadByte()
	if err != nil {
		return 0, false, nil
	}
	return b, true, nil
}
