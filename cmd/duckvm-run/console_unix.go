// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// newConsole puts stdin into raw, unbuffered mode so readc sees every
// keystroke as it arrives rather than waiting on a line's worth of
// input the way a cooked tty would buffer it.
func newConsole() (*console, error) {
	fd := int(os.Stdin.Fd())

	saved, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		// Not a terminal (piped input, redirected file): fall back to
		// whatever buffering the OS already gives a regular file.
		return &console{}, nil
	}

	raw := *saved
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, &raw); err != nil {
		return nil, err
	}

	return &console{restore: func() error {
		return unix.IoctlSetTermios(fd, ioctlSetTermios, saved)
	}}, nil
}

func stdinReadByte() (byte, bool, error) {
	var buf [1]byte
	n, err := os.Stdin.Read(buf[:])
	if n == 0 || err != nil {
		return 0, false, nil
	}
	return buf[0], true, nil
}
