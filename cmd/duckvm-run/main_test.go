// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/duck-lisp/duckvm/asm"
	"github.com/duck-lisp/duckvm/ir"
)

func writeImage(t *testing.T, prog ir.Program) string {
	t.Helper()
	img, _, err := asm.Assemble(prog)
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.duckb")
	if err := ioutil.WriteFile(path, img.Code, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunReportsHaltCode(t *testing.T) {
	path := writeImage(t, ir.Program{
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(7)}},
		{Class: ir.Halt},
	})

	var out bytes.Buffer
	code, err := run(&out, path, 0, false)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if code != 7 {
		t.Fatalf("halt code = %d, want 7", code)
	}
	if out.String() != "halt 7\n" {
		t.Fatalf("output = %q, want %q", out.String(), "halt 7\n")
	}
}

func TestRunWithDebugStillExecutes(t *testing.T) {
	path := writeImage(t, ir.Program{
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(1)}},
		{Class: ir.PushInteger, Args: []ir.Arg{ir.Int(2)}},
		{Class: ir.Add, Args: []ir.Arg{ir.Index(0), ir.Index(1)}},
		{Class: ir.Halt},
	})

	var out bytes.Buffer
	code, err := run(&out, path, 0, true)
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if code != 3 {
		t.Fatalf("halt code = %d, want 3", code)
	}
}
