// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command duckvm-run loads an assembled bytecode image and executes
// it, registering the default console callback table (readc on index
// 0, writec on index 1).
package main

import (
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"

	"github.com/duck-lisp/duckvm/disasm"
	"github.com/duck-lisp/duckvm/vm"
)

func main() {
	log.SetPrefix("duckvm-run: ")
	log.SetFlags(0)

	globals := flag.Int("globals", 16, "number of global variable slots the image expects")
	debug := flag.Bool("debug", false, "print a disassembly listing before running")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: duckvm-run [-globals n] [-debug] image.duckb\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	code, err := run(os.Stdout, flag.Arg(0), *globals, *debug)
	if err != nil {
		log.Fatal(err)
	}
	os.Exit(int(code))
}

func run(w io.Writer, fname string, globalCount int, debug bool) (int64, error) {
	code, err := ioutil.ReadFile(fname)
	if err != nil {
		return 0, err
	}

	if debug {
		d, err := disasm.Disassemble(code)
		if err != nil {
			return 0, fmt.Errorf("could not disassemble %s: %w", fname, err)
		}
		for _, instr := range d.Code {
			fmt.Fprintln(os.Stderr, instr)
		}
	}

	console, err := newConsole()
	if err != nil {
		return 0, err
	}
	defer console.Close()

	m := vm.NewVM(code, globalCount)
	defer m.Close()

	m.RegisterCallback(0, console.readc)
	m.RegisterCallback(1, console.writec)

	haltCode, err := m.ExecCode(0)
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(w, "halt %d\n", haltCode)
	return haltCode, nil
}
