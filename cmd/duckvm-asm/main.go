// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command duckvm-asm reads a mnemonic assembly listing and writes the
// assembled bytecode image.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/duck-lisp/duckvm/asm"
	"github.com/duck-lisp/duckvm/asmtext"
)

func main() {
	log.SetPrefix("duckvm-asm: ")
	log.SetFlags(0)

	out := flag.String("o", "", "output file for the assembled image (default: stdout)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: duckvm-asm [-o out.duckb] file.duckasm\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(os.Stdout, *out, flag.Arg(0)); err != nil {
		log.Fatal(err)
	}
}

func run(stdout io.Writer, outPath, fname string) error {
	f, err := os.Open(fname)
	if err != nil {
		return err
	}
	defer f.Close()

	prog, err := asmtext.Parse(f)
	if err != nil {
		return fmt.Errorf("could not parse %s: %w", fname, err)
	}

	img, warnings, err := asm.Assemble(prog)
	if err != nil {
		return fmt.Errorf("could not assemble %s: %w", fname, err)
	}
	for _, w := range warnings {
		log.Printf("warning: %v", w)
	}

	w := stdout
	if outPath != "" {
		out, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer out.Close()
		w = out
	}

	_, err = w.Write(img.Code)
	return err
}
