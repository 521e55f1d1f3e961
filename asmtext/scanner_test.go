// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asmtext

import "testing"

func TestScannerTokenizesInstructionLine(t *testing.T) {
	sc := NewScanner([]byte("pushInteger 5\nadd @0 @1 // sum\n"))

	want := []Token{
		{Kind: IDENT, Text: "pushInteger"},
		{Kind: INT, Text: "5"},
		{Kind: NEWLINE},
		{Kind: IDENT, Text: "add"},
		{Kind: INDEX, Text: "0"},
		{Kind: INDEX, Text: "1"},
		{Kind: NEWLINE},
		{Kind: EOF},
	}

	for i, w := range want {
		got := sc.Next()
		if got.Kind != w.Kind || (w.Kind != NEWLINE && w.Kind != EOF && got.Text != w.Text) {
			t.Fatalf("token %d = %s, want kind=%s text=%q", i, got, w.Kind, w.Text)
		}
	}
}

func TestScannerLabelDefVsLabelRef(t *testing.T) {
	sc := NewScanner([]byte("L3:\njump L3\n"))

	def := sc.Next()
	if def.Kind != LABELDEF || def.Text != "3" {
		t.Fatalf("first token = %s, want LABELDEF 3", def)
	}
	nl := sc.Next()
	if nl.Kind != NEWLINE {
		t.Fatalf("second token = %s, want NEWLINE", nl)
	}
	ident := sc.Next()
	if ident.Kind != IDENT || ident.Text != "jump" {
		t.Fatalf("third token = %s, want IDENT jump", ident)
	}
	ref := sc.Next()
	if ref.Kind != LABEL || ref.Text != "3" {
		t.Fatalf("fourth token = %s, want LABEL 3", ref)
	}
}

func TestScannerStringAndFloat(t *testing.T) {
	sc := NewScanner([]byte("pushString \"hi\"\npushDouble 3.5\n"))

	ident := sc.Next()
	if ident.Kind != IDENT {
		t.Fatalf("got %s, want IDENT", ident)
	}
	str := sc.Next()
	if str.Kind != STRING || str.Text != "hi" {
		t.Fatalf("got %s, want STRING \"hi\"", str)
	}
	sc.Next() // newline
	sc.Next() // pushDouble
	f := sc.Next()
	if f.Kind != FLOAT || f.Text != "3.5" {
		t.Fatalf("got %s, want FLOAT 3.5", f)
	}
}

func TestScannerReportsUnexpectedCharacter(t *testing.T) {
	sc := NewScanner([]byte("add #bad\n"))
	sc.Next() // add
	sc.Next() // illegal token for '#'
	if len(sc.Errors) == 0 {
		t.Fatal("expected a scan error for '#', got none")
	}
}
