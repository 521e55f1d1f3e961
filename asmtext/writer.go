// Copyright 2018 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asmtext

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/duck-lisp/duckvm/ir"
)

// classArgKinds gives the fixed argument-kind signature of every class
// whose Args shape never varies. Jump/Brz/Brnz, Funcall/Apply and
// PushClosure/PushVaClosure are handled separately below: the branches'
// first argument is a label id rather than a plain integer (Brz/Brnz
// follow it with a pop count), Funcall/Apply take a stack index and an
// arity, and the closure pushes carry a caller-determined number of
// trailing captures.
var classArgKinds = map[ir.Class][]ir.ArgKind{
	ir.InternalNop: {},
	ir.Nop:         {},

	ir.PushBoolean: {ir.KindInteger},
	ir.PushInteger: {ir.KindInteger},
	ir.PushDouble:  {ir.KindDouble},
	ir.PushString:  {ir.KindString},
	ir.PushSymbol:  {ir.KindString},
	ir.PushLocal:   {ir.KindIndex},
	ir.PushUpvalue: {ir.KindIndex},
	ir.PushGlobal:  {ir.KindIndex},
	ir.Nil:         {},
	ir.MakeType:    {ir.KindInteger},

	ir.Pop: {ir.KindInteger},

	ir.Call:   {ir.KindInteger, ir.KindInteger},
	ir.Acall:  {ir.KindInteger, ir.KindInteger},
	ir.Ccall:  {ir.KindInteger},
	ir.Return: {ir.KindInteger},
	ir.Halt:   {},

	ir.SetUpvalue:      {ir.KindIndex, ir.KindIndex},
	ir.ReleaseUpvalues: {ir.KindIndex},
	ir.Move:            {ir.KindIndex, ir.KindIndex},

	ir.Add:     {ir.KindIndex, ir.KindIndex},
	ir.Sub:     {ir.KindIndex, ir.KindIndex},
	ir.Mul:     {ir.KindIndex, ir.KindIndex},
	ir.Div:     {ir.KindIndex, ir.KindIndex},
	ir.Equal:   {ir.KindIndex, ir.KindIndex},
	ir.Less:    {ir.KindIndex, ir.KindIndex},
	ir.Greater: {ir.KindIndex, ir.KindIndex},

	ir.Cons:   {ir.KindIndex, ir.KindIndex},
	ir.Car:    {ir.KindIndex},
	ir.Cdr:    {ir.KindIndex},
	ir.SetCar: {ir.KindIndex, ir.KindIndex},
	ir.SetCdr: {ir.KindIndex, ir.KindIndex},
	ir.NullP:  {ir.KindIndex},
	ir.TypeOf: {ir.KindIndex},

	ir.MakeVector: {ir.KindIndex, ir.KindIndex},
	ir.Vector:     {ir.KindInteger},
	ir.GetVecElt:  {ir.KindIndex, ir.KindIndex},
	ir.SetVecElt:  {ir.KindIndex, ir.KindIndex, ir.KindIndex},

	ir.MakeString:  {ir.KindIndex},
	ir.Concatenate: {ir.KindIndex, ir.KindIndex},
	ir.Substring:   {ir.KindIndex, ir.KindIndex, ir.KindIndex},
	ir.Length:      {ir.KindIndex},

	ir.SymbolString: {ir.KindIndex},
	ir.SymbolID:     {ir.KindIndex},

	ir.MakeInstance:         {ir.KindIndex, ir.KindIndex, ir.KindIndex},
	ir.CompositeValue:       {ir.KindIndex},
	ir.CompositeFunction:    {ir.KindIndex},
	ir.SetCompositeValue:    {ir.KindIndex, ir.KindIndex},
	ir.SetCompositeFunction: {ir.KindIndex, ir.KindIndex},
}

// nameToClass is the inverse of ir.Class.String, built once so the
// parser can resolve a mnemonic IDENT token back to its class without
// reaching into ir's unexported name table.
var nameToClass = func() map[string]ir.Class {
	m := make(map[string]ir.Class, len(classArgKinds)+6)
	for c := range classArgKinds {
		m[c.String()] = c
	}
	m[ir.Jump.String()] = ir.Jump
	m[ir.Brz.String()] = ir.Brz
	m[ir.Brnz.String()] = ir.Brnz
	m[ir.Funcall.String()] = ir.Funcall
	m[ir.Apply.String()] = ir.Apply
	m[ir.PushClosure.String()] = ir.PushClosure
	m[ir.PushVaClosure.String()] = ir.PushVaClosure
	return m
}()

// WriteTo renders prog as one mnemonic instruction per line.
func WriteTo(w io.Writer, prog ir.Program) error {
	bw := bufio.NewWriter(w)
	for _, instr := range prog {
		if err := writeInstruction(bw, instr); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeInstruction(bw *bufio.Writer, instr ir.Instruction) error {
	switch instr.Class {
	case ir.Label:
		_, err := fmt.Fprintf(bw, "L%d:\n", instr.LabelID)
		return err

	case ir.Jump:
		_, err := fmt.Fprintf(bw, "%s L%d\n", instr.Class, instr.Args[0].Int)
		return err

	case ir.Brz, ir.Brnz:
		_, err := fmt.Fprintf(bw, "%s L%d %d\n", instr.Class, instr.Args[0].Int, instr.Args[1].Int)
		return err

	case ir.Funcall, ir.Apply:
		_, err := fmt.Fprintf(bw, "%s @%d %d\n", instr.Class, instr.Args[0].Int, instr.Args[1].Int)
		return err

	case ir.PushClosure, ir.PushVaClosure:
		if _, err := fmt.Fprintf(bw, "%s L%d %d", instr.Class, instr.Args[0].Int, instr.Args[1].Int); err != nil {
			return err
		}
		for _, c := range instr.Args[2:] {
			if _, err := fmt.Fprintf(bw, " %d", c.Int); err != nil {
				return err
			}
		}
		_, err := bw.WriteString("\n")
		return err

	default:
		kinds, ok := classArgKinds[instr.Class]
		if !ok {
			return fmt.Errorf("asmtext: no text rendering for class %s", instr.Class)
		}
		if _, err := bw.WriteString(instr.Class.String()); err != nil {
			return err
		}
		for i, k := range kinds {
			if _, err := bw.WriteString(" "); err != nil {
				return err
			}
			if err := writeArg(bw, k, instr.Args[i]); err != nil {
				return err
			}
		}
		_, err := bw.WriteString("\n")
		return err
	}
}

func writeArg(bw *bufio.Writer, kind ir.ArgKind, arg ir.Arg) error {
	var err error
	switch kind {
	case ir.KindIndex:
		_, err = fmt.Fprintf(bw, "@%d", arg.Int)
	case ir.KindInteger:
		_, err = fmt.Fprintf(bw, "%d", arg.Int)
	case ir.KindDouble:
		_, err = fmt.Fprintf(bw, "%g", arg.Double)
	case ir.KindString:
		_, err = fmt.Fprintf(bw, "%q", string(arg.Str))
	}
	return err
}

// Parse reads a mnemonic assembly listing and builds the ir.Program it
// describes. It performs no label resolution or structural validation
// of its own; run the result through validate.Program and asm.Assemble
// the same as a generator's output.
func Parse(r io.Reader) (ir.Program, error) {
	sc, err := NewScannerFromReader(r)
	if err != nil {
		return nil, err
	}

	var prog ir.Program
	tok := sc.Next()
	for tok.Kind != EOF {
		if tok.Kind == NEWLINE {
			tok = sc.Next()
			continue
		}

		switch tok.Kind {
		case LABELDEF:
			id, err := strconv.ParseInt(tok.Text, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("asmtext: line %d: bad label id %q", tok.Line, tok.Text)
			}
			prog = append(prog, ir.NewLabel(id))
			tok = sc.Next()

		case IDENT:
			instr, next, err := parseInstruction(sc, tok)
			if err != nil {
				return nil, err
			}
			prog = append(prog, instr)
			tok = next

		default:
			return nil, fmt.Errorf("asmtext: line %d: unexpected token %s", tok.Line, tok)
		}
	}
	if len(sc.Errors) > 0 {
		return nil, sc.Errors[0]
	}
	return prog, nil
}

func parseInstruction(sc *Scanner, mnemonic Token) (ir.Instruction, Token, error) {
	class, ok := nameToClass[mnemonic.Text]
	if !ok {
		return ir.Instruction{}, Token{}, fmt.Errorf("asmtext: line %d: unknown mnemonic %q", mnemonic.Line, mnemonic.Text)
	}

	switch class {
	case ir.Jump:
		lbl := sc.Next()
		if lbl.Kind != LABEL {
			return ir.Instruction{}, Token{}, fmt.Errorf("asmtext: line %d: %s expects a label operand", mnemonic.Line, mnemonic.Text)
		}
		id, _ := strconv.ParseInt(lbl.Text, 10, 64)
		return ir.Instruction{Class: class, Args: []ir.Arg{ir.Int(id)}}, endOfLine(sc), nil

	case ir.Brz, ir.Brnz:
		lbl := sc.Next()
		if lbl.Kind != LABEL {
			return ir.Instruction{}, Token{}, fmt.Errorf("asmtext: line %d: %s expects a label operand", mnemonic.Line, mnemonic.Text)
		}
		popTok := sc.Next()
		if popTok.Kind != INT {
			return ir.Instruction{}, Token{}, fmt.Errorf("asmtext: line %d: %s expects a pop-count operand", mnemonic.Line, mnemonic.Text)
		}
		id, _ := strconv.ParseInt(lbl.Text, 10, 64)
		pop, _ := strconv.ParseInt(popTok.Text, 10, 64)
		return ir.Instruction{Class: class, Args: []ir.Arg{ir.Int(id), ir.Int(pop)}}, endOfLine(sc), nil

	case ir.Funcall, ir.Apply:
		idx := sc.Next()
		if idx.Kind != INDEX {
			return ir.Instruction{}, Token{}, fmt.Errorf("asmtext: line %d: %s expects a stack-index fn operand", mnemonic.Line, mnemonic.Text)
		}
		arityTok := sc.Next()
		if arityTok.Kind != INT {
			return ir.Instruction{}, Token{}, fmt.Errorf("asmtext: line %d: %s expects an arity operand", mnemonic.Line, mnemonic.Text)
		}
		idxVal, _ := strconv.ParseInt(idx.Text, 10, 64)
		arity, _ := strconv.ParseInt(arityTok.Text, 10, 64)
		return ir.Instruction{Class: class, Args: []ir.Arg{ir.Index(idxVal), ir.Int(arity)}}, endOfLine(sc), nil

	case ir.PushClosure, ir.PushVaClosure:
		lbl := sc.Next()
		if lbl.Kind != LABEL {
			return ir.Instruction{}, Token{}, fmt.Errorf("asmtext: line %d: %s expects a target label", mnemonic.Line, mnemonic.Text)
		}
		arityTok := sc.Next()
		if arityTok.Kind != INT {
			return ir.Instruction{}, Token{}, fmt.Errorf("asmtext: line %d: %s expects an arity operand", mnemonic.Line, mnemonic.Text)
		}
		lblID, _ := strconv.ParseInt(lbl.Text, 10, 64)
		arity, _ := strconv.ParseInt(arityTok.Text, 10, 64)
		args := []ir.Arg{ir.Int(lblID), ir.Int(arity)}

		tok := sc.Next()
		for tok.Kind == INT {
			v, _ := strconv.ParseInt(tok.Text, 10, 64)
			args = append(args, ir.Int(v))
			tok = sc.Next()
		}
		if tok.Kind != NEWLINE && tok.Kind != EOF {
			return ir.Instruction{}, Token{}, fmt.Errorf("asmtext: line %d: unexpected token %s in capture list", tok.Line, tok)
		}
		return ir.Instruction{Class: class, Args: args}, tok, nil

	default:
		kinds := classArgKinds[class]
		args := make([]ir.Arg, 0, len(kinds))
		for _, k := range kinds {
			tok := sc.Next()
			arg, err := parseArg(k, tok)
			if err != nil {
				return ir.Instruction{}, Token{}, err
			}
			args = append(args, arg)
		}
		return ir.Instruction{Class: class, Args: args}, endOfLine(sc), nil
	}
}

func parseArg(kind ir.ArgKind, tok Token) (ir.Arg, error) {
	switch kind {
	case ir.KindIndex:
		if tok.Kind != INDEX {
			return ir.Arg{}, fmt.Errorf("asmtext: line %d: expected a stack-index operand, got %s", tok.Line, tok)
		}
		v, _ := strconv.ParseInt(tok.Text, 10, 64)
		return ir.Index(v), nil
	case ir.KindInteger:
		if tok.Kind != INT {
			return ir.Arg{}, fmt.Errorf("asmtext: line %d: expected an integer operand, got %s", tok.Line, tok)
		}
		v, _ := strconv.ParseInt(tok.Text, 10, 64)
		return ir.Int(v), nil
	case ir.KindDouble:
		if tok.Kind != FLOAT && tok.Kind != INT {
			return ir.Arg{}, fmt.Errorf("asmtext: line %d: expected a floating-point operand, got %s", tok.Line, tok)
		}
		v, _ := strconv.ParseFloat(tok.Text, 64)
		return ir.Float(v), nil
	case ir.KindString:
		if tok.Kind != STRING {
			return ir.Arg{}, fmt.Errorf("asmtext: line %d: expected a string operand, got %s", tok.Line, tok)
		}
		return ir.Bytes([]byte(tok.Text)), nil
	default:
		return ir.Arg{}, fmt.Errorf("asmtext: line %d: unsupported argument kind", tok.Line)
	}
}

// endOfLine consumes and returns the token following a complete
// instruction: either the terminating NEWLINE or EOF.
func endOfLine(sc *Scanner) Token {
	return sc.Next()
}
