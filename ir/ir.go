// Package ir defines the instruction sequence consumed by package asm.
//
// This is the contract kept with the (out of scope) generator layer that
// lowers a duck-lisp AST down to this form: an ordered list of
// instructions with symbolic labels and typed arguments, no address
// resolution performed yet. See spec.md §3.1 and §6.1.
package ir

// Class identifies the opcode class of an instruction, independent of the
// final operand width the assembler will pick for it.
type Class int

const (
	// Pseudo-instructions, meaningful only to the assembler.
	Label Class = iota
	InternalNop
	Nop

	// Stack push producers.
	PushBoolean
	PushInteger
	PushDouble
	PushString
	PushSymbol
	PushLocal // a.k.a. pushIndex: copies stack[k] to the top
	PushUpvalue
	PushClosure
	PushVaClosure
	PushGlobal
	Nil
	MakeType

	Pop

	// Control flow.
	Jump
	Brz
	Brnz
	Call  // obsolete, decoded only
	Acall // obsolete, decoded only
	Funcall
	Apply
	Ccall
	Return
	Halt

	// Upvalues.
	SetUpvalue
	ReleaseUpvalues

	// Move copies the value at one stack distance into another slot,
	// overwriting it in place. Net stack effect is -1: after the copy the
	// VM pops the top of the stack, whichever slot was the source.
	Move

	// Arithmetic / comparison (two-operand, stack-index encoded).
	Add
	Sub
	Mul
	Div
	Equal
	Less
	Greater

	// List / vector / string / composite.
	Cons
	Car
	Cdr
	SetCar
	SetCdr
	NullP
	TypeOf
	MakeVector
	Vector
	GetVecElt
	SetVecElt
	MakeString
	Concatenate
	Substring
	Length
	SymbolString
	SymbolID
	MakeInstance
	CompositeValue
	CompositeFunction
	SetCompositeValue
	SetCompositeFunction
)

// ArgKind tags the payload carried by an Arg.
type ArgKind int

const (
	KindInteger ArgKind = iota // signed 64-bit immediate, or a label id for branches
	KindIndex                  // signed stack distance from the top at emit time
	KindDouble
	KindString
)

// Arg is one operand of an ir.Instruction. Exactly one of the payload
// fields is meaningful, selected by Kind.
type Arg struct {
	Kind   ArgKind
	Int    int64
	Double float64
	Str    []byte
}

func Int(v int64) Arg     { return Arg{Kind: KindInteger, Int: v} }
func Index(v int64) Arg   { return Arg{Kind: KindIndex, Int: v} }
func Float(v float64) Arg { return Arg{Kind: KindDouble, Double: v} }
func Bytes(v []byte) Arg  { return Arg{Kind: KindString, Str: v} }

// Instruction is one entry in an IR program.
type Instruction struct {
	Class Class
	Args  []Arg

	// LabelID is only meaningful when Class == Label: it is the id this
	// label entry declares. Branch-carrying instructions reference a
	// label id through their first Arg (KindInteger) instead, so that
	// Args stays the single place argument-class validation looks at.
	LabelID int64
}

// Program is an ordered sequence of instructions, as produced by the
// generator layer.
type Program []Instruction

// NewLabel returns a Label pseudo-instruction declaring id.
func NewLabel(id int64) Instruction {
	return Instruction{Class: Label, LabelID: id}
}

// Branches reports whether class carries a label-id argument (i.e. is a
// JumpLink source in the assembler's terms). Funcall and apply call
// through a runtime closure value, not a label, so they are not
// branches in this sense even though they transfer control. The obsolete
// Call also names a label, but it is decoded only and never assembled,
// so it is not reported either.
func (c Class) Branches() bool {
	switch c {
	case Jump, Brz, Brnz:
		return true
	default:
		return false
	}
}

// IsClosurePush reports whether class emits an absolute (never
// PC-relative) function-address displacement.
func (c Class) IsClosurePush() bool {
	return c == PushClosure || c == PushVaClosure
}

// String gives a human-readable opcode-class name, used by disasm and by
// validation error messages.
func (c Class) String() string {
	if s, ok := classNames[c]; ok {
		return s
	}
	return "?unknown-class?"
}

var classNames = map[Class]string{
	Label:                "label",
	InternalNop:          "internal-nop",
	Nop:                  "nop",
	PushBoolean:          "pushBoolean",
	PushInteger:          "pushInteger",
	PushDouble:           "pushDouble",
	PushString:           "pushString",
	PushSymbol:           "pushSymbol",
	PushLocal:            "pushLocal",
	PushUpvalue:          "pushUpvalue",
	PushClosure:          "pushClosure",
	PushVaClosure:        "pushVaClosure",
	PushGlobal:           "pushGlobal",
	Nil:                  "nil",
	MakeType:             "makeType",
	Pop:                  "pop",
	Jump:                 "jump",
	Brz:                  "brz",
	Brnz:                 "brnz",
	Call:                 "call",
	Acall:                "acall",
	Funcall:              "funcall",
	Apply:                "apply",
	Ccall:                "ccall",
	Return:               "return",
	Halt:                 "halt",
	SetUpvalue:           "setUpvalue",
	ReleaseUpvalues:      "releaseUpvalues",
	Move:                 "move",
	Add:                  "add",
	Sub:                  "sub",
	Mul:                  "mul",
	Div:                  "div",
	Equal:                "equal",
	Less:                 "less",
	Greater:              "greater",
	Cons:                 "cons",
	Car:                  "car",
	Cdr:                  "cdr",
	SetCar:               "setCar",
	SetCdr:               "setCdr",
	NullP:                "nullp",
	TypeOf:               "typeof",
	MakeVector:           "makeVector",
	Vector:               "vector",
	GetVecElt:            "getVecElt",
	SetVecElt:            "setVecElt",
	MakeString:           "makeString",
	Concatenate:          "concatenate",
	Substring:            "substring",
	Length:               "length",
	SymbolString:         "symbolString",
	SymbolID:             "symbolId",
	MakeInstance:         "makeInstance",
	CompositeValue:       "compositeValue",
	CompositeFunction:    "compositeFunction",
	SetCompositeValue:    "setCompositeValue",
	SetCompositeFunction: "setCompositeFunction",
}
