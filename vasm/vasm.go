// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package vasm implements the virtual assembly intermediate
// representation (IR) used by the JIT's backend.
//
// A Unit holds a control flow graph of Blocks, each of which
// holds a sequence of instructions. Instructions start out
// abstract (such as Call, which knows nothing of the calling
// convention) and are lowered to concrete instructions that
// refer to the physical registers of the target ABI. Virtual
// registers are assigned physical locations later, by the
// register allocator.
package vasm

import (
	"fmt"
	"math"

	"firefly-os.dev/tools/jit/sys"
)

// ID uniquely identifies a virtual register within a
// single unit.
type ID int

// idAllocator returns monotonically increasing positive ID
// values.
type idAllocator struct {
	last ID
}

func (a *idAllocator) Next() ID {
	next := a.last + 1
	if next >= math.MaxInt32 {
		panic("unit has too many registers")
	}

	a.last = next
	return next
}

// Label identifies a block within its unit. Labels
// are indices into Unit.Blocks, so they remain valid
// when the block list grows.
type Label int

// NoLabel is the label of no block.
const NoLabel Label = -1

func (l Label) String() string { return fmt.Sprintf("b%d", int(l)) }

// ArgsID identifies an ArgList in Unit.CallArgs.
type ArgsID int

// TupleID identifies a register tuple in Unit.Tuples.
type TupleID int

// Reg is a register operand. A register is either
// virtual, an SSA value that has not been assigned a
// location, or physical, a fixed register named by its
// ABI role.
//
// Exactly one of ID and Phys is set in a valid Reg.
type Reg struct {
	ID   ID           // The virtual register number (or zero).
	Phys sys.Location // The physical register (or nil).
}

// VirtualReg returns the virtual register with the
// given ID.
func VirtualReg(id ID) Reg { return Reg{ID: id} }

// PhysReg returns the given physical register.
func PhysReg(loc sys.Location) Reg {
	if loc == nil || !loc.IsRegister() {
		panic(fmt.Sprintf("PhysReg: %v is not a register", loc))
	}

	return Reg{Phys: loc}
}

func (r Reg) IsVirtual() bool { return r.Phys == nil && r.ID > 0 }
func (r Reg) IsPhys() bool    { return r.Phys != nil }
func (r Reg) IsValid() bool   { return r.IsVirtual() || r.IsPhys() }

func (r Reg) String() string {
	switch {
	case r.IsPhys():
		return r.Phys.String()
	case r.IsVirtual():
		return fmt.Sprintf("%%%d", r.ID)
	default:
		return "<invalid>"
	}
}

// ArgList describes the arguments to a call, grouped
// by how the ABI passes them.
type ArgList struct {
	IndirectRet []Reg // Pointers to memory for indirect results.
	Args        []Reg // General-purpose register arguments.
	SIMDArgs    []Reg // Vector register arguments.
	StackArgs   []Reg // Arguments pushed onto the stack.
}

// Arg is an argument value together with the way
// it is passed. See Unit.MakeCallArgs.
type Arg struct {
	Reg   Reg
	Class sys.ArgClass
}

// DestType describes how the result of a call maps
// onto its destination registers.
type DestType uint8

const (
	DestNone     DestType = iota // No result.
	DestTV                       // A tagged value: payload and type.
	DestSIMD                     // A tagged value packed into a vector register.
	DestSSA                      // A single general-purpose value.
	DestByte                     // A single byte-sized value.
	DestDbl                      // A single floating-point value.
	DestIndirect                 // Written through an indirect result pointer.
)

var destTypeString = [...]string{
	DestNone:     "none",
	DestTV:       "tv",
	DestSIMD:     "simd",
	DestSSA:      "ssa",
	DestByte:     "byte",
	DestDbl:      "dbl",
	DestIndirect: "indirect",
}

func (t DestType) String() string {
	if int(t) < len(destTypeString) {
		return destTypeString[t]
	}

	return fmt.Sprintf("DestType(%d)", t)
}

// Arity returns the number of destination registers
// a call with this destination type defines.
//
// A tagged value whose type is known statically may
// be given a single destination for its payload. See
// Unit.Verify.
func (t DestType) Arity() int {
	switch t {
	case DestTV:
		return 2
	case DestSIMD, DestSSA, DestByte, DestDbl:
		return 1
	default:
		return 0
	}
}

// Fixup binds a call's return address to the data
// the runtime needs to recover VM state when it walks
// the stack through that call.
type Fixup struct {
	PCOffset int32 // The bytecode offset of the call.
	SPOffset int32 // The VM stack depth at the call.
}

func (f Fixup) String() string { return fmt.Sprintf("{pc=%d, sp=%d}", f.PCOffset, f.SPOffset) }

// CallKind describes how a call reaches its target.
type CallKind uint8

const (
	CallKindDirect    CallKind = iota // A call to a fixed symbol.
	CallKindSmashable                 // A direct call that may be patched later.
	CallKindIndirect                  // A call through a register.
	CallKindMemory                    // A call through a function pointer in memory.
)

// CallSpec describes the target of a call.
type CallSpec struct {
	Kind   CallKind
	Symbol string // The target of direct and smashable calls.
	Reg    Reg    // The target of indirect calls, or the base for memory calls.
	Disp   int32  // The displacement for memory calls.
}

// DirectCall returns a call to the named symbol.
func DirectCall(symbol string) CallSpec {
	return CallSpec{Kind: CallKindDirect, Symbol: symbol}
}

// SmashableCall returns a patchable call to the
// named symbol.
func SmashableCall(symbol string) CallSpec {
	return CallSpec{Kind: CallKindSmashable, Symbol: symbol}
}

// IndirectCall returns a call to the address in reg.
func IndirectCall(reg Reg) CallSpec {
	return CallSpec{Kind: CallKindIndirect, Reg: reg}
}

// MemoryCall returns a call to the address stored at
// base+disp.
func MemoryCall(base Reg, disp int32) CallSpec {
	return CallSpec{Kind: CallKindMemory, Reg: base, Disp: disp}
}

func (s CallSpec) String() string {
	switch s.Kind {
	case CallKindDirect:
		return s.Symbol
	case CallKindSmashable:
		return s.Symbol + " (smashable)"
	case CallKindIndirect:
		return s.Reg.String()
	case CallKindMemory:
		return fmt.Sprintf("[%s%+d]", s.Reg, s.Disp)
	default:
		return fmt.Sprintf("CallSpec(%d)", s.Kind)
	}
}
