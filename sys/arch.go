// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package sys defines the characteristics of the machine
// architectures targeted by the JIT, including the calling
// conventions used at call boundaries.
package sys

import (
	"fmt"

	"firefly-os.dev/tools/jit/internal/a64"
	"firefly-os.dev/tools/jit/internal/x86"
)

// Arch defines the characteristics of a machine architecture.
//
// An architecture with no Arch data is not implemented by
// the JIT.
type Arch struct {
	Name   string
	Family ArchFamily

	PointerSize  int // The size of a memory address in bytes.
	RegisterSize int // The capacity of a general-purpose register in bytes.

	// ABI details.

	// Contains the full set of registers in
	// this architecture that the JIT refers
	// to. The order of these registers is
	// arbitrary and may change.
	Registers []Location

	// Maps register names to their structured
	// data.
	RegisterNames map[string]Location

	// The set of all registers available to
	// ABIs. This consists of the architecture's
	// full-size general purpose and vector
	// registers, not including the stack
	// pointer.
	ABIRegisters []Location

	// Internal cache of the ABI registers.
	abiRegisters map[Location]bool

	// The architecture's stack register.
	StackPointer Location

	// Whether the stack grows downward. If
	// true, successive stack locations will
	// have smaller addresses.
	StackGrowsDown bool

	// The alignment of the stack at the point
	// of a function call in bytes.
	StackAlignment int

	// The ABI to use if none is specified.
	DefaultABI ABI
}

// StackSlotSize returns the size in bytes of
// a single stack slot, which is the unit of
// every push, pop, and stack adjustment.
func (a *Arch) StackSlotSize() int {
	return a.PointerSize
}

// IsABIRegister returns whether reg may be
// used by an ABI on this architecture.
func (a *Arch) IsABIRegister(reg Location) bool {
	return a.abiRegisters[reg]
}

func (a *Arch) String() string { return a.Name }

var X86_64 = &Arch{
	Name:         "x86-64",
	Family:       FamilyX86_64,
	PointerSize:  8,
	RegisterSize: 8,
	Registers: []Location{
		x86.RAX, x86.RCX, x86.RDX, x86.RBX, x86.RSP, x86.RBP, x86.RSI, x86.RDI,
		x86.R8, x86.R9, x86.R10, x86.R11, x86.R12, x86.R13, x86.R14, x86.R15,
		x86.RIP,
		x86.XMM0, x86.XMM1, x86.XMM2, x86.XMM3, x86.XMM4, x86.XMM5, x86.XMM6, x86.XMM7,
		x86.XMM8, x86.XMM9, x86.XMM10, x86.XMM11, x86.XMM12, x86.XMM13, x86.XMM14, x86.XMM15,
	},
	ABIRegisters: []Location{
		x86.RAX, x86.RCX, x86.RDX, x86.RBX, x86.RBP, x86.RSI, x86.RDI,
		x86.R8, x86.R9, x86.R10, x86.R11, x86.R12, x86.R13, x86.R14, x86.R15,
		x86.XMM0, x86.XMM1, x86.XMM2, x86.XMM3, x86.XMM4, x86.XMM5, x86.XMM6, x86.XMM7,
		x86.XMM8, x86.XMM9, x86.XMM10, x86.XMM11, x86.XMM12, x86.XMM13, x86.XMM14, x86.XMM15,
	},
	StackPointer:   x86.RSP,
	StackGrowsDown: true,
	StackAlignment: 16,
	DefaultABI: ABI{
		IndirectResultRegisters: []Location{x86.RDI},
		ParamRegisters:          []Location{x86.RDI, x86.RSI, x86.RDX, x86.RCX, x86.R8, x86.R9},
		SIMDParamRegisters:      []Location{x86.XMM0, x86.XMM1, x86.XMM2, x86.XMM3, x86.XMM4, x86.XMM5, x86.XMM6, x86.XMM7},
		ResultRegisters:         []Location{x86.RAX, x86.RDX},
		SIMDResultRegisters:     []Location{x86.XMM0, x86.XMM1},
		ScratchRegisters:        []Location{x86.RAX, x86.RDI, x86.RSI, x86.RDX, x86.RCX, x86.R8, x86.R9, x86.R10, x86.R11},
		VMStackPointer:          x86.RBX,
		VMFramePointer:          x86.RBP,
		VMThreadLocal:           x86.R12,
	},
}

var ARM64 = &Arch{
	Name:         "arm64",
	Family:       FamilyARM64,
	PointerSize:  8,
	RegisterSize: 8,
	Registers: []Location{
		a64.X0, a64.X1, a64.X2, a64.X3, a64.X4, a64.X5, a64.X6, a64.X7,
		a64.X8, a64.X9, a64.X10, a64.X11, a64.X12, a64.X13, a64.X14, a64.X15,
		a64.X16, a64.X17, a64.X18, a64.X19, a64.X20, a64.X21, a64.X22, a64.X23,
		a64.X24, a64.X25, a64.X26, a64.X27, a64.X28, a64.X29, a64.X30,
		a64.SP,
		a64.D0, a64.D1, a64.D2, a64.D3, a64.D4, a64.D5, a64.D6, a64.D7,
		a64.D8, a64.D9, a64.D10, a64.D11, a64.D12, a64.D13, a64.D14, a64.D15,
	},
	ABIRegisters: []Location{
		a64.X0, a64.X1, a64.X2, a64.X3, a64.X4, a64.X5, a64.X6, a64.X7,
		a64.X8, a64.X9, a64.X10, a64.X11, a64.X12, a64.X13, a64.X14, a64.X15,
		a64.X16, a64.X17, a64.X19, a64.X20, a64.X21, a64.X22, a64.X23,
		a64.X24, a64.X25, a64.X26, a64.X27, a64.X28, a64.X29, a64.X30,
		a64.D0, a64.D1, a64.D2, a64.D3, a64.D4, a64.D5, a64.D6, a64.D7,
		a64.D8, a64.D9, a64.D10, a64.D11, a64.D12, a64.D13, a64.D14, a64.D15,
	},
	StackPointer:   a64.SP,
	StackGrowsDown: true,
	StackAlignment: 16,
	DefaultABI: ABI{
		IndirectResultRegisters: []Location{a64.X8},
		ParamRegisters:          []Location{a64.X0, a64.X1, a64.X2, a64.X3, a64.X4, a64.X5, a64.X6, a64.X7},
		SIMDParamRegisters:      []Location{a64.D0, a64.D1, a64.D2, a64.D3, a64.D4, a64.D5, a64.D6, a64.D7},
		ResultRegisters:         []Location{a64.X0, a64.X1},
		SIMDResultRegisters:     []Location{a64.D0, a64.D1},
		ScratchRegisters: []Location{
			a64.X0, a64.X1, a64.X2, a64.X3, a64.X4, a64.X5, a64.X6, a64.X7,
			a64.X8, a64.X9, a64.X10, a64.X11, a64.X12, a64.X13, a64.X14, a64.X15,
			a64.X16, a64.X17,
		},
		VMStackPointer: a64.X19,
		VMFramePointer: a64.X29,
		VMThreadLocal:  a64.X20,
	},
}

// All is a list of all supported architectures.
var All = [...]*Arch{
	X86_64,
	ARM64,
}

func init() {
	// Populate arch.abiRegisters and arch.RegisterNames.
	for _, arch := range All {
		arch.abiRegisters = make(map[Location]bool)
		for _, reg := range arch.ABIRegisters {
			arch.abiRegisters[reg] = true
		}

		arch.RegisterNames = make(map[string]Location)
		for _, reg := range arch.Registers {
			arch.RegisterNames[reg.String()] = reg
		}
	}
}

// ArchByName maps architecture names to their
// metadata.
var ArchByName = map[string]*Arch{
	X86_64.Name: X86_64,
	ARM64.Name:  ARM64,
}

// ArchFamily represents a group of related machine
// architectures.
type ArchFamily uint8

const (
	FamilyNone ArchFamily = iota
	FamilyX86_64
	FamilyARM64
)

func (f ArchFamily) String() string {
	switch f {
	case FamilyX86_64:
		return "x86-64"
	case FamilyARM64:
		return "arm64"
	default:
		return fmt.Sprintf("ArchFamily(%d)", f)
	}
}
