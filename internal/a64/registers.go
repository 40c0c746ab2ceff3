// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package a64 describes the A64 registers that the
// JIT's calling conventions refer to.
package a64

import (
	"fmt"
)

// Register contains information about
// an A64 register, including its size
// in bits.
type Register struct {
	Name string
	Type RegisterType
	Bits int
	Num  uint8 // The register number used in encodings.
}

func (r *Register) IsRegister() bool { return true }
func (r *Register) String() string   { return r.Name }

var (
	// 64-bit general purpose registers.
	X0  = &Register{Name: "x0", Type: TypeGeneralPurpose, Bits: 64, Num: 0}
	X1  = &Register{Name: "x1", Type: TypeGeneralPurpose, Bits: 64, Num: 1}
	X2  = &Register{Name: "x2", Type: TypeGeneralPurpose, Bits: 64, Num: 2}
	X3  = &Register{Name: "x3", Type: TypeGeneralPurpose, Bits: 64, Num: 3}
	X4  = &Register{Name: "x4", Type: TypeGeneralPurpose, Bits: 64, Num: 4}
	X5  = &Register{Name: "x5", Type: TypeGeneralPurpose, Bits: 64, Num: 5}
	X6  = &Register{Name: "x6", Type: TypeGeneralPurpose, Bits: 64, Num: 6}
	X7  = &Register{Name: "x7", Type: TypeGeneralPurpose, Bits: 64, Num: 7}
	X8  = &Register{Name: "x8", Type: TypeGeneralPurpose, Bits: 64, Num: 8}
	X9  = &Register{Name: "x9", Type: TypeGeneralPurpose, Bits: 64, Num: 9}
	X10 = &Register{Name: "x10", Type: TypeGeneralPurpose, Bits: 64, Num: 10}
	X11 = &Register{Name: "x11", Type: TypeGeneralPurpose, Bits: 64, Num: 11}
	X12 = &Register{Name: "x12", Type: TypeGeneralPurpose, Bits: 64, Num: 12}
	X13 = &Register{Name: "x13", Type: TypeGeneralPurpose, Bits: 64, Num: 13}
	X14 = &Register{Name: "x14", Type: TypeGeneralPurpose, Bits: 64, Num: 14}
	X15 = &Register{Name: "x15", Type: TypeGeneralPurpose, Bits: 64, Num: 15}
	X16 = &Register{Name: "x16", Type: TypeGeneralPurpose, Bits: 64, Num: 16}
	X17 = &Register{Name: "x17", Type: TypeGeneralPurpose, Bits: 64, Num: 17}
	X18 = &Register{Name: "x18", Type: TypeGeneralPurpose, Bits: 64, Num: 18}
	X19 = &Register{Name: "x19", Type: TypeGeneralPurpose, Bits: 64, Num: 19}
	X20 = &Register{Name: "x20", Type: TypeGeneralPurpose, Bits: 64, Num: 20}
	X21 = &Register{Name: "x21", Type: TypeGeneralPurpose, Bits: 64, Num: 21}
	X22 = &Register{Name: "x22", Type: TypeGeneralPurpose, Bits: 64, Num: 22}
	X23 = &Register{Name: "x23", Type: TypeGeneralPurpose, Bits: 64, Num: 23}
	X24 = &Register{Name: "x24", Type: TypeGeneralPurpose, Bits: 64, Num: 24}
	X25 = &Register{Name: "x25", Type: TypeGeneralPurpose, Bits: 64, Num: 25}
	X26 = &Register{Name: "x26", Type: TypeGeneralPurpose, Bits: 64, Num: 26}
	X27 = &Register{Name: "x27", Type: TypeGeneralPurpose, Bits: 64, Num: 27}
	X28 = &Register{Name: "x28", Type: TypeGeneralPurpose, Bits: 64, Num: 28}
	X29 = &Register{Name: "x29", Type: TypeGeneralPurpose, Bits: 64, Num: 29}
	X30 = &Register{Name: "x30", Type: TypeGeneralPurpose, Bits: 64, Num: 30}

	// Stack pointer.
	SP = &Register{Name: "sp", Type: TypeStackPointer, Bits: 64, Num: 31}

	// 64-bit floating point registers.
	D0  = &Register{Name: "d0", Type: TypeFloatingPoint, Bits: 64, Num: 0}
	D1  = &Register{Name: "d1", Type: TypeFloatingPoint, Bits: 64, Num: 1}
	D2  = &Register{Name: "d2", Type: TypeFloatingPoint, Bits: 64, Num: 2}
	D3  = &Register{Name: "d3", Type: TypeFloatingPoint, Bits: 64, Num: 3}
	D4  = &Register{Name: "d4", Type: TypeFloatingPoint, Bits: 64, Num: 4}
	D5  = &Register{Name: "d5", Type: TypeFloatingPoint, Bits: 64, Num: 5}
	D6  = &Register{Name: "d6", Type: TypeFloatingPoint, Bits: 64, Num: 6}
	D7  = &Register{Name: "d7", Type: TypeFloatingPoint, Bits: 64, Num: 7}
	D8  = &Register{Name: "d8", Type: TypeFloatingPoint, Bits: 64, Num: 8}
	D9  = &Register{Name: "d9", Type: TypeFloatingPoint, Bits: 64, Num: 9}
	D10 = &Register{Name: "d10", Type: TypeFloatingPoint, Bits: 64, Num: 10}
	D11 = &Register{Name: "d11", Type: TypeFloatingPoint, Bits: 64, Num: 11}
	D12 = &Register{Name: "d12", Type: TypeFloatingPoint, Bits: 64, Num: 12}
	D13 = &Register{Name: "d13", Type: TypeFloatingPoint, Bits: 64, Num: 13}
	D14 = &Register{Name: "d14", Type: TypeFloatingPoint, Bits: 64, Num: 14}
	D15 = &Register{Name: "d15", Type: TypeFloatingPoint, Bits: 64, Num: 15}
)

var Registers = []*Register{
	X0, X1, X2, X3, X4, X5, X6, X7,
	X8, X9, X10, X11, X12, X13, X14, X15,
	X16, X17, X18, X19, X20, X21, X22, X23,
	X24, X25, X26, X27, X28, X29, X30,
	SP,
	D0, D1, D2, D3, D4, D5, D6, D7,
	D8, D9, D10, D11, D12, D13, D14, D15,
}

var RegistersByName = make(map[string]*Register)

func init() {
	for _, reg := range Registers {
		RegistersByName[reg.Name] = reg
	}
}

// RegisterType categorises an A64
// register.
type RegisterType uint8

const (
	_ RegisterType = iota
	TypeGeneralPurpose
	TypeStackPointer
	TypeFloatingPoint
)

func (t RegisterType) String() string {
	switch t {
	case TypeGeneralPurpose:
		return "general purpose register"
	case TypeStackPointer:
		return "stack pointer register"
	case TypeFloatingPoint:
		return "floating point register"
	default:
		return fmt.Sprintf("RegisterType(%d)", t)
	}
}
