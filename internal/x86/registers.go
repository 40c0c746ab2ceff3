// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package x86 describes the x86-64 registers that
// the JIT's calling conventions refer to.
package x86

import (
	"fmt"
)

// Register contains information about
// an x86-64 register, including its size
// in bits and the 4-bit number used to
// encode it.
type Register struct {
	Name string
	Type RegisterType
	Bits int
	Reg  byte // The 4-bit encoding of the register for ModR/M.reg.
}

func (r *Register) IsRegister() bool { return true }
func (r *Register) String() string   { return r.Name }

var (
	// 64-bit general purpose registers.
	RAX = &Register{Name: "rax", Type: TypeGeneralPurpose, Reg: 0x0, Bits: 64}
	RCX = &Register{Name: "rcx", Type: TypeGeneralPurpose, Reg: 0x1, Bits: 64}
	RDX = &Register{Name: "rdx", Type: TypeGeneralPurpose, Reg: 0x2, Bits: 64}
	RBX = &Register{Name: "rbx", Type: TypeGeneralPurpose, Reg: 0x3, Bits: 64}
	RSP = &Register{Name: "rsp", Type: TypeGeneralPurpose, Reg: 0x4, Bits: 64}
	RBP = &Register{Name: "rbp", Type: TypeGeneralPurpose, Reg: 0x5, Bits: 64}
	RSI = &Register{Name: "rsi", Type: TypeGeneralPurpose, Reg: 0x6, Bits: 64}
	RDI = &Register{Name: "rdi", Type: TypeGeneralPurpose, Reg: 0x7, Bits: 64}
	R8  = &Register{Name: "r8", Type: TypeGeneralPurpose, Reg: 0x8, Bits: 64}
	R9  = &Register{Name: "r9", Type: TypeGeneralPurpose, Reg: 0x9, Bits: 64}
	R10 = &Register{Name: "r10", Type: TypeGeneralPurpose, Reg: 0xa, Bits: 64}
	R11 = &Register{Name: "r11", Type: TypeGeneralPurpose, Reg: 0xb, Bits: 64}
	R12 = &Register{Name: "r12", Type: TypeGeneralPurpose, Reg: 0xc, Bits: 64}
	R13 = &Register{Name: "r13", Type: TypeGeneralPurpose, Reg: 0xd, Bits: 64}
	R14 = &Register{Name: "r14", Type: TypeGeneralPurpose, Reg: 0xe, Bits: 64}
	R15 = &Register{Name: "r15", Type: TypeGeneralPurpose, Reg: 0xf, Bits: 64}

	// Instruction pointer.
	RIP = &Register{Name: "rip", Type: TypeInstructionPointer, Bits: 64}

	// SSE registers.
	XMM0  = &Register{Name: "xmm0", Type: TypeXMM, Reg: 0x0, Bits: 128}
	XMM1  = &Register{Name: "xmm1", Type: TypeXMM, Reg: 0x1, Bits: 128}
	XMM2  = &Register{Name: "xmm2", Type: TypeXMM, Reg: 0x2, Bits: 128}
	XMM3  = &Register{Name: "xmm3", Type: TypeXMM, Reg: 0x3, Bits: 128}
	XMM4  = &Register{Name: "xmm4", Type: TypeXMM, Reg: 0x4, Bits: 128}
	XMM5  = &Register{Name: "xmm5", Type: TypeXMM, Reg: 0x5, Bits: 128}
	XMM6  = &Register{Name: "xmm6", Type: TypeXMM, Reg: 0x6, Bits: 128}
	XMM7  = &Register{Name: "xmm7", Type: TypeXMM, Reg: 0x7, Bits: 128}
	XMM8  = &Register{Name: "xmm8", Type: TypeXMM, Reg: 0x8, Bits: 128}
	XMM9  = &Register{Name: "xmm9", Type: TypeXMM, Reg: 0x9, Bits: 128}
	XMM10 = &Register{Name: "xmm10", Type: TypeXMM, Reg: 0xa, Bits: 128}
	XMM11 = &Register{Name: "xmm11", Type: TypeXMM, Reg: 0xb, Bits: 128}
	XMM12 = &Register{Name: "xmm12", Type: TypeXMM, Reg: 0xc, Bits: 128}
	XMM13 = &Register{Name: "xmm13", Type: TypeXMM, Reg: 0xd, Bits: 128}
	XMM14 = &Register{Name: "xmm14", Type: TypeXMM, Reg: 0xe, Bits: 128}
	XMM15 = &Register{Name: "xmm15", Type: TypeXMM, Reg: 0xf, Bits: 128}
)

var Registers = []*Register{
	RAX, RCX, RDX, RBX, RSP, RBP, RSI, RDI, R8, R9, R10, R11, R12, R13, R14, R15,
	RIP,
	XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7,
	XMM8, XMM9, XMM10, XMM11, XMM12, XMM13, XMM14, XMM15,
}

var (
	// GeneralPurpose contains the 64-bit
	// general purpose registers.
	GeneralPurpose = []*Register{
		RAX, RCX, RDX, RBX, RSP, RBP, RSI, RDI,
		R8, R9, R10, R11, R12, R13, R14, R15,
	}

	// XMM contains the 128-bit SSE
	// registers.
	XMM = []*Register{
		XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7,
		XMM8, XMM9, XMM10, XMM11, XMM12, XMM13, XMM14, XMM15,
	}
)

var RegistersByName = make(map[string]*Register)

func init() {
	for _, reg := range Registers {
		RegistersByName[reg.Name] = reg
	}
}

// RegisterType categorises an x86
// register.
type RegisterType uint8

const (
	_ RegisterType = iota
	TypeGeneralPurpose
	TypeInstructionPointer
	TypeXMM
)

func (t RegisterType) String() string {
	switch t {
	case TypeGeneralPurpose:
		return "general purpose register"
	case TypeInstructionPointer:
		return "instruction pointer register"
	case TypeXMM:
		return "XMM register"
	default:
		return fmt.Sprintf("RegisterType(%d)", t)
	}
}
