// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package sys

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"firefly-os.dev/tools/jit/internal/a64"
	"firefly-os.dev/tools/jit/internal/x86"
)

func TestDefaultABIs(t *testing.T) {
	for _, arch := range All {
		t.Run(arch.Name, func(t *testing.T) {
			err := arch.Validate(&arch.DefaultABI)
			if err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestArchByName(t *testing.T) {
	for _, arch := range All {
		if got := ArchByName[arch.Name]; got != arch {
			t.Errorf("ArchByName[%q]: got %v, want %v", arch.Name, got, arch)
		}

		if arch.Family.String() != arch.Name {
			t.Errorf("%s: family %s does not match", arch.Name, arch.Family)
		}

		if arch.RegisterNames[arch.StackPointer.String()] != arch.StackPointer {
			t.Errorf("%s: stack pointer %s missing from RegisterNames", arch.Name, arch.StackPointer)
		}
	}
}

func TestABILookups(t *testing.T) {
	tests := []struct {
		Name    string
		Arch    *Arch
		Lookup  func(abi *ABI) Location
		Want    Location
		WantErr string
	}{
		{
			Name:   "x86-64 first parameter",
			Arch:   X86_64,
			Lookup: func(abi *ABI) Location { return abi.ParamRegister(0) },
			Want:   x86.RDI,
		},
		{
			Name:   "x86-64 sixth parameter",
			Arch:   X86_64,
			Lookup: func(abi *ABI) Location { return abi.ParamRegister(5) },
			Want:   x86.R9,
		},
		{
			Name:   "x86-64 SIMD parameter",
			Arch:   X86_64,
			Lookup: func(abi *ABI) Location { return abi.SIMDParamRegister(3) },
			Want:   x86.XMM3,
		},
		{
			Name:   "x86-64 return data",
			Arch:   X86_64,
			Lookup: func(abi *ABI) Location { return abi.ReturnDataRegister() },
			Want:   x86.RAX,
		},
		{
			Name:   "x86-64 return type",
			Arch:   X86_64,
			Lookup: func(abi *ABI) Location { return abi.ReturnTypeRegister() },
			Want:   x86.RDX,
		},
		{
			Name:   "arm64 indirect result",
			Arch:   ARM64,
			Lookup: func(abi *ABI) Location { return abi.IndirectResultRegister(0) },
			Want:   a64.X8,
		},
		{
			Name:   "arm64 SIMD result",
			Arch:   ARM64,
			Lookup: func(abi *ABI) Location { return abi.SIMDResultRegister(0) },
			Want:   a64.D0,
		},
		{
			Name:   "arm64 second result",
			Arch:   ARM64,
			Lookup: func(abi *ABI) Location { return abi.ResultRegister(1) },
			Want:   a64.X1,
		},
		{
			Name:    "x86-64 seventh parameter",
			Arch:    X86_64,
			Lookup:  func(abi *ABI) Location { return abi.ParamRegister(6) },
			WantErr: "ABI has no parameter register 6 (6 available)",
		},
		{
			Name:    "arm64 second indirect result",
			Arch:    ARM64,
			Lookup:  func(abi *ABI) Location { return abi.IndirectResultRegister(1) },
			WantErr: "ABI has no indirect result register 1 (1 available)",
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			defer func() {
				v := recover()
				if test.WantErr == "" {
					if v != nil {
						t.Fatalf("unexpected panic: %v", v)
					}

					return
				}

				if v == nil {
					t.Fatalf("unexpected success, wanted panic %q", test.WantErr)
				}

				if got, _ := v.(string); got != test.WantErr {
					t.Fatalf("got panic %v, want %q", v, test.WantErr)
				}
			}()

			got := test.Lookup(&test.Arch.DefaultABI)
			if got != test.Want {
				t.Fatalf("got %v, want %v", got, test.Want)
			}
		})
	}
}

func TestParameters(t *testing.T) {
	tests := []struct {
		Name    string
		Arch    *Arch
		ABI     *ABI
		Classes []ArgClass
		Want    []Location
	}{
		{
			Name:    "x86-64 mixed classes",
			Arch:    X86_64,
			Classes: []ArgClass{ClassGeneral, ClassSIMD, ClassGeneral, ClassSIMD},
			Want:    []Location{x86.RDI, x86.XMM0, x86.RSI, x86.XMM1},
		},
		{
			Name: "x86-64 overflow",
			Arch: X86_64,
			Classes: []ArgClass{
				ClassGeneral, ClassGeneral, ClassGeneral, ClassGeneral,
				ClassGeneral, ClassGeneral, ClassGeneral, ClassSIMD, ClassGeneral,
			},
			Want: []Location{
				x86.RDI, x86.RSI, x86.RDX, x86.RCX, x86.R8, x86.R9,
				Stack{Pointer: x86.RSP, Offset: +0},
				x86.XMM0,
				Stack{Pointer: x86.RSP, Offset: +8},
			},
		},
		{
			Name:    "arm64 indirect result",
			Arch:    ARM64,
			Classes: []ArgClass{ClassIndirectResult, ClassGeneral, ClassSIMD},
			Want:    []Location{a64.X8, a64.X0, a64.D0},
		},
		{
			Name:    "x86-64 indirect result",
			Arch:    X86_64,
			Classes: []ArgClass{ClassGeneral, ClassIndirectResult, ClassGeneral},
			Want:    []Location{x86.RSI, x86.RDI, x86.RDX},
		},
		{
			Name: "stack only",
			Arch: X86_64,
			ABI: &ABI{
				ResultRegisters: []Location{x86.RAX, x86.RDX},
			},
			Classes: []ArgClass{ClassGeneral, ClassSIMD, ClassGeneral},
			Want: []Location{
				Stack{Pointer: x86.RSP, Offset: +0},
				Stack{Pointer: x86.RSP, Offset: +8},
				Stack{Pointer: x86.RSP, Offset: +16},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			got := test.Arch.Parameters(test.ABI, test.Classes)
			if diff := cmp.Diff(test.Want, got); diff != "" {
				t.Fatalf("Parameters(): (-want, +got)\n%s", diff)
			}

			// Do the same again to make
			// sure the implementation
			// does not mutate the arch
			// or ABI.
			got = test.Arch.Parameters(test.ABI, test.Classes)
			if diff := cmp.Diff(test.Want, got); diff != "" {
				t.Fatalf("repeated Parameters(): (-want, +got)\n%s", diff)
			}
		})
	}
}

func TestGeneralRegisters(t *testing.T) {
	tests := []struct {
		Name     string
		ABI      *ABI
		Indirect int
		Want     []Location
	}{
		{
			Name:     "x86-64 direct",
			ABI:      &X86_64.DefaultABI,
			Indirect: 0,
			Want:     []Location{x86.RDI, x86.RSI, x86.RDX, x86.RCX, x86.R8, x86.R9},
		},
		{
			Name:     "x86-64 indirect",
			ABI:      &X86_64.DefaultABI,
			Indirect: 1,
			Want:     []Location{x86.RSI, x86.RDX, x86.RCX, x86.R8, x86.R9},
		},
		{
			Name:     "x86-64 too many indirect",
			ABI:      &X86_64.DefaultABI,
			Indirect: 3,
			Want:     []Location{x86.RSI, x86.RDX, x86.RCX, x86.R8, x86.R9},
		},
		{
			Name:     "arm64 indirect",
			ABI:      &ARM64.DefaultABI,
			Indirect: 1,
			Want: []Location{
				a64.X0, a64.X1, a64.X2, a64.X3,
				a64.X4, a64.X5, a64.X6, a64.X7,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			got := test.ABI.GeneralRegisters(test.Indirect)
			if diff := cmp.Diff(test.Want, got); diff != "" {
				t.Fatalf("GeneralRegisters(%d): (-want, +got)\n%s", test.Indirect, diff)
			}

			if got := test.ABI.GeneralRegister(0, test.Indirect); got != test.Want[0] {
				t.Fatalf("GeneralRegister(0, %d): got %s, want %s", test.Indirect, got, test.Want[0])
			}
		})
	}

	// The default ABI is not modified.
	if got := X86_64.DefaultABI.ParamRegisters[0]; got != x86.RDI {
		t.Fatalf("x86-64 first parameter register: got %s, want %s", got, x86.RDI)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *ABI {
		abi := X86_64.DefaultABI
		return &abi
	}

	tests := []struct {
		Name   string
		Modify func(abi *ABI)
		Want   string
	}{
		{
			Name:   "not an ABI register",
			Modify: func(abi *ABI) { abi.ParamRegisters = []Location{x86.RDI, x86.RSP} },
			Want:   "invalid parameter register rsp: not an ABI register for x86-64",
		},
		{
			Name:   "foreign register",
			Modify: func(abi *ABI) { abi.SIMDParamRegisters = []Location{a64.D0} },
			Want:   "invalid SIMD parameter register d0: not an ABI register for x86-64",
		},
		{
			Name:   "repeated register",
			Modify: func(abi *ABI) { abi.ResultRegisters = []Location{x86.RAX, x86.RAX} },
			Want:   "invalid result register rax: repeated in result registers",
		},
		{
			Name:   "too few results",
			Modify: func(abi *ABI) { abi.ResultRegisters = []Location{x86.RAX} },
			Want:   "invalid result registers: need at least 2 for tagged values, found 1",
		},
		{
			Name:   "no SIMD results",
			Modify: func(abi *ABI) { abi.SIMDResultRegisters = nil },
			Want:   "invalid SIMD result registers: need at least 1, found 0",
		},
		{
			Name:   "missing VM stack pointer",
			Modify: func(abi *ABI) { abi.VMStackPointer = nil },
			Want:   "invalid VM stack pointer register: not specified",
		},
		{
			Name:   "VM register carries arguments",
			Modify: func(abi *ABI) { abi.VMStackPointer = x86.RSI },
			Want:   "invalid VM stack pointer register rsi: also listed as parameter and scratch register",
		},
		{
			Name:   "VM register carries results",
			Modify: func(abi *ABI) { abi.VMThreadLocal = x86.RDX },
			Want:   "invalid VM thread-local register rdx: also listed as parameter, result, and scratch register",
		},
		{
			Name:   "VM registers overlap",
			Modify: func(abi *ABI) { abi.VMFramePointer = x86.RBX },
			Want:   "invalid VM frame pointer register rbx: already reserved for the VM",
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			abi := valid()
			test.Modify(abi)
			err := X86_64.Validate(abi)
			if err == nil {
				t.Fatalf("unexpected success, wanted %q", test.Want)
			}

			if !strings.Contains(err.Error(), test.Want) {
				t.Fatalf("got error %q, want %q", err, test.Want)
			}
		})
	}
}
