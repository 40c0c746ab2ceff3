// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package sys

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"firefly-os.dev/tools/jit/internal/a64"
	"firefly-os.dev/tools/jit/internal/x86"
)

func TestParseABI(t *testing.T) {
	tests := []struct {
		Name    string
		Arch    *Arch
		Source  string
		Want    *ABI
		WantErr string
	}{
		{
			Name: "arm64 minimal",
			Arch: ARM64,
			Source: `
				params           = ["x0", "x1"]
				results          = ["x0", "x1"]
				simd-results     = ["d0"]
				vm-stack-pointer = "x19"
			`,
			Want: &ABI{
				ParamRegisters:      []Location{a64.X0, a64.X1},
				ResultRegisters:     []Location{a64.X0, a64.X1},
				SIMDResultRegisters: []Location{a64.D0},
				VMStackPointer:      a64.X19,
			},
		},
		{
			Name: "unknown register",
			Arch: X86_64,
			Source: `
				params = ["rdi", "x0"]
			`,
			WantErr: `invalid params: unknown register "x0" for x86-64`,
		},
		{
			Name: "unknown field",
			Arch: X86_64,
			Source: `
				results      = ["rax", "rdx"]
				simd-results = ["xmm0"]
				callee-saved = ["rbx"]
			`,
			WantErr: "unrecognised fields: callee-saved",
		},
		{
			Name: "invalid ABI",
			Arch: X86_64,
			Source: `
				results          = ["rax", "rdx"]
				simd-results     = ["xmm0"]
				vm-stack-pointer = "rax"
			`,
			WantErr: "invalid VM stack pointer register rax: also listed as result register",
		},
		{
			Name:    "bad syntax",
			Arch:    X86_64,
			Source:  `params = ["rdi"`,
			WantErr: "failed to parse ABI",
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			got, err := ParseABI(test.Arch, []byte(test.Source))
			if test.WantErr != "" {
				if err == nil {
					t.Fatalf("unexpected success, wanted %q", test.WantErr)
				}

				if !strings.Contains(err.Error(), test.WantErr) {
					t.Fatalf("got error %q, want %q", err, test.WantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("ParseABI(): unexpected error: %v", err)
			}

			if diff := cmp.Diff(test.Want, got); diff != "" {
				t.Fatalf("ParseABI(): (-want, +got)\n%s", diff)
			}
		})
	}
}

func TestLoadABI(t *testing.T) {
	abi, err := LoadABI(X86_64, filepath.Join("testdata", "vm-x86-64.toml"))
	if err != nil {
		t.Fatal(err)
	}

	want := &ABI{
		IndirectResultRegisters: []Location{x86.RDI},
		ParamRegisters:          []Location{x86.RDI, x86.RSI},
		SIMDParamRegisters:      []Location{x86.XMM0},
		ResultRegisters:         []Location{x86.RAX, x86.RDX},
		SIMDResultRegisters:     []Location{x86.XMM0},
		ScratchRegisters:        []Location{x86.RAX, x86.RCX, x86.RDX, x86.RSI, x86.RDI, x86.R8, x86.R9, x86.R10, x86.R11},
		VMStackPointer:          x86.R13,
		VMFramePointer:          x86.RBP,
		VMThreadLocal:           x86.R14,
	}

	if diff := cmp.Diff(want, abi); diff != "" {
		t.Fatalf("LoadABI(): (-want, +got)\n%s", diff)
	}

	_, err = LoadABI(X86_64, filepath.Join("testdata", "missing.toml"))
	if err == nil {
		t.Fatal("LoadABI(): unexpected success for missing file")
	}
}
