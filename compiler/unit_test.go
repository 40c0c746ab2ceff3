// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package compiler

import (
	"bytes"
	"log"
	"testing"

	"rsc.io/diff"

	"firefly-os.dev/tools/jit/internal/x86"
	"firefly-os.dev/tools/jit/sys"
	"firefly-os.dev/tools/jit/vasm"
)

func TestLowerUnit(t *testing.T) {
	u := &vasm.Unit{Name: "f"}
	b0, b1, b2, b3 := u.NewBlock(), u.NewBlock(), u.NewBlock(), u.NewBlock()
	u.Block(b0).Code = []vasm.Instr{
		{Op: vasm.DefVMSP{D: v(1)}},
		{Op: vasm.Call{CallInfo: newCall(u, vasm.DirectCall("f"), vasm.ArgList{
			Args: []vasm.Reg{v(1)},
		}, vasm.DestSSA, v(2))}},
		{Op: vasm.Invoke{
			CallInfo: newCall(u, vasm.DirectCall("g"), vasm.ArgList{
				StackArgs: []vasm.Reg{v(2)},
			}, vasm.DestNone),
			Targets: [2]vasm.Label{b1, b2},
		}},
	}
	u.Block(b1).Code = []vasm.Instr{
		{Op: vasm.DefVMRetType{D: v(3)}},
		{Op: vasm.SyncVMRet{Data: v(2), Type: v(3)}},
		{Op: vasm.Ret{Args: sys.RegSet{x86.RAX, x86.RDX}}},
	}
	u.Block(b2).Code = []vasm.Instr{
		{Op: vasm.LandingPad{}},
		{Op: vasm.Jmp{Target: b3}},
	}
	u.Block(b3).Code = []vasm.Instr{ret}

	var trace bytes.Buffer
	cfg := &Config{
		Arch:  sys.X86_64,
		Trace: log.New(&trace, "", 0),
	}

	err := LowerUnit(cfg, u)
	if err != nil {
		t.Fatalf("LowerUnit(): %v", err)
	}

	want := `unit f
b0:
	copy rbx -> %1
	copyargs (%1) -> (rdi)
	call f {rdi}
	copy rax -> %2
	pushp %2, %2
	call g {}
	unwind b1, b2
b1:
	lea [rsp+16] -> rsp
	copy rdx -> %3
	copy2 %2, %3 -> rax, rdx
	ret {rax, rdx}
b2:
	landingpad
	lea [rsp+16] -> rsp
	jmp b3
b3:
	ret {}
`
	if got := u.Print(); got != want {
		t.Fatalf("LowerUnit(): (+got, -want)\n%s", diff.Format(want, got))
	}

	wantTrace := `f: b0[0]: lowered defvmsp -> 1 instructions
f: b0[1]: lowered vcall -> 3 instructions
f: b0[4]: lowered vinvoke -> 3 instructions
f: b1[1]: lowered defvmrettype -> 1 instructions
f: b1[2]: lowered syncvmret -> 1 instructions
f: lowered 5 instructions in 4 blocks
`
	if got := trace.String(); got != wantTrace {
		t.Fatalf("LowerUnit(): trace (+got, -want)\n%s", diff.Format(wantTrace, got))
	}

	// Lowering again is a no-op.
	if err := LowerUnit(&Config{Arch: sys.X86_64}, u); err != nil {
		t.Fatalf("LowerUnit(): second pass: %v", err)
	}

	if got := u.Print(); got != want {
		t.Fatalf("LowerUnit(): second pass (+got, -want)\n%s", diff.Format(want, got))
	}
}

func TestLowerUnitErrors(t *testing.T) {
	tests := []struct {
		Name   string
		Config *Config
		Build  func(u *vasm.Unit)
		Want   string
		Fault  bool
	}{
		{
			Name:   "no architecture",
			Config: &Config{},
			Build: func(u *vasm.Unit) {
				u.Block(u.NewBlock()).Code = []vasm.Instr{ret}
			},
			Want: "failed to lower f: no target architecture",
		},
		{
			Name: "invalid unit",
			Build: func(u *vasm.Unit) {
				u.NewBlock()
			},
			Want: "failed to lower f: invalid block b0: block is empty",
		},
		{
			Name: "fault",
			Build: func(u *vasm.Unit) {
				b0, b1, b2 := u.NewBlock(), u.NewBlock(), u.NewBlock()
				u.Block(b0).Code = []vasm.Instr{{Op: vasm.Invoke{
					CallInfo: newCall(u, vasm.DirectCall("g"), vasm.ArgList{StackArgs: []vasm.Reg{v(1)}}, vasm.DestNone),
					Targets:  [2]vasm.Label{b1, b2},
				}}}
				u.Block(b1).Code = []vasm.Instr{ret}
				u.Block(b2).Code = []vasm.Instr{ret}
			},
			Want:  "failed to lower f: b0[0] (vinvoke): unwind block b2 starts with ret, not landingpad or jmp",
			Fault: true,
		},
		{
			Name: "abi lookup",
			Build: func(u *vasm.Unit) {
				u.Block(u.NewBlock()).Code = []vasm.Instr{
					{Op: vasm.Call{CallInfo: newCall(u, vasm.DirectCall("g"), vasm.ArgList{
						SIMDArgs: []vasm.Reg{v(1), v(2), v(3), v(4), v(5), v(6), v(7), v(8), v(9)},
					}, vasm.DestNone)}},
					ret,
				}
			},
			Want:  "failed to lower f: b0[0] (vcall): ABI has no SIMD parameter register 8 (8 available)",
			Fault: true,
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			cfg := test.Config
			if cfg == nil {
				cfg = &Config{Arch: sys.X86_64}
			}

			u := &vasm.Unit{Name: "f"}
			test.Build(u)
			err := LowerUnit(cfg, u)
			if err == nil {
				t.Fatalf("LowerUnit(): unexpected success, wanted %q", test.Want)
			}

			if got := err.Error(); got != test.Want {
				t.Fatalf("LowerUnit():\ngot  %q\nwant %q", got, test.Want)
			}

			f, ok := AsFault(err)
			if ok != test.Fault {
				t.Fatalf("AsFault(): got %v, want %v", ok, test.Fault)
			}

			if ok && f.Block != 0 {
				t.Fatalf("AsFault(): got fault in %s, want b0", f.Block)
			}
		})
	}
}
