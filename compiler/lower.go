// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package compiler

import (
	"errors"
	"fmt"
	"runtime"

	"firefly-os.dev/tools/jit/sys"
	"firefly-os.dev/tools/jit/vasm"
)

// lowerer holds the state for lowering a single
// instruction.
type lowerer struct {
	arch *sys.Arch
	abi  *sys.ABI
	enc  CallEncoder
	unit *vasm.Unit
	b    vasm.Label
	i    int
	in   vasm.Instr
}

// Lower rewrites the instruction at index i in block
// b of unit into its ABI-level form. Instructions that
// do not need lowering are left unchanged.
//
// Lowering a call may replace the instruction with
// several, and may insert code at the start of the
// call's successor blocks.
//
// Lower panics with a *Fault if the instruction is
// inconsistent with the rest of the unit.
func Lower(cfg *Config, unit *vasm.Unit, b vasm.Label, i int) {
	code := unit.Block(b).Code
	if i < 0 || i >= len(code) {
		panic(&Fault{Block: b, Index: i, Err: fmt.Errorf("block has %d instructions", len(code))})
	}

	l := &lowerer{
		unit: unit,
		b:    b,
		i:    i,
		in:   code[i],
	}

	defer func() {
		v := recover()
		if v == nil {
			return
		}

		switch v := v.(type) {
		case *Fault, runtime.Error:
			panic(v)
		case error:
			panic(l.fault(v))
		case string:
			panic(l.fault(errors.New(v)))
		}

		panic(v)
	}()

	if cfg == nil || cfg.Arch == nil {
		l.faultf("no target architecture")
	}

	l.arch = cfg.Arch
	l.abi = cfg.abi()
	l.enc = cfg.encoder()

	switch op := l.in.Op.(type) {
	case vasm.Call:
		l.lowerCall(&op.CallInfo, nil, op.NoThrow)
	case vasm.Invoke:
		l.lowerCall(&op.CallInfo, &op.Targets, false)
	case vasm.CallArray:
		l.lowerCallArray(op)
	case vasm.DefVMSP:
		l.replace(vasm.Copy{S: l.phys(l.abi.VMStackPointer), D: op.D})
	case vasm.SyncVMSP:
		l.replace(vasm.Copy{S: op.S, D: l.phys(l.abi.VMStackPointer)})
	case vasm.DefVMRetData:
		l.replace(vasm.Copy{S: l.phys(l.abi.ReturnDataRegister()), D: op.D})
	case vasm.DefVMRetType:
		l.replace(vasm.Copy{S: l.phys(l.abi.ReturnTypeRegister()), D: op.D})
	case vasm.SyncVMRet:
		l.replace(vasm.Copy2{
			S0: op.Data,
			S1: op.Type,
			D0: l.phys(l.abi.ReturnDataRegister()),
			D1: l.phys(l.abi.ReturnTypeRegister()),
		})
	}
}

func (l *lowerer) fault(err error) *Fault {
	return &Fault{Block: l.b, Index: l.i, Op: l.in.Opcode(), Err: err}
}

func (l *lowerer) faultf(format string, v ...any) {
	panic(l.fault(fmt.Errorf(format, v...)))
}

// phys returns the physical register for loc,
// which must be set.
func (l *lowerer) phys(loc sys.Location) vasm.Reg {
	if loc == nil {
		l.faultf("ABI has no VM register for %s", l.in.Opcode())
	}

	return vasm.PhysReg(loc)
}

// replace overwrites the instruction being lowered
// with op, keeping its source position.
func (l *lowerer) replace(op vasm.Op) {
	l.unit.Block(l.b).Code[l.i] = vasm.Instr{Op: op, Pos: l.in.Pos, End: l.in.End}
}

// stackPointer returns the native stack pointer.
func (l *lowerer) stackPointer() vasm.Reg {
	return vasm.PhysReg(l.arch.StackPointer)
}
