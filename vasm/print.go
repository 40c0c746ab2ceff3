// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package vasm

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Print returns a textual representation of u.
//
// The output takes the form:
//
//	unit {name}
//	b{label}:
//		{instruction}
//
// Scratch blocks are omitted.
func (u *Unit) Print() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "unit %s\n", u.Name)
	for _, b := range u.Blocks {
		if b.scratch {
			continue
		}

		fmt.Fprintf(&buf, "%s:\n", b)
		for _, in := range b.Code {
			fmt.Fprintf(&buf, "\t%s\n", u.Format(in))
		}
	}

	return buf.String()
}

func formatRegs(regs []Reg) string {
	return strings.Join(lo.Map(regs, func(r Reg, _ int) string { return r.String() }), ", ")
}

func formatTargets(targets [2]Label) string {
	return fmt.Sprintf("%s, %s", targets[0], targets[1])
}

func (u *Unit) formatArgs(id ArgsID) string {
	args := u.Args(id)
	var parts []string
	add := func(name string, regs []Reg) {
		if len(regs) > 0 {
			parts = append(parts, name+": "+formatRegs(regs))
		}
	}

	add("indirect", args.IndirectRet)
	add("args", args.Args)
	add("simd", args.SIMDArgs)
	add("stack", args.StackArgs)

	return "(" + strings.Join(parts, "; ") + ")"
}

func (u *Unit) formatCall(info *CallInfo) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s %s -> (%s) %s", info.Target, u.formatArgs(info.Args), formatRegs(u.Tuple(info.Dests)), info.DestType)
	if info.Fixup != nil {
		fmt.Fprintf(&buf, " fixup=%s", info.Fixup)
	}

	return buf.String()
}

// Format returns a textual representation of
// in, resolving any references to u's tables.
func (u *Unit) Format(in Instr) string {
	name := in.Opcode().String()
	switch op := in.Op.(type) {
	case Call:
		s := name + " " + u.formatCall(&op.CallInfo)
		if op.NoThrow {
			s += " nothrow"
		}

		return s
	case Invoke:
		return fmt.Sprintf("%s %s => %s", name, u.formatCall(&op.CallInfo), formatTargets(op.Targets))
	case CallArray:
		return fmt.Sprintf("%s %s %s (%s) => %s", name, op.Target, op.Args, formatRegs(u.Tuple(op.ExtraArgs)), formatTargets(op.Targets))
	case DefVMSP:
		return fmt.Sprintf("%s -> %s", name, op.D)
	case SyncVMSP:
		return fmt.Sprintf("%s %s", name, op.S)
	case DefVMRetData:
		return fmt.Sprintf("%s -> %s", name, op.D)
	case DefVMRetType:
		return fmt.Sprintf("%s -> %s", name, op.D)
	case SyncVMRet:
		return fmt.Sprintf("%s %s, %s", name, op.Data, op.Type)
	case PushPair:
		return fmt.Sprintf("%s %s, %s", name, op.S0, op.S1)
	case CopyArgs:
		return fmt.Sprintf("%s (%s) -> (%s)", name, formatRegs(u.Tuple(op.Srcs)), formatRegs(u.Tuple(op.Dsts)))
	case Copy:
		return fmt.Sprintf("%s %s -> %s", name, op.S, op.D)
	case Copy2:
		return fmt.Sprintf("%s %s, %s -> %s, %s", name, op.S0, op.S1, op.D0, op.D1)
	case Pack2:
		return fmt.Sprintf("%s %s, %s -> %s", name, op.S0, op.S1, op.D)
	case CallDirect:
		s := fmt.Sprintf("%s %s %s", name, op.Symbol, op.Args)
		if op.Smashable {
			s += " smashable"
		}

		return s
	case CallReg:
		return fmt.Sprintf("%s %s %s", name, op.Target, op.Args)
	case CallMem:
		return fmt.Sprintf("%s [%s%+d] %s", name, op.Base, op.Disp, op.Args)
	case CallVarArgs:
		return fmt.Sprintf("%s %s %s", name, op.Target, op.Args)
	case SyncPoint:
		return fmt.Sprintf("%s %s", name, op.Fixup)
	case Unwind:
		return fmt.Sprintf("%s %s", name, formatTargets(op.Targets))
	case Lea:
		return fmt.Sprintf("%s [%s%+d] -> %s", name, op.Base, op.Disp, op.D)
	case Jmp:
		return fmt.Sprintf("%s %s", name, op.Target)
	case Ret:
		return fmt.Sprintf("%s %s", name, op.Args)
	case LoadImm:
		return fmt.Sprintf("%s %d -> %s", name, op.Value, op.D)
	}

	return name
}
