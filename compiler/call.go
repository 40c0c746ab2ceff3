// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package compiler

import (
	"fmt"

	"github.com/samber/lo"

	"firefly-os.dev/tools/jit/sys"
	"firefly-os.dev/tools/jit/vasm"
)

// CallEncoder emits the machine-level call for a
// call target. Args is the set of registers that
// carry arguments into the call.
type CallEncoder interface {
	EncodeCall(v *vasm.Out, target vasm.CallSpec, args sys.RegSet)
}

// DefaultEncoder emits a single call instruction
// for each kind of call target.
type DefaultEncoder struct{}

var _ CallEncoder = DefaultEncoder{}

func (DefaultEncoder) EncodeCall(v *vasm.Out, target vasm.CallSpec, args sys.RegSet) {
	switch target.Kind {
	case vasm.CallKindDirect:
		v.Emit(vasm.CallDirect{Symbol: target.Symbol, Args: args})
	case vasm.CallKindSmashable:
		v.Emit(vasm.CallDirect{Symbol: target.Symbol, Smashable: true, Args: args})
	case vasm.CallKindIndirect:
		v.Emit(vasm.CallReg{Target: target.Reg, Args: args})
	case vasm.CallKindMemory:
		v.Emit(vasm.CallMem{Base: target.Reg, Disp: target.Disp, Args: args})
	default:
		panic(fmt.Errorf("unrecognised call kind %d", target.Kind))
	}
}

// marshal copies srcs into the first len(srcs)
// registers returned by reg, as a single parallel
// copy. The registers are added to live.
func marshal(v *vasm.Out, srcs []vasm.Reg, reg func(int) sys.Location, live sys.RegSet) sys.RegSet {
	if len(srcs) == 0 {
		return live
	}

	locs := lo.Times(len(srcs), reg)
	dsts := lo.Map(locs, func(loc sys.Location, _ int) vasm.Reg { return vasm.PhysReg(loc) })
	v.Emit(vasm.CopyArgs{Srcs: v.MakeTuple(srcs), Dsts: v.MakeTuple(dsts)})

	return live.Union(sys.RegSet(locs))
}

// lowerCall lowers a Call or, if targets is non-nil,
// an Invoke.
//
// The lowered call is emitted in two stages. The first
// stage, which ends with the call itself, replaces the
// instruction being lowered. For a Call, the second stage
// follows it directly. For an Invoke, the first stage
// ends the block with an Unwind, so the second stage
// is placed at the start of the normal successor.
//
// Every check that can fault happens before either
// stage is committed, so a fault leaves the unit as
// it was.
func (l *lowerer) lowerCall(info *vasm.CallInfo, targets *[2]vasm.Label, noThrow bool) {
	u := l.unit

	// Everything we need after the first stage is
	// copied out now, as the instruction being lowered
	// is gone once the first stage is committed.
	args := *u.Args(info.Args)
	results := l.resultCopies(info.DestType, u.Tuple(info.Dests))
	stk := args.StackArgs
	slot := l.arch.StackSlotSize()
	if targets != nil {
		_ = u.Block(targets[0]) // Panics if missing.
		l.checkUnwindBlock(targets[1])
	}

	scratch := u.MakeScratchBlock()
	defer u.FreeScratchBlock(scratch)
	v := vasm.NewOut(u, scratch, l.in)

	// Push the stack arguments in pairs, in reverse
	// order. If there is an odd number, the last one
	// is pushed first, twice, to keep the stack
	// aligned.
	n := len(stk)
	adjust := 0
	if n%2 == 1 {
		adjust = slot
		v.Emit(vasm.PushPair{S0: stk[n-1], S1: stk[n-1]})
		n--
	}

	for i := n; i >= 2; i -= 2 {
		v.Emit(vasm.PushPair{S0: stk[i-1], S1: stk[i-2]})
	}

	indirect := len(args.IndirectRet)
	general := func(i int) sys.Location { return l.abi.GeneralRegister(i, indirect) }

	var live sys.RegSet
	live = marshal(v, args.IndirectRet, l.abi.IndirectResultRegister, live)
	live = marshal(v, args.Args, general, live)
	live = marshal(v, args.SIMDArgs, l.abi.SIMDParamRegister, live)

	l.enc.EncodeCall(v, info.Target, live)

	if info.Fixup != nil {
		v.Emit(vasm.SyncPoint{Fixup: *info.Fixup})
	}

	if targets != nil {
		v.Emit(vasm.Unwind{Targets: *targets})
		if delta := ((len(stk) + 1) &^ 1) * slot; delta != 0 {
			l.popOnUnwind(targets[1], delta)
		}

		vasm.Splice(&u.Block(l.b).Code, l.i, 1, v.Code())
		v.Reset()
	} else if noThrow {
		v.Emit(vasm.NoThrow{})
	}

	for _, op := range results {
		v.Emit(op)
	}

	if len(stk) > 0 {
		delta := len(stk)*slot + adjust
		sp := l.stackPointer()
		v.Emit(vasm.Lea{Base: sp, Disp: int32(delta), D: sp})
	}

	if targets == nil {
		vasm.Splice(&u.Block(l.b).Code, l.i, 1, v.Code())
	} else {
		vasm.Splice(&u.Block(targets[0]).Code, 0, 0, v.Code())
	}
}

// checkUnwindBlock checks that the stack arguments
// can be popped at the start of the unwind block.
func (l *lowerer) checkUnwindBlock(target vasm.Label) {
	taken := l.unit.Block(target).Code
	if len(taken) == 0 {
		l.faultf("unwind block %s is empty", target)
	}

	switch taken[0].Op.(type) {
	case vasm.LandingPad, vasm.Jmp:
	default:
		l.faultf("unwind block %s starts with %s, not landingpad or jmp", target, taken[0].Opcode())
	}
}

// popOnUnwind inserts code at the start of the
// unwind block to pop the stack arguments. The
// block has been checked by checkUnwindBlock.
func (l *lowerer) popOnUnwind(target vasm.Label, delta int) {
	taken := &l.unit.Block(target).Code
	front := (*taken)[0]
	sp := l.stackPointer()
	lea := vasm.Instr{
		Op:  vasm.Lea{Base: sp, Disp: int32(delta), D: sp},
		Pos: front.Pos,
		End: front.End,
	}

	at := 0
	if _, ok := front.Op.(vasm.LandingPad); ok {
		at = 1
	}

	vasm.Splice(taken, at, 0, []vasm.Instr{lea})
}

// resultCopies returns the instructions that copy the
// call's result from the ABI's result registers into
// dests.
func (l *lowerer) resultCopies(destType vasm.DestType, dests []vasm.Reg) []vasm.Op {
	want := func(n int) {
		if len(dests) != n {
			l.faultf("%s call has %d destinations, want %d", destType, len(dests), n)
		}

		for _, dest := range dests {
			if !dest.IsValid() {
				l.faultf("%s call has an invalid destination", destType)
			}
		}
	}

	switch destType {
	case vasm.DestTV:
		ret0 := vasm.PhysReg(l.abi.ResultRegister(0))
		if len(dests) == 1 {
			// The type is known statically.
			want(1)
			return []vasm.Op{vasm.Copy{S: ret0, D: dests[0]}}
		}

		want(2)
		ret1 := vasm.PhysReg(l.abi.ResultRegister(1))
		return []vasm.Op{vasm.Copy2{S0: ret0, S1: ret1, D0: dests[0], D1: dests[1]}}
	case vasm.DestSIMD:
		want(1)
		ret0 := vasm.PhysReg(l.abi.ResultRegister(0))
		ret1 := vasm.PhysReg(l.abi.ResultRegister(1))
		return []vasm.Op{vasm.Pack2{S0: ret0, S1: ret1, D: dests[0]}}
	case vasm.DestSSA, vasm.DestByte:
		want(1)
		return []vasm.Op{vasm.Copy{S: vasm.PhysReg(l.abi.ResultRegister(0)), D: dests[0]}}
	case vasm.DestDbl:
		want(1)
		return []vasm.Op{vasm.Copy{S: vasm.PhysReg(l.abi.SIMDResultRegister(0)), D: dests[0]}}
	case vasm.DestIndirect:
		return nil
	case vasm.DestNone:
		want(0)
		return nil
	}

	l.faultf("unrecognised destination type %s", destType)
	return nil
}

// lowerCallArray lowers a CallArray, which must end
// its block.
func (l *lowerer) lowerCallArray(op vasm.CallArray) {
	u := l.unit
	if last := len(u.Block(l.b).Code) - 1; l.i != last {
		l.faultf("%s at index %d is not the last instruction in %s (last is %d)", l.in.Opcode(), l.i, l.b, last)
	}

	scratch := u.MakeScratchBlock()
	defer u.FreeScratchBlock(scratch)
	v := vasm.NewOut(u, scratch, l.in)

	srcs := u.Tuple(op.ExtraArgs)
	args := op.Args
	dsts := make([]vasm.Reg, len(srcs))
	for i := range srcs {
		reg := l.abi.ParamRegister(i)
		dsts[i] = vasm.PhysReg(reg)
		args = args.Add(reg)
	}

	v.Emit(vasm.CopyArgs{Srcs: v.MakeTuple(srcs), Dsts: v.MakeTuple(dsts)})
	v.Emit(vasm.CallVarArgs{Target: op.Target, Args: args})
	v.Emit(vasm.Unwind{Targets: op.Targets})

	vasm.Splice(&u.Block(l.b).Code, l.i, 1, v.Code())
}
