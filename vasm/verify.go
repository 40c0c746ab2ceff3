// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package vasm

import (
	"fmt"
)

// Verify checks the structural invariants of the
// unit, returning the first violation found.
//
// Every block must end with its only terminator,
// every edge must lead to a block in the control
// flow graph, every table reference must be valid,
// and each call's destinations must match its
// destination type.
func (u *Unit) Verify() error {
	if u.scratch != nil {
		return fmt.Errorf("invalid unit %s: scratch block %s is still in use", u.Name, u.scratch)
	}

	if len(u.Blocks) > 0 {
		if err := u.checkTarget(u.Entry); err != nil {
			return fmt.Errorf("invalid unit %s: entry %v", u.Name, err)
		}
	}

	for _, b := range u.Blocks {
		if b.scratch {
			if len(b.Code) != 0 {
				return fmt.Errorf("invalid block %s: unused scratch block has %d instructions", b, len(b.Code))
			}

			continue
		}

		if len(b.Code) == 0 {
			return fmt.Errorf("invalid block %s: block is empty", b)
		}

		last := len(b.Code) - 1
		for i, in := range b.Code {
			if in.Op == nil {
				return fmt.Errorf("invalid block %s: instruction %d has no operation", b, i)
			}

			info := in.Opcode().Info()
			if info.Terminator && i != last {
				return fmt.Errorf("invalid block %s: terminator %s at index %d is not the last instruction", b, info.Name, i)
			}

			if err := u.checkInstr(in); err != nil {
				return fmt.Errorf("invalid block %s: instruction %d (%s): %v", b, i, info.Name, err)
			}
		}

		if end := b.Code[last].Opcode(); !end.Info().Terminator {
			return fmt.Errorf("invalid block %s: block ends with %s, which is not a terminator", b, end)
		}

		for _, succ := range b.Successors() {
			if err := u.checkTarget(succ); err != nil {
				return fmt.Errorf("invalid block %s: successor %v", b, err)
			}
		}
	}

	return nil
}

func (u *Unit) checkTarget(l Label) error {
	if l < 0 || int(l) >= len(u.Blocks) {
		return fmt.Errorf("%s does not exist", l)
	}

	if u.Blocks[l].scratch {
		return fmt.Errorf("%s is a scratch block", l)
	}

	return nil
}

func (u *Unit) checkTuple(id TupleID) error {
	if id < 0 || int(id) >= len(u.Tuples) {
		return fmt.Errorf("tuple %d does not exist", id)
	}

	for _, reg := range u.Tuples[id] {
		if !reg.IsValid() {
			return fmt.Errorf("tuple %d contains an invalid register", id)
		}
	}

	return nil
}

func (u *Unit) checkCall(info *CallInfo) error {
	if info.Args < 0 || int(info.Args) >= len(u.CallArgs) {
		return fmt.Errorf("argument list %d does not exist", info.Args)
	}

	if err := u.checkTuple(info.Dests); err != nil {
		return err
	}

	dests := len(u.Tuples[info.Dests])
	want := info.DestType.Arity()
	if info.DestType == DestTV && dests == 1 {
		// The type is known statically, so only
		// the data word is needed.
		want = 1
	}

	if dests != want {
		return fmt.Errorf("%s call has %d destinations, want %d", info.DestType, dests, want)
	}

	switch info.Target.Kind {
	case CallKindDirect, CallKindSmashable:
		if info.Target.Symbol == "" {
			return fmt.Errorf("direct call has no symbol")
		}
	case CallKindIndirect, CallKindMemory:
		if !info.Target.Reg.IsValid() {
			return fmt.Errorf("call target has an invalid register")
		}
	default:
		return fmt.Errorf("unrecognised call kind %d", info.Target.Kind)
	}

	return nil
}

func (u *Unit) checkInstr(in Instr) error {
	switch op := in.Op.(type) {
	case Call:
		return u.checkCall(&op.CallInfo)
	case Invoke:
		return u.checkCall(&op.CallInfo)
	case CallArray:
		return u.checkTuple(op.ExtraArgs)
	case CopyArgs:
		if err := u.checkTuple(op.Srcs); err != nil {
			return err
		}

		if err := u.checkTuple(op.Dsts); err != nil {
			return err
		}

		if srcs, dsts := len(u.Tuples[op.Srcs]), len(u.Tuples[op.Dsts]); srcs != dsts {
			return fmt.Errorf("copies %d sources to %d destinations", srcs, dsts)
		}
	}

	return nil
}
