// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package vasm

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"firefly-os.dev/tools/jit/sys"
)

// Block is a single basic block in a unit's control
// flow graph.
//
// The last instruction in a block is its terminator,
// which determines the block's successors. No other
// instruction in the block may be a terminator.
type Block struct {
	// The block's position in its unit.
	Label Label

	// The instructions in the block.
	Code []Instr

	// Whether the block is used for staging
	// generated code.
	scratch bool
}

// IsScratch returns whether b is a scratch block.
// Scratch blocks are never part of the control flow
// graph.
func (b *Block) IsScratch() bool { return b.scratch }

func (b *Block) String() string { return b.Label.String() }

// Successors returns the blocks to which control
// may pass after b, as determined by its terminator.
func (b *Block) Successors() []Label {
	if len(b.Code) == 0 {
		return nil
	}

	switch op := b.Code[len(b.Code)-1].Op.(type) {
	case Jmp:
		return []Label{op.Target}
	case Unwind:
		return []Label{op.Targets[0], op.Targets[1]}
	case Invoke:
		return []Label{op.Targets[0], op.Targets[1]}
	case CallArray:
		return []Label{op.Targets[0], op.Targets[1]}
	}

	return nil
}

// Unit is a single compilation unit, consisting of a
// control flow graph and the side tables that its
// instructions refer to.
//
// A Unit must not be used by more than one goroutine
// at a time.
type Unit struct {
	Name     string
	Blocks   []*Block  // Indexed by Label.
	Entry    Label     // The first block to execute.
	CallArgs []ArgList // Indexed by ArgsID.
	Tuples   [][]Reg   // Indexed by TupleID.

	regs idAllocator

	// The live scratch block (if any) and the
	// scratch blocks available for reuse.
	scratch     *Block
	freeScratch []*Block
}

// NewBlock appends a new empty block to the unit
// and returns its label.
func (u *Unit) NewBlock() Label {
	b := &Block{Label: Label(len(u.Blocks))}
	u.Blocks = append(u.Blocks, b)

	return b.Label
}

// Block returns the block with the given label.
func (u *Unit) Block(l Label) *Block {
	if l < 0 || int(l) >= len(u.Blocks) {
		panic(fmt.Sprintf("unit %s has no block %s (%d blocks)", u.Name, l, len(u.Blocks)))
	}

	return u.Blocks[l]
}

// NewReg returns a new virtual register.
func (u *Unit) NewReg() Reg {
	return VirtualReg(u.regs.Next())
}

// MakeTuple stores a copy of regs in the unit's
// tuple table and returns its identifier.
func (u *Unit) MakeTuple(regs []Reg) TupleID {
	u.Tuples = append(u.Tuples, slices.Clone(regs))
	return TupleID(len(u.Tuples) - 1)
}

// Tuple returns the registers in the given tuple.
func (u *Unit) Tuple(id TupleID) []Reg {
	if id < 0 || int(id) >= len(u.Tuples) {
		panic(fmt.Sprintf("unit %s has no tuple %d (%d tuples)", u.Name, id, len(u.Tuples)))
	}

	return u.Tuples[id]
}

// MakeArgs stores args in the unit's argument table
// and returns its identifier.
func (u *Unit) MakeArgs(args ArgList) ArgsID {
	u.CallArgs = append(u.CallArgs, args)
	return ArgsID(len(u.CallArgs) - 1)
}

// Args returns the argument list with the given
// identifier.
func (u *Unit) Args(id ArgsID) *ArgList {
	if id < 0 || int(id) >= len(u.CallArgs) {
		panic(fmt.Sprintf("unit %s has no argument list %d (%d lists)", u.Name, id, len(u.CallArgs)))
	}

	return &u.CallArgs[id]
}

// MakeCallArgs builds an argument list for a call
// using the given ABI, which may be nil to select
// the architecture's default ABI. Each argument is
// placed in its class's register list if the ABI
// assigns it a register, or in the stack arguments
// otherwise.
func (u *Unit) MakeCallArgs(arch *sys.Arch, abi *sys.ABI, args []Arg) ArgsID {
	classes := lo.Map(args, func(arg Arg, _ int) sys.ArgClass { return arg.Class })
	locs := arch.Parameters(abi, classes)

	var list ArgList
	for i, loc := range locs {
		arg := args[i]
		if !loc.IsRegister() {
			list.StackArgs = append(list.StackArgs, arg.Reg)
			continue
		}

		switch arg.Class {
		case sys.ClassIndirectResult:
			list.IndirectRet = append(list.IndirectRet, arg.Reg)
		case sys.ClassGeneral:
			list.Args = append(list.Args, arg.Reg)
		case sys.ClassSIMD:
			list.SIMDArgs = append(list.SIMDArgs, arg.Reg)
		}
	}

	return u.MakeArgs(list)
}

// MakeScratchBlock returns an empty block that
// can be used to stage generated code before it
// is spliced into the control flow graph.
//
// At most one scratch block may be in use at a
// time. It must be returned with FreeScratchBlock.
func (u *Unit) MakeScratchBlock() Label {
	if u.scratch != nil {
		panic(fmt.Sprintf("unit %s: scratch block %s is already in use", u.Name, u.scratch))
	}

	var b *Block
	if n := len(u.freeScratch); n > 0 {
		b = u.freeScratch[n-1]
		u.freeScratch = u.freeScratch[:n-1]
	} else {
		b = &Block{Label: Label(len(u.Blocks)), scratch: true}
		u.Blocks = append(u.Blocks, b)
	}

	u.scratch = b

	return b.Label
}

// FreeScratchBlock discards any code left in the
// scratch block and makes it available for reuse.
func (u *Unit) FreeScratchBlock(l Label) {
	if u.scratch == nil || u.scratch.Label != l {
		panic(fmt.Sprintf("unit %s: %s is not the scratch block in use", u.Name, l))
	}

	ResetBlock(u.scratch)
	u.freeScratch = append(u.freeScratch, u.scratch)
	u.scratch = nil
}

// ResetBlock removes all instructions from b,
// keeping its storage.
func ResetBlock(b *Block) {
	clear(b.Code)
	b.Code = b.Code[:0]
}

// Splice replaces the remove instructions in *dst
// starting at index at with the instructions in src.
// The instructions are copied, so src may be reused
// afterwards.
func Splice(dst *[]Instr, at, remove int, src []Instr) {
	if at < 0 || remove < 0 || at+remove > len(*dst) {
		panic(fmt.Sprintf("cannot splice %d instructions at index %d into %d instructions", remove, at, len(*dst)))
	}

	*dst = slices.Replace(*dst, at, at+remove, src...)
}
