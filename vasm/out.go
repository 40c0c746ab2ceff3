// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package vasm

import (
	"go/token"
)

// Out appends instructions to a block. Each
// instruction is given the source position of
// the instruction from which it was generated.
type Out struct {
	unit  *Unit
	block *Block
	pos   token.Pos
	end   token.Pos
}

// NewOut returns an emitter that appends to the
// block with label l, attributing the code it
// emits to the position of origin.
func NewOut(u *Unit, l Label, origin Instr) *Out {
	return &Out{
		unit:  u,
		block: u.Block(l),
		pos:   origin.Pos,
		end:   origin.End,
	}
}

// Emit appends an instruction.
func (o *Out) Emit(op Op) {
	o.block.Code = append(o.block.Code, Instr{Op: op, Pos: o.pos, End: o.end})
}

// MakeTuple stores regs in the unit's tuple table.
func (o *Out) MakeTuple(regs []Reg) TupleID {
	return o.unit.MakeTuple(regs)
}

// Label returns the label of the block being
// written.
func (o *Out) Label() Label { return o.block.Label }

// Code returns the instructions emitted so far.
func (o *Out) Code() []Instr { return o.block.Code }

// Reset discards the instructions emitted so far.
func (o *Out) Reset() { ResetBlock(o.block) }
