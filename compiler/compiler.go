// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

// Package compiler lowers abstract vasm calls and VM
// register pseudo-instructions into code that follows
// the target ABI's calling convention.
package compiler

import (
	"errors"
	"fmt"
	"log"

	"firefly-os.dev/tools/jit/sys"
	"firefly-os.dev/tools/jit/vasm"
)

// Config describes the target of a lowering pass.
type Config struct {
	// The target architecture. This must
	// not be nil.
	Arch *sys.Arch

	// The calling convention for calls. If
	// nil, Arch.DefaultABI is used.
	ABI *sys.ABI

	// The encoder used to emit machine calls.
	// If nil, DefaultEncoder is used.
	Encoder CallEncoder

	// If non-nil, LowerUnit logs each lowered
	// instruction to Trace.
	Trace *log.Logger
}

func (c *Config) abi() *sys.ABI {
	if c.ABI != nil {
		return c.ABI
	}

	return &c.Arch.DefaultABI
}

func (c *Config) encoder() CallEncoder {
	if c.Encoder != nil {
		return c.Encoder
	}

	return DefaultEncoder{}
}

// Fault describes an internal inconsistency found
// while lowering an instruction. Faults indicate a
// bug in the code that produced the unit, so Lower
// panics with a *Fault rather than returning it.
type Fault struct {
	Block vasm.Label  // The block being lowered.
	Index int         // The instruction's index in the block.
	Op    vasm.Opcode // The instruction being lowered.
	Err   error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s[%d] (%s): %v", f.Block, f.Index, f.Op, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// AsFault returns the *Fault in err's chain, if any.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	ok := errors.As(err, &f)
	return f, ok
}
