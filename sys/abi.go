// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package sys

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"firefly-os.dev/tools/jit/internal/a64"
	"firefly-os.dev/tools/jit/internal/x86"
)

// Location represents a single location in memory.
// This is used to describe aspects of a function's
// calling convention. A location will typically be
// either a CPU register or an offset into the call
// stack.
type Location interface {
	IsRegister() bool
	String() string
}

var (
	_ Location = (*x86.Register)(nil)
	_ Location = (*a64.Register)(nil)
)

// Stack represents a location on the stack, which
// is a common Location.
type Stack struct {
	Pointer Location // The stack pointer.
	Offset  int      // An offset from the stack pointer.
}

var _ Location = Stack{}

func (s Stack) IsRegister() bool { return false }
func (s Stack) String() string   { return fmt.Sprintf("%s%+d", s.Pointer, s.Offset) }

// An ABI is used to determine the calling convention
// at a call boundary. This consists of the registers
// that carry each class of argument and result, the
// registers a callee may clobber, and the registers
// the JIT reserves for the VM's own state.
//
// Each architecture has a default ABI, plus additional
// ABIs can be described in TOML (see ParseABI).
type ABI struct {
	// The registers that carry pointers to
	// memory into which the callee writes
	// its result.
	IndirectResultRegisters []Location

	// The sequence of registers available to be
	// used to carry general-purpose parameters.
	ParamRegisters []Location

	// The sequence of registers available to be
	// used to carry vector or floating-point
	// parameters.
	SIMDParamRegisters []Location

	// The sequence of registers used to carry
	// results. The first two registers also hold
	// a tagged value: the payload in the first
	// and the type in the second.
	ResultRegisters []Location

	// The sequence of registers used to carry
	// vector or floating-point results.
	SIMDResultRegisters []Location

	// The set of registers that a callee may
	// overwrite at will.
	ScratchRegisters []Location

	// Registers reserved for VM state, which
	// the JIT keeps live across calls.
	VMStackPointer Location
	VMFramePointer Location
	VMThreadLocal  Location
}

func lookup(class string, regs []Location, i int) Location {
	if i < 0 || i >= len(regs) {
		panic(fmt.Sprintf("ABI has no %s register %d (%d available)", class, i, len(regs)))
	}

	return regs[i]
}

// IndirectResultRegister returns the register that
// carries the i'th indirect result pointer.
func (a *ABI) IndirectResultRegister(i int) Location {
	return lookup("indirect result", a.IndirectResultRegisters, i)
}

// ParamRegister returns the register that carries
// the i'th general-purpose argument.
func (a *ABI) ParamRegister(i int) Location {
	return lookup("parameter", a.ParamRegisters, i)
}

// GeneralRegisters returns the registers that carry
// general-purpose arguments to a call that passes
// the given number of indirect result pointers. Any
// indirect-result registers in use that are also
// parameter registers are removed from the sequence,
// so the general-purpose arguments start after them.
func (a *ABI) GeneralRegisters(indirect int) []Location {
	used := a.IndirectResultRegisters[:min(max(indirect, 0), len(a.IndirectResultRegisters))]
	if !lo.Some(a.ParamRegisters, used) {
		return a.ParamRegisters
	}

	return lo.Without(a.ParamRegisters, used...)
}

// GeneralRegister returns the register that carries
// the i'th general-purpose argument to a call that
// passes indirect result pointers. See GeneralRegisters.
func (a *ABI) GeneralRegister(i, indirect int) Location {
	return lookup("parameter", a.GeneralRegisters(indirect), i)
}

// SIMDParamRegister returns the register that
// carries the i'th vector argument.
func (a *ABI) SIMDParamRegister(i int) Location {
	return lookup("SIMD parameter", a.SIMDParamRegisters, i)
}

// ResultRegister returns the register that carries
// the i'th general-purpose result.
func (a *ABI) ResultRegister(i int) Location {
	return lookup("result", a.ResultRegisters, i)
}

// SIMDResultRegister returns the register that
// carries the i'th vector result.
func (a *ABI) SIMDResultRegister(i int) Location {
	return lookup("SIMD result", a.SIMDResultRegisters, i)
}

// ReturnDataRegister returns the register holding
// the payload word of a returned tagged value.
func (a *ABI) ReturnDataRegister() Location {
	return a.ResultRegister(0)
}

// ReturnTypeRegister returns the register holding
// the type word of a returned tagged value.
func (a *ABI) ReturnTypeRegister() Location {
	return a.ResultRegister(1)
}

// ArgClass describes how an argument is passed.
type ArgClass uint8

const (
	ClassGeneral ArgClass = iota
	ClassSIMD
	ClassIndirectResult
)

func (c ArgClass) String() string {
	switch c {
	case ClassGeneral:
		return "general"
	case ClassSIMD:
		return "SIMD"
	case ClassIndirectResult:
		return "indirect result"
	default:
		return fmt.Sprintf("ArgClass(%d)", c)
	}
}

// allocator is used to allocate argument locations.
type allocator struct {
	Arch *Arch
	ABI  *ABI

	// The general-purpose parameter registers,
	// less any taken by indirect results.
	general []Location

	nextRegister    [3]int
	nextStackOffset int
}

// Allocate returns the location of the next
// argument of the given class. Each argument
// occupies a single stack slot if it does not
// fit in a register.
func (a *allocator) Allocate(class ArgClass) Location {
	var regs []Location
	switch class {
	case ClassGeneral:
		regs = a.general
	case ClassSIMD:
		regs = a.ABI.SIMDParamRegisters
	case ClassIndirectResult:
		regs = a.ABI.IndirectResultRegisters
	default:
		panic(fmt.Sprintf("unexpected argument class %s", class))
	}

	// Take a register if possible.
	if next := a.nextRegister[class]; next < len(regs) {
		a.nextRegister[class]++
		return regs[next]
	}

	// Indirect result pointers must be
	// in registers.
	if class == ClassIndirectResult {
		panic(fmt.Sprintf("ABI has only %d indirect result registers", len(regs)))
	}

	offset := a.nextStackOffset
	if !a.Arch.StackGrowsDown {
		offset = -offset
	}

	a.nextStackOffset += a.Arch.StackSlotSize()

	return Stack{
		Pointer: a.Arch.StackPointer,
		Offset:  offset,
	}
}

// Parameters allocates locations to the arguments
// of a call. The caller passes the class of each
// argument. Each class draws from its own register
// sequence in the ABI. Once a class's registers are
// exhausted, its remaining arguments are assigned
// stack slots in argument order, shared between
// classes.
//
// Indirect result pointers take their registers
// first. A parameter register that carries one is
// not used for general-purpose arguments (see
// ABI.GeneralRegisters).
func (arch *Arch) Parameters(abi *ABI, classes []ArgClass) []Location {
	// Use the default ABI if necessary.
	if abi == nil {
		abi = &arch.DefaultABI
	}

	alloc := allocator{
		Arch:    arch,
		ABI:     abi,
		general: abi.GeneralRegisters(lo.Count(classes, ClassIndirectResult)),
	}

	out := make([]Location, len(classes))
	for i, class := range classes {
		out[i] = alloc.Allocate(class)
	}

	return out
}

// Validate checks that the ABI is
// internally consistent for the given
// architecture.
func (arch *Arch) Validate(abi *ABI) error {
	// Check that all of the registers in
	// each class are ABI registers in the
	// architecture and are not repeated
	// within the class.
	classes := []struct {
		Name string
		Regs []Location
	}{
		{"indirect result", abi.IndirectResultRegisters},
		{"parameter", abi.ParamRegisters},
		{"SIMD parameter", abi.SIMDParamRegisters},
		{"result", abi.ResultRegisters},
		{"SIMD result", abi.SIMDResultRegisters},
		{"scratch", abi.ScratchRegisters},
	}

	seen := make(map[Location]bool)
	for _, class := range classes {
		clear(seen)
		for _, reg := range class.Regs {
			if reg == nil || !reg.IsRegister() {
				return fmt.Errorf("invalid %s register %v: not a register", class.Name, reg)
			}

			if !arch.IsABIRegister(reg) {
				return fmt.Errorf("invalid %s register %s: not an ABI register for %s", class.Name, reg, arch.Name)
			}

			if seen[reg] {
				return fmt.Errorf("invalid %s register %s: repeated in %s registers", class.Name, reg, class.Name)
			}

			seen[reg] = true
		}
	}

	// Tagged values are returned in a pair
	// of registers.
	if len(abi.ResultRegisters) < 2 {
		return fmt.Errorf("invalid result registers: need at least 2 for tagged values, found %d", len(abi.ResultRegisters))
	}

	if len(abi.SIMDResultRegisters) < 1 {
		return fmt.Errorf("invalid SIMD result registers: need at least 1, found 0")
	}

	// Check that the VM registers are
	// distinct ABI registers that do not
	// carry arguments or results and that
	// survive calls.
	usage := make(map[Location][]string)
	for _, class := range classes {
		for _, reg := range class.Regs {
			usage[reg] = append(usage[reg], class.Name)
		}
	}

	vmRegs := []struct {
		Name     string
		Reg      Location
		Required bool
	}{
		{"VM stack pointer", abi.VMStackPointer, true},
		{"VM frame pointer", abi.VMFramePointer, false},
		{"VM thread-local", abi.VMThreadLocal, false},
	}

	clear(seen)
	for _, vm := range vmRegs {
		if vm.Reg == nil {
			if vm.Required {
				return fmt.Errorf("invalid %s register: not specified", vm.Name)
			}

			continue
		}

		if !arch.IsABIRegister(vm.Reg) {
			return fmt.Errorf("invalid %s register %s: not an ABI register for %s", vm.Name, vm.Reg, arch.Name)
		}

		if seen[vm.Reg] {
			return fmt.Errorf("invalid %s register %s: already reserved for the VM", vm.Name, vm.Reg)
		}

		seen[vm.Reg] = true

		if uses := usage[vm.Reg]; len(uses) != 0 {
			var text string
			switch len(uses) {
			case 1:
				text = uses[0]
			case 2:
				text = fmt.Sprintf("%s and %s", uses[0], uses[1])
			default:
				text = fmt.Sprintf("%s, and %s", strings.Join(uses[:len(uses)-1], ", "), uses[len(uses)-1])
			}

			return fmt.Errorf("invalid %s register %s: also listed as %s register", vm.Name, vm.Reg, text)
		}
	}

	return nil
}
