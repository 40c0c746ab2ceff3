// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package vasm

import (
	"fmt"
	"go/token"

	"firefly-os.dev/tools/jit/sys"
)

// Opcode identifies the kind of an instruction.
type Opcode int

// Info returns a rich description of the operation.
func (op Opcode) Info() *OpInfo {
	if op < 0 || int(op) >= len(opInfo) {
		return nil
	}

	return &opInfo[op]
}

func (op Opcode) String() string {
	if op < 0 || int(op) >= len(opInfo) {
		return fmt.Sprintf("Opcode(%d)", op)
	}

	return opInfo[op].Name
}

// OpInfo gives rich information about an operation.
type OpInfo struct {
	Name       string
	Abstract   bool // Must be lowered before code generation.
	Terminator bool // Ends its block.
	Pseudo     bool // Emits no machine code.
}

const (
	OpInvalid Opcode = iota

	// Abstract calls.
	OpCall
	OpInvoke
	OpCallArray

	// VM register pseudo-instructions.
	OpDefVMSP
	OpSyncVMSP
	OpDefVMRetData
	OpDefVMRetType
	OpSyncVMRet

	// Concrete instructions.
	OpPushPair
	OpCopyArgs
	OpCopy
	OpCopy2
	OpPack2
	OpCallDirect
	OpCallReg
	OpCallMem
	OpCallVarArgs
	OpSyncPoint
	OpNoThrow
	OpUnwind
	OpLea
	OpLandingPad
	OpJmp
	OpRet
	OpLoadImm
)

var opInfo = [...]OpInfo{
	OpInvalid:      {Name: "invalid"},
	OpCall:         {Name: "vcall", Abstract: true},
	OpInvoke:       {Name: "vinvoke", Abstract: true, Terminator: true},
	OpCallArray:    {Name: "vcallarray", Abstract: true, Terminator: true},
	OpDefVMSP:      {Name: "defvmsp", Abstract: true},
	OpSyncVMSP:     {Name: "syncvmsp", Abstract: true},
	OpDefVMRetData: {Name: "defvmretdata", Abstract: true},
	OpDefVMRetType: {Name: "defvmrettype", Abstract: true},
	OpSyncVMRet:    {Name: "syncvmret", Abstract: true},
	OpPushPair:     {Name: "pushp"},
	OpCopyArgs:     {Name: "copyargs"},
	OpCopy:         {Name: "copy"},
	OpCopy2:        {Name: "copy2"},
	OpPack2:        {Name: "pack2"},
	OpCallDirect:   {Name: "call"},
	OpCallReg:      {Name: "callr"},
	OpCallMem:      {Name: "callm"},
	OpCallVarArgs:  {Name: "callarray"},
	OpSyncPoint:    {Name: "syncpoint", Pseudo: true},
	OpNoThrow:      {Name: "nothrow", Pseudo: true},
	OpUnwind:       {Name: "unwind", Terminator: true},
	OpLea:          {Name: "lea"},
	OpLandingPad:   {Name: "landingpad", Pseudo: true},
	OpJmp:          {Name: "jmp", Terminator: true},
	OpRet:          {Name: "ret", Terminator: true},
	OpLoadImm:      {Name: "ldimm"},
}

// Op is the operation performed by an instruction.
//
// The set of operations is closed. Each is one of
// the struct types declared in this package.
type Op interface {
	Opcode() Opcode
	vasmOp()
}

// Instr is a single instruction in a block, together
// with the span of source code that produced it.
type Instr struct {
	Op  Op
	Pos token.Pos
	End token.Pos
}

// Opcode returns the kind of in's operation.
func (in Instr) Opcode() Opcode {
	if in.Op == nil {
		return OpInvalid
	}

	return in.Op.Opcode()
}

// CallInfo describes an abstract call.
type CallInfo struct {
	Target   CallSpec
	Args     ArgsID
	Dests    TupleID
	DestType DestType
	Fixup    *Fixup // Optional.
}

// Call is an abstract call with no exception edge.
type Call struct {
	CallInfo
	NoThrow bool // The callee never throws.
}

// Invoke is an abstract call that may throw. Control
// continues at Targets[0] if the call returns normally
// and at Targets[1] if it unwinds.
type Invoke struct {
	CallInfo
	Targets [2]Label
}

// CallArray is an abstract call to a function that
// takes its arguments in the VM stack, with extra
// arguments passed in general-purpose registers.
type CallArray struct {
	Target    CallSpec
	Args      sys.RegSet // Registers already live into the call.
	ExtraArgs TupleID
	Targets   [2]Label
}

// DefVMSP defines D as the VM stack pointer.
type DefVMSP struct{ D Reg }

// SyncVMSP sets the VM stack pointer to S.
type SyncVMSP struct{ S Reg }

// DefVMRetData defines D as the data word of the VM
// return value.
type DefVMRetData struct{ D Reg }

// DefVMRetType defines D as the type word of the VM
// return value.
type DefVMRetType struct{ D Reg }

// SyncVMRet sets the VM return value.
type SyncVMRet struct{ Data, Type Reg }

// PushPair pushes S0 then S1 onto the native stack.
type PushPair struct{ S0, S1 Reg }

// CopyArgs copies each register in Srcs to the
// corresponding register in Dsts, as a parallel copy.
type CopyArgs struct{ Srcs, Dsts TupleID }

// Copy copies S to D.
type Copy struct{ S, D Reg }

// Copy2 copies S0 to D0 and S1 to D1, as a parallel
// copy.
type Copy2 struct{ S0, S1, D0, D1 Reg }

// Pack2 packs S0 and S1 into the vector register D.
type Pack2 struct{ S0, S1, D Reg }

// CallDirect calls a symbol.
type CallDirect struct {
	Symbol    string
	Smashable bool       // The call site may be patched.
	Args      sys.RegSet // Registers live into the call.
}

// CallReg calls the address in Target.
type CallReg struct {
	Target Reg
	Args   sys.RegSet
}

// CallMem calls the address stored at Base+Disp.
type CallMem struct {
	Base Reg
	Disp int32
	Args sys.RegSet
}

// CallVarArgs calls a function that takes its
// arguments in the VM stack.
type CallVarArgs struct {
	Target CallSpec
	Args   sys.RegSet
}

// SyncPoint records the fixup for the preceding call.
type SyncPoint struct{ Fixup Fixup }

// NoThrow marks the preceding call as never throwing.
type NoThrow struct{}

// Unwind ends a block after a call that may throw.
type Unwind struct{ Targets [2]Label }

// Lea computes Base+Disp into D.
type Lea struct {
	Base Reg
	Disp int32
	D    Reg
}

// LandingPad begins a block reached by unwinding.
type LandingPad struct{}

// Jmp transfers control to Target.
type Jmp struct{ Target Label }

// Ret returns from the function.
type Ret struct{ Args sys.RegSet }

// LoadImm loads the constant Value into D.
type LoadImm struct {
	Value int64
	D     Reg
}

func (Call) Opcode() Opcode         { return OpCall }
func (Invoke) Opcode() Opcode       { return OpInvoke }
func (CallArray) Opcode() Opcode    { return OpCallArray }
func (DefVMSP) Opcode() Opcode      { return OpDefVMSP }
func (SyncVMSP) Opcode() Opcode     { return OpSyncVMSP }
func (DefVMRetData) Opcode() Opcode { return OpDefVMRetData }
func (DefVMRetType) Opcode() Opcode { return OpDefVMRetType }
func (SyncVMRet) Opcode() Opcode    { return OpSyncVMRet }
func (PushPair) Opcode() Opcode     { return OpPushPair }
func (CopyArgs) Opcode() Opcode     { return OpCopyArgs }
func (Copy) Opcode() Opcode         { return OpCopy }
func (Copy2) Opcode() Opcode        { return OpCopy2 }
func (Pack2) Opcode() Opcode        { return OpPack2 }
func (CallDirect) Opcode() Opcode   { return OpCallDirect }
func (CallReg) Opcode() Opcode      { return OpCallReg }
func (CallMem) Opcode() Opcode      { return OpCallMem }
func (CallVarArgs) Opcode() Opcode  { return OpCallVarArgs }
func (SyncPoint) Opcode() Opcode    { return OpSyncPoint }
func (NoThrow) Opcode() Opcode      { return OpNoThrow }
func (Unwind) Opcode() Opcode       { return OpUnwind }
func (Lea) Opcode() Opcode          { return OpLea }
func (LandingPad) Opcode() Opcode   { return OpLandingPad }
func (Jmp) Opcode() Opcode          { return OpJmp }
func (Ret) Opcode() Opcode          { return OpRet }
func (LoadImm) Opcode() Opcode      { return OpLoadImm }

func (Call) vasmOp()         {}
func (Invoke) vasmOp()       {}
func (CallArray) vasmOp()    {}
func (DefVMSP) vasmOp()      {}
func (SyncVMSP) vasmOp()     {}
func (DefVMRetData) vasmOp() {}
func (DefVMRetType) vasmOp() {}
func (SyncVMRet) vasmOp()    {}
func (PushPair) vasmOp()     {}
func (CopyArgs) vasmOp()     {}
func (Copy) vasmOp()         {}
func (Copy2) vasmOp()        {}
func (Pack2) vasmOp()        {}
func (CallDirect) vasmOp()   {}
func (CallReg) vasmOp()      {}
func (CallMem) vasmOp()      {}
func (CallVarArgs) vasmOp()  {}
func (SyncPoint) vasmOp()    {}
func (NoThrow) vasmOp()      {}
func (Unwind) vasmOp()       {}
func (Lea) vasmOp()          {}
func (LandingPad) vasmOp()   {}
func (Jmp) vasmOp()          {}
func (Ret) vasmOp()          {}
func (LoadImm) vasmOp()      {}
