// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package sys

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// abiFile is the TOML form of an ABI.
//
// For example:
//
//	params          = ["rdi", "rsi", "rdx"]
//	simd-params     = ["xmm0", "xmm1"]
//	indirect-result = ["rdi"]
//	results         = ["rax", "rdx"]
//	simd-results    = ["xmm0"]
//	scratch         = ["rax", "rcx", "rdx", "rsi", "rdi"]
//	vm-stack-pointer = "rbx"
//	vm-frame-pointer = "rbp"
type abiFile struct {
	IndirectResult []string `toml:"indirect-result"`
	Params         []string `toml:"params"`
	SIMDParams     []string `toml:"simd-params"`
	Results        []string `toml:"results"`
	SIMDResults    []string `toml:"simd-results"`
	Scratch        []string `toml:"scratch"`
	VMStackPointer string   `toml:"vm-stack-pointer"`
	VMFramePointer string   `toml:"vm-frame-pointer"`
	VMThreadLocal  string   `toml:"vm-thread-local"`
}

// ParseABI decodes an ABI for arch from its TOML
// description. Register names are resolved using
// arch.RegisterNames and the resulting ABI is
// checked with arch.Validate.
func ParseABI(arch *Arch, data []byte) (*ABI, error) {
	var f abiFile
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %v", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}

		sort.Strings(keys)
		return nil, fmt.Errorf("failed to parse ABI: unrecognised fields: %s", strings.Join(keys, ", "))
	}

	r := resolver{arch: arch}
	abi := &ABI{
		IndirectResultRegisters: r.list("indirect-result", f.IndirectResult),
		ParamRegisters:          r.list("params", f.Params),
		SIMDParamRegisters:      r.list("simd-params", f.SIMDParams),
		ResultRegisters:         r.list("results", f.Results),
		SIMDResultRegisters:     r.list("simd-results", f.SIMDResults),
		ScratchRegisters:        r.list("scratch", f.Scratch),
		VMStackPointer:          r.one("vm-stack-pointer", f.VMStackPointer),
		VMFramePointer:          r.one("vm-frame-pointer", f.VMFramePointer),
		VMThreadLocal:           r.one("vm-thread-local", f.VMThreadLocal),
	}

	if r.err != nil {
		return nil, r.err
	}

	if err := arch.Validate(abi); err != nil {
		return nil, err
	}

	return abi, nil
}

// LoadABI reads the TOML file at path and
// decodes it with ParseABI.
func LoadABI(arch *Arch, path string) (*ABI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	abi, err := ParseABI(arch, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}

	return abi, nil
}

// resolver maps register names to locations,
// keeping the first error it finds.
type resolver struct {
	arch *Arch
	err  error
}

func (r *resolver) one(field, name string) Location {
	if name == "" || r.err != nil {
		return nil
	}

	reg, ok := r.arch.RegisterNames[name]
	if !ok {
		r.err = fmt.Errorf("invalid %s: unknown register %q for %s", field, name, r.arch.Name)
		return nil
	}

	return reg
}

func (r *resolver) list(field string, names []string) []Location {
	if len(names) == 0 {
		return nil
	}

	out := make([]Location, len(names))
	for i, name := range names {
		out[i] = r.one(field, name)
	}

	return out
}
