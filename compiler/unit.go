// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package compiler

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"firefly-os.dev/tools/jit/vasm"
)

func isAbstract(in vasm.Instr) bool {
	info := in.Opcode().Info()
	return info != nil && info.Abstract
}

// LowerUnit lowers every abstract instruction in
// the unit. The unit is verified before and after
// lowering.
//
// Unlike Lower, LowerUnit returns faults as errors.
func LowerUnit(cfg *Config, u *vasm.Unit) (err error) {
	if cfg == nil || cfg.Arch == nil {
		return fmt.Errorf("failed to lower %s: no target architecture", u.Name)
	}

	if err := u.Verify(); err != nil {
		return fmt.Errorf("failed to lower %s: %w", u.Name, err)
	}

	defer func() {
		v := recover()
		if v == nil {
			return
		}

		if e, ok := v.(error); ok {
			err = fmt.Errorf("failed to lower %s: %w", u.Name, e)
			return
		}

		panic(v)
	}()

	total := lo.SumBy(u.Blocks, func(b *vasm.Block) int { return lo.CountBy(b.Code, isAbstract) })

	// Scratch blocks may be appended while
	// lowering, so the length is re-read.
	for l := 0; l < len(u.Blocks); l++ {
		b := u.Blocks[l]
		if b.IsScratch() {
			continue
		}

		for i := 0; i < len(b.Code); i++ {
			in := b.Code[i]
			if !isAbstract(in) {
				continue
			}

			before := len(b.Code)
			Lower(cfg, u, b.Label, i)
			n := len(b.Code) - before + 1
			if cfg.Trace != nil {
				cfg.Trace.Printf("%s: %s[%d]: lowered %s -> %d instructions", u.Name, b, i, in.Opcode(), n)
			}

			i += n - 1
		}
	}

	for _, b := range u.Blocks {
		if i := slices.IndexFunc(b.Code, isAbstract); i >= 0 {
			return fmt.Errorf("failed to lower %s: %s[%d] (%s) was not lowered", u.Name, b, i, b.Code[i].Opcode())
		}
	}

	if err := u.Verify(); err != nil {
		return fmt.Errorf("failed to lower %s: %w", u.Name, err)
	}

	if cfg.Trace != nil {
		blocks := lo.CountBy(u.Blocks, func(b *vasm.Block) bool { return !b.IsScratch() })
		cfg.Trace.Printf("%s: lowered %d instructions in %d blocks", u.Name, total, blocks)
	}

	return nil
}
