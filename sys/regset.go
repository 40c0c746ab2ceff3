// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package sys

import (
	"strings"

	"github.com/samber/lo"
)

// RegSet is an ordered set of physical registers,
// such as the registers that carry the arguments
// to a call and so must be live at the call.
//
// The order in which registers are added is kept.
// RegSet values are never modified in place: Add
// and Union return new sets.
type RegSet []Location

// Contains returns whether reg is in the set.
func (s RegSet) Contains(reg Location) bool {
	return lo.Contains(s, reg)
}

// Add returns the set with reg included.
func (s RegSet) Add(reg Location) RegSet {
	if s.Contains(reg) {
		return s
	}

	return append(s[:len(s):len(s)], reg)
}

// Union returns the set with all registers in
// other included.
func (s RegSet) Union(other RegSet) RegSet {
	out := s
	for _, reg := range other {
		out = out.Add(reg)
	}

	return out
}

func (s RegSet) String() string {
	names := lo.Map(s, func(reg Location, _ int) string { return reg.String() })
	return "{" + strings.Join(names, ", ") + "}"
}
