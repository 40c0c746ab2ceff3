// Copyright 2023 The Firefly Authors.
//
// Use of this source code is governed by a BSD 3-clause
// license that can be found in the LICENSE file.

package sys

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"firefly-os.dev/tools/jit/internal/x86"
)

func TestRegSet(t *testing.T) {
	var s RegSet
	s = s.Add(x86.RDI)
	s = s.Add(x86.RSI)
	s = s.Add(x86.RDI)

	want := RegSet{x86.RDI, x86.RSI}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Fatalf("Add(): (-want, +got)\n%s", diff)
	}

	if !s.Contains(x86.RSI) || s.Contains(x86.RAX) {
		t.Fatalf("Contains(): unexpected membership in %s", s)
	}

	// Adding to a set must not alter
	// another set sharing its storage.
	base := make(RegSet, 0, 4).Add(x86.RDI)
	a := base.Add(x86.RSI)
	b := base.Add(x86.RDX)
	if a.String() != "{rdi, rsi}" || b.String() != "{rdi, rdx}" {
		t.Fatalf("Add(): sets share storage: %s and %s", a, b)
	}

	u := a.Union(RegSet{x86.RDX, x86.RSI, x86.XMM0})
	if got, want := u.String(), "{rdi, rsi, rdx, xmm0}"; got != want {
		t.Fatalf("Union(): got %s, want %s", got, want)
	}

	if got, want := RegSet(nil).String(), "{}"; got != want {
		t.Fatalf("String(): got %s, want %s", got, want)
	}
}
