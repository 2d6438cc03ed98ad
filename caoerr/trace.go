// Package caoerr defines the unified compile-time and runtime error
// taxonomy shared by the compiler and VM, each error carrying a CardIndex
// (or a full call-stack Trace of them) so a host UI can highlight the
// offending node.
package caoerr

import (
	"strings"

	"github.com/cao-lang/cao-lang-go/ir"
)

// Trace is an ordered list of CardIndex values running outermost-first:
// the entry of main, then the callsite at each stack level, then the
// currently executing card.
type Trace []ir.CardIndex

func (t Trace) String() string {
	parts := make([]string, len(t))
	for i, idx := range t {
		parts[i] = idx.String()
	}
	return strings.Join(parts, " -> ")
}

// With returns a copy of t with idx appended (innermost frame last).
func (t Trace) With(idx ir.CardIndex) Trace {
	out := make(Trace, len(t), len(t)+1)
	copy(out, t)
	return append(out, idx)
}
