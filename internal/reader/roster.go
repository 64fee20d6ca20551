// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"gopkg.microglot.org/litdata/internal/heap"
)

// roster records every object allocated while parsing one literal so that a
// failed parse leaves the heap as it found it.
type roster struct {
	heap    *heap.Heap
	objects []heap.Object
	closed  bool
}

func newRoster(h *heap.Heap) *roster {
	return &roster{heap: h}
}

func (r *roster) add(o heap.Object) {
	r.objects = append(r.objects, o)
}

func (r *roster) Len() int {
	return len(r.objects)
}

// Commit hands ownership of the allocations to the parsed value.
func (r *roster) Commit() {
	r.objects = nil
	r.closed = true
}

// Rollback releases each rostered object exactly once, newest first, and
// returns how many were released. Containers do not release their children
// here because every child is on the roster too. Rollback after Commit is a
// no-op.
func (r *roster) Rollback() int {
	if r.closed {
		return 0
	}
	r.closed = true
	count := len(r.objects)
	for x := count - 1; x >= 0; x = x - 1 {
		r.heap.Discard(r.objects[x])
	}
	r.objects = nil
	return count
}
