// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

// Package heap is a small reference-counted object store for parsed values.
// It is not safe for concurrent use.
package heap

import (
	"fmt"
	"strconv"

	"gopkg.microglot.org/litdata/internal/exc"
	"gopkg.microglot.org/litdata/internal/idl"
)

// Object is a reference-counted heap allocation.
type Object interface {
	Type() idl.TypeID
	Refs() int
	hdr() *header
}

type header struct {
	typ   idl.TypeID
	refs  int
	freed bool
}

func (h *header) Type() idl.TypeID {
	return h.typ
}

func (h *header) Refs() int {
	return h.refs
}

func (h *header) hdr() *header {
	return h
}

type String struct {
	header
	value string
}

func (s *String) Value() string {
	return s.value
}

func (s *String) String() string {
	return strconv.Quote(s.value)
}

// Vector holds Len elements of Width slots each.
type Vector struct {
	header
	slots []Value
	width int
}

func (v *Vector) Len() int {
	return len(v.slots) / v.width
}

func (v *Vector) Width() int {
	return v.width
}

// At returns the slots of element x.
func (v *Vector) At(x int) []Value {
	return v.slots[x*v.width : (x+1)*v.width]
}

func (v *Vector) Slots() []Value {
	return v.slots
}

func (v *Vector) String() string {
	return fmt.Sprint(v.slots)
}

type Record struct {
	header
	slots []Value
}

// Slots returns the record's fields with inline structs flattened.
func (r *Record) Slots() []Value {
	return r.slots
}

func (r *Record) String() string {
	return fmt.Sprint(r.slots)
}

// Heap allocates objects and tracks how many are alive.
type Heap struct {
	live   int
	allocs int
}

func New() *Heap {
	return &Heap{}
}

// Live reports the number of allocated objects not yet released.
func (h *Heap) Live() int {
	return h.live
}

// Allocs reports the number of objects ever allocated.
func (h *Heap) Allocs() int {
	return h.allocs
}

func (h *Heap) init(hd *header, t idl.TypeID) {
	hd.typ = t
	hd.refs = 1
	h.live = h.live + 1
	h.allocs = h.allocs + 1
}

// NewString allocates a string of type t with one reference owned by the
// caller.
func (h *Heap) NewString(t idl.TypeID, s string) *String {
	o := &String{value: s}
	h.init(&o.header, t)
	return o
}

// NewVector allocates a vector of type t that takes ownership of the
// references held by slots. width is the slot count of one element.
func (h *Heap) NewVector(t idl.TypeID, slots []Value, width int) (*Vector, error) {
	if width < 1 || len(slots)%width != 0 {
		return nil, exc.Newf(exc.Location{}, exc.CodeUnknownFatal, "%d slots do not divide into elements of width %d", len(slots), width)
	}
	o := &Vector{slots: slots, width: width}
	h.init(&o.header, t)
	return o, nil
}

// NewRecord allocates a record of type t that takes ownership of the
// references held by slots.
func (h *Heap) NewRecord(t idl.TypeID, slots []Value) *Record {
	o := &Record{slots: slots}
	h.init(&o.header, t)
	return o
}

func (h *Heap) Inc(o Object) {
	hd := o.hdr()
	if hd.freed {
		panic("heap: reference to released object")
	}
	hd.refs = hd.refs + 1
}

// Dec drops a reference and releases the object when none remain, which in
// turn drops the references it holds.
func (h *Heap) Dec(o Object) {
	if !h.drop(o) {
		return
	}
	var slots []Value
	switch ot := o.(type) {
	case *Vector:
		slots = ot.slots
	case *Record:
		slots = ot.slots
	}
	for _, v := range slots {
		h.DecValue(v)
	}
}

// DecValue drops every reference held by v.
func (h *Heap) DecValue(v Value) {
	switch v.tag {
	case TagRef:
		h.Dec(v.ref)
	case TagStruct:
		for _, s := range v.slots {
			h.DecValue(s)
		}
	}
}

// Discard drops one reference without touching the references the object
// holds. It is used to unwind a batch of allocations where every child is
// discarded on its own.
func (h *Heap) Discard(o Object) {
	h.drop(o)
}

func (h *Heap) drop(o Object) bool {
	hd := o.hdr()
	if hd.freed {
		panic("heap: object released twice")
	}
	hd.refs = hd.refs - 1
	if hd.refs > 0 {
		return false
	}
	hd.freed = true
	h.live = h.live - 1
	return true
}
