// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package heap

import (
	"fmt"
	"math"

	"gopkg.microglot.org/litdata/internal/idl"
)

// Tag identifies which member of the Value union is set.
type Tag uint8

const (
	TagNil Tag = iota
	TagInt
	TagFloat
	TagRef
	// TagStruct is a fixed-layout record held by value. It only appears as
	// the result of a parse whose expected type is an inline record; inside
	// containers the same fields are flattened into the container's slots.
	TagStruct
)

func (t Tag) String() string {
	switch t {
	case TagNil:
		return "nil"
	case TagInt:
		return "int"
	case TagFloat:
		return "float"
	case TagRef:
		return "ref"
	case TagStruct:
		return "struct"
	default:
		return fmt.Sprintf("tag-%d", uint8(t))
	}
}

// Value is a single slot.
type Value struct {
	tag   Tag
	bits  uint64
	ref   Object
	typ   idl.TypeID
	slots []Value
}

func Nil() Value {
	return Value{tag: TagNil, typ: idl.NoType}
}

func Int(v int64) Value {
	return Value{tag: TagInt, bits: uint64(v), typ: idl.NoType}
}

func Float(v float64) Value {
	return Value{tag: TagFloat, bits: math.Float64bits(v), typ: idl.NoType}
}

// Ref wraps a heap object. A nil object yields Nil.
func Ref(o Object) Value {
	if o == nil {
		return Nil()
	}
	return Value{tag: TagRef, ref: o, typ: idl.NoType}
}

// Struct wraps the flattened slots of an inline record of type t.
func Struct(t idl.TypeID, slots []Value) Value {
	return Value{tag: TagStruct, typ: t, slots: slots}
}

func (v Value) Tag() Tag {
	return v.tag
}

func (v Value) IsNil() bool {
	return v.tag == TagNil
}

func (v Value) Int() int64 {
	return int64(v.bits)
}

func (v Value) Float() float64 {
	return math.Float64frombits(v.bits)
}

// Object returns the referenced heap object or nil.
func (v Value) Object() Object {
	return v.ref
}

// StructType is the inline record type of a TagStruct value.
func (v Value) StructType() idl.TypeID {
	return v.typ
}

// Slots returns the flattened fields of a TagStruct value.
func (v Value) Slots() []Value {
	return v.slots
}

// Negate flips the sign of a numeric value. The second result is false when
// the value is not numeric.
func (v Value) Negate() (Value, bool) {
	switch v.tag {
	case TagInt:
		return Int(-v.Int()), true
	case TagFloat:
		return Float(-v.Float()), true
	default:
		return v, false
	}
}

func (v Value) String() string {
	switch v.tag {
	case TagNil:
		return "nil"
	case TagInt:
		return fmt.Sprint(v.Int())
	case TagFloat:
		return fmt.Sprint(v.Float())
	case TagRef:
		return fmt.Sprint(v.ref)
	case TagStruct:
		return fmt.Sprint(v.slots)
	default:
		return v.tag.String()
	}
}

// Equal compares two values structurally. Heap objects compare by content,
// not identity.
func Equal(a Value, b Value) bool {
	if a.tag != b.tag {
		return false
	}
	switch a.tag {
	case TagNil:
		return true
	case TagInt, TagFloat:
		return a.bits == b.bits
	case TagStruct:
		return a.typ == b.typ && equalSlots(a.slots, b.slots)
	case TagRef:
		return equalObjects(a.ref, b.ref)
	default:
		return false
	}
}

func equalSlots(a []Value, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for x := range a {
		if !Equal(a[x], b[x]) {
			return false
		}
	}
	return true
}

func equalObjects(a Object, b Object) bool {
	if a == b {
		return true
	}
	if a.Type() != b.Type() {
		return false
	}
	switch at := a.(type) {
	case *String:
		bt, ok := b.(*String)
		return ok && at.value == bt.value
	case *Vector:
		bt, ok := b.(*Vector)
		return ok && at.width == bt.width && equalSlots(at.slots, bt.slots)
	case *Record:
		bt, ok := b.(*Record)
		return ok && equalSlots(at.slots, bt.slots)
	default:
		return false
	}
}
