// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package idl

import "fmt"

// Kind is the closed set of shapes a runtime type can take.
type Kind uint8

const (
	KindAny Kind = iota
	KindInt
	KindFloat
	KindString
	KindNil
	KindVector
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindNil:
		return "nil"
	case KindVector:
		return "vector"
	case KindRecord:
		return "class/struct"
	default:
		return fmt.Sprintf("kind-%d", uint8(k))
	}
}

// TypeID is the handle callers use to name an expected type.
type TypeID int32

// NoType marks an absent element type, e.g. the plain nil type.
const NoType TypeID = -1

// EnumID indexes an enum registered alongside the types.
type EnumID int32

// NoEnum marks an int type that is not backed by an enum.
const NoEnum EnumID = -1

type Field struct {
	Name string
	Type TypeID
}

// Type describes one runtime type. Values are immutable once registered.
//
// Elem is the element type of a vector, or the wrapped type of a nilable
// (KindNil) type. Name, Heap and Fields only apply to records: a heap record
// is an object referenced from its container, a non-heap record is a
// fixed-layout struct whose fields are stored inline. Enum only applies to
// ints.
type Type struct {
	ID     TypeID
	Kind   Kind
	Elem   TypeID
	Name   string
	Heap   bool
	Fields []Field
	Enum   EnumID
}

// IsStruct reports whether the type is a fixed-layout record.
func (t *Type) IsStruct() bool {
	return t.Kind == KindRecord && !t.Heap
}

type EnumValue struct {
	Name  string
	Value int64
}

type Enum struct {
	ID     EnumID
	Name   string
	Values []EnumValue
}

// TypeRegistry is the read side of a type registry as consumed by the value
// parser and formatter.
type TypeRegistry interface {
	// Type returns the descriptor for id or nil when id is unknown.
	Type(id TypeID) *Type
	// Width returns the number of value slots a value of the type occupies
	// when stored inline. Everything but a fixed-layout record has width 1.
	Width(id TypeID) int
	// LookupEnum resolves a constant name within an enum.
	LookupEnum(enum EnumID, name string) (int64, bool)
	// Enum returns the enum metadata or nil.
	Enum(enum EnumID) *Enum
	// LookupRecord finds a record type by its declared name.
	LookupRecord(name string) (*Type, bool)
	// RecordNames lists every declared record name.
	RecordNames() []string
}
