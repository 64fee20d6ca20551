// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.microglot.org/litdata/internal/exc"
	"gopkg.microglot.org/litdata/internal/idl"
)

// Builtin type handles. They are present in every Registry.
const (
	TypeAny idl.TypeID = iota
	TypeInt
	TypeFloat
	TypeString
	TypeNil
	TypeVectorAny
)

var _ idl.TypeRegistry = (*Registry)(nil)

// Registry owns every type descriptor a value can be checked against. Reads
// may happen concurrently with registration.
type Registry struct {
	lock     sync.RWMutex
	types    []*idl.Type
	enums    []*idl.Enum
	records  map[string]idl.TypeID
	vectors  map[idl.TypeID]idl.TypeID
	nilables map[idl.TypeID]idl.TypeID
	enumInts map[idl.EnumID]idl.TypeID
	// enum constant lookup, parallel to enums
	constants []map[string]int64
}

func NewRegistry() *Registry {
	r := &Registry{
		records:  make(map[string]idl.TypeID),
		vectors:  make(map[idl.TypeID]idl.TypeID),
		nilables: make(map[idl.TypeID]idl.TypeID),
		enumInts: make(map[idl.EnumID]idl.TypeID),
	}
	for _, k := range []idl.Kind{idl.KindAny, idl.KindInt, idl.KindFloat, idl.KindString, idl.KindNil} {
		r.add(&idl.Type{Kind: k, Elem: idl.NoType, Enum: idl.NoEnum})
	}
	r.vectors[TypeAny] = r.add(&idl.Type{Kind: idl.KindVector, Elem: TypeAny, Enum: idl.NoEnum})
	return r
}

func (r *Registry) add(t *idl.Type) idl.TypeID {
	t.ID = idl.TypeID(len(r.types))
	r.types = append(r.types, t)
	return t.ID
}

func (r *Registry) get(id idl.TypeID) *idl.Type {
	if id < 0 || int(id) >= len(r.types) {
		return nil
	}
	return r.types[id]
}

func (r *Registry) Type(id idl.TypeID) *idl.Type {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.get(id)
}

// Types returns every registered descriptor in handle order.
func (r *Registry) Types() []*idl.Type {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return append([]*idl.Type(nil), r.types...)
}

func (r *Registry) Width(id idl.TypeID) int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.width(id)
}

func (r *Registry) width(id idl.TypeID) int {
	t := r.get(id)
	if t == nil || !t.IsStruct() {
		return 1
	}
	w := 0
	for _, f := range t.Fields {
		w = w + r.width(f.Type)
	}
	return w
}

func (r *Registry) Enum(enum idl.EnumID) *idl.Enum {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if enum < 0 || int(enum) >= len(r.enums) {
		return nil
	}
	return r.enums[enum]
}

// Enums returns every registered enum in handle order.
func (r *Registry) Enums() []*idl.Enum {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return append([]*idl.Enum(nil), r.enums...)
}

func (r *Registry) LookupEnum(enum idl.EnumID, name string) (int64, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if enum < 0 || int(enum) >= len(r.constants) {
		return 0, false
	}
	v, ok := r.constants[enum][name]
	return v, ok
}

func (r *Registry) LookupRecord(name string) (*idl.Type, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	id, ok := r.records[name]
	if !ok {
		return nil, false
	}
	return r.types[id], true
}

// Vector returns the vector type over elem, creating it on first use.
func (r *Registry) Vector(elem idl.TypeID) (idl.TypeID, error) {
	return r.wrap(elem, idl.KindVector, r.vectors)
}

// Nilable returns the type accepting either nil or a value of elem. Inline
// records have no nil representation.
func (r *Registry) Nilable(elem idl.TypeID) (idl.TypeID, error) {
	r.lock.RLock()
	t := r.get(elem)
	r.lock.RUnlock()
	if t != nil && t.Kind == idl.KindNil {
		return elem, nil
	}
	if t != nil && t.IsStruct() {
		return idl.NoType, exc.Newf(exc.Location{}, exc.CodeUnsupportedSchema, "inline record %s cannot be nil", t.Name)
	}
	return r.wrap(elem, idl.KindNil, r.nilables)
}

func (r *Registry) wrap(elem idl.TypeID, kind idl.Kind, memo map[idl.TypeID]idl.TypeID) (idl.TypeID, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.get(elem) == nil {
		return idl.NoType, unknownType(elem)
	}
	if id, ok := memo[elem]; ok {
		return id, nil
	}
	id := r.add(&idl.Type{Kind: kind, Elem: elem, Enum: idl.NoEnum})
	memo[elem] = id
	return id, nil
}

// DefineEnum registers a named set of integer constants.
func (r *Registry) DefineEnum(name string, values ...idl.EnumValue) (idl.EnumID, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, e := range r.enums {
		if e.Name == name {
			return idl.NoEnum, exc.Newf(exc.Location{}, exc.CodeDuplicateType, "enum %s is already registered", name)
		}
	}
	constants := make(map[string]int64, len(values))
	for _, v := range values {
		if _, ok := constants[v.Name]; ok {
			return idl.NoEnum, exc.Newf(exc.Location{}, exc.CodeDuplicateType, "enum %s declares %s twice", name, v.Name)
		}
		constants[v.Name] = v.Value
	}
	e := &idl.Enum{
		ID:     idl.EnumID(len(r.enums)),
		Name:   name,
		Values: append([]idl.EnumValue(nil), values...),
	}
	r.enums = append(r.enums, e)
	r.constants = append(r.constants, constants)
	return e.ID, nil
}

// EnumInt returns the int type backed by enum.
func (r *Registry) EnumInt(enum idl.EnumID) (idl.TypeID, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if enum < 0 || int(enum) >= len(r.enums) {
		return idl.NoType, exc.Newf(exc.Location{}, exc.CodeUnknownType, "unknown enum handle %d", enum)
	}
	if id, ok := r.enumInts[enum]; ok {
		return id, nil
	}
	id := r.add(&idl.Type{Kind: idl.KindInt, Elem: idl.NoType, Enum: enum})
	r.enumInts[enum] = id
	return id, nil
}

// DeclareRecord reserves a record handle so that fields may refer to it
// before it is defined. A heap record is referenced from its container; an
// inline record is a fixed-layout struct stored in its container's slots.
func (r *Registry) DeclareRecord(name string, heap bool) (idl.TypeID, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if name == "" {
		return idl.NoType, exc.New(exc.Location{}, exc.CodeUnsupportedSchema, "records must be named")
	}
	if _, ok := r.records[name]; ok {
		return idl.NoType, exc.Newf(exc.Location{}, exc.CodeDuplicateType, "record %s is already registered", name)
	}
	id := r.add(&idl.Type{Kind: idl.KindRecord, Elem: idl.NoType, Name: name, Heap: heap, Enum: idl.NoEnum})
	r.records[name] = id
	return id, nil
}

// DefineFields sets the ordered field list of a declared record. An inline
// record may not contain itself, directly or through other inline records.
func (r *Registry) DefineFields(id idl.TypeID, fields ...idl.Field) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	t := r.get(id)
	if t == nil || t.Kind != idl.KindRecord {
		return unknownType(id)
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if r.get(f.Type) == nil {
			return exc.Newf(exc.Location{}, exc.CodeUnresolvedType, "field %s.%s has unknown type %d", t.Name, f.Name, f.Type)
		}
		if seen[f.Name] {
			return exc.Newf(exc.Location{}, exc.CodeDuplicateType, "record %s declares field %s twice", t.Name, f.Name)
		}
		seen[f.Name] = true
	}
	old := t.Fields
	t.Fields = append([]idl.Field(nil), fields...)
	if t.IsStruct() && r.containsStruct(id, id, map[idl.TypeID]bool{}) {
		t.Fields = old
		return exc.Newf(exc.Location{}, exc.CodeRecursiveStruct, "inline record %s contains itself", t.Name)
	}
	return nil
}

func (r *Registry) containsStruct(root idl.TypeID, id idl.TypeID, visited map[idl.TypeID]bool) bool {
	visited[id] = true
	for _, f := range r.types[id].Fields {
		ft := r.get(f.Type)
		if !ft.IsStruct() {
			continue
		}
		if f.Type == root {
			return true
		}
		if !visited[f.Type] && r.containsStruct(root, f.Type, visited) {
			return true
		}
	}
	return false
}

// Record declares and defines a record whose field types are already known.
func (r *Registry) Record(name string, heap bool, fields ...idl.Field) (idl.TypeID, error) {
	id, err := r.DeclareRecord(name, heap)
	if err != nil {
		return idl.NoType, err
	}
	return id, r.DefineFields(id, fields...)
}

// Name renders a type handle for humans: int, [float], Point, string?,
// enum names for enum ints.
func (r *Registry) Name(id idl.TypeID) string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	var b strings.Builder
	r.name(&b, id)
	return b.String()
}

func (r *Registry) name(b *strings.Builder, id idl.TypeID) {
	t := r.get(id)
	switch {
	case t == nil:
		fmt.Fprintf(b, "<type %d>", id)
	case t.Kind == idl.KindRecord:
		b.WriteString(t.Name)
	case t.Kind == idl.KindVector:
		b.WriteString("[")
		r.name(b, t.Elem)
		b.WriteString("]")
	case t.Kind == idl.KindNil && t.Elem != idl.NoType:
		r.name(b, t.Elem)
		b.WriteString("?")
	case t.Kind == idl.KindInt && t.Enum != idl.NoEnum:
		b.WriteString(r.enums[t.Enum].Name)
	default:
		b.WriteString(t.Kind.String())
	}
}

// Resolve parses a type expression as rendered by Name. Vector and nilable
// wrappers are registered on demand.
func (r *Registry) Resolve(expr string) (idl.TypeID, error) {
	expr = strings.TrimSpace(expr)
	switch {
	case strings.HasSuffix(expr, "?"):
		elem, err := r.Resolve(expr[:len(expr)-1])
		if err != nil {
			return idl.NoType, err
		}
		return r.Nilable(elem)
	case strings.HasPrefix(expr, "[") && strings.HasSuffix(expr, "]"):
		elem, err := r.Resolve(expr[1 : len(expr)-1])
		if err != nil {
			return idl.NoType, err
		}
		return r.Vector(elem)
	}
	for _, id := range []idl.TypeID{TypeAny, TypeInt, TypeFloat, TypeString, TypeNil} {
		if r.Type(id).Kind.String() == expr {
			return id, nil
		}
	}
	if t, ok := r.LookupRecord(expr); ok {
		return t.ID, nil
	}
	for _, e := range r.Enums() {
		if e.Name == expr {
			return r.EnumInt(e.ID)
		}
	}
	return idl.NoType, exc.Newf(exc.Location{}, exc.CodeUnknownType, "unknown type %q", expr)
}

// RecordNames lists the declared record names, sorted.
func (r *Registry) RecordNames() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()
	names := make([]string, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func unknownType(id idl.TypeID) exc.Exception {
	return exc.Newf(exc.Location{}, exc.CodeUnknownType, "unknown type handle %d", id)
}
