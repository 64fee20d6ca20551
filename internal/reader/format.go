// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"math"
	"strconv"
	"strings"

	"gopkg.microglot.org/litdata/internal/exc"
	"gopkg.microglot.org/litdata/internal/heap"
	"gopkg.microglot.org/litdata/internal/idl"
)

// Format renders v, a value of type t, in the literal syntax accepted by
// ParseData.
func Format(reg idl.TypeRegistry, t idl.TypeID, v heap.Value) (string, error) {
	f := &formatter{registry: reg}
	if err := f.value(t, v); err != nil {
		return "", err
	}
	return f.b.String(), nil
}

type formatter struct {
	registry idl.TypeRegistry
	b        strings.Builder
}

func (f *formatter) value(id idl.TypeID, v heap.Value) error {
	t := f.registry.Type(id)
	if t == nil {
		return exc.Newf(exc.Location{}, exc.CodeInvalidTypeHandle, "unknown type handle %d", id)
	}
	if t.Kind == idl.KindNil && t.Elem != idl.NoType && !v.IsNil() {
		return f.value(t.Elem, v)
	}
	switch v.Tag() {
	case heap.TagNil:
		f.b.WriteString("nil")
	case heap.TagInt:
		f.int(t, v.Int())
	case heap.TagFloat:
		return f.float(v.Float())
	case heap.TagStruct:
		return f.record(v.StructType(), v.Slots())
	case heap.TagRef:
		return f.object(v.Object())
	}
	return nil
}

func (f *formatter) int(t *idl.Type, v int64) {
	if t.Kind == idl.KindInt && t.Enum != idl.NoEnum {
		if e := f.registry.Enum(t.Enum); e != nil {
			for _, ev := range e.Values {
				if ev.Value == v {
					f.b.WriteString(ev.Name)
					return
				}
			}
		}
	}
	f.b.WriteString(strconv.FormatInt(v, 10))
}

func (f *formatter) float(v float64) error {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return exc.Newf(exc.Location{}, exc.CodeNumericExpected, "%v has no literal form", v)
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s = s + ".0"
	}
	f.b.WriteString(s)
	return nil
}

func (f *formatter) object(o heap.Object) error {
	switch ot := o.(type) {
	case *heap.String:
		f.b.WriteString(strconv.Quote(ot.Value()))
	case *heap.Record:
		return f.record(ot.Type(), ot.Slots())
	case *heap.Vector:
		t := f.registry.Type(ot.Type())
		if t == nil || t.Kind != idl.KindVector {
			return exc.Newf(exc.Location{}, exc.CodeInvalidTypeHandle, "vector has non-vector type %d", ot.Type())
		}
		et := f.registry.Type(t.Elem)
		f.b.WriteString("[")
		for x := 0; x < ot.Len(); x = x + 1 {
			if x > 0 {
				f.b.WriteString(", ")
			}
			var err error
			if et != nil && et.IsStruct() {
				err = f.record(t.Elem, ot.At(x))
			} else {
				err = f.value(t.Elem, ot.At(x)[0])
			}
			if err != nil {
				return err
			}
		}
		f.b.WriteString("]")
	}
	return nil
}

// record renders a heap record or an inline record from its flattened slots.
func (f *formatter) record(id idl.TypeID, slots []heap.Value) error {
	t := f.registry.Type(id)
	if t == nil || t.Kind != idl.KindRecord {
		return exc.Newf(exc.Location{}, exc.CodeInvalidTypeHandle, "record has non-record type %d", id)
	}
	f.b.WriteString(t.Name)
	f.b.WriteString("{")
	offset := 0
	for x, field := range t.Fields {
		if x > 0 {
			f.b.WriteString(", ")
		}
		w := f.registry.Width(field.Type)
		if offset+w > len(slots) {
			return exc.Newf(exc.Location{}, exc.CodeUnknownFatal, "%s has %d slots, field %s needs more", t.Name, len(slots), field.Name)
		}
		var err error
		if ft := f.registry.Type(field.Type); ft != nil && ft.IsStruct() {
			err = f.record(field.Type, slots[offset:offset+w])
		} else {
			err = f.value(field.Type, slots[offset])
		}
		if err != nil {
			return err
		}
		offset = offset + w
	}
	f.b.WriteString("}")
	return nil
}
