// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

// Package protobuf registers the messages and enums of protobuf file
// descriptors as runtime types.
package protobuf

import (
	"strings"

	"google.golang.org/protobuf/types/descriptorpb"

	"gopkg.microglot.org/litdata/internal/exc"
	"gopkg.microglot.org/litdata/internal/idl"
	"gopkg.microglot.org/litdata/internal/types"
)

// Importer maps protobuf descriptors into a types.Registry. Messages become
// heap records unless they are listed as inline, enums become enum-backed
// ints and nested declarations are promoted to Outer_Inner names.
//
// Descriptors may come straight from the parser without linking, so type
// references are resolved by walking outward through the enclosing scopes.
type Importer struct {
	registry *types.Registry
	inline   map[string]bool
	records  map[string]idl.TypeID
	enums    map[string]idl.TypeID
}

func NewImporter(reg *types.Registry, inline ...string) *Importer {
	im := &Importer{
		registry: reg,
		inline:   make(map[string]bool, len(inline)),
		records:  make(map[string]idl.TypeID),
		enums:    make(map[string]idl.TypeID),
	}
	for _, name := range inline {
		im.inline[strings.TrimPrefix(name, ".")] = true
	}
	return im
}

// message is a message declaration found while declaring types.
type message struct {
	uri        string
	fullName   string
	id         idl.TypeID
	descriptor *descriptorpb.DescriptorProto
}

// Import declares every message and enum of files first and defines the
// record fields afterwards so that references may point anywhere in the set,
// including to messages declared later or in another file.
func (im *Importer) Import(files ...*descriptorpb.FileDescriptorProto) error {
	var messages []message
	for _, file := range files {
		uri := file.GetName()
		scope := file.GetPackage()
		for _, enum := range file.EnumType {
			if err := im.declareEnum(uri, scope, "", enum); err != nil {
				return err
			}
		}
		for _, descriptor := range file.MessageType {
			var err error
			messages, err = im.declareMessage(messages, uri, scope, "", descriptor)
			if err != nil {
				return err
			}
		}
	}
	for _, m := range messages {
		if err := im.defineFields(m); err != nil {
			return err
		}
	}
	return nil
}

// Lookup finds a type by its fully qualified protobuf name.
func (im *Importer) Lookup(fullName string) (idl.TypeID, bool) {
	fullName = strings.TrimPrefix(fullName, ".")
	if id, ok := im.records[fullName]; ok {
		return id, true
	}
	id, ok := im.enums[fullName]
	return id, ok
}

func (im *Importer) declareEnum(uri string, scope string, prefix string, descriptor *descriptorpb.EnumDescriptorProto) error {
	values := make([]idl.EnumValue, 0, len(descriptor.Value))
	for _, v := range descriptor.Value {
		values = append(values, idl.EnumValue{Name: v.GetName(), Value: int64(v.GetNumber())})
	}
	enum, err := im.registry.DefineEnum(prefix+descriptor.GetName(), values...)
	if err != nil {
		return exc.Wrap(exc.Location{URI: uri}, exc.CodeDuplicateType, err)
	}
	id, err := im.registry.EnumInt(enum)
	if err != nil {
		return exc.WrapUnknown(exc.Location{URI: uri}, err)
	}
	im.enums[qualify(scope, descriptor.GetName())] = id
	return nil
}

func (im *Importer) declareMessage(messages []message, uri string, scope string, prefix string, descriptor *descriptorpb.DescriptorProto) ([]message, error) {
	fullName := qualify(scope, descriptor.GetName())
	name := prefix + descriptor.GetName()
	heap := !im.inline[fullName] && !im.inline[name]
	id, err := im.registry.DeclareRecord(name, heap)
	if err != nil {
		return messages, exc.Wrap(exc.Location{URI: uri}, exc.CodeDuplicateType, err)
	}
	im.records[fullName] = id
	messages = append(messages, message{
		uri:        uri,
		fullName:   fullName,
		id:         id,
		descriptor: descriptor,
	})
	// promote nested
	for _, enum := range descriptor.EnumType {
		if err := im.declareEnum(uri, fullName, name+"_", enum); err != nil {
			return messages, err
		}
	}
	for _, nested := range descriptor.NestedType {
		messages, err = im.declareMessage(messages, uri, fullName, name+"_", nested)
		if err != nil {
			return messages, err
		}
	}
	return messages, nil
}

func (im *Importer) defineFields(m message) error {
	fields := make([]idl.Field, 0, len(m.descriptor.Field))
	for _, field := range m.descriptor.Field {
		id, err := im.fieldType(m, field)
		if err != nil {
			return err
		}
		fields = append(fields, idl.Field{Name: field.GetName(), Type: id})
	}
	if err := im.registry.DefineFields(m.id, fields...); err != nil {
		return exc.Wrap(exc.Location{URI: m.uri}, exc.Code(err), err)
	}
	return nil
}

func (im *Importer) fieldType(m message, field *descriptorpb.FieldDescriptorProto) (idl.TypeID, error) {
	loc := exc.Location{URI: m.uri}
	elem, record, err := im.elemType(m, field)
	if err != nil {
		return idl.NoType, err
	}
	if field.GetLabel() == descriptorpb.FieldDescriptorProto_LABEL_REPEATED {
		id, err := im.registry.Vector(elem)
		if err != nil {
			return idl.NoType, exc.WrapUnknown(loc, err)
		}
		return id, nil
	}
	optional := field.OneofIndex != nil || field.GetProto3Optional()
	if record {
		optional = optional || im.registry.Type(elem).Heap
	}
	if !optional {
		return elem, nil
	}
	id, err := im.registry.Nilable(elem)
	if err != nil {
		return idl.NoType, exc.Newf(loc, exc.CodeUnsupportedSchema, "field %s.%s: %s", m.fullName, field.GetName(), exc.Message(err))
	}
	return id, nil
}

// elemType maps the field's protobuf type, ignoring its label. The second
// result reports whether the type is a message.
func (im *Importer) elemType(m message, field *descriptorpb.FieldDescriptorProto) (idl.TypeID, bool, error) {
	name := field.GetTypeName()
	if name != "" {
		return im.resolve(m, field, name)
	}
	switch field.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE, descriptorpb.FieldDescriptorProto_TYPE_FLOAT:
		return types.TypeFloat, false, nil
	case descriptorpb.FieldDescriptorProto_TYPE_STRING, descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		return types.TypeString, false, nil
	case descriptorpb.FieldDescriptorProto_TYPE_INT32,
		descriptorpb.FieldDescriptorProto_TYPE_INT64,
		descriptorpb.FieldDescriptorProto_TYPE_UINT32,
		descriptorpb.FieldDescriptorProto_TYPE_UINT64,
		descriptorpb.FieldDescriptorProto_TYPE_SINT32,
		descriptorpb.FieldDescriptorProto_TYPE_SINT64,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED32,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED64,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED32,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED64,
		descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		return types.TypeInt, false, nil
	}
	return idl.NoType, false, exc.Newf(exc.Location{URI: m.uri}, exc.CodeUnsupportedSchema, "field %s.%s has unsupported type %s", m.fullName, field.GetName(), field.GetType())
}

// resolve finds a named message or enum. Unlinked descriptors leave the type
// of named references unset so both tables are searched.
func (im *Importer) resolve(m message, field *descriptorpb.FieldDescriptorProto, name string) (idl.TypeID, bool, error) {
	for _, candidate := range candidates(m.fullName, name) {
		if id, ok := im.records[candidate]; ok {
			return id, true, nil
		}
		if id, ok := im.enums[candidate]; ok {
			return id, false, nil
		}
	}
	return idl.NoType, false, exc.Newf(exc.Location{URI: m.uri}, exc.CodeUnresolvedType, "field %s.%s has unknown type %s", m.fullName, field.GetName(), name)
}

// candidates lists the fully qualified names a reference may denote, from
// the innermost scope outward.
func candidates(scope string, name string) []string {
	if strings.HasPrefix(name, ".") {
		return []string{name[1:]}
	}
	var out []string
	for {
		out = append(out, qualify(scope, name))
		if scope == "" {
			return out
		}
		if x := strings.LastIndexByte(scope, '.'); x >= 0 {
			scope = scope[:x]
		} else {
			scope = ""
		}
	}
}

func qualify(scope string, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}
