// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gopkg.microglot.org/litdata/internal/idl"
	"gopkg.microglot.org/litdata/internal/types"
)

// fixture is a small schema shared by the reader tests:
//
//	enum Color { Red, Green, Blue }
//	struct Point { x int, y int }              inline
//	class Square { x int, y int }
//	class Label { name string, count int }
//	class Pixel { at Point, color Color, weight float, note string? }
//	class Node { value int, children [Node] }
type fixture struct {
	reg      *types.Registry
	color    idl.TypeID
	point    idl.TypeID
	square   idl.TypeID
	label    idl.TypeID
	pixel    idl.TypeID
	node     idl.TypeID
	ints     idl.TypeID
	floats   idl.TypeID
	points   idl.TypeID
	labels   idl.TypeID
	optLabel idl.TypeID
	optInt   idl.TypeID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := types.NewRegistry()
	f := &fixture{reg: r}
	var err error

	colors, err := r.DefineEnum("Color",
		idl.EnumValue{Name: "Red", Value: 0},
		idl.EnumValue{Name: "Green", Value: 1},
		idl.EnumValue{Name: "Blue", Value: 2},
	)
	require.NoError(t, err)
	f.color, err = r.EnumInt(colors)
	require.NoError(t, err)

	xy := []idl.Field{{Name: "x", Type: types.TypeInt}, {Name: "y", Type: types.TypeInt}}
	f.point, err = r.Record("Point", false, xy...)
	require.NoError(t, err)
	f.square, err = r.Record("Square", true, xy...)
	require.NoError(t, err)
	f.label, err = r.Record("Label", true, idl.Field{Name: "name", Type: types.TypeString}, idl.Field{Name: "count", Type: types.TypeInt})
	require.NoError(t, err)

	note, err := r.Nilable(types.TypeString)
	require.NoError(t, err)
	f.pixel, err = r.Record("Pixel", true,
		idl.Field{Name: "at", Type: f.point},
		idl.Field{Name: "color", Type: f.color},
		idl.Field{Name: "weight", Type: types.TypeFloat},
		idl.Field{Name: "note", Type: note},
	)
	require.NoError(t, err)

	f.node, err = r.DeclareRecord("Node", true)
	require.NoError(t, err)
	nodes, err := r.Vector(f.node)
	require.NoError(t, err)
	require.NoError(t, r.DefineFields(f.node, idl.Field{Name: "value", Type: types.TypeInt}, idl.Field{Name: "children", Type: nodes}))

	f.ints, err = r.Vector(types.TypeInt)
	require.NoError(t, err)
	f.floats, err = r.Vector(types.TypeFloat)
	require.NoError(t, err)
	f.points, err = r.Vector(f.point)
	require.NoError(t, err)
	f.labels, err = r.Vector(f.label)
	require.NoError(t, err)
	f.optLabel, err = r.Nilable(f.label)
	require.NoError(t, err)
	f.optInt, err = r.Nilable(types.TypeInt)
	require.NoError(t, err)
	return f
}
