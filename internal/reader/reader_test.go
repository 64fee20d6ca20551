// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"gopkg.microglot.org/litdata/internal/exc"
	"gopkg.microglot.org/litdata/internal/fs"
	"gopkg.microglot.org/litdata/internal/heap"
	"gopkg.microglot.org/litdata/internal/idl"
	"gopkg.microglot.org/litdata/internal/types"
)

func TestParseData(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	testCases := []struct {
		name     string
		typ      func(f *fixture) idl.TypeID
		input    string
		expected string
		allocs   int
	}{
		{name: "vector of ints", typ: func(f *fixture) idl.TypeID { return f.ints }, input: "[1, 2, 3]", expected: "[1, 2, 3]", allocs: 1},
		{name: "empty vector", typ: func(f *fixture) idl.TypeID { return f.ints }, input: "[]", expected: "[]", allocs: 1},
		{name: "line separated", typ: func(f *fixture) idl.TypeID { return f.ints }, input: "[\n1\n2\n\n3\n]", expected: "[1, 2, 3]", allocs: 1},
		{name: "comma then line", typ: func(f *fixture) idl.TypeID { return f.ints }, input: "[1,\n  2]", expected: "[1, 2]", allocs: 1},
		{name: "negatives", typ: func(f *fixture) idl.TypeID { return f.ints }, input: "[-1, - 2, -0x10]", expected: "[-1, -2, -16]", allocs: 1},
		{name: "characters", typ: func(f *fixture) idl.TypeID { return f.ints }, input: "['a', 0x10]", expected: "[97, 16]", allocs: 1},
		{name: "comments", typ: func(f *fixture) idl.TypeID { return f.ints }, input: "[1, // one\n2 /* two */]", expected: "[1, 2]", allocs: 1},
		{name: "extreme ints", typ: func(f *fixture) idl.TypeID { return f.ints }, input: "[-9223372036854775808, 0xFFFFFFFFFFFFFFFF]", expected: "[-9223372036854775808, -1]", allocs: 1},
		{name: "floats", typ: func(f *fixture) idl.TypeID { return f.floats }, input: "[-1.5, 2e3, 0.25]", expected: "[-1.5, 2000.0, 0.25]", allocs: 1},
		{name: "padded inline record", typ: func(f *fixture) idl.TypeID { return f.point }, input: "Point{1}", expected: "Point{1, 0}", allocs: 0},
		{name: "empty inline record", typ: func(f *fixture) idl.TypeID { return f.point }, input: "Point{}", expected: "Point{0, 0}", allocs: 0},
		{name: "truncated record", typ: func(f *fixture) idl.TypeID { return f.square }, input: "Square{1,2,3}", expected: "Square{1, 2}", allocs: 1},
		{
			name:     "truncated elements are validated then dropped",
			typ:      func(f *fixture) idl.TypeID { return f.square },
			input:    `Square{1, 2, [3, "x"], Square{4}, Unknown{nil}}`,
			expected: "Square{1, 2}",
			allocs:   1,
		},
		{
			name:     "anything goes under any",
			typ:      func(f *fixture) idl.TypeID { return types.TypeAny },
			input:    `[1, 2.5, "s", nil, Square{1, 2}, [Point{3, 4}]]`,
			expected: `[1, 2.5, "s", nil, Square{1, 2}, [Point{3, 4}]]`,
			allocs:   4,
		},
		{name: "inline record under any", typ: func(f *fixture) idl.TypeID { return types.TypeAny }, input: "Point{3, 4}", expected: "Point{3, 4}", allocs: 0},
		{
			name:     "enum names",
			typ:      func(f *fixture) idl.TypeID { return f.pixel },
			input:    `Pixel{Point{1, 2}, Green, 0.5, "hi"}`,
			expected: `Pixel{Point{1, 2}, Green, 0.5, "hi"}`,
			allocs:   2,
		},
		{
			name:     "enum from integer and defaults",
			typ:      func(f *fixture) idl.TypeID { return f.pixel },
			input:    "Pixel{Point{1, 2}, 2}",
			expected: "Pixel{Point{1, 2}, Blue, 0.0, nil}",
			allocs:   1,
		},
		{name: "vector of inline records", typ: func(f *fixture) idl.TypeID { return f.points }, input: "[Point{1, 2}, Point{3}]", expected: "[Point{1, 2}, Point{3, 0}]", allocs: 1},
		{
			name:     "recursive heap records",
			typ:      func(f *fixture) idl.TypeID { return f.node },
			input:    "Node{1, [Node{2, []}, Node{3, [Node{4, []}]}]}",
			expected: "Node{1, [Node{2, []}, Node{3, [Node{4, []}]}]}",
			allocs:   8,
		},
		{name: "nil record", typ: func(f *fixture) idl.TypeID { return f.optLabel }, input: "nil", expected: "nil", allocs: 0},
		{name: "present record", typ: func(f *fixture) idl.TypeID { return f.optLabel }, input: `Label{"a", 1}`, expected: `Label{"a", 1}`, allocs: 2},
		{name: "nilable int", typ: func(f *fixture) idl.TypeID { return f.optInt }, input: "-3", expected: "-3", allocs: 0},
		{name: "trailing line break", typ: func(f *fixture) idl.TypeID { return f.square }, input: "Square{1, 2}\r\n", expected: "Square{1, 2}", allocs: 1},
		{name: "string", typ: func(f *fixture) idl.TypeID { return types.TypeString }, input: `"tab\there"`, expected: `"tab\there"`, allocs: 1},
		{name: "minimum int", typ: func(f *fixture) idl.TypeID { return f.optInt }, input: "-9223372036854775808", expected: "-9223372036854775808", allocs: 0},
		{name: "unchecked minus in truncated tail", typ: func(f *fixture) idl.TypeID { return f.square }, input: `Square{1, 2, -"x"}`, expected: "Square{1, 2}", allocs: 1},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			h := heap.New()
			typ := testCase.typ(f)
			v, err := ParseData(ctx, f.reg, h, typ, testCase.input)
			require.NoError(t, err)
			require.Equal(t, testCase.allocs, h.Live())
			out, err := Format(f.reg, typ, v)
			require.NoError(t, err)
			require.Equal(t, testCase.expected, out)
			h.DecValue(v)
			require.Equal(t, 0, h.Live())
		})
	}
}

func TestParseDataErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	testCases := []struct {
		name    string
		typ     func(f *fixture) idl.TypeID
		input   string
		opts    []Option
		code    string
		message string
	}{
		{
			name:    "unterminated vector",
			typ:     func(f *fixture) idl.TypeID { return f.ints },
			input:   "[1, 2,",
			code:    exc.CodeUnexpectedToken,
			message: "illegal start of expression: end of input",
		},
		{
			name:    "malformed tail after allocation",
			typ:     func(f *fixture) idl.TypeID { return types.TypeAny },
			input:   `[1, "a", ]`,
			code:    exc.CodeUnexpectedToken,
			message: "illegal start of expression: ]",
		},
		{
			name:    "trailing comma",
			typ:     func(f *fixture) idl.TypeID { return f.ints },
			input:   "[1,]",
			code:    exc.CodeUnexpectedToken,
			message: "illegal start of expression: ]",
		},
		{
			name:    "string for int",
			typ:     func(f *fixture) idl.TypeID { return f.ints },
			input:   `[1, "a"]`,
			code:    exc.CodeTypeMismatch,
			message: "type int required, string given",
		},
		{
			name:    "float for int",
			typ:     func(f *fixture) idl.TypeID { return f.ints },
			input:   "[1.5]",
			code:    exc.CodeTypeMismatch,
			message: "type int required, float given",
		},
		{
			name:    "nil for int",
			typ:     func(f *fixture) idl.TypeID { return types.TypeInt },
			input:   "nil",
			code:    exc.CodeTypeMismatch,
			message: "type int required, nil given",
		},
		{
			name:    "vector for record",
			typ:     func(f *fixture) idl.TypeID { return f.square },
			input:   "[1]",
			code:    exc.CodeTypeMismatch,
			message: "type class/struct required, vector given",
		},
		{
			name:    "record for int",
			typ:     func(f *fixture) idl.TypeID { return types.TypeInt },
			input:   "Square{}",
			code:    exc.CodeTypeMismatch,
			message: "class/struct type required, int given",
		},
		{
			name:    "nilable keeps its element type",
			typ:     func(f *fixture) idl.TypeID { return f.optInt },
			input:   `"s"`,
			code:    exc.CodeTypeMismatch,
			message: "type int required, string given",
		},
		{
			name:    "name mismatch",
			typ:     func(f *fixture) idl.TypeID { return f.square },
			input:   "Point{1, 2}",
			code:    exc.CodeNameMismatch,
			message: "class/struct type Square required, Point given",
		},
		{
			name:    "missing brace",
			typ:     func(f *fixture) idl.TypeID { return f.square },
			input:   "Square 1",
			code:    exc.CodeUnexpectedToken,
			message: "{ expected, found: 1",
		},
		{
			name:    "unknown enum value",
			typ:     func(f *fixture) idl.TypeID { return f.pixel },
			input:   "Pixel{Point{1, 2}, Purple}",
			code:    exc.CodeUnknownEnumValue,
			message: "unknown enum value Purple",
		},
		{
			name:    "enum suggestion",
			typ:     func(f *fixture) idl.TypeID { return f.pixel },
			input:   "Pixel{Point{1, 2}, Gren}",
			code:    exc.CodeUnknownEnumValue,
			message: "unknown enum value Gren (did you mean Green?)",
		},
		{
			name:    "unknown record under any",
			typ:     func(f *fixture) idl.TypeID { return types.TypeAny },
			input:   "Sqare{1}",
			code:    exc.CodeUnknownType,
			message: "unknown class/struct type Sqare (did you mean Square?)",
		},
		{
			name:    "missing default",
			typ:     func(f *fixture) idl.TypeID { return f.label },
			input:   "Label{}",
			code:    exc.CodeMissingDefault,
			message: "no default value exists for missing struct elements",
		},
		{
			name:    "missing default after allocations",
			typ:     func(f *fixture) idl.TypeID { return f.labels },
			input:   `[Label{"a", 1}, Label{}]`,
			code:    exc.CodeMissingDefault,
			message: "no default value exists for missing struct elements",
		},
		{
			name:    "minus on string",
			typ:     func(f *fixture) idl.TypeID { return types.TypeAny },
			input:   `-"x"`,
			code:    exc.CodeNumericExpected,
			message: "unary minus: numeric value expected",
		},
		{
			name:    "minus on nil",
			typ:     func(f *fixture) idl.TypeID { return types.TypeAny },
			input:   "-nil",
			code:    exc.CodeNumericExpected,
			message: "unary minus: numeric value expected",
		},
		{
			name:    "integer just past maximum",
			typ:     func(f *fixture) idl.TypeID { return types.TypeInt },
			input:   "9223372036854775808",
			code:    exc.CodeInvalidNumber,
			message: "integer literal 9223372036854775808 out of range",
		},
		{
			name:    "integer just past maximum in vector",
			typ:     func(f *fixture) idl.TypeID { return f.ints },
			input:   "[9223372036854775808]",
			code:    exc.CodeInvalidNumber,
			message: "integer literal 9223372036854775808 out of range",
		},
		{
			name:    "double negated minimum",
			typ:     func(f *fixture) idl.TypeID { return types.TypeInt },
			input:   "- -9223372036854775808",
			code:    exc.CodeInvalidNumber,
			message: "integer literal 9223372036854775808 out of range",
		},
		{
			name:    "second trailing line break",
			typ:     func(f *fixture) idl.TypeID { return types.TypeInt },
			input:   "1\n\n",
			code:    exc.CodeUnexpectedToken,
			message: "end of input expected, found: linefeed",
		},
		{
			name:    "trailing input",
			typ:     func(f *fixture) idl.TypeID { return f.ints },
			input:   "[1] [2]",
			code:    exc.CodeUnexpectedToken,
			message: "end of input expected, found: [",
		},
		{
			name:    "missing separator",
			typ:     func(f *fixture) idl.TypeID { return f.ints },
			input:   "[1 2]",
			code:    exc.CodeUnexpectedToken,
			message: ", expected, found: 2",
		},
		{
			name:    "invalid element past the declared fields",
			typ:     func(f *fixture) idl.TypeID { return f.labels },
			input:   `[Label{"a", 1}, Label{"b", 2, 3, @, 5}]`,
			code:    exc.CodeUnexpectedToken,
			message: "illegal start of expression: @",
		},
		{
			name:    "lexical error after allocation",
			typ:     func(f *fixture) idl.TypeID { return types.TypeAny },
			input:   `["a", 0x]`,
			code:    exc.CodeInvalidToken,
			message: "hex literal requires at least one digit",
		},
		{
			name:    "unterminated string",
			typ:     func(f *fixture) idl.TypeID { return types.TypeString },
			input:   `"abc`,
			code:    exc.CodeUnterminatedText,
			message: "unterminated string literal",
		},
		{
			name:    "integer overflow",
			typ:     func(f *fixture) idl.TypeID { return f.ints },
			input:   "[99999999999999999999]",
			code:    exc.CodeInvalidNumber,
			message: "integer literal 99999999999999999999 out of range",
		},
		{
			name:    "nesting too deep",
			typ:     func(f *fixture) idl.TypeID { return types.TypeAny },
			input:   "[[[[[1]]]]]",
			opts:    []Option{OptionWithMaxDepth(3)},
			code:    exc.CodeNestingTooDeep,
			message: "literal nested deeper than 3 levels",
		},
		{
			name:    "empty input",
			typ:     func(f *fixture) idl.TypeID { return types.TypeInt },
			input:   "",
			code:    exc.CodeUnexpectedToken,
			message: "illegal start of expression: end of input",
		},
		{
			name:    "unknown rune",
			typ:     func(f *fixture) idl.TypeID { return types.TypeInt },
			input:   "@",
			code:    exc.CodeUnexpectedToken,
			message: "illegal start of expression: @",
		},
		{
			name:    "unknown type handle",
			typ:     func(f *fixture) idl.TypeID { return 4096 },
			input:   "1",
			code:    exc.CodeInvalidTypeHandle,
			message: "unknown type handle 4096",
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			h := heap.New()
			v, err := ParseData(context.Background(), f.reg, h, testCase.typ(f), testCase.input, testCase.opts...)
			require.Error(t, err)
			require.True(t, v.IsNil())
			var e exc.Exception
			require.True(t, errors.As(err, &e))
			require.Equal(t, testCase.code, e.Code())
			require.Equal(t, testCase.message, e.Message())
			require.Equal(t, 0, h.Live())
		})
	}
}

func TestParseDataErrorRendering(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	_, err := ParseData(ctx, f.reg, heap.New(), f.ints, "[1, 2,")
	require.EqualError(t, err, "string:1:7 -- L0003: illegal start of expression: end of input")

	_, err = ParseData(ctx, f.reg, heap.New(), f.square, "Square{\n  1,\n  \"two\"\n}", OptionWithURI("config.lit"))
	require.EqualError(t, err, "config.lit:3:3 -- L0004: type int required, string given")
}

func TestRollbackKeepsExistingObjects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	h := heap.New()
	kept, err := ParseData(ctx, f.reg, h, f.labels, `[Label{"a", 1}, Label{"b", 2}]`)
	require.NoError(t, err)
	require.Equal(t, 5, h.Live())

	for _, input := range []string{
		`[Label{"c", 3}, Label{"d"}]`,
		`[Label{"c", 3}, Label{"d", 4, Label{"e"}, @}]`,
		`[Label{"c", 3}, Label{"d", 4}] trailing`,
	} {
		v, err := ParseData(ctx, f.reg, h, f.labels, input)
		require.Error(t, err, input)
		require.True(t, v.IsNil())
		require.Equal(t, 5, h.Live(), input)
	}
	require.Equal(t, 5+3+3+5, h.Allocs())

	out, err := Format(f.reg, f.labels, kept)
	require.NoError(t, err)
	require.Equal(t, `[Label{"a", 1}, Label{"b", 2}]`, out)
	h.DecValue(kept)
	require.Equal(t, 0, h.Live())
}

func TestSharedReporter(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	r := exc.NewReporter(nil)

	_, err := ParseData(ctx, f.reg, heap.New(), types.TypeString, `"abc`, OptionWithExcReporter(r))
	var e exc.Exception
	require.True(t, errors.As(err, &e))
	require.Equal(t, exc.CodeUnterminatedText, e.Code())

	// The stale lexical error must not leak into the next parse.
	_, err = ParseData(ctx, f.reg, heap.New(), f.ints, "[1", OptionWithExcReporter(r))
	require.True(t, errors.As(err, &e))
	require.Equal(t, exc.CodeUnexpectedToken, e.Code())
	require.Equal(t, ", expected, found: end of input", e.Message())
	require.Len(t, r.Reported(), 2)
}

func TestOptions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, err := ParseData(context.Background(), f.reg, heap.New(), types.TypeInt, "1", OptionWithMaxDepth(0))
	var e exc.Exception
	require.True(t, errors.As(err, &e))
	require.Equal(t, exc.CodeNestingTooDeep, e.Code())

	o, err := newOptions(nil)
	require.NoError(t, err)
	require.Equal(t, DefaultMaxDepth, o.maxDepth)
	require.Equal(t, "string", o.uri)
	require.NotNil(t, o.logger)
	require.NotNil(t, o.reporter)
}

func TestLogging(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	v, err := ParseData(ctx, f.reg, heap.New(), f.labels, `[Label{"a", 1}]`, OptionWithLogger(logger), OptionWithURI("ok.lit"))
	require.NoError(t, err)
	require.False(t, v.IsNil())
	require.Contains(t, buf.String(), "literal accepted")
	require.Contains(t, buf.String(), "uri=ok.lit")
	require.Contains(t, buf.String(), "allocated=3")

	buf.Reset()
	_, err = ParseData(ctx, f.reg, heap.New(), f.labels, `[Label{"a", 1}, 2]`, OptionWithLogger(logger))
	require.Error(t, err)
	require.Contains(t, buf.String(), "literal rejected")
	require.Contains(t, buf.String(), "released=2")
}

func TestParseFile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	h := heap.New()

	file := fs.NewFileString("/values/pixel.lit", "Pixel{\n  Point{1, 2}\n  Blue\n  1.5\n}\n", idl.FileKindLiteral)
	v, err := ParseFile(ctx, f.reg, h, f.pixel, file)
	require.NoError(t, err)
	out, err := Format(f.reg, f.pixel, v)
	require.NoError(t, err)
	require.Equal(t, "Pixel{Point{1, 2}, Blue, 1.5, nil}", out)

	bad := fs.NewFileString("/values/bad.lit", "Pixel{Point{1, 2}, Purple}", idl.FileKindLiteral)
	_, err = ParseFile(ctx, f.reg, h, f.pixel, bad)
	require.EqualError(t, err, "/values/bad.lit:1:20 -- L0006: unknown enum value Purple")
	require.Equal(t, 1, h.Live())

	missing := fs.NewFileFN("/values/missing.lit", func() (io.ReadCloser, error) {
		return nil, os.ErrNotExist
	}, idl.FileKindLiteral)
	_, err = ParseFile(ctx, f.reg, h, f.pixel, missing)
	require.Equal(t, exc.CodeFileNotFound, exc.Code(err))
	require.Equal(t, 1, h.Live())
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := heap.New()
	_, err := ParseData(ctx, f.reg, h, f.ints, "[1, 2]")
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, h.Live())
}
