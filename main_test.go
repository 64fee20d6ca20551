// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"
)

const shapesProto = `syntax = "proto3";
package shapes;

enum Color {
  RED = 0;
  GREEN = 1;
}

message Point {
  int64 x = 1;
  int64 y = 2;
}

message Square {
  Point corner = 1;
  int64 side = 2;
  Color color = 3;
}
`

type run struct {
	code   int
	stdout string
	stderr string
}

func execTest(t *testing.T, dir string, stdin string, argv ...string) run {
	t.Helper()
	var stdout, stderr bytes.Buffer
	env := &environment{
		stdin:  strings.NewReader(stdin),
		stdout: &stdout,
		stderr: &stderr,
		lookupEnv: func(key string) (string, bool) {
			if key == "LITDATA_PATH" {
				return dir, true
			}
			return "", false
		},
	}
	code := execute(context.Background(), env, argv)
	return run{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func schemaDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shapes_cli.proto"), []byte(shapesProto), 0o644))
	return dir
}

func TestParseCommand(t *testing.T) {
	t.Parallel()
	dir := schemaDir(t)
	lit := filepath.Join(dir, "square.lit")
	require.NoError(t, os.WriteFile(lit, []byte("Square{\n  Point{1, 2}\n  3\n  GREEN\n  \"extra\"\n}\n"), 0o644))

	result := execTest(t, dir, "", "parse", "--schema", "shapes_cli.proto", "--inline", "shapes.Point", "--type", "shapes.Square", lit)
	require.Equal(t, 0, result.code, result.stderr)
	require.Equal(t, "Square{Point{1, 2}, 3, GREEN}\n", result.stdout)

	result = execTest(t, dir, "Square{nil, 4}", "parse", "-s", "shapes_cli.proto", "-t", "Square", "-")
	require.Equal(t, 0, result.code, result.stderr)
	require.Equal(t, "Square{nil, 4, RED}\n", result.stdout)
}

func TestParseCommandWithoutSchema(t *testing.T) {
	t.Parallel()
	result := execTest(t, t.TempDir(), "[1, 0x2, -3]", "parse", "--type", "[int]")
	require.Equal(t, 0, result.code, result.stderr)
	require.Equal(t, "[1, 2, -3]\n", result.stdout)

	result = execTest(t, t.TempDir(), `[1, "a"]`, "parse", "--type", "[int]")
	require.Equal(t, 1, result.code)
	require.Equal(t, "<stdin>:1:5 -- L0004: type int required, string given\n", result.stderr)
	require.Empty(t, result.stdout)

	result = execTest(t, t.TempDir(), "1", "parse", "--type", "Nope")
	require.Equal(t, 1, result.code)
	require.Contains(t, result.stderr, "unknown type")
}

func TestVerboseLogging(t *testing.T) {
	t.Parallel()
	result := execTest(t, t.TempDir(), "[1]", "--verbose", "parse", "--type", "[int]")
	require.Equal(t, 0, result.code, result.stderr)
	require.Contains(t, result.stderr, "literal accepted")
	require.NotContains(t, result.stderr, "level=")
	require.NotContains(t, result.stderr, "time=")

	result = execTest(t, t.TempDir(), "[1]", "parse", "--type", "[int]")
	require.Equal(t, 0, result.code)
	require.Empty(t, result.stderr)
}

func TestTokensCommand(t *testing.T) {
	t.Parallel()
	result := execTest(t, t.TempDir(), "[1, 'a'] // done", "tokens")
	require.Equal(t, 0, result.code, result.stderr)
	require.Contains(t, result.stdout, "1:2 integer \"1\"\n")
	require.Contains(t, result.stdout, "1:5 integer \"97\"\n")
	require.NotContains(t, result.stdout, "comment")

	result = execTest(t, t.TempDir(), "[1, 'a'] // done", "tokens", "--comments")
	require.Equal(t, 0, result.code, result.stderr)
	require.Contains(t, result.stdout, "1:10 comment")

	result = execTest(t, t.TempDir(), `["open`, "tokens")
	require.Equal(t, 1, result.code)
	require.Contains(t, result.stderr, "L0002: unterminated string literal")
}

func TestTypesCommand(t *testing.T) {
	t.Parallel()
	dir := schemaDir(t)
	out := filepath.Join(dir, "shapes.protoset")
	result := execTest(t, dir, "", "types", "--schema", "shapes_cli.proto", "--inline", "Point", "--descriptor-set-out", out)
	require.Equal(t, 0, result.code, result.stderr)
	require.Equal(t, strings.Join([]string{
		"enum Color { RED=0, GREEN=1 }",
		"struct Point { x int, y int }",
		"class Square { corner Point, side int, color Color }",
		"",
	}, "\n"), result.stdout)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	set := &descriptorpb.FileDescriptorSet{}
	require.NoError(t, proto.Unmarshal(b, set))
	require.Len(t, set.File, 1)
	require.Equal(t, "shapes", set.File[0].GetPackage())

	result = execTest(t, dir, "", "types", "--schema", "shapes.protoset")
	require.Equal(t, 0, result.code, result.stderr)
	require.Contains(t, result.stdout, "class Point { x int, y int }")
}

func TestSchemaErrorsAreListed(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken_cli.proto"), []byte("syntax = \"proto3\";\nmessage {\n"), 0o644))
	result := execTest(t, dir, "", "types", "--schema", "broken_cli.proto")
	require.Equal(t, 1, result.code)
	require.Contains(t, result.stderr, "/broken_cli.proto:2:")
	require.Contains(t, result.stderr, "M0006")
}
