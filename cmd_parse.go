// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gopkg.microglot.org/litdata/internal/fs"
	"gopkg.microglot.org/litdata/internal/heap"
	"gopkg.microglot.org/litdata/internal/idl"
	"gopkg.microglot.org/litdata/internal/reader"
	"gopkg.microglot.org/litdata/internal/schema"
)

const stdinName = "-"

type cmdParse struct {
	schemas  []string
	inline   []string
	typeName string
	maxDepth int
}

func (*cmdParse) help() *commandHelp {
	return &commandHelp{
		usage:   "parse --schema FILE --type TYPE [FILE|-]",
		summary: "Parse a value literal and print it in canonical form",
		args:    cobra.MaximumNArgs(1),
	}
}

func (cmd *cmdParse) flags(flags *pflag.FlagSet) {
	flags.StringSliceVarP(&cmd.schemas, "schema", "s", nil, "Protobuf schema files, directories or .protoset files.")
	flags.StringSliceVar(&cmd.inline, "inline", nil, "Messages stored as fixed-layout structs instead of heap records.")
	flags.StringVarP(&cmd.typeName, "type", "t", "any", "Expected type, e.g. pkg.Message, [int] or Label?.")
	flags.IntVar(&cmd.maxDepth, "max-depth", reader.DefaultMaxDepth, "Maximum literal nesting depth.")
}

func (cmd *cmdParse) run(ctx context.Context, env *environment, args []string) error {
	s, err := loadSchema(ctx, env, cmd.schemas, cmd.inline)
	if err != nil {
		return err
	}
	t, err := s.Lookup(cmd.typeName)
	if err != nil {
		return err
	}
	h := heap.New()
	v, err := reader.ParseFile(ctx, s.Registry, h, t, inputFile(env, args),
		reader.OptionWithMaxDepth(cmd.maxDepth),
		reader.OptionWithLogger(env.logger),
	)
	if err != nil {
		return err
	}
	defer h.DecValue(v)
	out, err := reader.Format(s.Registry, t, v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(env.stdout, out)
	return err
}

func loadSchema(ctx context.Context, env *environment, targets []string, inline []string) (*schema.Schema, error) {
	return schema.Load(ctx, targets,
		schema.OptionWithLookupEnv(env.lookupEnv),
		schema.OptionWithInlineStructs(inline...),
		schema.OptionWithLogger(env.logger),
	)
}

// inputFile opens the named literal file, or stdin when the name is absent
// or "-".
func inputFile(env *environment, args []string) idl.File {
	if len(args) < 1 || args[0] == stdinName {
		return fs.NewFileReader("<stdin>", env.stdin, idl.FileKindLiteral)
	}
	path := args[0]
	return fs.NewFileFN(path, func() (io.ReadCloser, error) {
		return os.Open(path)
	}, idl.FileKindLiteral)
}
