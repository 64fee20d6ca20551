// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"google.golang.org/protobuf/proto"

	"gopkg.microglot.org/litdata/internal/exc"
	"gopkg.microglot.org/litdata/internal/idl"
)

type cmdTypes struct {
	schemas          []string
	inline           []string
	descriptorSetOut string
}

func (*cmdTypes) help() *commandHelp {
	return &commandHelp{
		usage:   "types --schema FILE",
		summary: "List the types a schema registers",
		args:    cobra.NoArgs,
	}
}

func (cmd *cmdTypes) flags(flags *pflag.FlagSet) {
	flags.StringSliceVarP(&cmd.schemas, "schema", "s", nil, "Protobuf schema files, directories or .protoset files.")
	flags.StringSliceVar(&cmd.inline, "inline", nil, "Messages stored as fixed-layout structs instead of heap records.")
	flags.StringVar(&cmd.descriptorSetOut, "descriptor-set-out", "", "Writes a protobuf FileDescriptorSet containing all the input to FILE.")
}

func (cmd *cmdTypes) run(ctx context.Context, env *environment, args []string) error {
	s, err := loadSchema(ctx, env, cmd.schemas, cmd.inline)
	if err != nil {
		return err
	}
	for _, e := range s.Registry.Enums() {
		names := make([]string, 0, len(e.Values))
		for _, v := range e.Values {
			names = append(names, fmt.Sprintf("%s=%d", v.Name, v.Value))
		}
		if _, err := fmt.Fprintf(env.stdout, "enum %s { %s }\n", e.Name, strings.Join(names, ", ")); err != nil {
			return err
		}
	}
	for _, t := range s.Registry.Types() {
		if t.Kind != idl.KindRecord {
			continue
		}
		keyword := "class"
		if !t.Heap {
			keyword = "struct"
		}
		fields := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			fields = append(fields, f.Name+" "+s.Registry.Name(f.Type))
		}
		if _, err := fmt.Fprintf(env.stdout, "%s %s { %s }\n", keyword, t.Name, strings.Join(fields, ", ")); err != nil {
			return err
		}
	}
	if cmd.descriptorSetOut == "" {
		return nil
	}
	b, err := proto.Marshal(s.DescriptorSet())
	if err != nil {
		return exc.WrapUnknown(exc.Location{URI: cmd.descriptorSetOut}, err)
	}
	if err := os.WriteFile(cmd.descriptorSetOut, b, 0o644); err != nil {
		return exc.WrapUnknown(exc.Location{URI: cmd.descriptorSetOut}, err)
	}
	return nil
}
