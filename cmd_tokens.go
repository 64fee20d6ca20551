// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gopkg.microglot.org/litdata/internal/exc"
	"gopkg.microglot.org/litdata/internal/idl"
	"gopkg.microglot.org/litdata/internal/iter"
	"gopkg.microglot.org/litdata/internal/reader"
)

type cmdTokens struct {
	comments bool
}

func (*cmdTokens) help() *commandHelp {
	return &commandHelp{
		usage:   "tokens [FILE|-]",
		summary: "Print the token stream of a value literal",
		args:    cobra.MaximumNArgs(1),
	}
}

func (cmd *cmdTokens) flags(flags *pflag.FlagSet) {
	flags.BoolVar(&cmd.comments, "comments", false, "Include comment tokens.")
}

func (cmd *cmdTokens) run(ctx context.Context, env *environment, args []string) error {
	r := exc.NewReporter(nil)
	lf, err := reader.NewLexerLiteral(r).Lex(ctx, inputFile(env, args))
	if err != nil {
		return err
	}
	tokens, err := lf.Tokens(ctx)
	if err != nil {
		return err
	}
	if !cmd.comments {
		tokens = iter.NewIteratorFilter(tokens, idl.Filter[*idl.Token](iter.FilterFunc[*idl.Token](func(ctx context.Context, t *idl.Token) bool {
			return t.Type != idl.TokenTypeComment
		})))
	}
	all, err := iter.Collect(ctx, tokens)
	if err != nil {
		return err
	}
	for _, tok := range all {
		value := ""
		if tok.Value != "" {
			value = " " + strconv.Quote(tok.Value)
		}
		if _, err := fmt.Fprintf(env.stdout, "%d:%d %s%s\n", tok.Span.Start.Line, tok.Span.Start.Column, tok.Type, value); err != nil {
			return err
		}
	}
	if reported := r.Reported(); len(reported) > 0 {
		return reported[len(reported)-1]
	}
	return nil
}
