// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

// Package reader turns value literals back into heap values checked against
// a registered type.
package reader

import (
	"context"
	"io"
	"log/slog"

	"gopkg.microglot.org/litdata/internal/exc"
	"gopkg.microglot.org/litdata/internal/heap"
	"gopkg.microglot.org/litdata/internal/idl"
)

const (
	DefaultMaxDepth = 512
	defaultURI      = "string"
)

type Option func(o *options) error

// OptionWithMaxDepth bounds how deeply literals may nest.
func OptionWithMaxDepth(depth int) Option {
	return func(o *options) error {
		if depth < 1 {
			return exc.Newf(exc.Location{}, exc.CodeNestingTooDeep, "maximum depth must be positive, got %d", depth)
		}
		o.maxDepth = depth
		return nil
	}
}

// OptionWithURI names the input in diagnostics. The default is "string".
func OptionWithURI(uri string) Option {
	return func(o *options) error {
		o.uri = uri
		return nil
	}
}

func OptionWithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

func OptionWithExcReporter(reporter exc.Reporter) Option {
	return func(o *options) error {
		o.reporter = reporter
		return nil
	}
}

type options struct {
	maxDepth int
	uri      string
	logger   *slog.Logger
	reporter exc.Reporter
}

func newOptions(opts []Option) (*options, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.maxDepth == 0 {
		o.maxDepth = DefaultMaxDepth
	}
	if o.uri == "" {
		o.uri = defaultURI
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.reporter == nil {
		o.reporter = exc.NewReporter(nil)
	}
	return o, nil
}

// ParseData parses text as a value of type t, allocating strings, vectors and
// records from h. On failure nothing allocated by the call stays alive and the
// returned value is nil.
func ParseData(ctx context.Context, reg idl.TypeRegistry, h *heap.Heap, t idl.TypeID, text string, opts ...Option) (heap.Value, error) {
	o, err := newOptions(opts)
	if err != nil {
		return heap.Nil(), err
	}
	tokens := NewLexerLiteral(o.reporter).LexString(o.uri, text)
	defer tokens.Close(ctx)
	return parse(ctx, o, reg, h, t, tokens)
}

// ParseFile is ParseData for the content of a file. The file path is used in
// diagnostics unless a URI option is given.
func ParseFile(ctx context.Context, reg idl.TypeRegistry, h *heap.Heap, t idl.TypeID, f idl.File, opts ...Option) (heap.Value, error) {
	o, err := newOptions(append([]Option{OptionWithURI(f.Path(ctx))}, opts...))
	if err != nil {
		return heap.Nil(), err
	}
	lf, err := NewLexerLiteral(o.reporter).Lex(ctx, f)
	if err != nil {
		return heap.Nil(), err
	}
	tokens, err := lf.Tokens(ctx)
	if err != nil {
		return heap.Nil(), err
	}
	defer tokens.Close(ctx)
	return parse(ctx, o, reg, h, t, tokens)
}

func parse(ctx context.Context, o *options, reg idl.TypeRegistry, h *heap.Heap, t idl.TypeID, tokens idl.Iterator[*idl.Token]) (heap.Value, error) {
	tx := newRoster(h)
	defer tx.Rollback()
	p := newParserLiteral(ctx, o, reg, h, tx, tokens)
	v, err := p.parseData(t)
	if err != nil {
		o.logger.DebugContext(ctx, "literal rejected", "uri", o.uri, "released", tx.Len(), "error", err)
		return heap.Nil(), err
	}
	o.logger.DebugContext(ctx, "literal accepted", "uri", o.uri, "allocated", tx.Len())
	tx.Commit()
	return v, nil
}
