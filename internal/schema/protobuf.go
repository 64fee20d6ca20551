// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bufbuild/protocompile/options"
	"github.com/bufbuild/protocompile/parser"
	"github.com/bufbuild/protocompile/reporter"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"gopkg.microglot.org/litdata/internal/exc"
	"gopkg.microglot.org/litdata/internal/fs"
	"gopkg.microglot.org/litdata/internal/idl"
)

// parseProto parses one .proto source file into an unlinked descriptor.
// Diagnostics go to r; parsing continues past non-fatal ones so that a
// single run reports as much as possible.
func parseProto(ctx context.Context, r exc.Reporter, logger *slog.Logger, file idl.File) (*descriptorpb.FileDescriptorProto, error) {
	b, err := file.Body(ctx)
	if err != nil {
		return nil, r.Report(exc.WrapUnknown(exc.Location{URI: file.Path(ctx)}, err))
	}
	body := fs.NewBodyReader(ctx, b)
	defer body.Close()
	h := reporter.NewHandler(&protoReporter{ctx: ctx, Reporter: r, Logger: logger})
	node, err := parser.Parse(file.Path(ctx), body, h)
	if err != nil {
		return nil, protoErr(file.Path(ctx), err)
	}
	result, err := parser.ResultFromAST(node, true, h)
	if err != nil {
		return nil, protoErr(file.Path(ctx), err)
	}
	if _, err := options.InterpretUnlinkedOptions(result); err != nil {
		return nil, protoErr(file.Path(ctx), err)
	}
	return result.FileDescriptorProto(), nil
}

// parseProtoset decodes a serialized FileDescriptorSet.
func parseProtoset(ctx context.Context, r exc.Reporter, file idl.File) ([]*descriptorpb.FileDescriptorProto, error) {
	content, err := fs.ReadAll(ctx, file)
	if err != nil {
		return nil, r.Report(exc.WrapUnknown(exc.Location{URI: file.Path(ctx)}, err))
	}
	set := &descriptorpb.FileDescriptorSet{}
	if err := proto.Unmarshal([]byte(content), set); err != nil {
		return nil, r.Report(exc.Wrap(exc.Location{URI: file.Path(ctx)}, exc.CodeProtobufParseError, err))
	}
	return set.File, nil
}

// protoErr keeps exceptions already produced by the reporter and wraps
// anything else, such as reporter.ErrInvalidSource, with the file location.
func protoErr(path string, err error) error {
	var e exc.Exception
	if errors.As(err, &e) {
		return e
	}
	return exc.Wrap(exc.Location{URI: path}, exc.CodeProtobufParseError, err)
}

type protoReporter struct {
	ctx      context.Context
	Reporter exc.Reporter
	Logger   *slog.Logger
}

func (self *protoReporter) Error(e reporter.ErrorWithPos) error {
	pos := e.GetPosition()
	loc := exc.Location{
		URI: pos.Filename,
		Location: idl.Location{
			Line:   int32(pos.Line),
			Column: int32(pos.Col),
			Offset: int64(pos.Offset),
		},
	}
	return self.Reporter.Report(exc.Wrap(loc, exc.CodeProtobufParseError, e.Unwrap()))
}

func (self *protoReporter) Warning(e reporter.ErrorWithPos) {
	pos := e.GetPosition()
	self.Logger.WarnContext(self.ctx, e.Unwrap().Error(), "uri", pos.Filename, "line", pos.Line, "column", pos.Col)
}
