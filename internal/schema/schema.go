// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

// Package schema loads protobuf schema files and registers their messages
// and enums as runtime types.
package schema

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"google.golang.org/protobuf/types/descriptorpb"

	"gopkg.microglot.org/litdata/internal/exc"
	"gopkg.microglot.org/litdata/internal/idl"
	"gopkg.microglot.org/litdata/internal/types"
	"gopkg.microglot.org/litdata/internal/types/protobuf"
)

type Option func(l *loader) error

func OptionWithFS(fs idl.FileSystem) Option {
	return func(l *loader) error {
		l.FS = fs
		return nil
	}
}

func OptionWithLookupEnv(lookupEnv func(string) (string, bool)) Option {
	return func(l *loader) error {
		l.LookupENV = lookupEnv
		return nil
	}
}

func OptionWithExcReporter(reporter exc.Reporter) Option {
	return func(l *loader) error {
		l.Reporter = reporter
		return nil
	}
}

// OptionWithMaxConcurrency bounds the number of files parsed at once. The
// default is the smaller of GOMAXPROCS and the CPU count.
func OptionWithMaxConcurrency(max int) Option {
	return func(l *loader) error {
		if max < 1 {
			return exc.Newf(exc.Location{}, exc.CodeUnknownFatal, "maximum concurrency must be positive, got %d", max)
		}
		l.MaxConcurrency = max
		return nil
	}
}

// OptionWithInlineStructs names messages, by full or promoted name, that are
// registered as fixed-layout records instead of heap records.
func OptionWithInlineStructs(names ...string) Option {
	return func(l *loader) error {
		l.Inline = append(l.Inline, names...)
		return nil
	}
}

func OptionWithLogger(logger *slog.Logger) Option {
	return func(l *loader) error {
		l.Logger = logger
		return nil
	}
}

// Schema is the result of loading a set of schema files.
type Schema struct {
	Registry *types.Registry
	// Files holds the parsed descriptors in load order.
	Files    []*descriptorpb.FileDescriptorProto
	importer *protobuf.Importer
}

// Lookup resolves a type expression. Fully qualified protobuf names, with
// or without a leading dot, are tried first, then the registry's own names
// such as Point, [int] or Label?.
func (s *Schema) Lookup(expr string) (idl.TypeID, error) {
	if id, ok := s.importer.Lookup(expr); ok {
		return id, nil
	}
	return s.Registry.Resolve(expr)
}

// DescriptorSet bundles the loaded files, e.g. for writing a .protoset.
func (s *Schema) DescriptorSet() *descriptorpb.FileDescriptorSet {
	return &descriptorpb.FileDescriptorSet{File: s.Files}
}

// Load opens every target, parses the schema files concurrently and then
// registers them, in target order, into a new registry. Targets may be file
// paths, file URIs or directories.
func Load(ctx context.Context, targets []string, opts ...Option) (*Schema, error) {
	l, err := newLoader(opts...)
	if err != nil {
		return nil, err
	}
	return l.load(ctx, targets)
}

func newLoader(opts ...Option) (*loader, error) {
	l := &loader{}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	if l.LookupENV == nil {
		l.LookupENV = os.LookupEnv
	}
	if l.FS == nil {
		dfs, err := NewDefaultFS(l.LookupENV)
		if err != nil {
			return nil, err
		}
		l.FS = dfs
	}
	if l.MaxConcurrency == 0 {
		max := runtime.GOMAXPROCS(-1)
		cpus := runtime.NumCPU()
		if max > cpus {
			max = cpus
		}
		l.MaxConcurrency = max
	}
	if l.Semaphore == nil {
		l.Semaphore = newSemaphore(l.MaxConcurrency)
	}
	if l.Reporter == nil {
		l.Reporter = exc.NewReporter(nil)
	}
	if l.Logger == nil {
		l.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l, nil
}

type loader struct {
	LookupENV      func(string) (string, bool)
	FS             idl.FileSystem
	MaxConcurrency int
	Semaphore      *semaphore
	Reporter       exc.Reporter
	Inline         []string
	Logger         *slog.Logger
}

func (self *loader) load(ctx context.Context, targets []string) (*Schema, error) {
	files := make([]idl.File, 0, len(targets))
	for _, target := range targets {
		in, err := self.FS.Open(ctx, self.targetURI(target))
		if err != nil {
			return nil, err
		}
		for _, inf := range in {
			if inf.Kind(ctx) == idl.FileKindNone {
				continue
			}
			files = append(files, inf)
		}
	}
	baseline := len(self.Reporter.Reported())
	loaded := &sync.Map{}
	results := make(chan fileResult)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for offset, file := range files {
		go func(offset int, file idl.File) {
			descriptors, err := self.loadFile(ctx, file, loaded)
			select {
			case results <- fileResult{offset: offset, descriptors: descriptors, err: err}:
			case <-ctx.Done():
			}
		}(offset, file)
	}

	byFile := make([][]*descriptorpb.FileDescriptorProto, len(files))
	var firstErr error
	for x := 0; x < len(files); x = x + 1 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case result := <-results:
			if result.err != nil && firstErr == nil {
				firstErr = result.err
			}
			byFile[result.offset] = result.descriptors
		}
	}
	if caught := exc.Since(self.Reporter, baseline); len(caught) > 0 {
		return nil, MultiException(caught)
	}
	if firstErr != nil {
		return nil, firstErr
	}

	s := &Schema{Registry: types.NewRegistry()}
	for _, descriptors := range byFile {
		s.Files = append(s.Files, descriptors...)
	}
	s.importer = protobuf.NewImporter(s.Registry, self.Inline...)
	if err := s.importer.Import(s.Files...); err != nil {
		return nil, err
	}
	self.Logger.DebugContext(ctx, "schema loaded", "files", len(s.Files), "types", len(s.Registry.Types()))
	return s, nil
}

func (self *loader) loadFile(ctx context.Context, file idl.File, loaded *sync.Map) ([]*descriptorpb.FileDescriptorProto, error) {
	if err := self.Semaphore.Lock(ctx); err != nil {
		return nil, err
	}
	defer self.Semaphore.Unlock()
	if _, ok := loaded.LoadOrStore(file.Path(ctx), true); ok {
		return nil, nil
	}
	self.Logger.DebugContext(ctx, "parsing schema file", "path", file.Path(ctx), "kind", file.Kind(ctx))
	switch file.Kind(ctx) {
	case idl.FileKindProtobuf:
		fd, err := parseProto(ctx, self.Reporter, self.Logger, file)
		if err != nil {
			return nil, err
		}
		return []*descriptorpb.FileDescriptorProto{fd}, nil
	case idl.FileKindProtobufDesc:
		return parseProtoset(ctx, self.Reporter, file)
	default:
		e := exc.New(exc.Location{URI: file.Path(ctx)}, exc.CodeUnsupportedFileFormat, "not a schema file")
		return nil, self.Reporter.Report(e)
	}
}

func (self *loader) targetURI(target string) string {
	// Targets may be any URI or file path. File paths and file URIs are
	// made absolute against the root of the file system; other schemes are
	// left for a FileSystem that understands them.
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "" && u.Scheme != "file") {
		return target
	}
	if u.Scheme == "file" {
		target = u.Path
	}
	if !filepath.IsAbs(target) {
		return filepath.Join("/", target)
	}
	return target
}

type fileResult struct {
	offset      int
	descriptors []*descriptorpb.FileDescriptorProto
	err         error
}

type MultiException []exc.Exception

func (self MultiException) Error() string {
	var b strings.Builder
	for _, err := range self[:len(self)-1] {
		b.WriteString(err.Error())
		b.WriteString("; ")
	}
	b.WriteString(self[len(self)-1].Error())
	return b.String()
}

// Unwrap exposes the individual exceptions to errors.Is and errors.As.
func (self MultiException) Unwrap() []error {
	out := make([]error, 0, len(self))
	for _, e := range self {
		out = append(out, e)
	}
	return out
}
