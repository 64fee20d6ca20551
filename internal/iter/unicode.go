// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package iter

import (
	"bufio"
	"context"
	"io"
	"unicode/utf8"

	"gopkg.microglot.org/litdata/internal/fs"
	"gopkg.microglot.org/litdata/internal/idl"
	"gopkg.microglot.org/litdata/internal/optional"
)

// NewUnicodeString converts in-memory text into an iterator of code points.
// Invalid UTF-8 sequences are returned as utf8.RuneError.
func NewUnicodeString(s string) idl.Iterator[idl.CodePoint] {
	return &stringBody{s: s}
}

type stringBody struct {
	s      string
	offset int
}

func (b *stringBody) Next(ctx context.Context) optional.Optional[idl.CodePoint] {
	if b.offset >= len(b.s) {
		return optional.None[idl.CodePoint]()
	}
	r, size := utf8.DecodeRuneInString(b.s[b.offset:])
	b.offset = b.offset + size
	return optional.Some(idl.CodePoint(r))
}

func (b *stringBody) Close(context.Context) error {
	return nil
}

// NewUnicodeFileBody converts a FileBody into an iterator of code points.
func NewUnicodeFileBody(b idl.FileBody) idl.Iterator[idl.CodePoint] {
	return NewUnicodeFileBodyCtx(context.Background(), b)
}

// NewUnicodeFileBodyCtx is the same as NewUnicodeFileBody but uses the given
// context for all read operations for cancellation or other purposes.
func NewUnicodeFileBodyCtx(ctx context.Context, b idl.FileBody) idl.Iterator[idl.CodePoint] {
	return newFileBody(ctx, b)
}

type fileBody struct {
	readCloser io.ReadCloser
	scanner    *bufio.Scanner
}

func newFileBody(ctx context.Context, r idl.FileBody) *fileBody {
	rc := fs.NewBodyReader(ctx, r)
	scanner := bufio.NewScanner(rc)
	scanner.Split(bufio.ScanRunes)
	return &fileBody{
		readCloser: rc,
		scanner:    scanner,
	}
}

func (f *fileBody) Next(ctx context.Context) optional.Optional[idl.CodePoint] {
	ok := f.scanner.Scan()
	if !ok {
		return optional.None[idl.CodePoint]()
	}
	r, _ := utf8.DecodeRune(f.scanner.Bytes())
	return optional.Some(idl.CodePoint(r))
}

func (f *fileBody) Close(context.Context) error {
	_ = f.readCloser.Close()
	err := f.scanner.Err()
	if err != nil {
		return err
	}
	return nil
}
