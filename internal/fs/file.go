// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package fs

import (
	"bufio"
	"context"
	"io"
	"strings"

	"gopkg.microglot.org/litdata/internal/exc"
	"gopkg.microglot.org/litdata/internal/idl"
)

// NewFileString wraps static string content in idl.File.
func NewFileString(path string, content string, kind idl.FileKind) idl.File {
	return NewFileFN(path, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(content)), nil
	}, kind)
}

// NewFileReader wraps a one-shot stream, such as standard input, in idl.File.
// The stream is buffered in full on the first call to Body so that the file
// can be opened more than once.
func NewFileReader(path string, r io.Reader, kind idl.FileKind) idl.File {
	var content *string
	return NewFileFN(path, func() (io.ReadCloser, error) {
		if content == nil {
			b, err := io.ReadAll(r)
			if err != nil {
				return nil, err
			}
			s := string(b)
			content = &s
		}
		return io.NopCloser(strings.NewReader(*content)), nil
	}, kind)
}

type fileIOFunc struct {
	path string
	kind idl.FileKind
	body func() (io.ReadCloser, error)
}

// NewFileFN wraps file content in the idl.File interface. The body function is
// called for every call to Body and must return a fresh io.ReadCloser.
func NewFileFN(path string, body func() (io.ReadCloser, error), kind idl.FileKind) idl.File {
	return &fileIOFunc{
		path: path,
		kind: kind,
		body: body,
	}
}

func (f *fileIOFunc) Path(ctx context.Context) string {
	return f.path
}
func (f *fileIOFunc) Kind(ctx context.Context) idl.FileKind {
	return f.kind
}
func (f *fileIOFunc) Body(ctx context.Context) (idl.FileBody, error) {
	rc, err := f.body()
	if err != nil {
		return nil, fsErr(f.path, err)
	}
	return bodyFromIO(&bufioReaderCloser{
		Reader: bufio.NewReader(rc),
		Closer: rc,
	}), nil
}

type bufioReaderCloser struct {
	*bufio.Reader
	io.Closer
}

// ReadAll drains the body of a file into memory.
func ReadAll(ctx context.Context, f idl.File) (string, error) {
	b, err := f.Body(ctx)
	if err != nil {
		return "", err
	}
	rc := NewBodyReader(ctx, b)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return "", exc.WrapUnknown(exc.Location{URI: f.Path(ctx)}, err)
	}
	return string(content), nil
}
