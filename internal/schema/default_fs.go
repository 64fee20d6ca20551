// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.microglot.org/litdata/internal/fs"
	"gopkg.microglot.org/litdata/internal/idl"
)

// PathEnv lists extra schema roots, separated like PATH.
const PathEnv = "LITDATA_PATH"

// NewDefaultFS searches the working directory, then every LITDATA_PATH
// entry, then the platform's shared data directories and finally the file
// system root so that absolute paths resolve.
func NewDefaultFS(lookup func(string) (string, bool)) (idl.FileSystem, error) {
	roots := []string{"."}
	if extra, ok := lookup(PathEnv); ok && extra != "" {
		roots = append(roots, filepath.SplitList(extra)...)
	}
	roots = append(roots, getDefaultRoots(lookup)...)
	roots = append(roots, string(filepath.Separator))
	f := make(fs.FileSystemMulti, 0, len(roots))
	for _, root := range roots {
		absRoot, errAbs := filepath.Abs(root)
		if errAbs != nil {
			return nil, errAbs
		}
		if _, err := os.Stat(absRoot); err != nil {
			continue
		}
		rf, err := fs.NewFileSystemLocal(absRoot, fs.WithOptionFileFilter(isSchemaFile))
		if err != nil {
			return nil, err
		}
		f = append(f, rf)
	}
	return f, nil
}

// isSchemaFile keeps value literals out of directory loads.
func isSchemaFile(_ context.Context, name string) bool {
	switch fs.KindOf(name) {
	case idl.FileKindProtobuf, idl.FileKindProtobufDesc:
		return true
	default:
		return false
	}
}
