// Package storage defines the workspace abstraction the study steps read
// from and write to. Every name is a slash-separated path relative to the
// study working directory.
package storage

import (
	"context"
	"io"
)

// Workspace is the file tree a study runs in.
type Workspace interface {
	// Path resolves elements under the workspace root. Paths that escape the root are rejected.
	Path(elem ...string) (string, error)
	// Exists reports whether name exists.
	Exists(name string) bool
	// Open opens name for reading. The caller closes the reader.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Create creates or truncates name, creating parent directories.
	Create(ctx context.Context, name string) (io.WriteCloser, error)
	// Recreate removes dir if present and recreates it, optionally as a copy of src.
	// An empty src leaves the new directory empty.
	Recreate(ctx context.Context, dir, src string) error
	// CopyFile copies a single file, overwriting the destination.
	CopyFile(ctx context.Context, src, dst string) error
	// List calls fn for every file directly under dir whose base name matches pattern (path.Match syntax).
	List(ctx context.Context, dir, pattern string, fn func(name string) error) error
}
