// Package local provides the local file system implementation of storage.Workspace.
package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	storage "github.com/tigerroll/switchprep/pkg/batch/adapter/storage"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

const moduleName = "local_storage"

// Workspace is a storage.Workspace rooted at a local directory.
type Workspace struct {
	baseDir string
}

// Verify that Workspace implements the storage.Workspace interface.
var _ storage.Workspace = (*Workspace)(nil)

// NewWorkspace creates a Workspace. The base directory is created if it does not exist.
func NewWorkspace(baseDir string) (*Workspace, error) {
	if baseDir == "" {
		return nil, exception.NewBatchErrorf(moduleName, "base directory must be specified")
	}
	info, err := os.Stat(baseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, exception.NewBatchErrorf(moduleName, "failed to stat base directory '%s'", baseDir, err)
		}
		if err := os.MkdirAll(baseDir, 0o755); err != nil {
			return nil, exception.NewBatchErrorf(moduleName, "failed to create base directory '%s'", baseDir, err)
		}
	} else if !info.IsDir() {
		return nil, exception.NewBatchErrorf(moduleName, "base directory '%s' is not a directory", baseDir)
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, exception.NewBatchErrorf(moduleName, "failed to get absolute path for '%s'", baseDir, err)
	}
	return &Workspace{baseDir: abs}, nil
}

// Path resolves elem under the base directory and rejects paths that escape it.
func (w *Workspace) Path(elem ...string) (string, error) {
	full := filepath.Join(append([]string{w.baseDir}, elem...)...)
	if full != w.baseDir && !strings.HasPrefix(full, w.baseDir+string(filepath.Separator)) {
		return "", exception.NewBatchErrorf(moduleName, "path '%s' is outside of '%s'", filepath.Join(elem...), w.baseDir)
	}
	return full, nil
}

// Exists reports whether name exists.
func (w *Workspace) Exists(name string) bool {
	p, err := w.Path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Open opens name for reading. A missing file is exception.ErrMissingInput.
func (w *Workspace) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := w.Path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, exception.MissingInput(moduleName, name, err)
		}
		return nil, exception.NewBatchErrorf(moduleName, "failed to open '%s'", name, err)
	}
	return f, nil
}

// Create creates or truncates name, creating the parent directories.
func (w *Workspace) Create(_ context.Context, name string) (io.WriteCloser, error) {
	p, err := w.Path(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, exception.NewBatchErrorf(moduleName, "failed to create directory for '%s'", name, err)
	}
	f, err := os.Create(p)
	if err != nil {
		return nil, exception.NewBatchErrorf(moduleName, "failed to create '%s'", name, err)
	}
	return f, nil
}

// Recreate removes dir and recreates it, copying the tree of src into it when src is not empty.
func (w *Workspace) Recreate(ctx context.Context, dir, src string) error {
	dst, err := w.Path(dir)
	if err != nil {
		return err
	}
	if dst == w.baseDir {
		return exception.NewBatchErrorf(moduleName, "refusing to recreate the workspace root")
	}
	var srcPath string
	if src != "" {
		if srcPath, err = w.Path(src); err != nil {
			return err
		}
		if _, err := os.Stat(srcPath); err != nil {
			return exception.MissingInput(moduleName, src, err)
		}
	}
	if err := os.RemoveAll(dst); err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to remove '%s'", dir, err)
	}
	if src == "" {
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return exception.NewBatchErrorf(moduleName, "failed to create '%s'", dir, err)
		}
		logger.Debugf("Created empty directory '%s'.", dst)
		return nil
	}
	err = filepath.WalkDir(srcPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(srcPath, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(p, target)
	})
	if err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to copy '%s' to '%s'", src, dir, err)
	}
	logger.Debugf("Recreated '%s' from '%s'.", dst, srcPath)
	return nil
}

// CopyFile copies src to dst. A missing source is exception.ErrMissingInput.
func (w *Workspace) CopyFile(_ context.Context, src, dst string) error {
	srcPath, err := w.Path(src)
	if err != nil {
		return err
	}
	dstPath, err := w.Path(dst)
	if err != nil {
		return err
	}
	if _, err := os.Stat(srcPath); err != nil {
		return exception.MissingInput(moduleName, src, err)
	}
	if err := copyFile(srcPath, dstPath); err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to copy '%s' to '%s'", src, dst, err)
	}
	return nil
}

// List calls fn, in name order, for every regular file directly under dir
// whose base name matches pattern. The names passed to fn are relative to the workspace.
func (w *Workspace) List(_ context.Context, dir, pattern string, fn func(name string) error) error {
	p, err := w.Path(dir)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return exception.MissingInput(moduleName, dir, err)
		}
		return exception.NewBatchErrorf(moduleName, "failed to list '%s'", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := path.Match(pattern, e.Name())
		if err != nil {
			return exception.NewBatchErrorf(moduleName, "bad pattern '%s'", pattern, err)
		}
		if ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, n := range names {
		if err := fn(path.Join(filepath.ToSlash(dir), n)); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
