// Package inputdir gives named access to the tables of one solver inputs
// directory inside the study workspace.
package inputdir

import (
	"context"
	"path"

	storage "github.com/tigerroll/switchprep/pkg/batch/adapter/storage"

	"github.com/tigerroll/switchprep/internal/builder/modulelist"
	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

// Dir is an inputs directory such as "inputs_updated".
type Dir struct {
	ws   storage.Workspace
	name string
	// Written counts rows written per table name during the lifetime of Dir.
	Written map[string]int
}

// Open returns the directory name in ws. It does not touch the file system.
func Open(ws storage.Workspace, name string) *Dir {
	return &Dir{ws: ws, name: name, Written: make(map[string]int)}
}

// Name returns the directory name relative to the workspace.
func (d *Dir) Name() string { return d.name }

// File returns the workspace-relative name of a file in the directory.
func (d *Dir) File(file string) string { return path.Join(d.name, file) }

// Path resolves a file to an absolute path.
func (d *Dir) Path(file string) (string, error) { return d.ws.Path(d.name, file) }

// Exists reports whether the file exists.
func (d *Dir) Exists(file string) bool { return d.ws.Exists(d.File(file)) }

// Recreate empties the directory and fills it with a copy of src.
func (d *Dir) Recreate(ctx context.Context, src *Dir) error {
	srcName := ""
	if src != nil {
		srcName = src.name
	}
	logger.Infof("Creating %s.", d.name)
	return d.ws.Recreate(ctx, d.name, srcName)
}

// Read loads "<name>.csv". A missing file is exception.ErrMissingInput.
func (d *Dir) Read(name string) (*table.Table, error) {
	p, err := d.Path(name + ".csv")
	if err != nil {
		return nil, err
	}
	return table.Read(p)
}

// ReadOptional loads "<name>.csv", reporting ok=false when it does not exist.
func (d *Dir) ReadOptional(name string) (*table.Table, bool, error) {
	p, err := d.Path(name + ".csv")
	if err != nil {
		return nil, false, err
	}
	return table.ReadOptional(p)
}

// Write saves t as "<name>.csv".
func (d *Dir) Write(name string, t *table.Table) error {
	p, err := d.Path(name + ".csv")
	if err != nil {
		return err
	}
	if err := t.Write(p); err != nil {
		return err
	}
	d.Written[name] += t.Len()
	logger.Debugf("Wrote %s (%d rows).", d.File(name+".csv"), t.Len())
	return nil
}

// ReadModules loads a module list file such as "modules.txt".
func (d *Dir) ReadModules(file string) (*modulelist.List, error) {
	p, err := d.Path(file)
	if err != nil {
		return nil, err
	}
	return modulelist.Read(p)
}

// WriteModules saves a module list file.
func (d *Dir) WriteModules(file string, l *modulelist.List) error {
	p, err := d.Path(file)
	if err != nil {
		return err
	}
	return l.Write(p)
}

// CopyFile copies a file within the directory.
func (d *Dir) CopyFile(ctx context.Context, src, dst string) error {
	return d.ws.CopyFile(ctx, d.File(src), d.File(dst))
}

// CopyTo copies file from d into dst under the same name.
func (d *Dir) CopyTo(ctx context.Context, dst *Dir, file string) error {
	return d.ws.CopyFile(ctx, d.File(file), dst.File(file))
}

// Glob returns the base names of files matching pattern, sorted.
func (d *Dir) Glob(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	err := d.ws.List(ctx, d.name, pattern, func(name string) error {
		out = append(out, path.Base(name))
		return nil
	})
	return out, err
}
