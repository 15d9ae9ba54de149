// Package modulelist edits solver module list files (modules.txt).
package modulelist

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

const moduleName = "modulelist"

// Well-known module names.
const (
	CoreBuild           = "switch_model.generators.core.build"
	PlanningReserves    = "switch_model.balancing.planning_reserves"
	SaveResults         = "study_modules.hawaii_save_results"
	GenBuildSuspend     = "study_modules.gen_build_suspend"
	RetrofitsRetirement = "study_modules.gen_retrofits_with_retirement"
	HydrogenSupply      = "study_modules.hydrogen_supply"
	SpinningReserves35  = "study_modules.spinning_reserves_35"
	HydrogenTankReserve = "study_modules.hydrogen_tank_reserves"
)

// RemovedPrefix marks a module commented out by CommentOut.
const RemovedPrefix = "# (removed) "

// List holds the lines of a module list file without line terminators.
type List struct {
	lines []string
}

// Parse reads a module list.
func Parse(r io.Reader) (*List, error) {
	l := &List{}
	s := bufio.NewScanner(r)
	for s.Scan() {
		l.lines = append(l.lines, s.Text())
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return l, nil
}

// Read loads a module list file. A missing file is exception.ErrMissingInput.
func Read(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, exception.MissingInput(moduleName, path, err)
		}
		return nil, exception.NewBatchErrorf(moduleName, "failed to open '%s'", path, err)
	}
	defer f.Close()
	l, err := Parse(f)
	if err != nil {
		return nil, exception.NewBatchErrorf(moduleName, "failed to read '%s'", path, err)
	}
	return l, nil
}

// Write saves the list. Every line, including the last, ends with a newline.
func (l *List) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to create directory for '%s'", path, err)
	}
	if err := os.WriteFile(path, []byte(l.String()), 0o644); err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to write '%s'", path, err)
	}
	return nil
}

// String renders the file content.
func (l *List) String() string {
	var b strings.Builder
	for _, line := range l.lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// Clone returns an independent copy.
func (l *List) Clone() *List {
	return &List{lines: append([]string(nil), l.lines...)}
}

// Append adds modules at the end.
func (l *List) Append(modules ...string) {
	l.lines = append(l.lines, modules...)
}

// Contains reports whether module is active (listed and not commented out).
func (l *List) Contains(module string) bool {
	for _, m := range l.Modules() {
		if m == module {
			return true
		}
	}
	return false
}

// Replace swaps the line that equals old for replacement.
// It fails with exception.ErrSchemaMismatch when old is not listed.
func (l *List) Replace(old, replacement string) error {
	for i, line := range l.lines {
		if strings.TrimSpace(line) == old {
			l.lines[i] = replacement
			return nil
		}
	}
	return exception.SchemaMismatch(moduleName, "module '%s' is not in the module list", old)
}

// CommentOut disables every line equal to module and reports whether any was found.
func (l *List) CommentOut(module string) bool {
	found := false
	for i, line := range l.lines {
		if strings.TrimSpace(line) == module {
			l.lines[i] = RemovedPrefix + line
			found = true
		}
	}
	return found
}

// Modules returns the active module names, skipping blanks and comments.
func (l *List) Modules() []string {
	var out []string
	for _, line := range l.lines {
		m := strings.TrimSpace(line)
		if m == "" || strings.HasPrefix(m, "#") {
			continue
		}
		out = append(out, m)
	}
	return out
}
