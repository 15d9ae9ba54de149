// Package scenario builds and parses scenario list files: one solver run
// per line, written as flag/value tokens.
package scenario

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

const moduleName = "scenario"

// Flags understood by the solver's batch command.
const (
	FlagName          = "--scenario-name"
	FlagInputsDir     = "--inputs-dir"
	FlagOutputsDir    = "--outputs-dir"
	FlagInputAlias    = "--input-alias"
	FlagInputAliases  = "--input-aliases"
	FlagModuleList    = "--module-list"
	FlagExcludeModule = "--exclude-module"
	FlagIncludeModule = "--include-module"
)

// Definition is one named solver run.
type Definition struct {
	Name       string
	InputsDir  string
	OutputsDir string
	// Aliases maps a standard file name to the file used in its place, in line order.
	Aliases    []Alias
	ModuleList string
	Include    []string
	Exclude    []string
	// Args are the tokens of the line as written.
	Args []string
}

// Alias replaces one input file with another.
type Alias struct {
	File, Replacement string
}

// Line renders the definition as a scenario list line.
func (d Definition) Line() string { return strings.Join(d.Args, " ") }

// New builds a definition from tokens.
func New(args ...string) (Definition, error) {
	var tokens []string
	for _, a := range args {
		tokens = append(tokens, strings.Fields(a)...)
	}
	d := Definition{Args: tokens}
	for i := 0; i < len(tokens); i++ {
		flag := tokens[i]
		if !strings.HasPrefix(flag, "--") {
			return Definition{}, exception.SchemaMismatch(moduleName, "unexpected token '%s' in '%s'", flag, d.Line())
		}
		var values []string
		for i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "--") {
			i++
			values = append(values, tokens[i])
		}
		if err := d.set(flag, values); err != nil {
			return Definition{}, err
		}
	}
	if d.Name == "" {
		return Definition{}, exception.SchemaMismatch(moduleName, "scenario has no %s: '%s'", FlagName, d.Line())
	}
	return d, nil
}

func (d *Definition) set(flag string, values []string) error {
	single := func(dst *string) error {
		if len(values) != 1 {
			return exception.SchemaMismatch(moduleName, "%s takes one value, got %d", flag, len(values))
		}
		*dst = values[0]
		return nil
	}
	switch flag {
	case FlagName:
		return single(&d.Name)
	case FlagInputsDir:
		return single(&d.InputsDir)
	case FlagOutputsDir:
		return single(&d.OutputsDir)
	case FlagModuleList:
		return single(&d.ModuleList)
	case FlagInputAlias, FlagInputAliases:
		if len(values) == 0 {
			return exception.SchemaMismatch(moduleName, "%s takes at least one value", flag)
		}
		for _, v := range values {
			file, repl, ok := strings.Cut(v, "=")
			if !ok || file == "" || repl == "" {
				return exception.SchemaMismatch(moduleName, "alias '%s' is not file=replacement", v)
			}
			d.Aliases = append(d.Aliases, Alias{File: file, Replacement: repl})
		}
	case FlagIncludeModule:
		d.Include = append(d.Include, values...)
	case FlagExcludeModule:
		d.Exclude = append(d.Exclude, values...)
	default:
		// Other solver flags pass through untouched.
	}
	return nil
}

// Alias returns the replacement for file, or file itself.
func (d Definition) Alias(file string) string {
	for _, a := range d.Aliases {
		if a.File == file {
			return a.Replacement
		}
	}
	return file
}

// List is the content of a scenario list file.
type List []Definition

// Validate reports every duplicate scenario name.
func (l List) Validate() error {
	var result *multierror.Error
	seen := make(map[string]bool, len(l))
	for _, d := range l {
		if seen[d.Name] {
			result = multierror.Append(result, fmt.Errorf("scenario name '%s' is used more than once", d.Name))
		}
		seen[d.Name] = true
	}
	if err := result.ErrorOrNil(); err != nil {
		return exception.InvariantViolation(moduleName, "scenario list has duplicate names", err)
	}
	return nil
}

// Names returns the scenario names in order.
func (l List) Names() []string {
	out := make([]string, len(l))
	for i, d := range l {
		out[i] = d.Name
	}
	return out
}

// Find returns the scenario with the given name.
func (l List) Find(name string) (Definition, bool) {
	for _, d := range l {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Parse reads a scenario list. Blank lines and lines starting with '#' are skipped.
func Parse(r io.Reader) (List, error) {
	var out List
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for s.Scan() {
		n++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		d, err := New(line)
		if err != nil {
			return nil, exception.NewBatchErrorf(moduleName, "line %d", n, err)
		}
		out = append(out, d)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, out.Validate()
}

// Read loads a scenario list file.
func Read(path string) (List, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, exception.MissingInput(moduleName, path, err)
		}
		return nil, exception.NewBatchErrorf(moduleName, "failed to open '%s'", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Write validates the list and saves it, one line per scenario.
func (l List) Write(path string) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to create directory for '%s'", path, err)
	}
	var b strings.Builder
	for _, d := range l {
		b.WriteString(d.Line())
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to write '%s'", path, err)
	}
	return nil
}
