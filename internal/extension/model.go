// Package extension expresses the study's additions to the external
// capacity-expansion model as symbolic linear constraints, and assembles
// them into matrices for inspection, testing or export in LP format.
package extension

import (
	"fmt"
	"sort"

	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

const moduleName = "extension"

// Extension adds parameters, expressions and constraints to a Model.
type Extension interface {
	// Name is the module name used in module list files.
	Name() string
	// Conflicts lists the module names that cannot be used together with this one.
	Conflicts() []string
	DefineArguments(m *Model)
	LoadInputs(m *Model, dir string) error
	DefineComponents(m *Model) error
}

// Expression is a named family of linear expressions.
type Expression struct {
	Name    string
	keys    []string
	entries map[string]LinearExpr
}

// Get returns the expression at index, or the empty expression.
func (e *Expression) Get(index ...string) LinearExpr {
	return e.entries[V("", index...).Index].Clone()
}

// Keys returns the indexes in definition order.
func (e *Expression) Keys() []string { return append([]string(nil), e.keys...) }

// Model is the symbolic view of the external model.
type Model struct {
	Core *Core
	// Params holds extension parameters by name, then comma-joined index.
	Params      map[string]map[string]float64
	Arguments   map[string]string
	Expressions map[string]*Expression
	Constraints []Constraint

	SpinningReserveUpRequirements   []string
	SpinningReserveDownRequirements []string

	extensions  []Extension
	overrides   map[string]string
	constraints map[string]int
}

// NewModel creates a model over core.
func NewModel(core *Core) *Model {
	return &Model{
		Core:        core,
		Params:      make(map[string]map[string]float64),
		Arguments:   make(map[string]string),
		Expressions: make(map[string]*Expression),
		overrides:   make(map[string]string),
		constraints: make(map[string]int),
	}
}

// Use adds an extension. It fails when ext conflicts with one already in use.
func (m *Model) Use(ext Extension) error {
	for _, used := range m.extensions {
		if used.Name() == ext.Name() {
			return exception.NewBatchErrorf(moduleName, "extension '%s' is already in use", ext.Name())
		}
		if contains(used.Conflicts(), ext.Name()) || contains(ext.Conflicts(), used.Name()) {
			return exception.NewBatchErrorf(moduleName, "extension '%s' cannot be used with '%s'", ext.Name(), used.Name())
		}
	}
	m.extensions = append(m.extensions, ext)
	return nil
}

// Extensions returns the extensions in use, in order.
func (m *Model) Extensions() []Extension {
	return append([]Extension(nil), m.extensions...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// SetArgument overrides an argument, as a command line flag would.
// Overrides win over extension defaults regardless of call order.
func (m *Model) SetArgument(name, value string) {
	m.overrides[name] = value
	m.Arguments[name] = value
}

// SetArgumentDefault sets an argument unless it was overridden.
func (m *Model) SetArgumentDefault(name, value string) {
	if _, ok := m.overrides[name]; ok {
		return
	}
	m.Arguments[name] = value
}

// Define runs DefineArguments, LoadInputs and DefineComponents of every
// extension in use, each phase for all extensions before the next.
func (m *Model) Define(dir string) error {
	for _, ext := range m.extensions {
		ext.DefineArguments(m)
	}
	for _, ext := range m.extensions {
		if err := ext.LoadInputs(m, dir); err != nil {
			return exception.NewBatchErrorf(moduleName, "extension '%s' failed to load inputs", ext.Name(), err)
		}
	}
	for _, ext := range m.extensions {
		before := len(m.Constraints)
		if err := ext.DefineComponents(m); err != nil {
			return exception.NewBatchErrorf(moduleName, "extension '%s' failed to define components", ext.Name(), err)
		}
		logger.Debugf("Extension %s added %d constraint rows.", ext.Name(), len(m.Constraints)-before)
	}
	return nil
}

// Param returns a parameter value, or def when it is not set.
func (m *Model) Param(name string, def float64, index ...string) float64 {
	if v, ok := m.Params[name][V("", index...).Index]; ok {
		return v
	}
	return def
}

// SetParam sets a parameter value.
func (m *Model) SetParam(name string, v float64, index ...string) {
	p, ok := m.Params[name]
	if !ok {
		p = make(map[string]float64)
		m.Params[name] = p
	}
	p[V("", index...).Index] = v
}

// AddExpression registers an indexed expression. Names must be unique.
func (m *Model) AddExpression(name string) (*Expression, error) {
	if _, ok := m.Expressions[name]; ok {
		return nil, exception.NewBatchErrorf(moduleName, "expression '%s' is already defined", name)
	}
	e := &Expression{Name: name, entries: make(map[string]LinearExpr)}
	m.Expressions[name] = e
	return e, nil
}

// Set defines the expression at index.
func (e *Expression) Set(expr LinearExpr, index ...string) {
	k := V("", index...).Index
	if _, ok := e.entries[k]; !ok {
		e.keys = append(e.keys, k)
	}
	e.entries[k] = expr
}

// AddConstraint appends a constraint row. Row names must be unique.
func (m *Model) AddConstraint(c Constraint) error {
	name := c.RowName()
	if _, ok := m.constraints[name]; ok {
		return exception.NewBatchErrorf(moduleName, "constraint '%s' is already defined", name)
	}
	m.constraints[name] = len(m.Constraints)
	m.Constraints = append(m.Constraints, c)
	return nil
}

// ConstraintsNamed returns the rows of an indexed constraint in order.
func (m *Model) ConstraintsNamed(name string) []Constraint {
	var out []Constraint
	for _, c := range m.Constraints {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Constraint returns one row by name and index.
func (m *Model) Constraint(name string, index ...string) (Constraint, bool) {
	i, ok := m.constraints[V(name, index...).String()]
	if !ok {
		return Constraint{}, false
	}
	return m.Constraints[i], true
}

// Summary counts rows per constraint name, sorted by name.
func (m *Model) Summary() []string {
	counts := make(map[string]int)
	for _, c := range m.Constraints {
		counts[c.Name]++
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf("%s: %d", n, counts[n])
	}
	return out
}
