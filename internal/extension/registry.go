package extension

import (
	"sort"

	"github.com/tigerroll/switchprep/internal/builder/modulelist"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

// Constructor creates a fresh extension.
type Constructor func() Extension

// Registry maps module names to extension constructors.
type Registry map[string]Constructor

// DefaultRegistry knows every extension of the study.
func DefaultRegistry() Registry {
	return Registry{
		REConnectedStrategy:        NewREConnectedStrategy,
		MixedStrategy:              NewMixedStrategy,
		HydrogenTankReserves:       NewHydrogenTankReserves,
		SpinningReserves55:         NewSpinningReserves55,
		SpinningReserves35:         NewSpinningReserves35,
		GenRetrofitsWithRetirement: NewRetrofitExclusivity,
	}
}

// Names returns the registered module names, sorted.
func (r Registry) Names() []string {
	out := make([]string, 0, len(r))
	for n := range r {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// New creates the extension registered under name.
func (r Registry) New(name string) (Extension, error) {
	ctor, ok := r[name]
	if !ok {
		return nil, exception.NewBatchErrorf(moduleName, "no extension registered for module '%s'", name)
	}
	return ctor(), nil
}

// Select creates, in list order, the extensions for the active modules of
// l. Modules without an extension belong to the external model and are skipped.
func (r Registry) Select(l *modulelist.List) []Extension {
	var out []Extension
	for _, name := range l.Modules() {
		if ctor, ok := r[name]; ok {
			out = append(out, ctor())
			continue
		}
		logger.Debugf("Module %s has no extension; left to the solver.", name)
	}
	return out
}

// Build loads the core sets from dir and defines every selected extension.
func (r Registry) Build(dir string, l *modulelist.List, arguments map[string]string) (*Model, error) {
	core, err := LoadCore(dir)
	if err != nil {
		return nil, err
	}
	m := NewModel(core)
	for k, v := range arguments {
		m.SetArgument(k, v)
	}
	for _, ext := range r.Select(l) {
		if err := m.Use(ext); err != nil {
			return nil, err
		}
	}
	if err := m.Define(dir); err != nil {
		return nil, err
	}
	return m, nil
}
