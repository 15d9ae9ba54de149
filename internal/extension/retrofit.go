package extension

import (
	"path/filepath"

	"github.com/tigerroll/switchprep/internal/builder/technology"
	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

// GenRetrofitsWithRetirement is the module name of retrofit exclusivity.
const GenRetrofitsWithRetirement = "study_modules.gen_retrofits_with_retirement"

// Linkage pairs a base plant with one of its retrofits.
type Linkage struct{ Base, Retrofit string }

type retrofitExclusivity struct {
	links []Linkage
}

// NewRetrofitExclusivity keeps a retrofit no larger than its base plant and
// lets the base plant and its retrofits share one committed capacity.
func NewRetrofitExclusivity() Extension { return &retrofitExclusivity{} }

func (r *retrofitExclusivity) Name() string           { return GenRetrofitsWithRetirement }
func (r *retrofitExclusivity) Conflicts() []string    { return nil }
func (r *retrofitExclusivity) DefineArguments(*Model) {}

func (r *retrofitExclusivity) LoadInputs(m *Model, dir string) error {
	t, err := table.Read(filepath.Join(dir, "gen_retrofits.csv"))
	if err != nil {
		return err
	}
	if err := t.RequireColumns(technology.BaseProjectColumn, technology.RetrofitProjectColumn); err != nil {
		return err
	}
	known := make(map[string]bool, len(m.Core.GenerationProjects))
	for _, g := range m.Core.GenerationProjects {
		known[g] = true
	}
	retro := t.Strings(technology.RetrofitProjectColumn)
	for i, base := range t.Strings(technology.BaseProjectColumn) {
		if !known[base] || !known[retro[i]] {
			return exception.InvariantViolation(moduleName,
				"gen_retrofits.csv links '"+base+"' and '"+retro[i]+"', which are not both in gen_info.csv", nil)
		}
		r.links = append(r.links, Linkage{Base: base, Retrofit: retro[i]})
	}
	return nil
}

func (r *retrofitExclusivity) DefineComponents(m *Model) error {
	c := m.Core
	for _, l := range r.links {
		for _, p := range c.Periods {
			err := m.AddConstraint(Constraint{
				Name:  "Retrofit_Capacity_Limit",
				Index: V("", l.Retrofit, PeriodLabel(p)).Index,
				Lhs:   LinearExpr{}.Add(1, V("GenCapacity", l.Retrofit, PeriodLabel(p))),
				Sense: LessEqual,
				Rhs:   LinearExpr{}.Add(1, V("GenCapacity", l.Base, PeriodLabel(p))),
			})
			if err != nil {
				return err
			}
		}
		for _, t := range c.Timepoints {
			p, ok := c.PeriodOfTimepoint(t)
			if !ok {
				return exception.InvariantViolation(moduleName, "timepoint '"+t+"' has no period", nil)
			}
			err := m.AddConstraint(Constraint{
				Name:  "Retrofit_Exclusive_Commit",
				Index: V("", l.Retrofit, t).Index,
				Lhs:   LinearExpr{}.Add(1, V("CommitGen", l.Base, t)).Add(1, V("CommitGen", l.Retrofit, t)),
				Sense: LessEqual,
				Rhs:   LinearExpr{}.Add(1, V("GenCapacity", l.Base, PeriodLabel(p))),
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
