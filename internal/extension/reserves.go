package extension

import (
	"path/filepath"

	"github.com/tigerroll/switchprep/internal/table"
)

// Module names of the reserve extensions.
const (
	HydrogenTankReserves = "study_modules.hydrogen_tank_reserves"
	SpinningReserves55   = "study_modules.spinning_reserves_55"
	SpinningReserves35   = "study_modules.spinning_reserves_35"
)

// SpinningRequirementRule is the argument that selects the spinning reserve rule.
const SpinningRequirementRule = "spinning_requirement_rule"

type hydrogenTankReserves struct{}

// NewHydrogenTankReserves sizes liquid hydrogen tanks for reserve days that
// recur only every few years but then last correspondingly longer.
func NewHydrogenTankReserves() Extension { return hydrogenTankReserves{} }

func (hydrogenTankReserves) Name() string           { return HydrogenTankReserves }
func (hydrogenTankReserves) Conflicts() []string    { return nil }
func (hydrogenTankReserves) DefineArguments(*Model) {}

func (hydrogenTankReserves) LoadInputs(m *Model, dir string) error {
	t, ok, err := table.ReadOptional(filepath.Join(dir, "hydrogen_tank_reserve_days.csv"))
	if err != nil || !ok {
		return err
	}
	if err := t.RequireColumns("TIMESERIES", "ts_years_between_occurrence"); err != nil {
		return err
	}
	for i, ts := range t.Strings("TIMESERIES") {
		if v, ok := t.Float(i, "ts_years_between_occurrence"); ok {
			m.SetParam("ts_years_between_occurrence", v, ts)
		}
	}
	return nil
}

func (hydrogenTankReserves) DefineComponents(m *Model) error {
	c := m.Core
	for _, z := range c.LoadZones {
		for _, p := range c.Periods {
			var lhs LinearExpr
			for _, ts := range c.TSInPeriod[p] {
				coef := m.Param("ts_years_between_occurrence", 1, ts) * c.TSScaleToYear[ts]
				lhs = lhs.Add(coef, V("StoreLiquidHydrogenKg", z, ts))
			}
			err := m.AddConstraint(Constraint{
				Name:  "Max_Store_Liquid_Hydrogen_with_Reserves",
				Index: V("", z, PeriodLabel(p)).Index,
				Lhs:   lhs,
				Sense: LessEqual,
				Rhs:   LinearExpr{}.Add(1, V("LiquidHydrogenTankCapacityKg", z, PeriodLabel(p))),
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// spinningRequirement is loadShare × load + renewShare × variable dispatch
// per (balancing area, timepoint), appended to the up and down requirement lists.
type spinningRequirement struct {
	name       string
	expression string
	loadShare  float64
	renewShare float64
	// rule, when set, is made the default spinning_requirement_rule and the
	// expression is only defined while that rule is in effect.
	rule string
}

// NewSpinningReserves55 requires 5% of load plus 5% of renewable output.
func NewSpinningReserves55() Extension {
	return &spinningRequirement{
		name:       SpinningReserves55,
		expression: "SpinningReserveRequirement55",
		loadShare:  0.05,
		renewShare: 0.05,
	}
}

// NewSpinningReserves35 makes the "3+5" rule (3% of load plus 5% of
// renewable output) the default.
func NewSpinningReserves35() Extension {
	return &spinningRequirement{
		name:       SpinningReserves35,
		expression: "NREL35SpinningReserveRequirement",
		loadShare:  0.03,
		renewShare: 0.05,
		rule:       "3+5",
	}
}

func (s *spinningRequirement) Name() string                    { return s.name }
func (s *spinningRequirement) Conflicts() []string             { return nil }
func (s *spinningRequirement) LoadInputs(*Model, string) error { return nil }

func (s *spinningRequirement) DefineArguments(m *Model) {
	if s.rule != "" {
		m.SetArgumentDefault(SpinningRequirementRule, s.rule)
	}
}

func (s *spinningRequirement) DefineComponents(m *Model) error {
	if s.rule != "" && m.Arguments[SpinningRequirementRule] != s.rule {
		return nil
	}
	c := m.Core
	expr, err := m.AddExpression(s.expression)
	if err != nil {
		return err
	}
	for _, at := range c.BalancingAreaTimepoints {
		var e LinearExpr
		for _, z := range c.LoadZones {
			if c.ZoneBalancingArea[z] == at.Area {
				e = e.AddConst(s.loadShare * c.LzDemandMW[ZoneTP{z, at.TP}])
			}
		}
		for _, g := range c.VariableGens {
			if c.IsVariableGenActive(g, at.TP) && c.ZoneBalancingArea[c.GenLoadZone[g]] == at.Area {
				e = e.Add(s.renewShare, V("DispatchGen", g, at.TP))
			}
		}
		expr.Set(e, at.Area, at.TP)
	}
	m.SpinningReserveUpRequirements = append(m.SpinningReserveUpRequirements, s.expression)
	m.SpinningReserveDownRequirements = append(m.SpinningReserveDownRequirements, s.expression)
	return nil
}
