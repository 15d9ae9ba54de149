package extension_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/tigerroll/switchprep/internal/builder/modulelist"
	"github.com/tigerroll/switchprep/internal/extension"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

// writeInputs creates two zones in one balancing area, one period with a
// regular day and a reserve day, a central battery flagged for the mixed
// strategy, a distributed battery, one wind farm and a coal plant with a
// CCS retrofit.
func writeInputs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"periods.csv":    "INVESTMENT_PERIOD,period_start,period_end\n2048,2048,2057\n",
		"timeseries.csv": "TIMESERIES,ts_period,ts_duration_of_tp,ts_num_tps,ts_scale_to_period\n2050.01,2048,12,2,1825\n2048.res.000,2048,12,2,50\n",
		"timepoints.csv": "timepoint_id,timestamp,timeseries\n" +
			"t1,2050-01-01_00:00,2050.01\nt2,2050-01-01_12:00,2050.01\nt3,2051-01-04_00:00,2048.res.000\n",
		"load_zones.csv": "LOAD_ZONE,zone_balancing_area,zone_is_constrained\nz1,north,1\nz2,north,0\n",
		"gen_info.csv": "GENERATION_PROJECT,gen_tech,gen_load_zone,gen_is_distributed,gen_is_variable,gen_storage_efficiency,gen_is_re_connect\n" +
			"b1,Battery_Storage,z1,0,0,0.85,1\n" +
			"b2,Battery_Storage,z1,1,0,0.85,1\n" +
			"b3,Battery_Storage,z2,0,0,0.85,0\n" +
			"w1,Wind,z1,0,1,.,.\n" +
			"c1,Coal,z2,0,0,.,.\n" +
			"c1_CCS,Coal_CCS,z2,0,0,.,.\n",
		"variable_capacity_factors.csv": "GENERATION_PROJECT,timepoint,gen_max_capacity_factor\nw1,t1,0.3\nw1,t2,0.5\n",
		"loads.csv": "LOAD_ZONE,TIMEPOINT,zone_demand_mw\n" +
			"z1,t1,100\nz1,t2,120\nz1,t3,150\nz2,t1,200\nz2,t2,220\nz2,t3,250\n",
		"gen_retrofits.csv":              "base_gen_project,retrofit_gen_project\nc1,c1_CCS\n",
		"hydrogen_tank_reserve_days.csv": "TIMESERIES,ts_years_between_occurrence\n2048.res.000,3\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func modules(t *testing.T, names ...string) *modulelist.List {
	t.Helper()
	l, err := modulelist.Parse(strings.NewReader("switch_model\n" + strings.Join(names, "\n") + "\n"))
	require.NoError(t, err)
	return l
}

// maximize solves max Σ obj·x subject to the program's rows, 0 <= x and the
// extra upper bounds, and returns the optimal objective.
func maximize(t *testing.T, p *extension.Program, obj map[extension.Var]float64, upper map[extension.Var]float64) float64 {
	t.Helper()
	n := len(p.Vars)
	rows := 0
	if p.G != nil {
		rows, _ = p.G.Dims()
	}
	g := mat.NewDense(rows+n+len(upper), n, nil)
	h := make([]float64, rows+n+len(upper))
	for i := 0; i < rows; i++ {
		for j := 0; j < n; j++ {
			g.Set(i, j, p.G.At(i, j))
		}
		h[i] = p.H[i]
	}
	for j := 0; j < n; j++ {
		g.Set(rows+j, j, -1)
	}
	r := rows + n
	for v, ub := range upper {
		j, ok := p.Column(v)
		require.True(t, ok, v.String())
		g.Set(r, j, 1)
		h[r] = ub
		r++
	}
	c := make([]float64, n)
	for v, w := range obj {
		j, ok := p.Column(v)
		require.True(t, ok, v.String())
		c[j] = -w
	}
	cStd, aStd, bStd := lp.Convert(c, g, h, nil, nil)
	opt, _, err := lp.Simplex(cStd, aStd, bStd, 1e-10, nil)
	require.NoError(t, err)
	return -opt
}

func TestLoadCore(t *testing.T) {
	core, err := extension.LoadCore(writeInputs(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"z1", "z2"}, core.LoadZones)
	assert.Equal(t, []int{2048}, core.Periods)
	assert.Equal(t, []string{"b1", "b2", "b3"}, core.StorageGens)
	assert.Equal(t, []string{"w1"}, core.VariableGens)
	assert.InDelta(t, 182.5, core.TSScaleToYear["2050.01"], 1e-12)
	assert.InDelta(t, 5, core.TSScaleToYear["2048.res.000"], 1e-12)
	assert.True(t, core.IsVariableGenActive("w1", "t2"))
	assert.False(t, core.IsVariableGenActive("w1", "t3"))
	assert.Len(t, core.ZoneTimepoints, 6)
	assert.Len(t, core.BalancingAreaTimepoints, 3)
	assert.Equal(t, 150.0, core.LzDemandMW[extension.ZoneTP{Zone: "z1", TP: "t3"}])
	p, ok := core.PeriodOfTimepoint("t3")
	require.True(t, ok)
	assert.Equal(t, 2048, p)
}

func TestUse_RejectsConflictingStrategies(t *testing.T) {
	core, err := extension.LoadCore(writeInputs(t))
	require.NoError(t, err)
	m := extension.NewModel(core)
	require.NoError(t, m.Use(extension.NewREConnectedStrategy()))
	assert.Error(t, m.Use(extension.NewMixedStrategy()))
	assert.Error(t, m.Use(extension.NewREConnectedStrategy()))
	require.NoError(t, m.Use(extension.NewSpinningReserves55()))
	assert.Len(t, m.Extensions(), 2)

	_, err = extension.DefaultRegistry().Build(writeInputs(t), modules(t, extension.MixedStrategy, extension.REConnectedStrategy), nil)
	assert.Error(t, err)
}

func TestREConnectedStrategy(t *testing.T) {
	m, err := extension.DefaultRegistry().Build(writeInputs(t), modules(t, extension.REConnectedStrategy), nil)
	require.NoError(t, err)

	rows := m.ConstraintsNamed(extension.ChargeStorageUpperLimit)
	require.Len(t, rows, 3, "only z1 is constrained")
	c, ok := m.Constraint(extension.ChargeStorageUpperLimit, "z1", "t1")
	require.True(t, ok)
	assert.Equal(t, 1.0, c.Lhs.Coef(extension.V("ChargeStorage", "b1", "t1")))
	assert.Equal(t, 0.0, c.Lhs.Coef(extension.V("ChargeStorage", "b2", "t1")), "distributed batteries are excluded")
	assert.Equal(t, 1.0, c.Rhs.Coef(extension.V("DispatchGen", "w1", "t1")))

	// No wind at t3, so the battery cannot charge.
	c, ok = m.Constraint(extension.ChargeStorageUpperLimit, "z1", "t3")
	require.True(t, ok)
	assert.True(t, c.Rhs.IsEmpty())

	prog := m.Assemble()
	charge := extension.V("ChargeStorage", "b1", "t1")
	got := maximize(t, prog,
		map[extension.Var]float64{charge: 1},
		map[extension.Var]float64{extension.V("DispatchGen", "w1", "t1"): 40})
	assert.InDelta(t, 40, got, 1e-6)
}

func TestMixedStrategy(t *testing.T) {
	m, err := extension.DefaultRegistry().Build(writeInputs(t), modules(t, extension.MixedStrategy), nil)
	require.NoError(t, err)

	rows := m.ConstraintsNamed(extension.ChargeStorageUpperLimit)
	assert.Len(t, rows, 6, "every zone and timepoint")
	c, ok := m.Constraint(extension.ChargeStorageUpperLimit, "z2", "t1")
	require.True(t, ok)
	assert.True(t, c.Lhs.IsEmpty(), "b3 is not flagged")
	assert.True(t, c.Holds(nil, 0))

	expr := m.Expressions["REBatteryCentralCharge"]
	require.NotNil(t, expr)
	assert.Equal(t, 1.0, expr.Get("z1", "t2").Coef(extension.V("ChargeStorage", "b1", "t2")))
	assert.True(t, expr.Get("nowhere", "t1").IsEmpty())
}

// writeTwoPeriodInputs has one zone and two periods: b1 retires before the
// second period and b4 is only built in it.
func writeTwoPeriodInputs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"periods.csv":    "INVESTMENT_PERIOD,period_start,period_end\n2048,2048,2057\n2058,2058,2067\n",
		"timeseries.csv": "TIMESERIES,ts_period,ts_duration_of_tp,ts_num_tps,ts_scale_to_period\n2050.01,2048,24,1,3650\n2060.01,2058,24,1,3650\n",
		"timepoints.csv": "timepoint_id,timestamp,timeseries\nt1,2050-01-01_00:00,2050.01\nt2,2060-01-01_00:00,2060.01\n",
		"load_zones.csv": "LOAD_ZONE,zone_balancing_area\nz1,north\n",
		"gen_info.csv": "GENERATION_PROJECT,gen_tech,gen_load_zone,gen_is_distributed,gen_is_variable,gen_storage_efficiency,gen_is_re_connect,gen_max_age\n" +
			"b1,Battery_Storage,z1,0,0,0.85,1,10\n" +
			"b4,Battery_Storage,z1,0,0,0.85,1,15\n" +
			"w1,Wind,z1,0,1,.,.,30\n",
		"gen_build_predetermined.csv": "GENERATION_PROJECT,build_year,build_gen_predetermined\nb1,2048,100\nw1,2010,50\n",
		"gen_build_costs.csv": "GENERATION_PROJECT,build_year,gen_overnight_cost\n" +
			"b1,2048,900\nb4,2020,900\nb4,2058,800\nw1,2010,1000\nw1,2048,1000\n",
		"loads.csv": "LOAD_ZONE,TIMEPOINT,zone_demand_mw\nz1,t1,100\nz1,t2,120\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoadCore_GenActivePeriods(t *testing.T) {
	core, err := extension.LoadCore(writeTwoPeriodInputs(t))
	require.NoError(t, err)

	assert.True(t, core.IsGenActive("b1", "t1"))
	assert.False(t, core.IsGenActive("b1", "t2"), "retired after gen_max_age")
	assert.False(t, core.IsGenActive("b4", "t1"), "2020 is not an investment period")
	assert.True(t, core.IsGenActive("b4", "t2"))
	// The 2010 vintage retires in 2040; the 2048 build keeps it going.
	assert.True(t, core.IsVariableGenActive("w1", "t1"))
	assert.True(t, core.IsVariableGenActive("w1", "t2"))

	legacy, err := extension.LoadCore(writeInputs(t))
	require.NoError(t, err)
	assert.Nil(t, legacy.GenActivePeriods)
	assert.True(t, legacy.IsGenActive("b1", "t3"))
}

func TestMixedStrategy_ChargeOnlyWhileActive(t *testing.T) {
	m, err := extension.DefaultRegistry().Build(writeTwoPeriodInputs(t), modules(t, extension.MixedStrategy), nil)
	require.NoError(t, err)

	c, ok := m.Constraint(extension.ChargeStorageUpperLimit, "z1", "t1")
	require.True(t, ok)
	assert.Equal(t, 1.0, c.Lhs.Coef(extension.V("ChargeStorage", "b1", "t1")))
	assert.Equal(t, 0.0, c.Lhs.Coef(extension.V("ChargeStorage", "b4", "t1")))

	c, ok = m.Constraint(extension.ChargeStorageUpperLimit, "z1", "t2")
	require.True(t, ok)
	assert.Equal(t, 0.0, c.Lhs.Coef(extension.V("ChargeStorage", "b1", "t2")))
	assert.Equal(t, 1.0, c.Lhs.Coef(extension.V("ChargeStorage", "b4", "t2")))

	_, found := m.Assemble().Column(extension.V("ChargeStorage", "b1", "t2"))
	assert.False(t, found, "no variable for a retired battery")
}

func TestZoneIndex_ReadOnlyGets(t *testing.T) {
	core, err := extension.LoadCore(writeInputs(t))
	require.NoError(t, err)
	ix := extension.BuildZoneIndex(core, core.VariableGens, "DispatchGen", core.IsVariableGenActive)
	assert.Equal(t, 2, ix.Len())

	a := ix.Get("z1", "t1")
	a = a.Add(5, extension.V("Extra"))
	b := ix.Get("z1", "t1")
	assert.Len(t, a.Terms, 2)
	assert.Len(t, b.Terms, 1)
	assert.True(t, ix.Get("z2", "t1").IsEmpty())
}

func TestHydrogenTankReserves(t *testing.T) {
	m, err := extension.DefaultRegistry().Build(writeInputs(t), modules(t, extension.HydrogenTankReserves), nil)
	require.NoError(t, err)

	c, ok := m.Constraint("Max_Store_Liquid_Hydrogen_with_Reserves", "z1", "2048")
	require.True(t, ok)
	assert.InDelta(t, 182.5, c.Lhs.Coef(extension.V("StoreLiquidHydrogenKg", "z1", "2050.01")), 1e-12)
	assert.InDelta(t, 15, c.Lhs.Coef(extension.V("StoreLiquidHydrogenKg", "z1", "2048.res.000")), 1e-12)
	assert.Equal(t, 1.0, c.Rhs.Coef(extension.V("LiquidHydrogenTankCapacityKg", "z1", "2048")))
	assert.Len(t, m.ConstraintsNamed("Max_Store_Liquid_Hydrogen_with_Reserves"), 2)

	// A 1000 kg tank holds at most 1000/15 kg of daily storage on the reserve day.
	prog := m.Assemble()
	got := maximize(t, prog,
		map[extension.Var]float64{extension.V("StoreLiquidHydrogenKg", "z1", "2048.res.000"): 1},
		map[extension.Var]float64{extension.V("LiquidHydrogenTankCapacityKg", "z1", "2048"): 1000})
	assert.InDelta(t, 1000.0/15, got, 1e-6)
}

func TestSpinningReserves(t *testing.T) {
	m, err := extension.DefaultRegistry().Build(writeInputs(t),
		modules(t, extension.SpinningReserves55, extension.SpinningReserves35), nil)
	require.NoError(t, err)

	assert.Equal(t, "3+5", m.Arguments[extension.SpinningRequirementRule])
	assert.Equal(t, []string{"SpinningReserveRequirement55", "NREL35SpinningReserveRequirement"}, m.SpinningReserveUpRequirements)
	assert.Equal(t, m.SpinningReserveUpRequirements, m.SpinningReserveDownRequirements)

	e55 := m.Expressions["SpinningReserveRequirement55"].Get("north", "t1")
	assert.InDelta(t, 0.05*(100+200), e55.Constant, 1e-9)
	assert.Equal(t, 0.05, e55.Coef(extension.V("DispatchGen", "w1", "t1")))

	e35 := m.Expressions["NREL35SpinningReserveRequirement"].Get("north", "t3")
	assert.InDelta(t, 0.03*(150+250), e35.Constant, 1e-9)
	assert.Empty(t, e35.Terms, "w1 is not active at t3")
}

func TestSpinningReserves35_RuleOverridden(t *testing.T) {
	m, err := extension.DefaultRegistry().Build(writeInputs(t),
		modules(t, extension.SpinningReserves35), map[string]string{extension.SpinningRequirementRule: "Hawaii"})
	require.NoError(t, err)
	assert.Equal(t, "Hawaii", m.Arguments[extension.SpinningRequirementRule])
	assert.Nil(t, m.Expressions["NREL35SpinningReserveRequirement"])
	assert.Empty(t, m.SpinningReserveUpRequirements)
}

func TestRetrofitExclusivity(t *testing.T) {
	m, err := extension.DefaultRegistry().Build(writeInputs(t), modules(t, extension.GenRetrofitsWithRetirement), nil)
	require.NoError(t, err)
	assert.Len(t, m.ConstraintsNamed("Retrofit_Capacity_Limit"), 1)
	assert.Len(t, m.ConstraintsNamed("Retrofit_Exclusive_Commit"), 3)

	c, ok := m.Constraint("Retrofit_Exclusive_Commit", "c1_CCS", "t3")
	require.True(t, ok)
	assert.Equal(t, 1.0, c.Rhs.Coef(extension.V("GenCapacity", "c1", "2048")))

	prog := m.Assemble()
	got := maximize(t, prog,
		map[extension.Var]float64{
			extension.V("CommitGen", "c1", "t1"):     1,
			extension.V("CommitGen", "c1_CCS", "t1"): 1,
		},
		map[extension.Var]float64{extension.V("GenCapacity", "c1", "2048"): 300})
	assert.InDelta(t, 300, got, 1e-6)
}

func TestRetrofitExclusivity_UnknownProject(t *testing.T) {
	dir := writeInputs(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gen_retrofits.csv"), []byte("base_gen_project,retrofit_gen_project\nc1,c9_H2\n"), 0o644))
	_, err := extension.DefaultRegistry().Build(dir, modules(t, extension.GenRetrofitsWithRetirement), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrInvariantViolation))
}

func TestAssembleAndWriteLP(t *testing.T) {
	core, err := extension.LoadCore(writeInputs(t))
	require.NoError(t, err)
	m := extension.NewModel(core)
	x, y := extension.V("x"), extension.V("y", "a")
	require.NoError(t, m.AddConstraint(extension.Constraint{
		Name: "ge", Lhs: extension.LinearExpr{}.Add(2, x), Sense: extension.GreaterEqual,
		Rhs: extension.LinearExpr{}.Add(1, y).AddConst(3),
	}))
	require.NoError(t, m.AddConstraint(extension.Constraint{
		Name: "eq", Lhs: extension.LinearExpr{}.Add(1, x).Add(1, y), Sense: extension.Equal,
		Rhs: extension.LinearExpr{}.AddConst(4),
	}))
	assert.Error(t, m.AddConstraint(extension.Constraint{Name: "eq"}))

	p := m.Assemble()
	require.Equal(t, []extension.Var{x, y}, p.Vars)
	assert.Equal(t, []float64{-2, 1}, mat.Row(nil, 0, p.G))
	assert.Equal(t, []float64{-3}, p.H)
	assert.Equal(t, []float64{1, 1}, mat.Row(nil, 0, p.A))
	assert.Equal(t, []float64{4}, p.B)

	var buf bytes.Buffer
	require.NoError(t, p.WriteLP(&buf))
	assert.Equal(t, "\\ model extension constraints\nSubject To\n"+
		" ge: - 2 x + 1 y(a) <= -3\n"+
		" eq: 1 x + 1 y(a) = 4\n"+
		"End\n", buf.String())
}

func TestLinearExpr(t *testing.T) {
	x, y := extension.V("x"), extension.V("y", "1", "2")
	e := extension.LinearExpr{}.Add(2, x).Add(-1, y).Add(1, x).AddConst(-4)
	assert.Equal(t, "2 x - y(1,2) + x - 4", e.String())
	s := e.Simplify()
	assert.Equal(t, "3 x - y(1,2) - 4", s.String())
	assert.Equal(t, []extension.Var{x, y}, s.Vars())
	assert.Equal(t, "0", extension.LinearExpr{}.String())
	assert.True(t, e.Plus(e, -1).Simplify().Terms == nil)
}
