package toughdays_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/switchprep/internal/builder/inputdir"
	"github.com/tigerroll/switchprep/internal/builder/modulelist"
	"github.com/tigerroll/switchprep/internal/builder/timeline"
	"github.com/tigerroll/switchprep/internal/builder/toughdays"
	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

func parse(t *testing.T, s string) *table.Table {
	t.Helper()
	tbl, err := table.Parse(strings.NewReader(s))
	require.NoError(t, err)
	return tbl
}

func TestSelectExpensiveDays(t *testing.T) {
	es := parse(t, "load_zone,period,timepoint_label,zone_demand_mw,marginal_cost\n"+
		"z1,2028,2030-01-04_00:00,10,5\n"+
		"z1,2028,2030-01-04_12:00,30,1\n"+ // day price (50+30)/40 = 2
		"z1,2028,2030-07-15_00:00,10,4\n"+ // day price 4
		"z1,2048,2050-01-04_00:00,10,3\n"+
		"z1,2048,2050-02-01_00:00,10,3\n")

	sel, err := toughdays.SelectExpensiveDays(es, "200")
	require.NoError(t, err)
	require.Len(t, sel, 2)
	assert.Equal(t, toughdays.Selection{Period: 2028, Timeseries: "2030.07.15", NewTimeseries: "2028.res.200", MeanPrice: 4}, sel[0])
	// Tie: the day seen first wins.
	assert.Equal(t, "2050.01.04", sel[1].Timeseries)
	assert.Equal(t, "2048.res.200", sel[1].NewTimeseries)

	back, err := toughdays.ParseSelectionTable(toughdays.SelectionTable(sel))
	require.NoError(t, err)
	assert.Equal(t, sel, back)
}

func TestSelectExpensiveDays_TieGoesToFirstSeen(t *testing.T) {
	es := parse(t, "period,timepoint_label,zone_demand_mw,marginal_cost\n"+
		"2048,2050-02-01_00:00,10,3\n"+
		"2048,2050-01-04_00:00,10,3\n")
	sel, err := toughdays.SelectExpensiveDays(es, "200")
	require.NoError(t, err)
	require.Len(t, sel, 1)
	assert.Equal(t, "2050.02.01", sel[0].Timeseries)
}

func TestSelectExpensiveDays_SkipsDaysWithoutDemand(t *testing.T) {
	es := parse(t, "period,timepoint_label,zone_demand_mw,marginal_cost\n"+
		"2048,2050-01-01_00:00,0,7\n"+
		"2048,2050-01-02_00:00,10,5\n")
	sel, err := toughdays.SelectExpensiveDays(es, "200")
	require.NoError(t, err)
	require.Len(t, sel, 1)
	assert.Equal(t, "2050.01.02", sel[0].Timeseries)
	assert.Equal(t, 5.0, sel[0].MeanPrice)

	es = parse(t, "period,timepoint_label,zone_demand_mw,marginal_cost\n"+
		"2028,2030-01-01_00:00,10,5\n"+
		"2048,2050-01-01_00:00,0,7\n")
	_, err = toughdays.SelectExpensiveDays(es, "200")
	assert.True(t, errors.Is(err, exception.ErrInvariantViolation))
}

func TestSelectExpensiveDays_MissingColumn(t *testing.T) {
	_, err := toughdays.SelectExpensiveDays(parse(t, "period,zone_demand_mw\n2028,1\n"), "000")
	assert.True(t, errors.Is(err, exception.ErrSchemaMismatch))
}

func TestTimeseriesOfLabel(t *testing.T) {
	assert.Equal(t, "2050.01.04", toughdays.TimeseriesOfLabel("2050-01-04_00:00"))
	assert.Equal(t, "2050.01", toughdays.TimeseriesOfLabel("2050-01"))
}

func TestLoadsName(t *testing.T) {
	assert.Equal(t, "loads.res10", toughdays.LoadsName(0.1))
	assert.Equal(t, "loads.res30", toughdays.LoadsName(0.3))
	assert.Equal(t, "loads.res05", toughdays.LoadsName(0.05))
}

func TestUpdateModules(t *testing.T) {
	l, err := modulelist.Parse(strings.NewReader("switch_model\n" + modulelist.PlanningReserves + "\n"))
	require.NoError(t, err)
	toughdays.UpdateModules(l, "modules.no_ccs_h2.txt")
	assert.Equal(t, "switch_model\n"+modulelist.RemovedPrefix+modulelist.PlanningReserves+"\n"+modulelist.SpinningReserves35+"\n", l.String())

	l, err = modulelist.Parse(strings.NewReader("switch_model\n"))
	require.NoError(t, err)
	toughdays.UpdateModules(l, "modules.txt")
	assert.True(t, l.Contains(modulelist.HydrogenTankReserve))
}

func TestAddTimeseries_KeepsPeriodTotal(t *testing.T) {
	ts := parse(t, "TIMESERIES,ts_period,ts_duration_of_tp,ts_num_tps,ts_scale_to_period\n"+
		"2050.01.04,2048,1,24,1825\n2050.07.15,2048,1,24,1825\n2030.01.04,2028,1,24,3650\n")
	sel := []toughdays.Selection{
		{Period: 2048, Timeseries: "2050.07.15", NewTimeseries: "2048.res.000"},
		{Period: 2048, Timeseries: "2050.07.15", NewTimeseries: "2048.res.200"},
		{Period: 2058, Timeseries: "2060.07.15", NewTimeseries: "2058.res.200"},
	}

	out, applied, err := toughdays.StudyReserves.AddTimeseries(ts, sel)
	require.NoError(t, err)
	assert.Len(t, applied, 2)
	require.Equal(t, 5, out.Len())

	w, err := out.Floats("ts_scale_to_period")
	require.NoError(t, err)
	factor := 1 - 100.0/3650
	assert.InDelta(t, 1825*factor, w[0], 1e-9)
	assert.InDelta(t, 3650, w[2], 1e-9)
	assert.Equal(t, "2048.res.000", out.Get(3, "TIMESERIES"))
	assert.Equal(t, 50.0, w[3])
	assert.InDelta(t, 3650, w[0]+w[1]+w[3]+w[4], 1e-9)
}

func TestAddTimeseries_WeightTooSmall(t *testing.T) {
	ts := parse(t, "TIMESERIES,ts_period,ts_scale_to_period\n2050.01.04,2048,40\n")
	_, _, err := toughdays.StudyReserves.AddTimeseries(ts, []toughdays.Selection{{Period: 2048, Timeseries: "2050.01.04", NewTimeseries: "2048.res.000"}})
	assert.True(t, errors.Is(err, exception.ErrInvariantViolation))
}

func TestAddTimepoints(t *testing.T) {
	tp := parse(t, "timepoint_id,timestamp,timeseries\n2050.01.04.00,2050-01-04_00:00,2050.01.04\n2050.01.04.12,2050-01-04_12:00,2050.01.04\n")
	out, renames, err := toughdays.AddTimepoints(tp, []toughdays.Selection{{Timeseries: "2050.01.04", NewTimeseries: "2048.res.200"}})
	require.NoError(t, err)
	require.Equal(t, 4, out.Len())
	assert.Equal(t, "2050.01.04.00.200", out.Get(2, "timepoint_id"))
	assert.Equal(t, "2051-01-04_00:00", out.Get(2, "timestamp"))
	assert.Equal(t, "2048.res.200", out.Get(3, "timeseries"))
	assert.Equal(t, []toughdays.Rename{
		{Old: "2050.01.04.00", New: "2050.01.04.00.200"},
		{Old: "2050.01.04.12", New: "2050.01.04.12.200"},
	}, renames)
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	src := filepath.Join(base, "inputs_extended")
	require.NoError(t, os.MkdirAll(src, 0o755))
	files := map[string]string{
		"modules.txt":                   "switch_model\n" + modulelist.PlanningReserves + "\n",
		"periods.csv":                   "INVESTMENT_PERIOD,period_start,period_end\n2048,2048,2057\n",
		"timeseries.csv":                "TIMESERIES,ts_period,ts_duration_of_tp,ts_num_tps,ts_scale_to_period\n2050.01.04,2048,12,2,1825\n2050.07.15,2048,12,2,1825\n",
		"timepoints.csv":                "timepoint_id,timestamp,timeseries\n2050.01.04.00,2050-01-04_00:00,2050.01.04\n2050.01.04.12,2050-01-04_12:00,2050.01.04\n2050.07.15.00,2050-07-15_00:00,2050.07.15\n2050.07.15.12,2050-07-15_12:00,2050.07.15\n",
		"loads.csv":                     "LOAD_ZONE,TIMEPOINT,zone_demand_mw\nz1,2050.01.04.00,100\nz1,2050.07.15.00,200\n",
		"variable_capacity_factors.csv": "GENERATION_PROJECT,timepoint,gen_max_capacity_factor\nw1,2050.07.15.12,0.5\n",
		"hydro_timeseries.csv":          "hydro_project,timeseries,hydro_avg_flow_mw\nh1,2050.07.15,7\n",
	}
	for n, c := range files {
		require.NoError(t, os.WriteFile(filepath.Join(src, n), []byte(c), 0o644))
	}
	ws, err := local.NewWorkspace(base)
	require.NoError(t, err)

	sel := []toughdays.Selection{
		{Period: 2048, Timeseries: "2050.07.15", NewTimeseries: "2048.res.000"},
		{Period: 2048, Timeseries: "2050.07.15", NewTimeseries: "2048.res.200"},
	}
	dst := inputdir.Open(ws, "inputs_extended_reserves")
	require.NoError(t, toughdays.StudyReserves.Apply(ctx, inputdir.Open(ws, "inputs_extended"), dst, sel))

	mods, err := dst.ReadModules("modules.txt")
	require.NoError(t, err)
	assert.False(t, mods.Contains(modulelist.PlanningReserves))
	assert.True(t, mods.Contains(modulelist.SpinningReserves35))

	dir, err := dst.Path("")
	require.NoError(t, err)
	s, err := timeline.Load(dir)
	require.NoError(t, err)
	require.NoError(t, s.Verify())
	assert.InDelta(t, 3650, s.PeriodWeights()[2048], 1e-9)

	tank, err := dst.Read("hydrogen_tank_reserve_days")
	require.NoError(t, err)
	assert.Equal(t, 2, tank.Len())
	assert.Equal(t, "3", tank.Get(0, "ts_years_between_occurrence"))

	loads, err := dst.Read("loads")
	require.NoError(t, err)
	require.Equal(t, 4, loads.Len())
	assert.Equal(t, "2050.07.15.00.000", loads.Get(2, "TIMEPOINT"))
	v, _ := loads.Float(2, "zone_demand_mw")
	assert.InDelta(t, 220, v, 1e-9)

	res30, err := dst.Read("loads.res30")
	require.NoError(t, err)
	v, _ = res30.Float(3, "zone_demand_mw")
	assert.InDelta(t, 260, v, 1e-9)

	vcf, err := dst.Read("variable_capacity_factors")
	require.NoError(t, err)
	assert.Equal(t, 3, vcf.Len())
	assert.Equal(t, "2050.07.15.12.200", vcf.Get(2, "timepoint"))

	hydro, err := dst.Read("hydro_timeseries")
	require.NoError(t, err)
	assert.Equal(t, []string{"2050.07.15", "2048.res.000", "2048.res.200"}, hydro.Strings("timeseries"))

	assert.True(t, ws.Exists("inputs_extended/loads.csv"))
	orig, err := inputdir.Open(ws, "inputs_extended").Read("loads")
	require.NoError(t, err)
	assert.Equal(t, 2, orig.Len())
}
