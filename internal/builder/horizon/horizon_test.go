package horizon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/switchprep/internal/builder/horizon"
	"github.com/tigerroll/switchprep/internal/builder/inputdir"
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

func TestPeriodsTable(t *testing.T) {
	p := horizon.Extended.PeriodsTable()
	require.Equal(t, 5, p.Len())
	assert.Equal(t, "2068", p.Get(4, "INVESTMENT_PERIOD"))
	assert.Equal(t, "2077", p.Get(4, "period_end"))

	assert.Equal(t, 3, horizon.Sparse.PeriodsTable().Len())
}

func TestTimeseries_DoublesWeightsAndCopiesLastPeriod(t *testing.T) {
	ts := parse(t, "TIMESERIES,ts_period,ts_duration_of_tp,ts_num_tps,ts_scale_to_period\n"+
		"2030.01,2028,4,6,91.25\n2035.01,2033,4,6,91.25\n2050.01,2048,4,6,91.25\n")

	out, err := horizon.Extended.Timeseries(ts)
	require.NoError(t, err)
	require.Equal(t, 4, out.Len())
	assert.Equal(t, "2030.01", out.Get(0, "TIMESERIES"))
	assert.Equal(t, "182.5", out.Get(0, "ts_scale_to_period"))
	assert.Equal(t, "2060.01", out.Get(2, "TIMESERIES"))
	assert.Equal(t, "2058", out.Get(2, "ts_period"))
	assert.Equal(t, "2070.01", out.Get(3, "TIMESERIES"))
	assert.Equal(t, "2068", out.Get(3, "ts_period"))
	assert.Equal(t, "182.5", out.Get(3, "ts_scale_to_period"))
}

func TestTimepoints_SubstitutesTagInIdentifiers(t *testing.T) {
	ts := parse(t, "TIMESERIES\n2030.01\n2050.01\n2060.01\n")
	tp := parse(t, "timepoint_id,timestamp,timeseries\n"+
		"2030.01.00,2030010100,2030.01\n2035.01.00,2035010100,2035.01\n2050.01.00,2050010100,2050.01\n")

	out, err := horizon.Extended.Timepoints(tp, ts)
	require.NoError(t, err)
	require.Equal(t, 4, out.Len())
	assert.Equal(t, "2060.01.00", out.Get(2, "timepoint_id"))
	assert.Equal(t, "2060010100", out.Get(2, "timestamp"))
	assert.Equal(t, "2070.01", out.Get(3, "timeseries"))
}

func TestPeriodTable_DuplicatesSourcePeriodRows(t *testing.T) {
	fc := parse(t, "load_zone,fuel,period,fuel_cost\nz1,Gas,2028,3\nz1,Gas,2033,4\nz1,Gas,2048,5\n")

	out, err := horizon.Extended.PeriodTable(fc, "period", nil)
	require.NoError(t, err)
	require.Equal(t, 4, out.Len())
	var periods []string
	for i := 0; i < out.Len(); i++ {
		periods = append(periods, out.Get(i, "period"))
		if out.Get(i, "period") == "2058" || out.Get(i, "period") == "2068" {
			assert.Equal(t, "5", out.Get(i, "fuel_cost"))
		}
	}
	assert.Equal(t, []string{"2028", "2048", "2058", "2068"}, periods)

	_, err = horizon.Extended.PeriodTable(fc, "build_year", nil)
	assert.True(t, errors.Is(err, exception.ErrSchemaMismatch))
}

func TestPeriodTable_KeepsPredeterminedOnce(t *testing.T) {
	bc := parse(t, "GENERATION_PROJECT,build_year,gen_overnight_cost\np1,2010,1\np1,2028,2\np2,2033,3\n")
	keep := func(i int) bool { return bc.Get(i, "build_year") == "2010" || bc.Get(i, "build_year") == "2028" }

	out, err := horizon.Sparse.PeriodTable(bc, "build_year", keep)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, "2010", out.Get(0, "build_year"))
	assert.Equal(t, "2028", out.Get(1, "build_year"))
}

func TestKeyedTable(t *testing.T) {
	loads := parse(t, "LOAD_ZONE,TIMEPOINT,zone_demand_mw\nz1,2030.01.00,10\nz1,2035.01.00,11\nz1,2050.01.00,12\n")
	keys := map[string]bool{"2030.01.00": true, "2050.01.00": true}

	out, err := horizon.Extended.KeyedTable(loads, "timepoint", keys)
	require.NoError(t, err)
	require.Equal(t, 4, out.Len())
	assert.Equal(t, "2060.01.00", out.Get(2, "TIMEPOINT"))
	assert.Equal(t, "12", out.Get(3, "zone_demand_mw"))
}

func writeInputs(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func minimalInputs() map[string]string {
	return map[string]string{
		"financials.csv":              "base_financial_year,interest_rate,discount_rate\n2022,0.05,0.05\n",
		"gen_info.csv":                "GENERATION_PROJECT,gen_tech\np1,Coal\n",
		"gen_build_predetermined.csv": "GENERATION_PROJECT,build_year,build_gen_predetermined\np1,2010,100\n",
		"load_zones.csv":              "LOAD_ZONE\nz1\n",
		"fuels.csv":                   "fuel,co2_intensity\nCoal,0.09\n",
		"modules.txt":                 "switch_model\n",
		"periods.csv":                 "INVESTMENT_PERIOD,period_start,period_end\n2028,2028,2032\n2048,2048,2052\n",
		"timeseries.csv":              "TIMESERIES,ts_period,ts_duration_of_tp,ts_num_tps,ts_scale_to_period\n2030.01,2028,24,1,5\n2050.01,2048,24,1,5\n",
		"timepoints.csv":              "timepoint_id,timestamp,timeseries\n2030.01.00,2030010100,2030.01\n2050.01.00,2050010100,2050.01\n",
		"carbon_policies.csv":         "period,carbon_cap_tco2_per_yr\n2028,100\n2048,50\n",
		"carbon_policies_050.csv":     "period,carbon_cap_tco2_per_yr\n2028,100\n2048,25\n",
		"fuel_cost.csv":               "load_zone,fuel,period,fuel_cost\nz1,Coal,2028,2\nz1,Coal,2048,3\n",
		"gen_build_costs.csv":         "GENERATION_PROJECT,build_year,gen_overnight_cost\np1,2010,1\np1,2028,2\np1,2048,3\n",
		"loads.csv":                   "LOAD_ZONE,TIMEPOINT,zone_demand_mw\nz1,2030.01.00,10\nz1,2050.01.00,12\n",
		"variable_capacity_factors.csv": "GENERATION_PROJECT,timepoint,gen_max_capacity_factor\n" +
			"p2,2030.01.00,0.3\np2,2050.01.00,0.4\n",
	}
}

func TestBuild_Extended(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	writeInputs(t, filepath.Join(base, "inputs_updated"), minimalInputs())
	ws, err := local.NewWorkspace(base)
	require.NoError(t, err)

	src := inputdir.Open(ws, "inputs_updated")
	dst := inputdir.Open(ws, horizon.Extended.Dir())
	require.NoError(t, horizon.StudyPlan.Build(ctx, src, dst, horizon.Extended))

	assert.True(t, dst.Exists("modules.txt"))
	assert.True(t, dst.Exists("financials.csv"))
	assert.False(t, dst.Exists("hydro_timeseries.csv"))

	cp, err := dst.Read("carbon_policies_050")
	require.NoError(t, err)
	assert.Equal(t, 4, cp.Len())

	bc, err := dst.Read("gen_build_costs")
	require.NoError(t, err)
	var years []string
	for i := 0; i < bc.Len(); i++ {
		years = append(years, bc.Get(i, "build_year"))
	}
	assert.Equal(t, []string{"2010", "2028", "2048", "2058", "2068"}, years)

	loads, err := dst.Read("loads")
	require.NoError(t, err)
	assert.Equal(t, 4, loads.Len())
	assert.Equal(t, 4, dst.Written["loads"])

	vcf, err := dst.Read("variable_capacity_factors")
	require.NoError(t, err)
	assert.Equal(t, "2070.01.00", vcf.Get(3, "timepoint"))
}

func TestBuild_MissingRequiredTable(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	files := minimalInputs()
	delete(files, "fuels.csv")
	writeInputs(t, filepath.Join(base, "inputs_updated"), files)
	ws, err := local.NewWorkspace(base)
	require.NoError(t, err)

	err = horizon.StudyPlan.Build(ctx, inputdir.Open(ws, "inputs_updated"), inputdir.Open(ws, "inputs_sparse"), horizon.Sparse)
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrMissingInput))
}
