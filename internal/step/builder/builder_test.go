package builder_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/switchprep/pkg/batch/adapter/storage/local"
	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
	tasklet "github.com/tigerroll/switchprep/pkg/batch/engine/step/tasklet"
	logging "github.com/tigerroll/switchprep/pkg/batch/listener/logging"
	exception "github.com/tigerroll/switchprep/pkg/batch/support/util/exception"

	"github.com/tigerroll/switchprep/internal/builder/carbon"
	"github.com/tigerroll/switchprep/internal/builder/modulelist"
	"github.com/tigerroll/switchprep/internal/builder/scenario"
	"github.com/tigerroll/switchprep/internal/step/builder"
	"github.com/tigerroll/switchprep/internal/table"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func newWorkspace(t *testing.T, files map[string]string) (*local.Workspace, string) {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, files)
	ws, err := local.NewWorkspace(root)
	require.NoError(t, err)
	return ws, root
}

func capIn(t *testing.T, path, period string) float64 {
	t.Helper()
	tbl, err := table.Read(path)
	require.NoError(t, err)
	for i := 0; i < tbl.Len(); i++ {
		if tbl.Get(i, "period") == period {
			v, ok := tbl.Float(i, carbon.CapColumn)
			require.True(t, ok)
			return v
		}
	}
	t.Fatalf("period %s not in %s", period, path)
	return 0
}

func TestStartInputsTasklet_WritesGlidePaths(t *testing.T) {
	ws, root := newWorkspace(t, map[string]string{
		"inputs/gen_info.csv": "GENERATION_PROJECT,gen_tech,gen_min_build_capacity\n" +
			"coal_1,Coal,100\n",
		"inputs/carbon_policies.csv": "period,carbon_cap_tco2_per_yr,carbon_cost_dollar_per_tco2\n" +
			"2023,1200,0\n2028,1000,0\n2033,.,0\n2038,.,0\n2043,.,0\n2048,.,0\n",
		"inputs/modules.txt": "switch_model\n",
	})
	study := &config.StudyConfig{CarbonCapLevels: []int{0, 50}}
	tl, err := builder.NewStartInputsTasklet(ws, study, nil)
	require.NoError(t, err)

	se := &model.StepExecution{}
	status, err := tl.Execute(context.Background(), se)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)

	start := filepath.Join(root, builder.StartInputs)
	assert.Equal(t, 750.0, capIn(t, filepath.Join(start, scenario.CarbonPoliciesFile("050")), "2038"))
	assert.Equal(t, 500.0, capIn(t, filepath.Join(start, scenario.CarbonPoliciesFile("050")), "2048"))
	assert.Equal(t, 0.0, capIn(t, filepath.Join(start, scenario.CarbonPoliciesFile("000")), "2048"))
	assert.FileExists(t, filepath.Join(start, "carbon_policies_price_200.csv"))

	genInfo, err := table.Read(filepath.Join(start, "gen_info.csv"))
	require.NoError(t, err)
	assert.True(t, genInfo.IsNull(0, "gen_min_build_capacity"))

	mods, err := modulelist.Read(filepath.Join(start, "modules.txt"))
	require.NoError(t, err)
	assert.True(t, mods.Contains(modulelist.SaveResults))

	// The source directory is untouched.
	orig, err := table.Read(filepath.Join(root, "inputs", "gen_info.csv"))
	require.NoError(t, err)
	assert.Equal(t, "100", orig.Get(0, "gen_min_build_capacity"))

	outputs, ok := tl.ExecutionContext().Get(logging.OutputsKey)
	require.True(t, ok)
	assert.Contains(t, outputs, "inputs_start/carbon_policies_050.csv")
	assert.Contains(t, outputs, "inputs_start/modules.txt")
	assert.Greater(t, se.WriteCount, 0)
}

func TestStartInputsTasklet_MissingSource(t *testing.T) {
	ws, _ := newWorkspace(t, nil)
	tl, err := builder.NewStartInputsTasklet(ws, &config.StudyConfig{CarbonCapLevels: []int{50}}, nil)
	require.NoError(t, err)

	status, err := tl.Execute(context.Background(), &model.StepExecution{})
	assert.Error(t, err)
	assert.Equal(t, model.ExitStatusFailed, status)
}

func TestStudyScenariosTasklet_CrossesThemesAndLevels(t *testing.T) {
	ws, root := newWorkspace(t, nil)
	tl, err := builder.NewStudyScenariosTasklet(ws, &config.StudyConfig{CarbonCapLevels: []int{0, 50}}, map[string]string{
		"themes": "reserves_10,reserves_10_sparse",
	})
	require.NoError(t, err)

	se := &model.StepExecution{}
	status, err := tl.Execute(context.Background(), se)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)

	list, err := scenario.Read(filepath.Join(root, scenario.CarbonCapFile))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"carbon_000_reserves_10",
		"carbon_050_reserves_10",
		"carbon_000_reserves_10_sparse",
		"carbon_050_reserves_10_sparse",
	}, list.Names())
	assert.Equal(t, 4, se.WriteCount)

	rows, ok := tl.ExecutionContext().Get(tasklet.RowsWrittenKey)
	require.True(t, ok)
	assert.Equal(t, map[string]int{scenario.CarbonCapFile: 4}, rows)
}

func TestStudyScenariosTasklet_UnknownTheme(t *testing.T) {
	ws, _ := newWorkspace(t, nil)
	_, err := builder.NewStudyScenariosTasklet(ws, &config.StudyConfig{}, map[string]string{"themes": "nope"})
	assert.Error(t, err)
}

func TestSolveTasklet_DisabledIsNoOp(t *testing.T) {
	ws, _ := newWorkspace(t, nil)
	tl, err := builder.NewSolveTasklet(ws, &config.StudyConfig{ToughDayCO2Levels: []string{"000"}}, nil)
	require.NoError(t, err)

	status, err := tl.Execute(context.Background(), &model.StepExecution{})
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusNoOp, status)
}

func TestSolveTasklet_EnabledWithoutCommand(t *testing.T) {
	ws, _ := newWorkspace(t, nil)
	_, err := builder.NewSolveTasklet(ws, &config.StudyConfig{}, map[string]string{"enabled": "true"})
	assert.Error(t, err)
}

func TestHorizonsTasklet_UnknownVariant(t *testing.T) {
	ws, _ := newWorkspace(t, nil)
	_, err := builder.NewHorizonsTasklet(ws, &config.NewConfig().SwitchPrep.Study, map[string]string{"variants": "weekly"})
	assert.Error(t, err)
}

// horizonInputs has three five-year periods sampled by one day each, weighted
// to represent 8766 hours a year.
func horizonInputs(dayWeight2048 string) map[string]string {
	return map[string]string{
		"inputs_updated/financials.csv":              "base_financial_year,interest_rate,discount_rate\n2022,0.05,0.05\n",
		"inputs_updated/gen_info.csv":                "GENERATION_PROJECT,gen_tech\np1,Coal\n",
		"inputs_updated/gen_build_predetermined.csv": "GENERATION_PROJECT,build_year,build_gen_predetermined\np1,2010,100\n",
		"inputs_updated/load_zones.csv":              "LOAD_ZONE\nz1\n",
		"inputs_updated/fuels.csv":                   "fuel,co2_intensity\nCoal,0.09\n",
		"inputs_updated/modules.txt":                 "switch_model\n",
		"inputs_updated/periods.csv": "INVESTMENT_PERIOD,period_start,period_end\n" +
			"2028,2028,2032\n2038,2038,2042\n2048,2048,2052\n",
		"inputs_updated/timeseries.csv": "TIMESERIES,ts_period,ts_duration_of_tp,ts_num_tps,ts_scale_to_period\n" +
			"2030.01,2028,24,1,1826.25\n2040.01,2038,24,1,1826.25\n2050.01,2048,24,1," + dayWeight2048 + "\n",
		"inputs_updated/timepoints.csv": "timepoint_id,timestamp,timeseries\n" +
			"2030.01.00,2030010100,2030.01\n2040.01.00,2040010100,2040.01\n2050.01.00,2050010100,2050.01\n",
		"inputs_updated/carbon_policies.csv": "period,carbon_cap_tco2_per_yr\n2028,100\n2038,75\n2048,50\n",
		"inputs_updated/fuel_cost.csv":       "load_zone,fuel,period,fuel_cost\nz1,Coal,2028,2\nz1,Coal,2038,2\nz1,Coal,2048,3\n",
		"inputs_updated/gen_build_costs.csv": "GENERATION_PROJECT,build_year,gen_overnight_cost\np1,2010,1\np1,2028,2\np1,2048,3\n",
		"inputs_updated/loads.csv": "LOAD_ZONE,TIMEPOINT,zone_demand_mw\n" +
			"z1,2030.01.00,10\nz1,2040.01.00,11\nz1,2050.01.00,12\n",
		"inputs_updated/variable_capacity_factors.csv": "GENERATION_PROJECT,timepoint,gen_max_capacity_factor\n" +
			"p2,2030.01.00,0.3\np2,2050.01.00,0.4\n",
	}
}

func hoursStudy() *config.StudyConfig {
	study := &config.NewConfig().SwitchPrep.Study
	study.HoursPerYear = 8766
	study.PeriodHoursTolerance = 1e-9
	return study
}

func TestHorizonsTasklet_KeepsPeriodHours(t *testing.T) {
	ws, root := newWorkspace(t, horizonInputs("1826.25"))
	tl, err := builder.NewHorizonsTasklet(ws, hoursStudy(), map[string]string{"variants": "extended,sparse"})
	require.NoError(t, err)

	se := &model.StepExecution{}
	status, err := tl.Execute(context.Background(), se)
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)
	assert.FileExists(t, filepath.Join(root, "inputs_extended", "timeseries.csv"))
	assert.FileExists(t, filepath.Join(root, "inputs_sparse", "timeseries.csv"))
}

func TestHorizonsTasklet_RejectsMisweightedPeriod(t *testing.T) {
	ws, _ := newWorkspace(t, horizonInputs("1000"))
	tl, err := builder.NewHorizonsTasklet(ws, hoursStudy(), map[string]string{"variants": "sparse"})
	require.NoError(t, err)

	status, err := tl.Execute(context.Background(), &model.StepExecution{})
	require.Error(t, err)
	assert.Equal(t, model.ExitStatusFailed, status)
	assert.ErrorIs(t, err, exception.ErrInvariantViolation)
	assert.Contains(t, err.Error(), "period 2048")
}

// reserveInputs is one ten-year period sampled by two days of two
// timepoints, plus the energy sources of the 000 diagnostic run.
func reserveInputs(dayWeight string) map[string]string {
	return map[string]string{
		"inputs_extended/modules.txt": "switch_model\n" + modulelist.PlanningReserves + "\n",
		"inputs_extended/periods.csv": "INVESTMENT_PERIOD,period_start,period_end\n2048,2048,2057\n",
		"inputs_extended/timeseries.csv": "TIMESERIES,ts_period,ts_duration_of_tp,ts_num_tps,ts_scale_to_period\n" +
			"2050.01.04,2048,12,2,1825\n2050.07.15,2048,12,2," + dayWeight + "\n",
		"inputs_extended/timepoints.csv": "timepoint_id,timestamp,timeseries\n" +
			"2050.01.04.00,2050-01-04_00:00,2050.01.04\n2050.01.04.12,2050-01-04_12:00,2050.01.04\n" +
			"2050.07.15.00,2050-07-15_00:00,2050.07.15\n2050.07.15.12,2050-07-15_12:00,2050.07.15\n",
		"inputs_extended/loads.csv":                     "LOAD_ZONE,TIMEPOINT,zone_demand_mw\nz1,2050.01.04.00,100\nz1,2050.07.15.00,200\n",
		"inputs_extended/variable_capacity_factors.csv": "GENERATION_PROJECT,timepoint,gen_max_capacity_factor\nw1,2050.07.15.12,0.5\n",
		"out_tough_days/carbon_000_spin_only/energy_sources_000.csv": "load_zone,period,timepoint_label,zone_demand_mw,marginal_cost\n" +
			"z1,2048,2050-01-04_00:00,100,10\nz1,2048,2050-07-15_00:00,200,40\n",
	}
}

func reserveTasklet(t *testing.T, ws *local.Workspace) *builder.ToughDayReservesTasklet {
	t.Helper()
	study := hoursStudy()
	study.HoursPerYear = 8760
	tl, err := builder.NewToughDayReservesTasklet(ws, study, map[string]string{"levels": "000", "bases": "inputs_extended"})
	require.NoError(t, err)
	return tl
}

func TestToughDayReservesTasklet_KeepsPeriodHours(t *testing.T) {
	ws, root := newWorkspace(t, reserveInputs("1825"))
	status, err := reserveTasklet(t, ws).Execute(context.Background(), &model.StepExecution{})
	require.NoError(t, err)
	assert.Equal(t, model.ExitStatusCompleted, status)

	sel, err := table.Read(filepath.Join(root, filepath.FromSlash(builder.SelectionFile)))
	require.NoError(t, err)
	require.Equal(t, 1, sel.Len())
	assert.Equal(t, "2050.07.15", sel.Get(0, "timeseries"))
	assert.FileExists(t, filepath.Join(root, "inputs_extended_reserves", "timeseries.csv"))
}

func TestToughDayReservesTasklet_RejectsMisweightedPeriod(t *testing.T) {
	ws, _ := newWorkspace(t, reserveInputs("1000"))
	status, err := reserveTasklet(t, ws).Execute(context.Background(), &model.StepExecution{})
	require.Error(t, err)
	assert.Equal(t, model.ExitStatusFailed, status)
	assert.ErrorIs(t, err, exception.ErrInvariantViolation)
}
