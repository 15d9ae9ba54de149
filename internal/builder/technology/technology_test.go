package technology_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/switchprep/internal/builder/currency"
	"github.com/tigerroll/switchprep/internal/builder/technology"
	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

func parse(t *testing.T, csv string) *table.Table {
	t.Helper()
	tbl, err := table.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	return tbl
}

const genInfoCSV = "GENERATION_PROJECT,gen_dbid,gen_tech,gen_energy_source,gen_load_zone,gen_variable_om,gen_connect_cost_per_mw,gen_scheduled_outage_rate,gen_forced_outage_rate,gen_min_load_fraction,gen_max_age\n" +
	"Anhui-Battery_Storage-11177,1,Battery_Storage,Electricity,Anhui,0,5000,0.01,0.02,.,15\n" +
	"Anhui-Coal-1,2,Coal_ST,Coal,Anhui,4,6000,0.05,0.06,0.4,40\n" +
	"Hebei-Coal-2,3,Coal_ST,Coal,Hebei,.,6000,0.05,0.06,0.4,40\n" +
	"Hebei-Wind-3,4,OnshoreWind,Wind,Hebei,1,7000,0,0.01,.,25\n"

const genInfoColumns = 11

const buildCostsCSV = "GENERATION_PROJECT,build_year,gen_overnight_cost,gen_fixed_om,gen_storage_energy_overnight_cost\n" +
	"Anhui-Coal-1,2020,900000,1000,.\n" +
	"Anhui-Coal-1,2028,900000,1000,.\n" +
	"Hebei-Coal-2,2028,800000,.,.\n" +
	"Hebei-Wind-3,2028,1200000,30000,.\n"

func TestFutureHydrogen(t *testing.T) {
	h := technology.FutureHydrogen()
	i2007 := 96.162 / 92.638
	mw := 50000.0 / (1000.0 / 50.2) / 24.0

	assert.InDelta(t, 58369966*i2007/mw, h.ElectrolyzerCapitalCostPerMW, 1e-6)
	assert.InDelta(t, 434000*96.162/94.423, h.FuelCellCapitalCostPerMW, 1e-6)
	assert.InDelta(t, 0.58*120.21/3600, h.FuelCellMWhPerKg, 1e-12)
	assert.Equal(t, 26.0, h.FuelCellLifeYears)
	assert.Equal(t, 30.0, h.LiquefierLifeYears)
	assert.InDelta(t, 18*96.162/71.820, h.TankCapitalCostPerKg, 1e-9)

	tbl := h.Table()
	assert.Equal(t, 1, tbl.Len())
	assert.Len(t, tbl.Header(), 17)
	assert.Equal(t, "26", tbl.Get(0, "hydrogen_fuel_cell_life_years"))
}

func TestAddFuelCells(t *testing.T) {
	in := technology.Tables{
		GenInfo:    parse(t, genInfoCSV),
		BuildCosts: parse(t, buildCostsCSV),
		FuelCost:   parse(t, "load_zone,fuel,period,fuel_cost\nAnhui,Coal,2028,3\n"),
		Fuels:      parse(t, "fuel,co2_intensity\nCoal,0.09\n"),
	}
	zones := parse(t, "LOAD_ZONE\nAnhui\nHebei\n")
	periods := parse(t, "INVESTMENT_PERIOD,period_start,period_end\n2028,2026,2030\n2033,2031,2035\n")
	h := technology.FutureHydrogen()

	out, err := technology.AddFuelCells(in, zones, periods, h, technology.DefaultReferenceBattery)
	require.NoError(t, err)

	require.Equal(t, 6, out.GenInfo.Len())
	assert.Equal(t, "Hebei_Fuel_Cell", out.GenInfo.Get(5, "GENERATION_PROJECT"))
	assert.Equal(t, "5000", out.GenInfo.Get(5, "gen_connect_cost_per_mw"))
	assert.Equal(t, "0.03", out.GenInfo.Get(5, "gen_min_load_fraction"))
	assert.Equal(t, "26", out.GenInfo.Get(5, "gen_max_age"))
	assert.Equal(t, genInfoColumns, len(out.GenInfo.Header()))

	assert.Equal(t, 4+4, out.BuildCosts.Len())
	assert.Equal(t, "Anhui_Fuel_Cell", out.BuildCosts.Get(4, "GENERATION_PROJECT"))
	assert.Equal(t, "2033", out.BuildCosts.Get(5, "build_year"))
	assert.True(t, out.BuildCosts.IsNull(5, "gen_storage_energy_overnight_cost"))

	assert.Equal(t, 1+4, out.FuelCost.Len())
	assert.Equal(t, "Hydrogen", out.FuelCost.Get(4, "fuel"))
	assert.Equal(t, "2033", out.FuelCost.Get(4, "period"))
	assert.Equal(t, "0", out.FuelCost.Get(4, "fuel_cost"))

	assert.Equal(t, 2, out.Fuels.Len())

	_, err = technology.AddFuelCells(in, zones, periods, h, "missing-battery")
	assert.True(t, errors.Is(err, exception.ErrMissingInput))
}

func TestAddRetrofits(t *testing.T) {
	gi := parse(t, genInfoCSV)
	bc := parse(t, buildCostsCSV)

	r, err := technology.AddRetrofits(gi, bc, technology.StudyRetrofitCosts)
	require.NoError(t, err)

	require.Equal(t, 4+2+2, r.GenInfo.Len())
	assert.Equal(t, "Anhui-Coal-1_CCS", r.GenInfo.Get(4, "GENERATION_PROJECT"))
	assert.Equal(t, "2_CCS", r.GenInfo.Get(4, "gen_dbid"))
	assert.Equal(t, "Coal_ST_CCS", r.GenInfo.Get(4, "gen_tech"))
	assert.Equal(t, "0.9", r.GenInfo.Get(4, "gen_ccs_capture_efficiency"))
	assert.True(t, r.GenInfo.IsNull(0, "gen_ccs_capture_efficiency"))

	sc := float64(currency.Deflators[currency.SwitchChina])
	atb := float64(currency.Deflators[currency.ATB])
	vom, ok := r.GenInfo.Float(4, "gen_variable_om")
	require.True(t, ok)
	assert.InDelta(t, 4+3*0.2857*sc+3.1120*atb, vom, 1e-9)
	assert.True(t, r.GenInfo.IsNull(5, "gen_variable_om"))

	assert.Equal(t, "Anhui-Coal-1_H2", r.GenInfo.Get(6, "GENERATION_PROJECT"))
	assert.Equal(t, "Hydrogen", r.GenInfo.Get(6, "gen_energy_source"))

	require.Equal(t, 4+2+2, r.BuildCosts.Len())
	assert.Equal(t, "Anhui-Coal-1_CCS", r.BuildCosts.Get(4, "GENERATION_PROJECT"))
	assert.Equal(t, "2028", r.BuildCosts.Get(4, "build_year"))
	oc, _ := r.BuildCosts.Float(4, "gen_overnight_cost")
	assert.InDelta(t, 922000*atb, oc, 1e-6)
	fom, _ := r.BuildCosts.Float(4, "gen_fixed_om")
	assert.InDelta(t, 1000+0.3089*5580*sc+14564*atb, fom, 1e-6)
	assert.Equal(t, "10000", r.BuildCosts.Get(6, "gen_overnight_cost"))
	assert.Equal(t, "1000", r.BuildCosts.Get(6, "gen_fixed_om"))

	require.Equal(t, 4, r.Linkage.Len())
	assert.Equal(t, "Hebei-Coal-2", r.Linkage.Get(1, technology.BaseProjectColumn))
	assert.Equal(t, "Hebei-Coal-2_CCS", r.Linkage.Get(1, technology.RetrofitProjectColumn))

	require.NoError(t, technology.VerifyRetrofitLinkage(r.GenInfo, r.BuildCosts, r.Linkage))
	require.NoError(t, technology.VerifyUniqueProjects(r.GenInfo))
	require.NoError(t, technology.VerifyUniqueBuildCosts(r.BuildCosts))

	noCCS := technology.WithoutKind(r.GenInfo, "GENERATION_PROJECT", technology.CCS)
	assert.Equal(t, 6, noCCS.Len())
	noCCSLinks := technology.WithoutKind(r.Linkage, technology.RetrofitProjectColumn, technology.CCS)
	require.NoError(t, technology.VerifyRetrofitLinkage(noCCS, nil, noCCSLinks))
}

func TestVerifyRetrofitLinkage_Violations(t *testing.T) {
	gi := parse(t, "GENERATION_PROJECT\nA\nA_CCS\nB_H2\n")
	links := parse(t, "base_gen_project,retrofit_gen_project\nA,A_CCS\nA,A_CCS\nC,B_H2\n")

	err := technology.VerifyRetrofitLinkage(gi, nil, links)
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrInvariantViolation))
	assert.Contains(t, err.Error(), "'A_CCS' has 2 linkage rows")
	assert.Contains(t, err.Error(), "base project 'C' does not exist")
}

func TestVerifyUniqueness(t *testing.T) {
	err := technology.VerifyUniqueProjects(parse(t, "GENERATION_PROJECT\nA\nA\n"))
	assert.True(t, errors.Is(err, exception.ErrInvariantViolation))

	err = technology.VerifyUniqueBuildCosts(parse(t, "GENERATION_PROJECT,build_year\nA,2028\nA,2038\nA,2028\n"))
	assert.True(t, errors.Is(err, exception.ErrInvariantViolation))
}

func TestApplyATBLifeAndMinLoad(t *testing.T) {
	gi := parse(t, genInfoCSV)
	n, err := technology.ApplyATBLife(gi, technology.ATBSources, 30, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "30", gi.Get(3, "gen_max_age"))
	assert.Equal(t, "0", gi.Get(3, "gen_variable_om"))

	require.NoError(t, technology.VerifyCoalMinLoad(gi, 0.4))
	gi.Set(2, "gen_min_load_fraction", "0.3")
	err = technology.VerifyCoalMinLoad(gi, 0.4)
	assert.True(t, errors.Is(err, exception.ErrInvariantViolation))
	assert.Contains(t, err.Error(), "Hebei-Coal-2")
	require.NoError(t, technology.VerifyCoalMinLoad(gi, 0))
}
