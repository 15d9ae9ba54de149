package atb_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tigerroll/switchprep/internal/builder/atb"
	"github.com/tigerroll/switchprep/internal/builder/currency"
	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheets := map[string][][]interface{}{
		"Capital Cost kW": {
			{"Technology", "Case", 2021, 2028, 2038},
			{"Central_PV", "Moderate", 1.5, 1.0, 0.8},
			{"Battery_Storage", "Moderate", 0.4, 0.3, 0.2},
			{"Geothermal", "Moderate", 9, 9, 9},
		},
		"Fixed O&M": {
			{"Technology", 2028},
			{"Central_PV", 0.02},
		},
		"Capital Cost kWh": {
			{"Technology", 2028},
			{"Battery_Storage", 0.25},
		},
	}
	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			r := row
			require.NoError(t, f.SetSheetRow(name, cell, &r))
		}
	}
	path := filepath.Join(t.TempDir(), "ATB 2023 costs.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadAndApply(t *testing.T) {
	costs, err := atb.Read(writeWorkbook(t), currency.Identity.Compose(1000))
	require.NoError(t, err)
	assert.Equal(t, []string{"Battery_Bulk", "CentralTrackingPV"}, costs.Technologies())

	gi, err := table.Parse(strings.NewReader("GENERATION_PROJECT,gen_tech\npv1,CentralTrackingPV\nbat1,Battery_Bulk\ncoal1,Coal_ST\n"))
	require.NoError(t, err)
	bc, err := table.Parse(strings.NewReader(
		"GENERATION_PROJECT,build_year,gen_overnight_cost,gen_fixed_om,gen_storage_energy_overnight_cost\n" +
			"pv1,2028,5,6,.\n" +
			"pv1,2048,5,6,.\n" +
			"bat1,2038,7,8,9\n" +
			"coal1,2028,10,11,.\n"))
	require.NoError(t, err)

	n, err := costs.Apply(bc, gi)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, "1000", bc.Get(0, "gen_overnight_cost"))
	assert.Equal(t, "20", bc.Get(0, "gen_fixed_om"))
	assert.True(t, bc.IsNull(0, "gen_storage_energy_overnight_cost"))
	assert.Equal(t, "5", bc.Get(1, "gen_overnight_cost"))
	assert.Equal(t, "200", bc.Get(2, "gen_overnight_cost"))
	assert.Equal(t, "8", bc.Get(2, "gen_fixed_om"))
	assert.Equal(t, "9", bc.Get(2, "gen_storage_energy_overnight_cost"))
	assert.Equal(t, "10", bc.Get(3, "gen_overnight_cost"))
}

func TestRead_Missing(t *testing.T) {
	_, err := atb.Read(filepath.Join(t.TempDir(), "none.xlsx"), atb.Scale)
	assert.True(t, errors.Is(err, exception.ErrMissingInput))
}

func TestScale(t *testing.T) {
	assert.InDelta(t, 1000*127.215/118.866, float64(atb.Scale), 1e-9)
}
