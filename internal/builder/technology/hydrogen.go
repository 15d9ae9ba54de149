// Package technology synthesizes generation projects for new technologies
// (hydrogen fuel cells, coal retrofits) and checks the project tables.
package technology

import (
	"github.com/tigerroll/switchprep/internal/builder/currency"
	"github.com/tigerroll/switchprep/internal/table"
)

const moduleName = "technology"

// H2 lower heating value, MJ/kg.
const h2LHVMJPerKg = 120.21

// H2MWhPerKg is the energy content of hydrogen.
const H2MWhPerKg = h2LHVMJPerKg / 3600

// HydrogenMMBtuPerKg is used to express fuel cell heat rates in MMBtu/MWh.
const HydrogenMMBtuPerKg = 0.113745

// HydrogenParams is the one-row hydrogen.csv record. Costs are in 2010 dollars.
type HydrogenParams struct {
	ElectrolyzerCapitalCostPerMW     float64
	ElectrolyzerFixedCostPerMWYear   float64
	ElectrolyzerVariableCostPerKg    float64
	ElectrolyzerKgPerMWh             float64
	ElectrolyzerLifeYears            float64
	FuelCellCapitalCostPerMW         float64
	FuelCellFixedCostPerMWYear       float64
	FuelCellVariableCostPerMWh       float64
	FuelCellMWhPerKg                 float64
	FuelCellLifeYears                float64
	LiquefierCapitalCostPerKgPerHour float64
	LiquefierFixedCostPerKgHourYear  float64
	LiquefierVariableCostPerKg       float64
	LiquefierMWhPerKg                float64
	LiquefierLifeYears               float64
	TankCapitalCostPerKg             float64
	TankLifeYears                    float64
}

// electrolyzerMW is the output of a 50,000 kg/day plant.
func electrolyzerMW(kgPerMWh float64) float64 {
	return 50000.0 * (1.0 / kgPerMWh) * (1.0 / 24.0)
}

// CurrentHydrogen returns the present-day hydrogen economics.
func CurrentHydrogen() HydrogenParams {
	i1995 := currency.MustBetween(1995, 2010)
	i2007 := currency.MustBetween(2007, 2010)
	i2008 := currency.MustBetween(2008, 2010)
	kgPerMWh := 1000.0 / 54.3
	mw := electrolyzerMW(kgPerMWh)
	return HydrogenParams{
		ElectrolyzerCapitalCostPerMW:     i2007.Apply(144641663) / mw,
		ElectrolyzerFixedCostPerMWYear:   i2007.Apply(7134560.0) / mw,
		ElectrolyzerVariableCostPerKg:    0,
		ElectrolyzerKgPerMWh:             kgPerMWh,
		ElectrolyzerLifeYears:            40,
		FuelCellCapitalCostPerMW:         i2008.Apply(813000),
		FuelCellFixedCostPerMWYear:       i2008.Apply(27000),
		FuelCellVariableCostPerMWh:       0,
		FuelCellMWhPerKg:                 0.53 * H2MWhPerKg,
		FuelCellLifeYears:                15,
		LiquefierCapitalCostPerKgPerHour: i1995.Apply(25600),
		LiquefierFixedCostPerKgHourYear:  0,
		LiquefierVariableCostPerKg:       0,
		LiquefierMWhPerKg:                10.0 / 1000.0,
		LiquefierLifeYears:               30,
		TankCapitalCostPerKg:             i1995.Apply(18),
		TankLifeYears:                    40,
	}
}

// FutureHydrogen returns the low-cost future economics the study uses.
func FutureHydrogen() HydrogenParams {
	i2007 := currency.MustBetween(2007, 2010)
	i2008 := currency.MustBetween(2008, 2010)
	kgPerMWh := 1000.0 / 50.2
	mw := electrolyzerMW(kgPerMWh)

	p := CurrentHydrogen()
	p.ElectrolyzerCapitalCostPerMW = i2007.Apply(58369966) / mw
	p.ElectrolyzerFixedCostPerMWYear = i2007.Apply(3560447) / mw
	p.ElectrolyzerVariableCostPerKg = 0
	p.ElectrolyzerKgPerMWh = kgPerMWh
	p.ElectrolyzerLifeYears = 40
	p.FuelCellCapitalCostPerMW = i2008.Apply(434000)
	p.FuelCellFixedCostPerMWYear = i2008.Apply(20000)
	p.FuelCellVariableCostPerMWh = 0
	p.FuelCellMWhPerKg = 0.58 * H2MWhPerKg
	p.FuelCellLifeYears = 26
	return p
}

// Table renders the record as the one-row hydrogen.csv.
func (p HydrogenParams) Table() *table.Table {
	fields := []struct {
		name  string
		value float64
	}{
		{"hydrogen_electrolyzer_capital_cost_per_mw", p.ElectrolyzerCapitalCostPerMW},
		{"hydrogen_electrolyzer_fixed_cost_per_mw_year", p.ElectrolyzerFixedCostPerMWYear},
		{"hydrogen_electrolyzer_variable_cost_per_kg", p.ElectrolyzerVariableCostPerKg},
		{"hydrogen_electrolyzer_kg_per_mwh", p.ElectrolyzerKgPerMWh},
		{"hydrogen_electrolyzer_life_years", p.ElectrolyzerLifeYears},
		{"hydrogen_fuel_cell_capital_cost_per_mw", p.FuelCellCapitalCostPerMW},
		{"hydrogen_fuel_cell_fixed_cost_per_mw_year", p.FuelCellFixedCostPerMWYear},
		{"hydrogen_fuel_cell_variable_cost_per_mwh", p.FuelCellVariableCostPerMWh},
		{"hydrogen_fuel_cell_mwh_per_kg", p.FuelCellMWhPerKg},
		{"hydrogen_fuel_cell_life_years", p.FuelCellLifeYears},
		{"hydrogen_liquefier_capital_cost_per_kg_per_hour", p.LiquefierCapitalCostPerKgPerHour},
		{"hydrogen_liquefier_fixed_cost_per_kg_hour_year", p.LiquefierFixedCostPerKgHourYear},
		{"hydrogen_liquefier_variable_cost_per_kg", p.LiquefierVariableCostPerKg},
		{"hydrogen_liquefier_mwh_per_kg", p.LiquefierMWhPerKg},
		{"hydrogen_liquefier_life_years", p.LiquefierLifeYears},
		{"liquid_hydrogen_tank_capital_cost_per_kg", p.TankCapitalCostPerKg},
		{"liquid_hydrogen_tank_life_years", p.TankLifeYears},
	}
	header := make([]string, len(fields))
	record := make(map[string]string, len(fields))
	for i, f := range fields {
		header[i] = f.name
		record[f.name] = table.FormatFloat(f.value)
	}
	t := table.New(header...)
	t.Append(record)
	return t
}
