package technology

import (
	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

// FuelCellTech is the gen_tech of the synthesized fuel cells.
const FuelCellTech = "Fuel_Cell"

// Hydrogen is the energy source name for hydrogen-fired projects.
const Hydrogen = "Hydrogen"

// DefaultReferenceBattery supplies connection cost and outage rates for fuel cells.
const DefaultReferenceBattery = "Anhui-Battery_Storage-11177"

// fuelCellMinLoadFraction keeps fuel cells providing reserves from running without hydrogen.
const fuelCellMinLoadFraction = 0.03

// Tables is the set of solver tables the technology steps rewrite.
type Tables struct {
	GenInfo    *table.Table
	BuildCosts *table.Table
	FuelCost   *table.Table
	Fuels      *table.Table
}

// AddFuelCells adds a hydrogen fuel cell project in every load zone, with
// build costs for every investment period, a zero hydrogen fuel cost and a
// zero-carbon Hydrogen fuel.
func AddFuelCells(in Tables, loadZones, periods *table.Table, h HydrogenParams, referenceBattery string) (Tables, error) {
	if err := loadZones.RequireColumns("LOAD_ZONE"); err != nil {
		return Tables{}, err
	}
	if err := periods.RequireColumns("INVESTMENT_PERIOD"); err != nil {
		return Tables{}, err
	}
	if err := in.GenInfo.RequireColumns("GENERATION_PROJECT"); err != nil {
		return Tables{}, err
	}

	battery := -1
	for i := 0; i < in.GenInfo.Len(); i++ {
		if in.GenInfo.Get(i, "GENERATION_PROJECT") == referenceBattery {
			battery = i
			break
		}
	}
	if battery < 0 {
		return Tables{}, exception.MissingInput(moduleName, "gen_info.csv project "+referenceBattery, nil)
	}

	zones := loadZones.Strings("LOAD_ZONE")
	genInfo := in.GenInfo.Clone()
	newCosts := table.New("GENERATION_PROJECT", "gen_overnight_cost", "gen_fixed_om")
	newFuelCost := table.New("load_zone", "fuel", "fuel_cost")
	for _, z := range zones {
		project := z + "_Fuel_Cell"
		genInfo.Append(map[string]string{
			"GENERATION_PROJECT":                project,
			"gen_tech":                          FuelCellTech,
			"gen_energy_source":                 Hydrogen,
			"gen_load_zone":                     z,
			"gen_max_age":                       table.FormatFloat(h.FuelCellLifeYears),
			"gen_is_variable":                   table.FormatBool(false),
			"gen_is_baseload":                   table.FormatBool(false),
			"gen_can_provide_spinning_reserves": table.FormatBool(true),
			"gen_full_load_heat_rate":           table.FormatFloat(HydrogenMMBtuPerKg / h.FuelCellMWhPerKg),
			"gen_variable_om":                   table.FormatFloat(h.FuelCellVariableCostPerMWh),
			"gen_connect_cost_per_mw":           in.GenInfo.Get(battery, "gen_connect_cost_per_mw"),
			"gen_scheduled_outage_rate":         in.GenInfo.Get(battery, "gen_scheduled_outage_rate"),
			"gen_forced_outage_rate":            in.GenInfo.Get(battery, "gen_forced_outage_rate"),
			"gen_is_cogen":                      table.FormatBool(false),
			"gen_min_load_fraction":             table.FormatFloat(fuelCellMinLoadFraction),
		})
		newCosts.Append(map[string]string{
			"GENERATION_PROJECT": project,
			"gen_overnight_cost": table.FormatFloat(h.FuelCellCapitalCostPerMW),
			"gen_fixed_om":       table.FormatFloat(h.FuelCellFixedCostPerMWYear),
		})
		newFuelCost.Append(map[string]string{"load_zone": z, "fuel": Hydrogen, "fuel_cost": "0"})
	}

	buildYears := table.New("build_year")
	investPeriods := table.New("period")
	for _, p := range periods.Strings("INVESTMENT_PERIOD") {
		buildYears.Append(map[string]string{"build_year": p})
		investPeriods.Append(map[string]string{"period": p})
	}

	fuels := table.New("fuel", "co2_intensity")
	fuels.Append(map[string]string{"fuel": Hydrogen, "co2_intensity": "0"})

	return Tables{
		GenInfo:    genInfo,
		BuildCosts: table.Concat(in.BuildCosts, newCosts.CrossJoin(buildYears)),
		FuelCost:   table.Concat(in.FuelCost, newFuelCost.CrossJoin(investPeriods)),
		Fuels:      table.Concat(in.Fuels, fuels),
	}, nil
}
