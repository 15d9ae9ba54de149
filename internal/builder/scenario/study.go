package scenario

import (
	"fmt"

	"github.com/tigerroll/switchprep/internal/builder/modulelist"
	"github.com/tigerroll/switchprep/internal/builder/toughdays"
)

// File names of the generated lists.
const (
	CarbonCapFile         = "scenarios_carbon_cap.txt"
	FindExpensiveDaysFile = "scenarios_find_expensive_days.txt"
)

// Theme is a family of scenarios sharing inputs and extra flags.
type Theme struct {
	Name      string
	InputsDir string
	Extra     string
}

// StudyThemes are the themes crossed with every carbon cap level.
var StudyThemes = []Theme{
	{Name: "reserves_10", InputsDir: "inputs_extended_reserves", Extra: "--input-alias loads.csv=loads.res10.csv"},
	{Name: "reserves_10_sparse", InputsDir: "inputs_sparse_reserves"},
	{
		Name:      "reserves_10_no_ccs_h2",
		InputsDir: "inputs_extended_reserves",
		Extra: "--module-list inputs_extended_reserves/modules.no_ccs_h2.txt " +
			"--input-aliases gen_build_costs.csv=gen_build_costs.no_ccs_h2.csv gen_info.csv=gen_info.no_ccs_h2.csv",
	},
	{
		Name:      "reserves_10_no_ccs",
		InputsDir: "inputs_extended_reserves",
		Extra: "--input-aliases gen_build_costs.csv=gen_build_costs.no_ccs.csv gen_info.csv=gen_info.no_ccs.csv " +
			"gen_retrofits.csv=gen_retrofits.no_ccs.csv",
	},
	{Name: "reserves_20", InputsDir: "inputs_extended_reserves", Extra: "--input-alias loads.csv=loads.res20.csv"},
	{Name: "reserves_30", InputsDir: "inputs_extended_reserves", Extra: "--input-alias loads.csv=loads.res30.csv"},
	{
		Name:      "spin_only",
		InputsDir: "inputs_extended",
		Extra:     "--exclude-module " + modulelist.PlanningReserves + " --include-module spinning_reserves_35",
	},
}

// CapLabel formats a cap level as used in file and scenario names, e.g. 5 -> "005".
func CapLabel(level int) string { return fmt.Sprintf("%03d", level) }

// CarbonPoliciesFile is the carbon policy table written for a cap level.
func CarbonPoliciesFile(label string) string {
	return fmt.Sprintf("carbon_policies_%s.csv", label)
}

// CarbonCapList crosses themes with cap levels, theme-major.
func CarbonCapList(themes []Theme, levels []int) (List, error) {
	var out List
	for _, t := range themes {
		for _, lvl := range levels {
			label := CapLabel(lvl)
			name := fmt.Sprintf("carbon_%s_%s", label, t.Name)
			d, err := New(
				FlagName, name,
				FlagInputsDir, t.InputsDir,
				FlagOutputsDir, "out_carbon_cap/"+name,
				FlagInputAlias, "carbon_policies.csv="+CarbonPoliciesFile(label),
				t.Extra,
			)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
	}
	return out, out.Validate()
}

// ToughDayList has one diagnostic run per CO2 level on the extended inputs,
// with planning reserves replaced by the 3+5 spinning reserve rule.
func ToughDayList(inputsDir string, levels []string) (List, error) {
	var out List
	for _, lvl := range levels {
		d, err := New(
			FlagName, lvl,
			FlagInputAlias, "carbon_policies.csv="+CarbonPoliciesFile(lvl),
			FlagOutputsDir, toughdays.OutputsDir(lvl),
			FlagInputsDir, inputsDir,
			FlagExcludeModule, modulelist.PlanningReserves,
			FlagIncludeModule, modulelist.SpinningReserves35,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, out.Validate()
}
