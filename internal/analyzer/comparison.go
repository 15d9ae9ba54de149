package analyzer

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

// Entry labels a scenario directory.
type Entry struct {
	Label    string
	Scenario string
}

// NamedList is an ordered set of labelled scenarios compared side by side.
type NamedList struct {
	Name    string
	Entries []Entry
}

// StudyComparisons walks from the original model to the final one, then
// across heat wave reserve margins.
var StudyComparisons = []NamedList{
	{Name: "stepwise", Entries: []Entry{
		{"original", "step_0_original"},
		{"social discount rate", "step_1_discount_rate"},
		{"ATB 2023 costs and life", "step_2_atb_costs_and_life"},
		{"allow early retirement", "step_3_early_retire"},
		{"allow hydrogen", "step_4_h2"},
		{"allow CCS", "step_5_ccs"},
		{"10-year intervals", "step_6_sparse_calendar"},
		{"extend to 2070", "step_7_extended_calendar"},
		{"planning -> spinning", "step_8_spin_only"},
		{"10% heat wave reserves", "step_9_tough_day_reserves_10"},
	}},
	{Name: "reserves", Entries: []Entry{
		{"0% heat wave reserves", "step_8_spin_only"},
		{"10% heat wave reserves", "step_9_tough_day_reserves_10"},
		{"20% heat wave reserves", "step_10_tough_day_reserves_20"},
		{"30% heat wave reserves", "step_11_tough_day_reserves_30"},
	}},
}

// StudySummaryScenarios are the scenarios of the per-period summary, and
// StudySummaryNames their display names in presentation order.
var (
	StudySummaryScenarios = []string{
		"step_9_tough_day_reserves_10",
		"step_9a_no_ccs",
		"step_9aa_no_ccs_no_h2",
		"step_0_original",
	}
	StudySummaryNames = []Entry{
		{"Original Switch-China", "step_0_original"},
		{"Updated economics and reserves", "step_9aa_no_ccs_no_h2"},
		{"Add hydrogen options", "step_9a_no_ccs"},
		{"Add CCS option", "step_9_tough_day_reserves_10"},
	}
	StudySummaryYears = []int{2028, 2038, 2048}
)

// Comparison holds one period of several scenarios.
type Comparison struct {
	Name       string
	Period     int
	Entries    []Entry
	Categories []string
	// Capacity and Dispatch are keyed by label, then category. Categories
	// a scenario lacks are zero.
	Capacity    map[string]map[string]float64
	Dispatch    map[string]map[string]float64
	EmissionsMt map[string]float64
	LCOE        map[string]float64
}

// Compare reads every scenario of list under group.
func Compare(group string, list NamedList, period int) (*Comparison, error) {
	c := &Comparison{
		Name:        list.Name,
		Period:      period,
		Entries:     list.Entries,
		Capacity:    make(map[string]map[string]float64),
		Dispatch:    make(map[string]map[string]float64),
		EmissionsMt: make(map[string]float64),
		LCOE:        make(map[string]float64),
	}
	var seen []string
	for _, e := range list.Entries {
		r, err := ReadScenario(filepath.Join(group, e.Scenario))
		if err != nil {
			return nil, exception.NewBatchErrorf(moduleName, "comparison %s, scenario '%s'", list.Name, e.Label, err)
		}
		c.Capacity[e.Label] = r.CapacityAt(period)
		c.Dispatch[e.Label] = r.DispatchAt(period)
		c.EmissionsMt[e.Label] = lookup(r.Emissions, period) / 1e6
		c.LCOE[e.Label] = lookup(r.LCOE, period)
		seen = append(seen, r.Categories...)
	}
	c.Categories = OrderCategories(seen)
	return c, nil
}

// Table has one row per labelled scenario.
func (c *Comparison) Table() *table.Table {
	header := []string{"label", "scenario", "emissions_mt_co2", "lcoe_dollar_per_mwh"}
	for _, cat := range c.Categories {
		header = append(header, "capacity_gw "+cat)
	}
	for _, cat := range c.Categories {
		header = append(header, "energy_twh "+cat)
	}
	t := table.New(header...)
	for _, e := range c.Entries {
		rec := map[string]string{
			"label":               e.Label,
			"scenario":            e.Scenario,
			"emissions_mt_co2":    table.FormatFloat(c.EmissionsMt[e.Label]),
			"lcoe_dollar_per_mwh": table.FormatFloat(c.LCOE[e.Label]),
		}
		for _, cat := range c.Categories {
			rec["capacity_gw "+cat] = table.FormatFloat(c.Capacity[e.Label][cat])
			rec["energy_twh "+cat] = table.FormatFloat(c.Dispatch[e.Label][cat])
		}
		t.Append(rec)
	}
	return t
}

// Records flattens the comparison for export.
func (c *Comparison) Records() []Record {
	report := "comparison_" + c.Name
	var out []Record
	for _, e := range c.Entries {
		for _, cat := range c.Categories {
			out = append(out,
				NewRecord(report, e.Label, c.Period, cat, MetricCapacity, c.Capacity[e.Label][cat]),
				NewRecord(report, e.Label, c.Period, cat, MetricEnergy, c.Dispatch[e.Label][cat]))
		}
		out = append(out,
			NewRecord(report, e.Label, c.Period, "", MetricEmissions, c.EmissionsMt[e.Label]),
			NewRecord(report, e.Label, c.Period, "", MetricLCOE, c.LCOE[e.Label]))
	}
	return out
}

// StepwiseSummary has one row per scenario and, for each year, emissions in
// Mt CO2 and LCOE in $/MWh. Scenarios named in renames come first, in that
// order and under the new name; the rest follow under their own names.
func StepwiseSummary(group string, scenarios []string, renames []Entry, years []int) (*table.Table, []Record, error) {
	results := make(map[string]*ScenarioResult, len(scenarios))
	for _, s := range scenarios {
		r, err := ReadScenario(filepath.Join(group, s))
		if err != nil {
			return nil, nil, exception.NewBatchErrorf(moduleName, "stepwise summary, scenario '%s'", s, err)
		}
		results[s] = r
	}

	var order []Entry
	placed := make(map[string]bool)
	for _, e := range renames {
		if _, ok := results[e.Scenario]; ok && !placed[e.Scenario] {
			order = append(order, e)
			placed[e.Scenario] = true
		}
	}
	for _, s := range scenarios {
		if !placed[s] {
			order = append(order, Entry{Label: s, Scenario: s})
			placed[s] = true
		}
	}

	header := []string{"scenario"}
	for _, y := range years {
		header = append(header, fmt.Sprintf("%d CO2", y))
	}
	for _, y := range years {
		header = append(header, fmt.Sprintf("%d LCOE", y))
	}
	t := table.New(header...)
	var records []Record
	for _, e := range order {
		r := results[e.Scenario]
		rec := map[string]string{"scenario": e.Label}
		for _, y := range years {
			co2 := lookup(r.Emissions, y) / 1e6
			lcoe := lookup(r.LCOE, y)
			rec[fmt.Sprintf("%d CO2", y)] = table.FormatFloat(co2)
			rec[fmt.Sprintf("%d LCOE", y)] = table.FormatFloat(lcoe)
			records = append(records,
				NewRecord("stepwise_summary", e.Label, y, "", MetricEmissions, co2),
				NewRecord("stepwise_summary", e.Label, y, "", MetricLCOE, lcoe))
		}
		t.Append(rec)
	}
	return t, records, nil
}

// Trajectory flattens every period from first to last of one scenario:
// capacity and energy by category, emissions (Mt), carbon cost and LCOE.
func Trajectory(r *ScenarioResult, label string, first, last int) []Record {
	report := "trajectory"
	cats := OrderCategories(r.Categories)
	var out []Record
	for _, p := range r.Periods() {
		if p < first || p > last {
			continue
		}
		capacity, dispatch := r.CapacityAt(p), r.DispatchAt(p)
		for _, cat := range cats {
			out = append(out,
				NewRecord(report, label, p, cat, MetricCapacity, capacity[cat]),
				NewRecord(report, label, p, cat, MetricEnergy, dispatch[cat]))
		}
		out = append(out,
			NewRecord(report, label, p, "", MetricEmissions, lookup(r.Emissions, p)/1e6),
			NewRecord(report, label, p, "", MetricCarbonCost, lookup(r.CarbonCost, p)))
		if v := lookup(r.LCOE, p); !math.IsNaN(v) {
			out = append(out, NewRecord(report, label, p, "", MetricLCOE, v))
		}
	}
	return out
}
