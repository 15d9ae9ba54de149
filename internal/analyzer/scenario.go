package analyzer

import (
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

// Key indexes a per-period, per-category quantity.
type Key struct {
	Period   int
	Category string
}

// ScenarioResult is the reporting view of one solved scenario.
type ScenarioResult struct {
	Dir string
	// CapacityGW and DispatchTWh are summed by period and category.
	CapacityGW  map[Key]float64
	DispatchTWh map[Key]float64
	// Categories holds every category in first-seen order.
	Categories []string
	// CarbonCost is the marginal carbon cost in $/tCO2 per period.
	CarbonCost map[int]float64
	// Emissions are in tCO2 per year.
	Emissions map[int]float64
	// LCOE is in $/MWh per year.
	LCOE map[int]float64
}

// ReadScenario reads the outputs of a solved scenario directory.
func ReadScenario(dir string) (*ScenarioResult, error) {
	r := &ScenarioResult{
		Dir:         dir,
		CapacityGW:  make(map[Key]float64),
		DispatchTWh: make(map[Key]float64),
		CarbonCost:  make(map[int]float64),
		Emissions:   make(map[int]float64),
		LCOE:        make(map[int]float64),
	}
	seen := make(map[string]bool)
	note := func(cat string) {
		if !seen[cat] {
			seen[cat] = true
			r.Categories = append(r.Categories, cat)
		}
	}

	capacity, err := table.Read(filepath.Join(dir, "gen_cap.csv"))
	if err != nil {
		return nil, err
	}
	if err := sumByCategory(capacity, "PERIOD", "GenCapacity", 1000, r.CapacityGW, note); err != nil {
		return nil, exception.NewBatchErrorf(moduleName, "gen_cap.csv in '%s'", dir, err)
	}

	dis, err := table.Read(filepath.Join(dir, "dispatch_annual_summary.csv"))
	if err != nil {
		return nil, err
	}
	periodCol := "period"
	if _, ok := dis.Column(periodCol); !ok {
		periodCol = "PERIOD"
	}
	if err := sumByCategory(dis, periodCol, "Energy_GWh_typical_yr", 1000, r.DispatchTWh, note); err != nil {
		return nil, exception.NewBatchErrorf(moduleName, "dispatch_annual_summary.csv in '%s'", dir, err)
	}

	if err := r.readEmissions(filepath.Join(dir, "emissions.csv")); err != nil {
		return nil, err
	}
	if err := r.readSummary(dir); err != nil {
		return nil, err
	}
	return r, nil
}

func sumByCategory(t *table.Table, periodCol, valueCol string, divisor float64, into map[Key]float64, note func(string)) error {
	if err := t.RequireColumns(periodCol, "gen_tech", "gen_energy_source", valueCol); err != nil {
		return err
	}
	techs := t.Strings("gen_tech")
	sources := t.Strings("gen_energy_source")
	for i := 0; i < t.Len(); i++ {
		p, err := strconv.Atoi(strings.TrimSpace(t.Get(i, periodCol)))
		if err != nil {
			return exception.SchemaMismatch(moduleName, "row %d: period '%s' is not an integer", i, t.Get(i, periodCol))
		}
		v, ok := t.Float(i, valueCol)
		if !ok {
			continue
		}
		cat := AssignCategory(techs[i], sources[i])
		note(cat)
		into[Key{p, cat}] += v / divisor
	}
	return nil
}

// readEmissions takes the marginal cost from the cap dual, whose sign is
// flipped, and falls back to the carbon price where no cap was set.
func (r *ScenarioResult) readEmissions(path string) error {
	t, err := table.Read(path)
	if err != nil {
		return err
	}
	if err := t.RequireColumns("PERIOD", "AnnualEmissions_tCO2_per_yr"); err != nil {
		return err
	}
	for i := 0; i < t.Len(); i++ {
		p, err := strconv.Atoi(strings.TrimSpace(t.Get(i, "PERIOD")))
		if err != nil {
			return exception.SchemaMismatch(moduleName, "%s row %d: period '%s' is not an integer", path, i, t.Get(i, "PERIOD"))
		}
		cost := math.NaN()
		if v, ok := t.Float(i, "carbon_cap_dual_future_dollar_per_tco2"); ok {
			cost = -v
		} else if v, ok := t.Float(i, "carbon_cost_dollar_per_tco2"); ok {
			cost = v
		}
		r.CarbonCost[p] = cost
		if v, ok := t.Float(i, "AnnualEmissions_tCO2_per_yr"); ok {
			r.Emissions[p] = v
		} else {
			r.Emissions[p] = math.NaN()
		}
	}
	return nil
}

// readSummary uses the cost_per_kwh_{year} columns of the first summary_*.csv.
func (r *ScenarioResult) readSummary(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "summary_*.csv"))
	if err != nil {
		return exception.NewBatchErrorf(moduleName, "failed to list summary files in '%s'", dir, err)
	}
	if len(matches) == 0 {
		return exception.MissingInput(moduleName, filepath.Join(dir, "summary_*.csv"), nil)
	}
	sort.Strings(matches)
	t, err := table.Read(matches[0])
	if err != nil {
		return err
	}
	if t.Len() == 0 {
		return exception.SchemaMismatch(moduleName, "%s has no rows", matches[0])
	}
	for _, c := range t.Header() {
		if !strings.HasPrefix(c, "cost_per_kwh_") || len(c) < 4 {
			continue
		}
		year, err := strconv.Atoi(c[len(c)-4:])
		if err != nil {
			return exception.SchemaMismatch(moduleName, "%s: column '%s' has no year suffix", matches[0], c)
		}
		v, ok := t.Float(0, c)
		if !ok {
			v = math.NaN()
		}
		r.LCOE[year] = v * 1000
	}
	return nil
}

// Periods returns the periods with emissions, ascending.
func (r *ScenarioResult) Periods() []int {
	out := make([]int, 0, len(r.Emissions))
	for p := range r.Emissions {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// CapacityAt returns capacity by category in one period.
func (r *ScenarioResult) CapacityAt(period int) map[string]float64 {
	return at(r.CapacityGW, period)
}

// DispatchAt returns dispatch by category in one period.
func (r *ScenarioResult) DispatchAt(period int) map[string]float64 {
	return at(r.DispatchTWh, period)
}

func at(m map[Key]float64, period int) map[string]float64 {
	out := make(map[string]float64)
	for k, v := range m {
		if k.Period == period {
			out[k.Category] = v
		}
	}
	return out
}

// lookup returns m[k] or NaN.
func lookup(m map[int]float64, k int) float64 {
	if v, ok := m[k]; ok {
		return v
	}
	return math.NaN()
}
