// Package horizon rebuilds an inputs directory on a different set of
// investment periods: a sparse three-period horizon or an extended one whose
// last real period is copied forward into synthetic future periods.
package horizon

import (
	"context"
	"strconv"
	"strings"

	"github.com/tigerroll/switchprep/internal/builder/inputdir"
	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

const moduleName = "horizon"

// Variant describes one horizon.
type Variant struct {
	Name         string  // Directory suffix, e.g. "extended".
	BasePeriods  []int   // Periods kept from the source.
	ExtraPeriods []int   // Synthetic periods copied from SourcePeriod.
	SourcePeriod int     // Real period that is copied forward.
	SourceTag    string  // Year tag embedded in SourcePeriod identifiers, e.g. "2050".
	TagOffset    int     // Tag year minus period, e.g. 2.
	PeriodYears  int     // Length of each period.
	WeightFactor float64 // Multiplier on ts_scale_to_period for the wider spacing.
}

// Extended covers 2028-2077 in five 10-year periods.
var Extended = Variant{
	Name:         "extended",
	BasePeriods:  []int{2028, 2038, 2048},
	ExtraPeriods: []int{2058, 2068},
	SourcePeriod: 2048,
	SourceTag:    "2050",
	TagOffset:    2,
	PeriodYears:  10,
	WeightFactor: 2,
}

// Sparse covers 2028-2057 in three 10-year periods.
var Sparse = Variant{
	Name:         "sparse",
	BasePeriods:  []int{2028, 2038, 2048},
	SourcePeriod: 2048,
	SourceTag:    "2050",
	TagOffset:    2,
	PeriodYears:  10,
	WeightFactor: 2,
}

// Dir is the inputs directory name for the variant.
func (v Variant) Dir() string { return "inputs_" + v.Name }

// Periods returns the base and synthetic periods.
func (v Variant) Periods() []int {
	return append(append([]int(nil), v.BasePeriods...), v.ExtraPeriods...)
}

// Tag is the year tag used in identifiers of period p.
func (v Variant) Tag(p int) string { return strconv.Itoa(p + v.TagOffset) }

func (v Variant) sourcePrefix() string { return v.SourceTag + "." }

func periodSet(periods []int) map[float64]bool {
	out := make(map[float64]bool, len(periods))
	for _, p := range periods {
		out[float64(p)] = true
	}
	return out
}

// PeriodsTable builds periods.csv.
func (v Variant) PeriodsTable() *table.Table {
	t := table.New("INVESTMENT_PERIOD", "period_start", "period_end")
	for _, p := range v.Periods() {
		t.Append(map[string]string{
			"INVESTMENT_PERIOD": strconv.Itoa(p),
			"period_start":      strconv.Itoa(p),
			"period_end":        strconv.Itoa(p + v.PeriodYears - 1),
		})
	}
	return t
}

// Timeseries keeps the timeseries of the variant's periods, multiplies
// their weights by WeightFactor and copies SourcePeriod's samples forward.
func (v Variant) Timeseries(ts *table.Table) (*table.Table, error) {
	if err := ts.RequireColumns("TIMESERIES", "ts_period", "ts_scale_to_period"); err != nil {
		return nil, err
	}
	keep := periodSet(v.Periods())
	out := ts.Filter(func(i int) bool {
		p, ok := ts.Float(i, "ts_period")
		return ok && keep[p]
	})
	weights, err := out.Floats("ts_scale_to_period")
	if err != nil {
		return nil, err
	}
	for i, w := range weights {
		out.SetFloat(i, "ts_scale_to_period", w*v.WeightFactor)
	}
	src := out.Filter(func(i int) bool {
		p, _ := out.Float(i, "ts_period")
		return p == float64(v.SourcePeriod)
	})
	parts := []*table.Table{out}
	for _, p := range v.ExtraPeriods {
		dup := src.Clone()
		for i := 0; i < dup.Len(); i++ {
			dup.Set(i, "ts_period", strconv.Itoa(p))
			dup.Set(i, "TIMESERIES", strings.ReplaceAll(dup.Get(i, "TIMESERIES"), v.SourceTag, v.Tag(p)))
		}
		parts = append(parts, dup)
	}
	return table.Concat(parts...), nil
}

// Timepoints keeps the timepoints of surviving timeseries and copies the
// SourceTag samples forward with the tag substituted in every identifier.
func (v Variant) Timepoints(tp, ts *table.Table) (*table.Table, error) {
	if err := tp.RequireColumns("timepoint_id", "timestamp", "timeseries"); err != nil {
		return nil, err
	}
	series := make(map[string]bool, ts.Len())
	for _, id := range ts.Strings("TIMESERIES") {
		series[id] = true
	}
	out := tp.Filter(func(i int) bool { return series[tp.Get(i, "timeseries")] })
	src := out.Filter(func(i int) bool { return strings.HasPrefix(out.Get(i, "timeseries"), v.sourcePrefix()) })
	parts := []*table.Table{out}
	for _, p := range v.ExtraPeriods {
		dup := src.Clone()
		for i := 0; i < dup.Len(); i++ {
			for _, c := range []string{"timepoint_id", "timestamp", "timeseries"} {
				dup.Set(i, c, strings.ReplaceAll(dup.Get(i, c), v.SourceTag, v.Tag(p)))
			}
		}
		parts = append(parts, dup)
	}
	return table.Concat(parts...), nil
}

// PeriodTable keeps rows whose period column is a base period (or for which
// extraKeep returns true), copies SourcePeriod rows to every extra period
// with only the period column changed, and sorts by all columns.
func (v Variant) PeriodTable(t *table.Table, column string, extraKeep func(i int) bool) (*table.Table, error) {
	col, ok := t.Column(column)
	if !ok {
		return nil, exception.SchemaMismatch(moduleName, "table has no '%s' column", column)
	}
	base := periodSet(v.BasePeriods)
	out := t.Filter(func(i int) bool {
		if extraKeep != nil && extraKeep(i) {
			return true
		}
		p, ok := t.Float(i, col)
		return ok && base[p]
	})
	src := out.Filter(func(i int) bool {
		p, _ := out.Float(i, col)
		return p == float64(v.SourcePeriod)
	})
	parts := []*table.Table{out}
	for _, p := range v.ExtraPeriods {
		dup := src.Clone()
		for i := 0; i < dup.Len(); i++ {
			dup.Set(i, col, strconv.Itoa(p))
		}
		parts = append(parts, dup)
	}
	res := table.Concat(parts...)
	res.SortByAllColumns()
	return res, nil
}

// KeyedTable keeps rows whose key column is in keys and copies rows whose
// key starts with the SourceTag prefix forward, substituting the tag in the key.
func (v Variant) KeyedTable(t *table.Table, column string, keys map[string]bool) (*table.Table, error) {
	col, ok := t.Column(column)
	if !ok {
		return nil, exception.SchemaMismatch(moduleName, "table has no '%s' column", column)
	}
	out := t.Filter(func(i int) bool { return keys[t.Get(i, col)] })
	src := out.Filter(func(i int) bool { return strings.HasPrefix(out.Get(i, col), v.sourcePrefix()) })
	parts := []*table.Table{out}
	for _, p := range v.ExtraPeriods {
		dup := src.Clone()
		for i := 0; i < dup.Len(); i++ {
			dup.Set(i, col, strings.ReplaceAll(dup.Get(i, col), v.SourceTag, v.Tag(p)))
		}
		parts = append(parts, dup)
	}
	return table.Concat(parts...), nil
}

// TableSpec names a table and whether its absence is fatal.
type TableSpec struct {
	Name     string
	Column   string // Period or key column; empty for timeless tables.
	Required bool
}

// Plan lists what Build copies and transforms.
type Plan struct {
	Timeless       []TableSpec
	Files          []TableSpec // Non-CSV files copied as-is.
	PeriodTables   []TableSpec
	PeriodGlobs    []string // Extra period tables found by pattern, e.g. carbon_policies_???.csv.
	TimepointTabs  []TableSpec
	TimeseriesTabs []TableSpec
}

// StudyPlan is the table list of the study's inputs.
var StudyPlan = Plan{
	Timeless: []TableSpec{
		{Name: "financials", Required: true},
		{Name: "gen_info", Required: true},
		{Name: "gen_info.no_ccs"},
		{Name: "gen_info.no_ccs_h2"},
		{Name: "gen_build_predetermined", Required: true},
		{Name: "gen_part_load_heat_rates"},
		{Name: "gen_retrofits"},
		{Name: "gen_retrofits.no_ccs"},
		{Name: "load_zones", Required: true},
		{Name: "trans_params"},
		{Name: "transmission_lines"},
		{Name: "fuels", Required: true},
		{Name: "non_fuel_energy_sources"},
		{Name: "regional_fuel_markets"},
		{Name: "zone_to_regional_fuel_market"},
		{Name: "planning_reserve_requirements"},
		{Name: "planning_reserve_requirement_zones"},
		{Name: "hydrogen"},
	},
	Files: []TableSpec{
		{Name: "switch_inputs_version.txt"},
		{Name: "modules.txt", Required: true},
		{Name: "modules.no_suspend.txt"},
		{Name: "modules.no_ccs_h2.txt"},
	},
	PeriodTables: []TableSpec{
		{Name: "capacity_plans", Column: "period"},
		{Name: "total_capacity_limits", Column: "period"},
		{Name: "carbon_policies", Column: "period", Required: true},
		{Name: "carbon_policies_price_200", Column: "period"},
		{Name: "fuel_cost", Column: "period", Required: true},
		{Name: "fuel_supply_curves", Column: "period"},
		{Name: "gen_build_costs", Column: "build_year", Required: true},
		{Name: "gen_build_costs.no_ccs_h2", Column: "build_year"},
		{Name: "gen_build_costs.no_ccs", Column: "build_year"},
		{Name: "zone_coincident_peak_demand", Column: "period"},
	},
	PeriodGlobs: []string{"carbon_policies_???.csv"},
	TimepointTabs: []TableSpec{
		{Name: "loads", Column: "timepoint", Required: true},
		{Name: "variable_capacity_factors", Column: "timepoint", Required: true},
	},
	TimeseriesTabs: []TableSpec{
		{Name: "hydro_timeseries", Column: "timeseries"},
	},
}

func read(dir *inputdir.Dir, spec TableSpec) (*table.Table, bool, error) {
	if spec.Required {
		t, err := dir.Read(spec.Name)
		return t, err == nil, err
	}
	t, ok, err := dir.ReadOptional(spec.Name)
	if err == nil && !ok {
		logger.Warnf("Optional table %s is missing; skipped.", dir.File(spec.Name+".csv"))
	}
	return t, ok, err
}

// Build recreates dst from the tables of src on the variant's horizon.
//
// Timeless tables and files are copied as they are. The time structure is
// rebuilt for the variant's periods, period-indexed tables keep the rows of
// kept periods and copy SourcePeriod forward, and timepoint- or
// timeseries-keyed tables follow the surviving samples. A required table
// missing from src stops the build.
//
// Parameters:
//
//	ctx: Checked between copies; cancellation aborts the build.
//	src: The inputs directory to read, e.g. inputs_updated.
//	dst: The directory to recreate. Its previous content is removed.
//	v: The horizon to build.
//
// Returns:
//
//	exception.ErrMissingInput for a required table absent from src,
//	exception.ErrSchemaMismatch for a table without its index column, or nil.
func (p Plan) Build(ctx context.Context, src, dst *inputdir.Dir, v Variant) error {
	if err := dst.Recreate(ctx, nil); err != nil {
		return err
	}

	for _, spec := range p.Timeless {
		if !src.Exists(spec.Name + ".csv") {
			if spec.Required {
				return exception.MissingInput(moduleName, src.File(spec.Name+".csv"), nil)
			}
			logger.Warnf("Optional table %s is missing; skipped.", src.File(spec.Name+".csv"))
			continue
		}
		if err := src.CopyTo(ctx, dst, spec.Name+".csv"); err != nil {
			return err
		}
	}
	for _, spec := range p.Files {
		if !src.Exists(spec.Name) {
			if spec.Required {
				return exception.MissingInput(moduleName, src.File(spec.Name), nil)
			}
			continue
		}
		if err := src.CopyTo(ctx, dst, spec.Name); err != nil {
			return err
		}
	}

	if err := dst.Write("periods", v.PeriodsTable()); err != nil {
		return err
	}
	tsIn, err := src.Read("timeseries")
	if err != nil {
		return err
	}
	ts, err := v.Timeseries(tsIn)
	if err != nil {
		return err
	}
	if err := dst.Write("timeseries", ts); err != nil {
		return err
	}
	tpIn, err := src.Read("timepoints")
	if err != nil {
		return err
	}
	tp, err := v.Timepoints(tpIn, ts)
	if err != nil {
		return err
	}
	if err := dst.Write("timepoints", tp); err != nil {
		return err
	}

	if err := p.buildPeriodTables(ctx, src, dst, v); err != nil {
		return err
	}

	tpKeys := make(map[string]bool, tp.Len())
	for _, id := range tp.Strings("timepoint_id") {
		tpKeys[id] = true
	}
	tsKeys := make(map[string]bool, ts.Len())
	for _, id := range ts.Strings("TIMESERIES") {
		tsKeys[id] = true
	}
	keyed := []struct {
		specs []TableSpec
		keys  map[string]bool
	}{{p.TimepointTabs, tpKeys}, {p.TimeseriesTabs, tsKeys}}
	for _, k := range keyed {
		for _, spec := range k.specs {
			t, ok, err := read(src, spec)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			out, err := v.KeyedTable(t, spec.Column, k.keys)
			if err != nil {
				return exception.NewBatchErrorf(moduleName, "table %s", spec.Name, err)
			}
			if err := dst.Write(spec.Name, out); err != nil {
				return err
			}
		}
	}
	return ctx.Err()
}

func (p Plan) buildPeriodTables(ctx context.Context, src, dst *inputdir.Dir, v Variant) error {
	specs := append([]TableSpec(nil), p.PeriodTables...)
	listed := make(map[string]bool, len(specs))
	for _, s := range specs {
		listed[s.Name] = true
	}
	for _, pattern := range p.PeriodGlobs {
		names, err := src.Glob(ctx, pattern)
		if err != nil {
			return err
		}
		for _, n := range names {
			name := strings.TrimSuffix(n, ".csv")
			if !listed[name] {
				specs = append(specs, TableSpec{Name: name, Column: "period"})
				listed[name] = true
			}
		}
	}

	predetermined, err := src.Read("gen_build_predetermined")
	if err != nil {
		return err
	}
	predetKeys := make(map[string]bool, predetermined.Len())
	for i := 0; i < predetermined.Len(); i++ {
		y, _ := predetermined.Float(i, "build_year")
		predetKeys[predetermined.Get(i, "GENERATION_PROJECT")+"/"+table.FormatFloat(y)] = true
	}

	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, ok, err := read(src, spec)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		var keep func(int) bool
		if strings.HasPrefix(spec.Name, "gen_build_costs") {
			keep = func(i int) bool {
				y, _ := t.Float(i, spec.Column)
				return predetKeys[t.Get(i, "GENERATION_PROJECT")+"/"+table.FormatFloat(y)]
			}
		}
		out, err := v.PeriodTable(t, spec.Column, keep)
		if err != nil {
			return exception.NewBatchErrorf(moduleName, "table %s", spec.Name, err)
		}
		if err := dst.Write(spec.Name, out); err != nil {
			return err
		}
	}
	return nil
}
