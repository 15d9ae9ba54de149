package toughdays

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/tigerroll/switchprep/internal/builder/inputdir"
	"github.com/tigerroll/switchprep/internal/builder/modulelist"
	"github.com/tigerroll/switchprep/internal/builder/timeline"
	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

// Reserves configures how tough days are added.
type Reserves struct {
	// RecurrenceWeight is ts_scale_to_period of every added day.
	RecurrenceWeight float64
	// YearsBetweenOccurrence is written to hydrogen_tank_reserve_days.csv.
	YearsBetweenOccurrence float64
	// LoadIncreases are the fractional load raises; each gives loads.resNN.csv.
	LoadIncreases []float64
	// BaseLoadIncrease is the raise also written as loads.csv.
	BaseLoadIncrease float64
	ModuleFiles      []string
}

// StudyReserves are the settings of the study: 50-in-10-years recurrence,
// events every third year and 10/20/30% super-peak loads.
var StudyReserves = Reserves{
	RecurrenceWeight:       50,
	YearsBetweenOccurrence: 3,
	LoadIncreases:          []float64{0.1, 0.2, 0.3},
	BaseLoadIncrease:       0.1,
	ModuleFiles:            []string{"modules.txt", "modules.no_suspend.txt", "modules.no_ccs_h2.txt"},
}

// LoadsName is the table name of the loads for a fractional increase, e.g. 0.1 -> "loads.res10".
func LoadsName(increase float64) string {
	return fmt.Sprintf("loads.res%02d", int(math.Round(increase*100)))
}

// Rename maps an existing id to a new one. One id can have several renames
// when more than one level picks the same day.
type Rename struct{ Old, New string }

// UpdateModules comments out planning reserves and adds the spinning
// reserve module, plus hydrogen tank reserves unless the file excludes hydrogen.
func UpdateModules(l *modulelist.List, file string) {
	l.CommentOut(modulelist.PlanningReserves)
	l.Append(modulelist.SpinningReserves35)
	if !strings.Contains(file, "no_ccs_h2") {
		l.Append(modulelist.HydrogenTankReserve)
	}
}

// AddTimeseries appends a copy of every selected day found in ts, with
// weight r.RecurrenceWeight, and rescales the remaining timeseries of each
// period by (T - k·W) / T so that the period total T is unchanged.
func (r Reserves) AddTimeseries(ts *table.Table, sel []Selection) (*table.Table, []Selection, error) {
	if err := ts.RequireColumns("TIMESERIES", "ts_period", "ts_scale_to_period"); err != nil {
		return nil, nil, err
	}
	rows := make(map[string]int, ts.Len())
	for i, id := range ts.Strings("TIMESERIES") {
		rows[id] = i
	}
	weights, err := ts.Floats("ts_scale_to_period")
	if err != nil {
		return nil, nil, err
	}
	periods, err := ts.Floats("ts_period")
	if err != nil {
		return nil, nil, err
	}
	totals := make(map[int]float64)
	for i, w := range weights {
		totals[int(periods[i])] += w
	}

	var applied []Selection
	added := make(map[int]int)
	dup := table.New(ts.Header()...)
	for _, s := range sel {
		i, ok := rows[s.Timeseries]
		if !ok {
			logger.Debugf("Timeseries %s is not in this horizon; skipped.", s.Timeseries)
			continue
		}
		rec := ts.Record(i)
		rec["TIMESERIES"] = s.NewTimeseries
		rec["ts_scale_to_period"] = table.FormatFloat(r.RecurrenceWeight)
		dup.Append(rec)
		added[int(periods[i])]++
		applied = append(applied, s)
	}

	out := ts.Clone()
	for i, w := range weights {
		p := int(periods[i])
		k := added[p]
		if k == 0 {
			continue
		}
		total := totals[p]
		rest := total - float64(k)*r.RecurrenceWeight
		if rest <= 0 {
			return nil, nil, exception.InvariantViolation(moduleName,
				fmt.Sprintf("period %d weight %g cannot absorb %d reserve days of weight %g", p, total, k, r.RecurrenceWeight), nil)
		}
		out.SetFloat(i, "ts_scale_to_period", w*rest/total)
	}
	return table.Concat(out, dup), applied, nil
}

// TankReserveDays is hydrogen_tank_reserve_days.csv for the added days.
func (r Reserves) TankReserveDays(sel []Selection) *table.Table {
	t := table.New("TIMESERIES", "ts_years_between_occurrence")
	for _, s := range sel {
		t.Append(map[string]string{
			"TIMESERIES":                  s.NewTimeseries,
			"ts_years_between_occurrence": table.FormatFloat(r.YearsBetweenOccurrence),
		})
	}
	return t
}

// AddTimepoints copies the timepoints of each selected day. The new id is
// the old id plus the level suffix of the new timeseries (its last four
// characters) and the timestamp moves to the following calendar year.
func AddTimepoints(tp *table.Table, sel []Selection) (*table.Table, []Rename, error) {
	if err := tp.RequireColumns("timepoint_id", "timestamp", "timeseries"); err != nil {
		return nil, nil, err
	}
	byTS := make(map[string][]int)
	for i, ts := range tp.Strings("timeseries") {
		byTS[ts] = append(byTS[ts], i)
	}
	var renames []Rename
	dup := table.New(tp.Header()...)
	for _, s := range sel {
		suffix := s.NewTimeseries
		if len(suffix) > 4 {
			suffix = suffix[len(suffix)-4:]
		}
		for _, i := range byTS[s.Timeseries] {
			rec := tp.Record(i)
			id := rec["timepoint_id"] + suffix
			rec["timepoint_id"] = id
			rec["timeseries"] = s.NewTimeseries
			if stamp := rec["timestamp"]; len(stamp) >= 4 {
				rec["timestamp"] = stamp[:3] + "1" + stamp[4:]
			}
			dup.Append(rec)
			renames = append(renames, Rename{Old: tp.Get(i, "timepoint_id"), New: id})
		}
	}
	return table.Concat(tp, dup), renames, nil
}

// duplicate appends, for each rename, a copy of the rows whose key column
// holds the old id, with the key replaced.
func duplicate(t *table.Table, column string, renames []Rename) (*table.Table, error) {
	col, ok := t.Column(column)
	if !ok {
		return nil, exception.SchemaMismatch(moduleName, "table has no '%s' column", column)
	}
	rows := make(map[string][]int)
	for i, k := range t.Strings(col) {
		rows[k] = append(rows[k], i)
	}
	dup := table.New(t.Header()...)
	for _, rn := range renames {
		for _, i := range rows[rn.Old] {
			rec := t.Record(i)
			rec[col] = rn.New
			dup.Append(rec)
		}
	}
	return dup, nil
}

func timeseriesRenames(sel []Selection) []Rename {
	out := make([]Rename, len(sel))
	for i, s := range sel {
		out[i] = Rename{Old: s.Timeseries, New: s.NewTimeseries}
	}
	return out
}

// Apply recreates dst as a copy of src and adds the selected days to it.
//
// Every module list in ModuleFiles swaps planning reserves for spinning
// reserves. Each selection duplicates its timeseries and timepoints under
// the new id, weighted at RecurrenceWeight, while the other days of the
// period give up that weight proportionally. Loads of the duplicates are
// raised by BaseLoadIncrease, and one extra loads table is written per
// entry of LoadIncreases.
//
// Parameters:
//
//	ctx: Checked while copying src.
//	src: A horizon directory, e.g. inputs_extended.
//	dst: The reserve directory to recreate, e.g. inputs_extended_reserves.
//	sel: Days chosen by SelectExpensiveDays, possibly several per period.
//
// Returns:
//
//	exception.ErrInvariantViolation if the time structure breaks or a
//	period's total weight changes, or nil.
func (r Reserves) Apply(ctx context.Context, src, dst *inputdir.Dir, sel []Selection) error {
	if err := dst.Recreate(ctx, src); err != nil {
		return err
	}

	for _, file := range r.ModuleFiles {
		if !dst.Exists(file) {
			logger.Warnf("Module list %s is missing; skipped.", dst.File(file))
			continue
		}
		l, err := dst.ReadModules(file)
		if err != nil {
			return err
		}
		UpdateModules(l, file)
		if err := dst.WriteModules(file, l); err != nil {
			return err
		}
	}

	periodsTbl, err := dst.Read("periods")
	if err != nil {
		return err
	}
	tsIn, err := dst.Read("timeseries")
	if err != nil {
		return err
	}
	tpIn, err := dst.Read("timepoints")
	if err != nil {
		return err
	}
	before, err := timeline.FromTables(periodsTbl, tsIn, tpIn)
	if err != nil {
		return err
	}

	ts, applied, err := r.AddTimeseries(tsIn, sel)
	if err != nil {
		return err
	}
	logger.Infof("Adding %d of %d tough days to %s.", len(applied), len(sel), dst.Name())
	if err := dst.Write("timeseries", ts); err != nil {
		return err
	}
	if err := dst.Write("hydrogen_tank_reserve_days", r.TankReserveDays(applied)); err != nil {
		return err
	}

	tp, tpRenames, err := AddTimepoints(tpIn, applied)
	if err != nil {
		return err
	}
	if err := dst.Write("timepoints", tp); err != nil {
		return err
	}

	after, err := timeline.FromTables(periodsTbl, ts, tp)
	if err != nil {
		return err
	}
	if err := after.Verify(); err != nil {
		return err
	}
	if err := timeline.VerifyTotals("timeseries weight", before.PeriodWeights(), after.PeriodWeights(), 1e-9); err != nil {
		return err
	}

	if err := r.extend(dst, "hydro_timeseries", "timeseries", timeseriesRenames(applied), false); err != nil {
		return err
	}
	if err := r.extend(dst, "variable_capacity_factors", "timepoint", tpRenames, true); err != nil {
		return err
	}
	return r.writeLoads(dst, tpRenames)
}

func (r Reserves) extend(dst *inputdir.Dir, name, column string, renames []Rename, required bool) error {
	var t *table.Table
	if required {
		var err error
		if t, err = dst.Read(name); err != nil {
			return err
		}
	} else {
		var ok bool
		var err error
		if t, ok, err = dst.ReadOptional(name); err != nil {
			return err
		} else if !ok {
			logger.Warnf("Optional table %s is missing; skipped.", dst.File(name+".csv"))
			return nil
		}
	}
	dup, err := duplicate(t, column, renames)
	if err != nil {
		return exception.NewBatchErrorf(moduleName, "table %s", name, err)
	}
	return dst.Write(name, table.Concat(t, dup))
}

func (r Reserves) writeLoads(dst *inputdir.Dir, renames []Rename) error {
	loads, err := dst.Read("loads")
	if err != nil {
		return err
	}
	if err := loads.RequireColumns("zone_demand_mw"); err != nil {
		return exception.NewBatchErrorf(moduleName, "table loads", err)
	}
	dup, err := duplicate(loads, "timepoint", renames)
	if err != nil {
		return exception.NewBatchErrorf(moduleName, "table loads", err)
	}
	demand, err := dup.Floats("zone_demand_mw")
	if err != nil {
		return err
	}
	wroteBase := false
	for _, inc := range r.LoadIncreases {
		raised := dup.Clone()
		for i, d := range demand {
			raised.SetFloat(i, "zone_demand_mw", d*(1+inc))
		}
		final := table.Concat(loads, raised)
		if err := dst.Write(LoadsName(inc), final); err != nil {
			return err
		}
		if inc == r.BaseLoadIncrease {
			if err := dst.Write("loads", final); err != nil {
				return err
			}
			wroteBase = true
		}
	}
	if !wroteBase {
		return exception.NewBatchErrorf(moduleName, "base load increase %g is not one of %v", r.BaseLoadIncrease, r.LoadIncreases)
	}
	return nil
}
