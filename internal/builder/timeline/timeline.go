// Package timeline loads and checks the period / timeseries / timepoint hierarchy.
package timeline

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

const moduleName = "timeline"

// Period is one investment period.
type Period struct {
	ID    int
	Start int
	End   int
}

// Years is the number of calendar years the period represents.
func (p Period) Years() int { return p.End - p.Start + 1 }

// Timeseries is a representative sample of timepoints.
type Timeseries struct {
	ID            string
	Period        int
	DurationOfTP  float64 // Hours per timepoint.
	NumTPs        float64
	ScaleToPeriod float64 // Occurrences of this sample in its period.
}

// Hours is the number of period hours the sample represents.
func (ts Timeseries) Hours() float64 {
	return ts.ScaleToPeriod * ts.DurationOfTP * ts.NumTPs
}

// Structure is the time hierarchy of one inputs directory.
type Structure struct {
	Periods    []Period
	Timeseries []Timeseries
	// Timepoints maps timepoint id to timeseries id, in file order.
	Timepoints   map[string]string
	timepointIDs []string
	duplicateTPs []string
}

// FromTables builds a Structure from periods.csv, timeseries.csv and timepoints.csv.
func FromTables(periods, timeseries, timepoints *table.Table) (*Structure, error) {
	if err := periods.RequireColumns("INVESTMENT_PERIOD", "period_start", "period_end"); err != nil {
		return nil, err
	}
	if err := timeseries.RequireColumns("TIMESERIES", "ts_period", "ts_duration_of_tp", "ts_num_tps", "ts_scale_to_period"); err != nil {
		return nil, err
	}
	if err := timepoints.RequireColumns("timepoint_id", "timeseries"); err != nil {
		return nil, err
	}
	s := &Structure{Timepoints: make(map[string]string, timepoints.Len())}

	cols := map[string][]float64{}
	for _, c := range []string{"INVESTMENT_PERIOD", "period_start", "period_end"} {
		v, err := periods.Floats(c)
		if err != nil {
			return nil, err
		}
		cols[c] = v
	}
	for i := range cols["INVESTMENT_PERIOD"] {
		s.Periods = append(s.Periods, Period{
			ID:    int(cols["INVESTMENT_PERIOD"][i]),
			Start: int(cols["period_start"][i]),
			End:   int(cols["period_end"][i]),
		})
	}

	for _, c := range []string{"ts_period", "ts_duration_of_tp", "ts_num_tps", "ts_scale_to_period"} {
		v, err := timeseries.Floats(c)
		if err != nil {
			return nil, err
		}
		cols[c] = v
	}
	for i, id := range timeseries.Strings("TIMESERIES") {
		s.Timeseries = append(s.Timeseries, Timeseries{
			ID:            id,
			Period:        int(cols["ts_period"][i]),
			DurationOfTP:  cols["ts_duration_of_tp"][i],
			NumTPs:        cols["ts_num_tps"][i],
			ScaleToPeriod: cols["ts_scale_to_period"][i],
		})
	}

	ts := timepoints.Strings("timeseries")
	for i, id := range timepoints.Strings("timepoint_id") {
		if _, dup := s.Timepoints[id]; dup {
			s.duplicateTPs = append(s.duplicateTPs, id)
			continue
		}
		s.Timepoints[id] = ts[i]
		s.timepointIDs = append(s.timepointIDs, id)
	}
	return s, nil
}

// Load reads the three time tables from an inputs directory.
func Load(dir string) (*Structure, error) {
	var tables [3]*table.Table
	for i, name := range []string{"periods.csv", "timeseries.csv", "timepoints.csv"} {
		t, err := table.Read(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		tables[i] = t
	}
	return FromTables(tables[0], tables[1], tables[2])
}

// Period returns the period with the given id.
func (s *Structure) Period(id int) (Period, bool) {
	for _, p := range s.Periods {
		if p.ID == id {
			return p, true
		}
	}
	return Period{}, false
}

// PeriodHours sums the represented hours of every timeseries by period.
func (s *Structure) PeriodHours() map[int]float64 {
	out := make(map[int]float64, len(s.Periods))
	for _, ts := range s.Timeseries {
		out[ts.Period] += ts.Hours()
	}
	return out
}

// PeriodWeights sums ts_scale_to_period by period.
func (s *Structure) PeriodWeights() map[int]float64 {
	out := make(map[int]float64, len(s.Periods))
	for _, ts := range s.Timeseries {
		out[ts.Period] += ts.ScaleToPeriod
	}
	return out
}

// TimeseriesInPeriod returns the timeseries ids of a period in file order.
func (s *Structure) TimeseriesInPeriod(period int) []string {
	var out []string
	for _, ts := range s.Timeseries {
		if ts.Period == period {
			out = append(out, ts.ID)
		}
	}
	return out
}

// TimepointIDs returns the timepoint ids in file order.
func (s *Structure) TimepointIDs() []string {
	return append([]string(nil), s.timepointIDs...)
}

// PeriodOfTimepoint returns the period a timepoint belongs to.
func (s *Structure) PeriodOfTimepoint(tp string) (int, bool) {
	tsID, ok := s.Timepoints[tp]
	if !ok {
		return 0, false
	}
	for _, ts := range s.Timeseries {
		if ts.ID == tsID {
			return ts.Period, true
		}
	}
	return 0, false
}

// Verify checks membership: every timepoint belongs to exactly one known
// timeseries and every timeseries to exactly one known period.
func (s *Structure) Verify() error {
	var result *multierror.Error
	for _, id := range s.duplicateTPs {
		result = multierror.Append(result, fmt.Errorf("timepoint '%s' is listed more than once", id))
	}
	periods := make(map[int]bool, len(s.Periods))
	for _, p := range s.Periods {
		if periods[p.ID] {
			result = multierror.Append(result, fmt.Errorf("period %d is listed more than once", p.ID))
		}
		periods[p.ID] = true
	}
	series := make(map[string]bool, len(s.Timeseries))
	for _, ts := range s.Timeseries {
		if series[ts.ID] {
			result = multierror.Append(result, fmt.Errorf("timeseries '%s' is listed more than once", ts.ID))
		}
		series[ts.ID] = true
		if !periods[ts.Period] {
			result = multierror.Append(result, fmt.Errorf("timeseries '%s' refers to unknown period %d", ts.ID, ts.Period))
		}
	}
	for _, id := range s.timepointIDs {
		if ts := s.Timepoints[id]; !series[ts] {
			result = multierror.Append(result, fmt.Errorf("timepoint '%s' refers to unknown timeseries '%s'", id, ts))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return exception.InvariantViolation(moduleName, "time structure is inconsistent", err)
	}
	return nil
}

// VerifyTotals checks that the per-period totals of got
// match want within a relative tolerance. It is used to check that
// rescaling kept the represented hours (or weights) of every period.
func VerifyTotals(name string, want, got map[int]float64, tolerance float64) error {
	var result *multierror.Error
	periods := make([]int, 0, len(want))
	for p := range want {
		periods = append(periods, p)
	}
	for p := range got {
		if _, ok := want[p]; !ok {
			periods = append(periods, p)
		}
	}
	sort.Ints(periods)
	for _, p := range periods {
		w, g := want[p], got[p]
		if math.Abs(w-g) > tolerance*math.Max(1, math.Abs(w)) {
			result = multierror.Append(result, fmt.Errorf("period %d: %s %g, expected %g", p, name, g, w))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return exception.InvariantViolation(moduleName, name+" changed", err)
	}
	return nil
}

// VerifyPeriodHours checks that each period represents its calendar length
// in hours, at hoursPerYear hours per year.
func (s *Structure) VerifyPeriodHours(hoursPerYear, tolerance float64) error {
	want := make(map[int]float64, len(s.Periods))
	for _, p := range s.Periods {
		want[p.ID] = float64(p.Years()) * hoursPerYear
	}
	return VerifyTotals("period hours", want, s.PeriodHours(), tolerance)
}
