// Package toughdays picks the most expensive day of each period from
// diagnostic solver runs and adds those days to an inputs directory as
// reserve days with raised load.
package toughdays

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

const moduleName = "toughdays"

// Selection is one tough day chosen for a period.
type Selection struct {
	Period        int
	Timeseries    string // Existing timeseries id.
	NewTimeseries string // Id of the duplicate, "{period}.res.{level}".
	MeanPrice     float64
}

// EnergySourcesFile is the diagnostic output read by SelectExpensiveDays.
func EnergySourcesFile(level string) string {
	return fmt.Sprintf("energy_sources_%s.csv", level)
}

// OutputsDir is where the diagnostic run for level writes its results.
func OutputsDir(level string) string {
	return fmt.Sprintf("out_tough_days/carbon_%s_spin_only", level)
}

// TimeseriesOfLabel derives the timeseries id from a timepoint label,
// e.g. "2050-01-04_00:00" -> "2050.01.04".
func TimeseriesOfLabel(label string) string {
	if len(label) > 10 {
		label = label[:10]
	}
	return strings.ReplaceAll(label, "-", ".")
}

type dayKey struct {
	period     int
	timeseries string
}

// SelectExpensiveDays picks the most expensive day of every period.
//
// The energy sources table is grouped by (period, timeseries) and each day is
// priced at Σ(demand × marginal cost) / Σ demand. Days whose price is NaN
// (no demand) are never picked. Among days of equal price, the one whose
// first row comes earliest in the table wins.
//
// Parameters:
//
//	es: Energy sources of one diagnostic run.
//	level: Carbon cap level, used to name the reserve timeseries.
//
// Returns:
//
//	One Selection per period, in ascending period order.
//	exception.ErrSchemaMismatch for missing columns or an empty table.
//	exception.ErrInvariantViolation for a period without a priced day.
func SelectExpensiveDays(es *table.Table, level string) ([]Selection, error) {
	if err := es.RequireColumns("period", "timepoint_label", "zone_demand_mw", "marginal_cost"); err != nil {
		return nil, err
	}
	periods, err := es.Floats("period")
	if err != nil {
		return nil, err
	}
	demand, err := es.Floats("zone_demand_mw")
	if err != nil {
		return nil, err
	}
	cost, err := es.Floats("marginal_cost")
	if err != nil {
		return nil, err
	}

	type sums struct{ demand, expenditure float64 }
	days := make(map[dayKey]*sums)
	var keys []dayKey // first-seen order
	for i, label := range es.Strings("timepoint_label") {
		k := dayKey{int(periods[i]), TimeseriesOfLabel(label)}
		s, ok := days[k]
		if !ok {
			s = &sums{}
			days[k] = s
			keys = append(keys, k)
		}
		s.demand += demand[i]
		s.expenditure += demand[i] * cost[i]
	}
	if len(days) == 0 {
		return nil, exception.SchemaMismatch(moduleName, "energy sources for level %s have no rows", level)
	}
	sort.SliceStable(keys, func(a, b int) bool { return keys[a].period < keys[b].period })

	var out []Selection
	best := make(map[int]int) // period -> index in out
	for _, k := range keys {
		s := days[k]
		price := s.expenditure / s.demand
		if math.IsNaN(price) {
			continue
		}
		if i, ok := best[k.period]; ok {
			if price > out[i].MeanPrice {
				out[i].Timeseries = k.timeseries
				out[i].MeanPrice = price
			}
			continue
		}
		best[k.period] = len(out)
		out = append(out, Selection{
			Period:        k.period,
			Timeseries:    k.timeseries,
			NewTimeseries: fmt.Sprintf("%d.res.%s", k.period, level),
			MeanPrice:     price,
		})
	}
	for _, k := range keys {
		if _, ok := best[k.period]; !ok {
			return nil, exception.InvariantViolation(moduleName,
				fmt.Sprintf("period %d of level %s has no day with a finite price", k.period, level), nil)
		}
	}
	return out, nil
}

// SelectionTable renders selections for logging and export.
func SelectionTable(sel []Selection) *table.Table {
	t := table.New("period", "timeseries", "new_timeseries", "mean_price")
	for _, s := range sel {
		t.Append(map[string]string{
			"period":         fmt.Sprint(s.Period),
			"timeseries":     s.Timeseries,
			"new_timeseries": s.NewTimeseries,
			"mean_price":     table.FormatFloat(s.MeanPrice),
		})
	}
	return t
}

// ParseSelectionTable reads a table written by SelectionTable.
func ParseSelectionTable(t *table.Table) ([]Selection, error) {
	if err := t.RequireColumns("period", "timeseries", "new_timeseries"); err != nil {
		return nil, err
	}
	out := make([]Selection, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		p, ok := t.Float(i, "period")
		if !ok {
			return nil, exception.SchemaMismatch(moduleName, "selection row %d has no period", i)
		}
		price, _ := t.Float(i, "mean_price")
		out = append(out, Selection{
			Period:        int(p),
			Timeseries:    t.Get(i, "timeseries"),
			NewTimeseries: t.Get(i, "new_timeseries"),
			MeanPrice:     price,
		})
	}
	return out, nil
}
