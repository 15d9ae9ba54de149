package analyzer

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/interp"

	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

// ReferenceCarbonCost is the marginal carbon cost ($/tCO2) whose emission
// reduction each abatement curve reports.
const ReferenceCarbonCost = 200

// CurvePoint is one carbon cap scenario on an abatement curve.
type CurvePoint struct {
	Level     int
	Reduction float64
	Scenario  string
	// Capacity and Dispatch are clipped at zero.
	Capacity   map[string]float64
	Dispatch   map[string]float64
	CarbonCost float64
	LCOE       float64
}

// Curve shows one theme's system in one period as the carbon cap tightens.
type Curve struct {
	Theme      string
	Period     int
	Points     []CurvePoint
	Categories []string
	// Level200 is the emission reduction (%) at which the marginal carbon
	// cost reaches ReferenceCarbonCost. NaN without points.
	Level200 float64
}

// ScenarioName is the directory of a carbon cap scenario.
func ScenarioName(level int, theme string) string {
	return fmt.Sprintf("carbon_%03d_%s", level, theme)
}

// AbatementCurve reads carbon_{level}_{theme} under group for every level.
// Scenarios that were not solved are skipped.
func AbatementCurve(group, theme string, levels []int, period int) (*Curve, error) {
	c := &Curve{Theme: theme, Period: period, Level200: math.NaN()}
	var seen []string
	for _, level := range levels {
		name := ScenarioName(level, theme)
		dir := filepath.Join(group, name)
		if _, err := os.Stat(filepath.Join(dir, "gen_cap.csv")); err != nil {
			logger.Warnf("Skipping missing scenario %s.", dir)
			continue
		}
		r, err := ReadScenario(dir)
		if err != nil {
			return nil, exception.NewBatchErrorf(moduleName, "abatement curve %s", theme, err)
		}
		p := CurvePoint{
			Level:      level,
			Reduction:  float64(100 - level),
			Scenario:   name,
			Capacity:   clip(r.CapacityAt(period)),
			Dispatch:   clip(r.DispatchAt(period)),
			CarbonCost: lookup(r.CarbonCost, period),
			LCOE:       lookup(r.LCOE, period),
		}
		c.Points = append(c.Points, p)
		seen = append(seen, r.Categories...)
	}
	sort.SliceStable(c.Points, func(i, j int) bool { return c.Points[i].Reduction < c.Points[j].Reduction })
	c.Categories = OrderCategories(seen)

	costs := make([]float64, len(c.Points))
	reductions := make([]float64, len(c.Points))
	for i, p := range c.Points {
		costs[i], reductions[i] = p.CarbonCost, p.Reduction
	}
	c.Level200 = Interpolate(ReferenceCarbonCost, costs, reductions)
	return c, nil
}

// Interpolate returns y at x on the piecewise-linear curve through (xs, ys),
// holding the end values outside the range. Points with NaN are ignored,
// xs are sorted and repeated xs keep their first y. NaN without points.
func Interpolate(x float64, xs, ys []float64) float64 {
	type pt struct{ x, y float64 }
	var pts []pt
	for i := range xs {
		if !math.IsNaN(xs[i]) && !math.IsNaN(ys[i]) {
			pts = append(pts, pt{xs[i], ys[i]})
		}
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].x < pts[j].x })
	var px, py []float64
	for _, p := range pts {
		if len(px) > 0 && p.x == px[len(px)-1] {
			continue
		}
		px = append(px, p.x)
		py = append(py, p.y)
	}
	switch len(px) {
	case 0:
		return math.NaN()
	case 1:
		return py[0]
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(px, py); err != nil {
		return math.NaN()
	}
	return pl.Predict(x)
}

func clip(m map[string]float64) map[string]float64 {
	for k, v := range m {
		if v < 0 {
			m[k] = 0
		}
	}
	return m
}

// Table has one row per scenario: the reduction, the carbon cost, the LCOE,
// then capacity and energy per category.
func (c *Curve) Table() *table.Table {
	header := []string{"reduction_pct", "scenario", "carbon_cost_dollar_per_tco2", "lcoe_dollar_per_mwh"}
	for _, cat := range c.Categories {
		header = append(header, "capacity_gw "+cat)
	}
	for _, cat := range c.Categories {
		header = append(header, "energy_twh "+cat)
	}
	t := table.New(header...)
	for _, p := range c.Points {
		rec := map[string]string{
			"reduction_pct":               table.FormatFloat(p.Reduction),
			"scenario":                    p.Scenario,
			"carbon_cost_dollar_per_tco2": table.FormatFloat(p.CarbonCost),
			"lcoe_dollar_per_mwh":         table.FormatFloat(p.LCOE),
		}
		for _, cat := range c.Categories {
			rec["capacity_gw "+cat] = table.FormatFloat(p.Capacity[cat])
			rec["energy_twh "+cat] = table.FormatFloat(p.Dispatch[cat])
		}
		t.Append(rec)
	}
	return t
}

// Records flattens the curve for export.
func (c *Curve) Records() []Record {
	report := "abatement_curve_" + c.Theme
	var out []Record
	for _, p := range c.Points {
		for _, cat := range c.Categories {
			out = append(out,
				NewRecord(report, p.Scenario, c.Period, cat, MetricCapacity, p.Capacity[cat]),
				NewRecord(report, p.Scenario, c.Period, cat, MetricEnergy, p.Dispatch[cat]))
		}
		out = append(out,
			NewRecord(report, p.Scenario, c.Period, "", MetricCarbonCost, p.CarbonCost),
			NewRecord(report, p.Scenario, c.Period, "", MetricLCOE, p.LCOE),
			NewRecord(report, p.Scenario, c.Period, "", MetricReduction, p.Reduction))
	}
	return out
}
