// Package carbon builds the carbon-cap and carbon-price glide paths.
package carbon

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"

	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

const moduleName = "carbon"

// Column names in carbon_policies.csv.
const (
	PeriodColumn = "period"
	CapColumn    = "carbon_cap_tco2_per_yr"
	PriceColumn  = "carbon_cost_dollar_per_tco2"
)

// GlidePath describes how the intermediate periods are rebuilt.
type GlidePath struct {
	AnchorPeriod int // Period whose value is kept, e.g. 2028.
	BlankFrom    int // First period to blank.
	TargetPeriod int // Period that receives the target value. Periods in [BlankFrom, TargetPeriod] are blanked.
}

// StudyGlidePath runs from 2028 to 2048, blanking 2033 onward.
var StudyGlidePath = GlidePath{AnchorPeriod: 2028, BlankFrom: 2033, TargetPeriod: 2048}

// InterpolateByIndex fills NaNs in ys by linear interpolation against xs.
// xs must be strictly increasing. NaNs after the last known value take that
// value; NaNs before the first known value stay NaN.
func InterpolateByIndex(xs, ys []float64) ([]float64, error) {
	if len(xs) != len(ys) {
		return nil, exception.NewBatchErrorf(moduleName, "xs and ys differ in length (%d, %d)", len(xs), len(ys))
	}
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return nil, exception.SchemaMismatch(moduleName, "index is not strictly increasing at position %d", i)
		}
	}
	out := append([]float64(nil), ys...)

	var kx, ky []float64
	for i, y := range ys {
		if !math.IsNaN(y) {
			kx = append(kx, xs[i])
			ky = append(ky, y)
		}
	}
	if len(kx) == 0 {
		return out, nil
	}
	first, last := kx[0], kx[len(kx)-1]
	lastValue := ky[len(ky)-1]

	var pl interp.PiecewiseLinear
	canFit := len(kx) >= 2
	if canFit {
		if err := pl.Fit(kx, ky); err != nil {
			return nil, exception.NewBatchErrorf(moduleName, "failed to fit interpolant", err)
		}
	}
	for i, y := range out {
		if !math.IsNaN(y) {
			continue
		}
		switch x := xs[i]; {
		case x < first:
		case x > last:
			out[i] = lastValue
		case canFit:
			out[i] = pl.Predict(x)
		}
	}
	return out, nil
}

// policies wraps a carbon_policies table sorted by period.
type policies struct {
	t         *table.Table
	periodCol string
	periods   []float64
}

func newPolicies(t *table.Table) (*policies, error) {
	col, ok := t.Column(PeriodColumn)
	if !ok {
		return nil, exception.SchemaMismatch(moduleName, "carbon policies have no '%s' column", PeriodColumn)
	}
	if err := t.RequireColumns(CapColumn, PriceColumn); err != nil {
		return nil, err
	}
	c := t.Clone()
	periods, err := c.Floats(col)
	if err != nil {
		return nil, err
	}
	if !sort.Float64sAreSorted(periods) {
		c.SortByAllColumns()
		if periods, err = c.Floats(col); err != nil {
			return nil, err
		}
	}
	return &policies{t: c, periodCol: col, periods: periods}, nil
}

func (p *policies) row(period int) (int, error) {
	for i, v := range p.periods {
		if v == float64(period) {
			return i, nil
		}
	}
	return -1, exception.SchemaMismatch(moduleName, "carbon policies have no row for period %d", period)
}

func (p *policies) blank(column string, from, to int) {
	for i, v := range p.periods {
		if v >= float64(from) && v <= float64(to) {
			p.t.Set(i, column, table.Null)
		}
	}
}

// interpolate fills every numeric column except the period against the period.
func (p *policies) interpolate() error {
	for _, c := range p.t.Header() {
		if c == p.periodCol {
			continue
		}
		ys, err := p.t.Floats(c)
		if err != nil {
			continue
		}
		filled, err := InterpolateByIndex(p.periods, ys)
		if err != nil {
			return err
		}
		for i, v := range filled {
			if math.IsNaN(ys[i]) {
				p.t.SetFloat(i, c, v)
			}
		}
	}
	return nil
}

// CapGlidePath sets the target-period cap to levelPercent of the anchor
// cap and interpolates the blanked periods in between.
func (g GlidePath) CapGlidePath(t *table.Table, levelPercent int) (*table.Table, error) {
	p, err := newPolicies(t)
	if err != nil {
		return nil, err
	}
	anchor, err := p.row(g.AnchorPeriod)
	if err != nil {
		return nil, err
	}
	target, err := p.row(g.TargetPeriod)
	if err != nil {
		return nil, err
	}
	anchorCap, ok := p.t.Float(anchor, CapColumn)
	if !ok {
		return nil, exception.SchemaMismatch(moduleName, "no carbon cap for anchor period %d", g.AnchorPeriod)
	}
	p.blank(CapColumn, g.BlankFrom, g.TargetPeriod)
	p.t.SetFloat(target, CapColumn, float64(levelPercent)*0.01*anchorCap)
	if err := p.interpolate(); err != nil {
		return nil, err
	}
	return p.t, nil
}

// PriceGlidePath sets the target-period price, interpolates from the anchor
// and blanks the cap column so the price is the operative policy.
func (g GlidePath) PriceGlidePath(t *table.Table, targetPrice float64) (*table.Table, error) {
	p, err := newPolicies(t)
	if err != nil {
		return nil, err
	}
	target, err := p.row(g.TargetPeriod)
	if err != nil {
		return nil, err
	}
	for i, v := range p.periods {
		if v >= float64(g.BlankFrom) {
			p.t.Set(i, PriceColumn, table.Null)
		}
	}
	p.t.SetFloat(target, PriceColumn, targetPrice)
	if err := p.interpolate(); err != nil {
		return nil, err
	}
	for i := 0; i < p.t.Len(); i++ {
		p.t.Set(i, CapColumn, table.Null)
	}
	return p.t, nil
}

// Kind names the operative policy for a period.
type Kind int

const (
	// None means neither a cap nor a price is set.
	None Kind = iota
	// Cap means the emissions cap is operative.
	Cap
	// Price means the carbon price is operative.
	Price
)

// OperativeValue applies the fallback rule: the cap if present, else the price.
func OperativeValue(capValue, priceValue float64) (float64, Kind) {
	if !math.IsNaN(capValue) {
		return capValue, Cap
	}
	if !math.IsNaN(priceValue) {
		return priceValue, Price
	}
	return math.NaN(), None
}
