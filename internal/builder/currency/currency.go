// Package currency rebases cost columns to the study's base financial year.
//
// Each cost column has a source vintage, and each vintage has one deflator.
// The mapping is explicit: rebasing a column whose vintage is unknown is an error.
package currency

import (
	"fmt"
	"math"
	"sort"

	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

const moduleName = "currency"

// GDPDeflator holds the US GDP implicit price deflator (FRED GDPDEF, 2017=100)
// for the years the study converts from or to.
var GDPDeflator = map[int]float64{
	1995: 71.820,
	2007: 92.638,
	2008: 94.423,
	2010: 96.162,
	2021: 118.866,
	2022: 127.215,
}

// Deflator is a price-level ratio. Multiplying a cost by it converts the cost to the target year.
type Deflator float64

// Identity leaves values unchanged.
const Identity Deflator = 1

// Between returns the deflator that converts fromYear dollars to toYear dollars.
func Between(fromYear, toYear int) (Deflator, error) {
	from, ok := GDPDeflator[fromYear]
	if !ok {
		return 0, exception.NewBatchErrorf(moduleName, "no GDP deflator for %d", fromYear)
	}
	to, ok := GDPDeflator[toYear]
	if !ok {
		return 0, exception.NewBatchErrorf(moduleName, "no GDP deflator for %d", toYear)
	}
	return Deflator(to / from), nil
}

// MustBetween is Between for years known to be in GDPDeflator.
func MustBetween(fromYear, toYear int) Deflator {
	d, err := Between(fromYear, toYear)
	if err != nil {
		panic(err)
	}
	return d
}

// Compose returns the deflator equivalent to applying d and then each of others.
func (d Deflator) Compose(others ...Deflator) Deflator {
	out := d
	for _, o := range others {
		out *= o
	}
	return out
}

// Apply converts a single value.
func (d Deflator) Apply(v float64) float64 {
	return v * float64(d)
}

// Vintage names the source of a cost column.
type Vintage string

const (
	// ATB costs are in 2021 dollars.
	ATB Vintage = "atb"
	// SwitchChina costs are in 2010 dollars.
	SwitchChina Vintage = "switch_china"
)

// BaseYear is the study's base financial year.
const BaseYear = 2022

// Deflators maps each vintage to the deflator that brings it to BaseYear.
var Deflators = map[Vintage]Deflator{
	ATB:         MustBetween(2021, BaseYear),
	SwitchChina: MustBetween(2010, BaseYear),
}

// VintageMap records the vintage of every cost column by table name.
type VintageMap map[string]map[string]Vintage

// StudyVintages covers every cost column the builder rebases.
var StudyVintages = VintageMap{
	"gen_build_costs": {
		"gen_overnight_cost":                SwitchChina,
		"gen_fixed_om":                      SwitchChina,
		"gen_storage_energy_overnight_cost": SwitchChina,
	},
	"gen_info": {
		"gen_variable_om":         SwitchChina,
		"gen_connect_cost_per_mw": SwitchChina,
	},
}

// Columns returns the cost columns recorded for tableName, sorted.
func (m VintageMap) Columns(tableName string) []string {
	cols := make([]string, 0, len(m[tableName]))
	for c := range m[tableName] {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Normalize rebases every listed column of t to BaseYear using the
// deflator of the column's vintage. With no columns given, all columns
// recorded for tableName are rebased.
func (m VintageMap) Normalize(tableName string, t *table.Table, columns ...string) error {
	if len(columns) == 0 {
		columns = m.Columns(tableName)
	}
	for _, c := range columns {
		v, ok := m[tableName][c]
		if !ok {
			return exception.NewBatchErrorf(moduleName, "no vintage recorded for %s.%s", tableName, c)
		}
		d, ok := Deflators[v]
		if !ok {
			return exception.NewBatchErrorf(moduleName, "no deflator for vintage '%s'", v)
		}
		if err := Rebase(t, []string{c}, d); err != nil {
			return err
		}
	}
	return nil
}

// Rebase multiplies the non-null cells of columns by d.
// A missing column or a non-numeric cell is exception.ErrSchemaMismatch.
func Rebase(t *table.Table, columns []string, d Deflator) error {
	if err := t.RequireColumns(columns...); err != nil {
		return err
	}
	for _, c := range columns {
		values, err := t.Floats(c)
		if err != nil {
			return err
		}
		for i, v := range values {
			if math.IsNaN(v) {
				continue
			}
			t.SetFloat(i, c, d.Apply(v))
		}
	}
	return nil
}

// String renders the ratio for logs.
func (d Deflator) String() string {
	return fmt.Sprintf("x%.6f", float64(d))
}
