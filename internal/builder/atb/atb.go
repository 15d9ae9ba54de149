// Package atb reads NREL Annual Technology Baseline costs from the study
// workbook and applies them to gen_build_costs.
package atb

import (
	"errors"
	"io/fs"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tigerroll/switchprep/internal/builder/currency"
	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

const moduleName = "atb"

// Sheet names and the build-cost column each one updates.
var Sheets = []struct {
	Name   string
	Column string
}{
	{"Capital Cost kW", "gen_overnight_cost"},
	{"Fixed O&M", "gen_fixed_om"},
	{"Capital Cost kWh", "gen_storage_energy_overnight_cost"},
}

// TechMap maps the workbook's Technology column to gen_tech.
var TechMap = map[string]string{
	"Central_PV":      "CentralTrackingPV",
	"Commercial_PV":   "FlatDistPV",
	"Residential_PV":  "SlopedDistPV",
	"Wind":            "OnshoreWind",
	"Offshore_Wind":   "OffshoreWind",
	"Battery_Storage": "Battery_Bulk",
}

// Year range of the cost columns.
const (
	FirstYear = 2021
	LastYear  = 2050
)

// Scale converts ATB $/kW in 2021 dollars to $/MW in base-year dollars.
var Scale = currency.Deflators[currency.ATB].Compose(1000)

type key struct {
	tech string
	year int
}

// Costs holds workbook values per build-cost column, keyed by (gen_tech, year).
type Costs struct {
	values map[string]map[key]float64
}

// Read loads the cost sheets. Values are multiplied by scale.
// A missing workbook is exception.ErrMissingInput.
func Read(path string, scale currency.Deflator) (*Costs, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, exception.MissingInput(moduleName, path, err)
		}
		return nil, exception.NewBatchErrorf(moduleName, "failed to stat '%s'", path, err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, exception.NewBatchErrorf(moduleName, "failed to open workbook '%s'", path, err)
	}
	defer f.Close()

	c := &Costs{values: make(map[string]map[key]float64)}
	for _, s := range Sheets {
		rows, err := f.GetRows(s.Name)
		if err != nil {
			return nil, exception.SchemaMismatch(moduleName, "workbook '%s' has no sheet '%s'", path, s.Name)
		}
		values, err := parseSheet(s.Name, rows, scale)
		if err != nil {
			return nil, err
		}
		c.values[s.Column] = values
		logger.Debugf("ATB sheet '%s': %d values.", s.Name, len(values))
	}
	return c, nil
}

func parseSheet(sheet string, rows [][]string, scale currency.Deflator) (map[key]float64, error) {
	if len(rows) == 0 {
		return nil, exception.SchemaMismatch(moduleName, "sheet '%s' is empty", sheet)
	}
	techCol := -1
	years := make(map[int]int)
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "Technology" {
			techCol = i
			continue
		}
		if y, err := strconv.Atoi(h); err == nil && y >= FirstYear && y <= LastYear {
			years[i] = y
		}
	}
	if techCol < 0 {
		return nil, exception.SchemaMismatch(moduleName, "sheet '%s' has no 'Technology' column", sheet)
	}
	out := make(map[key]float64)
	for _, row := range rows[1:] {
		if techCol >= len(row) {
			continue
		}
		tech, ok := TechMap[strings.TrimSpace(row[techCol])]
		if !ok {
			continue
		}
		for col, year := range years {
			if col >= len(row) {
				continue
			}
			v, err := table.ParseFloat(row[col])
			if err != nil {
				return nil, exception.SchemaMismatch(moduleName, "sheet '%s' %s/%d: '%s' is not numeric", sheet, tech, year, row[col])
			}
			if math.IsNaN(v) {
				continue
			}
			out[key{tech, year}] = scale.Apply(v)
		}
	}
	return out, nil
}

// Technologies returns the gen_tech values that have any cost, sorted.
func (c *Costs) Technologies() []string {
	set := make(map[string]bool)
	for _, m := range c.values {
		for k := range m {
			set[k.tech] = true
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Apply overwrites build-cost cells for every (gen_tech, build_year) the
// workbook covers. gen_tech is looked up from genInfo. Cells the workbook
// does not cover are left as they are. It returns the number of cells updated.
func (c *Costs) Apply(buildCosts, genInfo *table.Table) (int, error) {
	if err := genInfo.RequireColumns("GENERATION_PROJECT", "gen_tech"); err != nil {
		return 0, err
	}
	if err := buildCosts.RequireColumns("GENERATION_PROJECT", "build_year"); err != nil {
		return 0, err
	}
	techOf := make(map[string]string, genInfo.Len())
	for i := 0; i < genInfo.Len(); i++ {
		techOf[genInfo.Get(i, "GENERATION_PROJECT")] = genInfo.Get(i, "gen_tech")
	}
	updated := 0
	for i := 0; i < buildCosts.Len(); i++ {
		tech, ok := techOf[buildCosts.Get(i, "GENERATION_PROJECT")]
		if !ok {
			continue
		}
		year, ok := buildCosts.Float(i, "build_year")
		if !ok {
			continue
		}
		k := key{tech, int(year)}
		for _, s := range Sheets {
			if v, ok := c.values[s.Column][k]; ok {
				buildCosts.SetFloat(i, s.Column, v)
				updated++
			}
		}
	}
	return updated, nil
}
