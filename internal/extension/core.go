package extension

import (
	"path/filepath"
	"sort"
	"strconv"

	"github.com/tigerroll/switchprep/internal/builder/timeline"
	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

// BatteryTech is the gen_tech of utility-scale batteries.
const BatteryTech = "Battery_Storage"

// DefaultBalancingArea is zone_balancing_area when load_zones.csv leaves it blank.
const DefaultBalancingArea = "."

// ZoneTP indexes by (load zone, timepoint).
type ZoneTP struct{ Zone, TP string }

// AreaTP indexes by (balancing area, timepoint).
type AreaTP struct{ Area, TP string }

// Core holds the base sets and parameters of the external model that the
// extensions refer to.
type Core struct {
	Time *timeline.Structure

	LoadZones         []string
	ZoneBalancingArea map[string]string

	Timepoints    []string
	Timeseries    []string
	Periods       []int
	TSInPeriod    map[int][]string
	TSScaleToYear map[string]float64
	TSPeriod      map[string]int

	GenerationProjects []string
	GenTech            map[string]string
	GenLoadZone        map[string]string
	GenIsDistributed   map[string]bool
	GenIsVariable      map[string]bool
	StorageGens        []string
	VariableGens       []string
	// VariableGenTPs holds the (gen, timepoint) pairs with a capacity factor.
	VariableGenTPs map[string]map[string]bool
	// GenActivePeriods holds the periods in which some vintage of a gen is
	// still in service. Nil when the inputs carry no build years.
	GenActivePeriods map[string]map[int]bool

	LzDemandMW              map[ZoneTP]float64
	ZoneTimepoints          []ZoneTP
	BalancingAreaTimepoints []AreaTP

	genMaxAge map[string]float64
}

// PeriodOfTimepoint returns the period of t.
func (c *Core) PeriodOfTimepoint(t string) (int, bool) {
	ts, ok := c.Time.Timepoints[t]
	if !ok {
		return 0, false
	}
	p, ok := c.TSPeriod[ts]
	return p, ok
}

// IsGenActive reports whether gen g can operate at timepoint t.
func (c *Core) IsGenActive(g, t string) bool {
	if c.GenActivePeriods == nil {
		return true
	}
	p, ok := c.PeriodOfTimepoint(t)
	return ok && c.GenActivePeriods[g][p]
}

// IsVariableGenActive reports whether variable gen g runs at timepoint t.
func (c *Core) IsVariableGenActive(g, t string) bool {
	return c.VariableGenTPs[g][t] && c.IsGenActive(g, t)
}

// PeriodLabel renders a period id as used in variable indexes.
func PeriodLabel(p int) string { return strconv.Itoa(p) }

// LoadCore reads the base sets from an inputs directory.
func LoadCore(dir string) (*Core, error) {
	st, err := timeline.Load(dir)
	if err != nil {
		return nil, err
	}
	if err := st.Verify(); err != nil {
		return nil, err
	}
	c := &Core{
		Time:              st,
		ZoneBalancingArea: make(map[string]string),
		TSInPeriod:        make(map[int][]string),
		TSScaleToYear:     make(map[string]float64),
		TSPeriod:          make(map[string]int),
		GenTech:           make(map[string]string),
		GenLoadZone:       make(map[string]string),
		GenIsDistributed:  make(map[string]bool),
		GenIsVariable:     make(map[string]bool),
		VariableGenTPs:    make(map[string]map[string]bool),
		LzDemandMW:        make(map[ZoneTP]float64),
	}

	c.Timepoints = st.TimepointIDs()
	for _, p := range st.Periods {
		c.Periods = append(c.Periods, p.ID)
	}
	sort.Ints(c.Periods)
	for _, ts := range st.Timeseries {
		p, _ := st.Period(ts.Period)
		c.Timeseries = append(c.Timeseries, ts.ID)
		c.TSPeriod[ts.ID] = ts.Period
		c.TSInPeriod[ts.Period] = append(c.TSInPeriod[ts.Period], ts.ID)
		c.TSScaleToYear[ts.ID] = ts.ScaleToPeriod / float64(p.Years())
	}

	if err := c.loadZones(dir); err != nil {
		return nil, err
	}
	if err := c.loadGens(dir); err != nil {
		return nil, err
	}
	if err := c.loadBuildYears(dir); err != nil {
		return nil, err
	}
	if err := c.loadDemand(dir); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Core) loadZones(dir string) error {
	lz, err := table.Read(filepath.Join(dir, "load_zones.csv"))
	if err != nil {
		return err
	}
	if err := lz.RequireColumns("LOAD_ZONE"); err != nil {
		return err
	}
	areas := make(map[string]bool)
	var areaOrder []string
	for i, z := range lz.Strings("LOAD_ZONE") {
		c.LoadZones = append(c.LoadZones, z)
		area := DefaultBalancingArea
		if !lz.IsNull(i, "zone_balancing_area") {
			area = lz.Get(i, "zone_balancing_area")
		}
		c.ZoneBalancingArea[z] = area
		if !areas[area] {
			areas[area] = true
			areaOrder = append(areaOrder, area)
		}
		for _, t := range c.Timepoints {
			c.ZoneTimepoints = append(c.ZoneTimepoints, ZoneTP{z, t})
		}
	}
	for _, a := range areaOrder {
		for _, t := range c.Timepoints {
			c.BalancingAreaTimepoints = append(c.BalancingAreaTimepoints, AreaTP{a, t})
		}
	}
	return nil
}

func (c *Core) loadGens(dir string) error {
	c.genMaxAge = make(map[string]float64)
	gi, err := table.Read(filepath.Join(dir, "gen_info.csv"))
	if err != nil {
		return err
	}
	if err := gi.RequireColumns("GENERATION_PROJECT", "gen_tech", "gen_load_zone"); err != nil {
		return err
	}
	for i, g := range gi.Strings("GENERATION_PROJECT") {
		c.GenerationProjects = append(c.GenerationProjects, g)
		c.GenTech[g] = gi.Get(i, "gen_tech")
		c.GenLoadZone[g] = gi.Get(i, "gen_load_zone")
		c.GenIsDistributed[g] = table.ParseBool(gi.Get(i, "gen_is_distributed"), false)
		c.GenIsVariable[g] = table.ParseBool(gi.Get(i, "gen_is_variable"), false)
		if c.GenIsVariable[g] {
			c.VariableGens = append(c.VariableGens, g)
		}
		if !gi.IsNull(i, "gen_storage_efficiency") {
			c.StorageGens = append(c.StorageGens, g)
		}
		if age, ok := gi.Float(i, "gen_max_age"); ok {
			c.genMaxAge[g] = age
		}
	}

	vcf, ok, err := table.ReadOptional(filepath.Join(dir, "variable_capacity_factors.csv"))
	if err != nil {
		return err
	}
	if !ok {
		for _, g := range c.VariableGens {
			c.VariableGenTPs[g] = make(map[string]bool, len(c.Timepoints))
			for _, t := range c.Timepoints {
				c.VariableGenTPs[g][t] = true
			}
		}
		return nil
	}
	if err := vcf.RequireColumns("GENERATION_PROJECT", "timepoint"); err != nil {
		return err
	}
	tps := vcf.Strings("timepoint")
	for i, g := range vcf.Strings("GENERATION_PROJECT") {
		if !c.GenIsVariable[g] {
			continue
		}
		if c.VariableGenTPs[g] == nil {
			c.VariableGenTPs[g] = make(map[string]bool)
		}
		c.VariableGenTPs[g][tps[i]] = true
	}
	return nil
}

// loadBuildYears derives GenActivePeriods from gen_build_predetermined.csv
// and the investment-period rows of gen_build_costs.csv. A vintage built in
// a period comes online at the period start and serves while
// online <= period_start < online + gen_max_age. Gens without gen_max_age
// never retire.
func (c *Core) loadBuildYears(dir string) error {
	isPeriod := make(map[int]bool, len(c.Periods))
	for _, p := range c.Periods {
		isPeriod[p] = true
	}
	vintages := make(map[string][]int)
	found := false
	for _, f := range []struct {
		name        string
		periodsOnly bool
	}{
		{"gen_build_predetermined.csv", false},
		{"gen_build_costs.csv", true},
	} {
		t, ok, err := table.ReadOptional(filepath.Join(dir, f.name))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := t.RequireColumns("GENERATION_PROJECT", "build_year"); err != nil {
			return err
		}
		found = true
		for i, g := range t.Strings("GENERATION_PROJECT") {
			y, ok := t.Float(i, "build_year")
			if !ok {
				return exception.SchemaMismatch(moduleName, "%s row %d has no build_year", f.name, i)
			}
			if f.periodsOnly && !isPeriod[int(y)] {
				continue
			}
			vintages[g] = append(vintages[g], int(y))
		}
	}
	if !found {
		return nil
	}

	c.GenActivePeriods = make(map[string]map[int]bool, len(vintages))
	for g, years := range vintages {
		age, limited := c.genMaxAge[g]
		for _, y := range years {
			online := float64(y)
			if isPeriod[y] {
				p, _ := c.Time.Period(y)
				online = float64(p.Start)
			}
			for _, id := range c.Periods {
				p, _ := c.Time.Period(id)
				start := float64(p.Start)
				if online > start || (limited && start >= online+age) {
					continue
				}
				if c.GenActivePeriods[g] == nil {
					c.GenActivePeriods[g] = make(map[int]bool)
				}
				c.GenActivePeriods[g][id] = true
			}
		}
	}
	return nil
}

func (c *Core) loadDemand(dir string) error {
	loads, err := table.Read(filepath.Join(dir, "loads.csv"))
	if err != nil {
		return err
	}
	if err := loads.RequireColumns("LOAD_ZONE", "TIMEPOINT", "zone_demand_mw"); err != nil {
		return err
	}
	demand, err := loads.Floats("zone_demand_mw")
	if err != nil {
		return err
	}
	tps := loads.Strings("TIMEPOINT")
	for i, z := range loads.Strings("LOAD_ZONE") {
		if _, ok := c.ZoneBalancingArea[z]; !ok {
			return exception.SchemaMismatch(moduleName, "loads.csv row %d: unknown load zone '%s'", i, z)
		}
		c.LzDemandMW[ZoneTP{z, tps[i]}] = demand[i]
	}
	return nil
}
