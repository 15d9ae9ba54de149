package extension

import (
	"path/filepath"

	"github.com/tigerroll/switchprep/internal/table"
)

// Module names of the co-located battery strategies.
const (
	REConnectedStrategy = "china_modules.re_connected_strategy"
	MixedStrategy       = "china_modules.mixed_strategy"
)

// ChargeStorageUpperLimit is the constraint both strategies define.
const ChargeStorageUpperLimit = "Charge_Storage_Upper_Limit_Zone"

// ZoneIndex maps (zone, timepoint) to an aggregate expression. It is built
// once and only read afterwards.
type ZoneIndex struct {
	entries map[ZoneTP]LinearExpr
}

// Get returns the aggregate at (z, t), or the empty expression.
func (ix *ZoneIndex) Get(z, t string) LinearExpr {
	return ix.entries[ZoneTP{z, t}].Clone()
}

// Len is the number of non-empty entries.
func (ix *ZoneIndex) Len() int { return len(ix.entries) }

// BuildZoneIndex sums variable name over gens, at every timepoint the gen
// runs, keyed by the gen's load zone.
func BuildZoneIndex(c *Core, gens []string, name string, active func(g, t string) bool) *ZoneIndex {
	ix := &ZoneIndex{entries: make(map[ZoneTP]LinearExpr)}
	for _, g := range gens {
		z := c.GenLoadZone[g]
		for _, t := range c.Timepoints {
			if active != nil && !active(g, t) {
				continue
			}
			k := ZoneTP{z, t}
			e := ix.entries[k]
			e.Terms = append(e.Terms, Term{Var: V(name, g, t), Coef: 1})
			ix.entries[k] = e
		}
	}
	return ix
}

// centralBatteries returns storage gens that are utility-scale batteries and pass keep.
func centralBatteries(c *Core, keep func(g string) bool) []string {
	var out []string
	for _, g := range c.StorageGens {
		if c.GenTech[g] == BatteryTech && !c.GenIsDistributed[g] && (keep == nil || keep(g)) {
			out = append(out, g)
		}
	}
	return out
}

// batteryCap limits the charging of co-located batteries in a zone to the
// zone's renewable dispatch.
type batteryCap struct {
	name      string
	conflicts []string
	// batteries and rows select what the constraint covers.
	batteries func(m *Model) []string
	rows      func(m *Model) []ZoneTP
	load      func(m *Model, dir string) error
	chargeExp string

	Charge   *ZoneIndex
	Dispatch *ZoneIndex
}

func (b *batteryCap) Name() string                          { return b.name }
func (b *batteryCap) Conflicts() []string                   { return b.conflicts }
func (b *batteryCap) DefineArguments(*Model)                {}
func (b *batteryCap) LoadInputs(m *Model, dir string) error { return b.load(m, dir) }

func (b *batteryCap) DefineComponents(m *Model) error {
	c := m.Core
	b.Charge = BuildZoneIndex(c, b.batteries(m), "ChargeStorage", c.IsGenActive)
	b.Dispatch = BuildZoneIndex(c, c.VariableGens, "DispatchGen", c.IsVariableGenActive)

	charge, err := m.AddExpression(b.chargeExp)
	if err != nil {
		return err
	}
	dispatch, err := m.AddExpression("RenewableDispatchZone")
	if err != nil {
		return err
	}
	for _, zt := range c.ZoneTimepoints {
		charge.Set(b.Charge.Get(zt.Zone, zt.TP), zt.Zone, zt.TP)
		dispatch.Set(b.Dispatch.Get(zt.Zone, zt.TP), zt.Zone, zt.TP)
	}
	for _, zt := range b.rows(m) {
		err := m.AddConstraint(Constraint{
			Name:  ChargeStorageUpperLimit,
			Index: V("", zt.Zone, zt.TP).Index,
			Lhs:   b.Charge.Get(zt.Zone, zt.TP),
			Sense: LessEqual,
			Rhs:   b.Dispatch.Get(zt.Zone, zt.TP),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// loadFlag reads an optional boolean column into a parameter keyed by the
// table's first column. Rows without a value keep the default.
func loadFlag(m *Model, path, keyColumn, column string) error {
	t, ok, err := table.ReadOptional(path)
	if err != nil || !ok {
		return err
	}
	if _, ok := t.Column(column); !ok {
		return nil
	}
	for i, k := range t.Strings(keyColumn) {
		if t.IsNull(i, column) {
			continue
		}
		v := 0.0
		if table.ParseBool(t.Get(i, column), false) {
			v = 1
		}
		m.SetParam(column, v, k)
	}
	return nil
}

// NewREConnectedStrategy constrains every zone flagged zone_is_constrained
// in load_zones.csv: all central batteries of the zone charge only from its
// renewable output.
func NewREConnectedStrategy() Extension {
	return &batteryCap{
		name:      REConnectedStrategy,
		conflicts: []string{MixedStrategy},
		chargeExp: "BatteryCentralCharge",
		load: func(m *Model, dir string) error {
			return loadFlag(m, filepath.Join(dir, "load_zones.csv"), "LOAD_ZONE", "zone_is_constrained")
		},
		batteries: func(m *Model) []string { return centralBatteries(m.Core, nil) },
		rows: func(m *Model) []ZoneTP {
			var out []ZoneTP
			for _, zt := range m.Core.ZoneTimepoints {
				if m.Param("zone_is_constrained", 0, zt.Zone) != 0 {
					out = append(out, zt)
				}
			}
			return out
		},
	}
}

// NewMixedStrategy constrains, in every zone, the central batteries flagged
// gen_is_re_connect in gen_info.csv.
func NewMixedStrategy() Extension {
	return &batteryCap{
		name:      MixedStrategy,
		conflicts: []string{REConnectedStrategy},
		chargeExp: "REBatteryCentralCharge",
		load: func(m *Model, dir string) error {
			return loadFlag(m, filepath.Join(dir, "gen_info.csv"), "GENERATION_PROJECT", "gen_is_re_connect")
		},
		batteries: func(m *Model) []string {
			return centralBatteries(m.Core, func(g string) bool { return m.Param("gen_is_re_connect", 0, g) != 0 })
		},
		rows: func(m *Model) []ZoneTP { return m.Core.ZoneTimepoints },
	}
}
