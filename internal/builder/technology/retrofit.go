package technology

import (
	"fmt"
	"math"
	"strings"

	"github.com/tigerroll/switchprep/internal/builder/currency"
	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

// Coal is the energy source whose projects get retrofit variants.
const Coal = "Coal"

// RetrofitKind identifies a retrofit variant. Its name is the project suffix.
type RetrofitKind string

const (
	// CCS adds carbon capture to the base plant.
	CCS RetrofitKind = "CCS"
	// H2 converts the base plant to burn hydrogen.
	H2 RetrofitKind = "H2"
)

// Suffix is appended to project ids, dbids and technologies.
func (k RetrofitKind) Suffix() string { return "_" + string(k) }

// RetrofitKinds lists the variants in the order they are emitted.
var RetrofitKinds = []RetrofitKind{CCS, H2}

// Linkage columns of gen_retrofits.csv.
const (
	BaseProjectColumn     = "base_gen_project"
	RetrofitProjectColumn = "retrofit_gen_project"
)

// RetrofitCosts holds the CCS economics, from the EEDIDA/TSF reference plant
// rescaled to the base plant's gross output.
type RetrofitCosts struct {
	CCSCaptureEfficiency float64 // Share of CO2 captured.
	CCSEnergyLoad        float64 // Share of gross output consumed by capture.
	// Variable O&M: the non-CO2 share scaled by heat input (2010$ baseline)
	// plus CO2-related materials (ATB dollars).
	CCSVariableOMScaled   float64
	CCSVariableOMAbsolute float64
	CCSOvernightCost      float64 // Capital for the capture system, ATB dollars per MW.
	// Fixed O&M: labor scaled against the 2010$ baseline plus taxes and
	// insurance in ATB dollars, added to the base plant's fixed O&M.
	CCSFixedOMScaled   float64
	CCSFixedOMAbsolute float64
	H2OvernightCost    float64 // Burner retrofit, per MW.
	MinBuildYear       int     // Retrofits can be built from this year on.
}

// StudyRetrofitCosts are the values the study uses.
var StudyRetrofitCosts = RetrofitCosts{
	CCSCaptureEfficiency:  0.90,
	CCSEnergyLoad:         0.0856,
	CCSVariableOMScaled:   3 * 0.2857,
	CCSVariableOMAbsolute: 3.1120,
	CCSOvernightCost:      922000,
	CCSFixedOMScaled:      0.3089 * 5580,
	CCSFixedOMAbsolute:    14564,
	H2OvernightCost:       10000,
	MinBuildYear:          2023,
}

// Retrofits is the output of AddRetrofits.
type Retrofits struct {
	GenInfo    *table.Table
	BuildCosts *table.Table
	Linkage    *table.Table
}

// AddRetrofits emits a CCS and a hydrogen variant of every coal project,
// with incremental build costs and a linkage row pointing at the base plant.
//
// Parameters:
//
//	genInfo: gen_info.csv of the target directory.
//	buildCosts: gen_build_costs.csv. Only coal rows from c.MinBuildYear on get retrofit costs.
//	c: Retrofit cost adders, in ATB dollars. They are converted to the model's currency year.
//
// Returns:
//
//	Retrofits holding the extended tables and gen_retrofits.csv.
//	exception.ErrSchemaMismatch when a required column is missing.
func AddRetrofits(genInfo, buildCosts *table.Table, c RetrofitCosts) (Retrofits, error) {
	if err := genInfo.RequireColumns("GENERATION_PROJECT", "gen_tech", "gen_energy_source", "gen_variable_om"); err != nil {
		return Retrofits{}, err
	}
	if err := buildCosts.RequireColumns("GENERATION_PROJECT", "build_year", "gen_overnight_cost", "gen_fixed_om"); err != nil {
		return Retrofits{}, err
	}
	sc := currency.Deflators[currency.SwitchChina]
	atb := currency.Deflators[currency.ATB]

	base := genInfo.Filter(func(i int) bool { return genInfo.Get(i, "gen_energy_source") == Coal })
	coal := make(map[string]bool, base.Len())
	for _, p := range base.Strings("GENERATION_PROJECT") {
		coal[p] = true
	}
	baseCosts := buildCosts.Filter(func(i int) bool {
		y, ok := buildCosts.Float(i, "build_year")
		return coal[buildCosts.Get(i, "GENERATION_PROJECT")] && ok && y >= float64(c.MinBuildYear)
	})

	outInfo := []*table.Table{genInfo}
	outCosts := []*table.Table{buildCosts}
	linkage := table.New(BaseProjectColumn, RetrofitProjectColumn)

	for _, kind := range RetrofitKinds {
		gi := base.Clone()
		for i := 0; i < gi.Len(); i++ {
			for _, col := range []string{"GENERATION_PROJECT", "gen_dbid", "gen_tech"} {
				if _, ok := gi.Column(col); ok {
					gi.Set(i, col, gi.Get(i, col)+kind.Suffix())
				}
			}
			switch kind {
			case CCS:
				gi.SetFloat(i, "gen_ccs_capture_efficiency", c.CCSCaptureEfficiency)
				gi.SetFloat(i, "gen_ccs_energy_load", c.CCSEnergyLoad)
				vom, _ := gi.Float(i, "gen_variable_om")
				gi.SetFloat(i, "gen_variable_om", vom+sc.Apply(c.CCSVariableOMScaled)+atb.Apply(c.CCSVariableOMAbsolute))
			case H2:
				gi.Set(i, "gen_energy_source", Hydrogen)
			}
		}
		outInfo = append(outInfo, gi)

		bc := baseCosts.Clone()
		for i := 0; i < bc.Len(); i++ {
			bc.Set(i, "GENERATION_PROJECT", bc.Get(i, "GENERATION_PROJECT")+kind.Suffix())
			switch kind {
			case CCS:
				bc.SetFloat(i, "gen_overnight_cost", atb.Apply(c.CCSOvernightCost))
				fom, _ := bc.Float(i, "gen_fixed_om")
				bc.SetFloat(i, "gen_fixed_om", fom+sc.Apply(c.CCSFixedOMScaled)+atb.Apply(c.CCSFixedOMAbsolute))
			case H2:
				bc.SetFloat(i, "gen_overnight_cost", c.H2OvernightCost)
			}
		}
		outCosts = append(outCosts, bc)

		for _, p := range base.Strings("GENERATION_PROJECT") {
			linkage.Append(map[string]string{BaseProjectColumn: p, RetrofitProjectColumn: p + kind.Suffix()})
		}
	}

	return Retrofits{
		GenInfo:    table.Concat(outInfo...),
		BuildCosts: table.Concat(outCosts...),
		Linkage:    linkage,
	}, nil
}

// WithoutKind drops the rows whose column ends with the kind's suffix.
func WithoutKind(t *table.Table, column string, kind RetrofitKind) *table.Table {
	return t.Filter(func(i int) bool { return !strings.HasSuffix(t.Get(i, column), kind.Suffix()) })
}

// ApplyATBLife sets the ATB cost-recovery life and zero variable O&M for
// projects whose energy source is in sources.
func ApplyATBLife(genInfo *table.Table, sources []string, maxAge, variableOM float64) (int, error) {
	if err := genInfo.RequireColumns("gen_energy_source", "gen_max_age", "gen_variable_om"); err != nil {
		return 0, err
	}
	set := make(map[string]bool, len(sources))
	for _, s := range sources {
		set[s] = true
	}
	n := 0
	for i := 0; i < genInfo.Len(); i++ {
		if set[genInfo.Get(i, "gen_energy_source")] {
			genInfo.SetFloat(i, "gen_max_age", maxAge)
			genInfo.SetFloat(i, "gen_variable_om", variableOM)
			n++
		}
	}
	return n, nil
}

// ATBSources are the energy sources whose costs come from the ATB.
var ATBSources = []string{"Storage", "Solar", "Wind"}

// BlankColumn sets every cell of column to Null, adding the column if needed.
func BlankColumn(t *table.Table, column string) {
	t.AddColumn(column, table.Null)
	for i := 0; i < t.Len(); i++ {
		t.Set(i, column, table.Null)
	}
}

// VerifyCoalMinLoad checks that every coal project without carbon capture
// has the expected minimum-load fraction. Zero expected disables the check.
func VerifyCoalMinLoad(genInfo *table.Table, expected float64) error {
	if expected == 0 {
		return nil
	}
	if err := genInfo.RequireColumns("GENERATION_PROJECT", "gen_energy_source", "gen_min_load_fraction"); err != nil {
		return err
	}
	var bad []string
	for i := 0; i < genInfo.Len(); i++ {
		p := genInfo.Get(i, "GENERATION_PROJECT")
		if genInfo.Get(i, "gen_energy_source") != Coal || strings.HasSuffix(p, CCS.Suffix()) {
			continue
		}
		v, ok := genInfo.Float(i, "gen_min_load_fraction")
		if !ok || math.Abs(v-expected) > 1e-9 {
			bad = append(bad, p)
		}
	}
	if len(bad) > 0 {
		return exception.InvariantViolation(moduleName,
			fmt.Sprintf("coal projects without minimum load fraction %g: %s", expected, strings.Join(bad, ", ")), nil)
	}
	return nil
}
