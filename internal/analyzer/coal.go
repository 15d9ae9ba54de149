package analyzer

import (
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/tigerroll/switchprep/internal/builder/technology"
	"github.com/tigerroll/switchprep/internal/table"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

// PartLoadOptions selects the hours of the coal part-load check.
type PartLoadOptions struct {
	// ExpectedMinLoad is the minimum-load fraction every direct coal project
	// must share. Zero skips the check.
	ExpectedMinLoad float64
	Period          int
	// TimestampPrefix keeps the hours of the modelled period's sample year.
	TimestampPrefix string
	// ToughDaysFrom is the first tough-day timestamp.
	ToughDaysFrom string
}

// DefaultPartLoadOptions looks at the 2048 period's reserve days.
var DefaultPartLoadOptions = PartLoadOptions{
	ExpectedMinLoad: 0.4,
	Period:          2048,
	TimestampPrefix: "205",
	ToughDaysFrom:   "2051-01-04_00:00",
}

// PartLoad is one coal project's use on the tough days.
type PartLoad struct {
	Project    string
	CapacityMW float64
	Hours      int
	// MeanLoad is the mean of dispatch over capacity in the tough-day hours.
	MeanLoad float64
}

// CoalPartLoad reports how hard the direct coal plants that run at all are
// loaded on tough days. genInfo comes from the scenario's inputs and
// scenarioDir holds dispatch_wide.csv and gen_cap.csv.
func CoalPartLoad(genInfo *table.Table, scenarioDir string, opt PartLoadOptions) ([]PartLoad, error) {
	if err := technology.VerifyCoalMinLoad(genInfo, opt.ExpectedMinLoad); err != nil {
		return nil, err
	}
	var coal []string
	for i := 0; i < genInfo.Len(); i++ {
		p := genInfo.Get(i, "GENERATION_PROJECT")
		if genInfo.Get(i, "gen_energy_source") == technology.Coal && !strings.HasSuffix(p, technology.CCS.Suffix()) {
			coal = append(coal, p)
		}
	}

	dw, err := table.Read(filepath.Join(scenarioDir, "dispatch_wide.csv"))
	if err != nil {
		return nil, err
	}
	if err := dw.RequireColumns("timestamp"); err != nil {
		return nil, err
	}
	var cols []string
	for _, p := range coal {
		if _, ok := dw.Column(p); ok {
			cols = append(cols, p)
		}
	}
	stamps := dw.Strings("timestamp")
	var rows []int
	for i, ts := range stamps {
		if strings.HasPrefix(ts, opt.TimestampPrefix) {
			rows = append(rows, i)
		}
	}

	// dispatch[c][k] is column c at the k-th kept row.
	dispatch := make([][]float64, len(cols))
	for c, col := range cols {
		dispatch[c] = make([]float64, len(rows))
		for k, i := range rows {
			if v, ok := dw.Float(i, col); ok {
				dispatch[c][k] = v
			}
		}
	}
	// Only plants that run and the hours some plant runs.
	var used []int
	for c := range cols {
		if floats.Sum(dispatch[c]) > 0 {
			used = append(used, c)
		}
	}
	var hours []int
	for k, i := range rows {
		if stamps[i] < opt.ToughDaysFrom {
			continue
		}
		var sum float64
		for _, c := range used {
			sum += dispatch[c][k]
		}
		if sum > 0 {
			hours = append(hours, k)
		}
	}

	capacity, err := coalCapacity(filepath.Join(scenarioDir, "gen_cap.csv"), opt.Period)
	if err != nil {
		return nil, err
	}
	out := make([]PartLoad, 0, len(used))
	for _, c := range used {
		project := cols[c]
		mw, ok := capacity[project]
		if !ok || mw <= 0 {
			return nil, exception.InvariantViolation(moduleName,
				"coal project '"+project+"' dispatches but has no capacity in "+strconv.Itoa(opt.Period), nil)
		}
		ratios := make([]float64, len(hours))
		for n, k := range hours {
			ratios[n] = dispatch[c][k] / mw
		}
		pl := PartLoad{Project: project, CapacityMW: mw, Hours: len(hours)}
		if len(ratios) > 0 {
			pl.MeanLoad = stat.Mean(ratios, nil)
		}
		out = append(out, pl)
	}
	return out, nil
}

func coalCapacity(path string, period int) (map[string]float64, error) {
	t, err := table.Read(path)
	if err != nil {
		return nil, err
	}
	if err := t.RequireColumns("GENERATION_PROJECT", "PERIOD", "GenCapacity"); err != nil {
		return nil, err
	}
	want := strconv.Itoa(period)
	out := make(map[string]float64)
	for i := 0; i < t.Len(); i++ {
		if strings.TrimSpace(t.Get(i, "PERIOD")) != want {
			continue
		}
		if v, ok := t.Float(i, "GenCapacity"); ok {
			out[t.Get(i, "GENERATION_PROJECT")] = v
		}
	}
	return out, nil
}

// PartLoadTable renders the part-load report.
func PartLoadTable(loads []PartLoad) *table.Table {
	t := table.New("GENERATION_PROJECT", "capacity_mw", "tough_day_hours", "mean_load_fraction")
	for _, l := range loads {
		t.Append(map[string]string{
			"GENERATION_PROJECT": l.Project,
			"capacity_mw":        table.FormatFloat(l.CapacityMW),
			"tough_day_hours":    strconv.Itoa(l.Hours),
			"mean_load_fraction": table.FormatFloat(l.MeanLoad),
		})
	}
	return t
}
