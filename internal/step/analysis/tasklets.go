package analysis

import (
	"context"
	"math"
	"path/filepath"

	storage "github.com/tigerroll/switchprep/pkg/batch/adapter/storage"
	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
	configbinder "github.com/tigerroll/switchprep/pkg/batch/support/util/configbinder"
	exception "github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/switchprep/pkg/batch/support/util/logger"

	"github.com/tigerroll/switchprep/internal/analyzer"
	"github.com/tigerroll/switchprep/internal/builder/scenario"
	"github.com/tigerroll/switchprep/internal/step/common"
	"github.com/tigerroll/switchprep/internal/table"
)

// Scenario groups written by the solver.
const (
	CarbonCapGroup = "out_carbon_cap"
	StepwiseGroup  = "out_stepwise"
)

// AbatementCurvesConfig binds the abatementCurves properties.
type AbatementCurvesConfig struct {
	OutputConfig `yaml:",squash"`
	Group        string   `yaml:"group"`
	Themes       []string `yaml:"themes"`
	Levels       []int    `yaml:"levels"`
	Period       int      `yaml:"period"`
}

// AbatementCurvesTasklet writes one abatement curve per theme and a table
// of the emission reduction each theme reaches at the reference carbon cost.
type AbatementCurvesTasklet struct {
	common.Base
	ws     storage.Workspace
	config *AbatementCurvesConfig
}

// NewAbatementCurvesTasklet creates an AbatementCurvesTasklet.
func NewAbatementCurvesTasklet(ws storage.Workspace, study *config.StudyConfig, properties map[string]string) (*AbatementCurvesTasklet, error) {
	cfg := &AbatementCurvesConfig{
		OutputConfig: defaultOutput(),
		Group:        CarbonCapGroup,
		Levels:       study.CarbonCapLevels,
		Period:       2048,
	}
	for _, th := range scenario.StudyThemes {
		cfg.Themes = append(cfg.Themes, th.Name)
	}
	if err := configbinder.BindProperties(properties, cfg); err != nil {
		return nil, exception.NewBatchError("abatement_curves_tasklet", "Failed to bind properties", err)
	}
	return &AbatementCurvesTasklet{Base: common.NewBase("abatement_curves_tasklet"), ws: ws, config: cfg}, nil
}

// Execute writes the curves.
func (t *AbatementCurvesTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	grp, err := group(t.ws, t.config.Group)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	out, err := newReporter(t.ws, t.config.OutputConfig, &t.Base)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	level200 := table.New("theme", "period", "scenarios", "reduction_pct_at_reference_cost")
	var records []analyzer.Record
	for _, theme := range t.config.Themes {
		if err := common.Canceled(ctx); err != nil {
			return model.ExitStatusFailed, err
		}
		c, err := analyzer.AbatementCurve(grp, theme, t.config.Levels, t.config.Period)
		if err != nil {
			return model.ExitStatusFailed, err
		}
		if len(c.Points) == 0 {
			logger.Warnf("No solved scenarios for theme %s; curve skipped.", theme)
			continue
		}
		if err := out.write(ctx, "abatement_curve_"+theme, c.Table(), c.Records()); err != nil {
			return model.ExitStatusFailed, err
		}
		if math.IsNaN(c.Level200) {
			logger.Infof("%s: no carbon cost data in %d.", theme, c.Period)
		} else {
			logger.Infof("%s: %.1f%% emission reduction at $%d/tCO2 in %d.", theme, c.Level200, analyzer.ReferenceCarbonCost, c.Period)
		}
		level200.Append(map[string]string{
			"theme":                           theme,
			"period":                          table.FormatFloat(float64(c.Period)),
			"scenarios":                       table.FormatFloat(float64(len(c.Points))),
			"reduction_pct_at_reference_cost": table.FormatFloat(c.Level200),
		})
		records = append(records, analyzer.NewRecord("abatement_level_200", theme, c.Period, "", analyzer.MetricReduction, c.Level200))
	}
	if err := out.write(ctx, "abatement_level_200", level200, records); err != nil {
		return model.ExitStatusFailed, err
	}
	t.Finish(stepExecution)
	return model.ExitStatusCompleted, nil
}

// ComparisonsConfig binds the scenarioComparisons properties.
type ComparisonsConfig struct {
	OutputConfig `yaml:",squash"`
	Group        string   `yaml:"group"`
	Lists        []string `yaml:"lists"`
	Period       int      `yaml:"period"`
}

// ComparisonsTasklet compares the stepwise and reserve scenario series.
type ComparisonsTasklet struct {
	common.Base
	ws     storage.Workspace
	config *ComparisonsConfig
	lists  []analyzer.NamedList
}

// NewComparisonsTasklet creates a ComparisonsTasklet.
func NewComparisonsTasklet(ws storage.Workspace, properties map[string]string) (*ComparisonsTasklet, error) {
	cfg := &ComparisonsConfig{OutputConfig: defaultOutput(), Group: StepwiseGroup, Period: 2048}
	if err := configbinder.BindProperties(properties, cfg); err != nil {
		return nil, exception.NewBatchError("comparisons_tasklet", "Failed to bind properties", err)
	}
	t := &ComparisonsTasklet{Base: common.NewBase("comparisons_tasklet"), ws: ws, config: cfg}
	if len(cfg.Lists) == 0 {
		t.lists = analyzer.StudyComparisons
		return t, nil
	}
	for _, name := range cfg.Lists {
		found := false
		for _, l := range analyzer.StudyComparisons {
			if l.Name == name {
				t.lists = append(t.lists, l)
				found = true
			}
		}
		if !found {
			return nil, exception.NewBatchErrorf("comparisons_tasklet", "unknown comparison '%s'", name)
		}
	}
	return t, nil
}

// Execute writes one report per comparison.
func (t *ComparisonsTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	grp, err := group(t.ws, t.config.Group)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	out, err := newReporter(t.ws, t.config.OutputConfig, &t.Base)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	for _, l := range t.lists {
		if err := common.Canceled(ctx); err != nil {
			return model.ExitStatusFailed, err
		}
		c, err := analyzer.Compare(grp, l, t.config.Period)
		if err != nil {
			return model.ExitStatusFailed, err
		}
		if err := out.write(ctx, "comparison_"+l.Name, c.Table(), c.Records()); err != nil {
			return model.ExitStatusFailed, err
		}
		logger.Infof("Compared %d scenarios (%s) in %d.", len(c.Entries), l.Name, c.Period)
	}
	t.Finish(stepExecution)
	return model.ExitStatusCompleted, nil
}

// StepwiseSummaryConfig binds the stepwiseSummary properties.
type StepwiseSummaryConfig struct {
	OutputConfig `yaml:",squash"`
	Group        string   `yaml:"group"`
	Scenarios    []string `yaml:"scenarios"`
	Years        []int    `yaml:"years"`
	// FirstPeriod and LastPeriod bound the trajectory export.
	FirstPeriod int `yaml:"first_period"`
	LastPeriod  int `yaml:"last_period"`
}

// StepwiseSummaryTasklet writes emissions and LCOE of the headline
// scenarios by year, and their full trajectories.
type StepwiseSummaryTasklet struct {
	common.Base
	ws     storage.Workspace
	config *StepwiseSummaryConfig
}

// NewStepwiseSummaryTasklet creates a StepwiseSummaryTasklet.
func NewStepwiseSummaryTasklet(ws storage.Workspace, properties map[string]string) (*StepwiseSummaryTasklet, error) {
	cfg := &StepwiseSummaryConfig{
		OutputConfig: defaultOutput(),
		Group:        StepwiseGroup,
		Scenarios:    analyzer.StudySummaryScenarios,
		Years:        analyzer.StudySummaryYears,
		FirstPeriod:  2028,
		LastPeriod:   2068,
	}
	if err := configbinder.BindProperties(properties, cfg); err != nil {
		return nil, exception.NewBatchError("stepwise_summary_tasklet", "Failed to bind properties", err)
	}
	return &StepwiseSummaryTasklet{Base: common.NewBase("stepwise_summary_tasklet"), ws: ws, config: cfg}, nil
}

// Execute writes the summary and the trajectories.
func (t *StepwiseSummaryTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	if err := common.Canceled(ctx); err != nil {
		return model.ExitStatusFailed, err
	}
	grp, err := group(t.ws, t.config.Group)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	out, err := newReporter(t.ws, t.config.OutputConfig, &t.Base)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	summary, records, err := analyzer.StepwiseSummary(grp, t.config.Scenarios, analyzer.StudySummaryNames, t.config.Years)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	if err := out.write(ctx, "stepwise_summary", summary, records); err != nil {
		return model.ExitStatusFailed, err
	}

	labels := make(map[string]string, len(analyzer.StudySummaryNames))
	for _, e := range analyzer.StudySummaryNames {
		labels[e.Scenario] = e.Label
	}
	var trajectories []analyzer.Record
	for _, s := range t.config.Scenarios {
		r, err := analyzer.ReadScenario(filepath.Join(grp, s))
		if err != nil {
			return model.ExitStatusFailed, err
		}
		label := s
		if l, ok := labels[s]; ok {
			label = l
		}
		trajectories = append(trajectories, analyzer.Trajectory(r, label, t.config.FirstPeriod, t.config.LastPeriod)...)
	}
	if err := out.write(ctx, "trajectories", recordTable(trajectories), trajectories); err != nil {
		return model.ExitStatusFailed, err
	}
	logger.Infof("Summarized %d scenarios for years %v.", len(t.config.Scenarios), t.config.Years)
	t.Finish(stepExecution)
	return model.ExitStatusCompleted, nil
}

// recordTable renders long-format records as CSV.
func recordTable(records []analyzer.Record) *table.Table {
	t := table.New("report", "scenario", "period", "category", "metric", "value")
	for _, r := range records {
		t.Append(map[string]string{
			"report":   r.Report,
			"scenario": r.Scenario,
			"period":   table.FormatFloat(float64(r.Period)),
			"category": r.Category,
			"metric":   r.Metric,
			"value":    table.FormatFloat(r.Value),
		})
	}
	return t
}

// CoalPartLoadConfig binds the coalPartLoad properties.
type CoalPartLoadConfig struct {
	OutputConfig    `yaml:",squash"`
	Group           string  `yaml:"group"`
	Scenario        string  `yaml:"scenario"`
	GenInfo         string  `yaml:"gen_info"`
	ExpectedMinLoad float64 `yaml:"expected_min_load"`
	Period          int     `yaml:"period"`
	TimestampPrefix string  `yaml:"timestamp_prefix"`
	ToughDaysFrom   string  `yaml:"tough_days_from"`
}

// CoalPartLoadTasklet reports how hard the direct coal plants run on the
// tough days of the highest reserve scenario.
type CoalPartLoadTasklet struct {
	common.Base
	ws     storage.Workspace
	config *CoalPartLoadConfig
}

// NewCoalPartLoadTasklet creates a CoalPartLoadTasklet.
func NewCoalPartLoadTasklet(ws storage.Workspace, properties map[string]string) (*CoalPartLoadTasklet, error) {
	def := analyzer.DefaultPartLoadOptions
	cfg := &CoalPartLoadConfig{
		OutputConfig:    defaultOutput(),
		Group:           StepwiseGroup,
		Scenario:        "step_11_tough_day_reserves_30",
		GenInfo:         "inputs_extended_reserves/gen_info.csv",
		ExpectedMinLoad: def.ExpectedMinLoad,
		Period:          def.Period,
		TimestampPrefix: def.TimestampPrefix,
		ToughDaysFrom:   def.ToughDaysFrom,
	}
	if err := configbinder.BindProperties(properties, cfg); err != nil {
		return nil, exception.NewBatchError("coal_part_load_tasklet", "Failed to bind properties", err)
	}
	return &CoalPartLoadTasklet{Base: common.NewBase("coal_part_load_tasklet"), ws: ws, config: cfg}, nil
}

// Execute writes the part-load report.
func (t *CoalPartLoadTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	if err := common.Canceled(ctx); err != nil {
		return model.ExitStatusFailed, err
	}
	giPath, err := t.ws.Path(t.config.GenInfo)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	genInfo, err := table.Read(giPath)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	scenarioDir, err := t.ws.Path(t.config.Group, t.config.Scenario)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	loads, err := analyzer.CoalPartLoad(genInfo, scenarioDir, analyzer.PartLoadOptions{
		ExpectedMinLoad: t.config.ExpectedMinLoad,
		Period:          t.config.Period,
		TimestampPrefix: t.config.TimestampPrefix,
		ToughDaysFrom:   t.config.ToughDaysFrom,
	})
	if err != nil {
		return model.ExitStatusFailed, err
	}
	records := make([]analyzer.Record, 0, len(loads))
	for _, l := range loads {
		records = append(records, analyzer.NewRecord("coal_part_load", t.config.Scenario, t.config.Period, l.Project, "mean_load_fraction", l.MeanLoad))
		logger.Infof("%s: %.0f MW, mean load %.3f over %d tough-day hours.", l.Project, l.CapacityMW, l.MeanLoad, l.Hours)
	}
	if err := t.writeReport(ctx, analyzer.PartLoadTable(loads), records); err != nil {
		return model.ExitStatusFailed, err
	}
	t.Finish(stepExecution)
	return model.ExitStatusCompleted, nil
}

func (t *CoalPartLoadTasklet) writeReport(ctx context.Context, tbl *table.Table, records []analyzer.Record) error {
	out, err := newReporter(t.ws, t.config.OutputConfig, &t.Base)
	if err != nil {
		return err
	}
	return out.write(ctx, "coal_part_load", tbl, records)
}
