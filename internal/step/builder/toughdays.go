package builder

import (
	"context"

	storage "github.com/tigerroll/switchprep/pkg/batch/adapter/storage"
	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
	configbinder "github.com/tigerroll/switchprep/pkg/batch/support/util/configbinder"
	exception "github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/switchprep/pkg/batch/support/util/logger"

	"github.com/tigerroll/switchprep/internal/builder/horizon"
	"github.com/tigerroll/switchprep/internal/builder/inputdir"
	"github.com/tigerroll/switchprep/internal/builder/scenario"
	"github.com/tigerroll/switchprep/internal/builder/toughdays"
	"github.com/tigerroll/switchprep/internal/step/common"
	"github.com/tigerroll/switchprep/internal/table"
)

// SelectionFile lists the tough days chosen by toughDayReserves.
const SelectionFile = "out_tough_days/tough_days.csv"

// FindExpensiveDaysConfig binds the findExpensiveDays properties.
type FindExpensiveDaysConfig struct {
	InputsDir string   `yaml:"inputs_dir"`
	Levels    []string `yaml:"levels"`
	Output    string   `yaml:"output"`
}

// FindExpensiveDaysTasklet writes the scenario list of the diagnostic runs
// that reveal each period's most expensive day.
type FindExpensiveDaysTasklet struct {
	common.Base
	ws     storage.Workspace
	config *FindExpensiveDaysConfig
}

// NewFindExpensiveDaysTasklet creates a FindExpensiveDaysTasklet.
func NewFindExpensiveDaysTasklet(ws storage.Workspace, study *config.StudyConfig, properties map[string]string) (*FindExpensiveDaysTasklet, error) {
	cfg := &FindExpensiveDaysConfig{
		InputsDir: horizon.Extended.Dir(),
		Levels:    study.ToughDayCO2Levels,
		Output:    scenario.FindExpensiveDaysFile,
	}
	if err := configbinder.BindProperties(properties, cfg); err != nil {
		return nil, exception.NewBatchError("find_expensive_days_tasklet", "Failed to bind properties", err)
	}
	return &FindExpensiveDaysTasklet{Base: common.NewBase("find_expensive_days_tasklet"), ws: ws, config: cfg}, nil
}

// Execute writes the list.
func (t *FindExpensiveDaysTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	if err := common.Canceled(ctx); err != nil {
		return model.ExitStatusFailed, err
	}
	list, err := scenario.ToughDayList(t.config.InputsDir, t.config.Levels)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	if err := writeList(t.ws, t.config.Output, list); err != nil {
		return model.ExitStatusFailed, err
	}
	t.Wrote(t.config.Output)
	t.Counted("", map[string]int{t.config.Output: len(list)})
	logger.Infof("Wrote %d diagnostic scenarios to %s.", len(list), t.config.Output)
	t.Finish(stepExecution)
	return model.ExitStatusCompleted, nil
}

// ToughDayReservesConfig binds the toughDayReserves properties.
type ToughDayReservesConfig struct {
	Levels        []string  `yaml:"levels"`
	Bases         []string  `yaml:"bases"`
	LoadIncreases []float64 `yaml:"load_increases"`
}

// ToughDayReservesTasklet picks each period's most expensive day from the
// diagnostic runs and adds it, with raised loads, to reserve copies of the
// horizon directories.
type ToughDayReservesTasklet struct {
	common.Base
	ws     storage.Workspace
	study  *config.StudyConfig
	config *ToughDayReservesConfig
}

// NewToughDayReservesTasklet creates a ToughDayReservesTasklet.
func NewToughDayReservesTasklet(ws storage.Workspace, study *config.StudyConfig, properties map[string]string) (*ToughDayReservesTasklet, error) {
	cfg := &ToughDayReservesConfig{
		Levels:        study.ToughDayCO2Levels,
		Bases:         []string{horizon.Extended.Dir(), horizon.Sparse.Dir()},
		LoadIncreases: study.ReserveLevels,
	}
	if err := configbinder.BindProperties(properties, cfg); err != nil {
		return nil, exception.NewBatchError("tough_day_reserves_tasklet", "Failed to bind properties", err)
	}
	return &ToughDayReservesTasklet{Base: common.NewBase("tough_day_reserves_tasklet"), ws: ws, study: study, config: cfg}, nil
}

// Execute selects the days and writes the reserve directories.
func (t *ToughDayReservesTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	var sel []toughdays.Selection
	for _, level := range t.config.Levels {
		p, err := t.ws.Path(toughdays.OutputsDir(level), toughdays.EnergySourcesFile(level))
		if err != nil {
			return model.ExitStatusFailed, err
		}
		es, err := table.Read(p)
		if err != nil {
			return model.ExitStatusFailed, err
		}
		s, err := toughdays.SelectExpensiveDays(es, level)
		if err != nil {
			return model.ExitStatusFailed, err
		}
		for _, d := range s {
			logger.Infof("CO2 level %s, period %d: tough day %s at %.2f/MWh.", level, d.Period, d.Timeseries, d.MeanPrice)
		}
		sel = append(sel, s...)
	}
	if err := writeCSV(t.ws, SelectionFile, toughdays.SelectionTable(sel)); err != nil {
		return model.ExitStatusFailed, err
	}
	t.Wrote(SelectionFile)

	reserves := toughdays.StudyReserves
	if len(t.config.LoadIncreases) > 0 {
		reserves.LoadIncreases = t.config.LoadIncreases
	}
	for _, base := range t.config.Bases {
		if err := common.Canceled(ctx); err != nil {
			return model.ExitStatusFailed, err
		}
		src := inputdir.Open(t.ws, base)
		dst := inputdir.Open(t.ws, base+"_reserves")
		if err := reserves.Apply(ctx, src, dst, sel); err != nil {
			return model.ExitStatusFailed, err
		}
		if err := verifyPeriodHours(dst, t.study); err != nil {
			return model.ExitStatusFailed, err
		}
		t.Wrote(dst.Name())
		t.Counted(dst.Name()+"/", dst.Written)
	}
	t.Finish(stepExecution)
	return model.ExitStatusCompleted, nil
}

func writeCSV(ws storage.Workspace, name string, t *table.Table) error {
	p, err := ws.Path(name)
	if err != nil {
		return err
	}
	return t.Write(p)
}

func writeList(ws storage.Workspace, name string, l scenario.List) error {
	p, err := ws.Path(name)
	if err != nil {
		return err
	}
	return l.Write(p)
}
