package builder

import (
	"context"

	storage "github.com/tigerroll/switchprep/pkg/batch/adapter/storage"
	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
	configbinder "github.com/tigerroll/switchprep/pkg/batch/support/util/configbinder"
	exception "github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/switchprep/pkg/batch/support/util/logger"

	"github.com/tigerroll/switchprep/internal/builder/scenario"
	"github.com/tigerroll/switchprep/internal/step/common"
)

// StudyScenariosConfig binds the studyScenarios properties.
type StudyScenariosConfig struct {
	CapLevels []int `yaml:"cap_levels"`
	// Themes restricts the list to the named themes. Empty keeps all.
	Themes []string `yaml:"themes"`
	Output string   `yaml:"output"`
}

// StudyScenariosTasklet writes the carbon cap scenario list.
type StudyScenariosTasklet struct {
	common.Base
	ws     storage.Workspace
	config *StudyScenariosConfig
	themes []scenario.Theme
}

// NewStudyScenariosTasklet creates a StudyScenariosTasklet.
func NewStudyScenariosTasklet(ws storage.Workspace, study *config.StudyConfig, properties map[string]string) (*StudyScenariosTasklet, error) {
	cfg := &StudyScenariosConfig{
		CapLevels: study.CarbonCapLevels,
		Output:    scenario.CarbonCapFile,
	}
	if err := configbinder.BindProperties(properties, cfg); err != nil {
		return nil, exception.NewBatchError("study_scenarios_tasklet", "Failed to bind properties", err)
	}
	themes, err := selectThemes(cfg.Themes)
	if err != nil {
		return nil, err
	}
	return &StudyScenariosTasklet{Base: common.NewBase("study_scenarios_tasklet"), ws: ws, config: cfg, themes: themes}, nil
}

func selectThemes(names []string) ([]scenario.Theme, error) {
	if len(names) == 0 {
		return scenario.StudyThemes, nil
	}
	byName := make(map[string]scenario.Theme, len(scenario.StudyThemes))
	for _, t := range scenario.StudyThemes {
		byName[t.Name] = t
	}
	out := make([]scenario.Theme, 0, len(names))
	for _, n := range names {
		t, ok := byName[n]
		if !ok {
			return nil, exception.NewBatchErrorf("study_scenarios_tasklet", "unknown scenario theme '%s'", n)
		}
		out = append(out, t)
	}
	return out, nil
}

// Execute writes the list.
func (t *StudyScenariosTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	if err := common.Canceled(ctx); err != nil {
		return model.ExitStatusFailed, err
	}
	list, err := scenario.CarbonCapList(t.themes, t.config.CapLevels)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	for _, th := range t.themes {
		if !t.ws.Exists(th.InputsDir) {
			logger.Warnf("Theme %s uses %s, which does not exist yet.", th.Name, th.InputsDir)
		}
	}
	if err := writeList(t.ws, t.config.Output, list); err != nil {
		return model.ExitStatusFailed, err
	}
	t.Wrote(t.config.Output)
	t.Counted("", map[string]int{t.config.Output: len(list)})
	logger.Infof("Wrote %d scenarios (%d themes x %d cap levels) to %s.", len(list), len(t.themes), len(t.config.CapLevels), t.config.Output)
	t.Finish(stepExecution)
	return model.ExitStatusCompleted, nil
}
