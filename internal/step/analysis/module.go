package analysis

import (
	"go.uber.org/fx"

	storage "github.com/tigerroll/switchprep/pkg/batch/adapter/storage"
	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
	jsl "github.com/tigerroll/switchprep/pkg/batch/core/config/jsl"

	"github.com/tigerroll/switchprep/internal/step/common"
)

// JSL refs of the analysis tasklets.
const (
	AbatementCurvesRef = "abatementCurvesTasklet"
	ComparisonsRef     = "scenarioComparisonsTasklet"
	StepwiseSummaryRef = "stepwiseSummaryTasklet"
	CoalPartLoadRef    = "coalPartLoadTasklet"
)

// NewAbatementCurvesComponentBuilder creates the jsl.ComponentBuilder for AbatementCurvesTasklet.
func NewAbatementCurvesComponentBuilder(ws storage.Workspace, study *config.StudyConfig) jsl.ComponentBuilder {
	return func(cfg *config.Config, properties map[string]string) (interface{}, error) {
		t, err := NewAbatementCurvesTasklet(ws, study, properties)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

func NewComparisonsComponentBuilder(ws storage.Workspace) jsl.ComponentBuilder {
	return func(cfg *config.Config, properties map[string]string) (interface{}, error) {
		t, err := NewComparisonsTasklet(ws, properties)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

func NewStepwiseSummaryComponentBuilder(ws storage.Workspace) jsl.ComponentBuilder {
	return func(cfg *config.Config, properties map[string]string) (interface{}, error) {
		t, err := NewStepwiseSummaryTasklet(ws, properties)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

func NewCoalPartLoadComponentBuilder(ws storage.Workspace) jsl.ComponentBuilder {
	return func(cfg *config.Config, properties map[string]string) (interface{}, error) {
		t, err := NewCoalPartLoadTasklet(ws, properties)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// Module provides the analysis tasklets and registers them with the JobFactory.
var Module = fx.Options(
	common.Component(AbatementCurvesRef, NewAbatementCurvesComponentBuilder),
	common.Component(ComparisonsRef, NewComparisonsComponentBuilder),
	common.Component(StepwiseSummaryRef, NewStepwiseSummaryComponentBuilder),
	common.Component(CoalPartLoadRef, NewCoalPartLoadComponentBuilder),
)
