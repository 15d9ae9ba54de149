package builder

import (
	"go.uber.org/fx"

	storage "github.com/tigerroll/switchprep/pkg/batch/adapter/storage"
	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
	jsl "github.com/tigerroll/switchprep/pkg/batch/core/config/jsl"

	"github.com/tigerroll/switchprep/internal/step/common"
)

// JSL refs of the builder tasklets.
const (
	StartInputsRef       = "startInputsTasklet"
	UpdatedInputsRef     = "updatedInputsTasklet"
	HydrogenRef          = "hydrogenTechnologiesTasklet"
	RetrofitsRef         = "coalRetrofitsTasklet"
	HorizonsRef          = "horizonsTasklet"
	FindExpensiveDaysRef = "findExpensiveDaysTasklet"
	SolveRef             = "solveScenariosTasklet"
	ToughDayReservesRef  = "toughDayReservesTasklet"
	StudyScenariosRef    = "studyScenariosTasklet"
)

// NewStartInputsComponentBuilder creates the jsl.ComponentBuilder for StartInputsTasklet.
func NewStartInputsComponentBuilder(ws storage.Workspace, study *config.StudyConfig) jsl.ComponentBuilder {
	return func(cfg *config.Config, properties map[string]string) (interface{}, error) {
		t, err := NewStartInputsTasklet(ws, study, properties)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// NewUpdatedInputsComponentBuilder creates the jsl.ComponentBuilder for UpdatedInputsTasklet.
func NewUpdatedInputsComponentBuilder(ws storage.Workspace, study *config.StudyConfig) jsl.ComponentBuilder {
	return func(cfg *config.Config, properties map[string]string) (interface{}, error) {
		t, err := NewUpdatedInputsTasklet(ws, study, properties)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// NewHydrogenComponentBuilder creates the jsl.ComponentBuilder for HydrogenTasklet.
func NewHydrogenComponentBuilder(ws storage.Workspace) jsl.ComponentBuilder {
	return func(cfg *config.Config, properties map[string]string) (interface{}, error) {
		t, err := NewHydrogenTasklet(ws, properties)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// NewRetrofitsComponentBuilder creates the jsl.ComponentBuilder for RetrofitsTasklet.
func NewRetrofitsComponentBuilder(ws storage.Workspace) jsl.ComponentBuilder {
	return func(cfg *config.Config, properties map[string]string) (interface{}, error) {
		t, err := NewRetrofitsTasklet(ws, properties)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// NewHorizonsComponentBuilder creates the jsl.ComponentBuilder for HorizonsTasklet.
func NewHorizonsComponentBuilder(ws storage.Workspace, study *config.StudyConfig) jsl.ComponentBuilder {
	return func(cfg *config.Config, properties map[string]string) (interface{}, error) {
		t, err := NewHorizonsTasklet(ws, study, properties)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// NewFindExpensiveDaysComponentBuilder creates the jsl.ComponentBuilder for FindExpensiveDaysTasklet.
func NewFindExpensiveDaysComponentBuilder(ws storage.Workspace, study *config.StudyConfig) jsl.ComponentBuilder {
	return func(cfg *config.Config, properties map[string]string) (interface{}, error) {
		t, err := NewFindExpensiveDaysTasklet(ws, study, properties)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// NewSolveComponentBuilder creates the jsl.ComponentBuilder for SolveTasklet.
func NewSolveComponentBuilder(ws storage.Workspace, study *config.StudyConfig) jsl.ComponentBuilder {
	return func(cfg *config.Config, properties map[string]string) (interface{}, error) {
		t, err := NewSolveTasklet(ws, study, properties)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// NewToughDayReservesComponentBuilder creates the jsl.ComponentBuilder for ToughDayReservesTasklet.
func NewToughDayReservesComponentBuilder(ws storage.Workspace, study *config.StudyConfig) jsl.ComponentBuilder {
	return func(cfg *config.Config, properties map[string]string) (interface{}, error) {
		t, err := NewToughDayReservesTasklet(ws, study, properties)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// NewStudyScenariosComponentBuilder creates the jsl.ComponentBuilder for StudyScenariosTasklet.
func NewStudyScenariosComponentBuilder(ws storage.Workspace, study *config.StudyConfig) jsl.ComponentBuilder {
	return func(cfg *config.Config, properties map[string]string) (interface{}, error) {
		t, err := NewStudyScenariosTasklet(ws, study, properties)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// Module provides the builder tasklets and registers them with the JobFactory.
var Module = fx.Options(
	common.Component(StartInputsRef, NewStartInputsComponentBuilder),
	common.Component(UpdatedInputsRef, NewUpdatedInputsComponentBuilder),
	common.Component(HydrogenRef, NewHydrogenComponentBuilder),
	common.Component(RetrofitsRef, NewRetrofitsComponentBuilder),
	common.Component(HorizonsRef, NewHorizonsComponentBuilder),
	common.Component(FindExpensiveDaysRef, NewFindExpensiveDaysComponentBuilder),
	common.Component(SolveRef, NewSolveComponentBuilder),
	common.Component(ToughDayReservesRef, NewToughDayReservesComponentBuilder),
	common.Component(StudyScenariosRef, NewStudyScenariosComponentBuilder),
)
