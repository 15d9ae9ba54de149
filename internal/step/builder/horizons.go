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
	"github.com/tigerroll/switchprep/internal/step/common"
)

// HorizonsConfig binds the horizons properties.
type HorizonsConfig struct {
	Source   string   `yaml:"source"`
	Variants []string `yaml:"variants"`
}

var variants = map[string]horizon.Variant{
	horizon.Extended.Name: horizon.Extended,
	horizon.Sparse.Name:   horizon.Sparse,
}

// HorizonsTasklet derives one inputs directory per study horizon.
type HorizonsTasklet struct {
	common.Base
	ws       storage.Workspace
	study    *config.StudyConfig
	config   *HorizonsConfig
	variants []horizon.Variant
}

// NewHorizonsTasklet creates a HorizonsTasklet. Unknown variant names are rejected.
func NewHorizonsTasklet(ws storage.Workspace, study *config.StudyConfig, properties map[string]string) (*HorizonsTasklet, error) {
	cfg := &HorizonsConfig{
		Source:   UpdatedInputs,
		Variants: []string{horizon.Extended.Name, horizon.Sparse.Name},
	}
	if err := configbinder.BindProperties(properties, cfg); err != nil {
		return nil, exception.NewBatchError("horizons_tasklet", "Failed to bind properties", err)
	}
	t := &HorizonsTasklet{Base: common.NewBase("horizons_tasklet"), ws: ws, study: study, config: cfg}
	for _, name := range cfg.Variants {
		v, ok := variants[name]
		if !ok {
			return nil, exception.NewBatchErrorf("horizons_tasklet", "unknown horizon variant '%s'", name)
		}
		t.variants = append(t.variants, v)
	}
	return t, nil
}

// Execute builds every variant from the source directory and checks that each
// one still represents the full length of its periods.
func (t *HorizonsTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	src := inputdir.Open(t.ws, t.config.Source)
	for _, v := range t.variants {
		if err := common.Canceled(ctx); err != nil {
			return model.ExitStatusFailed, err
		}
		dst := inputdir.Open(t.ws, v.Dir())
		if err := horizon.StudyPlan.Build(ctx, src, dst, v); err != nil {
			return model.ExitStatusFailed, err
		}
		if err := verifyPeriodHours(dst, t.study); err != nil {
			return model.ExitStatusFailed, err
		}
		logger.Infof("Built %s for periods %v.", dst.Name(), v.Periods())
		t.Wrote(dst.Name())
		t.Counted(dst.Name()+"/", dst.Written)
	}
	t.Finish(stepExecution)
	return model.ExitStatusCompleted, nil
}
