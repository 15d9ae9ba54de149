// Package builder provides the tasklets of the input preparation job. Each
// tasklet turns one inputs directory of the study workspace into the next.
package builder

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	storage "github.com/tigerroll/switchprep/pkg/batch/adapter/storage"
	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
	configbinder "github.com/tigerroll/switchprep/pkg/batch/support/util/configbinder"
	exception "github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/switchprep/pkg/batch/support/util/logger"

	"github.com/tigerroll/switchprep/internal/builder/atb"
	"github.com/tigerroll/switchprep/internal/builder/carbon"
	"github.com/tigerroll/switchprep/internal/builder/currency"
	"github.com/tigerroll/switchprep/internal/builder/inputdir"
	"github.com/tigerroll/switchprep/internal/builder/modulelist"
	"github.com/tigerroll/switchprep/internal/builder/scenario"
	"github.com/tigerroll/switchprep/internal/builder/technology"
	"github.com/tigerroll/switchprep/internal/step/common"
	"github.com/tigerroll/switchprep/internal/table"
)

// Directory names of the preparation chain.
const (
	BaseInputs    = "inputs"
	StartInputs   = "inputs_start"
	UpdatedInputs = "inputs_updated"
)

// StartInputsConfig binds the startInputs properties.
type StartInputsConfig struct {
	Source    string `yaml:"source"`
	Target    string `yaml:"target"`
	CapLevels []int  `yaml:"cap_levels"`
	// TargetPrice is the carbon price reached in the target period of the price glide path.
	TargetPrice int `yaml:"target_price"`
}

// StartInputsTasklet copies the original inputs and adds the carbon policy
// variants the scenarios select by alias.
type StartInputsTasklet struct {
	common.Base
	ws     storage.Workspace
	config *StartInputsConfig
}

// NewStartInputsTasklet creates a StartInputsTasklet. Cap levels default to the study's.
func NewStartInputsTasklet(ws storage.Workspace, study *config.StudyConfig, properties map[string]string) (*StartInputsTasklet, error) {
	cfg := &StartInputsConfig{
		Source:      BaseInputs,
		Target:      StartInputs,
		CapLevels:   study.CarbonCapLevels,
		TargetPrice: 200,
	}
	if err := configbinder.BindProperties(properties, cfg); err != nil {
		return nil, exception.NewBatchError("start_inputs_tasklet", "Failed to bind properties", err)
	}
	return &StartInputsTasklet{Base: common.NewBase("start_inputs_tasklet"), ws: ws, config: cfg}, nil
}

// Execute builds the start inputs.
func (t *StartInputsTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	if err := common.Canceled(ctx); err != nil {
		return model.ExitStatusFailed, err
	}
	src := inputdir.Open(t.ws, t.config.Source)
	dst := inputdir.Open(t.ws, t.config.Target)
	if err := dst.Recreate(ctx, src); err != nil {
		return model.ExitStatusFailed, err
	}

	// Minimum build sizes make the model a MIP; the study solves it as an LP.
	genInfo, err := dst.Read("gen_info")
	if err != nil {
		return model.ExitStatusFailed, err
	}
	technology.BlankColumn(genInfo, "gen_min_build_capacity")
	if err := writeTable(&t.Base, dst, "gen_info", genInfo); err != nil {
		return model.ExitStatusFailed, err
	}

	policies, err := dst.Read("carbon_policies")
	if err != nil {
		return model.ExitStatusFailed, err
	}
	for _, level := range t.config.CapLevels {
		glide, err := carbon.StudyGlidePath.CapGlidePath(policies, level)
		if err != nil {
			return model.ExitStatusFailed, err
		}
		name := strings.TrimSuffix(scenario.CarbonPoliciesFile(scenario.CapLabel(level)), ".csv")
		if err := writeTable(&t.Base, dst, name, glide); err != nil {
			return model.ExitStatusFailed, err
		}
	}
	price, err := carbon.StudyGlidePath.PriceGlidePath(policies, float64(t.config.TargetPrice))
	if err != nil {
		return model.ExitStatusFailed, err
	}
	if err := writeTable(&t.Base, dst, fmt.Sprintf("carbon_policies_price_%d", t.config.TargetPrice), price); err != nil {
		return model.ExitStatusFailed, err
	}
	logger.Infof("Wrote %d carbon cap glide paths and a $%d/tCO2 price path to %s.", len(t.config.CapLevels), t.config.TargetPrice, dst.Name())

	modules, err := dst.ReadModules("modules.txt")
	if err != nil {
		return model.ExitStatusFailed, err
	}
	modules.Append(modulelist.SaveResults)
	if err := dst.WriteModules("modules.txt", modules); err != nil {
		return model.ExitStatusFailed, err
	}
	t.Wrote(dst.File("modules.txt"))

	t.Counted(dst.Name()+"/", dst.Written)
	t.Finish(stepExecution)
	return model.ExitStatusCompleted, nil
}

// UpdatedInputsConfig binds the updatedInputs properties.
type UpdatedInputsConfig struct {
	Source            string  `yaml:"source"`
	Target            string  `yaml:"target"`
	InterestRate      float64 `yaml:"interest_rate"`
	DiscountRate      float64 `yaml:"discount_rate"`
	BaseFinancialYear int     `yaml:"base_financial_year"`
	ATBEnabled        bool    `yaml:"atb_enabled"`
	// ATBWorkbook is relative to the workspace unless absolute.
	ATBWorkbook string  `yaml:"atb_workbook"`
	ATBMaxAge   float64 `yaml:"atb_max_age"`
}

// UpdatedInputsTasklet applies the study's economics: financial rates, one
// currency year, ATB renewable and storage costs and build suspension.
type UpdatedInputsTasklet struct {
	common.Base
	ws     storage.Workspace
	config *UpdatedInputsConfig
}

// NewUpdatedInputsTasklet creates an UpdatedInputsTasklet.
func NewUpdatedInputsTasklet(ws storage.Workspace, study *config.StudyConfig, properties map[string]string) (*UpdatedInputsTasklet, error) {
	cfg := &UpdatedInputsConfig{
		Source:            StartInputs,
		Target:            UpdatedInputs,
		InterestRate:      0.04,
		DiscountRate:      0.03,
		BaseFinancialYear: currency.BaseYear,
		ATBEnabled:        true,
		ATBWorkbook:       study.ATBWorkbook,
		ATBMaxAge:         30,
	}
	if err := configbinder.BindProperties(properties, cfg); err != nil {
		return nil, exception.NewBatchError("updated_inputs_tasklet", "Failed to bind properties", err)
	}
	return &UpdatedInputsTasklet{Base: common.NewBase("updated_inputs_tasklet"), ws: ws, config: cfg}, nil
}

// Execute builds the updated inputs.
func (t *UpdatedInputsTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	if err := common.Canceled(ctx); err != nil {
		return model.ExitStatusFailed, err
	}
	src := inputdir.Open(t.ws, t.config.Source)
	dst := inputdir.Open(t.ws, t.config.Target)
	if err := dst.Recreate(ctx, src); err != nil {
		return model.ExitStatusFailed, err
	}

	fin, err := dst.Read("financials")
	if err != nil {
		return model.ExitStatusFailed, err
	}
	for i := 0; i < fin.Len(); i++ {
		fin.SetFloat(i, "interest_rate", t.config.InterestRate)
		fin.SetFloat(i, "discount_rate", t.config.DiscountRate)
		fin.SetFloat(i, "base_financial_year", float64(t.config.BaseFinancialYear))
	}
	if err := writeTable(&t.Base, dst, "financials", fin); err != nil {
		return model.ExitStatusFailed, err
	}

	buildCosts, err := dst.Read("gen_build_costs")
	if err != nil {
		return model.ExitStatusFailed, err
	}
	genInfo, err := dst.Read("gen_info")
	if err != nil {
		return model.ExitStatusFailed, err
	}
	if err := currency.StudyVintages.Normalize("gen_build_costs", buildCosts); err != nil {
		return model.ExitStatusFailed, err
	}
	if err := currency.StudyVintages.Normalize("gen_info", genInfo); err != nil {
		return model.ExitStatusFailed, err
	}
	logger.Infof("Rebased Switch-China costs to %d dollars (%s).", currency.BaseYear, currency.Deflators[currency.SwitchChina])

	if err := t.applyATB(buildCosts, genInfo); err != nil {
		return model.ExitStatusFailed, err
	}
	n, err := technology.ApplyATBLife(genInfo, technology.ATBSources, t.config.ATBMaxAge, 0)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	logger.Infof("Set a %g-year life and zero variable O&M on %d ATB projects.", t.config.ATBMaxAge, n)

	if err := technology.VerifyUniqueProjects(genInfo); err != nil {
		return model.ExitStatusFailed, err
	}
	if err := technology.VerifyUniqueBuildCosts(buildCosts); err != nil {
		return model.ExitStatusFailed, err
	}
	if err := writeTable(&t.Base, dst, "gen_build_costs", buildCosts); err != nil {
		return model.ExitStatusFailed, err
	}
	if err := writeTable(&t.Base, dst, "gen_info", genInfo); err != nil {
		return model.ExitStatusFailed, err
	}

	if err := copyFiles(ctx, &t.Base, dst, [2]string{"modules.txt", "modules.no_suspend.txt"}); err != nil {
		return model.ExitStatusFailed, err
	}
	modules, err := dst.ReadModules("modules.txt")
	if err != nil {
		return model.ExitStatusFailed, err
	}
	if err := modules.Replace(modulelist.CoreBuild, modulelist.GenBuildSuspend); err != nil {
		return model.ExitStatusFailed, err
	}
	if err := dst.WriteModules("modules.txt", modules); err != nil {
		return model.ExitStatusFailed, err
	}
	t.Wrote(dst.File("modules.txt"))

	// Snapshot before hydrogen and CCS options are added.
	if err := copyFiles(ctx, &t.Base, dst,
		[2]string{"gen_info.csv", "gen_info.no_ccs_h2.csv"},
		[2]string{"gen_build_costs.csv", "gen_build_costs.no_ccs_h2.csv"},
		[2]string{"modules.txt", "modules.no_ccs_h2.txt"},
	); err != nil {
		return model.ExitStatusFailed, err
	}

	t.Counted(dst.Name()+"/", dst.Written)
	t.Finish(stepExecution)
	return model.ExitStatusCompleted, nil
}

func (t *UpdatedInputsTasklet) applyATB(buildCosts, genInfo *table.Table) error {
	if !t.config.ATBEnabled || t.config.ATBWorkbook == "" {
		logger.Warnf("ATB cost update disabled; build costs keep their original values.")
		return nil
	}
	path := t.config.ATBWorkbook
	if !filepath.IsAbs(path) {
		p, err := t.ws.Path(path)
		if err != nil {
			return err
		}
		path = p
	}
	costs, err := atb.Read(path, atb.Scale)
	if err != nil {
		return err
	}
	n, err := costs.Apply(buildCosts, genInfo)
	if err != nil {
		return err
	}
	logger.Infof("Updated %d build cost cells for %s from %s.", n, strings.Join(costs.Technologies(), ", "), filepath.Base(path))
	return nil
}
