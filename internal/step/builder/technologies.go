package builder

import (
	"context"

	storage "github.com/tigerroll/switchprep/pkg/batch/adapter/storage"
	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
	configbinder "github.com/tigerroll/switchprep/pkg/batch/support/util/configbinder"
	exception "github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/switchprep/pkg/batch/support/util/logger"

	"github.com/tigerroll/switchprep/internal/builder/inputdir"
	"github.com/tigerroll/switchprep/internal/builder/modulelist"
	"github.com/tigerroll/switchprep/internal/builder/technology"
	"github.com/tigerroll/switchprep/internal/step/common"
	"github.com/tigerroll/switchprep/internal/table"
)

// HydrogenConfig binds the hydrogenTechnologies properties.
type HydrogenConfig struct {
	Dir string `yaml:"dir"`
	// ReferenceBattery supplies connection cost and outage rates of the fuel cells.
	ReferenceBattery string `yaml:"reference_battery"`
}

// HydrogenTasklet writes the hydrogen supply chain parameters and adds a
// fuel cell project to every load zone.
type HydrogenTasklet struct {
	common.Base
	ws     storage.Workspace
	config *HydrogenConfig
}

// NewHydrogenTasklet creates a HydrogenTasklet.
func NewHydrogenTasklet(ws storage.Workspace, properties map[string]string) (*HydrogenTasklet, error) {
	cfg := &HydrogenConfig{Dir: UpdatedInputs, ReferenceBattery: technology.DefaultReferenceBattery}
	if err := configbinder.BindProperties(properties, cfg); err != nil {
		return nil, exception.NewBatchError("hydrogen_tasklet", "Failed to bind properties", err)
	}
	return &HydrogenTasklet{Base: common.NewBase("hydrogen_tasklet"), ws: ws, config: cfg}, nil
}

// Execute adds the hydrogen technologies in place.
func (t *HydrogenTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	if err := common.Canceled(ctx); err != nil {
		return model.ExitStatusFailed, err
	}
	dir := inputdir.Open(t.ws, t.config.Dir)

	h := technology.FutureHydrogen()
	if err := writeTable(&t.Base, dir, "hydrogen", h.Table()); err != nil {
		return model.ExitStatusFailed, err
	}

	tables, err := readAll(dir, "gen_info", "gen_build_costs", "fuel_cost", "fuels", "load_zones", "periods")
	if err != nil {
		return model.ExitStatusFailed, err
	}
	out, err := technology.AddFuelCells(technology.Tables{
		GenInfo:    tables["gen_info"],
		BuildCosts: tables["gen_build_costs"],
		FuelCost:   tables["fuel_cost"],
		Fuels:      tables["fuels"],
	}, tables["load_zones"], tables["periods"], h, t.config.ReferenceBattery)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	if err := technology.VerifyUniqueProjects(out.GenInfo); err != nil {
		return model.ExitStatusFailed, err
	}
	if err := technology.VerifyUniqueBuildCosts(out.BuildCosts); err != nil {
		return model.ExitStatusFailed, err
	}
	for name, tbl := range map[string]*table.Table{
		"gen_info":        out.GenInfo,
		"gen_build_costs": out.BuildCosts,
		"fuel_cost":       out.FuelCost,
		"fuels":           out.Fuels,
	} {
		if err := writeTable(&t.Base, dir, name, tbl); err != nil {
			return model.ExitStatusFailed, err
		}
	}
	logger.Infof("Added fuel cells to %d load zones in %s.", tables["load_zones"].Len(), dir.Name())

	t.Counted(dir.Name()+"/", dir.Written)
	t.Finish(stepExecution)
	return model.ExitStatusCompleted, nil
}

// RetrofitsConfig binds the coalRetrofits properties.
type RetrofitsConfig struct {
	Dir string `yaml:"dir"`
	// ExpectedMinLoad is the minimum-load fraction shared by all direct coal
	// projects. Zero skips the check.
	ExpectedMinLoad float64 `yaml:"expected_min_load"`
}

// RetrofitsTasklet adds CCS and hydrogen retrofit variants of every coal
// plant and the linkage the solver uses to retire the base plant.
type RetrofitsTasklet struct {
	common.Base
	ws     storage.Workspace
	config *RetrofitsConfig
}

// NewRetrofitsTasklet creates a RetrofitsTasklet.
func NewRetrofitsTasklet(ws storage.Workspace, properties map[string]string) (*RetrofitsTasklet, error) {
	cfg := &RetrofitsConfig{Dir: UpdatedInputs, ExpectedMinLoad: 0.4}
	if err := configbinder.BindProperties(properties, cfg); err != nil {
		return nil, exception.NewBatchError("retrofits_tasklet", "Failed to bind properties", err)
	}
	return &RetrofitsTasklet{Base: common.NewBase("retrofits_tasklet"), ws: ws, config: cfg}, nil
}

// Execute adds the retrofits in place.
func (t *RetrofitsTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	if err := common.Canceled(ctx); err != nil {
		return model.ExitStatusFailed, err
	}
	dir := inputdir.Open(t.ws, t.config.Dir)
	tables, err := readAll(dir, "gen_info", "gen_build_costs")
	if err != nil {
		return model.ExitStatusFailed, err
	}
	r, err := technology.AddRetrofits(tables["gen_info"], tables["gen_build_costs"], technology.StudyRetrofitCosts)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	if err := technology.VerifyRetrofitLinkage(r.GenInfo, r.BuildCosts, r.Linkage); err != nil {
		return model.ExitStatusFailed, err
	}
	if err := technology.VerifyCoalMinLoad(r.GenInfo, t.config.ExpectedMinLoad); err != nil {
		return model.ExitStatusFailed, err
	}

	outputs := []struct {
		name string
		t    *table.Table
	}{
		{"gen_info", r.GenInfo},
		{"gen_build_costs", r.BuildCosts},
		{"gen_retrofits", r.Linkage},
		{"gen_info.no_ccs", technology.WithoutKind(r.GenInfo, "GENERATION_PROJECT", technology.CCS)},
		{"gen_build_costs.no_ccs", technology.WithoutKind(r.BuildCosts, "GENERATION_PROJECT", technology.CCS)},
		{"gen_retrofits.no_ccs", technology.WithoutKind(r.Linkage, technology.RetrofitProjectColumn, technology.CCS)},
	}
	for _, o := range outputs {
		if err := writeTable(&t.Base, dir, o.name, o.t); err != nil {
			return model.ExitStatusFailed, err
		}
	}
	logger.Infof("Added %d retrofit projects to %s.", r.Linkage.Len(), dir.Name())

	modules, err := dir.ReadModules("modules.txt")
	if err != nil {
		return model.ExitStatusFailed, err
	}
	modules.Append(modulelist.RetrofitsRetirement, modulelist.HydrogenSupply)
	if err := dir.WriteModules("modules.txt", modules); err != nil {
		return model.ExitStatusFailed, err
	}
	t.Wrote(dir.File("modules.txt"))

	t.Counted(dir.Name()+"/", dir.Written)
	t.Finish(stepExecution)
	return model.ExitStatusCompleted, nil
}

// readAll reads the named tables of dir. Every table is required.
func readAll(dir *inputdir.Dir, names ...string) (map[string]*table.Table, error) {
	out := make(map[string]*table.Table, len(names))
	for _, n := range names {
		t, err := dir.Read(n)
		if err != nil {
			return nil, err
		}
		out[n] = t
	}
	return out, nil
}
