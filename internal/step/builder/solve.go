package builder

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"

	storage "github.com/tigerroll/switchprep/pkg/batch/adapter/storage"
	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
	configbinder "github.com/tigerroll/switchprep/pkg/batch/support/util/configbinder"
	exception "github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/switchprep/pkg/batch/support/util/logger"

	"github.com/tigerroll/switchprep/internal/builder/scenario"
	"github.com/tigerroll/switchprep/internal/builder/toughdays"
	"github.com/tigerroll/switchprep/internal/step/common"
)

// SolveConfig binds the solveScenarios properties.
type SolveConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Command      string   `yaml:"command"`
	Args         []string `yaml:"args"`
	ScenarioList string   `yaml:"scenario_list"`
	// Levels are the CO2 levels whose energy sources must exist afterwards.
	Levels []string `yaml:"levels"`
}

// SolveTasklet runs the external solver on a scenario list. When disabled
// it reports NO_OP and the results of an earlier solve are used.
type SolveTasklet struct {
	common.Base
	ws     storage.Workspace
	config *SolveConfig
}

// NewSolveTasklet creates a SolveTasklet from the study's solver settings.
func NewSolveTasklet(ws storage.Workspace, study *config.StudyConfig, properties map[string]string) (*SolveTasklet, error) {
	cfg := &SolveConfig{
		Enabled:      study.Solver.Enabled,
		Command:      study.Solver.Command,
		Args:         study.Solver.Args,
		ScenarioList: scenario.FindExpensiveDaysFile,
		Levels:       study.ToughDayCO2Levels,
	}
	if err := configbinder.BindProperties(properties, cfg); err != nil {
		return nil, exception.NewBatchError("solve_tasklet", "Failed to bind properties", err)
	}
	if cfg.Enabled && cfg.Command == "" {
		return nil, exception.NewBatchErrorf("solve_tasklet", "solver is enabled but no command is configured")
	}
	return &SolveTasklet{Base: common.NewBase("solve_tasklet"), ws: ws, config: cfg}, nil
}

// Execute runs the solver in the workspace and checks that every expected
// energy sources table was produced.
func (t *SolveTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	if !t.config.Enabled {
		logger.Infof("Solver disabled; using existing results for %s.", t.config.ScenarioList)
		t.Finish(stepExecution)
		return model.ExitStatusNoOp, nil
	}
	if err := common.Canceled(ctx); err != nil {
		return model.ExitStatusFailed, err
	}
	root, err := t.ws.Path()
	if err != nil {
		return model.ExitStatusFailed, err
	}
	args := append(append([]string(nil), t.config.Args...), "--scenario-list", t.config.ScenarioList)
	cmd := exec.CommandContext(ctx, t.config.Command, args...)
	cmd.Dir = root
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError("solve_tasklet", "Failed to attach to solver output", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return model.ExitStatusFailed, exception.NewBatchError("solve_tasklet", "Failed to attach to solver output", err)
	}

	logger.Infof("Running %s %s", t.config.Command, strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return model.ExitStatusFailed, exception.NewBatchErrorf("solve_tasklet", "failed to start '%s'", t.config.Command, err)
	}
	var wg sync.WaitGroup
	wg.Add(2)
	go relay(&wg, stdout, logger.Infof)
	go relay(&wg, stderr, logger.Warnf)
	wg.Wait()
	if err := cmd.Wait(); err != nil {
		return model.ExitStatusFailed, exception.NewBatchErrorf("solve_tasklet", "solver '%s' failed", t.config.Command, err)
	}

	for _, level := range t.config.Levels {
		name := toughdays.OutputsDir(level) + "/" + toughdays.EnergySourcesFile(level)
		if !t.ws.Exists(name) {
			return model.ExitStatusFailed, exception.MissingInput("solve_tasklet", name, nil)
		}
		t.Wrote(name)
	}
	t.Finish(stepExecution)
	return model.ExitStatusCompleted, nil
}

func relay(wg *sync.WaitGroup, r io.Reader, logf func(format string, args ...interface{})) {
	defer wg.Done()
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	for s.Scan() {
		logf("solver: %s", s.Text())
	}
}
