// Package extension provides the tasklet that builds the study's model
// extensions for an inputs directory and exports them as an LP file.
package extension

import (
	"context"
	"path"
	"strings"

	storage "github.com/tigerroll/switchprep/pkg/batch/adapter/storage"
	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
	jsl "github.com/tigerroll/switchprep/pkg/batch/core/config/jsl"
	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
	configbinder "github.com/tigerroll/switchprep/pkg/batch/support/util/configbinder"
	exception "github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
	"go.uber.org/fx"

	"github.com/tigerroll/switchprep/internal/builder/modulelist"
	ext "github.com/tigerroll/switchprep/internal/extension"
	"github.com/tigerroll/switchprep/internal/step/common"
)

// ConstraintsRef is the JSL ref of ConstraintsTasklet.
const ConstraintsRef = "extensionConstraintsTasklet"

// ConstraintsConfig binds the extensionConstraints properties.
type ConstraintsConfig struct {
	InputsDir string `yaml:"inputs_dir"`
	// ModuleList is relative to InputsDir.
	ModuleList string `yaml:"module_list"`
	// Output defaults to extensions/<inputs_dir>.lp.
	Output string `yaml:"output"`
	// Arguments are key=value pairs passed to the extensions.
	Arguments []string `yaml:"arguments"`
}

// ConstraintsTasklet defines every extension the module list enables and
// writes their constraints in LP format.
type ConstraintsTasklet struct {
	common.Base
	ws        storage.Workspace
	config    *ConstraintsConfig
	arguments map[string]string
	registry  ext.Registry
}

// NewConstraintsTasklet creates a ConstraintsTasklet.
func NewConstraintsTasklet(ws storage.Workspace, properties map[string]string) (*ConstraintsTasklet, error) {
	cfg := &ConstraintsConfig{
		InputsDir:  "inputs_extended_reserves",
		ModuleList: "modules.txt",
	}
	if err := configbinder.BindProperties(properties, cfg); err != nil {
		return nil, exception.NewBatchError("extension_constraints_tasklet", "Failed to bind properties", err)
	}
	if cfg.Output == "" {
		cfg.Output = path.Join("extensions", path.Base(cfg.InputsDir)+".lp")
	}
	args, err := parseArguments(cfg.Arguments)
	if err != nil {
		return nil, err
	}
	return &ConstraintsTasklet{
		Base:      common.NewBase("extension_constraints_tasklet"),
		ws:        ws,
		config:    cfg,
		arguments: args,
		registry:  ext.DefaultRegistry(),
	}, nil
}

func parseArguments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || k == "" {
			return nil, exception.NewBatchErrorf("extension_constraints_tasklet", "argument '%s' is not key=value", p)
		}
		out[k] = v
	}
	return out, nil
}

// Execute builds the model and writes the LP file.
func (t *ConstraintsTasklet) Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error) {
	if err := common.Canceled(ctx); err != nil {
		return model.ExitStatusFailed, err
	}
	dir, err := t.ws.Path(t.config.InputsDir)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	listPath, err := t.ws.Path(t.config.InputsDir, t.config.ModuleList)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	modules, err := modulelist.Read(listPath)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	m, err := t.registry.Build(dir, modules, t.arguments)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	if len(m.Extensions()) == 0 {
		logger.Warnf("%s enables no extension; writing an empty program.", listPath)
	}

	w, err := t.ws.Create(ctx, t.config.Output)
	if err != nil {
		return model.ExitStatusFailed, err
	}
	if err := m.Assemble().WriteLP(w); err != nil {
		w.Close()
		return model.ExitStatusFailed, err
	}
	if err := w.Close(); err != nil {
		return model.ExitStatusFailed, exception.NewBatchErrorf("extension_constraints_tasklet", "failed to close '%s'", t.config.Output, err)
	}
	for _, line := range m.Summary() {
		logger.Infof("  %s", line)
	}
	t.Wrote(t.config.Output)
	t.Counted("", map[string]int{t.config.Output: len(m.Constraints)})
	t.Finish(stepExecution)
	return model.ExitStatusCompleted, nil
}

// NewConstraintsComponentBuilder creates the jsl.ComponentBuilder for ConstraintsTasklet.
func NewConstraintsComponentBuilder(ws storage.Workspace) jsl.ComponentBuilder {
	return func(cfg *config.Config, properties map[string]string) (interface{}, error) {
		t, err := NewConstraintsTasklet(ws, properties)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// Module provides ConstraintsTasklet and registers it with the JobFactory.
var Module = fx.Options(
	common.Component(ConstraintsRef, NewConstraintsComponentBuilder),
)
