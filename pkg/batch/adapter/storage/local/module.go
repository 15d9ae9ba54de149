package local

import (
	"go.uber.org/fx"

	storage "github.com/tigerroll/switchprep/pkg/batch/adapter/storage"
	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
)

// NewWorkspaceProvider opens the study working directory named in the configuration.
func NewWorkspaceProvider(cfg *config.Config) (storage.Workspace, error) {
	return NewWorkspace(cfg.SwitchPrep.Study.Workdir)
}

// Module provides the local storage.Workspace.
var Module = fx.Options(
	fx.Provide(NewWorkspaceProvider),
)
