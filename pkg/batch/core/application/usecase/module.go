package usecase

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/switchprep/pkg/batch/core/application/port"
)

// Module provides the SimpleJobLauncher as port.JobLauncher.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewSimpleJobLauncher, fx.As(new(port.JobLauncher)))),
)
