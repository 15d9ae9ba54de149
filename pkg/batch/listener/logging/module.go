package logging

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/switchprep/pkg/batch/core/application/port"
	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
	jsl "github.com/tigerroll/switchprep/pkg/batch/core/config/jsl"
	support "github.com/tigerroll/switchprep/pkg/batch/core/config/support"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

// NewLoggingJobListenerBuilder creates a builder for LoggingJobListener.
func NewLoggingJobListenerBuilder() jsl.JobExecutionListenerBuilder {
	return func(_ *config.Config, properties map[string]string) (port.JobExecutionListener, error) {
		return NewLoggingJobListener(properties), nil
	}
}

// NewLoggingStepListenerBuilder creates a builder for LoggingStepListener.
func NewLoggingStepListenerBuilder() jsl.StepExecutionListenerBuilder {
	return func(_ *config.Config, properties map[string]string) (port.StepExecutionListener, error) {
		return NewLoggingStepListener(properties), nil
	}
}

// AllListenerBuilders receives the logging listener builders from Fx.
type AllListenerBuilders struct {
	fx.In
	JobListenerBuilder  jsl.JobExecutionListenerBuilder  `name:"loggingJobListener"`
	StepListenerBuilder jsl.StepExecutionListenerBuilder `name:"loggingStepListener"`
}

// RegisterAllListeners registers the logging listener builders with the JobFactory.
func RegisterAllListeners(jf *support.JobFactory, builders AllListenerBuilders) {
	jf.RegisterJobListenerBuilder(support.DefaultJobListener, builders.JobListenerBuilder)
	jf.RegisterStepExecutionListenerBuilder(support.DefaultStepListener, builders.StepListenerBuilder)
	logger.Debugf("Logging listeners registered with JobFactory.")
}

// Module aggregates the listener components provided by this package.
var Module = fx.Options(
	fx.Provide(fx.Annotate(NewLoggingJobListenerBuilder, fx.ResultTags(`name:"loggingJobListener"`))),
	fx.Provide(fx.Annotate(NewLoggingStepListenerBuilder, fx.ResultTags(`name:"loggingStepListener"`))),
	fx.Invoke(RegisterAllListeners),
)
