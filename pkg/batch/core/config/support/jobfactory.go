// Package support provides the JobFactory, which turns JSL definitions into
// executable jobs using registered component and listener builders.
package support

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/switchprep/pkg/batch/core/application/port"
	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
	jsl "github.com/tigerroll/switchprep/pkg/batch/core/config/jsl"
	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/switchprep/pkg/batch/core/domain/repository"
	runner "github.com/tigerroll/switchprep/pkg/batch/core/job/runner"
	metrics "github.com/tigerroll/switchprep/pkg/batch/core/metrics"
	tasklet "github.com/tigerroll/switchprep/pkg/batch/engine/step/tasklet"
	exception "github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

const factoryModule = "job_factory"

// Names of the listeners attached to every job and step when registered.
const (
	DefaultJobListener  = "loggingJobListener"
	DefaultStepListener = "loggingStepListener"
)

// JobFactory builds FlowJobs from JSL definitions.
type JobFactory struct {
	config               *config.Config
	definitions          *jsl.Definitions
	componentBuilders    map[string]jsl.ComponentBuilder
	jobListenerBuilders  map[string]jsl.JobExecutionListenerBuilder
	stepListenerBuilders map[string]jsl.StepExecutionListenerBuilder
	jobRepository        repository.JobRepository
	metricRecorder       metrics.MetricRecorder
	tracer               metrics.Tracer
}

// JobFactoryParams defines the dependencies NewJobFactory receives from Fx.
type JobFactoryParams struct {
	fx.In
	Repo           repository.JobRepository
	Cfg            *config.Config
	Definitions    *jsl.Definitions
	MetricRecorder metrics.MetricRecorder `optional:"true"`
	Tracer         metrics.Tracer         `optional:"true"`
}

// NewJobFactory creates a new instance of JobFactory.
func NewJobFactory(p JobFactoryParams) *JobFactory {
	return &JobFactory{
		config:               p.Cfg,
		definitions:          p.Definitions,
		componentBuilders:    make(map[string]jsl.ComponentBuilder),
		jobListenerBuilders:  make(map[string]jsl.JobExecutionListenerBuilder),
		stepListenerBuilders: make(map[string]jsl.StepExecutionListenerBuilder),
		jobRepository:        p.Repo,
		metricRecorder:       p.MetricRecorder,
		tracer:               p.Tracer,
	}
}

// GetConfig returns the Config held by the JobFactory.
func (f *JobFactory) GetConfig() *config.Config {
	return f.config
}

// RegisterComponentBuilder registers a component builder under its JSL reference name.
func (f *JobFactory) RegisterComponentBuilder(name string, builder jsl.ComponentBuilder) {
	f.componentBuilders[name] = builder
	logger.Debugf("Registered component builder '%s'.", name)
}

// RegisterJobListenerBuilder registers a JobExecutionListener builder.
func (f *JobFactory) RegisterJobListenerBuilder(name string, builder jsl.JobExecutionListenerBuilder) {
	f.jobListenerBuilders[name] = builder
}

// RegisterStepExecutionListenerBuilder registers a StepExecutionListener builder.
func (f *JobFactory) RegisterStepExecutionListenerBuilder(name string, builder jsl.StepExecutionListenerBuilder) {
	f.stepListenerBuilders[name] = builder
}

// JobNames returns the ids of all loaded job definitions.
func (f *JobFactory) JobNames() []string {
	return f.definitions.IDs()
}

// CreateJob builds the named job. Property placeholders are resolved against the
// job parameters first, then the configuration, then the environment.
func (f *JobFactory) CreateJob(jobName string, params model.JobParameters) (port.Job, error) {
	jslJob, ok := f.definitions.Get(jobName)
	if !ok {
		return nil, exception.NewBatchErrorf(factoryModule, "job definition '%s' not found", jobName)
	}

	lookup := jsl.ChainLookup(params.Get, f.config.Lookup, jsl.EnvLookup)

	jobListeners, err := f.buildJobListeners(jslJob.Listeners, lookup)
	if err != nil {
		return nil, err
	}

	flow := model.NewFlowDefinition(jslJob.Flow.StartElement)
	for id, stepDef := range jslJob.Flow.Elements {
		step, err := f.buildStep(stepDef, lookup)
		if err != nil {
			return nil, exception.NewBatchErrorf(factoryModule, "job '%s': failed to build step '%s'", jobName, id, err)
		}
		if err := flow.AddElement(id, step); err != nil {
			return nil, exception.NewBatchError(factoryModule, "failed to add flow element", err)
		}
		for _, t := range stepDef.Transitions {
			flow.AddTransitionRule(id, model.Transition{On: t.On, To: t.To, End: t.End, Fail: t.Fail, Stop: t.Stop})
		}
	}

	return runner.NewFlowJob(jslJob.ID, jslJob.Name, flow, f.jobRepository, jobListeners, f.metricRecorder, f.tracer), nil
}

func (f *JobFactory) buildStep(stepDef jsl.Step, lookup jsl.LookupFunc) (port.Step, error) {
	builder, ok := f.componentBuilders[stepDef.Tasklet.Ref]
	if !ok {
		return nil, exception.NewBatchErrorf(factoryModule, "no component builder registered for '%s'", stepDef.Tasklet.Ref)
	}
	props, err := jsl.ExpandProperties(stepDef.Tasklet.Properties, lookup)
	if err != nil {
		return nil, err
	}
	component, err := builder(f.config, props)
	if err != nil {
		return nil, err
	}
	t, ok := component.(port.Tasklet)
	if !ok {
		return nil, exception.NewBatchErrorf(factoryModule, "component '%s' is not a Tasklet: %T", stepDef.Tasklet.Ref, component)
	}

	listeners, err := f.buildStepListeners(stepDef.Listeners, lookup)
	if err != nil {
		return nil, err
	}
	return tasklet.NewTaskletStep(stepDef.ID, t, f.jobRepository, listeners, f.metricRecorder, f.tracer), nil
}

func (f *JobFactory) buildJobListeners(refs []jsl.ComponentRef, lookup jsl.LookupFunc) ([]port.JobExecutionListener, error) {
	var listeners []port.JobExecutionListener
	if builder, found := f.jobListenerBuilders[DefaultJobListener]; found {
		l, err := builder(f.config, nil)
		if err != nil {
			return nil, exception.NewBatchError(factoryModule, "Failed to build default loggingJobListener", err)
		}
		listeners = append(listeners, l)
	}
	for _, ref := range refs {
		builder, found := f.jobListenerBuilders[ref.Ref]
		if !found {
			return nil, exception.NewBatchErrorf(factoryModule, "no job listener builder registered for '%s'", ref.Ref)
		}
		props, err := jsl.ExpandProperties(ref.Properties, lookup)
		if err != nil {
			return nil, err
		}
		l, err := builder(f.config, props)
		if err != nil {
			return nil, exception.NewBatchErrorf(factoryModule, "failed to build job listener '%s'", ref.Ref, err)
		}
		listeners = append(listeners, l)
	}
	return listeners, nil
}

func (f *JobFactory) buildStepListeners(refs []jsl.ComponentRef, lookup jsl.LookupFunc) ([]port.StepExecutionListener, error) {
	var listeners []port.StepExecutionListener
	if builder, found := f.stepListenerBuilders[DefaultStepListener]; found {
		l, err := builder(f.config, nil)
		if err != nil {
			return nil, exception.NewBatchError(factoryModule, "Failed to build default loggingStepListener", err)
		}
		listeners = append(listeners, l)
	}
	for _, ref := range refs {
		builder, found := f.stepListenerBuilders[ref.Ref]
		if !found {
			return nil, exception.NewBatchErrorf(factoryModule, "no step listener builder registered for '%s'", ref.Ref)
		}
		props, err := jsl.ExpandProperties(ref.Properties, lookup)
		if err != nil {
			return nil, err
		}
		l, err := builder(f.config, props)
		if err != nil {
			return nil, exception.NewBatchErrorf(factoryModule, "failed to build step listener '%s'", ref.Ref, err)
		}
		listeners = append(listeners, l)
	}
	return listeners, nil
}
