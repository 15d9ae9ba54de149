// Package port defines the core interfaces (ports) for the batch application.
package port

import (
	"context"
	"errors"

	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/switchprep/pkg/batch/core/metrics"
)

// ErrExecutionContextNotSupported is returned when a component does not support getting or setting ExecutionContext.
var ErrExecutionContextNotSupported = errors.New("execution context not supported by this component")

// Job is an executable batch job.
type Job interface {
	// Run executes the entire job flow, updating jobExecution as it goes.
	Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) error
	// JobName returns the logical name of the job.
	JobName() string
	// ID returns the unique ID of the job definition.
	ID() string
	// GetFlow returns the job's flow definition.
	GetFlow() *model.FlowDefinition
}

// Step is a single step executed within a job.
type Step interface {
	// Execute runs the step and marks stepExecution with the result.
	Execute(ctx context.Context, jobExecution *model.JobExecution, stepExecution *model.StepExecution) error
	// StepName returns the logical name of the step.
	StepName() string
	// ID returns the unique ID of the step definition.
	ID() string
	SetMetricRecorder(recorder metrics.MetricRecorder)
	SetTracer(tracer metrics.Tracer)
}

// Tasklet is a single unit of work run by a tasklet step.
type Tasklet interface {
	// Execute performs the work and returns the exit status transitions match on.
	Execute(ctx context.Context, stepExecution *model.StepExecution) (model.ExitStatus, error)
	// Close releases resources held by the tasklet.
	Close(ctx context.Context) error
	SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error
	GetExecutionContext(ctx context.Context) (model.ExecutionContext, error)
}

// JobExecutionListener is notified around a job run.
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

// StepExecutionListener is notified around a step run.
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *model.StepExecution)
	AfterStep(ctx context.Context, stepExecution *model.StepExecution)
}
