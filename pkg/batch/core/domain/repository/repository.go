// Package repository defines persistence of batch execution metadata.
package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

// ErrJobExecutionNotFound is the error returned when a JobExecution is not found.
var ErrJobExecutionNotFound = errors.New("job execution not found")

// ErrStepExecutionNotFound is the error returned when a StepExecution is not found.
var ErrStepExecutionNotFound = errors.New("step execution not found")

func init() {
	exception.RegisterErrorType("ErrJobExecutionNotFound", ErrJobExecutionNotFound)
	exception.RegisterErrorType("ErrStepExecutionNotFound", ErrStepExecutionNotFound)
}

// JobExecution persists job executions.
type JobExecution interface {
	// SaveJobExecution persists a new JobExecution.
	SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error
	// UpdateJobExecution updates the state of an existing JobExecution.
	UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error
	// FindJobExecutionByID finds a JobExecution and its StepExecutions.
	FindJobExecutionByID(ctx context.Context, executionID string) (*model.JobExecution, error)
	// FindJobExecutionsByJobName lists executions of a job, latest first.
	FindJobExecutionsByJobName(ctx context.Context, jobName string) ([]*model.JobExecution, error)
}

// StepExecution persists step executions.
type StepExecution interface {
	// SaveStepExecution persists a new StepExecution.
	SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error
	// UpdateStepExecution updates the state of an existing StepExecution.
	UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error
	// FindStepExecutionByID finds a StepExecution by its ID.
	FindStepExecutionByID(ctx context.Context, executionID string) (*model.StepExecution, error)
}

// JobRepository stores batch execution metadata.
type JobRepository interface {
	JobExecution
	StepExecution

	// Close releases resources used by the repository.
	Close() error
}
