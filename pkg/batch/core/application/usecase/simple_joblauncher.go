// Package usecase implements the application services that start jobs.
package usecase

import (
	"context"

	port "github.com/tigerroll/switchprep/pkg/batch/core/application/port"
	support "github.com/tigerroll/switchprep/pkg/batch/core/config/support"
	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/switchprep/pkg/batch/core/domain/repository"
	exception "github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

const launcherModule = "job_launcher"

// SimpleJobLauncher runs a job synchronously in the caller's goroutine.
type SimpleJobLauncher struct {
	jobRepository repository.JobRepository
	jobFactory    *support.JobFactory
}

// NewSimpleJobLauncher creates a new SimpleJobLauncher.
func NewSimpleJobLauncher(repo repository.JobRepository, factory *support.JobFactory) *SimpleJobLauncher {
	return &SimpleJobLauncher{
		jobRepository: repo,
		jobFactory:    factory,
	}
}

// Launch builds the named job and runs it to completion. The error is the
// job's failure cause, or a launch error when the job could not be started.
func (l *SimpleJobLauncher) Launch(ctx context.Context, jobName string, jobParameters model.JobParameters) (*model.JobExecution, error) {
	logger.Infof("Launching Job '%s'. Parameters: %s", jobName, jobParameters.String())

	job, err := l.jobFactory.CreateJob(jobName, jobParameters)
	if err != nil {
		return nil, exception.NewBatchErrorf(launcherModule, "Failed to create job definition for '%s'", jobName, err)
	}

	jobExecution := model.NewJobExecution(job.JobName(), jobParameters)
	if err := l.jobRepository.SaveJobExecution(ctx, jobExecution); err != nil {
		return nil, exception.NewBatchError(launcherModule, "Failed to save JobExecution initially", err)
	}
	logger.Debugf("Saved JobExecution (ID: %s) to JobRepository (Status: %s).", jobExecution.ID, jobExecution.Status)

	runErr := job.Run(ctx, jobExecution, jobParameters)
	return jobExecution, runErr
}

var _ port.JobLauncher = (*SimpleJobLauncher)(nil)
