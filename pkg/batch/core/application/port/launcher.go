package port

import (
	"context"

	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
)

// JobLauncher starts a job by name.
type JobLauncher interface {
	// Launch builds and runs the named job to completion.
	// The returned JobExecution is non-nil whenever the job was started.
	Launch(ctx context.Context, jobName string, params model.JobParameters) (*model.JobExecution, error)
}
