// Package logging provides job and step listeners that log execution lifecycle events.
package logging

import (
	"context"
	"strings"

	port "github.com/tigerroll/switchprep/pkg/batch/core/application/port"
	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

// OutputsKey is the ExecutionContext key under which tasklets list the files they wrote.
const OutputsKey = "outputs"

// --- Job Execution Listener ---

type LoggingJobListener struct {
	properties map[string]string
}

func NewLoggingJobListener(properties map[string]string) *LoggingJobListener {
	return &LoggingJobListener{properties: properties}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.Infof("JobExecutionListener: BeforeJob - JobName: %s, ID: %s, Params: %s", jobExecution.JobName, jobExecution.ID, jobExecution.Parameters.String())
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	logger.Infof("JobExecutionListener: AfterJob - JobName: %s, Status: %s, ExitStatus: %s, Duration: %s",
		jobExecution.JobName, jobExecution.Status, jobExecution.ExitStatus, jobExecution.Duration())
	for _, f := range jobExecution.Failures {
		logger.Errorf("JobExecutionListener: failure in %s: %s", jobExecution.JobName, f)
	}
}

var _ port.JobExecutionListener = (*LoggingJobListener)(nil)

// --- Step Execution Listener ---

type LoggingStepListener struct {
	properties map[string]string
}

func NewLoggingStepListener(properties map[string]string) *LoggingStepListener {
	return &LoggingStepListener{properties: properties}
}

func (l *LoggingStepListener) BeforeStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Infof("StepExecutionListener: BeforeStep - StepName: %s, ID: %s", stepExecution.StepName, stepExecution.ID)
}

// AfterStep logs the final status and, at debug level, the outputs the step reported.
func (l *LoggingStepListener) AfterStep(ctx context.Context, stepExecution *model.StepExecution) {
	logger.Infof("StepExecutionListener: AfterStep - StepName: %s, Status: %s, ExitStatus: %s, Read: %d, Write: %d",
		stepExecution.StepName, stepExecution.Status, stepExecution.ExitStatus, stepExecution.ReadCount, stepExecution.WriteCount)
	if outputs, ok := stepExecution.ExecutionContext.Get(OutputsKey); ok {
		if list, ok := outputs.([]string); ok && len(list) > 0 {
			logger.Debugf("StepExecutionListener: %s wrote %s", stepExecution.StepName, strings.Join(list, ", "))
		}
	}
}

var _ port.StepExecutionListener = (*LoggingStepListener)(nil)
