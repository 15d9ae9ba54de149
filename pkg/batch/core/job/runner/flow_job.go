// Package runner executes JSL-defined flows of steps.
package runner

import (
	"context"
	"errors"
	"fmt"

	port "github.com/tigerroll/switchprep/pkg/batch/core/application/port"
	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/switchprep/pkg/batch/core/domain/repository"
	metrics "github.com/tigerroll/switchprep/pkg/batch/core/metrics"
	exception "github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

// FlowJob is an implementation of port.Job that walks a FlowDefinition.
type FlowJob struct {
	id             string
	name           string
	flow           *model.FlowDefinition
	jobRepository  repository.JobRepository
	jobListeners   []port.JobExecutionListener
	metricRecorder metrics.MetricRecorder
	tracer         metrics.Tracer
}

var _ port.Job = (*FlowJob)(nil)

// NewFlowJob creates a new instance of FlowJob.
func NewFlowJob(
	id string,
	name string,
	flow *model.FlowDefinition,
	jobRepository repository.JobRepository,
	jobListeners []port.JobExecutionListener,
	metricRecorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *FlowJob {
	if metricRecorder == nil {
		metricRecorder = metrics.NewNoOpMetricRecorder()
	}
	if tracer == nil {
		tracer = metrics.NewNoOpTracer()
	}
	return &FlowJob{
		id:             id,
		name:           name,
		flow:           flow,
		jobRepository:  jobRepository,
		jobListeners:   jobListeners,
		metricRecorder: metricRecorder,
		tracer:         tracer,
	}
}

// ID returns the job ID.
func (j *FlowJob) ID() string {
	return j.id
}

// JobName returns the job name.
func (j *FlowJob) JobName() string {
	return j.name
}

// GetFlow returns the job flow definition.
func (j *FlowJob) GetFlow() *model.FlowDefinition {
	return j.flow
}

// Run executes steps from the start element, following transition rules on each exit status.
// A step error fails the job and is returned, unless the matching rule names FAILED explicitly.
func (j *FlowJob) Run(ctx context.Context, jobExecution *model.JobExecution, jobParameters model.JobParameters) (runErr error) {
	logger.Infof("Starting Job '%s' (Execution ID: %s).", j.name, jobExecution.ID)

	ctx, finishSpan := j.tracer.StartJobSpan(ctx, jobExecution)
	defer finishSpan()

	if jobExecution.Status == model.BatchStatusStarting {
		jobExecution.MarkAsStarted()
	}
	j.metricRecorder.RecordJobStart(ctx, jobExecution)
	for _, l := range j.jobListeners {
		l.BeforeJob(ctx, jobExecution)
	}

	defer func() {
		if updateErr := j.jobRepository.UpdateJobExecution(ctx, jobExecution); updateErr != nil {
			logger.Errorf("Job '%s': Failed to update final JobExecution state: %v", j.name, updateErr)
		}
		for _, l := range j.jobListeners {
			l.AfterJob(ctx, jobExecution)
		}
		j.metricRecorder.RecordJobEnd(ctx, jobExecution)
		logger.Infof("Job '%s' (Execution ID: %s) finished. Final Status: %s, Exit Status: %s",
			j.name, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
	}()

	fail := func(err error) error {
		logger.Errorf("Job '%s': %v", j.name, err)
		j.tracer.RecordError(ctx, "job_runner", err)
		jobExecution.MarkAsFailed(err)
		return err
	}

	currentElementID := j.flow.StartElement
	for {
		if err := ctx.Err(); err != nil {
			logger.Warnf("Context cancelled, interrupting execution of Job '%s': %v", j.name, err)
			jobExecution.AddFailureException(err)
			jobExecution.MarkAsStopped()
			return err
		}

		element, ok := j.flow.Elements[currentElementID]
		if !ok {
			return fail(exception.NewBatchErrorf(j.name, "Flow element '%s' not found", currentElementID))
		}
		step, ok := element.(port.Step)
		if !ok {
			return fail(exception.NewBatchErrorf(j.name, "Flow element '%s' is not a step: %T", currentElementID, element))
		}

		stepName := step.StepName()
		jobExecution.CurrentStepName = stepName
		stepExecution := model.NewStepExecution(jobExecution, stepName)
		jobExecution.AddStepExecution(stepExecution)
		if err := j.jobRepository.SaveStepExecution(ctx, stepExecution); err != nil {
			return fail(exception.NewBatchError(j.name, "Error saving new StepExecution", err))
		}

		stepErr := step.Execute(ctx, jobExecution, stepExecution)
		exitStatus := stepExecution.ExitStatus
		if stepErr != nil {
			logger.Errorf("Job '%s': Error occurred during execution of step '%s': %v", j.name, stepName, stepErr)
			if errors.Is(stepErr, context.Canceled) {
				jobExecution.AddFailureException(stepErr)
				jobExecution.MarkAsStopped()
				return stepErr
			}
		} else {
			logger.Infof("Job '%s': Step '%s' completed. ExitStatus: %s", j.name, stepName, exitStatus)
		}

		rule, found := j.flow.GetTransitionRule(step.ID(), exitStatus)
		if !found {
			if stepErr != nil {
				return fail(stepErr)
			}
			logger.Infof("Job '%s': No transition rule found from '%s'. Completing job.", j.name, step.ID())
			jobExecution.MarkAsCompleted()
			return nil
		}

		switch t := rule.Transition; {
		case t.End:
			if stepErr != nil {
				return fail(stepErr)
			}
			logger.Infof("Job '%s': 'End' transition from '%s'. Completing job.", j.name, step.ID())
			jobExecution.MarkAsCompleted()
			return nil
		case t.Fail:
			failErr := stepErr
			if failErr == nil {
				failErr = fmt.Errorf("explicit fail transition from %s on %s", step.ID(), exitStatus)
			}
			return fail(failErr)
		case t.Stop:
			logger.Infof("Job '%s': 'Stop' transition from '%s'. Stopping job.", j.name, step.ID())
			jobExecution.MarkAsStopped()
			return nil
		default:
			if stepErr != nil {
				// Only a rule written for FAILED may route past a step error.
				if t.On != string(model.ExitStatusFailed) {
					return fail(stepErr)
				}
				jobExecution.AddFailureException(stepErr)
			}
			currentElementID = t.To
		}
	}
}
