// Package metrics defines the recording and tracing abstractions used by
// the job runner and steps.
package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
)

// MetricRecorder records metrics about batch execution.
type MetricRecorder interface {
	// RecordJobStart records the start of a JobExecution.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)
	// RecordJobEnd records the end of a JobExecution.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)
	// RecordStepStart records the start of a StepExecution.
	RecordStepStart(ctx context.Context, execution *model.StepExecution)
	// RecordStepEnd records the end of a StepExecution.
	RecordStepEnd(ctx context.Context, execution *model.StepExecution)
	// RecordRowsWritten counts rows a step wrote to one output table.
	RecordRowsWritten(ctx context.Context, stepName, table string, count int)
	// RecordDuration records the execution time of a named operation.
	//   tags: extra labels, e.g. {"scenario": "base_short"}
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}

// Tracer abstracts distributed tracing of jobs and steps.
type Tracer interface {
	// StartJobSpan starts a span for a JobExecution and returns the function that ends it.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())
	// StartStepSpan starts a span for a StepExecution and returns the function that ends it.
	StartStepSpan(ctx context.Context, execution *model.StepExecution) (context.Context, func())
	// RecordError records an error in the current span.
	RecordError(ctx context.Context, module string, err error)
	// RecordEvent records an event in the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
