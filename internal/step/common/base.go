// Package common holds what every study tasklet shares: ExecutionContext
// handling and reporting of the files and rows a step wrote.
package common

import (
	"context"
	"sort"

	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
	tasklet "github.com/tigerroll/switchprep/pkg/batch/engine/step/tasklet"
	logging "github.com/tigerroll/switchprep/pkg/batch/listener/logging"
	logger "github.com/tigerroll/switchprep/pkg/batch/support/util/logger"
)

// Base implements the ExecutionContext part of port.Tasklet. Tasklets embed
// it and add Execute.
type Base struct {
	name             string
	executionContext model.ExecutionContext
	outputs          []string
	rows             map[string]int
}

// NewBase creates a Base for the tasklet called name.
func NewBase(name string) Base {
	return Base{
		name:             name,
		executionContext: model.NewExecutionContext(),
		rows:             make(map[string]int),
	}
}

// Name returns the tasklet name used in logs and errors.
func (b *Base) Name() string { return b.name }

// Wrote records an output file.
func (b *Base) Wrote(files ...string) {
	b.outputs = append(b.outputs, files...)
}

// Counted adds rows written per table, e.g. inputdir.Dir.Written.
func (b *Base) Counted(prefix string, rows map[string]int) {
	for name, n := range rows {
		b.rows[prefix+name] += n
	}
}

// Finish publishes outputs and row counts to the ExecutionContext and to
// stepExecution. Tasklets call it after a successful run.
func (b *Base) Finish(stepExecution *model.StepExecution) {
	sort.Strings(b.outputs)
	b.executionContext.Put(logging.OutputsKey, append([]string(nil), b.outputs...))
	rows := make(map[string]int, len(b.rows))
	total := 0
	for k, v := range b.rows {
		rows[k] = v
		total += v
	}
	b.executionContext.Put(tasklet.RowsWrittenKey, rows)
	if stepExecution != nil {
		stepExecution.WriteCount += total
	}
	logger.Debugf("%s: %d files, %d rows written.", b.name, len(b.outputs), total)
}

// Canceled reports ctx's error if it is done.
func Canceled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Close releases nothing by default.
func (b *Base) Close(ctx context.Context) error {
	logger.Debugf("%s: Close called.", b.name)
	return nil
}

// SetExecutionContext sets the ExecutionContext for the Tasklet.
func (b *Base) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	if ec == nil {
		ec = model.NewExecutionContext()
	}
	b.executionContext = ec
	return nil
}

// GetExecutionContext retrieves the current ExecutionContext of the Tasklet.
func (b *Base) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return b.executionContext, nil
}

// ExecutionContext returns the live ExecutionContext.
func (b *Base) ExecutionContext() model.ExecutionContext { return b.executionContext }
