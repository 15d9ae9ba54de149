package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	usecase "github.com/tigerroll/switchprep/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/switchprep/pkg/batch/core/config"
	jsl "github.com/tigerroll/switchprep/pkg/batch/core/config/jsl"
	support "github.com/tigerroll/switchprep/pkg/batch/core/config/support"
	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
	inmemory "github.com/tigerroll/switchprep/pkg/batch/infrastructure/repository/inmemory"
	logging "github.com/tigerroll/switchprep/pkg/batch/listener/logging"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

// MockTasklet implements port.Tasklet.
type MockTasklet struct {
	mock.Mock
	ec model.ExecutionContext
}

func (m *MockTasklet) Execute(ctx context.Context, se *model.StepExecution) (model.ExitStatus, error) {
	args := m.Called(ctx, se)
	return args.Get(0).(model.ExitStatus), args.Error(1)
}
func (m *MockTasklet) Close(ctx context.Context) error { return nil }
func (m *MockTasklet) SetExecutionContext(ctx context.Context, ec model.ExecutionContext) error {
	m.ec = ec
	return nil
}
func (m *MockTasklet) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return m.ec, nil
}

const flowJob = `
id: testJob
name: Test job
flow:
  start-element: first
  elements:
    first:
      tasklet:
        ref: first
        properties:
          dir: ${workdir}/inputs
      transitions:
        - on: NO_OP
          to: third
        - on: COMPLETED
          to: second
    second:
      tasklet: {ref: second}
      transitions:
        - on: "*"
          to: third
    third:
      tasklet: {ref: third}
`

type harness struct {
	launcher *usecase.SimpleJobLauncher
	tasklets map[string]*MockTasklet
	props    map[string]map[string]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	defs := jsl.NewDefinitions()
	require.NoError(t, defs.LoadFromBytes([]byte(flowJob)))

	cfg := config.NewConfig()
	repo := inmemory.NewInMemoryJobRepository()
	jf := support.NewJobFactory(support.JobFactoryParams{Repo: repo, Cfg: cfg, Definitions: defs})
	jf.RegisterJobListenerBuilder(support.DefaultJobListener, logging.NewLoggingJobListenerBuilder())
	jf.RegisterStepExecutionListenerBuilder(support.DefaultStepListener, logging.NewLoggingStepListenerBuilder())

	h := &harness{
		launcher: usecase.NewSimpleJobLauncher(repo, jf),
		tasklets: map[string]*MockTasklet{},
		props:    map[string]map[string]string{},
	}
	for _, name := range []string{"first", "second", "third"} {
		name := name
		h.tasklets[name] = &MockTasklet{}
		jf.RegisterComponentBuilder(name, func(_ *config.Config, props map[string]string) (interface{}, error) {
			h.props[name] = props
			return h.tasklets[name], nil
		})
	}
	return h
}

func stepNames(je *model.JobExecution) []string {
	var names []string
	for _, se := range je.StepExecutions {
		names = append(names, se.StepName)
	}
	return names
}

func TestLaunch_FollowsTransitions(t *testing.T) {
	h := newHarness(t)
	h.tasklets["first"].On("Execute", mock.Anything, mock.Anything).Return(model.ExitStatusCompleted, nil)
	h.tasklets["second"].On("Execute", mock.Anything, mock.Anything).Return(model.ExitStatusCompleted, nil)
	h.tasklets["third"].On("Execute", mock.Anything, mock.Anything).Return(model.ExitStatusCompleted, nil)

	params, err := model.ParseJobParameters([]string{"workdir=/study"})
	require.NoError(t, err)

	je, err := h.launcher.Launch(context.Background(), "testJob", params)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	assert.Equal(t, []string{"first", "second", "third"}, stepNames(je))
	assert.Equal(t, "/study/inputs", h.props["first"]["dir"])
}

func TestLaunch_NoOpSkipsStep(t *testing.T) {
	h := newHarness(t)
	h.tasklets["first"].On("Execute", mock.Anything, mock.Anything).Return(model.ExitStatusNoOp, nil)
	h.tasklets["third"].On("Execute", mock.Anything, mock.Anything).Return(model.ExitStatusCompleted, nil)

	je, err := h.launcher.Launch(context.Background(), "testJob", model.NewJobParameters())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "third"}, stepNames(je))
	h.tasklets["second"].AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestLaunch_StepFailureAbortsJob(t *testing.T) {
	h := newHarness(t)
	cause := exception.MissingInput("startInputs", "inputs/gen_info.csv", nil)
	h.tasklets["first"].On("Execute", mock.Anything, mock.Anything).Return(model.ExitStatusCompleted, cause)

	je, err := h.launcher.Launch(context.Background(), "testJob", model.NewJobParameters())
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrMissingInput)
	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Equal(t, []string{"first"}, stepNames(je))
	assert.Equal(t, model.BatchStatusFailed, je.StepExecutions[0].Status)
	assert.NotEmpty(t, je.Failures)
	h.tasklets["second"].AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestLaunch_FailureUnderWildcardTransitionAbortsJob(t *testing.T) {
	h := newHarness(t)
	h.tasklets["first"].On("Execute", mock.Anything, mock.Anything).Return(model.ExitStatusCompleted, nil)
	cause := exception.NewBatchError("second", "solver exited with status 1", nil)
	h.tasklets["second"].On("Execute", mock.Anything, mock.Anything).Return(model.ExitStatusFailed, cause)

	je, err := h.launcher.Launch(context.Background(), "testJob", model.NewJobParameters())
	require.Error(t, err)
	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Equal(t, model.ExitStatusFailed, je.ExitStatus)
	assert.Equal(t, []string{"first", "second"}, stepNames(je))
	h.tasklets["third"].AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestLaunch_UnknownJob(t *testing.T) {
	h := newHarness(t)
	je, err := h.launcher.Launch(context.Background(), "nope", model.NewJobParameters())
	assert.Nil(t, je)
	require.Error(t, err)
	assert.True(t, exception.IsBatchError(err))
}

func TestLaunch_CancelledContextStopsJob(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	je, err := h.launcher.Launch(ctx, "testJob", model.NewJobParameters())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, model.BatchStatusStopped, je.Status)
	assert.Empty(t, je.StepExecutions)
}
