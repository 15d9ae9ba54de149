package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/switchprep/pkg/batch/core/domain/model"
)

func TestParseJobParameters(t *testing.T) {
	jp, err := model.ParseJobParameters([]string{"workdir=/data", "levels=0,50", "workdir=/other", "empty="})
	require.NoError(t, err)
	v, ok := jp.Get("workdir")
	assert.True(t, ok)
	assert.Equal(t, "/other", v)
	v, _ = jp.Get("empty")
	assert.Equal(t, "", v)
	assert.Equal(t, `{"empty":"","levels":"0,50","workdir":"/other"}`, jp.String())

	_, err = model.ParseJobParameters([]string{"novalue"})
	assert.Error(t, err)
	_, err = model.ParseJobParameters([]string{"=x"})
	assert.Error(t, err)
}

func TestStepExecutionLifecycle(t *testing.T) {
	je := model.NewJobExecution("job", model.NewJobParameters())
	se := model.NewStepExecution(je, "step")
	assert.Equal(t, je.ID, se.JobExecutionID)

	se.MarkAsStarted()
	se.MarkAsCompleted(model.ExitStatusNoOp)
	assert.Equal(t, model.BatchStatusCompleted, se.Status)
	assert.Equal(t, model.ExitStatusNoOp, se.ExitStatus)
	require.NotNil(t, se.EndTime)

	se2 := model.NewStepExecution(je, "step2")
	se2.MarkAsStarted()
	se2.MarkAsCompleted("")
	assert.Equal(t, model.ExitStatusCompleted, se2.ExitStatus)

	assert.Error(t, se2.TransitionTo(model.BatchStatusStarted), "finished steps cannot restart")
}

func TestJobExecution_FailuresAreDeduplicated(t *testing.T) {
	je := model.NewJobExecution("job", model.NewJobParameters())
	je.MarkAsStarted()
	boom := errors.New("boom")
	je.AddFailureException(boom)
	je.MarkAsFailed(boom)
	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Equal(t, model.ExitStatusFailed, je.ExitStatus)
	assert.Len(t, je.Failures, 1)
	assert.True(t, je.Status.IsFinished())
}

func TestFlowDefinition_GetTransitionRule(t *testing.T) {
	fd := model.NewFlowDefinition("a")
	require.NoError(t, fd.AddElement("a", struct{}{}))
	assert.Error(t, fd.AddElement("a", struct{}{}))

	fd.AddTransitionRule("a", model.Transition{On: "NO_OP", To: "c"})
	fd.AddTransitionRule("a", model.Transition{On: "*", To: "b"})

	rule, ok := fd.GetTransitionRule("a", model.ExitStatusNoOp)
	require.True(t, ok)
	assert.Equal(t, "c", rule.Transition.To)

	rule, ok = fd.GetTransitionRule("a", model.ExitStatusCompleted)
	require.True(t, ok)
	assert.Equal(t, "b", rule.Transition.To)

	_, ok = fd.GetTransitionRule("b", model.ExitStatusCompleted)
	assert.False(t, ok)
}
