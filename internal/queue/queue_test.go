package queue

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fulfillment-workers/internal/common/config"
	"fulfillment-workers/internal/common/errors"
	"fulfillment-workers/internal/common/logger"
	"fulfillment-workers/internal/fulfillment"
)

type fakeRunner struct {
	calls  []int64
	report *fulfillment.RunReport
	err    error
}

func (f *fakeRunner) RunFulfillment(_ context.Context, applicationID int64) (*fulfillment.RunReport, error) {
	f.calls = append(f.calls, applicationID)
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

// ==========================
// Tasks
// ==========================

func TestFulfillmentTask_RoundTrip(t *testing.T) {
	task, err := NewFulfillmentTask(42)
	require.NoError(t, err)
	assert.Equal(t, TaskFulfillment, task.Type())
	assert.JSONEq(t, `{"applicationId":42}`, string(task.Payload()))

	payload, err := ParseFulfillmentPayload(task)
	require.NoError(t, err)
	assert.Equal(t, int64(42), payload.ApplicationID)
}

func TestFulfillmentTask_RejectsNonPositiveID(t *testing.T) {
	_, err := NewFulfillmentTask(0)
	require.Error(t, err)
}

func TestParseFulfillmentPayload_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "negative id", payload: `{"applicationId":-3}`},
		{name: "zero id", payload: `{"applicationId":0}`},
		{name: "fractional id", payload: `{"applicationId":1.5}`},
		{name: "string id", payload: `{"applicationId":"12"}`},
		{name: "missing id", payload: `{}`},
		{name: "not json", payload: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFulfillmentPayload(asynq.NewTask(TaskFulfillment, []byte(tt.payload)))
			require.Error(t, err)
		})
	}
}

func TestParseFulfillmentPayload_IgnoresExtraFields(t *testing.T) {
	payload, err := ParseFulfillmentPayload(asynq.NewTask(TaskFulfillment, []byte(`{"applicationId":9,"source":"cli"}`)))
	require.NoError(t, err)
	assert.Equal(t, int64(9), payload.ApplicationID)
}

func TestQueueName(t *testing.T) {
	assert.Equal(t, "fulfillment", queueName(config.QueueConfig{}))
	assert.Equal(t, "critical", queueName(config.QueueConfig{Name: "critical"}))
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 10*time.Second, retryDelay(0, nil, nil))
	assert.Equal(t, 40*time.Second, retryDelay(2, nil, nil))
	assert.Equal(t, 5*time.Minute, retryDelay(10, nil, nil))
}

// ==========================
// Processor
// ==========================

func TestProcessor_Completes(t *testing.T) {
	runner := &fakeRunner{report: &fulfillment.RunReport{RunID: "run-1", ApplicationID: 7}}
	p := NewProcessor(runner, nil, logger.NewTestLogger(t))

	task, err := NewFulfillmentTask(7)
	require.NoError(t, err)

	require.NoError(t, p.HandleFulfillment(context.Background(), task))
	assert.Equal(t, []int64{7}, runner.calls)
}

func TestProcessor_RetryableErrorIsRetried(t *testing.T) {
	runner := &fakeRunner{err: errors.NewApplicationLockedError(7)}
	p := NewProcessor(runner, nil, logger.NewTestLogger(t))

	task, _ := NewFulfillmentTask(7)
	err := p.HandleFulfillment(context.Background(), task)

	require.Error(t, err)
	assert.False(t, stderrors.Is(err, asynq.SkipRetry))
	assert.True(t, errors.HasCode(err, errors.ErrCodeApplicationLocked))
}

func TestProcessor_TerminalErrorSkipsRetry(t *testing.T) {
	runner := &fakeRunner{err: errors.NewApplicationNotFoundError(7)}
	p := NewProcessor(runner, nil, logger.NewTestLogger(t))

	task, _ := NewFulfillmentTask(7)
	err := p.HandleFulfillment(context.Background(), task)

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, asynq.SkipRetry))
}

func TestProcessor_BadPayloadSkipsRunner(t *testing.T) {
	runner := &fakeRunner{}
	p := NewProcessor(runner, nil, logger.NewTestLogger(t))

	err := p.HandleFulfillment(context.Background(), asynq.NewTask(TaskFulfillment, []byte(`{}`)))

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, asynq.SkipRetry))
	assert.Empty(t, runner.calls)
}

func TestProcessor_JoinedTerminalErrorSkipsRetry(t *testing.T) {
	runner := &fakeRunner{err: stderrors.Join(
		errors.NewApplicationLockedError(7),
		errors.NewFileTransferFailedError("img/back.jpg", stderrors.New("no such key")),
	)}
	p := NewProcessor(runner, nil, logger.NewTestLogger(t))

	task, _ := NewFulfillmentTask(7)
	err := p.HandleFulfillment(context.Background(), task)

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, asynq.SkipRetry))
}
