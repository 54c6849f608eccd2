package job_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/filesense/internal/job"
	appErr "github.com/xxxsen/filesense/internal/pkg/errors"
)

type countJob struct {
	name string
	ran  *atomic.Int64
	done chan struct{}
}

func (j *countJob) Name() string {
	return j.name
}

func (j *countJob) Run(ctx context.Context) error {
	j.ran.Add(1)
	if j.done != nil {
		close(j.done)
	}
	return nil
}

func TestRunnerExecutesSubmittedJobs(t *testing.T) {
	runner := job.NewRunner(2, 4)
	runner.Start(context.Background())
	defer runner.Stop()

	var ran atomic.Int64
	done := make(chan struct{})
	require.NoError(t, runner.Submit(&countJob{name: "first", ran: &ran}))
	require.NoError(t, runner.Submit(&countJob{name: "second", ran: &ran, done: done}))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestRunnerRejectsWhenQueueFull(t *testing.T) {
	runner := job.NewRunner(1, 1)

	var ran atomic.Int64
	require.NoError(t, runner.Submit(&countJob{name: "queued", ran: &ran}))
	require.ErrorIs(t, runner.Submit(&countJob{name: "rejected", ran: &ran}), appErr.ErrTooMany)
}

func TestRunnerSubmitAfterStop(t *testing.T) {
	runner := job.NewRunner(1, 4)
	runner.Start(context.Background())
	runner.Stop()

	var ran atomic.Int64
	require.ErrorIs(t, runner.Submit(&countJob{name: "late", ran: &ran}), appErr.ErrTooMany)
	require.Equal(t, int64(0), ran.Load())
}

func TestRunnerStopDrainsQueue(t *testing.T) {
	runner := job.NewRunner(1, 8)

	var ran atomic.Int64
	for i := 0; i < 5; i++ {
		require.NoError(t, runner.Submit(&countJob{name: "drain", ran: &ran}))
	}
	runner.Start(context.Background())
	runner.Stop()
	require.Equal(t, int64(5), ran.Load())
}
