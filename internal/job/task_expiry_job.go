package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type TaskExpirer interface {
	ExpireStale(ctx context.Context) int
}

// TaskExpiryJob evicts task records that were never consumed.
type TaskExpiryJob struct {
	tasks TaskExpirer
}

func NewTaskExpiryJob(tasks TaskExpirer) *TaskExpiryJob {
	return &TaskExpiryJob{tasks: tasks}
}

func (j *TaskExpiryJob) Name() string {
	return "task_expiry"
}

func (j *TaskExpiryJob) Run(ctx context.Context) error {
	if removed := j.tasks.ExpireStale(ctx); removed > 0 {
		logutil.GetLogger(ctx).Info("expired stale tasks", zap.Int("count", removed))
	}
	return nil
}
