package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/filesense/internal/model"
	"github.com/xxxsen/filesense/internal/repo"
	"github.com/xxxsen/filesense/internal/vectorstore"
)

// FailedIndexCleanupJob drops vector collections left behind by failed
// indexing runs. A failed job does not roll back documents it already
// upserted; this job reconciles the store with the registry afterwards.
type FailedIndexCleanupJob struct {
	indexes *repo.IndexRepo
	store   vectorstore.Store
}

func NewFailedIndexCleanupJob(indexes *repo.IndexRepo, store vectorstore.Store) *FailedIndexCleanupJob {
	return &FailedIndexCleanupJob{indexes: indexes, store: store}
}

func (j *FailedIndexCleanupJob) Name() string {
	return "failed_index_cleanup"
}

func (j *FailedIndexCleanupJob) Run(ctx context.Context) error {
	failed, err := j.indexes.ListByStatus(ctx, model.IndexStatusFailed)
	if err != nil {
		return err
	}
	for _, index := range failed {
		if err := j.store.DeleteIndex(ctx, index.ID); err != nil {
			logutil.GetLogger(ctx).Error("drop collections of failed index",
				zap.String("index_id", index.ID), zap.Error(err))
			continue
		}
	}
	return nil
}
