package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/filesense/internal/ai"
	"github.com/xxxsen/filesense/internal/job"
	"github.com/xxxsen/filesense/internal/model"
	"github.com/xxxsen/filesense/internal/pkg/dirhash"
	appErr "github.com/xxxsen/filesense/internal/pkg/errors"
	"github.com/xxxsen/filesense/internal/repo"
	"github.com/xxxsen/filesense/internal/vectorstore"
)

// IndexService turns a directory into a registered, asynchronously
// built vector index. Submission validates and claims the path, writes
// the registry row and queues the job; all embedding work happens on
// the runner.
type IndexService struct {
	indexes  *repo.IndexRepo
	store    vectorstore.Store
	provider ai.IProvider
	runner   job.Submitter

	mu     sync.Mutex
	claims map[string]struct{}
}

func NewIndexService(indexes *repo.IndexRepo, store vectorstore.Store, provider ai.IProvider, runner job.Submitter) *IndexService {
	return &IndexService{
		indexes:  indexes,
		store:    store,
		provider: provider,
		runner:   runner,
		claims:   make(map[string]struct{}),
	}
}

type indexingJob struct {
	svc     *IndexService
	indexID string
	dirPath string
}

func (j *indexingJob) Name() string {
	return "index_directory"
}

func (j *indexingJob) Run(ctx context.Context) error {
	return j.svc.runIndexing(ctx, j.indexID, j.dirPath)
}

// SubmitIndexing registers dirPath and queues the indexing job,
// returning the content-derived index id without waiting for any
// embedding work.
func (s *IndexService) SubmitIndexing(ctx context.Context, dirPath string) (string, error) {
	abs, err := filepath.Abs(dirPath)
	if err != nil {
		return "", appErr.ErrInvalid
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", appErr.ErrInvalid
	}

	// Claim the path so two racing submissions of a brand-new
	// directory cannot both pass the existence check below.
	if !s.claimPath(abs) {
		return "", appErr.ErrConflict
	}
	defer s.releasePath(abs)

	exists, err := s.indexes.PathExists(ctx, abs)
	if err != nil {
		return "", err
	}
	if exists {
		return "", appErr.ErrConflict
	}

	indexID, err := dirhash.Hash(abs)
	if err != nil {
		return "", err
	}
	index := &model.Index{
		ID:     indexID,
		Path:   abs,
		Status: model.IndexStatusIndexing,
	}
	if err := s.indexes.Create(ctx, index); err != nil {
		return "", err
	}
	if err := s.runner.Submit(&indexingJob{svc: s, indexID: indexID, dirPath: abs}); err != nil {
		_ = s.indexes.Delete(ctx, indexID)
		return "", err
	}
	return indexID, nil
}

// runIndexing builds all documents, upserts both spaces in one batch
// and finalizes the registry row. The status write is the job's last
// registry write; documents upserted before a failure are left for the
// cleanup job to reconcile.
func (s *IndexService) runIndexing(ctx context.Context, indexID string, dirPath string) error {
	logger := logutil.GetLogger(ctx).With(zap.String("index_id", indexID), zap.String("dir", dirPath))
	err := s.buildIndex(ctx, indexID, dirPath)
	if err != nil {
		logger.Error("indexing failed", zap.Error(err))
		if uerr := s.indexes.UpdateStatus(ctx, indexID, model.IndexStatusFailed); uerr != nil {
			logger.Error("mark index failed", zap.Error(uerr))
		}
		return err
	}
	if err := s.indexes.UpdateStatus(ctx, indexID, model.IndexStatusIndexed); err != nil {
		logger.Error("mark index done", zap.Error(err))
		return err
	}
	logger.Info("indexing finished")
	return nil
}

func (s *IndexService) buildIndex(ctx context.Context, indexID string, dirPath string) error {
	docs, err := generateDocuments(ctx, s.provider, dirPath)
	if err != nil {
		return err
	}
	if err := s.store.EnsureIndex(ctx, indexID); err != nil {
		return err
	}
	return s.store.Upsert(ctx, indexID, docs)
}

// CreateEntry writes a registry row directly, without walking or
// embedding anything. Callers that run their own indexing pipeline use
// this to register the result.
func (s *IndexService) CreateEntry(ctx context.Context, index *model.Index) error {
	if index.ID == "" || index.Path == "" {
		return appErr.ErrInvalid
	}
	return s.indexes.Create(ctx, index)
}

func (s *IndexService) GetStatus(ctx context.Context, indexID string) (*model.Index, error) {
	return s.indexes.GetByID(ctx, indexID)
}

func (s *IndexService) List(ctx context.Context) ([]model.Index, error) {
	return s.indexes.List(ctx)
}

func (s *IndexService) ListIndexed(ctx context.Context) ([]model.Index, error) {
	return s.indexes.ListByStatus(ctx, model.IndexStatusIndexed)
}

// Delete removes the registry row and both vector collections. The row
// goes first so the index stops being visible even if the collection
// drop fails.
func (s *IndexService) Delete(ctx context.Context, indexID string) error {
	if err := s.indexes.Delete(ctx, indexID); err != nil {
		return err
	}
	if err := s.store.DeleteIndex(ctx, indexID); err != nil {
		logutil.GetLogger(ctx).Error("drop vector collections", zap.String("index_id", indexID), zap.Error(err))
		return err
	}
	return nil
}

func (s *IndexService) claimPath(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.claims[path]; ok {
		return false
	}
	s.claims[path] = struct{}{}
	return true
}

func (s *IndexService) releasePath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, path)
}
