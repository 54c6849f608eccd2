package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xxxsen/filesense/internal/ai"
	"github.com/xxxsen/filesense/internal/job"
	"github.com/xxxsen/filesense/internal/model"
	appErr "github.com/xxxsen/filesense/internal/pkg/errors"
	"github.com/xxxsen/filesense/internal/pkg/timeutil"
)

// TaskService is the registry-less submit-then-poll flow: captions and
// embeddings are held in an in-memory record that is consumed exactly
// once. It never touches the vector store.
type TaskService struct {
	provider ai.IProvider
	runner   job.Submitter
	ttl      time.Duration

	mu    sync.Mutex
	tasks map[string]*model.Task
}

func NewTaskService(provider ai.IProvider, runner job.Submitter, ttl time.Duration) *TaskService {
	return &TaskService{
		provider: provider,
		runner:   runner,
		ttl:      ttl,
		tasks:    make(map[string]*model.Task),
	}
}

type embeddingTask struct {
	svc        *TaskService
	taskID     string
	folderPath string
}

func (t *embeddingTask) Name() string {
	return "indexing_task"
}

func (t *embeddingTask) Run(ctx context.Context) error {
	return t.svc.run(ctx, t.taskID, t.folderPath)
}

func (s *TaskService) Submit(ctx context.Context, folderPath string) (string, error) {
	abs, err := filepath.Abs(folderPath)
	if err != nil {
		return "", appErr.ErrInvalid
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", appErr.ErrInvalid
	}
	now := timeutil.NowUnix()
	task := &model.Task{
		ID:         newTaskID(),
		Status:     model.TaskStatusRunning,
		FolderPath: abs,
		Ctime:      now,
		Mtime:      now,
	}
	s.mu.Lock()
	s.tasks[task.ID] = task
	s.mu.Unlock()

	if err := s.runner.Submit(&embeddingTask{svc: s, taskID: task.ID, folderPath: abs}); err != nil {
		s.mu.Lock()
		delete(s.tasks, task.ID)
		s.mu.Unlock()
		return "", err
	}
	return task.ID, nil
}

// Consume returns the record and removes it atomically. The second
// read of an id always fails.
func (s *TaskService) Consume(taskID string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, appErr.ErrTaskNotFound
	}
	delete(s.tasks, taskID)
	return task, nil
}

func (s *TaskService) run(ctx context.Context, taskID string, folderPath string) error {
	docs, err := generateDocuments(ctx, s.provider, folderPath)
	if err != nil {
		s.finish(taskID, func(task *model.Task) {
			task.Status = model.TaskStatusFailed
			task.Error = err.Error()
		})
		return err
	}
	captions := make([]string, 0, len(docs))
	captionEmbeddings := make([][]float32, 0, len(docs))
	imageEmbeddings := make([][]float32, 0, len(docs))
	filePaths := make([]string, 0, len(docs))
	for _, doc := range docs {
		captions = append(captions, doc.Caption)
		captionEmbeddings = append(captionEmbeddings, doc.TextEmbedding)
		imageEmbeddings = append(imageEmbeddings, doc.ImageEmbedding)
		filePaths = append(filePaths, doc.Path)
	}
	s.finish(taskID, func(task *model.Task) {
		task.Status = model.TaskStatusCompleted
		task.Captions = captions
		task.CaptionEmbeddings = captionEmbeddings
		task.ImageEmbeddings = imageEmbeddings
		task.FilePaths = filePaths
	})
	return nil
}

// finish applies the terminal transition unless the record was already
// consumed while the job ran.
func (s *TaskService) finish(taskID string, update func(task *model.Task)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok || task.Status != model.TaskStatusRunning {
		return
	}
	update(task)
	task.Mtime = timeutil.NowUnix()
}

// ExpireStale drops terminal records nobody polled within the TTL.
func (s *TaskService) ExpireStale(ctx context.Context) int {
	cutoff := time.Now().Add(-s.ttl).Unix()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, task := range s.tasks {
		if task.Status == model.TaskStatusRunning {
			continue
		}
		if task.Mtime < cutoff {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed
}
