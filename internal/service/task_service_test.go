package service_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/filesense/internal/model"
	appErr "github.com/xxxsen/filesense/internal/pkg/errors"
	"github.com/xxxsen/filesense/internal/service"
)

func writeImages(t *testing.T, count int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 1; i <= count; i++ {
		name := fmt.Sprintf("%c.jpg", 'a'+i-1)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(fmt.Sprint(i)), 0o644))
	}
	return dir
}

func TestTaskSubmitAndConsumeOnce(t *testing.T) {
	dir := writeImages(t, 2)
	svc := service.NewTaskService(&mockProvider{}, syncRunner{}, time.Hour)

	taskID, err := svc.Submit(context.Background(), dir)
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	task, err := svc.Consume(taskID)
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusCompleted, task.Status)
	require.Equal(t, []string{"img-1", "img-2"}, task.Captions)
	require.Equal(t, []string{filepath.Join(dir, "a.jpg"), filepath.Join(dir, "b.jpg")}, task.FilePaths)
	require.Equal(t, [][]float32{unitVector("1"), unitVector("2")}, task.CaptionEmbeddings)
	require.Equal(t, [][]float32{unitVector("1"), unitVector("2")}, task.ImageEmbeddings)

	_, err = svc.Consume(taskID)
	require.ErrorIs(t, err, appErr.ErrTaskNotFound)
}

func TestTaskSubmitRejectsInvalidFolder(t *testing.T) {
	svc := service.NewTaskService(&mockProvider{}, syncRunner{}, time.Hour)

	_, err := svc.Submit(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestTaskFailureIsReported(t *testing.T) {
	dir := writeImages(t, 1)
	provider := &mockProvider{captionErr: errors.New("caption model crashed")}
	svc := service.NewTaskService(provider, syncRunner{}, time.Hour)

	taskID, err := svc.Submit(context.Background(), dir)
	require.NoError(t, err)

	task, err := svc.Consume(taskID)
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusFailed, task.Status)
	require.Contains(t, task.Error, "caption model crashed")
	require.Empty(t, task.Captions)
}

func TestTaskConsumeUnknown(t *testing.T) {
	svc := service.NewTaskService(&mockProvider{}, syncRunner{}, time.Hour)

	_, err := svc.Consume("never-created")
	require.ErrorIs(t, err, appErr.ErrTaskNotFound)
}

func TestTaskExpireStale(t *testing.T) {
	dir := writeImages(t, 1)
	svc := service.NewTaskService(&mockProvider{}, syncRunner{}, time.Nanosecond)

	taskID, err := svc.Submit(context.Background(), dir)
	require.NoError(t, err)

	// Mtime resolution is one second, so wait past the boundary.
	time.Sleep(1100 * time.Millisecond)
	require.Equal(t, 1, svc.ExpireStale(context.Background()))

	_, err = svc.Consume(taskID)
	require.ErrorIs(t, err, appErr.ErrTaskNotFound)
}

func TestTaskExpireKeepsRunning(t *testing.T) {
	dir := writeImages(t, 1)
	runner := &captureRunner{}
	svc := service.NewTaskService(&mockProvider{}, runner, time.Nanosecond)

	_, err := svc.Submit(context.Background(), dir)
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	require.Equal(t, 0, svc.ExpireStale(context.Background()))
}
