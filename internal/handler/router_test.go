package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/filesense/internal/config"
	"github.com/xxxsen/filesense/internal/handler"
	"github.com/xxxsen/filesense/internal/job"
	"github.com/xxxsen/filesense/internal/repo"
	"github.com/xxxsen/filesense/internal/service"
	"github.com/xxxsen/filesense/internal/vectorstore"
)

type stubProvider struct{}

func (stubProvider) Name() string {
	return "stub"
}

func (stubProvider) Caption(ctx context.Context, image []byte) (string, error) {
	return "img-" + string(image), nil
}

func (stubProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, 0, len(texts))
	for _, text := range texts {
		result = append(result, stubVector(strings.TrimPrefix(text, "img-")))
	}
	return result, nil
}

func (stubProvider) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	return stubVector(string(image)), nil
}

func stubVector(label string) []float32 {
	k, _ := strconv.Atoi(label)
	vec := make([]float32, 8)
	if k >= 1 && k <= len(vec) {
		vec[k-1] = 1
	}
	return vec
}

type inlineRunner struct{}

func (inlineRunner) Submit(j job.Job) error {
	_ = j.Run(context.Background())
	return nil
}

type testServer struct {
	engine  *gin.Engine
	indexes *service.IndexService
	dir     string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repo.Open(filepath.Join(t.TempDir(), "refdb.sqlite3"))
	require.NoError(t, err)
	require.NoError(t, repo.ApplyMigrations(db))
	t.Cleanup(func() {
		_ = db.Close()
	})

	store, err := vectorstore.New(config.VectorStoreConfig{
		Type: "sqlite",
		Data: map[string]interface{}{
			"path": filepath.Join(t.TempDir(), "vdb.sqlite3"),
		},
	})
	require.NoError(t, err)

	dir := t.TempDir()
	for i, name := range []string{"a.jpg", "b.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(fmt.Sprint(i+1)), 0o644))
	}

	provider := stubProvider{}
	indexRepo := repo.NewIndexRepo(db)
	indexes := service.NewIndexService(indexRepo, store, provider, inlineRunner{})
	search := service.NewSearchService(indexRepo, store, provider)
	tasks := service.NewTaskService(provider, inlineRunner{}, time.Hour)

	engine := gin.New()
	handler.RegisterRoutes(engine.Group("/"), handler.RouterDeps{
		Indexes: handler.NewIndexHandler(indexes),
		Search:  handler.NewSearchHandler(search),
		Tasks:   handler.NewTaskHandler(tasks),
		AI:      handler.NewAIHandler(provider),
		Status:  handler.NewStatusHandler(store),
	})

	return &testServer{engine: engine, indexes: indexes, dir: dir}
}

func (s *testServer) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func TestIndexDirectoryEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/index_directory", gin.H{"dir_path": srv.dir})
	require.Equal(t, http.StatusOK, rec.Code)

	// same path again is rejected with the legacy 404
	rec = srv.do(t, http.MethodPost, "/index_directory", gin.H{"dir_path": srv.dir})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPost, "/index_directory", gin.H{"dir_path": filepath.Join(srv.dir, "missing")})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPost, "/index_directory", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateIndexEndpoint(t *testing.T) {
	srv := newTestServer(t)

	body := gin.H{"index_id": "idx-raw", "index_path": "/photos/raw", "index_status": 0}
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPost, "/create_index", body).Code)

	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/get_index_status/idx-raw", nil).Code)

	require.Equal(t, http.StatusConflict, srv.do(t, http.MethodPost, "/create_index", body).Code)

	require.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodPost, "/create_index", gin.H{"index_id": "x"}).Code)
}

func TestGetIndexStatusEndpoint(t *testing.T) {
	srv := newTestServer(t)
	indexID, err := srv.indexes.SubmitIndexing(context.Background(), srv.dir)
	require.NoError(t, err)

	rec := srv.do(t, http.MethodGet, "/get_index_status/"+indexID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/get_index_status/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEndpoints(t *testing.T) {
	srv := newTestServer(t)
	_, err := srv.indexes.SubmitIndexing(context.Background(), srv.dir)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/get_all_index", nil).Code)
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/get_only_indexed_indexes", nil).Code)
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/get_all_indexed", nil).Code)
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/is_alive", nil).Code)
}

func TestSearchByTextEndpoint(t *testing.T) {
	srv := newTestServer(t)
	indexID, err := srv.indexes.SubmitIndexing(context.Background(), srv.dir)
	require.NoError(t, err)

	rec := srv.do(t, http.MethodGet, "/search_by_text?index_name="+indexID+"&search_string=img-1&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/search_by_text?index_name=missing&search_string=img-1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodGet, "/search_by_text?index_name="+indexID, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchByImageEndpoint(t *testing.T) {
	srv := newTestServer(t)
	indexID, err := srv.indexes.SubmitIndexing(context.Background(), srv.dir)
	require.NoError(t, err)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "query.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("2"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/search_by_image?index_name="+indexID+"&limit=1", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPost, "/search_by_image?index_name="+indexID, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteIndexEndpoint(t *testing.T) {
	srv := newTestServer(t)
	indexID, err := srv.indexes.SubmitIndexing(context.Background(), srv.dir)
	require.NoError(t, err)

	require.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodDelete, "/delete_index", nil).Code)
	require.Equal(t, http.StatusNotFound, srv.do(t, http.MethodDelete, "/delete_index?index_name=missing", nil).Code)
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodDelete, "/delete_index?index_name="+indexID, nil).Code)
	require.Equal(t, http.StatusNotFound, srv.do(t, http.MethodDelete, "/delete_index?index_name="+indexID, nil).Code)
}

func TestIndexingTaskEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/create_indexing_task", gin.H{"folder_path": srv.dir})
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data struct {
			TaskID string `json:"task_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.TaskID)

	rec = srv.do(t, http.MethodGet, "/get_indexing_task_status_or_result/"+envelope.Data.TaskID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// records are consumed on read
	rec = srv.do(t, http.MethodGet, "/get_indexing_task_status_or_result/"+envelope.Data.TaskID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPost, "/create_indexing_task", gin.H{"folder_path": filepath.Join(srv.dir, "missing")})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAIEndpoints(t *testing.T) {
	srv := newTestServer(t)
	imagePath := filepath.Join(srv.dir, "a.jpg")

	rec := srv.do(t, http.MethodPost, "/get_text_embeddings", gin.H{"text": []string{"img-1", "img-2"}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPost, "/get_image_embeddings", gin.H{"image_paths": []string{imagePath}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPost, "/get_image_caption", gin.H{"image_path": []string{imagePath}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPost, "/get_caption_with_embeddings", gin.H{"image_paths": []string{imagePath}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodPost, "/get_image_embeddings", gin.H{"image_paths": []string{filepath.Join(srv.dir, "missing.jpg")}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
