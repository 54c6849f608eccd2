package vectorstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/filesense/internal/model"
	appErr "github.com/xxxsen/filesense/internal/pkg/errors"
)

// qdrantStore maps each collection onto a qdrant collection of the same
// name through the REST API.
type qdrantStoreConfig struct {
	Endpoint       string `json:"endpoint"`
	VectorDim      int    `json:"vector_dim"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type qdrantStore struct {
	endpoint  string
	vectorDim int
	client    *http.Client
}

func newQdrantStore(args interface{}) (Store, error) {
	cfg := &qdrantStoreConfig{}
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("vector_store qdrant endpoint is required")
	}
	if cfg.VectorDim <= 0 {
		return nil, fmt.Errorf("vector_store qdrant vector_dim is required")
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &qdrantStore{
		endpoint:  endpoint,
		vectorDim: cfg.VectorDim,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

func (s *qdrantStore) EnsureIndex(ctx context.Context, indexID string) error {
	for _, space := range []string{SpaceText, SpaceImage} {
		name := CollectionName(indexID, space)
		status, _, err := s.request(ctx, http.MethodGet, "/collections/"+name, nil)
		if err != nil {
			return err
		}
		if status == http.StatusOK {
			continue
		}
		if status != http.StatusNotFound {
			return fmt.Errorf("qdrant status %d while checking collection %s", status, name)
		}
		payload := map[string]any{
			"vectors": map[string]any{
				"size":     s.vectorDim,
				"distance": "Cosine",
			},
		}
		status, _, err = s.request(ctx, http.MethodPut, "/collections/"+name, payload)
		if err != nil {
			return err
		}
		if status != http.StatusOK && status != http.StatusConflict {
			return fmt.Errorf("qdrant status %d while creating collection %s", status, name)
		}
	}
	return nil
}

func (s *qdrantStore) Upsert(ctx context.Context, indexID string, docs []model.Document) error {
	if err := s.EnsureIndex(ctx, indexID); err != nil {
		return err
	}
	for _, space := range []string{SpaceText, SpaceImage} {
		name := CollectionName(indexID, space)
		points := make([]map[string]any, 0, len(docs))
		for _, doc := range docs {
			vector := doc.TextEmbedding
			if space == SpaceImage {
				vector = doc.ImageEmbedding
			}
			points = append(points, map[string]any{
				"id":     pointID(doc.ID),
				"vector": vector,
				"payload": map[string]any{
					"doc_id":  doc.ID,
					"path":    doc.Path,
					"caption": doc.Caption,
				},
			})
		}
		status, _, err := s.request(ctx, http.MethodPut, "/collections/"+name+"/points", map[string]any{"points": points})
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("qdrant status %d while upserting into %s", status, name)
		}
	}
	return nil
}

// pointID derives a UUID-shaped id from the document id. Qdrant only
// accepts unsigned integers or UUID strings as point ids; the original
// hex id travels in the payload instead.
func pointID(docID string) string {
	sum := sha256.Sum256([]byte(docID))
	id := hex.EncodeToString(sum[:16])
	return id[0:8] + "-" + id[8:12] + "-" + id[12:16] + "-" + id[16:20] + "-" + id[20:32]
}

func (s *qdrantStore) Search(ctx context.Context, indexID string, space string, query []float32, limit int) ([]string, error) {
	name := CollectionName(indexID, space)
	status, _, err := s.request(ctx, http.MethodGet, "/collections/"+name, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, appErr.ErrNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("qdrant status %d while checking collection %s", status, name)
	}
	payload := map[string]any{
		"vector":       query,
		"limit":        limit,
		"with_payload": true,
	}
	status, body, err := s.request(ctx, http.MethodPost, "/collections/"+name+"/points/search", payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("qdrant status %d while searching %s", status, name)
	}
	var decoded struct {
		Result []struct {
			Payload struct {
				Path string `json:"path"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, err
	}
	result := make([]string, 0, len(decoded.Result))
	for _, item := range decoded.Result {
		result = append(result, item.Payload.Path)
	}
	return result, nil
}

func (s *qdrantStore) DeleteIndex(ctx context.Context, indexID string) error {
	for _, space := range []string{SpaceText, SpaceImage} {
		name := CollectionName(indexID, space)
		status, _, err := s.request(ctx, http.MethodDelete, "/collections/"+name, nil)
		if err != nil {
			return err
		}
		if status != http.StatusOK && status != http.StatusNotFound {
			return fmt.Errorf("qdrant status %d while deleting collection %s", status, name)
		}
	}
	return nil
}

func (s *qdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	status, body, err := s.request(ctx, http.MethodGet, "/collections", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("qdrant status %d while listing collections", status)
	}
	var decoded struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(decoded.Result.Collections))
	for _, item := range decoded.Result.Collections {
		names = append(names, item.Name)
	}
	return names, nil
}

func (s *qdrantStore) IsAlive(ctx context.Context) (int64, error) {
	status, _, err := s.request(ctx, http.MethodGet, "/collections", nil)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, fmt.Errorf("qdrant status %d on liveness check", status)
	}
	return time.Now().UnixNano(), nil
}

func (s *qdrantStore) ResetAll(ctx context.Context) error {
	names, err := s.ListCollections(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		status, _, err := s.request(ctx, http.MethodDelete, "/collections/"+name, nil)
		if err != nil {
			return err
		}
		if status != http.StatusOK && status != http.StatusNotFound {
			return fmt.Errorf("qdrant status %d while deleting collection %s", status, name)
		}
	}
	return nil
}

func (s *qdrantStore) request(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.endpoint+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", appErr.ErrVectorStore, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}
