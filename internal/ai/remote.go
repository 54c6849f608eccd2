package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appErr "github.com/xxxsen/filesense/internal/pkg/errors"
)

// remoteProvider talks to a sidecar model server over HTTP. The server
// owns the caption and embedding models; this process only ships bytes.
type remoteConfig struct {
	Endpoint       string `json:"endpoint"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type remoteProvider struct {
	endpoint string
	client   *http.Client
}

func (p *remoteProvider) Name() string {
	return "remote"
}

type remoteCaptionRequest struct {
	Image string `json:"image"`
}

type remoteCaptionResponse struct {
	Caption string `json:"caption"`
	Error   string `json:"error"`
}

type remoteEmbedTextRequest struct {
	Texts []string `json:"texts"`
}

type remoteEmbedTextResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error"`
}

type remoteEmbedImageRequest struct {
	Image string `json:"image"`
}

type remoteEmbedImageResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error"`
}

func (p *remoteProvider) Caption(ctx context.Context, image []byte) (string, error) {
	var resp remoteCaptionResponse
	req := remoteCaptionRequest{Image: base64.StdEncoding.EncodeToString(image)}
	if err := p.post(ctx, "/caption", req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("caption: %s", resp.Error)
	}
	return resp.Caption, nil
}

func (p *remoteProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var resp remoteEmbedTextResponse
	if err := p.post(ctx, "/embed_text", remoteEmbedTextRequest{Texts: texts}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("embed text: %s", resp.Error)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}
	return resp.Embeddings, nil
}

func (p *remoteProvider) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	var resp remoteEmbedImageResponse
	req := remoteEmbedImageRequest{Image: base64.StdEncoding.EncodeToString(image)}
	if err := p.post(ctx, "/embed_image", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("embed image: %s", resp.Error)
	}
	return resp.Embedding, nil
}

func (p *remoteProvider) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", appErr.ErrEmbedding, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", appErr.ErrEmbedding, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: model server status %d on %s", appErr.ErrEmbedding, resp.StatusCode, path)
	}
	return json.Unmarshal(data, out)
}

func createRemoteFactory(args interface{}) (IProvider, error) {
	cfg := &remoteConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("remote provider endpoint is required")
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &remoteProvider{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func init() {
	Register("remote", createRemoteFactory)
}
