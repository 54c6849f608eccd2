package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const captionPrompt = "Describe this image in one short sentence."

type geminiConfig struct {
	APIKey       string `json:"api_key"`
	CaptionModel string `json:"caption_model"`
	EmbedModel   string `json:"embed_model"`
}

type geminiProvider struct {
	apiKey       string
	captionModel string
	embedModel   string
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) client(ctx context.Context) (*genai.Client, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func (p *geminiProvider) Caption(ctx context.Context, image []byte) (string, error) {
	client, err := p.client(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		p.captionModel,
		[]*genai.Content{{Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: http.DetectContentType(image), Data: image}},
			{Text: captionPrompt},
		}}},
		nil,
	)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (p *geminiProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: text}}})
	}
	resp, err := client.Models.EmbedContent(ctx, p.embedModel, contents, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}
	result := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		result = append(result, emb.Values)
	}
	return result, nil
}

func (p *geminiProvider) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		p.embedModel,
		[]*genai.Content{{Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: http.DetectContentType(image), Data: image}},
		}}},
		nil,
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	return resp.Embeddings[0].Values, nil
}

func createGeminiFactory(args interface{}) (IProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.CaptionModel == "" {
		cfg.CaptionModel = "gemini-2.0-flash"
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "gemini-embedding-001"
	}
	return &geminiProvider{
		apiKey:       strings.TrimSpace(cfg.APIKey),
		captionModel: cfg.CaptionModel,
		embedModel:   cfg.EmbedModel,
	}, nil
}

func init() {
	Register("gemini", createGeminiFactory)
}
