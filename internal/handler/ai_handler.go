package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/filesense/internal/ai"
	"github.com/xxxsen/filesense/internal/pkg/errcode"
	"github.com/xxxsen/filesense/internal/pkg/response"
)

// AIHandler exposes the embedding service directly, without touching
// any index. Image paths are read server-side.
type AIHandler struct {
	provider ai.IProvider
}

func NewAIHandler(provider ai.IProvider) *AIHandler {
	return &AIHandler{provider: provider}
}

type textEmbeddingsRequest struct {
	Text []string `json:"text"`
}

func (h *AIHandler) GetTextEmbeddings(c *gin.Context) {
	var req textEmbeddingsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Text) == 0 {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "text required")
		return
	}
	embeddings, err := h.provider.EmbedTexts(c.Request.Context(), req.Text)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"embeddings": embeddings})
}

type imagePathsRequest struct {
	ImagePaths []string `json:"image_paths"`
}

func (h *AIHandler) GetImageEmbeddings(c *gin.Context) {
	var req imagePathsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ImagePaths) == 0 {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "image_paths required")
		return
	}
	embeddings := make([][]float32, 0, len(req.ImagePaths))
	for _, path := range req.ImagePaths {
		image, err := os.ReadFile(path)
		if err != nil {
			response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "unreadable image path")
			return
		}
		embedding, err := h.provider.EmbedImage(c.Request.Context(), image)
		if err != nil {
			handleError(c, err)
			return
		}
		embeddings = append(embeddings, embedding)
	}
	response.Success(c, gin.H{"embeddings": embeddings})
}

type imageCaptionRequest struct {
	ImagePath []string `json:"image_path"`
}

func (h *AIHandler) GetImageCaption(c *gin.Context) {
	var req imageCaptionRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ImagePath) == 0 {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "image_path required")
		return
	}
	captions := make([]string, 0, len(req.ImagePath))
	for _, path := range req.ImagePath {
		image, err := os.ReadFile(path)
		if err != nil {
			response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "unreadable image path")
			return
		}
		caption, err := h.provider.Caption(c.Request.Context(), image)
		if err != nil {
			handleError(c, err)
			return
		}
		captions = append(captions, caption)
	}
	response.Success(c, gin.H{"caption": captions})
}

func (h *AIHandler) GetCaptionWithEmbeddings(c *gin.Context) {
	var req imagePathsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ImagePaths) == 0 {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "image_paths required")
		return
	}
	captions := make([]string, 0, len(req.ImagePaths))
	imageEmbeddings := make([][]float32, 0, len(req.ImagePaths))
	for _, path := range req.ImagePaths {
		image, err := os.ReadFile(path)
		if err != nil {
			response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "unreadable image path")
			return
		}
		caption, err := h.provider.Caption(c.Request.Context(), image)
		if err != nil {
			handleError(c, err)
			return
		}
		embedding, err := h.provider.EmbedImage(c.Request.Context(), image)
		if err != nil {
			handleError(c, err)
			return
		}
		captions = append(captions, caption)
		imageEmbeddings = append(imageEmbeddings, embedding)
	}
	textEmbeddings, err := h.provider.EmbedTexts(c.Request.Context(), captions)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"caption":          captions,
		"text_embeddings":  textEmbeddings,
		"image_embeddings": imageEmbeddings,
	})
}
