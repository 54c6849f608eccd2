package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/filesense/internal/model"
	"github.com/xxxsen/filesense/internal/pkg/errcode"
	appErr "github.com/xxxsen/filesense/internal/pkg/errors"
	"github.com/xxxsen/filesense/internal/pkg/response"
	"github.com/xxxsen/filesense/internal/service"
)

type IndexHandler struct {
	indexes *service.IndexService
}

func NewIndexHandler(indexes *service.IndexService) *IndexHandler {
	return &IndexHandler{indexes: indexes}
}

type indexDirRequest struct {
	DirPath string `json:"dir_path"`
}

func (h *IndexHandler) IndexDirectory(c *gin.Context) {
	var req indexDirRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	indexID, err := h.indexes.SubmitIndexing(c.Request.Context(), req.DirPath)
	if err != nil {
		// Invalid paths and duplicates both answer 404, matching the
		// protocol clients already depend on.
		switch {
		case errors.Is(err, appErr.ErrInvalid):
			response.Error(c, http.StatusNotFound, errcode.ErrInvalid, "invalid directory path")
		case errors.Is(err, appErr.ErrConflict):
			response.Error(c, http.StatusNotFound, errcode.ErrConflict, "path already indexed")
		default:
			handleError(c, err)
		}
		return
	}
	response.Success(c, gin.H{"index_id": indexID})
}

type createIndexRequest struct {
	IndexID     string `json:"index_id"`
	IndexPath   string `json:"index_path"`
	IndexStatus int    `json:"index_status"`
}

// Create registers a row without running the indexing pipeline.
func (h *IndexHandler) Create(c *gin.Context) {
	var req createIndexRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IndexID == "" || req.IndexPath == "" {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "index_id and index_path required")
		return
	}
	index := &model.Index{
		ID:     req.IndexID,
		Path:   req.IndexPath,
		Status: req.IndexStatus,
	}
	if err := h.indexes.CreateEntry(c.Request.Context(), index); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, index)
}

func (h *IndexHandler) GetStatus(c *gin.Context) {
	index, err := h.indexes.GetStatus(c.Request.Context(), c.Param("index_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"status_code": index.Status,
		"status_name": model.IndexStatusName(index.Status),
	})
}

func (h *IndexHandler) List(c *gin.Context) {
	indexes, err := h.indexes.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, indexes)
}

func (h *IndexHandler) ListIndexed(c *gin.Context) {
	indexes, err := h.indexes.ListIndexed(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, indexes)
}

func (h *IndexHandler) Delete(c *gin.Context) {
	indexID := c.Query("index_name")
	if indexID == "" {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "index_name required")
		return
	}
	if err := h.indexes.Delete(c.Request.Context(), indexID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"data": "OK"})
}
