package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/filesense/internal/pkg/errcode"
	appErr "github.com/xxxsen/filesense/internal/pkg/errors"
	"github.com/xxxsen/filesense/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, errcode.ErrNotFound, "index does not exist")
	case errors.Is(err, appErr.ErrTaskNotFound):
		response.Error(c, http.StatusNotFound, errcode.ErrTaskNotFound, "task does not exist")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, http.StatusConflict, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, "too many pending jobs")
	case errors.Is(err, appErr.ErrEmbedding):
		response.Error(c, http.StatusInternalServerError, errcode.ErrEmbedding, "embedding service failure")
	case errors.Is(err, appErr.ErrVectorStore):
		response.Error(c, http.StatusInternalServerError, errcode.ErrVectorStore, "vector store failure")
	default:
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, err.Error())
	}
}

func limitParam(c *gin.Context, fallback int) int {
	raw, ok := c.GetQuery("limit")
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
