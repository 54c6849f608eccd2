package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/filesense/internal/pkg/errcode"
	"github.com/xxxsen/filesense/internal/pkg/response"
	"github.com/xxxsen/filesense/internal/service"
)

const defaultSearchLimit = 3

type SearchHandler struct {
	search *service.SearchService
}

func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

func (h *SearchHandler) SearchByText(c *gin.Context) {
	indexName := c.Query("index_name")
	searchString := c.Query("search_string")
	if indexName == "" || searchString == "" {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "index_name and search_string required")
		return
	}
	paths, err := h.search.SearchByText(c.Request.Context(), indexName, searchString, limitParam(c, defaultSearchLimit))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, paths)
}

func (h *SearchHandler) SearchByImage(c *gin.Context) {
	indexName := c.Query("index_name")
	if indexName == "" {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "index_name required")
		return
	}
	file, err := c.FormFile("image")
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "image is required")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "failed to open image")
		return
	}
	defer opened.Close()
	image, err := io.ReadAll(opened)
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "failed to read image")
		return
	}
	paths, err := h.search.SearchByImage(c.Request.Context(), indexName, image, limitParam(c, defaultSearchLimit))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, paths)
}
