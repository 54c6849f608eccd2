package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/filesense/internal/pkg/response"
	"github.com/xxxsen/filesense/internal/vectorstore"
)

type StatusHandler struct {
	store vectorstore.Store
}

func NewStatusHandler(store vectorstore.Store) *StatusHandler {
	return &StatusHandler{store: store}
}

func (h *StatusHandler) IsAlive(c *gin.Context) {
	heartbeat, err := h.store.IsAlive(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, heartbeat)
}

func (h *StatusHandler) GetAllIndexed(c *gin.Context) {
	names, err := h.store.ListCollections(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, names)
}
