package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/filesense/internal/pkg/errcode"
	"github.com/xxxsen/filesense/internal/pkg/response"
	"github.com/xxxsen/filesense/internal/service"
)

type TaskHandler struct {
	tasks *service.TaskService
}

func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type createTaskRequest struct {
	FolderPath string `json:"folder_path"`
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	taskID, err := h.tasks.Submit(c.Request.Context(), req.FolderPath)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"task_id": taskID})
}

// Consume returns the task record and removes it; polling the same id
// again is a 404.
func (h *TaskHandler) Consume(c *gin.Context) {
	task, err := h.tasks.Consume(c.Param("task_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, task)
}
