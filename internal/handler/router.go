package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Indexes *IndexHandler
	Search  *SearchHandler
	Tasks   *TaskHandler
	AI      *AIHandler
	Status  *StatusHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/index_directory", deps.Indexes.IndexDirectory)
	api.POST("/create_index", deps.Indexes.Create)
	api.GET("/get_index_status/:index_id", deps.Indexes.GetStatus)
	api.GET("/get_all_index", deps.Indexes.List)
	api.GET("/get_only_indexed_indexes", deps.Indexes.ListIndexed)
	api.DELETE("/delete_index", deps.Indexes.Delete)

	api.GET("/search_by_text", deps.Search.SearchByText)
	api.POST("/search_by_image", deps.Search.SearchByImage)

	api.POST("/create_indexing_task", deps.Tasks.Create)
	api.GET("/get_indexing_task_status_or_result/:task_id", deps.Tasks.Consume)

	api.POST("/get_text_embeddings", deps.AI.GetTextEmbeddings)
	api.POST("/get_image_embeddings", deps.AI.GetImageEmbeddings)
	api.POST("/get_image_caption", deps.AI.GetImageCaption)
	api.POST("/get_caption_with_embeddings", deps.AI.GetCaptionWithEmbeddings)

	api.GET("/is_alive", deps.Status.IsAlive)
	api.GET("/get_all_indexed", deps.Status.GetAllIndexed)
}
