package model

const (
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// Task is the ephemeral record of one submit-then-poll indexing run.
// It lives in memory only and is removed when its result is read.
type Task struct {
	ID                string      `json:"task_id"`
	Status            string      `json:"status"`
	FolderPath        string      `json:"folder_path"`
	Captions          []string    `json:"captions,omitempty"`
	CaptionEmbeddings [][]float32 `json:"caption_embeddings,omitempty"`
	ImageEmbeddings   [][]float32 `json:"image_embeddings,omitempty"`
	FilePaths         []string    `json:"file_paths,omitempty"`
	Error             string      `json:"error,omitempty"`
	Ctime             int64       `json:"-"`
	Mtime             int64       `json:"-"`
}
