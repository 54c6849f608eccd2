package model

const (
	IndexStatusIndexed  = 0
	IndexStatusIndexing = 1
	IndexStatusFailed   = -1
)

func IndexStatusName(status int) string {
	switch status {
	case IndexStatusIndexed:
		return "INDEXED"
	case IndexStatusIndexing:
		return "INDEXING"
	case IndexStatusFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

type Index struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Status int    `json:"status"`
}
