package vectorstore

import (
	"context"
	"fmt"
	"math"

	"github.com/xxxsen/filesense/internal/config"
	"github.com/xxxsen/filesense/internal/model"
)

const (
	SpaceText  = "text"
	SpaceImage = "image"
)

// Store keeps two named collections per index, `{id}_text` and
// `{id}_image`, sharing document ids and path metadata. Upsert writes
// both spaces from one batch; there is no partial-space write.
type Store interface {
	EnsureIndex(ctx context.Context, indexID string) error
	Upsert(ctx context.Context, indexID string, docs []model.Document) error
	// Search returns up to limit file paths ordered by ascending
	// distance. A missing collection is ErrNotFound; a collection with
	// fewer than limit documents returns what exists.
	Search(ctx context.Context, indexID string, space string, query []float32, limit int) ([]string, error)
	DeleteIndex(ctx context.Context, indexID string) error
	ListCollections(ctx context.Context) ([]string, error)
	IsAlive(ctx context.Context) (int64, error)
	ResetAll(ctx context.Context) error
}

func CollectionName(indexID, space string) string {
	return indexID + "_" + space
}

func New(cfg config.VectorStoreConfig) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return newSQLiteStore(cfg.Data)
	case "pgvector":
		return newPGVectorStore(cfg.Data)
	case "qdrant":
		return newQdrantStore(cfg.Data)
	default:
		return nil, fmt.Errorf("vector_store.type must be sqlite, pgvector or qdrant")
	}
}

// cosineDistance is 1 - cosine similarity; lower means closer.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.MaxFloat64
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return math.MaxFloat64
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
