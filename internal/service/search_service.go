package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xxxsen/filesense/internal/ai"
	appErr "github.com/xxxsen/filesense/internal/pkg/errors"
	"github.com/xxxsen/filesense/internal/repo"
	"github.com/xxxsen/filesense/internal/vectorstore"
)

// SearchService embeds a query and ranks file paths against one of the
// two embedding spaces. Query-text embeddings are cached; repeated
// searches with the same string skip the provider round trip.
type SearchService struct {
	indexes  *repo.IndexRepo
	store    vectorstore.Store
	provider ai.IProvider
	cache    *expirable.LRU[string, []float32]
}

func NewSearchService(indexes *repo.IndexRepo, store vectorstore.Store, provider ai.IProvider) *SearchService {
	cache := expirable.NewLRU[string, []float32](4096, nil, 30*time.Minute)
	return &SearchService{
		indexes:  indexes,
		store:    store,
		provider: provider,
		cache:    cache,
	}
}

func (s *SearchService) SearchByText(ctx context.Context, indexID string, query string, limit int) ([]string, error) {
	if err := s.checkIndex(ctx, indexID); err != nil {
		return nil, err
	}
	embedding, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.store.Search(ctx, indexID, vectorstore.SpaceText, embedding, limit)
}

func (s *SearchService) SearchByImage(ctx context.Context, indexID string, image []byte, limit int) ([]string, error) {
	if err := s.checkIndex(ctx, indexID); err != nil {
		return nil, err
	}
	embedding, err := s.provider.EmbedImage(ctx, image)
	if err != nil {
		return nil, err
	}
	return s.store.Search(ctx, indexID, vectorstore.SpaceImage, embedding, limit)
}

func (s *SearchService) checkIndex(ctx context.Context, indexID string) error {
	exists, err := s.indexes.IDExists(ctx, indexID)
	if err != nil {
		return err
	}
	if !exists {
		return appErr.ErrNotFound
	}
	return nil
}

func (s *SearchService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	sum := sha256.Sum256([]byte(query))
	key := hex.EncodeToString(sum[:])
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}
	embeddings, err := s.provider.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, appErr.ErrEmbedding
	}
	s.cache.Add(key, embeddings[0])
	return embeddings[0], nil
}
