package service

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/filesense/internal/ai"
	"github.com/xxxsen/filesense/internal/model"
)

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".ppm":  {},
	".gif":  {},
	".tiff": {},
	".bmp":  {},
}

// listImagePaths walks dir recursively and collects image files. An
// unreadable subdirectory is logged and skipped; it must not sink the
// whole run the way an embedding failure does.
func listImagePaths(ctx context.Context, dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			logutil.GetLogger(ctx).Warn("skip unreadable path", zap.String("path", p), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(p))]; ok {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// generateDocuments captions and embeds every image under dir. Caption
// text embeddings go through one batched call; any provider error is
// fatal to the batch.
func generateDocuments(ctx context.Context, provider ai.IProvider, dir string) ([]model.Document, error) {
	paths, err := listImagePaths(ctx, dir)
	if err != nil {
		return nil, err
	}
	docs := make([]model.Document, 0, len(paths))
	captions := make([]string, 0, len(paths))
	for _, p := range paths {
		image, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		caption, err := provider.Caption(ctx, image)
		if err != nil {
			return nil, err
		}
		imageEmbedding, err := provider.EmbedImage(ctx, image)
		if err != nil {
			return nil, err
		}
		captions = append(captions, caption)
		docs = append(docs, model.Document{
			ID:             documentID(p),
			Caption:        caption,
			ImageEmbedding: imageEmbedding,
			Path:           p,
		})
	}
	if len(docs) == 0 {
		return docs, nil
	}
	textEmbeddings, err := provider.EmbedTexts(ctx, captions)
	if err != nil {
		return nil, err
	}
	if len(textEmbeddings) != len(captions) {
		return nil, fmt.Errorf("expected %d caption embeddings, got %d", len(captions), len(textEmbeddings))
	}
	for i := range docs {
		docs[i].TextEmbedding = textEmbeddings[i]
	}
	return docs, nil
}
