package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/didi/gendry/builder"
	_ "modernc.org/sqlite"

	"github.com/xxxsen/filesense/internal/model"
	appErr "github.com/xxxsen/filesense/internal/pkg/errors"
)

// sqliteStore keeps every collection in one table and ranks candidates
// in process with cosine distance. It is the default backend and needs
// no external service.
type sqliteStoreConfig struct {
	Path string `json:"path"`
}

type sqliteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS collections (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS vector_entries (
	collection TEXT NOT NULL,
	doc_id TEXT NOT NULL,
	embedding TEXT NOT NULL,
	caption TEXT NOT NULL,
	path TEXT NOT NULL,
	PRIMARY KEY (collection, doc_id)
);
`

func newSQLiteStore(args interface{}) (Store, error) {
	cfg := &sqliteStoreConfig{}
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("vector_store sqlite path is required")
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, err
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) EnsureIndex(ctx context.Context, indexID string) error {
	for _, space := range []string{SpaceText, SpaceImage} {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO collections (name) VALUES (?)`,
			CollectionName(indexID, space))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) Upsert(ctx context.Context, indexID string, docs []model.Document) error {
	if err := s.EnsureIndex(ctx, indexID); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, doc := range docs {
		if err := upsertEntry(ctx, tx, CollectionName(indexID, SpaceText), doc, doc.TextEmbedding); err != nil {
			return err
		}
		if err := upsertEntry(ctx, tx, CollectionName(indexID, SpaceImage), doc, doc.ImageEmbedding); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func upsertEntry(ctx context.Context, tx *sql.Tx, collection string, doc model.Document, embedding []float32) error {
	blob, err := json.Marshal(embedding)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"collection": collection,
		"doc_id":     doc.ID,
		"embedding":  string(blob),
		"caption":    doc.Caption,
		"path":       doc.Path,
	}
	sqlStr, args, err := builder.BuildInsert("vector_entries", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr = strings.Replace(sqlStr, "INSERT INTO", "INSERT OR REPLACE INTO", 1)
	_, err = tx.ExecContext(ctx, sqlStr, args...)
	return err
}

func (s *sqliteStore) Search(ctx context.Context, indexID string, space string, query []float32, limit int) ([]string, error) {
	collection := CollectionName(indexID, space)
	exists, err := s.collectionExists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, appErr.ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT embedding, path FROM vector_entries WHERE collection = ?`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type candidate struct {
		path     string
		distance float64
	}
	var candidates []candidate
	for rows.Next() {
		var blob, path string
		if err := rows.Scan(&blob, &path); err != nil {
			return nil, err
		}
		var embedding []float32
		if err := json.Unmarshal([]byte(blob), &embedding); err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate{path: path, distance: cosineDistance(query, embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if limit > len(candidates) {
		limit = len(candidates)
	}
	result := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		result = append(result, candidates[i].path)
	}
	return result, nil
}

func (s *sqliteStore) collectionExists(ctx context.Context, name string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT 1 FROM collections WHERE name = ?`, name)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *sqliteStore) DeleteIndex(ctx context.Context, indexID string) error {
	for _, space := range []string{SpaceText, SpaceImage} {
		name := CollectionName(indexID, space)
		if _, err := s.db.ExecContext(ctx, `DELETE FROM vector_entries WHERE collection = ?`, name); err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *sqliteStore) IsAlive(ctx context.Context) (int64, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return 0, err
	}
	return time.Now().UnixNano(), nil
}

func (s *sqliteStore) ResetAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vector_entries`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM collections`)
	return err
}
