package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/filesense/internal/model"
	"github.com/xxxsen/filesense/internal/pkg/dbutil"
	appErr "github.com/xxxsen/filesense/internal/pkg/errors"
)

// pgvectorStore delegates ranking to postgres: kNN runs server-side
// through the pgvector `<->` operator.
type pgvectorStoreConfig struct {
	DSN string `json:"dsn"`
}

type pgvectorStore struct {
	db *sql.DB
}

const pgvectorSchema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS collections (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS vector_entries (
	collection TEXT NOT NULL,
	doc_id TEXT NOT NULL,
	embedding vector NOT NULL,
	caption TEXT NOT NULL,
	path TEXT NOT NULL,
	PRIMARY KEY (collection, doc_id)
);
`

func newPGVectorStore(args interface{}) (Store, error) {
	cfg := &pgvectorStoreConfig{}
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("vector_store pgvector dsn is required")
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(pgvectorSchema); err != nil {
		return nil, err
	}
	return &pgvectorStore{db: db}, nil
}

func (s *pgvectorStore) EnsureIndex(ctx context.Context, indexID string) error {
	for _, space := range []string{SpaceText, SpaceImage} {
		query := dbutil.Rebind(`INSERT INTO collections (name) VALUES (?) ON CONFLICT (name) DO NOTHING`)
		if _, err := s.db.ExecContext(ctx, query, CollectionName(indexID, space)); err != nil {
			return err
		}
	}
	return nil
}

func (s *pgvectorStore) Upsert(ctx context.Context, indexID string, docs []model.Document) error {
	if err := s.EnsureIndex(ctx, indexID); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	query := dbutil.Rebind(`
		INSERT INTO vector_entries (collection, doc_id, embedding, caption, path)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, doc_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			caption = EXCLUDED.caption,
			path = EXCLUDED.path
	`)
	for _, doc := range docs {
		if _, err := tx.ExecContext(ctx, query,
			CollectionName(indexID, SpaceText), doc.ID, pgvector.NewVector(doc.TextEmbedding), doc.Caption, doc.Path); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query,
			CollectionName(indexID, SpaceImage), doc.ID, pgvector.NewVector(doc.ImageEmbedding), doc.Caption, doc.Path); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *pgvectorStore) Search(ctx context.Context, indexID string, space string, query []float32, limit int) ([]string, error) {
	collection := CollectionName(indexID, space)
	row := s.db.QueryRowContext(ctx, dbutil.Rebind(`SELECT 1 FROM collections WHERE name = ?`), collection)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, dbutil.Rebind(`
		SELECT path FROM vector_entries
		WHERE collection = ?
		ORDER BY embedding <-> ?
		LIMIT ?
	`), collection, pgvector.NewVector(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		result = append(result, path)
	}
	return result, rows.Err()
}

func (s *pgvectorStore) DeleteIndex(ctx context.Context, indexID string) error {
	for _, space := range []string{SpaceText, SpaceImage} {
		name := CollectionName(indexID, space)
		if _, err := s.db.ExecContext(ctx, dbutil.Rebind(`DELETE FROM vector_entries WHERE collection = ?`), name); err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, dbutil.Rebind(`DELETE FROM collections WHERE name = ?`), name); err != nil {
			return err
		}
	}
	return nil
}

func (s *pgvectorStore) ListCollections(ctx context.Context) ([]string, error) {
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

func (s *pgvectorStore) IsAlive(ctx context.Context) (int64, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return 0, err
	}
	return time.Now().UnixNano(), nil
}

func (s *pgvectorStore) ResetAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vector_entries`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM collections`)
	return err
}
