package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/filesense/internal/model"
	"github.com/xxxsen/filesense/internal/pkg/dbutil"
	appErr "github.com/xxxsen/filesense/internal/pkg/errors"
)

var indexColumns = []string{"index_id", "index_path", "index_status"}

type IndexRepo struct {
	db *sql.DB
}

func NewIndexRepo(db *sql.DB) *IndexRepo {
	return &IndexRepo{db: db}
}

func (r *IndexRepo) Create(ctx context.Context, index *model.Index) error {
	data := map[string]interface{}{
		"index_id":     index.ID,
		"index_path":   index.Path,
		"index_status": index.Status,
	}
	sqlStr, args, err := builder.BuildInsert("index_entries", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *IndexRepo) GetByID(ctx context.Context, indexID string) (*model.Index, error) {
	where := map[string]interface{}{
		"index_id": indexID,
	}
	sqlStr, args, err := builder.BuildSelect("index_entries", where, indexColumns)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var index model.Index
	if err := row.Scan(&index.ID, &index.Path, &index.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &index, nil
}

func (r *IndexRepo) List(ctx context.Context) ([]model.Index, error) {
	return r.list(ctx, nil)
}

func (r *IndexRepo) ListByStatus(ctx context.Context, status int) ([]model.Index, error) {
	return r.list(ctx, map[string]interface{}{"index_status": status})
}

func (r *IndexRepo) list(ctx context.Context, where map[string]interface{}) ([]model.Index, error) {
	sqlStr, args, err := builder.BuildSelect("index_entries", where, indexColumns)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.Index
	for rows.Next() {
		var index model.Index
		if err := rows.Scan(&index.ID, &index.Path, &index.Status); err != nil {
			return nil, err
		}
		results = append(results, index)
	}
	return results, rows.Err()
}

// UpdateStatus finalizes the single INDEXING -> terminal transition for
// one row.
func (r *IndexRepo) UpdateStatus(ctx context.Context, indexID string, status int) error {
	where := map[string]interface{}{
		"index_id": indexID,
	}
	update := map[string]interface{}{
		"index_status": status,
	}
	sqlStr, args, err := builder.BuildUpdate("index_entries", where, update)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *IndexRepo) Delete(ctx context.Context, indexID string) error {
	where := map[string]interface{}{
		"index_id": indexID,
	}
	sqlStr, args, err := builder.BuildDelete("index_entries", where)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *IndexRepo) PathExists(ctx context.Context, path string) (bool, error) {
	return r.exists(ctx, map[string]interface{}{"index_path": path})
}

func (r *IndexRepo) IDExists(ctx context.Context, indexID string) (bool, error) {
	return r.exists(ctx, map[string]interface{}{"index_id": indexID})
}

func (r *IndexRepo) exists(ctx context.Context, where map[string]interface{}) (bool, error) {
	sqlStr, args, err := builder.BuildSelect("index_entries", where, []string{"1"})
	if err != nil {
		return false, err
	}
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
