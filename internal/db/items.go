package db

import (
	"context"

	"github.com/grocerly/backend/internal/model"
)

// ListItems returns every item, soft-deleted ones included, so the cache can
// serve listings and the retention sweeper in one refresh.
func (db *Postgres) ListItems(ctx context.Context) ([]model.Item, error) {
	query := `
		SELECT id, name, description, count, color, image,
		       created_at, updated_at, deleted_at, is_deleted
		FROM items
		ORDER BY created_at
	`

	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Item
	for rows.Next() {
		var i model.Item
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Description,
			&i.Count,
			&i.Color,
			&i.Image,
			&i.CreatedAt,
			&i.UpdatedAt,
			&i.DeletedAt,
			&i.IsDeleted,
		); err != nil {
			return nil, err
		}
		list = append(list, i)
	}

	if list == nil {
		list = []model.Item{}
	}
	return list, rows.Err()
}

func (db *Postgres) CreateItem(ctx context.Context, item model.Item) error {
	query := `
		INSERT INTO items (id, name, description, count, color, image,
		                   created_at, updated_at, deleted_at, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := db.Pool.Exec(ctx, query,
		item.ID,
		item.Name,
		item.Description,
		item.Count,
		item.Color,
		item.Image,
		item.CreatedAt,
		item.UpdatedAt,
		item.DeletedAt,
		item.IsDeleted,
	)
	return err
}

func (db *Postgres) UpdateItem(ctx context.Context, item model.Item) error {
	query := `
		UPDATE items
		SET name = $2,
		    description = $3,
		    count = $4,
		    color = $5,
		    image = $6,
		    updated_at = $7,
		    deleted_at = $8,
		    is_deleted = $9
		WHERE id = $1
	`
	_, err := db.Pool.Exec(ctx, query,
		item.ID,
		item.Name,
		item.Description,
		item.Count,
		item.Color,
		item.Image,
		item.UpdatedAt,
		item.DeletedAt,
		item.IsDeleted,
	)
	return err
}

// DeleteItem removes the row permanently. Only the retention sweeper calls
// this; the delete action itself soft-deletes via UpdateItem.
func (db *Postgres) DeleteItem(ctx context.Context, id string) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	return err
}
