package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tally/internal/core"
)

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var (
		c       core.Category
		catType string
		parent  sql.NullInt64
	)
	if err := row.Scan(&c.ID, &c.Name, &catType, &parent); err != nil {
		return core.Category{}, err
	}
	c.Type = core.CategoryType(catType)
	c.ParentID = int64Ptr(parent)
	return c, nil
}

func (q *Queries) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO categories (name, type, parent_id) VALUES (?, ?, ?)`,
		c.Name, string(c.Type), nullableInt64(c.ParentID))
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category id: %w", err)
	}
	c.ID = id
	return c, nil
}

func (q *Queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	row := q.db.QueryRowContext(ctx, `SELECT id, name, type, parent_id FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// ListCategories returns categories ordered by type then name. An empty
// typeFilter returns both types.
func (q *Queries) ListCategories(ctx context.Context, typeFilter core.CategoryType) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, type, parent_id FROM categories
		WHERE (? = '' OR type = ?)
		ORDER BY type, name`, string(typeFilter), string(typeFilter))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// ListSubcategories returns the direct children of a category.
func (q *Queries) ListSubcategories(ctx context.Context, parentID int64) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, type, parent_id FROM categories WHERE parent_id = ? ORDER BY name`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subcategory: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (q *Queries) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, type = ?, parent_id = ? WHERE id = ?`,
		c.Name, string(c.Type), nullableInt64(c.ParentID), c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return requireRow(res, "category", c.ID)
}

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res, "category", id)
}

func (q *Queries) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

func (q *Queries) UpsertCategory(ctx context.Context, c core.Category) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, type, parent_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, type = excluded.type, parent_id = excluded.parent_id`,
		c.ID, c.Name, string(c.Type), nullableInt64(c.ParentID))
	if err != nil {
		return fmt.Errorf("upsert category %d: %w", c.ID, err)
	}
	return nil
}
