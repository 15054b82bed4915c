package services

import (
	"context"
	"errors"
	"fmt"

	"tally/internal/core"
	"tally/internal/storage"
)

// CategoryService manages the two-level category tree.
type CategoryService struct {
	store *storage.SQLiteRepository
}

func NewCategoryService(store *storage.SQLiteRepository) *CategoryService {
	return &CategoryService{store: store}
}

// Create inserts a category. A subcategory must point at an existing parent
// that is itself a root; nesting stops at one level.
func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.ParentID != nil {
		parent, err := s.store.Queries().GetCategory(ctx, *c.ParentID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return core.Category{}, fmt.Errorf("parent category %d does not exist: %w", *c.ParentID, core.ErrConstraint)
			}
			return core.Category{}, err
		}
		if parent.ParentID != nil {
			return core.Category{}, fmt.Errorf("category %d is already a subcategory: %w", parent.ID, core.ErrConstraint)
		}
		if parent.Type != c.Type {
			return core.Category{}, fmt.Errorf("subcategory type must match parent: %w", core.ErrConstraint)
		}
	}
	return s.store.Queries().CreateCategory(ctx, c)
}

func (s *CategoryService) Get(ctx context.Context, id int64) (core.Category, error) {
	return s.store.Queries().GetCategory(ctx, id)
}

func (s *CategoryService) List(ctx context.Context, typeFilter core.CategoryType) ([]core.Category, error) {
	return s.store.Queries().ListCategories(ctx, typeFilter)
}

func (s *CategoryService) Subcategories(ctx context.Context, parentID int64) ([]core.Category, error) {
	return s.store.Queries().ListSubcategories(ctx, parentID)
}

func (s *CategoryService) Update(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.ParentID != nil && *c.ParentID == c.ID {
		return core.Category{}, fmt.Errorf("category cannot be its own parent: %w", core.ErrConstraint)
	}
	if err := s.store.Queries().UpdateCategory(ctx, c); err != nil {
		return core.Category{}, err
	}
	return s.store.Queries().GetCategory(ctx, c.ID)
}

// Delete removes a category and its subcategories, children first so the
// parent reference never dangles. Transactions keep their rows; their
// category_id is nulled by the schema.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	return s.store.ExecTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetCategory(ctx, id); err != nil {
			return err
		}
		children, err := q.ListSubcategories(ctx, id)
		if err != nil {
			return err
		}
		for _, child := range children {
			if _, err := q.DeleteBudgetsByCategory(ctx, child.ID); err != nil {
				return err
			}
			if err := q.DeleteCategory(ctx, child.ID); err != nil {
				return err
			}
		}
		if _, err := q.DeleteBudgetsByCategory(ctx, id); err != nil {
			return err
		}
		return q.DeleteCategory(ctx, id)
	})
}
