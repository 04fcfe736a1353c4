package repository

import (
	"context"

	"github.com/jaekwang-park/weekplan/internal/model"
)

// CategoryStore is the persistence contract for one identity scope's
// categories. Delete reassigns every task referencing categoryID to
// defaultCategoryID and removes the category as one unit; backings that
// enforce it (Postgres) reject deleting the last remaining category.
type CategoryStore interface {
	List(ctx context.Context, userID string) ([]model.Category, error)
	Create(ctx context.Context, category model.Category) (model.Category, error)
	Update(ctx context.Context, category model.Category) (model.Category, error)
	Delete(ctx context.Context, userID, categoryID, defaultCategoryID string) error
}
