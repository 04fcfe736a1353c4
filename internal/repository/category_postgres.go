package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jaekwang-park/weekplan/internal/model"
)

// ErrLastCategory is returned when deletion would leave the identity with
// no categories.
var ErrLastCategory = errors.New("at least one category must remain")

const categoryColumns = `id, user_id, name, color, icon, created_at`

type PostgresCategoryStore struct {
	db *sql.DB
}

func NewPostgresCategory(db *sql.DB) *PostgresCategoryStore {
	return &PostgresCategoryStore{db: db}
}

func (s *PostgresCategoryStore) List(ctx context.Context, userID string) ([]model.Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE user_id = $1
		ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}

	return categories, nil
}

// Create inserts the category under its caller-assigned id; an existing id
// is left untouched and the stored row returned (idempotent migration).
func (s *PostgresCategoryStore) Create(ctx context.Context, category model.Category) (model.Category, error) {
	query := `
		INSERT INTO categories (id, user_id, name, color, icon, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + categoryColumns

	row := s.db.QueryRowContext(ctx, query,
		category.ID, category.UserID, category.Name, category.Color,
		category.Icon, category.CreatedAt,
	)

	created, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return s.getByID(ctx, category.UserID, category.ID)
	}
	return created, err
}

func (s *PostgresCategoryStore) Update(ctx context.Context, category model.Category) (model.Category, error) {
	query := `
		UPDATE categories
		SET name = $1, color = $2, icon = $3
		WHERE id = $4 AND user_id = $5
		RETURNING ` + categoryColumns

	row := s.db.QueryRowContext(ctx, query,
		category.Name, category.Color, category.Icon, category.ID, category.UserID,
	)

	return scanCategory(row)
}

// Delete reassigns dependent tasks to defaultCategoryID and removes the
// category in one transaction. Deleting the last remaining category fails
// with ErrLastCategory and changes nothing.
func (s *PostgresCategoryStore) Delete(ctx context.Context, userID, categoryID, defaultCategoryID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	var remaining int
	err = tx.QueryRowContext(ctx,
		`SELECT count(*) FROM categories WHERE user_id = $1 AND id != $2`,
		userID, categoryID,
	).Scan(&remaining)
	if err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}
	if remaining == 0 {
		return ErrLastCategory
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET category_id = $1, updated_at = now() WHERE user_id = $2 AND category_id = $3`,
		defaultCategoryID, userID, categoryID,
	)
	if err != nil {
		return fmt.Errorf("failed to reassign tasks: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE id = $1 AND user_id = $2`,
		categoryID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete transaction: %w", err)
	}
	return nil
}

func (s *PostgresCategoryStore) getByID(ctx context.Context, userID, categoryID string) (model.Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE id = $1 AND user_id = $2`

	return scanCategory(s.db.QueryRowContext(ctx, query, categoryID, userID))
}

func scanCategory(row scannable) (model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.Icon, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Category{}, err
		}
		return model.Category{}, fmt.Errorf("failed to scan category: %w", err)
	}
	return c, nil
}

var _ CategoryStore = (*PostgresCategoryStore)(nil)
