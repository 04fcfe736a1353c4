package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jaekwang-park/weekplan/internal/model"
)

const taskColumns = `id, user_id, category_id, title, description, day, status, priority,
		due_date, due_time, order_index, created_at, completed_at, updated_at`

type PostgresTaskStore struct {
	db *sql.DB
}

func NewPostgresTask(db *sql.DB) *PostgresTaskStore {
	return &PostgresTaskStore{db: db}
}

func (s *PostgresTaskStore) List(ctx context.Context, userID string) ([]model.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1
		ORDER BY day, order_index`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// Create inserts the task under its caller-assigned id. An id that already
// exists is left untouched and the stored row is returned, which makes a
// retried guest migration skip records it copied on a previous attempt.
func (s *PostgresTaskStore) Create(ctx context.Context, task model.Task) (model.Task, error) {
	query := `
		INSERT INTO tasks (id, user_id, category_id, title, description, day, status, priority,
			due_date, due_time, order_index, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + taskColumns

	row := s.db.QueryRowContext(ctx, query,
		task.ID, task.UserID, task.CategoryID, task.Title, task.Description,
		task.Day, task.Status, task.Priority, task.DueDate, task.DueTime,
		task.Order, task.CreatedAt, task.CompletedAt,
	)

	created, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return s.getByID(ctx, task.UserID, task.ID)
	}
	return created, err
}

func (s *PostgresTaskStore) Update(ctx context.Context, task model.Task) (model.Task, error) {
	query := `
		UPDATE tasks
		SET category_id = $1, title = $2, description = $3, day = $4, status = $5,
			priority = $6, due_date = $7, due_time = $8, order_index = $9,
			completed_at = $10, updated_at = now()
		WHERE id = $11 AND user_id = $12
		RETURNING ` + taskColumns

	row := s.db.QueryRowContext(ctx, query,
		task.CategoryID, task.Title, task.Description, task.Day, task.Status,
		task.Priority, task.DueDate, task.DueTime, task.Order, task.CompletedAt,
		task.ID, task.UserID,
	)

	return scanTask(row)
}

func (s *PostgresTaskStore) Delete(ctx context.Context, userID, taskID string) error {
	query := `DELETE FROM tasks WHERE id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, taskID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (s *PostgresTaskStore) CommitOrder(ctx context.Context, userID string, day model.Day, orderedIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reorder transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE tasks
		SET order_index = $1, updated_at = now()
		WHERE id = $2 AND user_id = $3 AND day = $4`

	for i, id := range orderedIDs {
		if _, err := tx.ExecContext(ctx, query, i, id, userID, day); err != nil {
			return fmt.Errorf("failed to commit order for task %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder transaction: %w", err)
	}
	return nil
}

func (s *PostgresTaskStore) getByID(ctx context.Context, userID, taskID string) (model.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1 AND user_id = $2`

	return scanTask(s.db.QueryRowContext(ctx, query, taskID, userID))
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTask(row scannable) (model.Task, error) {
	var t model.Task
	var completedAt sql.NullTime
	err := row.Scan(
		&t.ID, &t.UserID, &t.CategoryID, &t.Title, &t.Description,
		&t.Day, &t.Status, &t.Priority, &t.DueDate, &t.DueTime,
		&t.Order, &t.CreatedAt, &completedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, err
		}
		return model.Task{}, fmt.Errorf("failed to scan task: %w", err)
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, nil
}

var _ TaskStore = (*PostgresTaskStore)(nil)
