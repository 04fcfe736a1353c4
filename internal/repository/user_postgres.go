package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jaekwang-park/weekplan/internal/model"
)

type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUser(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) GetOrCreate(ctx context.Context, cognitoSub, email string) (model.User, error) {
	query := `
		INSERT INTO users (cognito_sub, email)
		VALUES ($1, $2)
		ON CONFLICT (cognito_sub) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, cognito_sub, email, name, created_at, updated_at`

	row := s.db.QueryRowContext(ctx, query, cognitoSub, email)
	return scanUser(row)
}

func (s *PostgresUserStore) GetByCognitoSub(ctx context.Context, cognitoSub string) (model.User, error) {
	query := `
		SELECT id, cognito_sub, email, name, created_at, updated_at
		FROM users
		WHERE cognito_sub = $1`

	row := s.db.QueryRowContext(ctx, query, cognitoSub)
	return scanUser(row)
}

func (s *PostgresUserStore) Update(ctx context.Context, user model.User) (model.User, error) {
	query := `
		UPDATE users
		SET name = $1, updated_at = now()
		WHERE id = $2
		RETURNING id, cognito_sub, email, name, created_at, updated_at`

	row := s.db.QueryRowContext(ctx, query, user.Name, user.ID)
	return scanUser(row)
}

func scanUser(row scannable) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.CognitoSub, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}

var _ UserStore = (*PostgresUserStore)(nil)
