package repository

import (
	"context"

	"github.com/jaekwang-park/weekplan/internal/model"
)

type UserStore interface {
	GetOrCreate(ctx context.Context, cognitoSub, email string) (model.User, error)
	GetByCognitoSub(ctx context.Context, cognitoSub string) (model.User, error)
	Update(ctx context.Context, user model.User) (model.User, error)
}
