package repository

import (
	"context"

	"github.com/jaekwang-park/weekplan/internal/model"
)

// TaskStore is the persistence contract for one identity scope's tasks.
// The remote Postgres adapter and the guest local cache both satisfy it;
// guest implementations ignore userID. Missing records are reported as
// sql.ErrNoRows regardless of backing.
type TaskStore interface {
	List(ctx context.Context, userID string) ([]model.Task, error)
	Create(ctx context.Context, task model.Task) (model.Task, error)
	Update(ctx context.Context, task model.Task) (model.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
	// CommitOrder durably assigns order 0..n-1 to orderedIDs, in slice
	// order, within the (userID, day) partition.
	CommitOrder(ctx context.Context, userID string, day model.Day, orderedIDs []string) error
}
