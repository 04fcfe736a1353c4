package registry

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"

	"github.com/jaekwang-park/weekplan/internal/model"
	"github.com/jaekwang-park/weekplan/internal/repository"
)

// memTaskStore is an in-memory TaskStore. Create mirrors the Postgres
// upsert: an existing id is left untouched and returned as stored.
type memTaskStore struct {
	mu    sync.Mutex
	tasks []model.Task

	failCreate      error
	failUpdate      error
	failDelete      error
	failCommitOrder error
	failList        error

	createGate chan struct{} // when set, Create blocks until closed
}

func (s *memTaskStore) List(ctx context.Context, userID string) ([]model.Task, error) {
	if s.failList != nil {
		return nil, s.failList
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out, nil
}

func (s *memTaskStore) Create(ctx context.Context, task model.Task) (model.Task, error) {
	if s.createGate != nil {
		<-s.createGate
	}
	if s.failCreate != nil {
		return model.Task{}, s.failCreate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tasks {
		if existing.ID == task.ID {
			return existing, nil
		}
	}
	s.tasks = append(s.tasks, task)
	return task, nil
}

func (s *memTaskStore) Update(ctx context.Context, task model.Task) (model.Task, error) {
	if s.failUpdate != nil {
		return model.Task{}, s.failUpdate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == task.ID {
			s.tasks[i] = task
			return task, nil
		}
	}
	return model.Task{}, sql.ErrNoRows
}

func (s *memTaskStore) Delete(ctx context.Context, userID, taskID string) error {
	if s.failDelete != nil {
		return s.failDelete
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == taskID {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *memTaskStore) CommitOrder(ctx context.Context, userID string, day model.Day, orderedIDs []string) error {
	if s.failCommitOrder != nil {
		return s.failCommitOrder
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	position := make(map[string]int, len(orderedIDs))
	for i, id := range orderedIDs {
		position[id] = i
	}
	for i := range s.tasks {
		if s.tasks[i].Day != day {
			continue
		}
		if p, ok := position[s.tasks[i].ID]; ok {
			s.tasks[i].Order = p
		}
	}
	return nil
}

type memCategoryStore struct {
	mu         sync.Mutex
	categories []model.Category

	failCreate error
	failDelete error
	failList   error
}

func (s *memCategoryStore) List(ctx context.Context, userID string) ([]model.Category, error) {
	if s.failList != nil {
		return nil, s.failList
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Category, len(s.categories))
	copy(out, s.categories)
	return out, nil
}

func (s *memCategoryStore) Create(ctx context.Context, category model.Category) (model.Category, error) {
	if s.failCreate != nil {
		return model.Category{}, s.failCreate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.ID == category.ID {
			return existing, nil
		}
	}
	s.categories = append(s.categories, category)
	return category, nil
}

func (s *memCategoryStore) Update(ctx context.Context, category model.Category) (model.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.categories {
		if s.categories[i].ID == category.ID {
			s.categories[i] = category
			return category, nil
		}
	}
	return model.Category{}, sql.ErrNoRows
}

func (s *memCategoryStore) Delete(ctx context.Context, userID, categoryID, defaultCategoryID string) error {
	if s.failDelete != nil {
		return s.failDelete
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.categories {
		if s.categories[i].ID == categoryID {
			if len(s.categories) == 1 {
				return repository.ErrLastCategory
			}
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

var (
	_ repository.TaskStore     = (*memTaskStore)(nil)
	_ repository.CategoryStore = (*memCategoryStore)(nil)
)

// testEnv bundles a registry with direct handles on its fake backings.
type testEnv struct {
	registry         *Registry
	guestTasks       *memTaskStore
	guestCategories  *memCategoryStore
	remoteTasks      *memTaskStore
	remoteCategories *memCategoryStore
}

func newTestEnv() *testEnv {
	env := &testEnv{
		guestTasks:       &memTaskStore{},
		guestCategories:  &memCategoryStore{},
		remoteTasks:      &memTaskStore{},
		remoteCategories: &memCategoryStore{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.registry = New(Backends{
		RemoteTasks:      env.remoteTasks,
		RemoteCategories: env.remoteCategories,
		GuestTasks:       env.guestTasks,
		GuestCategories:  env.guestCategories,
		ClearGuest: func(ctx context.Context) error {
			env.guestTasks.mu.Lock()
			env.guestTasks.tasks = nil
			env.guestTasks.mu.Unlock()
			env.guestCategories.mu.Lock()
			env.guestCategories.categories = nil
			env.guestCategories.mu.Unlock()
			return nil
		},
	}, logger)
	return env
}
