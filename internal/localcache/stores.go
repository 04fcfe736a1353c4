package localcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jaekwang-park/weekplan/internal/model"
	"github.com/jaekwang-park/weekplan/internal/repository"
)

// The guest stores persist whole collections as JSON blobs, mirroring how
// the browser variant kept them under two localStorage keys. Every write
// rewrites the collection; at guest scale that is cheaper than a schema.

func loadTasks(c *Cache) ([]model.Task, error) {
	blob, ok, err := c.Get(TasksKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []model.Task{}, nil
	}
	var tasks []model.Task
	if err := json.Unmarshal(blob, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode cached tasks: %w", err)
	}
	return tasks, nil
}

func loadCategories(c *Cache) ([]model.Category, error) {
	blob, ok, err := c.Get(CategoriesKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []model.Category{}, nil
	}
	var categories []model.Category
	if err := json.Unmarshal(blob, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode cached categories: %w", err)
	}
	return categories, nil
}

func saveTasks(c *Cache, tasks []model.Task) error {
	blob, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}
	return c.Set(TasksKey, blob)
}

func saveCategories(c *Cache, categories []model.Category) error {
	blob, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}
	return c.Set(CategoriesKey, blob)
}

// GuestTaskStore persists the guest identity's tasks. userID arguments are
// ignored; the cache file is the scope.
type GuestTaskStore struct {
	cache *Cache
}

func NewGuestTask(cache *Cache) *GuestTaskStore {
	return &GuestTaskStore{cache: cache}
}

func (s *GuestTaskStore) List(ctx context.Context, userID string) ([]model.Task, error) {
	return loadTasks(s.cache)
}

func (s *GuestTaskStore) Create(ctx context.Context, task model.Task) (model.Task, error) {
	tasks, err := loadTasks(s.cache)
	if err != nil {
		return model.Task{}, err
	}
	tasks = append(tasks, task)
	if err := saveTasks(s.cache, tasks); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

func (s *GuestTaskStore) Update(ctx context.Context, task model.Task) (model.Task, error) {
	tasks, err := loadTasks(s.cache)
	if err != nil {
		return model.Task{}, err
	}
	for i := range tasks {
		if tasks[i].ID == task.ID {
			tasks[i] = task
			if err := saveTasks(s.cache, tasks); err != nil {
				return model.Task{}, err
			}
			return task, nil
		}
	}
	return model.Task{}, sql.ErrNoRows
}

func (s *GuestTaskStore) Delete(ctx context.Context, userID, taskID string) error {
	tasks, err := loadTasks(s.cache)
	if err != nil {
		return err
	}
	kept := tasks[:0]
	found := false
	for _, t := range tasks {
		if t.ID == taskID {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		return sql.ErrNoRows
	}
	return saveTasks(s.cache, kept)
}

func (s *GuestTaskStore) CommitOrder(ctx context.Context, userID string, day model.Day, orderedIDs []string) error {
	tasks, err := loadTasks(s.cache)
	if err != nil {
		return err
	}
	position := make(map[string]int, len(orderedIDs))
	for i, id := range orderedIDs {
		position[id] = i
	}
	for i := range tasks {
		if tasks[i].Day != day {
			continue
		}
		if p, ok := position[tasks[i].ID]; ok {
			tasks[i].Order = p
		}
	}
	return saveTasks(s.cache, tasks)
}

// GuestCategoryStore persists the guest identity's categories.
type GuestCategoryStore struct {
	cache *Cache
}

func NewGuestCategory(cache *Cache) *GuestCategoryStore {
	return &GuestCategoryStore{cache: cache}
}

func (s *GuestCategoryStore) List(ctx context.Context, userID string) ([]model.Category, error) {
	return loadCategories(s.cache)
}

func (s *GuestCategoryStore) Create(ctx context.Context, category model.Category) (model.Category, error) {
	categories, err := loadCategories(s.cache)
	if err != nil {
		return model.Category{}, err
	}
	categories = append(categories, category)
	if err := saveCategories(s.cache, categories); err != nil {
		return model.Category{}, err
	}
	return category, nil
}

func (s *GuestCategoryStore) Update(ctx context.Context, category model.Category) (model.Category, error) {
	categories, err := loadCategories(s.cache)
	if err != nil {
		return model.Category{}, err
	}
	for i := range categories {
		if categories[i].ID == category.ID {
			categories[i] = category
			if err := saveCategories(s.cache, categories); err != nil {
				return model.Category{}, err
			}
			return category, nil
		}
	}
	return model.Category{}, sql.ErrNoRows
}

// Delete reassigns dependent tasks to defaultCategoryID and removes the
// category, writing both collections in one cache transaction.
func (s *GuestCategoryStore) Delete(ctx context.Context, userID, categoryID, defaultCategoryID string) error {
	categories, err := loadCategories(s.cache)
	if err != nil {
		return err
	}

	kept := make([]model.Category, 0, len(categories))
	found := false
	for _, c := range categories {
		if c.ID == categoryID {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return sql.ErrNoRows
	}
	if len(kept) == 0 {
		return repository.ErrLastCategory
	}

	tasks, err := loadTasks(s.cache)
	if err != nil {
		return err
	}
	for i := range tasks {
		if tasks[i].CategoryID == categoryID {
			tasks[i].CategoryID = defaultCategoryID
		}
	}

	taskBlob, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}
	categoryBlob, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}

	return s.cache.SetMany(map[string][]byte{
		TasksKey:      taskBlob,
		CategoriesKey: categoryBlob,
	})
}

// Clear removes both guest collections. The migration transactor calls this
// once every record has been durably copied to the remote store.
func Clear(c *Cache) error {
	if err := c.Remove(TasksKey); err != nil {
		return err
	}
	return c.Remove(CategoriesKey)
}

var (
	_ repository.TaskStore     = (*GuestTaskStore)(nil)
	_ repository.CategoryStore = (*GuestCategoryStore)(nil)
)
