package localcache

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaekwang-park/weekplan/internal/model"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestCache_GetSetRemove(t *testing.T) {
	cache := openTestCache(t)

	if _, ok, err := cache.Get("missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want absent", ok, err)
	}

	if err := cache.Set("k", []byte("v1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := cache.Get("k")
	if err != nil || !ok || string(got) != "v1" {
		t.Fatalf("Get(k) = %q ok=%v err=%v, want v1", got, ok, err)
	}

	// overwrite
	if err := cache.Set("k", []byte("v2")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, _, _ = cache.Get("k")
	if string(got) != "v2" {
		t.Fatalf("Get after overwrite = %q, want v2", got)
	}

	if err := cache.Remove("k"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := cache.Get("k"); ok {
		t.Fatal("key survived Remove")
	}
	// removing again is not an error
	if err := cache.Remove("k"); err != nil {
		t.Fatalf("Remove absent key: %v", err)
	}
}

func TestCache_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	cache, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := cache.Set("k", []byte("durable")); err != nil {
		t.Fatal(err)
	}
	if err := cache.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Get("k")
	if err != nil || !ok || string(got) != "durable" {
		t.Fatalf("Get after reopen = %q ok=%v err=%v", got, ok, err)
	}
}

func TestGuestTaskStore_RoundTrip(t *testing.T) {
	cache := openTestCache(t)
	store := NewGuestTask(cache)
	ctx := context.Background()

	// empty cache reads as an empty collection
	tasks, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("fresh cache holds %d tasks", len(tasks))
	}

	task := model.Task{
		ID:         "t1",
		Title:      "Buy milk",
		CategoryID: "c1",
		Day:        model.DayMon,
		Status:     model.TaskStatusPending,
		Priority:   model.TaskPriorityMedium,
		CreatedAt:  time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	if _, err := store.Create(ctx, task); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tasks, _ = store.List(ctx, "")
	if len(tasks) != 1 || tasks[0].Title != "Buy milk" || !tasks[0].CreatedAt.Equal(task.CreatedAt) {
		t.Fatalf("round trip lost data: %+v", tasks)
	}

	task.Title = "Buy oat milk"
	if _, err := store.Update(ctx, task); err != nil {
		t.Fatalf("Update: %v", err)
	}
	tasks, _ = store.List(ctx, "")
	if tasks[0].Title != "Buy oat milk" {
		t.Fatalf("update not persisted: %+v", tasks[0])
	}

	if _, err := store.Update(ctx, model.Task{ID: "ghost"}); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Update(ghost) error = %v, want sql.ErrNoRows", err)
	}

	if err := store.Delete(ctx, "", "t1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "", "t1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Delete(absent) error = %v, want sql.ErrNoRows", err)
	}
}

func TestGuestTaskStore_CommitOrder(t *testing.T) {
	cache := openTestCache(t)
	store := NewGuestTask(cache)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		if _, err := store.Create(ctx, model.Task{ID: id, Title: id, Day: model.DayMon, Order: i}); err != nil {
			t.Fatal(err)
		}
	}
	// a task in another partition keeps its order
	if _, err := store.Create(ctx, model.Task{ID: "z", Title: "z", Day: model.DayTue, Order: 0}); err != nil {
		t.Fatal(err)
	}

	if err := store.CommitOrder(ctx, "", model.DayMon, []string{"c", "a", "b"}); err != nil {
		t.Fatalf("CommitOrder: %v", err)
	}

	tasks, _ := store.List(ctx, "")
	want := map[string]int{"c": 0, "a": 1, "b": 2, "z": 0}
	for _, task := range tasks {
		if task.Order != want[task.ID] {
			t.Errorf("task %s order = %d, want %d", task.ID, task.Order, want[task.ID])
		}
	}
}

func TestGuestCategoryStore_DeleteReassignsTasks(t *testing.T) {
	cache := openTestCache(t)
	categories := NewGuestCategory(cache)
	tasks := NewGuestTask(cache)
	ctx := context.Background()

	for _, c := range []model.Category{
		{ID: "c1", Name: "Personal", Color: "#ef4444"},
		{ID: "c2", Name: "Errands", Color: "#3b82f6"},
	} {
		if _, err := categories.Create(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := tasks.Create(ctx, model.Task{ID: "t1", Title: "Buy milk", CategoryID: "c2", Day: model.DayMon}); err != nil {
		t.Fatal(err)
	}

	if err := categories.Delete(ctx, "", "c2", "c1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	remaining, _ := categories.List(ctx, "")
	if len(remaining) != 1 || remaining[0].ID != "c1" {
		t.Fatalf("categories after delete: %+v", remaining)
	}
	got, _ := tasks.List(ctx, "")
	if got[0].CategoryID != "c1" {
		t.Errorf("task category = %s, want reassigned c1", got[0].CategoryID)
	}
}

func TestGuestCategoryStore_DeleteLastRejected(t *testing.T) {
	cache := openTestCache(t)
	categories := NewGuestCategory(cache)
	ctx := context.Background()

	if _, err := categories.Create(ctx, model.Category{ID: "c1", Name: "Only", Color: "#fff"}); err != nil {
		t.Fatal(err)
	}

	err := categories.Delete(ctx, "", "c1", "")
	if err == nil {
		t.Fatal("expected last-category delete to fail")
	}
	remaining, _ := categories.List(ctx, "")
	if len(remaining) != 1 {
		t.Fatalf("rejected delete changed the collection: %+v", remaining)
	}
}

func TestClear_RemovesBothCollections(t *testing.T) {
	cache := openTestCache(t)
	tasks := NewGuestTask(cache)
	categories := NewGuestCategory(cache)
	ctx := context.Background()

	if _, err := tasks.Create(ctx, model.Task{ID: "t1", Title: "x", Day: model.DayMon}); err != nil {
		t.Fatal(err)
	}
	if _, err := categories.Create(ctx, model.Category{ID: "c1", Name: "x", Color: "#fff"}); err != nil {
		t.Fatal(err)
	}

	if err := Clear(cache); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if _, ok, _ := cache.Get(TasksKey); ok {
		t.Error("tasks key survived Clear")
	}
	if _, ok, _ := cache.Get(CategoriesKey); ok {
		t.Error("categories key survived Clear")
	}
}
