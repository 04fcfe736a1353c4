package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jaekwang-park/weekplan/internal/model"
)

func TestIdentityChanged_MigratesGuestData(t *testing.T) {
	env := loadedRegistry(t)
	r := env.registry
	ctx := context.Background()

	errands, err := r.AddCategory(ctx, CategoryInput{Name: "Errands", Color: "#aabbcc"})
	if err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	milk, err := r.AddTask(ctx, AddTaskInput{Title: "Buy milk", Day: model.DayMon, CategoryID: errands.ID})
	if err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	mustAdd(t, r, "Call dentist", model.DayMon)

	if err := r.IdentityChanged(ctx, model.Guest(), model.Authenticated("user-1")); err != nil {
		t.Fatalf("IdentityChanged: %v", err)
	}

	if got := r.Identity(); got.UserID != "user-1" {
		t.Errorf("identity = %s, want user-1", got)
	}

	// every guest record is present in the remote store by content
	remoteTasks, _ := env.remoteTasks.List(ctx, "user-1")
	if len(remoteTasks) != 2 {
		t.Fatalf("remote has %d tasks, want 2", len(remoteTasks))
	}
	titlesSeen := map[string]model.Task{}
	for _, rt := range remoteTasks {
		titlesSeen[rt.Title] = rt
		if rt.UserID != "user-1" {
			t.Errorf("migrated task %q has user %q", rt.Title, rt.UserID)
		}
	}
	if _, ok := titlesSeen["Buy milk"]; !ok {
		t.Error("Buy milk lost in migration")
	}
	if _, ok := titlesSeen["Call dentist"]; !ok {
		t.Error("Call dentist lost in migration")
	}

	// the non-default category traveled and the task still references it
	remoteCategories, _ := env.remoteCategories.List(ctx, "user-1")
	var remoteErrands *model.Category
	for i, c := range remoteCategories {
		if c.Name == "Errands" {
			remoteErrands = &remoteCategories[i]
		}
	}
	if remoteErrands == nil {
		t.Fatal("Errands category lost in migration")
	}
	if titlesSeen["Buy milk"].CategoryID != remoteErrands.ID {
		t.Errorf("migrated task category = %s, want %s", titlesSeen["Buy milk"].CategoryID, remoteErrands.ID)
	}
	if titlesSeen["Buy milk"].ID != milk.ID {
		t.Errorf("guest id not preserved as remote id")
	}

	// guest scope cleared only after the copy succeeded
	guestTasks, _ := env.guestTasks.List(ctx, "")
	guestCategories, _ := env.guestCategories.List(ctx, "")
	if len(guestTasks) != 0 || len(guestCategories) != 0 {
		t.Errorf("guest store not cleared: %d tasks, %d categories", len(guestTasks), len(guestCategories))
	}

	// the view now reads from the remote scope
	if got := r.ListByDay(model.DayMon); len(got) != 2 {
		t.Errorf("post-migration view has %d tasks, want 2", len(got))
	}
}

func TestIdentityChanged_DefaultCategoriesMergeByName(t *testing.T) {
	env := loadedRegistry(t)
	r := env.registry
	ctx := context.Background()

	mustAdd(t, r, "Buy milk", model.DayMon)
	guestDefaults := len(r.ListCategories())

	if err := r.IdentityChanged(ctx, model.Guest(), model.Authenticated("user-1")); err != nil {
		t.Fatalf("IdentityChanged: %v", err)
	}

	// guest defaults match the freshly seeded remote defaults by name, so
	// nothing is duplicated
	remoteCategories, _ := env.remoteCategories.List(ctx, "user-1")
	if len(remoteCategories) != guestDefaults {
		t.Errorf("remote has %d categories, want %d (no duplicates)", len(remoteCategories), guestDefaults)
	}
}

func TestIdentityChanged_MigrationIntoNonEmptyAccount(t *testing.T) {
	env := loadedRegistry(t)
	r := env.registry
	ctx := context.Background()

	// the account already holds a Mon task at order 0
	env.remoteTasks.tasks = []model.Task{
		{ID: "existing", UserID: "user-1", Title: "Existing plan", Day: model.DayMon, Order: 0, Status: model.TaskStatusPending},
	}

	mustAdd(t, r, "Guest first", model.DayMon)
	mustAdd(t, r, "Guest second", model.DayMon)

	if err := r.IdentityChanged(ctx, model.Guest(), model.Authenticated("user-1")); err != nil {
		t.Fatalf("IdentityChanged: %v", err)
	}

	got := r.ListByDay(model.DayMon)
	if len(got) != 3 {
		t.Fatalf("partition has %d tasks, want 3", len(got))
	}
	assertContiguous(t, got)

	// guest tasks append after the account's own, preserving their relative order
	wantTitles := []string{"Existing plan", "Guest first", "Guest second"}
	for i, task := range got {
		if task.Title != wantTitles[i] {
			t.Errorf("position %d is %q, want %q", i, task.Title, wantTitles[i])
		}
	}
}

func TestIdentityChanged_FailurePreservesGuestStore(t *testing.T) {
	env := loadedRegistry(t)
	r := env.registry
	ctx := context.Background()

	mustAdd(t, r, "Buy milk", model.DayMon)

	env.remoteTasks.failCreate = errors.New("network down")
	err := r.IdentityChanged(ctx, model.Guest(), model.Authenticated("user-1"))
	if !errors.Is(err, ErrMigration) {
		t.Fatalf("error = %v, want ErrMigration", err)
	}

	// guest remains the durable copy and the current identity
	if got := r.Identity(); !got.IsGuest() {
		t.Errorf("identity = %s, want guest", got)
	}
	guestTasks, _ := env.guestTasks.List(ctx, "")
	if len(guestTasks) != 1 {
		t.Errorf("guest store has %d tasks after failed migration, want 1", len(guestTasks))
	}
}

func TestIdentityChanged_RetryAfterFailureDoesNotDuplicate(t *testing.T) {
	env := loadedRegistry(t)
	r := env.registry
	ctx := context.Background()

	_, err := r.AddCategory(ctx, CategoryInput{Name: "Errands", Color: "#aabbcc"})
	if err != nil {
		t.Fatal(err)
	}
	mustAdd(t, r, "Buy milk", model.DayMon)

	// first attempt dies after the categories were already copied
	env.remoteTasks.failCreate = errors.New("network down")
	if err := r.IdentityChanged(ctx, model.Guest(), model.Authenticated("user-1")); !errors.Is(err, ErrMigration) {
		t.Fatalf("error = %v, want ErrMigration", err)
	}

	afterFirst, _ := env.remoteCategories.List(ctx, "user-1")

	// retry succeeds; upsert-by-id skips the categories copied before
	env.remoteTasks.failCreate = nil
	if err := r.IdentityChanged(ctx, model.Guest(), model.Authenticated("user-1")); err != nil {
		t.Fatalf("retry failed: %v", err)
	}

	afterRetry, _ := env.remoteCategories.List(ctx, "user-1")
	if len(afterRetry) != len(afterFirst) {
		t.Errorf("retry duplicated categories: %d -> %d", len(afterFirst), len(afterRetry))
	}
	remoteTasks, _ := env.remoteTasks.List(ctx, "user-1")
	if len(remoteTasks) != 1 {
		t.Errorf("remote has %d tasks after retry, want 1", len(remoteTasks))
	}
}

func TestIdentityChanged_LogoutReloadsGuestView(t *testing.T) {
	env := loadedRegistry(t)
	r := env.registry
	ctx := context.Background()

	mustAdd(t, r, "Buy milk", model.DayMon)
	if err := r.IdentityChanged(ctx, model.Guest(), model.Authenticated("user-1")); err != nil {
		t.Fatal(err)
	}
	mustAdd(t, r, "Authenticated-only task", model.DayTue)

	if err := r.IdentityChanged(ctx, model.Authenticated("user-1"), model.Guest()); err != nil {
		t.Fatalf("logout transition: %v", err)
	}

	if got := r.Identity(); !got.IsGuest() {
		t.Errorf("identity = %s, want guest", got)
	}
	// the authenticated view was discarded, not migrated back
	if got := r.ListByDay(model.DayTue); len(got) != 0 {
		t.Errorf("guest view sees %d authenticated tasks, want 0", len(got))
	}
	// and the remote store keeps the user's data
	remoteTasks, _ := env.remoteTasks.List(ctx, "user-1")
	if len(remoteTasks) != 2 {
		t.Errorf("remote lost data on logout: %d tasks, want 2", len(remoteTasks))
	}
}

func TestGuestMutationDuringMigrationRejected(t *testing.T) {
	env := loadedRegistry(t)
	r := env.registry
	ctx := context.Background()

	mustAdd(t, r, "Buy milk", model.DayMon)

	gate := make(chan struct{})
	env.remoteTasks.createGate = gate

	done := make(chan error, 1)
	go func() {
		done <- r.IdentityChanged(ctx, model.Guest(), model.Authenticated("user-1"))
	}()

	// wait until the migration is blocked inside the remote create
	var blocked bool
	for i := 0; i < 1000 && !blocked; i++ {
		r.mu.Lock()
		blocked = r.migrating
		r.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	if !blocked {
		t.Fatal("migration never started")
	}

	if _, err := r.AddTask(ctx, AddTaskInput{Title: "racing", Day: model.DayMon}); !errors.Is(err, ErrMigrating) {
		t.Errorf("error = %v, want ErrMigrating", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("migration failed: %v", err)
	}
}
