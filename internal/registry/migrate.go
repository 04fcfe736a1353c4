package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jaekwang-park/weekplan/internal/model"
)

// IdentityChanged reacts to identity-session transitions. Guest to
// authenticated migrates the guest data into the user's remote store before
// the view switches; authenticated to guest discards the view and reloads
// the local cache. Returning an error leaves the previous identity current.
func (r *Registry) IdentityChanged(ctx context.Context, from, to model.Identity) error {
	switch {
	case from.IsGuest() && !to.IsGuest():
		return r.adoptUser(ctx, to)
	case !from.IsGuest() && to.IsGuest():
		r.mu.Lock()
		r.identity = model.Guest()
		r.tasks = make(map[string]*record)
		r.categories = nil
		r.mu.Unlock()
		return r.Load(ctx)
	default:
		return nil
	}
}

func (r *Registry) adoptUser(ctx context.Context, to model.Identity) error {
	r.mu.Lock()
	if r.migrating {
		r.mu.Unlock()
		return fmt.Errorf("%w: another migration is running", ErrMigrating)
	}
	r.migrating = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.migrating = false
		r.mu.Unlock()
	}()

	if err := r.migrateGuestData(ctx, to.UserID); err != nil {
		r.logger.Error("guest migration failed, guest store preserved", "user_id", to.UserID, "error", err)
		return fmt.Errorf("%w: %v", ErrMigration, err)
	}

	r.mu.Lock()
	r.identity = to
	r.mu.Unlock()

	return r.Load(ctx)
}

// migrateGuestData copies every guest category and task into the user's
// remote store, then clears the guest scope. Guest record ids double as the
// remote ids and remote creates are upserts, so a retried migration skips
// records already copied; the guest store is only cleared once every copy
// has succeeded.
func (r *Registry) migrateGuestData(ctx context.Context, userID string) error {
	guestTasks, err := r.backends.GuestTasks.List(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to read guest tasks: %w", err)
	}
	guestCategories, err := r.backends.GuestCategories.List(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to read guest categories: %w", err)
	}
	if len(guestTasks) == 0 && len(guestCategories) == 0 {
		return nil
	}

	remoteCategories, err := r.backends.RemoteCategories.List(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to read remote categories: %w", err)
	}
	if len(remoteCategories) == 0 {
		remoteCategories = r.seedDefaults(ctx, r.backends.RemoteCategories, userID)
	}

	remoteByName := make(map[string]string, len(remoteCategories))
	for _, c := range remoteCategories {
		remoteByName[strings.ToLower(c.Name)] = c.ID
	}

	// Guest categories matching a remote one by name map onto it; the rest
	// are created remotely under their guest ids.
	idMap := make(map[string]string, len(guestCategories))
	for _, c := range guestCategories {
		if remoteID, ok := remoteByName[strings.ToLower(c.Name)]; ok {
			idMap[c.ID] = remoteID
			continue
		}
		c.UserID = userID
		created, err := r.backends.RemoteCategories.Create(ctx, c)
		if err != nil {
			return fmt.Errorf("failed to copy category %q: %w", c.Name, err)
		}
		idMap[c.ID] = created.ID
	}

	var defaultID string
	if len(remoteCategories) > 0 {
		defaultID = remoteCategories[0].ID
	}

	// Guest tasks append after the user's existing tasks so every day
	// partition keeps contiguous orders. Tasks already present remotely
	// (an earlier interrupted run) keep their slot and are skipped.
	remoteTasks, err := r.backends.RemoteTasks.List(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to read remote tasks: %w", err)
	}
	copied := make(map[string]bool, len(remoteTasks))
	nextOrder := make(map[model.Day]int, len(remoteTasks))
	for _, t := range remoteTasks {
		copied[t.ID] = true
		if t.Order >= nextOrder[t.Day] {
			nextOrder[t.Day] = t.Order + 1
		}
	}

	sort.SliceStable(guestTasks, func(i, j int) bool {
		if guestTasks[i].Day != guestTasks[j].Day {
			return guestTasks[i].Day < guestTasks[j].Day
		}
		return guestTasks[i].Order < guestTasks[j].Order
	})

	for _, t := range guestTasks {
		if copied[t.ID] {
			continue
		}
		t.UserID = userID
		if remoteID, ok := idMap[t.CategoryID]; ok {
			t.CategoryID = remoteID
		} else {
			t.CategoryID = defaultID
		}
		t.Order = nextOrder[t.Day]
		nextOrder[t.Day]++
		if _, err := r.backends.RemoteTasks.Create(ctx, t); err != nil {
			return fmt.Errorf("failed to copy task %q: %w", t.Title, err)
		}
	}

	if err := r.backends.ClearGuest(ctx); err != nil {
		return fmt.Errorf("failed to clear guest store: %w", err)
	}
	return nil
}
