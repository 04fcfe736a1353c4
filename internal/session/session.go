// Package session tracks which identity is current: the device-local guest,
// or an authenticated user. Exactly one identity is current at a time and
// transitions are serialized.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jaekwang-park/weekplan/internal/model"
)

// ErrAlreadyAuthenticated rejects a direct user-to-user transition; logout
// is required between two logins.
var ErrAlreadyAuthenticated = errors.New("already authenticated as another user")

// Listener observes identity transitions. A transition only commits when
// the listener returns nil, so a failed guest migration keeps the guest
// identity current.
type Listener interface {
	IdentityChanged(ctx context.Context, from, to model.Identity) error
}

type Manager struct {
	listener Listener
	logger   *slog.Logger

	mu      sync.Mutex
	current model.Identity
}

func NewManager(listener Listener, logger *slog.Logger) *Manager {
	return &Manager{
		listener: listener,
		logger:   logger,
		current:  model.Guest(),
	}
}

func (m *Manager) Current() model.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Login transitions to the authenticated identity. Logging in while the
// same user is already current is a no-op; a different user is rejected.
func (m *Manager) Login(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("session: user id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.current
	to := model.Authenticated(userID)
	if !from.IsGuest() {
		if from.UserID == userID {
			return nil
		}
		return ErrAlreadyAuthenticated
	}

	if err := m.listener.IdentityChanged(ctx, from, to); err != nil {
		return err
	}

	m.current = to
	m.logger.Info("identity transition", "from", from.String(), "to", to.String())
	return nil
}

// Logout transitions back to the guest identity. No reverse migration is
// performed; the authenticated view is discarded.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.current
	if from.IsGuest() {
		return nil
	}

	to := model.Guest()
	if err := m.listener.IdentityChanged(ctx, from, to); err != nil {
		return err
	}

	m.current = to
	m.logger.Info("identity transition", "from", from.String(), "to", "guest")
	return nil
}
