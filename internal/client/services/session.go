package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/havengate/internal/client/models"
)

// SessionManager holds the identity of the current interactive run.
type SessionManager struct {
	mu  sync.Mutex
	cur *models.SessionUser
}

func NewSessionManager() *SessionManager {
	return &SessionManager{}
}

func (m *SessionManager) Set(u models.SessionUser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = &u
}

// Get returns a copy of the current identity, or nil when nobody is logged in.
func (m *SessionManager) Get() *models.SessionUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return nil
	}
	u := *m.cur
	return &u
}

func (m *SessionManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = nil
}

type sessionUserKey struct{}

// WithSessionUser returns a context carrying a copy of u.
func WithSessionUser(ctx context.Context, u models.SessionUser) context.Context {
	return context.WithValue(ctx, sessionUserKey{}, u)
}

func SessionUserFromContext(ctx context.Context) (models.SessionUser, bool) {
	u, ok := ctx.Value(sessionUserKey{}).(models.SessionUser)
	return u, ok
}
