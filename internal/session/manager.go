package session

import (
	"net/http"

	"github.com/kerdahl/authentication-samples/internal/biz"

	"github.com/gorilla/sessions"
)

// Manager ties a Store to the cookie name used by the application.
type Manager struct {
	Binder
	store *Store
	name  string
}

func NewManager(store *Store, name string) *Manager {
	return &Manager{store: store, name: name}
}

// Get returns the request's session. Repeated calls within one request
// return the same session.
func (m *Manager) Get(r *http.Request) (*sessions.Session, error) {
	return m.store.Get(r, m.name)
}

// Rotate saves s under a fresh id.
func (m *Manager) Rotate(r *http.Request, w http.ResponseWriter, s *sessions.Session) error {
	return m.store.Rotate(r, w, s)
}

// LoadIdentity returns the identity bound to the request's session.
func (m *Manager) LoadIdentity(r *http.Request) (*biz.Identity, bool, error) {
	s, err := m.Get(r)
	if err != nil {
		return nil, false, err
	}
	id, ok := m.Load(s)
	return id, ok, nil
}
