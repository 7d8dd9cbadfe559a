package session

import (
	"encoding/gob"

	"github.com/kerdahl/authentication-samples/internal/auth"
	"github.com/kerdahl/authentication-samples/internal/biz"

	"github.com/gorilla/sessions"
)

const (
	identityKey = "identity"
	pendingKey  = "oauth_pending"
)

func init() {
	gob.Register(&biz.Identity{})
	gob.Register(&auth.Authorization{})
}

// Binder reads and writes the values kept in a session. Callers save the
// session afterwards.
type Binder struct{}

// Attach binds id to the session, replacing any previous identity.
func (Binder) Attach(s *sessions.Session, id *biz.Identity) {
	s.Values[identityKey] = id
}

// Load returns the identity bound to the session.
func (Binder) Load(s *sessions.Session) (*biz.Identity, bool) {
	id, ok := s.Values[identityKey].(*biz.Identity)
	return id, ok && id != nil
}

// Detach removes the identity from the session.
func (Binder) Detach(s *sessions.Session) {
	delete(s.Values, identityKey)
}

// SetPending stores an in-flight authorization attempt.
func (Binder) SetPending(s *sessions.Session, a *auth.Authorization) {
	s.Values[pendingKey] = a
}

// TakePending removes and returns the in-flight authorization attempt. It
// returns nil when there is none.
func (Binder) TakePending(s *sessions.Session) *auth.Authorization {
	a, _ := s.Values[pendingKey].(*auth.Authorization)
	delete(s.Values, pendingKey)
	return a
}
