// Package session binds authenticated identities to browser sessions. The
// cookie carries only a signed session id; values live in a biz.SessionRepo.
package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kerdahl/authentication-samples/internal/biz"
	"github.com/kerdahl/authentication-samples/internal/conf"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

// Store is a sessions.Store persisting values server-side.
type Store struct {
	Codecs  []securecookie.Codec
	Options *sessions.Options // default configuration
	repo    biz.SessionRepo
}

var _ sessions.Store = (*Store)(nil)

// NewStore creates a Store backed by repo. The cookie signing key is the
// configured secret; values are additionally encrypted with a key derived
// from it.
func NewStore(repo biz.SessionRepo, cfg conf.Session) *Store {
	blockKey := sha256.Sum256([]byte(cfg.Secret))
	s := &Store{
		Codecs: securecookie.CodecsFromPairs([]byte(cfg.Secret), blockKey[:]),
		Options: &sessions.Options{
			Path:     "/",
			MaxAge:   int(cfg.MaxAge / time.Second),
			Secure:   cfg.Secure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		repo: repo,
	}
	s.MaxAge(s.Options.MaxAge)
	// Values never travel in the cookie, so the 4096 byte cookie limit does
	// not apply to them.
	for _, c := range s.Codecs {
		if codec, ok := c.(*securecookie.SecureCookie); ok {
			codec.MaxLength(0)
		}
	}
	return s
}

// MaxAge sets the maximum age for the store and its codecs.
func (s *Store) MaxAge(age int) {
	s.Options.MaxAge = age
	for _, c := range s.Codecs {
		if codec, ok := c.(*securecookie.SecureCookie); ok {
			codec.MaxAge(age)
		}
	}
}

// Get returns a session for the given name after adding it to the registry.
func (s *Store) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New returns a session for the given name without adding it to the registry.
// A cookie that fails verification or names an unknown record yields a fresh
// session and no error; only repo failures are reported.
func (s *Store) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.Codecs...); err != nil {
		return session, nil
	}

	data, err := s.repo.Load(r.Context(), id)
	if errors.Is(err, biz.ErrSessionNotFound) {
		return session, nil
	}
	if err != nil {
		return session, fmt.Errorf("failed to load session: %w", err)
	}
	if err := securecookie.DecodeMulti(name, string(data), &session.Values, s.Codecs...); err != nil {
		return session, nil
	}
	session.ID = id
	session.IsNew = false
	return session, nil
}

// Save persists the session and sets its cookie. A session with
// Options.MaxAge <= 0 is deleted and its cookie cleared.
func (s *Store) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	if session.Options.MaxAge <= 0 {
		if session.ID != "" {
			if err := s.repo.Delete(r.Context(), session.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	data, err := securecookie.EncodeMulti(session.Name(), session.Values, s.Codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	ttl := time.Duration(session.Options.MaxAge) * time.Second
	if err := s.repo.Save(r.Context(), session.ID, []byte(data), ttl); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session id: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	session.IsNew = false
	return nil
}

// Rotate moves the session's values to a fresh id and deletes the old record.
func (s *Store) Rotate(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	if session.ID != "" {
		if err := s.repo.Delete(r.Context(), session.ID); err != nil {
			return err
		}
	}
	session.ID = ""
	return s.Save(r, w, session)
}
