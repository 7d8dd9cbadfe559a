package api

import (
	"log/slog"
	"net/http"

	"github.com/kerdahl/authentication-samples/internal/session"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
)

// AuthHandler handles the login redirect and the provider callback
type AuthHandler struct {
	authenticator Authenticator
	sessions      *session.Manager
	provider      string
	logger        *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authenticator Authenticator, sessions *session.Manager, provider string, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authenticator: authenticator,
		sessions:      sessions,
		provider:      provider,
		logger:        logger,
	}
}

// RegisterRoutes registers auth routes
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/auth/{provider}", h.login).Methods(http.MethodGet)
	r.HandleFunc("/auth/{provider}/callback", h.callback).Methods(http.MethodGet)
}

// login starts the authorization code flow
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if mux.Vars(r)["provider"] != h.provider {
		http.NotFound(w, r)
		return
	}

	s, err := h.sessions.Get(r)
	if err != nil {
		h.logger.Error("failed to load session", "error", err)
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	a, err := h.authenticator.BeginAuthorization(nil)
	if err != nil {
		h.logger.Error("failed to begin authorization", "error", err)
		http.Error(w, "failed to begin authorization", http.StatusInternalServerError)
		return
	}

	// State (and PKCE verifier) live in the session until the callback.
	h.sessions.SetPending(s, a)
	if err := s.Save(r, w); err != nil {
		h.logger.Error("failed to save session", "error", err)
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, a.URL, http.StatusFound)
}

// callback completes the flow. Every outcome redirects to the home page;
// failures only consume the pending state.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	if mux.Vars(r)["provider"] != h.provider {
		http.NotFound(w, r)
		return
	}

	s, err := h.sessions.Get(r)
	if err != nil {
		h.logger.Error("failed to load session", "error", err)
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	pending := h.sessions.TakePending(s)

	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		h.logger.Warn("authorization denied by provider",
			"error", reason,
			"description", q.Get("error_description"),
		)
		h.fail(w, r, s)
		return
	}

	id, err := h.authenticator.CompleteAuthorization(r.Context(), q.Get("code"), q.Get("state"), pending)
	if err != nil {
		h.logger.Warn("authentication failed", "error", err)
		h.fail(w, r, s)
		return
	}

	h.sessions.Attach(s, id)
	if err := h.sessions.Rotate(r, w, s); err != nil {
		h.logger.Error("failed to save session", "error", err)
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	h.logger.Info("user authenticated", "user_id", id.ID, "login", id.Login)

	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, s *sessions.Session) {
	if err := s.Save(r, w); err != nil {
		h.logger.Error("failed to save session", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}
