package api

import (
	"log/slog"
	"net/http"

	"github.com/kerdahl/authentication-samples/internal/auth"
	"github.com/kerdahl/authentication-samples/internal/session"
)

// HomeHandler serves the landing page.
type HomeHandler struct {
	home     HomeService
	sessions *session.Manager
	view     *Renderer
	logger   *slog.Logger
}

func NewHomeHandler(home HomeService, sessions *session.Manager, view *Renderer, logger *slog.Logger) *HomeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HomeHandler{
		home:     home,
		sessions: sessions,
		view:     view,
		logger:   logger,
	}
}

// ServeHTTP renders the prompt for anonymous visitors. For an authenticated
// session it runs the chat demonstration, stores the updated identity and
// renders the profile.
func (h *HomeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := auth.IdentityFromContext(r.Context())
	if err != nil {
		if err := h.view.Prompt(w); err != nil {
			h.logger.Error("failed to render prompt", "error", err)
		}
		return
	}

	view := h.home.Home(r.Context(), id)

	s, err := h.sessions.Get(r)
	if err == nil {
		h.sessions.Attach(s, id)
		err = s.Save(r, w)
	}
	if err != nil {
		h.logger.Warn("failed to persist session", "error", err)
	}

	if err := h.view.Profile(w, view); err != nil {
		h.logger.Error("failed to render profile", "error", err)
	}
}
