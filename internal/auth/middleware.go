package auth

import (
	"log/slog"
	"net/http"

	"github.com/kerdahl/authentication-samples/internal/biz"
)

// IdentityLoader resolves the identity bound to a request, if any.
type IdentityLoader interface {
	LoadIdentity(r *http.Request) (*biz.Identity, bool, error)
}

// OptionalAuthMiddleware puts the request's identity into the context when
// one is present. Anonymous requests pass through unchanged.
func OptionalAuthMiddleware(loader IdentityLoader, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok, err := loader.LoadIdentity(r)
			if err != nil {
				logger.Warn("failed to load session", "error", err)
			}
			if ok {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}
