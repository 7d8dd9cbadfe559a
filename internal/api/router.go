package api

import (
	"log/slog"
	"net/http"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
)

// NewRouter 创建路由并注册所有 handler
func NewRouter(
	homeHandler *HomeHandler,
	authHandler *AuthHandler,
	healthHandler *HealthHandler,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) *mux.Router {
	r := mux.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(AccessLog(logger))
	r.Use(chiMiddleware.Recoverer)

	// Health check endpoint (public, no session)
	r.Handle("/healthz", healthHandler).Methods(http.MethodGet)

	authHandler.RegisterRoutes(r)

	var home http.Handler = homeHandler
	if authMiddleware != nil {
		home = authMiddleware(home)
	}
	r.Handle("/", home).Methods(http.MethodGet)

	return r
}

// AccessLog logs one line per request.
func AccessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", chiMiddleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
