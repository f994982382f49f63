// Package httpapi assembles the HTTP surface: domain handlers, request
// context middleware and the operational endpoints.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ingresso/internal/permission"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/httputil"
	"ingresso/pkg/requestcontext"
)

// Registrar is implemented by every domain handler.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter builds the router with the shared middleware stack and
// mounts each handler under /api/v1. Enforcement of permissions happens
// upstream; the engine only exposes the group-to-permission mapping.
func NewRouter(logger *zap.Logger, permissions *permission.Service, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestContext)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/permissions/{group}", handlePermissions(permissions))
		for _, h := range handlers {
			h.Register(api)
		}
	})
	return r
}

func handlePermissions(permissions *permission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		group := chi.URLParam(r, "group")
		perms := permissions.PermissionsFor(r.Context(), group)
		if len(perms) == 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown group"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"group":       group,
			"permissions": perms,
		})
	}
}

// requestContext seeds the request-scoped values the services read: the
// acting user (audit fields only) and the request time.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := middleware.GetReqID(ctx); reqID != "" {
			ctx = requestcontext.WithRequestID(ctx, reqID)
		}
		if raw := r.Header.Get("X-Acting-User"); raw != "" {
			if actor, err := id.ParseUserID(raw); err == nil {
				ctx = requestcontext.WithActor(ctx, actor)
			}
		}
		ctx = requestcontext.WithTime(ctx, time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.String("request_id", requestcontext.RequestID(r.Context())),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
