package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/marmos91/bucketfs/internal/logger"
	"github.com/marmos91/bucketfs/pkg/contents"
)

// NewRouter creates a chi router with the contents API mounted under
// /api/contents. The health check stays outside authentication.
func NewRouter(manager *contents.Manager, cfg RESTConfig, log *logger.Logger, m Metrics) chi.Router {
	cfg.applyDefaults()
	h := NewHandler(manager, cfg.MaxBodyBytes)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestID)
	r.Use(AccessLog(log, m))

	r.Get("/healthz", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Token))

		for _, pattern := range []string{"/api/contents", "/api/contents/*"} {
			r.Get(pattern, h.Get)
			r.Put(pattern, h.Save)
			r.Patch(pattern, h.Rename)
			r.Post(pattern, h.Create)
			r.Delete(pattern, h.Delete)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody("not found", ""))
	})
	return r
}
