package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Router builds the chi router with request id, panic recovery, CORS,
// request logging and metrics.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", headerDomainKey, headerDomainSecret},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Route("/rpc", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Post("/current", h.current)
		r.Post("/access", h.access)

		r.Route("/server", func(r chi.Router) {
			r.Use(h.domainAuth)
			r.Post("/reg", h.register)
			r.Post("/dereg", h.deregister)
			r.Post("/get_user_changes", h.userChanges)
			r.Post("/get_users", h.getUsers)
		})
	})

	return r
}
