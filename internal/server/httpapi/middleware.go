package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/corund/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	headerDomainKey    = "domain_key"
	headerDomainSecret = "domain_secret"
)

type ctxKey string

const domainKey ctxKey = "domain"

func domainFrom(ctx context.Context) *models.Domain {
	d, _ := ctx.Value(domainKey).(*models.Domain)
	return d
}

// domainAuth rejects requests whose domain credentials do not match the
// registry and stores the authenticated domain in the request context.
func (h *Handler) domainAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := h.domains.Authenticate(r.Context(), r.Header.Get(headerDomainKey), r.Header.Get(headerDomainSecret))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), domainKey, d)))
	})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pattern := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			pattern = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		h.metrics.RecordHTTPRequest(r.Method, pattern, status, elapsed)
		h.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
