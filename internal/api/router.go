package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/kafkaops/internal/api/middleware"
	"github.com/kiranshivaraju/kafkaops/internal/api/response"
	"github.com/kiranshivaraju/kafkaops/pkg/models"
)

// Dependencies carries the middleware and handlers mounted by NewRouter.
// A nil handler is served as 501.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler      http.HandlerFunc
	ListActionsHandler http.HandlerFunc
	InvokeHandler      http.HandlerFunc
	StartRunHandler    http.HandlerFunc
	ListRunsHandler    http.HandlerFunc
	GetRunHandler      http.HandlerFunc
	RunStatusHandler   http.HandlerFunc
	CreateKeyHandler   http.HandlerFunc
	ListKeysHandler    http.HandlerFunc
	RevokeKeyHandler   http.HandlerFunc
}

// NewRouter mounts the /api/v1 surface. Everything except health requires a
// valid API key and counts against that key's rate limit.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, mw.Logger, mw.Recovery)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", mount(deps.HealthHandler))

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.Authenticate, deps.RateLimit.Limit)

			r.Get("/actions", mount(deps.ListActionsHandler))

			r.Group(func(r chi.Router) {
				r.Use(deps.Auth.RequireScope(models.ScopeInvoke))

				r.Post("/actions/{name}", mount(deps.InvokeHandler))
				r.Post("/actions/{name}/runs", mount(deps.StartRunHandler))

				r.Route("/runs", func(r chi.Router) {
					r.Get("/", mount(deps.ListRunsHandler))
					r.Get("/{runID}", mount(deps.GetRunHandler))
					r.Get("/{runID}/status", mount(deps.RunStatusHandler))
				})
			})

			r.Route("/admin/keys", func(r chi.Router) {
				r.Use(deps.Auth.RequireScope(models.ScopeAdmin))

				r.Post("/", mount(deps.CreateKeyHandler))
				r.Get("/", mount(deps.ListKeysHandler))
				r.Delete("/{keyID}", mount(deps.RevokeKeyHandler))
			})
		})
	})

	return r
}

func mount(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotImplemented, response.CodeNotImplemented, "Endpoint not yet implemented", nil)
	}
}
