package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/kiranshivaraju/jobtracker/internal/api/middleware"
	"github.com/kiranshivaraju/jobtracker/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth        *mw.Auth
	RateLimit   *mw.RateLimit
	CORSOrigins []string

	HealthHandler    http.HandlerFunc
	AnonymousHandler http.HandlerFunc
	RefreshHandler   http.HandlerFunc

	ListJobs    http.HandlerFunc
	GetJob      http.HandlerFunc
	CreateJob   http.HandlerFunc
	UpdateJob   http.HandlerFunc
	DeleteJob   http.HandlerFunc
	ReorderJobs http.HandlerFunc

	CreateComment http.HandlerFunc
	UpdateComment http.HandlerFunc
	DeleteComment http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	if len(deps.CORSOrigins) > 0 {
		r.Use(mw.CORS(deps.CORSOrigins))
	}

	r.Get("/health", orNotImplemented(deps.HealthHandler))
	r.Post("/auth/anonymous", orNotImplemented(deps.AnonymousHandler))
	r.Post("/auth/refresh", orNotImplemented(deps.RefreshHandler))

	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/jobs", orNotImplemented(deps.ListJobs))
		r.Post("/jobs", orNotImplemented(deps.CreateJob))
		// registered before /jobs/{id} so "reorder" is never taken as an id
		r.Put("/jobs/reorder", orNotImplemented(deps.ReorderJobs))
		r.Get("/jobs/{id}", orNotImplemented(deps.GetJob))
		r.Put("/jobs/{id}", orNotImplemented(deps.UpdateJob))
		r.Delete("/jobs/{id}", orNotImplemented(deps.DeleteJob))

		r.Post("/jobs/{id}/comments", orNotImplemented(deps.CreateComment))
		r.Put("/comments/{id}", orNotImplemented(deps.UpdateComment))
		r.Delete("/comments/{id}", orNotImplemented(deps.DeleteComment))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
