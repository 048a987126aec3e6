package api

import (
	"net/http"

	"github.com/bizfinda/backend/internal/auth"
	"github.com/bizfinda/backend/internal/business"
	apperrors "github.com/bizfinda/backend/internal/errors"
	"github.com/bizfinda/backend/internal/health"
)

type Router struct {
	mux              *http.ServeMux
	authHandlers     *auth.Handlers
	authService      *auth.Service
	businessHandlers *business.Handlers
	healthHandler    *health.Handler
}

func NewRouter(authHandlers *auth.Handlers, authService *auth.Service, businessHandlers *business.Handlers, healthHandler *health.Handler) *Router {
	r := &Router{
		mux:              http.NewServeMux(),
		authHandlers:     authHandlers,
		authService:      authService,
		businessHandlers: businessHandlers,
		healthHandler:    healthHandler,
	}
	r.setupRoutes()
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) setupRoutes() {
	r.mux.HandleFunc("GET /health", r.healthHandler.HealthHandler)

	// Auth routes (no auth required)
	r.mux.Handle("POST /api/auth/signup", apperrors.HandleFunc(r.authHandlers.Signup))
	r.mux.Handle("POST /api/auth/login", apperrors.HandleFunc(r.authHandlers.Login))
	r.mux.Handle("GET /api/auth/refresh", apperrors.HandleFunc(r.authHandlers.Refresh))
	r.mux.Handle("POST /api/auth/logout", apperrors.HandleFunc(r.authHandlers.Logout))

	// Public directory routes. Literal segments win over the slug
	// wildcard, so /search and /me are never shadowed.
	r.mux.Handle("GET /api/business/search", apperrors.HandleFunc(r.businessHandlers.Search))
	r.mux.Handle("GET /api/business/{slug}", apperrors.HandleFunc(r.businessHandlers.GetBySlug))

	// Owner routes (Bearer access token required)
	r.mux.Handle("POST /api/business", r.withAuth(r.businessHandlers.Create))
	r.mux.Handle("GET /api/business/me", r.withAuth(r.businessHandlers.GetMine))
	r.mux.Handle("PUT /api/business/me", r.withAuth(r.businessHandlers.UpdateMine))
	r.mux.Handle("DELETE /api/business/me", r.withAuth(r.businessHandlers.DeleteAccount))
}

func (r *Router) withAuth(h apperrors.Handler) http.Handler {
	return auth.Middleware(r.authService)(apperrors.HandleFunc(h))
}
