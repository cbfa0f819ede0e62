package server

import (
	"log/slog"
	"net/http"

	"github.com/go-michi/michi"
	"golang.org/x/time/rate"

	"github.com/tavre/orgsync/server/middleware"
)

// RouterConfig adjusts the middleware stack around the API routes.
type RouterConfig struct {
	Logger *slog.Logger
	// SessionValidator validates bearer tokens; defaults to pkg/session JWTs.
	SessionValidator middleware.SessionValidator
	// RateLimit caps requests per client IP per second; zero disables limiting.
	RateLimit float64
	RateBurst int
}

// NewRouter wires the handler into a michi router behind the middleware
// stack: recovery, CORS, request logging, rate limiting, session auth.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	validate := cfg.SessionValidator
	if validate == nil {
		validate = middleware.DefaultSessionValidator
	}

	mux := michi.NewRouter()
	mux.Handle("POST /api/v1/auth/login", http.HandlerFunc(h.AuthLogin))
	mux.Handle("GET /api/v1/user/organizations-light", http.HandlerFunc(h.UserOrganizationsLight))
	mux.Handle("POST /api/v1/orgs", http.HandlerFunc(h.CreateOrganization))
	mux.Handle("GET /api/v1/orgs/{id}", http.HandlerFunc(h.GetOrganization))
	mux.Handle("DELETE /api/v1/orgs/{id}", http.HandlerFunc(h.DeleteOrganization))
	mux.Handle("PUT /api/v1/orgs/{id}/members/{user_id}", http.HandlerFunc(h.PutMember))

	var handler http.Handler = mux
	handler = middleware.WithSessionAuth(validate, logger)(handler)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter := middleware.NewRateLimiter(logger, middleware.IPAddressKeyFunc, rate.Limit(cfg.RateLimit), burst)
		handler = limiter.Limit(handler)
	}
	handler = middleware.WithLogger(logger)(handler)
	handler = middleware.WithCORS()(handler)
	handler = middleware.RecoveryMiddleware(handler)
	return handler
}
