package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/backoffice/internal/admin/service"
	"github.com/aussiebroadwan/backoffice/internal/admin/store"
	"github.com/aussiebroadwan/backoffice/pkg/httpx"
	"github.com/aussiebroadwan/backoffice/pkg/jwtx"
	"github.com/aussiebroadwan/backoffice/pkg/slogx"
)

// RateLimits holds the bucket profile for each route class.
type RateLimits struct {
	Strict   httpx.RateLimitConfig // password and code submission
	Moderate httpx.RateLimitConfig // authenticated calls
	Lenient  httpx.RateLimitConfig // health checks
}

func DefaultRateLimits() RateLimits {
	return RateLimits{
		Strict:   httpx.StrictLimit,
		Moderate: httpx.ModerateLimit,
		Lenient:  httpx.LenientLimit,
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store       store.Store
	credentials store.Credentials

	Limits         RateLimits
	Gate           *service.Gate
	LoginService   *service.LoginService
	AccountService *service.AccountService
}

// NewRouter builds a router. credentials is the backend the services use
// for MFA credentials, which may differ from st.
func NewRouter(
	keys *jwtx.KeySet,
	buildVersion string,
	st store.Store,
	credentials store.Credentials,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		credentials:  credentials,
		logger:       logger,
		Limits:       DefaultRateLimits(),
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerMFA()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSession() {
	loginHandler := &LoginHandler{LoginService: r.LoginService}

	// POST /session/login - strict rate limit by IP (password and code guessing)
	r.Mux.Handle("POST /v1/session/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)

	sessionHandler := &SessionHandler{}
	r.Mux.Handle("GET /v1/session",
		httpx.Chain(sessionHandler,
			SessionMiddleware(r.Gate),
			httpx.RateLimitByPrincipal(r.Limits.Moderate),
			ExposeRenewedToken,
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{
		LoginService:   r.LoginService,
		AccountService: r.AccountService,
	}

	// Enrollment runs on the login challenge, before any session exists.
	r.Mux.Handle("POST /v1/mfa/provision",
		httpx.Chain(http.HandlerFunc(h.HandleProvision),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)
	r.Mux.Handle("POST /v1/mfa/confirm",
		httpx.Chain(http.HandlerFunc(h.HandleConfirm),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)

	r.Mux.Handle("GET /v1/mfa/status",
		httpx.Chain(http.HandlerFunc(h.HandleStatus),
			SessionMiddleware(r.Gate),
			httpx.RateLimitByPrincipal(r.Limits.Moderate),
			ExposeRenewedToken,
		),
	)
}

func (r *Router) registerAdmin() {
	h := &PrincipalsHandler{AccountService: r.AccountService}

	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			SessionMiddleware(r.Gate),
			httpx.RequireRole("admin"),
			httpx.RateLimitByPrincipal(r.Limits.Moderate),
			ExposeRenewedToken,
		)
	}

	r.Mux.Handle("DELETE /v1/admin/principals/{id}/mfa", secured(h.HandleResetMFA))
	r.Mux.Handle("POST /v1/admin/principals/{id}/deactivate", secured(h.HandleDeactivate))
	r.Mux.Handle("POST /v1/admin/principals/{id}/activate", secured(h.HandleActivate))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.credentials, r.keys),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
}
