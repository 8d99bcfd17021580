package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aussiebroadwan/projectacl/internal/acl/service"
	"github.com/aussiebroadwan/projectacl/internal/acl/store"
	"github.com/aussiebroadwan/projectacl/pkg/httpx"
	"github.com/aussiebroadwan/projectacl/pkg/jwtx"
	"github.com/aussiebroadwan/projectacl/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	gatherer     prometheus.Gatherer

	store        store.Store
	Authorizer   service.Authorizer
	ShareService *service.ShareService
	Invites      *service.InviteService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	gatherer prometheus.Gatherer,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		gatherer:     gatherer,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerProjects()
	r.registerInvites()
	r.registerMe()
	r.registerSystem()
}

// ServeHTTP applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authed wraps h with bearer authentication and a per-user rate limit.
func (r *Router) authed(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerProjects() {
	h := &ProjectsHandler{Authz: r.Authorizer, Shares: r.ShareService}

	r.Mux.Handle("GET /v1/projects/{id}/role", r.authed(h.HandleRole, httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/projects/{id}/collaborators", r.authed(h.HandleListCollaborators, httpx.ModerateLimit))
	r.Mux.Handle("PUT /v1/projects/{id}/collaborators/{uid}", r.authed(h.HandleGrant, httpx.ModerateLimit))
	r.Mux.Handle("PATCH /v1/projects/{id}/collaborators/{uid}", r.authed(h.HandleChangeRole, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/projects/{id}/collaborators/{uid}", r.authed(h.HandleRevoke, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/projects/{id}/transfer", r.authed(h.HandleTransfer, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/projects/{id}", r.authed(h.HandleDelete, httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/projects/{id}/invites", r.authed(h.HandleListInvites, httpx.ModerateLimit))
}

func (r *Router) registerInvites() {
	h := &InvitesHandler{Authz: r.Authorizer, Invites: r.Invites}

	r.Mux.Handle("POST /v1/invites", r.authed(h.HandleCreate, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/invites/{inviteID}/revoke", r.authed(h.HandleRevoke, httpx.ModerateLimit))

	// The token is the secret being guessed on both claim routes.
	r.Mux.Handle("POST /v1/invites/claim", r.authed(h.HandleClaim, httpx.StrictLimit))
	r.Mux.Handle("POST /v1/invites/claim/new",
		httpx.Chain(http.HandlerFunc(h.HandleClaimNew),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerMe() {
	h := &ProjectsHandler{Authz: r.Authorizer, Shares: r.ShareService}
	r.Mux.Handle("GET /v1/me/projects", r.authed(h.HandleSharedWithMe, httpx.ModerateLimit))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys))
	if r.gatherer != nil {
		r.Mux.Handle("GET /metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	}
}
