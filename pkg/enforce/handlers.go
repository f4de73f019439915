package enforce

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/ssogate/pkg/contextkeys"
	"github.com/platinummonkey/ssogate/pkg/httputil"
	"github.com/platinummonkey/ssogate/pkg/observability"
)

// SessionScope resolves a web session ID to its SSO session state
type SessionScope func(sessionID string) SessionState

// Handlers exposes the enforcement engine over HTTP
type Handlers struct {
	svc    *Service
	scope  SessionScope
	logger *observability.Logger
}

// NewHandlers creates the HTTP handlers for the enforcement engine
func NewHandlers(svc *Service, scope SessionScope, logger *observability.Logger) *Handlers {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Handlers{
		svc:    svc,
		scope:  scope,
		logger: logger,
	}
}

// RegisterRoutes registers the API routes on the given router. Extra
// middleware applies to the sign-in recording route only.
func (h *Handlers) RegisterRoutes(r *mux.Router, signInMiddleware ...mux.MiddlewareFunc) {
	var signIn http.Handler = http.HandlerFunc(h.RecordSignIn)
	for i := len(signInMiddleware) - 1; i >= 0; i-- {
		signIn = signInMiddleware[i](signIn)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Handle("/sessions/{provider_id:[0-9]+}", signIn).Methods(http.MethodPost)
	api.HandleFunc("/sessions/expiry", h.SessionExpiry).Methods(http.MethodGet)
	api.HandleFunc("/access/groups/{id:[0-9]+}", h.GroupAccess).Methods(http.MethodGet)
}

// RecordSignInRequest is the body of POST /api/v1/sessions/{provider_id}
type RecordSignInRequest struct {
	// At is the sign-in instant; zero means now
	At time.Time `json:"at,omitempty"`

	// ExpiresAt is the absolute expiry the IdP declared, if any
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// RecordSignIn records a fresh SSO sign-in into the caller's session state
func (h *Handlers) RecordSignIn(w http.ResponseWriter, r *http.Request) {
	providerID, ok := httputil.ParsePathInt64OrError(w, r, "provider_id")
	if !ok {
		return
	}

	sessionID := contextkeys.GetSessionID(r.Context())
	if sessionID == "" {
		httputil.WriteBadRequest(w, "X-Session-ID header is required")
		return
	}

	var req RecordSignInRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	at := req.At
	if at.IsZero() {
		at = time.Now()
	}

	state := h.scope(sessionID)
	if err := h.svc.UpdateSession(r.Context(), state, providerID, at, req.ExpiresAt); err != nil {
		h.logger.WithError(err).WithField("provider_id", providerID).Error("failed to record sign-in")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// GroupAccessResponse is the body of GET /api/v1/access/groups/{id}
type GroupAccessResponse struct {
	GroupID    int64 `json:"group_id"`
	Restricted bool  `json:"restricted"`
}

// GroupAccess decides whether the calling user's session satisfies the SSO
// policy governing the group
func (h *Handlers) GroupAccess(w http.ResponseWriter, r *http.Request) {
	groupID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	group, err := h.svc.policy.GetGroup(ctx, groupID)
	if err != nil {
		h.logger.WithError(err).WithField("group_id", groupID).Error("failed to load group")
		httputil.WriteInternalError(w, err)
		return
	}
	if group == nil {
		httputil.WriteNotFound(w, "group not found")
		return
	}

	user := contextkeys.GetUser(ctx)
	rc := RequestContext{}
	if sessionID := contextkeys.GetSessionID(ctx); sessionID != "" {
		rc.Sessions = h.scope(sessionID)
	}
	if user != nil {
		rc.WebSessionUserID = &user.ID
	}

	opts := CheckOptions{
		SkipOwnerCheck: httputil.ParseQueryBool(r, "skip_owner_check", false),
	}

	restricted, err := h.svc.AccessRestricted(ctx, user, group, rc, opts)
	if err != nil {
		h.logger.WithError(err).WithField("group_id", groupID).Error("access check failed")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, GroupAccessResponse{
		GroupID:    groupID,
		Restricted: restricted,
	})
}

// ProviderExpiryResponse is one entry of GET /api/v1/sessions/expiry
type ProviderExpiryResponse struct {
	ProviderID           int64   `json:"provider_id"`
	TimeRemainingSeconds float64 `json:"time_remaining_seconds"`
}

// SessionExpiry reports the remaining lifetime of every provider session in
// the caller's session state
func (h *Handlers) SessionExpiry(w http.ResponseWriter, r *http.Request) {
	sessionID := contextkeys.GetSessionID(r.Context())
	if sessionID == "" {
		httputil.WriteBadRequest(w, "X-Session-ID header is required")
		return
	}

	results, err := h.svc.SessionsTimeRemainingForExpiry(r.Context(), h.scope(sessionID))
	if err != nil {
		h.logger.WithError(err).Error("session expiry sweep failed")
		httputil.WriteInternalError(w, err)
		return
	}

	resp := make([]ProviderExpiryResponse, 0, len(results))
	for _, entry := range results {
		resp = append(resp, ProviderExpiryResponse{
			ProviderID:           entry.ProviderID,
			TimeRemainingSeconds: entry.TimeRemaining.Seconds(),
		})
	}

	httputil.WriteSuccess(w, resp)
}
