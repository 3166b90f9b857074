package httpapi

import (
	"context"
	"expvar"
	"log"
	"net/http"
	"strings"
	"time"

	"cafepanel/internal/store"
	"cafepanel/internal/token"
)

type Handler struct {
	store    store.Store
	issuer   *token.Issuer
	denylist token.Denylist
	now      func() time.Time
}

type Options struct {
	// Denylist receives tokens revoked by /auth/logout. Defaults to an
	// in-process list.
	Denylist token.Denylist
	Now      func() time.Time
}

type sessionResponse struct {
	Token          string `json:"token"`
	TokenExpiresAt int64  `json:"tokenExpiresAt"`
	Role           string `json:"role"`
	TenantID       int64  `json:"tenantId,omitempty"`
	BranchID       int64  `json:"branchId,omitempty"`
}

func NewHandler(st store.Store, issuer *token.Issuer, opts Options) *Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Denylist == nil {
		opts.Denylist = token.NewMemoryDenylist(opts.Now)
	}
	return &Handler{store: st, issuer: issuer, denylist: opts.Denylist, now: opts.Now}
}

// Routes returns the full API: resource endpoints behind AuthMiddleware,
// wrapped in request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.Handle("/metrics", expvar.Handler())
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/me", h.handleMe)
	mux.HandleFunc("/auth/logout", h.handleLogout)
	mux.HandleFunc("/dashboard", h.handleDashboard)

	for _, res := range h.resources() {
		mux.HandleFunc("/"+res.name(), res.serveCollection)
		mux.HandleFunc("/"+res.name()+"/", res.serveRecord)
	}
	return LoggingMiddleware(AuthMiddleware(h.issuer, h.denylist, mux))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	user, err := h.store.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if isInvalidCredentials(err) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		writeStoreError(w, r, err)
		return
	}

	raw, expiresAt, err := h.issuer.Issue(user.ID, user.Role, user.TenantID, user.BranchID)
	if err != nil {
		log.Printf("issue token error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Token:          raw,
		TokenExpiresAt: expiresAt.UnixMilli(),
		Role:           user.Role,
		TenantID:       user.TenantID,
		BranchID:       user.BranchID,
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing token")
		return
	}
	if _, err := h.store.GetUser(r.Context(), claims.UserID()); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "user no longer active")
			return
		}
		writeStoreError(w, r, err)
		return
	}
	resp := sessionResponse{
		Token:    bearerToken(r.Header.Get("Authorization")),
		Role:     claims.Role,
		TenantID: claims.TenantID,
		BranchID: claims.BranchID,
	}
	if claims.ExpiresAt != nil {
		resp.TokenExpiresAt = claims.ExpiresAt.UnixMilli()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing token")
		return
	}
	if claims.ID != "" && claims.ExpiresAt != nil {
		if err := h.denylist.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			log.Printf("revoke token error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
	}
	writeJSON(w, http.StatusOK, ackResponse{OK: true})
}

// handleDashboard reports KPIs since ?since= (RFC 3339), defaulting to the
// start of the current UTC day.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !requirePermission(w, r, permissionDashboardRead) {
		return
	}
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	since := h.now().UTC().Truncate(24 * time.Hour)
	if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "since must be an RFC 3339 timestamp")
			return
		}
		since = parsed
	}

	dash, err := h.store.Dashboard(r.Context(), tenantID, since)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if dash.OrdersByStatus == nil {
		dash.OrdersByStatus = map[string]int{}
	}
	writeJSON(w, http.StatusOK, dash)
}

