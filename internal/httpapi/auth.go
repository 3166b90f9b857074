package httpapi

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"

	"cafepanel/internal/models"
	"cafepanel/internal/token"
)

type claimsContextKey struct{}

type Verifier interface {
	Verify(raw string) (token.Claims, error)
}

// AuthMiddleware verifies the bearer token on every non-public request and
// stores its claims in the request context.
func AuthMiddleware(verifier Verifier, denylist token.Denylist, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		raw := bearerToken(r.Header.Get("Authorization"))
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing token")
			return
		}
		claims, err := verifier.Verify(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		if denylist != nil && claims.ID != "" {
			revoked, err := denylist.Revoked(r.Context(), claims.ID)
			if err != nil {
				log.Printf("revocation lookup error: %v", err)
				writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
				return
			}
			if revoked {
				writeError(w, http.StatusUnauthorized, "unauthorized", "token revoked")
				return
			}
		}
		if entry := accessEntryFrom(r.Context()); entry != nil {
			entry.userID = claims.Subject
			entry.role = claims.Role
		}
		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) (token.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(token.Claims)
	return claims, ok
}

// requireTenant resolves X-Tenant-ID. Admins may act on any tenant; other
// roles only on the tenant their token was issued for.
func requireTenant(w http.ResponseWriter, r *http.Request) (int64, bool) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing token")
		return 0, false
	}
	raw := strings.TrimSpace(r.Header.Get("X-Tenant-ID"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "X-Tenant-ID is required")
		return 0, false
	}
	tenantID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || tenantID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "X-Tenant-ID must be a positive integer")
		return 0, false
	}
	if claims.Role != models.RoleAdmin && claims.TenantID != tenantID {
		writeError(w, http.StatusForbidden, "access_denied", "tenant access denied")
		return 0, false
	}
	return tenantID, true
}

type permission string

const (
	permissionMenuRead      permission = "menu.read"
	permissionMenuWrite     permission = "menu.write"
	permissionTablesRead    permission = "tables.read"
	permissionTablesWrite   permission = "tables.write"
	permissionTableStatus   permission = "tables.status"
	permissionOrdersRead    permission = "orders.read"
	permissionOrdersWrite   permission = "orders.write"
	permissionCafesRead     permission = "cafes.read"
	permissionCafesWrite    permission = "cafes.write"
	permissionDashboardRead permission = "dashboard.read"
)

func requirePermission(w http.ResponseWriter, r *http.Request, perm permission) bool {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing token")
		return false
	}
	if hasPermission(claims.Role, perm) {
		return true
	}
	writeError(w, http.StatusForbidden, "access_denied", "insufficient role")
	return false
}

func hasPermission(role string, perm permission) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleManager:
		return perm != permissionCafesWrite
	case models.RoleStaff:
		switch perm {
		case permissionMenuRead, permissionTablesRead, permissionTableStatus,
			permissionOrdersRead, permissionOrdersWrite, permissionCafesRead, permissionDashboardRead:
			return true
		default:
			return false
		}
	default:
		return false
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func isPublicEndpoint(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics":
		return true
	case "/auth/login":
		return r.Method == http.MethodPost
	default:
		return r.Method == http.MethodOptions
	}
}
