package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hugh/gymhub/internal/auth"
	"github.com/hugh/gymhub/internal/tenancy"
)

type contextKey string

const (
	PlatformIdentityKey contextKey = "platform_identity"
	ClientIdentityKey   contextKey = "client_identity"
)

// PlatformAuth admits requests carrying a valid platform session.
func PlatformAuth(v auth.SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.Validate(r.Context(), r, "")
			if err != nil {
				handleSessionError(w, r, logger, err)
				return
			}

			p, ok := id.(auth.PlatformIdentity)
			if !ok {
				handleUnauthorized(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), PlatformIdentityKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientAuth admits requests carrying a client session for the tenant the
// request resolves to. Pages take the tenant from the routing decision,
// API calls re-derive it from the Host header.
func ClientAuth(v auth.SessionValidator, res *tenancy.Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant := tenancy.TenantFromContext(r.Context())
			if tenant == "" {
				tenant = res.SlugFromHost(r.Host)
			}
			if tenant == "" {
				handleUnauthorized(w, r)
				return
			}

			id, err := v.Validate(r.Context(), r, tenant)
			if err != nil {
				handleSessionError(w, r, logger, err)
				return
			}

			c, ok := id.(auth.ClientIdentity)
			if !ok {
				handleUnauthorized(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ClientIdentityKey, c)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCompleteProfile sends owners who have not finished onboarding to
// the profile page.
func RequireCompleteProfile(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := GetPlatformIdentity(r.Context())
		if ok && p.ProfileComplete {
			next.ServeHTTP(w, r)
			return
		}

		if isWebRequest(r) {
			http.Redirect(w, r, "/complete-profile", http.StatusFound)
			return
		}
		writeError(w, http.StatusForbidden, "Profile incomplete")
	})
}

func handleSessionError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, auth.ErrNoToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTenantMismatch),
		errors.Is(err, auth.ErrAccountInactive):
		handleUnauthorized(w, r)
	default:
		TenantLogger(logger, r).Error("session validation failed", "error", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// handleUnauthorized returns appropriate response based on request type.
// The body never says why a session was rejected.
func handleUnauthorized(w http.ResponseWriter, r *http.Request) {
	if isWebRequest(r) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	writeError(w, http.StatusUnauthorized, "Unauthorized")
}

func isWebRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.HasPrefix(r.URL.Path, "/api/")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Helper functions to extract values from context
func GetPlatformIdentity(ctx context.Context) (auth.PlatformIdentity, bool) {
	p, ok := ctx.Value(PlatformIdentityKey).(auth.PlatformIdentity)
	return p, ok
}

func GetClientIdentity(ctx context.Context) (auth.ClientIdentity, bool) {
	c, ok := ctx.Value(ClientIdentityKey).(auth.ClientIdentity)
	return c, ok
}

func GetUserID(ctx context.Context) uint {
	if p, ok := GetPlatformIdentity(ctx); ok {
		return p.UserID
	}
	return 0
}
