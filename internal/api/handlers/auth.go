package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/gymhub/internal/api/dto"
	"github.com/hugh/gymhub/internal/api/middleware"
	"github.com/hugh/gymhub/internal/auth"
	"github.com/hugh/gymhub/internal/database/models"
	"github.com/hugh/gymhub/internal/tenancy"
	"github.com/hugh/gymhub/pkg/config"
)

// platformState is the fixed OAuth state of the owner flow. The client flow
// uses the tenant slug instead.
const platformState = "platform"

type AuthHandler struct {
	authService *auth.Service
	cookies     auth.CookiePolicy
	tenancy     *config.TenancyConfig
	resolver    *tenancy.Resolver
}

func NewAuthHandler(authService *auth.Service, cookies auth.CookiePolicy, tc *config.TenancyConfig, res *tenancy.Resolver) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
		tenancy:     tc,
		resolver:    res,
	}
}

// PlatformLogin handles GET /api/v1/auth/google/login
func (h *AuthHandler) PlatformLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.authService.AuthCodeURL(auth.FlowPlatform, platformState), http.StatusFound)
}

// PlatformCallback handles GET /api/v1/auth/google/callback
func (h *AuthHandler) PlatformCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Missing authorization code"})
		return
	}

	resp, err := h.authService.LoginPlatform(r.Context(), code)
	if err != nil {
		if isProviderError(err) {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Authentication failed"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Login failed"})
		return
	}

	http.SetCookie(w, h.cookies.PlatformCookie(resp.Token))

	if !resp.User.ProfileComplete() {
		http.Redirect(w, r, "/complete-profile", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

// ClientLoginStart handles GET /{tenant}/login/google. It is only reachable
// through a tenant subdomain; the path prefix alone is not enough.
func (h *AuthHandler) ClientLoginStart(w http.ResponseWriter, r *http.Request) {
	slug := tenancy.TenantFromContext(r.Context())
	if slug == "" || slug != chi.URLParam(r, "tenant") {
		http.NotFound(w, r)
		return
	}

	http.Redirect(w, r, h.authService.AuthCodeURL(auth.FlowClient, slug), http.StatusFound)
}

// ClientCallback handles GET /api/v1/auth/google/client/callback
func (h *AuthHandler) ClientCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Missing code or state"})
		return
	}

	resp, err := h.authService.LoginClient(r.Context(), code, state)
	if err != nil {
		switch {
		case isProviderError(err):
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Authentication failed"})
		case errors.Is(err, auth.ErrTenantNotFound):
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Gym not found"})
		case errors.Is(err, auth.ErrTenantInactive):
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Gym is not active"})
		case errors.Is(err, auth.ErrClientNotFound):
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "No client account for this gym"})
		case errors.Is(err, auth.ErrClientInactive):
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Client account is inactive"})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Login failed"})
		}
		return
	}

	http.SetCookie(w, h.cookies.TenantCookie(resp.Tenant.Slug, resp.Token))
	http.Redirect(w, r, h.tenancy.TenantURL(resp.Tenant.Slug, "/dashboard"), http.StatusFound)
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookies.ClearPlatform())
	loggedOut(w, r)
}

// ClientLogout handles POST /api/v1/auth/client/logout on a tenant host.
func (h *AuthHandler) ClientLogout(w http.ResponseWriter, r *http.Request) {
	slug := h.resolver.SlugFromHost(r.Host)
	if slug == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Not a gym address"})
		return
	}
	http.SetCookie(w, h.cookies.ClearTenant(slug))
	loggedOut(w, r)
}

// Me handles GET /api/v1/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "User not found"})
		return
	}
	writeJSON(w, http.StatusOK, userToDTO(user))
}

// CompleteProfile handles POST /api/v1/profile. The platform cookie is
// re-issued so the new profile state is visible without logging in again.
func (h *AuthHandler) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	var req dto.ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	user, err := h.authService.CompleteProfile(r.Context(), middleware.GetUserID(r.Context()), auth.ProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	})
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "User not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update profile"})
		return
	}

	token, err := h.authService.IssuePlatformToken(user)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update profile"})
		return
	}
	http.SetCookie(w, h.cookies.PlatformCookie(token))

	writeJSON(w, http.StatusOK, userToDTO(user))
}

// ClientMe handles GET /api/v1/client/me
func (h *AuthHandler) ClientMe(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetClientIdentity(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return
	}

	client, err := h.authService.GetClient(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Client not found"})
		return
	}

	writeJSON(w, http.StatusOK, clientToMe(client))
}

// loggedOut sends browsers submitting the sign-out form back to the login
// page of the host they are on.
func loggedOut(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Logged out"})
}

func isProviderError(err error) bool {
	return errors.Is(err, auth.ErrNoAccessToken) || errors.Is(err, auth.ErrNoEmail)
}

func userToDTO(u *models.User) dto.UserDTO {
	return dto.UserDTO{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       deref(u.FirstName),
		LastName:        deref(u.LastName),
		Phone:           deref(u.Phone),
		ProfileComplete: u.ProfileComplete(),
	}
}

func clientToMe(c *models.Client) dto.ClientMeResponse {
	return dto.ClientMeResponse{
		ID:     c.ID,
		Name:   c.Name,
		Email:  deref(c.Email),
		Tenant: c.Tenant.Slug,
		Gym:    c.Tenant.Name,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
