package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/gymhub/internal/api/dto"
	"github.com/hugh/gymhub/internal/api/middleware"
	"github.com/hugh/gymhub/internal/auth"
	"github.com/hugh/gymhub/internal/database/models"
	"github.com/hugh/gymhub/internal/tenancy"
	"gorm.io/gorm"
)

// Renderer executes a named page template.
type Renderer interface {
	ExecuteTemplate(w io.Writer, name string, data interface{}) error
}

type DashboardHandler struct {
	db          *gorm.DB
	authService *auth.Service
	templates   Renderer
	now         func() time.Time
}

func NewDashboardHandler(db *gorm.DB, authService *auth.Service, templates Renderer) *DashboardHandler {
	return &DashboardHandler{
		db:          db,
		authService: authService,
		templates:   templates,
		now:         time.Now,
	}
}

func (h *DashboardHandler) stats(r *http.Request, ownerID uint) dto.DashboardStats {
	var stats dto.DashboardStats
	db := h.db.WithContext(r.Context())
	gyms := db.Model(&models.Tenant{}).Select("id").Where("owner_id = ?", ownerID)
	today := h.now().UTC().Format(models.DateLayout)

	db.Model(&models.Tenant{}).Where("owner_id = ?", ownerID).Count(&stats.Gyms)
	db.Model(&models.Tenant{}).Where("owner_id = ? AND is_active = ?", ownerID, true).Count(&stats.ActiveGyms)
	db.Model(&models.Client{}).Where("tenant_id IN (?)", gyms).Count(&stats.Clients)
	db.Model(&models.Client{}).Where("tenant_id IN (?) AND is_active = ?", gyms, true).Count(&stats.ActiveClients)
	db.Model(&models.Attendance{}).Where("tenant_id IN (?) AND date = ?", gyms, today).Count(&stats.AttendanceToday)

	return stats
}

// Stats handles GET /api/v1/dashboard/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats(r, middleware.GetUserID(r.Context())))
}

func (h *DashboardHandler) Index(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	var gyms []models.Tenant
	h.db.WithContext(r.Context()).Where("owner_id = ?", userID).Order("name ASC").Find(&gyms)

	data := map[string]interface{}{
		"User":  user,
		"Stats": h.stats(r, userID),
		"Gyms":  gyms,
	}

	h.render(w, "dashboard.html", data)
}

func (h *DashboardHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login.html", nil)
}

func (h *DashboardHandler) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if user.ProfileComplete() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, "complete_profile.html", map[string]interface{}{"User": user})
}

// TenantLogin renders the client login page of a gym, served at /{tenant}/
// and /{tenant}/login.
func (h *DashboardHandler) TenantLogin(w http.ResponseWriter, r *http.Request) {
	gym, ok := h.scopedTenant(w, r)
	if !ok {
		return
	}
	h.render(w, "tenant_login.html", map[string]interface{}{"Gym": gym})
}

// TenantDashboard renders a client's own page. ClientAuth has already
// bound the session to this tenant.
func (h *DashboardHandler) TenantDashboard(w http.ResponseWriter, r *http.Request) {
	gym, ok := h.scopedTenant(w, r)
	if !ok {
		return
	}

	id, ok := middleware.GetClientIdentity(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	client, err := h.authService.GetClient(r.Context(), id)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	var visits []models.Attendance
	h.db.WithContext(r.Context()).
		Where("client_id = ? AND tenant_id = ?", client.ID, gym.ID).
		Order("date DESC").
		Limit(30).
		Find(&visits)

	h.render(w, "tenant_dashboard.html", map[string]interface{}{
		"Gym":    gym,
		"Client": client,
		"Visits": visits,
	})
}

// scopedTenant resolves the gym of a tenant page. The {tenant} path segment
// must come from the host-based rewrite, so typing /{slug}/... on another
// host yields 404.
func (h *DashboardHandler) scopedTenant(w http.ResponseWriter, r *http.Request) (*models.Tenant, bool) {
	slug := tenancy.TenantFromContext(r.Context())
	if slug == "" || slug != chi.URLParam(r, "tenant") {
		http.NotFound(w, r)
		return nil, false
	}

	var gym models.Tenant
	if err := h.db.WithContext(r.Context()).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&gym).Error; err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	return &gym, true
}

func (h *DashboardHandler) render(w http.ResponseWriter, name string, data interface{}) {
	if h.templates == nil {
		http.Error(w, "Templates not loaded", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
