package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/gymhub/internal/api/dto"
	"github.com/hugh/gymhub/internal/api/middleware"
	"github.com/hugh/gymhub/internal/api/validation"
	"github.com/hugh/gymhub/internal/database/models"
	"github.com/hugh/gymhub/pkg/config"
	"gorm.io/gorm"
)

type GymHandler struct {
	db       *gorm.DB
	tenancy  *config.TenancyConfig
	reserved []string
	logger   *slog.Logger
}

// NewGymHandler builds the gym handler. reserved lists the slugs the router
// cannot serve as a tenant, on top of the configured reserved subdomains.
func NewGymHandler(db *gorm.DB, tc *config.TenancyConfig, reserved []string, logger *slog.Logger) *GymHandler {
	all := append([]string{}, tc.ReservedSubdomains...)
	all = append(all, reserved...)
	return &GymHandler{db: db, tenancy: tc, reserved: all, logger: logger}
}

// GymResponse represents a gym in API responses
type GymResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	URL       string `json:"url"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

func (h *GymHandler) gymToResponse(g *models.Tenant) GymResponse {
	return GymResponse{
		ID:        g.ID,
		Name:      g.Name,
		Slug:      g.Slug,
		URL:       h.tenancy.TenantURL(g.Slug, "/"),
		IsActive:  g.IsActive,
		CreatedAt: g.CreatedAt.Format(time.RFC3339),
	}
}

// List handles GET /api/v1/gyms
func (h *GymHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var gyms []models.Tenant
	if err := h.db.WithContext(r.Context()).
		Where("owner_id = ?", userID).
		Order("created_at DESC").
		Find(&gyms).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list gyms"})
		return
	}

	response := make([]GymResponse, len(gyms))
	for i := range gyms {
		response[i] = h.gymToResponse(&gyms[i])
	}

	writeJSON(w, http.StatusOK, response)
}

// Create handles POST /api/v1/gyms
func (h *GymHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req dto.CreateGymRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(h.reserved); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	slug := validation.NormalizeSlug(req.Slug)

	var count int64
	if err := h.db.WithContext(r.Context()).Model(&models.Tenant{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create gym"})
		return
	}
	if count > 0 {
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Slug is already taken"})
		return
	}

	gym := models.Tenant{
		Name:     strings.TrimSpace(req.Name),
		Slug:     slug,
		OwnerID:  userID,
		IsActive: true,
	}
	if err := h.db.WithContext(r.Context()).Create(&gym).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Slug is already taken"})
			return
		}
		h.logger.Error("failed to create gym", "slug", slug, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create gym"})
		return
	}

	h.logger.Info("gym created", "gym_id", gym.ID, "slug", gym.Slug, "owner_id", userID)
	writeJSON(w, http.StatusCreated, h.gymToResponse(&gym))
}

// Deactivate handles POST /api/v1/gyms/{id}/deactivate
func (h *GymHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// Activate handles POST /api/v1/gyms/{id}/activate
func (h *GymHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *GymHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	gym, ok := ownedGym(w, r, h.db)
	if !ok {
		return
	}

	if err := h.db.WithContext(r.Context()).Model(gym).Update("is_active", active).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update gym"})
		return
	}
	gym.IsActive = active

	h.logger.Info("gym status changed", "gym_id", gym.ID, "slug", gym.Slug, "is_active", active)
	writeJSON(w, http.StatusOK, h.gymToResponse(gym))
}

// ownedGym loads the gym named by the {id} URL parameter if the caller owns
// it. Gyms of other owners are reported as not found.
func ownedGym(w http.ResponseWriter, r *http.Request, db *gorm.DB) (*models.Tenant, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid gym ID"})
		return nil, false
	}

	var gym models.Tenant
	if err := db.WithContext(r.Context()).
		Where("id = ? AND owner_id = ?", id, middleware.GetUserID(r.Context())).
		First(&gym).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Gym not found"})
			return nil, false
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get gym"})
		return nil, false
	}
	return &gym, true
}
