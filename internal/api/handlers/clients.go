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
	"github.com/hugh/gymhub/internal/database/models"
	"gorm.io/gorm"
)

type ClientHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewClientHandler(db *gorm.DB, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{db: db, logger: logger}
}

// ClientResponse represents a gym client in API responses
type ClientResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

func clientToResponse(c *models.Client) ClientResponse {
	return ClientResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     deref(c.Email),
		Phone:     deref(c.Phone),
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

// List handles GET /api/v1/gyms/{id}/clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	gym, ok := ownedGym(w, r, h.db)
	if !ok {
		return
	}

	pagination := dto.PaginationFromQuery(r.URL.Query())

	query := h.db.WithContext(r.Context()).Model(&models.Client{}).Where("tenant_id = ?", gym.ID)
	if isActive := r.URL.Query().Get("is_active"); isActive != "" {
		query = query.Where("is_active = ?", isActive == "true")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to count clients"})
		return
	}

	var clients []models.Client
	if err := query.
		Order("name ASC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&clients).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list clients"})
		return
	}

	response := make([]ClientResponse, len(clients))
	for i := range clients {
		response[i] = clientToResponse(&clients[i])
	}

	writeJSON(w, http.StatusOK, dto.NewPage(response, total, pagination))
}

// Create handles POST /api/v1/gyms/{id}/clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	gym, ok := ownedGym(w, r, h.db)
	if !ok {
		return
	}

	var req dto.CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	client := models.Client{
		TenantID: gym.ID,
		Name:     strings.TrimSpace(req.Name),
		IsActive: true,
	}
	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" {
		var count int64
		if err := h.db.WithContext(r.Context()).Model(&models.Client{}).
			Where("tenant_id = ? AND email = ?", gym.ID, email).
			Count(&count).Error; err != nil {
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create client"})
			return
		}
		if count > 0 {
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "A client with this email already exists"})
			return
		}
		client.Email = &email
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		client.Phone = &phone
	}

	if err := h.db.WithContext(r.Context()).Create(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "A client with this email already exists"})
			return
		}
		h.logger.Error("failed to create client", "gym_id", gym.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to create client"})
		return
	}

	writeJSON(w, http.StatusCreated, clientToResponse(&client))
}

// UpdateStatus handles PUT /api/v1/gyms/{id}/clients/{clientID}/status.
// An inactive client can no longer log in and loses any live session.
func (h *ClientHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	gym, ok := ownedGym(w, r, h.db)
	if !ok {
		return
	}

	clientID, err := strconv.ParseUint(chi.URLParam(r, "clientID"), 10, 64)
	if err != nil || clientID == 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid client ID"})
		return
	}

	var req dto.UpdateClientStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "is_active is required"})
		return
	}

	var client models.Client
	if err := h.db.WithContext(r.Context()).
		Where("id = ? AND tenant_id = ?", clientID, gym.ID).
		First(&client).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Client not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get client"})
		return
	}

	if err := h.db.WithContext(r.Context()).Model(&client).Update("is_active", *req.IsActive).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update client"})
		return
	}
	client.IsActive = *req.IsActive

	writeJSON(w, http.StatusOK, clientToResponse(&client))
}
