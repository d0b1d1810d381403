package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/hugh/gymhub/internal/api/dto"
	"github.com/hugh/gymhub/internal/api/validation"
	"github.com/hugh/gymhub/internal/database/models"
	"gorm.io/gorm"
)

type AttendanceHandler struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAttendanceHandler(db *gorm.DB) *AttendanceHandler {
	return &AttendanceHandler{db: db, now: time.Now}
}

type AttendanceResponse struct {
	ID       uint   `json:"id"`
	ClientID uint   `json:"client_id"`
	Date     string `json:"date"`
	Status   string `json:"status"`
}

// Mark handles POST /api/v1/gyms/{id}/attendance. A client is marked at most
// once per day.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	gym, ok := ownedGym(w, r, h.db)
	if !ok {
		return
	}

	var req dto.MarkAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Validation failed", Details: errors})
		return
	}

	date := req.Date
	if date == "" {
		date = h.now().UTC().Format(models.DateLayout)
	}

	var client models.Client
	if err := h.db.WithContext(r.Context()).
		Where("id = ? AND tenant_id = ?", req.ClientID, gym.ID).
		First(&client).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Client not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to get client"})
		return
	}
	if !client.IsActive {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Client is inactive"})
		return
	}

	var count int64
	if err := h.db.WithContext(r.Context()).Model(&models.Attendance{}).
		Where("client_id = ? AND date = ?", client.ID, date).
		Count(&count).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to mark attendance"})
		return
	}
	if count > 0 {
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Attendance already marked for this date"})
		return
	}

	record := models.Attendance{
		ClientID: client.ID,
		TenantID: gym.ID,
		Date:     date,
		Status:   models.AttendancePresent,
	}
	if err := h.db.WithContext(r.Context()).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Attendance already marked for this date"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to mark attendance"})
		return
	}

	writeJSON(w, http.StatusCreated, AttendanceResponse{
		ID:       record.ID,
		ClientID: record.ClientID,
		Date:     record.Date,
		Status:   record.Status,
	})
}

// List handles GET /api/v1/gyms/{id}/attendance?client_id=&from=&to=
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	gym, ok := ownedGym(w, r, h.db)
	if !ok {
		return
	}

	q := r.URL.Query()
	query := h.db.WithContext(r.Context()).Model(&models.Attendance{}).Where("tenant_id = ?", gym.ID)

	if s := q.Get("client_id"); s != "" {
		clientID, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid client ID"})
			return
		}
		query = query.Where("client_id = ?", clientID)
	}
	for param, cond := range map[string]string{"from": "date >= ?", "to": "date <= ?"} {
		if v := q.Get(param); v != "" {
			if !validation.IsValidDate(v) {
				writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid " + param + " date"})
				return
			}
			query = query.Where(cond, v)
		}
	}

	var records []models.Attendance
	if err := query.Order("date DESC, client_id ASC").Limit(500).Find(&records).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to list attendance"})
		return
	}

	response := make([]AttendanceResponse, len(records))
	for i, rec := range records {
		response[i] = AttendanceResponse{
			ID:       rec.ID,
			ClientID: rec.ClientID,
			Date:     rec.Date,
			Status:   rec.Status,
		}
	}

	writeJSON(w, http.StatusOK, response)
}
