package dto

import (
	"strings"

	"github.com/hugh/gymhub/internal/api/validation"
)

type ProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

func (r ProfileRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if ok, msg := validation.IsValidPersonName(r.FirstName); !ok {
		errors["first_name"] = "First name: " + msg
	}
	if ok, msg := validation.IsValidPersonName(r.LastName); !ok {
		errors["last_name"] = "Last name: " + msg
	}
	if !validation.IsValidPhone(r.Phone) {
		errors["phone"] = "Phone must be exactly 10 digits"
	}

	return errors
}

type CreateGymRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (r CreateGymRequest) Validate(reserved []string) map[string]string {
	errors := make(map[string]string)

	name := strings.TrimSpace(r.Name)
	if name == "" {
		errors["name"] = "Name is required"
	} else if len(name) > 100 {
		errors["name"] = "Name must be at most 100 characters"
	}
	if ok, msg := validation.IsValidSlug(validation.NormalizeSlug(r.Slug), reserved); !ok {
		errors["slug"] = msg
	}

	return errors
}

type CreateClientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (r CreateClientRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if ok, msg := validation.IsValidClientName(r.Name); !ok {
		errors["name"] = msg
	}
	if email := strings.TrimSpace(r.Email); email != "" && !validation.IsValidEmail(email) {
		errors["email"] = "Invalid email format"
	}
	if phone := strings.TrimSpace(r.Phone); phone != "" && !validation.IsValidPhone(phone) {
		errors["phone"] = "Phone must be exactly 10 digits"
	}

	return errors
}

type UpdateClientStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

type MarkAttendanceRequest struct {
	ClientID uint   `json:"client_id"`
	Date     string `json:"date,omitempty"`
}

func (r MarkAttendanceRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.ClientID == 0 {
		errors["client_id"] = "Client is required"
	}
	if r.Date != "" && !validation.IsValidDate(r.Date) {
		errors["date"] = "Date must be YYYY-MM-DD"
	}

	return errors
}

type UserDTO struct {
	ID              uint   `json:"id"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Phone           string `json:"phone,omitempty"`
	ProfileComplete bool   `json:"profile_complete"`
}

type ClientMeResponse struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Tenant string `json:"tenant"`
	Gym    string `json:"gym"`
}

type DashboardStats struct {
	Gyms            int64 `json:"gyms"`
	ActiveGyms      int64 `json:"active_gyms"`
	Clients         int64 `json:"clients"`
	ActiveClients   int64 `json:"active_clients"`
	AttendanceToday int64 `json:"attendance_today"`
}
