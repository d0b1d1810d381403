package models

import "time"

// SecurityEvent records a rejected session worth auditing.
type SecurityEvent struct {
	Base
	Reason         string    `gorm:"not null;index" json:"reason"`
	Flow           string    `gorm:"not null" json:"flow"`
	ExpectedTenant string    `gorm:"index" json:"expected_tenant,omitempty"`
	TokenTenant    string    `json:"token_tenant,omitempty"`
	Subject        string    `json:"subject,omitempty"`
	Path           string    `json:"path"`
	RemoteAddr     string    `json:"remote_addr"`
	RequestID      string    `json:"request_id,omitempty"`
	OccurredAt     time.Time `gorm:"not null;index" json:"occurred_at"`
}

func (SecurityEvent) TableName() string {
	return "security_events"
}
